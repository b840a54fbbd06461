package store

import (
	"context"
	"database/sql"
	"fmt"
)

// CreateSupervisor inserts a person with the supervisor role and returns
// the new id. The caller is responsible for checking FindSupervisor first.
func (s *Store) CreateSupervisor(ctx context.Context, p Person) (int64, error) {
	return s.insert(ctx, "create supervisor", `
		INSERT INTO people (name, name_key, email, role, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, p.Name, p.NameKey, p.Email, RoleSupervisor, s.timestamp())
}

// CreateZone inserts a zone and returns the new id.
func (s *Store) CreateZone(ctx context.Context, z Zone) (int64, error) {
	return s.insert(ctx, "create zone", `
		INSERT INTO zones (name, name_key, zone_type, created_at)
		VALUES (?, ?, ?, ?)
	`, z.Name, z.NameKey, z.Type, s.timestamp())
}

// CreateSector inserts a sector and returns the new id. A zero ZoneID
// stores a NULL zone link.
func (s *Store) CreateSector(ctx context.Context, sec Sector) (int64, error) {
	return s.insert(ctx, "create sector", `
		INSERT INTO sectors (name, name_key, zone_id, comuna, area, pabellon_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, sec.Name, sec.NameKey, nullID(sec.ZoneID), sec.Comuna, formatDecimal(sec.Area), sec.PabellonCount, s.timestamp())
}

// SetSectorZone links a sector to a zone, but only when the sector has no
// zone link yet. updated is false when the sector already had one.
func (s *Store) SetSectorZone(ctx context.Context, sectorID, zoneID int64) (updated bool, err error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sectors SET zone_id = ?
		WHERE id = ? AND zone_id IS NULL
	`, zoneID, sectorID)
	if err != nil {
		return false, fmt.Errorf("set sector zone: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set sector zone: rows affected: %w", err)
	}
	return n > 0, nil
}

// CreateMachine inserts a machine and returns the new id.
func (s *Store) CreateMachine(ctx context.Context, m Machine) (int64, error) {
	return s.insert(ctx, "create machine", `
		INSERT INTO machines (number, plate, brand, model, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, m.Number, m.Plate, m.Brand, m.Model, s.timestamp())
}

// CreateOperator inserts an operator and returns the new id.
func (s *Store) CreateOperator(ctx context.Context, o Operator) (int64, error) {
	return s.insert(ctx, "create operator", `
		INSERT INTO operators (first_name, last_name, created_at)
		VALUES (?, ?, ?)
	`, o.FirstName, o.LastName, s.timestamp())
}

// CreateServiceOrder inserts the parent record of a migrated aggregate.
// Fails if the source order id was already migrated (UNIQUE constraint).
func (s *Store) CreateServiceOrder(ctx context.Context, o ServiceOrder) (int64, error) {
	return s.insert(ctx, "create service order", `
		INSERT INTO service_orders
		(source_order_id, date_start, date_end, supervisor_id, zone_id, sector_id,
		 area, pabellon_total, pabellon_cleaned, ticket, status, observation, run_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		o.SourceOrderID,
		formatDate(o.DateStart),
		formatDate(o.DateEnd),
		o.SupervisorID,
		o.ZoneID,
		o.SectorID,
		formatDecimal(o.Area),
		o.PabellonTotal,
		o.PabellonCleaned,
		o.Ticket,
		string(o.Status),
		o.Observation,
		o.RunID,
		s.timestamp(),
	)
}

// CreateServiceOrderLine inserts one line of a service order.
//
// Note: The service order, machine and operator must exist (foreign key constraints).
func (s *Store) CreateServiceOrderLine(ctx context.Context, l ServiceOrderLine) (int64, error) {
	damageType, damageDesc, damageQty, damageObs := damageColumns(l.Damage)
	return s.insert(ctx, "create service order line", `
		INSERT INTO service_order_lines
		(service_order_id, source_row, pabellon_number, machine_id, operator_id,
		 odometer_start, odometer_end, fuel_liters,
		 damage_type, damage_description, damage_quantity, damage_observation)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		l.ServiceOrderID,
		l.SourceRow,
		l.PabellonNumber,
		l.MachineID,
		l.OperatorID,
		formatDecimal(l.OdometerStart),
		formatDecimal(l.OdometerEnd),
		formatDecimal(l.FuelLiters),
		damageType,
		damageDesc,
		damageQty,
		damageObs,
	)
}

func (s *Store) insert(ctx context.Context, op, query string, args ...any) (int64, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%s: last insert id: %w", op, err)
	}
	return id, nil
}

func nullID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}
