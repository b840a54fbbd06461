package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// FindSupervisor returns the id of the supervisor whose name key matches.
// found is false when no supervisor matches.
func (s *Store) FindSupervisor(ctx context.Context, nameKey string) (id int64, found bool, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT id FROM people
		WHERE role = ? AND name_key = ?
		ORDER BY id ASC LIMIT 1
	`, RoleSupervisor, nameKey).Scan(&id)
	return scanID(id, err, "find supervisor")
}

// FindZone returns the id of the zone whose name key matches.
func (s *Store) FindZone(ctx context.Context, nameKey string) (id int64, found bool, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT id FROM zones
		WHERE name_key = ?
		ORDER BY id ASC LIMIT 1
	`, nameKey).Scan(&id)
	return scanID(id, err, "find zone")
}

// FindSector returns the sector matching both name key and zone.
func (s *Store) FindSector(ctx context.Context, nameKey string, zoneID int64) (Sector, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, name_key, zone_id, comuna, area, pabellon_count
		FROM sectors
		WHERE name_key = ? AND zone_id = ?
		ORDER BY id ASC LIMIT 1
	`, nameKey, zoneID)
	return scanSector(row, "find sector")
}

// FindSectorByName returns the first sector with the name key, whatever
// its zone link.
func (s *Store) FindSectorByName(ctx context.Context, nameKey string) (Sector, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, name_key, zone_id, comuna, area, pabellon_count
		FROM sectors
		WHERE name_key = ?
		ORDER BY id ASC LIMIT 1
	`, nameKey)
	return scanSector(row, "find sector by name")
}

// FindMachine returns the id of the machine with the given number.
func (s *Store) FindMachine(ctx context.Context, number int) (id int64, found bool, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT id FROM machines
		WHERE number = ?
		ORDER BY id ASC LIMIT 1
	`, number).Scan(&id)
	return scanID(id, err, "find machine")
}

// FindOperator returns the id of the operator with exactly this first and
// last name.
func (s *Store) FindOperator(ctx context.Context, firstName, lastName string) (id int64, found bool, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT id FROM operators
		WHERE first_name = ? AND last_name = ?
		ORDER BY id ASC LIMIT 1
	`, firstName, lastName).Scan(&id)
	return scanID(id, err, "find operator")
}

// FindServiceOrder returns the id of the service order migrated from the
// given source order id.
func (s *Store) FindServiceOrder(ctx context.Context, sourceOrderID string) (id int64, found bool, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT id FROM service_orders WHERE source_order_id = ?
	`, sourceOrderID).Scan(&id)
	return scanID(id, err, "find service order")
}

// ServiceOrderLines returns the lines of a service order in source row order.
func (s *Store) ServiceOrderLines(ctx context.Context, serviceOrderID int64) ([]ServiceOrderLine, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, service_order_id, source_row, pabellon_number, machine_id, operator_id,
		       odometer_start, odometer_end, fuel_liters,
		       damage_type, damage_description, damage_quantity, damage_observation
		FROM service_order_lines
		WHERE service_order_id = ?
		ORDER BY source_row ASC, id ASC
	`, serviceOrderID)
	if err != nil {
		return nil, fmt.Errorf("query service order lines: %w", err)
	}
	defer rows.Close()

	lines := []ServiceOrderLine{}
	for rows.Next() {
		line, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate service order lines: %w", err)
	}
	return lines, nil
}

// Counts returns the number of rows in every engine-owned entity table.
func (s *Store) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	targets := []struct {
		table string
		dst   *int
	}{
		{"people", &c.People},
		{"zones", &c.Zones},
		{"sectors", &c.Sectors},
		{"machines", &c.Machines},
		{"operators", &c.Operators},
		{"service_orders", &c.ServiceOrders},
		{"service_order_lines", &c.ServiceOrderLines},
	}
	for _, t := range targets {
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t.table).Scan(t.dst); err != nil {
			return Counts{}, fmt.Errorf("count %s: %w", t.table, err)
		}
	}
	return c, nil
}

func scanID(id int64, err error, op string) (int64, bool, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", op, err)
	}
	return id, true, nil
}

func scanSector(row *sql.Row, op string) (Sector, bool, error) {
	var (
		sec    Sector
		zoneID sql.NullInt64
		area   string
	)
	err := row.Scan(&sec.ID, &sec.Name, &sec.NameKey, &zoneID, &sec.Comuna, &area, &sec.PabellonCount)
	if errors.Is(err, sql.ErrNoRows) {
		return Sector{}, false, nil
	}
	if err != nil {
		return Sector{}, false, fmt.Errorf("%s: %w", op, err)
	}
	sec.ZoneID = zoneID.Int64
	sec.Area, err = parseDecimal(area)
	if err != nil {
		return Sector{}, false, fmt.Errorf("%s: %w", op, err)
	}
	return sec, true, nil
}
