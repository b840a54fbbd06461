package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/osmigrate/internal/model"
)

// dateLayout is the TEXT form of service order dates.
const dateLayout = "2006-01-02"

// formatDecimal stores decimals as their exact string form so SQLite never
// rounds fuel or odometer readings through REAL.
func formatDecimal(d decimal.Decimal) string {
	return d.String()
}

func parseDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse decimal %q: %w", s, err)
	}
	return d, nil
}

func formatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

// damageColumns returns the nullable damage columns of a line.
func damageColumns(d *model.Damage) (typ, desc sql.NullString, qty sql.NullInt64, obs sql.NullString) {
	if d == nil {
		return
	}
	typ = sql.NullString{String: d.Type, Valid: true}
	desc = sql.NullString{String: d.Description, Valid: true}
	qty = sql.NullInt64{Int64: int64(d.Quantity), Valid: true}
	obs = sql.NullString{String: d.Observation, Valid: true}
	return
}

func scanLine(rows *sql.Rows) (ServiceOrderLine, error) {
	var (
		line                   ServiceOrderLine
		odoStart, odoEnd, fuel string
		damageType, damageDesc sql.NullString
		damageQty              sql.NullInt64
		damageObs              sql.NullString
	)
	err := rows.Scan(
		&line.ID, &line.ServiceOrderID, &line.SourceRow, &line.PabellonNumber,
		&line.MachineID, &line.OperatorID,
		&odoStart, &odoEnd, &fuel,
		&damageType, &damageDesc, &damageQty, &damageObs,
	)
	if err != nil {
		return ServiceOrderLine{}, fmt.Errorf("scan service order line: %w", err)
	}

	if line.OdometerStart, err = parseDecimal(odoStart); err != nil {
		return ServiceOrderLine{}, fmt.Errorf("scan service order line: %w", err)
	}
	if line.OdometerEnd, err = parseDecimal(odoEnd); err != nil {
		return ServiceOrderLine{}, fmt.Errorf("scan service order line: %w", err)
	}
	if line.FuelLiters, err = parseDecimal(fuel); err != nil {
		return ServiceOrderLine{}, fmt.Errorf("scan service order line: %w", err)
	}

	if damageType.Valid || damageDesc.Valid {
		line.Damage = &model.Damage{
			Type:        damageType.String,
			Description: damageDesc.String,
			Quantity:    int(damageQty.Int64),
			Observation: damageObs.String,
		}
	}
	return line, nil
}
