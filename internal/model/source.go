package model

import "database/sql"

// SourceRow is one flat record of the external history view: one row per
// pabellon/machine/operator/damage combination of a service order.
//
// Every column is nullable text. The external view is not owned by this
// system and its column types vary between deployments, so parsing happens
// once, in the aggregator.
type SourceRow struct {
	OrderID           sql.NullString `db:"order_id"`
	DateStart         sql.NullString `db:"date_start"`
	DateEnd           sql.NullString `db:"date_end"`
	SupervisorName    sql.NullString `db:"supervisor_name"`
	ZoneName          sql.NullString `db:"zone_name"`
	SectorName        sql.NullString `db:"sector_name"`
	Comuna            sql.NullString `db:"comuna"`
	SectorArea        sql.NullString `db:"sector_area"`
	SectorPabellones  sql.NullString `db:"sector_pabellones"`
	PabellonesCleaned sql.NullString `db:"pabellones_cleaned"`
	Ticket            sql.NullString `db:"ticket"`
	Status            sql.NullString `db:"status"`
	Observation       sql.NullString `db:"observation"`
	PabellonNumber    sql.NullString `db:"pabellon_number"`
	MachineID         sql.NullString `db:"machine_id"`
	MachineNumber     sql.NullString `db:"machine_number"`
	OperatorName      sql.NullString `db:"operator_name"`
	OdometerStart     sql.NullString `db:"odometer_start"`
	OdometerEnd       sql.NullString `db:"odometer_end"`
	FuelLiters        sql.NullString `db:"fuel_liters"`
	DamageType        sql.NullString `db:"damage_type"`
	DamageDescription sql.NullString `db:"damage_description"`
	DamageQuantity    sql.NullString `db:"damage_quantity"`
	DamageObservation sql.NullString `db:"damage_observation"`
}

// SourceColumns lists the view columns in SourceRow field order.
var SourceColumns = []string{
	"order_id",
	"date_start",
	"date_end",
	"supervisor_name",
	"zone_name",
	"sector_name",
	"comuna",
	"sector_area",
	"sector_pabellones",
	"pabellones_cleaned",
	"ticket",
	"status",
	"observation",
	"pabellon_number",
	"machine_id",
	"machine_number",
	"operator_name",
	"odometer_start",
	"odometer_end",
	"fuel_liters",
	"damage_type",
	"damage_description",
	"damage_quantity",
	"damage_observation",
}

// Text returns the string value of a nullable column, or "" when NULL.
func Text(ns sql.NullString) string {
	if !ns.Valid {
		return ""
	}
	return ns.String
}

// Window is a closed interval of years on the order start date.
type Window struct {
	YearStart int `json:"year_start" yaml:"year_start"`
	YearEnd   int `json:"year_end" yaml:"year_end"`
}
