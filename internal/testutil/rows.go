package testutil

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/osmigrate/internal/model"
)

// DefaultView is the source view name used by fixtures.
const DefaultView = "service_order_history"

// Row is a source row written with plain strings. Empty fields become NULL.
// The yaml tags let scenario files list rows directly.
type Row struct {
	OrderID           string `yaml:"order_id"`
	DateStart         string `yaml:"date_start"`
	DateEnd           string `yaml:"date_end"`
	Supervisor        string `yaml:"supervisor"`
	Zone              string `yaml:"zone"`
	Sector            string `yaml:"sector"`
	Comuna            string `yaml:"comuna"`
	SectorArea        string `yaml:"sector_area"`
	SectorPabellones  string `yaml:"sector_pabellones"`
	PabellonesCleaned string `yaml:"pabellones_cleaned"`
	Ticket            string `yaml:"ticket"`
	Status            string `yaml:"status"`
	Observation       string `yaml:"observation"`
	Pabellon          string `yaml:"pabellon"`
	MachineID         string `yaml:"machine_id"`
	MachineNumber     string `yaml:"machine_number"`
	Operator          string `yaml:"operator"`
	OdometerStart     string `yaml:"odometer_start"`
	OdometerEnd       string `yaml:"odometer_end"`
	FuelLiters        string `yaml:"fuel_liters"`
	DamageType        string `yaml:"damage_type"`
	DamageDescription string `yaml:"damage_description"`
	DamageQuantity    string `yaml:"damage_quantity"`
	DamageObservation string `yaml:"damage_observation"`
}

// values returns the row in model.SourceColumns order.
func (r Row) values() []string {
	return []string{
		r.OrderID, r.DateStart, r.DateEnd, r.Supervisor, r.Zone, r.Sector,
		r.Comuna, r.SectorArea, r.SectorPabellones, r.PabellonesCleaned,
		r.Ticket, r.Status, r.Observation, r.Pabellon, r.MachineID,
		r.MachineNumber, r.Operator, r.OdometerStart, r.OdometerEnd,
		r.FuelLiters, r.DamageType, r.DamageDescription, r.DamageQuantity,
		r.DamageObservation,
	}
}

// Source converts the row to the shape the extractor returns.
func (r Row) Source() model.SourceRow {
	v := r.values()
	return model.SourceRow{
		OrderID:           nullable(v[0]),
		DateStart:         nullable(v[1]),
		DateEnd:           nullable(v[2]),
		SupervisorName:    nullable(v[3]),
		ZoneName:          nullable(v[4]),
		SectorName:        nullable(v[5]),
		Comuna:            nullable(v[6]),
		SectorArea:        nullable(v[7]),
		SectorPabellones:  nullable(v[8]),
		PabellonesCleaned: nullable(v[9]),
		Ticket:            nullable(v[10]),
		Status:            nullable(v[11]),
		Observation:       nullable(v[12]),
		PabellonNumber:    nullable(v[13]),
		MachineID:         nullable(v[14]),
		MachineNumber:     nullable(v[15]),
		OperatorName:      nullable(v[16]),
		OdometerStart:     nullable(v[17]),
		OdometerEnd:       nullable(v[18]),
		FuelLiters:        nullable(v[19]),
		DamageType:        nullable(v[20]),
		DamageDescription: nullable(v[21]),
		DamageQuantity:    nullable(v[22]),
		DamageObservation: nullable(v[23]),
	}
}

// SourceRows converts rows in order.
func SourceRows(rows ...Row) []model.SourceRow {
	out := make([]model.SourceRow, len(rows))
	for i, r := range rows {
		out[i] = r.Source()
	}
	return out
}

func nullable(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// WriteSourceDB creates a SQLite database at path holding rows in a table
// named view, shaped like the external history view.
func WriteSourceDB(path, view string, rows []Row) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("open source fixture: %w", err)
	}
	defer db.Close()

	cols := make([]string, len(model.SourceColumns))
	for i, c := range model.SourceColumns {
		cols[i] = c + " TEXT"
	}
	if _, err := db.Exec(fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", view, strings.Join(cols, ", "))); err != nil {
		return fmt.Errorf("create source fixture: %w", err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(model.SourceColumns)), ", ")
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", view, strings.Join(model.SourceColumns, ", "), placeholders)
	for i, r := range rows {
		v := r.values()
		args := make([]any, len(v))
		for j, s := range v {
			if s == "" {
				args[j] = nil
			} else {
				args[j] = s
			}
		}
		if _, err := db.Exec(insert, args...); err != nil {
			return fmt.Errorf("insert source fixture row %d: %w", i, err)
		}
	}
	return nil
}

// CreateSourceDB writes rows to a fresh SQLite source in t.TempDir and
// returns its path.
func CreateSourceDB(t *testing.T, rows ...Row) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source.db")
	if err := WriteSourceDB(path, DefaultView, rows); err != nil {
		t.Fatalf("WriteSourceDB() failed: %v", err)
	}
	return path
}
