package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"sqlite", Config{Driver: DriverSQLite, DSN: "history.db"}, ""},
		{"postgres url", Config{Driver: DriverPostgres, DSN: "postgres://u:p@localhost:5432/hist?sslmode=disable"}, ""},
		{"postgres keywords", Config{Driver: DriverPostgres, DSN: "host=localhost dbname=hist"}, ""},
		{"mysql", Config{Driver: DriverMySQL, DSN: "u:p@tcp(localhost:3306)/hist"}, ""},
		{"qualified view", Config{Driver: DriverSQLite, DSN: "h.db", View: "legacy.service_order_history"}, ""},
		{"missing driver", Config{DSN: "h.db"}, "source driver required"},
		{"unknown driver", Config{Driver: "oracle", DSN: "x"}, `unsupported source driver "oracle"`},
		{"missing dsn", Config{Driver: DriverSQLite, DSN: "  "}, "source dsn required"},
		{"injected view", Config{Driver: DriverSQLite, DSN: "h.db", View: "v; DROP TABLE x"}, "invalid source view name"},
		{"bad mysql dsn", Config{Driver: DriverMySQL, DSN: "not a dsn"}, "parse mysql dsn"},
		{"bad postgres url", Config{Driver: DriverPostgres, DSN: "postgres://%zz"}, "parse postgres dsn"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
