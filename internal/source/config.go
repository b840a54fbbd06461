package source

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite3"
)

// DefaultView is the name of the history view in the source database.
const DefaultView = "service_order_history"

// DefaultConnectTimeout bounds the initial connection check.
const DefaultConnectTimeout = 10 * time.Second

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Config holds the connection parameters of the external source. It is
// built once per run and passed to Open.
type Config struct {
	Driver         string
	DSN            string
	View           string
	MaxOpenConns   int
	ConnectTimeout time.Duration
}

// Validate reports the first problem with the configuration.
func (c Config) Validate() error {
	switch c.Driver {
	case DriverPostgres, DriverMySQL, DriverSQLite:
	case "":
		return errors.New("source driver required")
	default:
		return fmt.Errorf("unsupported source driver %q", c.Driver)
	}
	if strings.TrimSpace(c.DSN) == "" {
		return errors.New("source dsn required")
	}
	if err := ValidateView(c.view()); err != nil {
		return err
	}
	return validateDSN(c.Driver, c.DSN)
}

// ValidateView rejects view names that are not plain SQL identifiers,
// optionally schema-qualified. The name is interpolated into the query.
func ValidateView(name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("invalid source view name %q", name)
	}
	return nil
}

func validateDSN(driver, dsn string) error {
	switch driver {
	case DriverMySQL:
		if _, err := mysql.ParseDSN(dsn); err != nil {
			return fmt.Errorf("parse mysql dsn: %w", err)
		}
	case DriverPostgres:
		if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
			if _, err := pq.ParseURL(dsn); err != nil {
				return fmt.Errorf("parse postgres dsn: %w", err)
			}
		}
	}
	return nil
}

func (c Config) view() string {
	if c.View == "" {
		return DefaultView
	}
	return c.View
}

func (c Config) connectTimeout() time.Duration {
	if c.ConnectTimeout <= 0 {
		return DefaultConnectTimeout
	}
	return c.ConnectTimeout
}
