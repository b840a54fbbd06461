package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by FromEnv.
const EnvPrefix = "OSMIGRATE_"

// Load builds the configuration: defaults, then the YAML file at path (if
// path is not empty), then the .env file at dotenv (missing file ignored),
// then the environment. Flags are merged by the caller.
func Load(path, dotenv string) (Config, error) {
	cfg := Defaults()
	if strings.TrimSpace(path) != "" {
		fileCfg, err := LoadFile(path)
		if err != nil {
			return Config{}, err
		}
		cfg = cfg.Merge(fileCfg)
	}
	if err := LoadDotEnv(dotenv); err != nil {
		return Config{}, err
	}
	envCfg, err := FromEnv()
	if err != nil {
		return Config{}, err
	}
	return cfg.Merge(envCfg), nil
}

// LoadFile reads a YAML configuration file. Unknown keys are rejected.
func LoadFile(path string) (Config, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	defer f.Close()

	var cfg Config
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadDotEnv loads variables from a .env file into the process
// environment without overriding variables already set. A missing file is
// not an error.
func LoadDotEnv(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// FromEnv reads OSMIGRATE_* variables. Unset variables leave fields zero.
func FromEnv() (Config, error) {
	var cfg Config
	cfg.Source.Driver = env("SOURCE_DRIVER")
	cfg.Source.DSN = env("SOURCE_DSN")
	cfg.Source.View = env("SOURCE_VIEW")
	cfg.Target.Path = env("TARGET_PATH")
	cfg.Resolver.SupervisorEmailDomain = env("SUPERVISOR_EMAIL_DOMAIN")
	cfg.Report.Dir = env("REPORT_DIR")

	var err error
	if cfg.Source.MaxOpenConns, err = envInt("SOURCE_MAX_OPEN_CONNS"); err != nil {
		return Config{}, err
	}
	if v := env("SOURCE_CONNECT_TIMEOUT"); v != "" {
		d, perr := time.ParseDuration(v)
		if perr != nil {
			return Config{}, fmt.Errorf("parse %sSOURCE_CONNECT_TIMEOUT: %w", EnvPrefix, perr)
		}
		cfg.Source.ConnectTimeout = d
	}
	if cfg.Window.YearStart, err = envInt("YEAR_START"); err != nil {
		return Config{}, err
	}
	if cfg.Window.YearEnd, err = envInt("YEAR_END"); err != nil {
		return Config{}, err
	}
	if cfg.Analysis.SafeMaxNew, err = envIntPtr("SAFE_MAX_NEW"); err != nil {
		return Config{}, err
	}
	if cfg.Analysis.ReviewMaxNew, err = envIntPtr("REVIEW_MAX_NEW"); err != nil {
		return Config{}, err
	}
	if v := env("BACKFILL_SECTOR_ZONE"); v != "" {
		b, perr := strconv.ParseBool(v)
		if perr != nil {
			return Config{}, fmt.Errorf("parse %sBACKFILL_SECTOR_ZONE: %w", EnvPrefix, perr)
		}
		cfg.Resolver.BackfillSectorZone = &b
	}
	return cfg, nil
}

func env(name string) string {
	return strings.TrimSpace(os.Getenv(EnvPrefix + name))
}

func envInt(name string) (int, error) {
	v := env(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s%s: %w", EnvPrefix, name, err)
	}
	return n, nil
}

func envIntPtr(name string) (*int, error) {
	if env(name) == "" {
		return nil, nil
	}
	n, err := envInt(name)
	if err != nil {
		return nil, err
	}
	return &n, nil
}
