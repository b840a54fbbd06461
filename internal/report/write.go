package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Report file name prefixes.
const (
	PrefixMigration = "migration"
	PrefixAnalysis  = "analysis"
)

// TimestampLayout is the UTC timestamp embedded in report file names.
const TimestampLayout = "20060102T150405Z"

// FileName returns "<prefix>_<timestamp>.json" for now.
func FileName(prefix string, now time.Time) string {
	return fmt.Sprintf("%s_%s.json", prefix, now.UTC().Format(TimestampLayout))
}

// WriteJSON writes v as indented JSON to a new timestamped file in dir and
// returns its path. The directory is created if needed. An existing file is
// never overwritten: a numeric suffix is added instead.
func WriteJSON(dir, prefix string, v any, now time.Time) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}

	base := FileName(prefix, now)
	path := filepath.Join(dir, base)
	for n := 2; ; n++ {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			path = filepath.Join(dir, fmt.Sprintf("%s_%d.json", base[:len(base)-len(".json")], n))
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create report file: %w", err)
		}
		if err := writeData(f, data); err != nil {
			f.Close()
			os.Remove(path)
			return "", fmt.Errorf("write report file: %w", err)
		}
		if err := f.Close(); err != nil {
			os.Remove(path)
			return "", fmt.Errorf("close report file: %w", err)
		}
		return path, nil
	}
}

// writeData writes the encoded report. Replaced in tests.
var writeData = func(w io.Writer, data []byte) error {
	_, err := w.Write(data)
	return err
}
