package resolve

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/roach88/osmigrate/internal/store"
)

var errInjected = errors.New("injected failure")

func createTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "target.db"))
	if err != nil {
		t.Fatalf("store.Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// faultyStore wraps a real store and fails selected operations.
type faultyStore struct {
	*store.Store
	failCreateSector bool
	failFindZone     bool
	createCalls      int
}

func (f *faultyStore) FindZone(ctx context.Context, key string) (int64, bool, error) {
	if f.failFindZone {
		return 0, false, errInjected
	}
	return f.Store.FindZone(ctx, key)
}

func (f *faultyStore) CreateSector(ctx context.Context, s store.Sector) (int64, error) {
	if f.failCreateSector {
		return 0, errInjected
	}
	return f.Store.CreateSector(ctx, s)
}

func (f *faultyStore) CreateSupervisor(ctx context.Context, p store.Person) (int64, error) {
	f.createCalls++
	return f.Store.CreateSupervisor(ctx, p)
}
