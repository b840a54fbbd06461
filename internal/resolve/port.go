package resolve

import (
	"context"

	"github.com/roach88/osmigrate/internal/store"
)

// Lookup is the read half of the target store.
type Lookup interface {
	FindSupervisor(ctx context.Context, nameKey string) (int64, bool, error)
	FindZone(ctx context.Context, nameKey string) (int64, bool, error)
	FindSector(ctx context.Context, nameKey string, zoneID int64) (store.Sector, bool, error)
	FindSectorByName(ctx context.Context, nameKey string) (store.Sector, bool, error)
	FindMachine(ctx context.Context, number int) (int64, bool, error)
	FindOperator(ctx context.Context, firstName, lastName string) (int64, bool, error)
}

// Store is the full target store port used by the Resolver.
type Store interface {
	Lookup
	CreateSupervisor(ctx context.Context, p store.Person) (int64, error)
	CreateZone(ctx context.Context, z store.Zone) (int64, error)
	CreateSector(ctx context.Context, s store.Sector) (int64, error)
	SetSectorZone(ctx context.Context, sectorID, zoneID int64) (bool, error)
	CreateMachine(ctx context.Context, m store.Machine) (int64, error)
	CreateOperator(ctx context.Context, o store.Operator) (int64, error)
}

var (
	_ Lookup = (*store.Store)(nil)
	_ Store  = (*store.Store)(nil)
)
