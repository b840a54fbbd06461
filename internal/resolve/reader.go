package resolve

import (
	"context"

	"github.com/roach88/osmigrate/internal/model"
	"github.com/roach88/osmigrate/internal/normalize"
	"github.com/roach88/osmigrate/internal/store"
)

// Match is the outcome of a read-only lookup.
type Match struct {
	ID    int64
	Found bool
}

// SectorMatch is the outcome of a sector lookup.
type SectorMatch struct {
	Sector store.Sector
	Found  bool
	// ByNameOnly is set when the composite (name, zone) lookup missed and
	// the sector was found by name alone.
	ByNameOnly bool
}

// NeedsZone reports whether resolving this match against zoneID would
// back-fill the sector's missing zone link.
func (m SectorMatch) NeedsZone(zoneID int64) bool {
	return m.Found && m.Sector.ZoneID == 0 && zoneID != 0
}

// Reader performs the lookup half of identity resolution. It never writes.
type Reader struct {
	lookup Lookup
}

// NewReader creates a Reader over the given lookup port.
func NewReader(l Lookup) *Reader {
	return &Reader{lookup: l}
}

// Supervisor looks up a supervisor by normalized name.
func (r *Reader) Supervisor(ctx context.Context, name string) (Match, error) {
	key := SupervisorKey(name)
	id, found, err := r.lookup.FindSupervisor(ctx, key)
	if err != nil {
		return Match{}, resolveErr(model.KindSupervisor, key, err)
	}
	return Match{ID: id, Found: found}, nil
}

// Zone looks up a zone by normalized name.
func (r *Reader) Zone(ctx context.Context, name string) (Match, error) {
	key := ZoneKey(name)
	id, found, err := r.lookup.FindZone(ctx, key)
	if err != nil {
		return Match{}, resolveErr(model.KindZone, key, err)
	}
	return Match{ID: id, Found: found}, nil
}

// Sector looks up a sector by (normalized name, zone id), then by name
// alone. A zero zoneID skips the composite lookup.
func (r *Reader) Sector(ctx context.Context, name string, zoneID int64) (SectorMatch, error) {
	key := SectorKey(name)
	if zoneID != 0 {
		sec, found, err := r.lookup.FindSector(ctx, key, zoneID)
		if err != nil {
			return SectorMatch{}, resolveErr(model.KindSector, key, err)
		}
		if found {
			return SectorMatch{Sector: sec, Found: true}, nil
		}
	}

	sec, found, err := r.lookup.FindSectorByName(ctx, key)
	if err != nil {
		return SectorMatch{}, resolveErr(model.KindSector, key, err)
	}
	return SectorMatch{Sector: sec, Found: found, ByNameOnly: found}, nil
}

// Machine looks up a machine by number. Zero is not a machine number.
func (r *Reader) Machine(ctx context.Context, number int) (Match, error) {
	key := MachineKey(number)
	if number == 0 {
		return Match{}, resolveErr(model.KindMachine, key, ErrEmptyKey)
	}
	id, found, err := r.lookup.FindMachine(ctx, number)
	if err != nil {
		return Match{}, resolveErr(model.KindMachine, key, err)
	}
	return Match{ID: id, Found: found}, nil
}

// Operator looks up an operator by the exact split of the full name.
func (r *Reader) Operator(ctx context.Context, fullName string) (Match, error) {
	first, last := normalize.SplitFullName(fullName)
	id, found, err := r.lookup.FindOperator(ctx, first, last)
	if err != nil {
		return Match{}, resolveErr(model.KindOperator, OperatorKey(fullName), err)
	}
	return Match{ID: id, Found: found}, nil
}
