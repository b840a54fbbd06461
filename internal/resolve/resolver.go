package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/roach88/osmigrate/internal/model"
	"github.com/roach88/osmigrate/internal/normalize"
	"github.com/roach88/osmigrate/internal/store"
)

// Defaults for attributes of entities created from history.
const (
	DefaultEmailDomain = "migracion.local"
	DefaultZoneType    = "general"
	PlaceholderBrand   = "MIGRADO"
	PlaceholderModel   = "MIGRADO"
)

// SectorInput carries the fields needed to resolve or create a sector.
type SectorInput struct {
	Name          string
	ZoneID        int64
	Comuna        string
	Area          decimal.Decimal
	PabellonCount int
}

// Resolver finds or creates target entities by natural key.
//
// A Resolver is meant to live for one run: its cache maps every natural
// key resolved so far to its target id and is never invalidated.
type Resolver struct {
	mu sync.Mutex

	reader      *Reader
	store       Store
	logger      *slog.Logger
	backfill    bool
	emailDomain string

	cache map[cacheKey]int64
	stats map[model.EntityKind]*model.EntityStats
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithSectorBackfill controls whether resolving a sector that exists
// without a zone link writes the resolved zone onto it. Enabled by default.
func WithSectorBackfill(enabled bool) Option {
	return func(r *Resolver) {
		r.backfill = enabled
	}
}

// WithEmailDomain sets the domain of placeholder supervisor addresses.
func WithEmailDomain(domain string) Option {
	return func(r *Resolver) {
		if domain != "" {
			r.emailDomain = domain
		}
	}
}

// New creates a Resolver over the given store.
func New(s Store, opts ...Option) *Resolver {
	r := &Resolver{
		reader:      NewReader(s),
		store:       s,
		logger:      slog.Default(),
		backfill:    true,
		emailDomain: DefaultEmailDomain,
		cache:       make(map[cacheKey]int64),
		stats:       make(map[model.EntityKind]*model.EntityStats, len(model.EntityKinds)),
	}
	for _, k := range model.EntityKinds {
		r.stats[k] = &model.EntityStats{}
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Stats returns a copy of the per-kind counters.
func (r *Resolver) Stats() map[model.EntityKind]model.EntityStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[model.EntityKind]model.EntityStats, len(r.stats))
	for k, v := range r.stats {
		out[k] = *v
	}
	return out
}

// Supervisor resolves a supervisor name to a person id, creating a person
// with the supervisor role and a placeholder address when none matches.
func (r *Resolver) Supervisor(ctx context.Context, name string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := SupervisorKey(name)
	ck := cacheKey{model.KindSupervisor, key}
	if id, ok := r.cached(ck); ok {
		return id, nil
	}

	m, err := r.reader.Supervisor(ctx, name)
	if err != nil {
		return 0, err
	}
	if m.Found {
		return r.matched(ck, m.ID), nil
	}

	id, err := r.store.CreateSupervisor(ctx, store.Person{
		Name:    normalize.Name(name),
		NameKey: key,
		Email:   placeholderEmail(key, r.emailDomain),
	})
	if err != nil {
		return 0, resolveErr(model.KindSupervisor, key, err)
	}
	return r.created(ck, id), nil
}

// Zone resolves a zone name, creating it with the default classification
// when none matches.
func (r *Resolver) Zone(ctx context.Context, name string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := ZoneKey(name)
	ck := cacheKey{model.KindZone, key}
	if id, ok := r.cached(ck); ok {
		return id, nil
	}

	m, err := r.reader.Zone(ctx, name)
	if err != nil {
		return 0, err
	}
	if m.Found {
		return r.matched(ck, m.ID), nil
	}

	id, err := r.store.CreateZone(ctx, store.Zone{
		Name:    normalize.Name(name),
		NameKey: key,
		Type:    DefaultZoneType,
	})
	if err != nil {
		return 0, resolveErr(model.KindZone, key, err)
	}
	return r.created(ck, id), nil
}

// Sector resolves a sector by (name, zone), then by name alone, creating it
// with the supplied attributes when neither matches. A sector found by name
// without a zone link gets in.ZoneID written onto it unless back-fill is
// disabled.
func (r *Resolver) Sector(ctx context.Context, in SectorInput) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := SectorKey(in.Name)
	ck := cacheKey{model.KindSector, sectorCacheValue(key, in.ZoneID)}
	if id, ok := r.cached(ck); ok {
		return id, nil
	}

	m, err := r.reader.Sector(ctx, in.Name, in.ZoneID)
	if err != nil {
		return 0, err
	}
	if m.Found {
		if m.NeedsZone(in.ZoneID) && r.backfill {
			if err := r.backfillZone(ctx, key, m.Sector, in.ZoneID); err != nil {
				return 0, err
			}
		} else if m.ByNameOnly && m.Sector.ZoneID != in.ZoneID {
			r.logger.Debug("sector matched by name in another zone",
				"key", key,
				"target_id", m.Sector.ID,
				"sector_zone_id", m.Sector.ZoneID,
				"zone_id", in.ZoneID,
			)
		}
		return r.matched(ck, m.Sector.ID), nil
	}

	id, err := r.store.CreateSector(ctx, store.Sector{
		Name:          normalize.Name(in.Name),
		NameKey:       key,
		ZoneID:        in.ZoneID,
		Comuna:        in.Comuna,
		Area:          in.Area,
		PabellonCount: in.PabellonCount,
	})
	if err != nil {
		return 0, resolveErr(model.KindSector, key, err)
	}
	return r.created(ck, id), nil
}

func (r *Resolver) backfillZone(ctx context.Context, key string, sec store.Sector, zoneID int64) error {
	updated, err := r.store.SetSectorZone(ctx, sec.ID, zoneID)
	if err != nil {
		return resolveErr(model.KindSector, key, fmt.Errorf("back-fill zone: %w", err))
	}
	if updated {
		r.stats[model.KindSector].Backfilled++
		r.logger.Warn("sector zone link back-filled",
			"key", key,
			"target_id", sec.ID,
			"zone_id", zoneID,
		)
	}
	return nil
}

// Machine resolves a machine number, creating a machine with a placeholder
// plate built from the source machine id when none matches.
func (r *Resolver) Machine(ctx context.Context, number int, sourceID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := MachineKey(number)
	ck := cacheKey{model.KindMachine, key}
	if id, ok := r.cached(ck); ok {
		return id, nil
	}

	m, err := r.reader.Machine(ctx, number)
	if err != nil {
		return 0, err
	}
	if m.Found {
		return r.matched(ck, m.ID), nil
	}

	id, err := r.store.CreateMachine(ctx, store.Machine{
		Number: number,
		Plate:  PlaceholderPlate(sourceID),
		Brand:  PlaceholderBrand,
		Model:  PlaceholderModel,
	})
	if err != nil {
		return 0, resolveErr(model.KindMachine, key, err)
	}
	return r.created(ck, id), nil
}

// PlaceholderPlate returns the registration tag given to machines created
// from history.
func PlaceholderPlate(sourceID int64) string {
	return fmt.Sprintf("MIG-%d", sourceID)
}

// Operator resolves an operator full name split into (first, last),
// creating the operator when none matches.
func (r *Resolver) Operator(ctx context.Context, fullName string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := OperatorKey(fullName)
	ck := cacheKey{model.KindOperator, key}
	if id, ok := r.cached(ck); ok {
		return id, nil
	}

	m, err := r.reader.Operator(ctx, fullName)
	if err != nil {
		return 0, err
	}
	if m.Found {
		return r.matched(ck, m.ID), nil
	}

	first, last := normalize.SplitFullName(fullName)
	id, err := r.store.CreateOperator(ctx, store.Operator{FirstName: first, LastName: last})
	if err != nil {
		return 0, resolveErr(model.KindOperator, key, err)
	}
	return r.created(ck, id), nil
}

// cached, matched and created must be called with r.mu held.

func (r *Resolver) cached(ck cacheKey) (int64, bool) {
	id, ok := r.cache[ck]
	if ok {
		r.stats[ck.kind].CacheHits++
	}
	return id, ok
}

func (r *Resolver) matched(ck cacheKey, id int64) int64 {
	r.cache[ck] = id
	r.stats[ck.kind].Matched++
	r.logger.Debug("entity matched", "kind", ck.kind, "key", ck.value, "target_id", id)
	return id
}

func (r *Resolver) created(ck cacheKey, id int64) int64 {
	r.cache[ck] = id
	r.stats[ck.kind].Created++
	r.logger.Info("entity created", "kind", ck.kind, "key", ck.value, "target_id", id)
	return id
}
