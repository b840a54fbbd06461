package analyze

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/roach88/osmigrate/internal/aggregate"
	"github.com/roach88/osmigrate/internal/model"
	"github.com/roach88/osmigrate/internal/resolve"
	"github.com/roach88/osmigrate/internal/store"
)

// Source is the read port to the external history view.
type Source interface {
	Extract(ctx context.Context, w model.Window) ([]model.SourceRow, error)
}

// Lookup is the read-only port to the target store.
type Lookup interface {
	resolve.Lookup
	FindServiceOrder(ctx context.Context, sourceOrderID string) (int64, bool, error)
}

var _ Lookup = (*store.Store)(nil)

// Thresholds map the number of new keys to a recommendation. They are
// policy and come from configuration.
type Thresholds struct {
	// SafeMaxNew is the largest new-key total still considered safe.
	SafeMaxNew int
	// ReviewMaxNew is the new-key total at which batching is recommended.
	ReviewMaxNew int
}

// DefaultThresholds: no new keys is safe, fewer than 50 needs review.
var DefaultThresholds = Thresholds{SafeMaxNew: 0, ReviewMaxNew: 50}

// Recommend returns the recommendation for a total of new keys.
func (t Thresholds) Recommend(totalNew int) model.Recommendation {
	switch {
	case totalNew <= t.SafeMaxNew:
		return model.RecommendFastMigration
	case totalNew < t.ReviewMaxNew:
		return model.RecommendReview
	default:
		return model.RecommendBatching
	}
}

// Analyzer produces ImpactAnalysis reports.
type Analyzer struct {
	source     Source
	lookup     Lookup
	reader     *resolve.Reader
	thresholds Thresholds
	backfill   bool
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithThresholds sets the recommendation thresholds.
func WithThresholds(t Thresholds) Option {
	return func(a *Analyzer) {
		a.thresholds = t
	}
}

// WithSectorBackfill tells the analyzer whether runs back-fill sector zone
// links, which only changes the notes it writes.
func WithSectorBackfill(enabled bool) Option {
	return func(a *Analyzer) {
		a.backfill = enabled
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithClock sets the time source for GeneratedAt.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) {
		if now != nil {
			a.now = now
		}
	}
}

// New creates an Analyzer.
func New(src Source, lookup Lookup, opts ...Option) *Analyzer {
	a := &Analyzer{
		source:     src,
		lookup:     lookup,
		reader:     resolve.NewReader(lookup),
		thresholds: DefaultThresholds,
		backfill:   true,
		logger:     slog.Default(),
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze classifies every distinct natural key of the window as existing
// or new. It never writes to the target store.
func (a *Analyzer) Analyze(ctx context.Context, w model.Window) (*model.ImpactAnalysis, error) {
	rows, err := a.source.Extract(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("extract source rows: %w", err)
	}
	aggs, malformed := aggregate.Group(rows)

	res := &model.ImpactAnalysis{
		Window:             w,
		GeneratedAt:        a.now(),
		SourceDigest:       model.SourceDigest(aggs),
		SourceRows:         len(rows),
		Aggregates:         len(aggs),
		MalformedRows:      len(malformed),
		SectorsMissingZone: []string{},
		Notes:              []string{},
	}

	p := newPass(a.reader)
	for i := range aggs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		agg := &aggs[i]
		_, migrated, err := a.lookup.FindServiceOrder(ctx, agg.OrderID)
		if err != nil {
			return nil, fmt.Errorf("look up order %s: %w", agg.OrderID, err)
		}
		if migrated {
			res.AlreadyMigrated++
			continue
		}
		if err := p.aggregate(ctx, agg); err != nil {
			return nil, err
		}
	}

	res.Kinds = p.kinds()
	for _, k := range res.Kinds {
		res.TotalExisting += len(k.Existing)
		res.TotalNew += len(k.New)
	}
	res.TotalKeys = res.TotalExisting + res.TotalNew
	res.ExistingPercent = percent(res.TotalExisting, res.TotalKeys)
	res.NewPercent = percent(res.TotalNew, res.TotalKeys)
	res.SectorsMissingZone = p.missingZone
	res.Recommendation = a.thresholds.Recommend(res.TotalNew)
	res.Notes = a.notes(res, p)

	a.logger.Info("analysis finished",
		"aggregates", res.Aggregates,
		"keys", res.TotalKeys,
		"new", res.TotalNew,
		"recommendation", res.Recommendation,
	)
	return res, nil
}

func (a *Analyzer) notes(res *model.ImpactAnalysis, p *pass) []string {
	notes := []string{}
	if res.MalformedRows > 0 {
		notes = append(notes, fmt.Sprintf("%d malformed source rows will be reported and skipped", res.MalformedRows))
	}
	if res.AlreadyMigrated > 0 {
		notes = append(notes, fmt.Sprintf("%d orders are already migrated and will be skipped", res.AlreadyMigrated))
	}
	if n := len(res.SectorsMissingZone); n > 0 {
		if a.backfill {
			notes = append(notes, fmt.Sprintf("%d existing sectors have no zone and will be linked to one", n))
		} else {
			notes = append(notes, fmt.Sprintf("%d existing sectors have no zone and will stay unlinked", n))
		}
	}
	if n := len(res.Kind(model.KindMachine).New); n > 0 {
		notes = append(notes, fmt.Sprintf("%d machines will be created with placeholder plates", n))
	}
	if p.linesWithoutMachine > 0 {
		notes = append(notes, fmt.Sprintf("%d line items have no machine number and will fail", p.linesWithoutMachine))
	}
	return notes
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(n)*1000/float64(total)) / 10
}

// pass walks aggregates once, mirroring the resolver's cache.
type pass struct {
	reader *resolve.Reader

	seen   map[model.EntityKind]map[string]bool
	impact map[model.EntityKind]*model.KindImpact

	// zoneIDs holds ids of existing zones; new zones have no id yet.
	zoneIDs map[string]int64
	// newSectors holds sector name keys a run would create, which later
	// name-only lookups would match.
	newSectors          map[string]bool
	missingZone         []string
	missingZoneSeen     map[int64]bool
	linesWithoutMachine int
}

func newPass(reader *resolve.Reader) *pass {
	p := &pass{
		reader:          reader,
		seen:            make(map[model.EntityKind]map[string]bool, len(model.EntityKinds)),
		impact:          make(map[model.EntityKind]*model.KindImpact, len(model.EntityKinds)),
		zoneIDs:         make(map[string]int64),
		newSectors:      make(map[string]bool),
		missingZone:     []string{},
		missingZoneSeen: make(map[int64]bool),
	}
	for _, k := range model.EntityKinds {
		p.seen[k] = make(map[string]bool)
		p.impact[k] = &model.KindImpact{Kind: k, Existing: []string{}, New: []string{}}
	}
	return p
}

// first reports whether key is new to this pass and marks it seen.
func (p *pass) first(kind model.EntityKind, key string) bool {
	if p.seen[kind][key] {
		return false
	}
	p.seen[kind][key] = true
	return true
}

func (p *pass) classify(kind model.EntityKind, key string, exists bool) {
	ki := p.impact[kind]
	if exists {
		ki.Existing = append(ki.Existing, key)
	} else {
		ki.New = append(ki.New, key)
	}
}

func (p *pass) kinds() []model.KindImpact {
	out := make([]model.KindImpact, 0, len(model.EntityKinds))
	for _, k := range model.EntityKinds {
		out = append(out, *p.impact[k])
	}
	return out
}

func (p *pass) aggregate(ctx context.Context, agg *model.ServiceOrderAggregate) error {
	if key := resolve.SupervisorKey(agg.SupervisorName); p.first(model.KindSupervisor, key) {
		m, err := p.reader.Supervisor(ctx, agg.SupervisorName)
		if err != nil {
			return err
		}
		p.classify(model.KindSupervisor, key, m.Found)
	}

	zoneKey := resolve.ZoneKey(agg.ZoneName)
	if p.first(model.KindZone, zoneKey) {
		m, err := p.reader.Zone(ctx, agg.ZoneName)
		if err != nil {
			return err
		}
		p.classify(model.KindZone, zoneKey, m.Found)
		if m.Found {
			p.zoneIDs[zoneKey] = m.ID
		}
	}

	if err := p.sector(ctx, agg.SectorName, zoneKey); err != nil {
		return err
	}

	for i := range agg.Lines {
		if err := p.line(ctx, &agg.Lines[i]); err != nil {
			return err
		}
	}
	return nil
}

func (p *pass) sector(ctx context.Context, name, zoneKey string) error {
	nameKey := resolve.SectorKey(name)
	key := nameKey + "|" + zoneKey
	if !p.first(model.KindSector, key) {
		return nil
	}
	if p.newSectors[nameKey] {
		// Created earlier in the window; a run finds it by name.
		p.classify(model.KindSector, key, true)
		return nil
	}

	m, err := p.reader.Sector(ctx, name, p.zoneIDs[zoneKey])
	if err != nil {
		return err
	}
	p.classify(model.KindSector, key, m.Found)
	if !m.Found {
		p.newSectors[nameKey] = true
		return nil
	}
	if m.Sector.ZoneID == 0 && !p.missingZoneSeen[m.Sector.ID] {
		p.missingZoneSeen[m.Sector.ID] = true
		p.missingZone = append(p.missingZone, nameKey)
	}
	return nil
}

func (p *pass) line(ctx context.Context, item *model.LineItem) error {
	if item.MachineNumber == 0 {
		// The line fails at the machine step, before its operator resolves.
		p.linesWithoutMachine++
		return nil
	}
	if key := resolve.MachineKey(item.MachineNumber); p.first(model.KindMachine, key) {
		m, err := p.reader.Machine(ctx, item.MachineNumber)
		if err != nil {
			return err
		}
		p.classify(model.KindMachine, key, m.Found)
	}

	if key := resolve.OperatorKey(item.OperatorName); p.first(model.KindOperator, key) {
		m, err := p.reader.Operator(ctx, item.OperatorName)
		if err != nil {
			return err
		}
		p.classify(model.KindOperator, key, m.Found)
	}
	return nil
}
