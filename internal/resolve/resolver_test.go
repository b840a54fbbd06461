package resolve

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/osmigrate/internal/model"
	"github.com/roach88/osmigrate/internal/store"
)

func TestSupervisor_IdempotentWithinRun(t *testing.T) {
	s := createTestStore(t)
	fs := &faultyStore{Store: s}
	r := New(fs, WithLogger(quietLogger()))
	ctx := context.Background()

	first, err := r.Supervisor(ctx, "Juan Pérez")
	require.NoError(t, err)
	second, err := r.Supervisor(ctx, "Juan Pérez")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, fs.createCalls)

	c, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, c.People)

	stats := r.Stats()[model.KindSupervisor]
	assert.Equal(t, 1, stats.Created)
	assert.Equal(t, 1, stats.CacheHits)
}

func TestSupervisor_NormalizedVariantsShareRow(t *testing.T) {
	s := createTestStore(t)
	r := New(s, WithLogger(quietLogger()))
	ctx := context.Background()

	a, err := r.Supervisor(ctx, "Juan Pérez")
	require.NoError(t, err)
	b, err := r.Supervisor(ctx, "  JUAN PEREZ ")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSupervisor_MatchesAcrossRuns(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	id, err := New(s, WithLogger(quietLogger())).Supervisor(ctx, "Juan Pérez")
	require.NoError(t, err)

	r := New(s, WithLogger(quietLogger()))
	again, err := r.Supervisor(ctx, "juan pérez")
	require.NoError(t, err)
	assert.Equal(t, id, again)
	assert.Equal(t, 1, r.Stats()[model.KindSupervisor].Matched)
	assert.Equal(t, 0, r.Stats()[model.KindSupervisor].Created)
}

func TestSupervisor_PlaceholderEmail(t *testing.T) {
	s := createTestStore(t)
	r := New(s, WithLogger(quietLogger()), WithEmailDomain("example.cl"))
	ctx := context.Background()

	id, err := r.Supervisor(ctx, "José Núñez")
	require.NoError(t, err)

	var email, role, name string
	require.NoError(t, s.DB().QueryRow("SELECT email, role, name FROM people WHERE id = ?", id).Scan(&email, &role, &name))
	assert.Equal(t, "jose.nunez@example.cl", email)
	assert.Equal(t, store.RoleSupervisor, role)
	assert.Equal(t, "José Núñez", name)
}

func TestZone_CreatesWithDefaultType(t *testing.T) {
	s := createTestStore(t)
	r := New(s, WithLogger(quietLogger()))

	id, err := r.Zone(context.Background(), "Zona Norte")
	require.NoError(t, err)

	var zoneType string
	require.NoError(t, s.DB().QueryRow("SELECT zone_type FROM zones WHERE id = ?", id).Scan(&zoneType))
	assert.Equal(t, DefaultZoneType, zoneType)
}

func TestSector_CreateWithAttributes(t *testing.T) {
	s := createTestStore(t)
	r := New(s, WithLogger(quietLogger()))
	ctx := context.Background()

	zoneID, err := r.Zone(ctx, "Norte")
	require.NoError(t, err)
	id, err := r.Sector(ctx, SectorInput{
		Name: "Las Palmas", ZoneID: zoneID, Comuna: "Rancagua",
		Area: decimal.RequireFromString("1250.5"), PabellonCount: 12,
	})
	require.NoError(t, err)

	sec, found, err := s.FindSector(ctx, "las palmas", zoneID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, id, sec.ID)
	assert.Equal(t, 12, sec.PabellonCount)
	assert.Equal(t, "Rancagua", sec.Comuna)
}

func TestSector_FallbackByNameBackfillsZone(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	orphan, err := s.CreateSector(ctx, store.Sector{Name: "El Olivo", NameKey: "el olivo"})
	require.NoError(t, err)

	r := New(s, WithLogger(quietLogger()))
	zoneID, err := r.Zone(ctx, "Sur")
	require.NoError(t, err)

	id, err := r.Sector(ctx, SectorInput{Name: "El Olivo", ZoneID: zoneID})
	require.NoError(t, err)
	assert.Equal(t, orphan, id)

	sec, found, err := s.FindSector(ctx, "el olivo", zoneID)
	require.NoError(t, err)
	require.True(t, found, "zone link should have been back-filled")
	assert.Equal(t, orphan, sec.ID)
	assert.Equal(t, 1, r.Stats()[model.KindSector].Backfilled)

	c, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Sectors)
}

func TestSector_BackfillDisabled(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	orphan, err := s.CreateSector(ctx, store.Sector{Name: "El Olivo", NameKey: "el olivo"})
	require.NoError(t, err)

	r := New(s, WithLogger(quietLogger()), WithSectorBackfill(false))
	zoneID, err := r.Zone(ctx, "Sur")
	require.NoError(t, err)

	id, err := r.Sector(ctx, SectorInput{Name: "El Olivo", ZoneID: zoneID})
	require.NoError(t, err)
	assert.Equal(t, orphan, id)

	sec, _, err := s.FindSectorByName(ctx, "el olivo")
	require.NoError(t, err)
	assert.Zero(t, sec.ZoneID)
	assert.Zero(t, r.Stats()[model.KindSector].Backfilled)
}

func TestSector_FallbackKeepsOtherZone(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	r := New(s, WithLogger(quietLogger()))

	north, err := r.Zone(ctx, "Norte")
	require.NoError(t, err)
	south, err := r.Zone(ctx, "Sur")
	require.NoError(t, err)

	id, err := r.Sector(ctx, SectorInput{Name: "Las Palmas", ZoneID: north})
	require.NoError(t, err)
	again, err := r.Sector(ctx, SectorInput{Name: "Las Palmas", ZoneID: south})
	require.NoError(t, err)
	assert.Equal(t, id, again, "name fallback resolves to the existing sector")

	sec, _, err := s.FindSectorByName(ctx, "las palmas")
	require.NoError(t, err)
	assert.Equal(t, north, sec.ZoneID)
}

func TestSector_CreateFailure(t *testing.T) {
	s := createTestStore(t)
	r := New(&faultyStore{Store: s, failCreateSector: true}, WithLogger(quietLogger()))

	_, err := r.Sector(context.Background(), SectorInput{Name: "Las Palmas", ZoneID: 1})
	require.Error(t, err)

	var re *Error
	require.True(t, errors.As(err, &re))
	assert.Equal(t, model.KindSector, re.Kind)
	assert.Equal(t, "las palmas", re.Key)
	assert.ErrorIs(t, err, errInjected)
}

func TestZone_LookupFailure(t *testing.T) {
	s := createTestStore(t)
	r := New(&faultyStore{Store: s, failFindZone: true}, WithLogger(quietLogger()))

	_, err := r.Zone(context.Background(), "Norte")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `resolve zone "norte"`)

	c, cerr := s.Counts(context.Background())
	require.NoError(t, cerr)
	assert.Zero(t, c.Zones)
}

func TestMachine_PlaceholderAttributes(t *testing.T) {
	s := createTestStore(t)
	r := New(s, WithLogger(quietLogger()))
	ctx := context.Background()

	id, err := r.Machine(ctx, 7, 907)
	require.NoError(t, err)

	var plate, brand, modelName string
	require.NoError(t, s.DB().QueryRow("SELECT plate, brand, model FROM machines WHERE id = ?", id).Scan(&plate, &brand, &modelName))
	assert.Equal(t, "MIG-907", plate)
	assert.Equal(t, PlaceholderBrand, brand)
	assert.Equal(t, PlaceholderModel, modelName)

	// A different source id with the same number is the same machine.
	again, err := r.Machine(ctx, 7, 555)
	require.NoError(t, err)
	assert.Equal(t, id, again)
}

func TestMachine_ZeroNumberFails(t *testing.T) {
	s := createTestStore(t)
	r := New(s, WithLogger(quietLogger()))

	_, err := r.Machine(context.Background(), 0, 907)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyKey)
}

func TestOperator_SplitsName(t *testing.T) {
	s := createTestStore(t)
	r := New(s, WithLogger(quietLogger()))
	ctx := context.Background()

	id, err := r.Operator(ctx, "Ana María Rodríguez")
	require.NoError(t, err)

	found, ok, err := s.FindOperator(ctx, "Ana", "María Rodríguez")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, id, found)

	single, err := r.Operator(ctx, "Madonna")
	require.NoError(t, err)
	found, ok, err = s.FindOperator(ctx, "Madonna", "")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, single, found)
}

func TestOperator_SeparatorInNameKeepsKeysDistinct(t *testing.T) {
	s := createTestStore(t)
	r := New(s, WithLogger(quietLogger()))
	ctx := context.Background()

	a, err := r.Operator(ctx, "A|B C")
	require.NoError(t, err)
	b, err := r.Operator(ctx, "A B|C")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	found, ok, err := s.FindOperator(ctx, "A", "B|C")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, b, found)
	assert.Equal(t, 2, r.Stats()[model.KindOperator].Created)
	assert.Zero(t, r.Stats()[model.KindOperator].CacheHits)
}

func TestOperatorKey(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"two parts", "Ana Soto", "Ana|Soto"},
		{"compound last", "Ana María Rodríguez", "Ana|María Rodríguez"},
		{"single", "Madonna", "Madonna|"},
		{"separator in first", "A|B C", `A\|B|C`},
		{"separator in last", "A B|C", `A|B\|C`},
		{"backslash", `A\ B`, `A\\|B`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OperatorKey(tt.in))
		})
	}
}

func TestPlaceholderEmail(t *testing.T) {
	assert.Equal(t, "juan.perez@x.cl", placeholderEmail("juan perez", "x.cl"))
	assert.Equal(t, "ohiggins@x.cl", placeholderEmail("o'higgins", "x.cl"))
	assert.Equal(t, "supervisor@x.cl", placeholderEmail("???", "x.cl"))
}
