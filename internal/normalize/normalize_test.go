package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/osmigrate/internal/model"
)

func TestName(t *testing.T) {
	assert.Equal(t, "Juan Pérez", Name("  Juan Pérez \t"))
	assert.Equal(t, Unknown, Name(""))
	assert.Equal(t, Unknown, Name("   "))
}

func TestKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Juan Pérez", "juan perez"},
		{"  JUAN   PEREZ ", "juan perez"},
		{"Ñuñoa", "nunoa"},
		{"Zona Sur", "zona sur"},
		{"", "desconocido"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Key(tt.in))
		})
	}
}

func TestKey_AccentVariantsCollide(t *testing.T) {
	assert.Equal(t, Key("José Ñandú"), Key("jose nandu"))
}

func TestSplitFullName(t *testing.T) {
	tests := []struct {
		in        string
		wantFirst string
		wantLast  string
	}{
		{"Ana Rodríguez", "Ana", "Rodríguez"},
		{"Madonna", "Madonna", ""},
		{"  María  José   de la Fuente ", "María", "José de la Fuente"},
		{"", Unknown, ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			first, last := SplitFullName(tt.in)
			assert.Equal(t, tt.wantFirst, first)
			assert.Equal(t, tt.wantLast, last)
		})
	}
}

func TestMapStatus(t *testing.T) {
	tests := []struct {
		in   string
		want model.Status
	}{
		{"PENDING", model.StatusPending},
		{"FINISHED", model.StatusCompleted},
		{"anulada", model.StatusCanceled},
		{"", model.StatusPending},
		{"garbage", model.StatusPending},
		{"EN_PROGRESO", model.StatusActive},
		{"en progreso", model.StatusActive},
		{"CLOSED", model.StatusCompleted},
		{"Cancelled", model.StatusCanceled},
		{" Finalizada ", model.StatusCompleted},
		{"en-curso", model.StatusActive},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, MapStatus(tt.in))
		})
	}
}

func TestMapStatus_AlwaysCanonical(t *testing.T) {
	for raw := range statusTable {
		assert.True(t, MapStatus(raw).Valid(), raw)
	}
}
