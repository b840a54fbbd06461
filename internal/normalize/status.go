package normalize

import (
	"strings"

	"github.com/roach88/osmigrate/internal/model"
)

// statusTable maps historical status spellings to canonical statuses.
// Keys are in the form produced by statusKey.
var statusTable = map[string]model.Status{
	"PENDING":     model.StatusPending,
	"PENDIENTE":   model.StatusPending,
	"NUEVA":       model.StatusPending,
	"NUEVO":       model.StatusPending,
	"NEW":         model.StatusPending,
	"OPEN":        model.StatusPending,
	"ABIERTA":     model.StatusPending,
	"CREADA":      model.StatusPending,
	"BORRADOR":    model.StatusPending,
	"DRAFT":       model.StatusPending,
	"SIN_INICIAR": model.StatusPending,

	"ACTIVE":      model.StatusActive,
	"ACTIVA":      model.StatusActive,
	"ACTIVO":      model.StatusActive,
	"EN_PROGRESO": model.StatusActive,
	"EN_PROCESO":  model.StatusActive,
	"EN_CURSO":    model.StatusActive,
	"IN_PROGRESS": model.StatusActive,
	"INICIADA":    model.StatusActive,
	"STARTED":     model.StatusActive,

	"COMPLETED":  model.StatusCompleted,
	"COMPLETADA": model.StatusCompleted,
	"COMPLETADO": model.StatusCompleted,
	"FINISHED":   model.StatusCompleted,
	"FINALIZADA": model.StatusCompleted,
	"FINALIZADO": model.StatusCompleted,
	"TERMINADA":  model.StatusCompleted,
	"TERMINADO":  model.StatusCompleted,
	"REALIZADA":  model.StatusCompleted,
	"CLOSED":     model.StatusCompleted,
	"CERRADA":    model.StatusCompleted,
	"CERRADO":    model.StatusCompleted,
	"DONE":       model.StatusCompleted,

	"CANCELED":   model.StatusCanceled,
	"CANCELLED":  model.StatusCanceled,
	"CANCELADA":  model.StatusCanceled,
	"CANCELADO":  model.StatusCanceled,
	"ANULADA":    model.StatusCanceled,
	"ANULADO":    model.StatusCanceled,
	"RECHAZADA":  model.StatusCanceled,
}

// MapStatus maps a raw status label to its canonical status. Matching is
// case and accent insensitive and treats spaces and hyphens like
// underscores. Unrecognized or empty input maps to StatusPending.
func MapStatus(raw string) model.Status {
	if status, ok := statusTable[statusKey(raw)]; ok {
		return status
	}
	return model.StatusPending
}

func statusKey(raw string) string {
	s := strings.ToUpper(stripDiacritics(strings.TrimSpace(raw)))
	s = strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return '_'
		}
		return r
	}, s)
	return s
}
