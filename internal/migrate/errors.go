package migrate

import (
	"errors"
	"fmt"

	"github.com/roach88/osmigrate/internal/model"
	"github.com/roach88/osmigrate/internal/resolve"
)

// ErrorCode categorizes migration errors.
type ErrorCode string

const (
	// ErrCodeSourceUnavailable indicates the external view could not be
	// reached or queried. Fatal.
	ErrCodeSourceUnavailable ErrorCode = "SOURCE_UNAVAILABLE"

	// ErrCodeExtractFailed indicates the source was reachable but rejected
	// the extraction, e.g. an invalid window or a missing view. Fatal.
	ErrCodeExtractFailed ErrorCode = "EXTRACT_FAILED"

	// ErrCodeTargetUnavailable indicates the target store could not be
	// reached at all. Fatal.
	ErrCodeTargetUnavailable ErrorCode = "TARGET_UNAVAILABLE"

	// ErrCodeResolutionFailed indicates one entity could not be found or
	// created.
	ErrCodeResolutionFailed ErrorCode = "RESOLUTION_FAILED"

	// ErrCodePersistenceFailed indicates a parent or line item insert failed
	// after its references resolved.
	ErrCodePersistenceFailed ErrorCode = "PERSISTENCE_FAILED"

	// ErrCodeMalformedRow indicates a source row that could not be grouped.
	ErrCodeMalformedRow ErrorCode = "MALFORMED_ROW"
)

// Steps recorded in report errors.
const (
	StepGroup        = "group"
	StepLookup       = "lookup"
	StepSupervisor   = "supervisor"
	StepZone         = "zone"
	StepSector       = "sector"
	StepServiceOrder = "service_order"
	StepMachine      = "machine"
	StepOperator     = "operator"
	StepLine         = "line"
)

// Error is a migration failure with enough context to act on.
//
// Fatal codes abort a run. Every other code is caught at the aggregate
// boundary and itemized in the report.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// OrderID is the source order being processed, if any.
	OrderID string

	// Step is the resolution or persistence step that failed.
	Step string

	// Row is the source row position, or -1.
	Row int

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.OrderID != "" {
		return fmt.Sprintf("%s: %s (order=%s, step=%s)", e.Code, msg, e.OrderID, e.Step)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Fatal reports whether the error aborts a run.
func (e *Error) Fatal() bool {
	switch e.Code {
	case ErrCodeSourceUnavailable, ErrCodeExtractFailed, ErrCodeTargetUnavailable:
		return true
	}
	return false
}

// ReportError converts the error to its report entry.
func (e *Error) ReportError() model.ReportError {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return model.ReportError{
		OrderID: e.OrderID,
		Row:     e.Row,
		Step:    e.Step,
		Code:    string(e.Code),
		Message: msg,
	}
}

// IsFatal returns true if err aborts a run.
// Uses errors.As to handle wrapped errors.
func IsFatal(err error) bool {
	var me *Error
	if errors.As(err, &me) {
		return me.Fatal()
	}
	return false
}

// IsSourceUnavailable returns true if the source could not be reached.
func IsSourceUnavailable(err error) bool {
	return hasCode(err, ErrCodeSourceUnavailable)
}

// IsExtractFailed returns true if the source rejected the extraction.
func IsExtractFailed(err error) bool {
	return hasCode(err, ErrCodeExtractFailed)
}

// IsTargetUnavailable returns true if the target store could not be reached.
func IsTargetUnavailable(err error) bool {
	return hasCode(err, ErrCodeTargetUnavailable)
}

func hasCode(err error, code ErrorCode) bool {
	var me *Error
	if errors.As(err, &me) {
		return me.Code == code
	}
	return false
}

// NewSourceUnavailable wraps an extraction failure.
func NewSourceUnavailable(err error) *Error {
	return &Error{Code: ErrCodeSourceUnavailable, Message: "extract source rows", Row: -1, Err: err}
}

// NewExtractError wraps an extraction failure that is not a connection
// problem.
func NewExtractError(err error) *Error {
	return &Error{Code: ErrCodeExtractFailed, Message: "extract source rows", Row: -1, Err: err}
}

// NewTargetUnavailable wraps a connection-level target store failure.
func NewTargetUnavailable(err error) *Error {
	return &Error{Code: ErrCodeTargetUnavailable, Message: "reach target store", Row: -1, Err: err}
}

// NewResolutionError wraps a resolver failure for one step of an order.
func NewResolutionError(orderID, step string, row int, err error) *Error {
	msg := "resolve " + step
	var re *resolve.Error
	if errors.As(err, &re) {
		msg = fmt.Sprintf("resolve %s %q", re.Kind, re.Key)
		err = re.Err
	}
	return &Error{Code: ErrCodeResolutionFailed, Message: msg, OrderID: orderID, Step: step, Row: row, Err: err}
}

// NewPersistenceError wraps a failed insert of a parent or line record.
func NewPersistenceError(orderID, step string, row int, err error) *Error {
	return &Error{Code: ErrCodePersistenceFailed, Message: "persist " + step, OrderID: orderID, Step: step, Row: row, Err: err}
}

// NewMalformedRowError describes a row the aggregator could not place.
func NewMalformedRowError(m model.MalformedRow) *Error {
	return &Error{Code: ErrCodeMalformedRow, Message: m.Reason, OrderID: m.OrderID, Step: StepGroup, Row: m.Row}
}
