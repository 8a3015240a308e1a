package hxmodal

import (
	"errors"
	"sort"
	"strings"
)

// Sentinel errors for page, modal and session operations.
var (
	ErrConfiguration   = errors.New("hxmodal: configuration error")
	ErrFetch           = errors.New("hxmodal: form fragment fetch failed")
	ErrValidation      = errors.New("hxmodal: submission rejected")
	ErrSubmit          = errors.New("hxmodal: submission failed")
	ErrModalBusy       = errors.New("hxmodal: modal is not closed")
	ErrSessionActive   = errors.New("hxmodal: a form session is already active")
	ErrSessionClosed   = errors.New("hxmodal: form session is closed")
	ErrSubmitPending   = errors.New("hxmodal: submission already in progress")
	ErrInvalidFragment = errors.New("hxmodal: invalid form fragment")
	ErrUnknownAction   = errors.New("hxmodal: unknown action")
)

// FormLevelKey is the payload key for messages not tied to a single field.
const FormLevelKey = "__all__"

// ValidationError carries the field-level messages returned by the account
// endpoint when it rejects a submission.
type ValidationError struct {
	Fields  map[string][]string
	Message string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		if e.Message != "" {
			return ErrValidation.Error() + ": " + e.Message
		}
		return ErrValidation.Error()
	}
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return ErrValidation.Error() + ": invalid fields " + strings.Join(names, ", ")
}

// Unwrap lets errors.Is match ErrValidation.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Payload returns the field→messages map delivered with the
// form:submit:errors signal. A bare message with no field errors is
// reported under FormLevelKey.
func (e *ValidationError) Payload() map[string][]string {
	out := make(map[string][]string, len(e.Fields)+1)
	for name, msgs := range e.Fields {
		out[name] = append([]string(nil), msgs...)
	}
	if len(out) == 0 && e.Message != "" {
		out[FormLevelKey] = []string{e.Message}
	}
	return out
}

// IsConfigurationError checks if err is a configuration error.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsFetchError checks if err is a fragment fetch failure.
func IsFetchError(err error) bool {
	return errors.Is(err, ErrFetch)
}

// IsValidationError checks if err is a submission rejected with field errors.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}
