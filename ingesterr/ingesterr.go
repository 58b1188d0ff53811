// Package ingesterr defines the typed error taxonomy stages use instead
// of exceptions-as-control-flow. A stage that hits a
// problem builds one of these, records it on itself (read back through
// Stage.Error), and returns; callers check its Kind with Is rather than
// matching strings.
package ingesterr

import "fmt"

// Kind enumerates the error categories the pipeline distinguishes.
type Kind string

const (
	// OperationFailed: a filesystem or subprocess operation failed.
	OperationFailed Kind = "operation_failed"

	// BadField: a structural expectation on the SIP failed.
	BadField Kind = "bad_field"

	// MissingField: a required SIP artifact (MARC, METS, checksum) is
	// absent.
	MissingField Kind = "missing_field"

	// UnknownSubclass: factory lookup missed.
	UnknownSubclass Kind = "unknown_subclass"

	// InvalidRepositoryPREMIS: the repository's prior METS carries a
	// PREMIS event that doesn't meet the minimal shape required to
	// merge it forward.
	InvalidRepositoryPREMIS Kind = "invalid_repository_premis"

	// InvalidSourcePREMIS: the source METS's PREMIS event doesn't carry
	// exactly one identifier triple.
	InvalidSourcePREMIS Kind = "invalid_source_premis"

	// InvalidMETS: the assembled METS failed external XML validation.
	InvalidMETS Kind = "invalid_mets"

	// MissingMARC: the source METS has no MARC dmdSec.
	MissingMARC Kind = "missing_marc"

	// MissingImageGroup: a package type has no filegroup named "image",
	// so page_count cannot be computed.
	MissingImageGroup Kind = "missing_image_group"
)

// Error is the structured error every stage failure carries.
type Error struct {
	Kind   Kind
	Fields map[string]interface{}
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v %v", e.Kind, e.Err, e.Fields)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Fields)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an Error of the given kind wrapping err (which may be nil)
// with structured fields attached. fields must come in (key, value)
// pairs; a caller passing an odd count gets fields truncated to the
// complete pairs it supplied, which is only ever a programmer mistake
// made visible in tests, not a runtime concern.
func New(kind Kind, err error, fields ...interface{}) *Error {
	m := make(map[string]interface{}, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		m[key] = fields[i+1]
	}
	return &Error{Kind: kind, Fields: m, Err: err}
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	ie, ok := err.(*Error)
	return ok && ie.Kind == kind
}
