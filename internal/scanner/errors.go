package scanner

import "fmt"

// FailureKind classifies why a target produced no usable certificate.
type FailureKind string

const (
	FailureConnection    FailureKind = "connection_error"
	FailureTimeout       FailureKind = "timeout"
	FailureStalled       FailureKind = "stalled"
	FailureNoCertificate FailureKind = "no_certificate"
)

// ProbeError is a typed probe failure. Reason carries the underlying
// cause text and ends up verbatim in the stored record.
type ProbeError struct {
	Kind   FailureKind
	Host   string
	Port   int
	Reason string
	Err    error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *ProbeError) Unwrap() error { return e.Err }

// DecodeError reports malformed certificate bytes. Callers degrade to the
// probe's handshake-derived fields instead of dropping the target.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode_error: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
