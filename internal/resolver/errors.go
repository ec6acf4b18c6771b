package resolver

import "errors"

// ErrorKind is the machine-readable failure reported in Result.Error.
type ErrorKind string

const (
	ErrKindInput               ErrorKind = "input_error"
	ErrKindNetwork             ErrorKind = "network_error"
	ErrKindUnresolved          ErrorKind = "unresolved"
	ErrKindUnsupportedPlatform ErrorKind = "unsupported_platform"
	ErrKindExtractionMiss      ErrorKind = "extraction_miss"
	ErrKindPlatformMismatch    ErrorKind = "platform_mismatch"
)

// ErrInput is the only resolution failure returned as a Go error; every other
// outcome is reported through Result.
var ErrInput = errors.New("input_error")
