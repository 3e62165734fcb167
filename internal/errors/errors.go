package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Base error types
var (
	ErrNotFound         = errors.New("not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
	ErrTimeout          = errors.New("timeout")
	ErrInvalidInput     = errors.New("invalid input")
	ErrConnectionFailed = errors.New("connection failed")
	ErrUnexpectedStatus = errors.New("unexpected response status")
)

// Kind represents the category of a pipeline failure.
type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindScanType      Kind = "scan_type"
	KindParse         Kind = "parse"
	KindLookup        Kind = "lookup"
	KindTracker       Kind = "tracker"
	KindAttachment    Kind = "attachment"
	KindInternal      Kind = "internal"
)

// Exit codes are part of the contract with the CI caller and must stay stable.
const (
	ExitOK            = 0
	ExitConfiguration = 1
	ExitParse         = 2
	ExitTracker       = 3
	ExitScanType      = 4
	ExitInternal      = 5
)

// Error is a structured error for pipeline operations
type Error struct {
	Kind       Kind
	Op         string // Operation that failed (e.g., "search_issues", "parse_snyk")
	Identity   string // Vulnerability identity if applicable
	Err        error  // Underlying error
	StatusCode int    // HTTP status code if applicable
	Timestamp  time.Time
}

func (e *Error) Error() string {
	if e.Identity != "" {
		return fmt.Sprintf("%s failed for %q: %v", e.Op, e.Identity, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is implements errors.Is interface
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}

	switch target {
	case ErrNotFound:
		if e.StatusCode == http.StatusNotFound {
			return true
		}
	case ErrUnauthorized:
		if e.StatusCode == http.StatusUnauthorized {
			return true
		}
	case ErrForbidden:
		if e.StatusCode == http.StatusForbidden {
			return true
		}
	}

	return errors.Is(e.Err, target)
}

// New creates a new Error
func New(kind Kind, op string, err error) *Error {
	return &Error{
		Kind:      kind,
		Op:        op,
		Err:       err,
		Timestamp: time.Now(),
	}
}

// WithIdentity adds the vulnerability identity to the error
func (e *Error) WithIdentity(identity string) *Error {
	e.Identity = identity
	return e
}

// WithStatusCode adds HTTP status code to the error
func (e *Error) WithStatusCode(code int) *Error {
	e.StatusCode = code
	return e
}

// Helper functions

// Configuration reports invalid or missing configuration.
func Configuration(op string, err error) error {
	return New(KindConfiguration, op, err)
}

// Configurationf is Configuration with a formatted message.
func Configurationf(op, format string, args ...any) error {
	return New(KindConfiguration, op, fmt.Errorf(format, args...))
}

// ScanType reports an unsupported scan type.
func ScanType(scanType string) error {
	return New(KindScanType, "select_scanner", fmt.Errorf("%w: scan type %q, expected \"zap\" or \"snyk\"", ErrInvalidInput, scanType))
}

// Parse reports a report that could not be decoded.
func Parse(op string, err error) error {
	return New(KindParse, op, err)
}

// Tracker wraps a failed tracker call with its HTTP status.
func Tracker(op string, err error, statusCode int) *Error {
	return New(KindTracker, op, err).WithStatusCode(statusCode)
}

// UnexpectedStatus builds a tracker error for a response outside the accepted set.
func UnexpectedStatus(op string, statusCode int, body string) *Error {
	body = strings.TrimSpace(body)
	if len(body) > 512 {
		body = body[:512] + "..."
	}
	if body == "" {
		return Tracker(op, fmt.Errorf("%w: %d", ErrUnexpectedStatus, statusCode), statusCode)
	}
	return Tracker(op, fmt.Errorf("%w: %d: %s", ErrUnexpectedStatus, statusCode, body), statusCode)
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var pipeErr *Error
	if errors.As(err, &pipeErr) {
		return pipeErr.Kind, true
	}
	return "", false
}

// IsKind checks if err carries the given kind
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// ExitCode maps an error to the process exit code expected by the CI caller.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	kind, ok := KindOf(err)
	if !ok {
		return ExitInternal
	}

	switch kind {
	case KindConfiguration:
		return ExitConfiguration
	case KindParse:
		return ExitParse
	case KindTracker, KindLookup, KindAttachment:
		return ExitTracker
	case KindScanType:
		return ExitScanType
	default:
		return ExitInternal
	}
}

// IsAuthError checks if an error is an authentication error
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}

	var pipeErr *Error
	if errors.As(err, &pipeErr) {
		if pipeErr.StatusCode == http.StatusUnauthorized || pipeErr.StatusCode == http.StatusForbidden {
			return true
		}
	}

	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrForbidden)
}
