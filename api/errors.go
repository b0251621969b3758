package api

import (
	"errors"
	"fmt"
)

// Kind classifies a failed call.
type Kind int

const (
	// KindTransport is a network, timeout or cancellation failure.
	KindTransport Kind = iota + 1
	// KindHTTP is a non-2xx response that does not signal session loss.
	KindHTTP
	// KindApplication is a well-formed envelope with a non-zero error code.
	KindApplication
	// KindSessionExpired is any of the server's session invalidation signals.
	KindSessionExpired
	// KindDecode is a response body that could not be parsed.
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindHTTP:
		return "http"
	case KindApplication:
		return "application"
	case KindSessionExpired:
		return "session_expired"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

var (
	ErrTransport      = errors.New("transport failure")
	ErrHTTPStatus     = errors.New("unexpected http status")
	ErrApplication    = errors.New("application error")
	ErrSessionExpired = errors.New("session expired")
	ErrDecode         = errors.New("malformed response")
)

func (k Kind) sentinel() error {
	switch k {
	case KindTransport:
		return ErrTransport
	case KindHTTP:
		return ErrHTTPStatus
	case KindApplication:
		return ErrApplication
	case KindSessionExpired:
		return ErrSessionExpired
	case KindDecode:
		return ErrDecode
	}
	return nil
}

// Error is the classified failure of an API call. Match it with errors.Is
// against the Err* sentinels, or errors.As to read the details.
type Error struct {
	Kind      Kind
	Method    string
	Path      string
	Status    int    // HTTP status, when a response was received
	Code      string // envelope errorCode, when present
	Message   string // envelope errorMsg, when present
	Body      []byte // raw response body, when available
	RequestID string
	Err       error // underlying cause, if any
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindApplication:
		if e.Message != "" {
			return e.Message
		}
		return fmt.Sprintf("application error (code %s)", e.Code)
	case KindHTTP:
		if e.Message != "" {
			return fmt.Sprintf("%s %s: http %d: %s", e.Method, e.Path, e.Status, e.Message)
		}
		return fmt.Sprintf("%s %s: http %d", e.Method, e.Path, e.Status)
	case KindSessionExpired:
		return "session expired, please log in again"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %s: %v", e.Method, e.Path, e.Kind.sentinel(), e.Err)
	}
	return fmt.Sprintf("%s %s: %s", e.Method, e.Path, e.Kind.sentinel())
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

// IsSessionExpired reports whether err carries a session invalidation signal.
func IsSessionExpired(err error) bool {
	return errors.Is(err, ErrSessionExpired)
}
