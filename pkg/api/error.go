package api

import (
	"errors"
	"fmt"
)

// Kind classifies an Error.
type Kind int

const (
	// ConfigError means a required client setting is missing or invalid; no I/O was attempted.
	ConfigError Kind = iota + 1
	// ConnectionError means the transport could not reach the server.
	ConnectionError
	// DecodeError means an input image could not be opened or decoded; nothing was sent.
	DecodeError
	// ProtocolError means the server answered with a response missing an expected field,
	// or carrying an unexpected type or shape.
	ProtocolError
	// UnimplementedError means the server does not implement the requested method.
	UnimplementedError
	// TransportError is any other failed remote call.
	TransportError
)

func (k Kind) String() string {
	switch k {
	case ConfigError:
		return "config error"
	case ConnectionError:
		return "connection error"
	case DecodeError:
		return "decode error"
	case ProtocolError:
		return "protocol error"
	case UnimplementedError:
		return "unimplemented"
	case TransportError:
		return "transport error"
	default:
		return "unknown error"
	}
}

// Error represents an error that occurred while building or sending a request.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message != e.Err.Error() {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same Kind, so errors.Is(err, &Error{Kind: ProtocolError}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// Sentinels for errors.Is checks by kind.
var (
	ErrConfig        = &Error{Kind: ConfigError}
	ErrConnection    = &Error{Kind: ConnectionError}
	ErrDecode        = &Error{Kind: DecodeError}
	ErrProtocol      = &Error{Kind: ProtocolError}
	ErrUnimplemented = &Error{Kind: UnimplementedError}
	ErrTransport     = &Error{Kind: TransportError}
)

// KindOf returns the Kind of the first *Error in err's chain, or zero.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

func NewConfigError(message string, cause error) *Error {
	return &Error{Kind: ConfigError, Message: message, Err: cause}
}

func NewConnectionError(message string, cause error) *Error {
	return &Error{Kind: ConnectionError, Message: message, Err: cause}
}

func NewDecodeError(message string, cause error) *Error {
	return &Error{Kind: DecodeError, Message: message, Err: cause}
}

func NewProtocolError(format string, args ...any) *Error {
	return &Error{Kind: ProtocolError, Message: fmt.Sprintf(format, args...)}
}

func NewUnimplementedError(message string, cause error) *Error {
	return &Error{Kind: UnimplementedError, Message: message, Err: cause}
}

func NewTransportError(message string, cause error) *Error {
	return &Error{Kind: TransportError, Message: message, Err: cause}
}
