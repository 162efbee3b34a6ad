package mysql

import (
	"fmt"

	perrors "github.com/pingcap/errors"
)

// Kind classifies a client error per the taxonomy in the protocol
// core's design document, so callers can switch on it instead of
// string-matching Error().
type Kind int

const (
	KindInvalidHandshake Kind = iota
	KindInvalidResponse
	KindInvalidPacket
	KindParsingError
	KindDecodingError
	KindInvalidCredentials
	KindUnsupported
	KindConnectionInUse
	KindUnexpectedResponse
	KindInvalidTypeBound
	KindInvalidBinding
	KindTooManyParametersBound
	KindNotEnoughParametersBound
	KindServerError
)

func (k Kind) String() string {
	switch k {
	case KindInvalidHandshake:
		return "InvalidHandshake"
	case KindInvalidResponse:
		return "InvalidResponse"
	case KindInvalidPacket:
		return "InvalidPacket"
	case KindParsingError:
		return "ParsingError"
	case KindDecodingError:
		return "DecodingError"
	case KindInvalidCredentials:
		return "InvalidCredentials"
	case KindUnsupported:
		return "Unsupported"
	case KindConnectionInUse:
		return "ConnectionInUse"
	case KindUnexpectedResponse:
		return "UnexpectedResponse"
	case KindInvalidTypeBound:
		return "InvalidTypeBound"
	case KindInvalidBinding:
		return "InvalidBinding"
	case KindTooManyParametersBound:
		return "TooManyParametersBound"
	case KindNotEnoughParametersBound:
		return "NotEnoughParametersBound"
	case KindServerError:
		return "ServerError"
	default:
		return "Unknown"
	}
}

// Error is the single error type this package returns. Kind recovers
// the taxonomy category; the remaining fields carry whatever detail
// that Kind needs.
type Error struct {
	Kind Kind

	What string // Unsupported{what}

	Got      string // InvalidTypeBound{got, expected}
	Expected string

	For string // InvalidBinding{for}

	Code     uint16 // ServerError{code, sql_state, message}
	SQLState string
	Message  string

	cause error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindUnsupported:
		return fmt.Sprintf("mysql: unsupported: %s", e.What)
	case KindInvalidTypeBound:
		return fmt.Sprintf("mysql: invalid type bound: got %s, expected %s", e.Got, e.Expected)
	case KindInvalidBinding:
		return fmt.Sprintf("mysql: invalid binding for %s", e.For)
	case KindServerError:
		return fmt.Sprintf("mysql: server error %d (%s): %s", e.Code, e.SQLState, e.Message)
	default:
		if e.Message != "" {
			return fmt.Sprintf("mysql: %s: %s", e.Kind, e.Message)
		}
		return fmt.Sprintf("mysql: %s", e.Kind)
	}
}

// Unwrap exposes the underlying cause, if any, for errors.Is/As.
func (e *Error) Unwrap() error { return e.cause }

func newErr(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// wrapErr traces cause with pingcap/errors so the original call site
// survives in %+v, then attaches it to one of our typed errors.
func wrapErr(kind Kind, cause error, msgf string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(msgf, args...), cause: perrors.Trace(cause)}
}

func unsupportedErr(what string) *Error {
	return &Error{Kind: KindUnsupported, What: what}
}

func invalidTypeBoundErr(got, expected string) *Error {
	return &Error{Kind: KindInvalidTypeBound, Got: got, Expected: expected}
}

func invalidBindingErr(forWhat string) *Error {
	return &Error{Kind: KindInvalidBinding, For: forWhat}
}

func serverErr(code uint16, sqlState, message string) *Error {
	return &Error{Kind: KindServerError, Code: code, SQLState: sqlState, Message: message}
}

var (
	// ErrConnectionInUse is returned when a caller issues a command on
	// a connection that already has one in flight.
	ErrConnectionInUse = newErr(KindConnectionInUse, "a command is already in flight on this connection")

	// ErrTooManyParametersBound is returned when Bind supplies more
	// values than the prepared statement declares parameters.
	ErrTooManyParametersBound = newErr(KindTooManyParametersBound, "more values bound than the statement has parameters")

	// ErrNotEnoughParametersBound is returned when Bind supplies fewer
	// values than the prepared statement declares parameters.
	ErrNotEnoughParametersBound = newErr(KindNotEnoughParametersBound, "fewer values bound than the statement has parameters")

	// ErrStatementClosed is returned when a closed PreparedStatement
	// is executed or reset.
	ErrStatementClosed = newErr(KindInvalidResponse, "prepared statement is closed")

	// ErrStatementForeignConnection is returned when a PreparedStatement
	// is used against a connection other than the one that prepared it.
	ErrStatementForeignConnection = newErr(KindInvalidResponse, "prepared statement belongs to a different connection")

	// ErrConnClosed is returned by any Request API call on a Conn
	// that has already transitioned to Closed.
	ErrConnClosed = newErr(KindInvalidResponse, "connection is closed")

	// ErrPoolClosed is returned by Pool.Acquire after Pool.Close.
	ErrPoolClosed = newErr(KindInvalidResponse, "pool is closed")
)
