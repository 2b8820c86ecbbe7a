package protocol

import (
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kerr"
)

var (
	ErrMalformedLength    = errors.New("malformed frame length")
	ErrCorruptMessage     = errors.New("corrupt message")
	ErrUnsupportedAPIKey  = errors.New("unsupported api key")
	ErrUnsupportedVersion = errors.New("unsupported api version")
	ErrArrayTooLong       = errors.New("compact array too long")

	// ErrNotImplemented marks an API that is registered but has no decoder
	// or handler. It is reported to clients like an unknown key.
	ErrNotImplemented = fmt.Errorf("%w: not implemented", ErrUnsupportedAPIKey)
)

// Error Codes
const CodeNone int16 = 0

var (
	CodeUnknownServerError = kerr.UnknownServerError.Code
	CodeCorruptMessage     = kerr.CorruptMessage.Code
	CodeUnsupportedVersion = kerr.UnsupportedVersion.Code
	CodeInvalidRequest     = kerr.InvalidRequest.Code
)

// ErrorCode maps an internal failure to the protocol error code sent to
// the client. Unknown API keys map to INVALID_REQUEST (42).
func ErrorCode(err error) int16 {
	switch {
	case err == nil:
		return CodeNone
	case errors.Is(err, ErrCorruptMessage), errors.Is(err, ErrMalformedLength):
		return CodeCorruptMessage
	case errors.Is(err, ErrUnsupportedVersion):
		return CodeUnsupportedVersion
	case errors.Is(err, ErrUnsupportedAPIKey):
		return CodeInvalidRequest
	default:
		return CodeUnknownServerError
	}
}
