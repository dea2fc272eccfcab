package protocol

import (
	"errors"
	"fmt"
	"io"
)

// strError is a simple string-based error type that implements the error interface.
// It allows creating lightweight error values from string constants without
// allocating a new error for each instance.
type strError string

// Error implements the error interface by returning the string value of the error.
func (e strError) Error() string {
	return string(e)
}

// eofIsUnexpected checks if the error is an io.EOF.
// If it is, we return io.ErrUnexpectedEOF.
// If not, we return the input error verbatim.
func eofIsUnexpected(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	} else {
		return err
	}
}

// ErrServerUnavailable is returned when the Git server is unavailable (HTTP 5xx status codes).
// This error should only be used with errors.Is() for comparison, not for type assertions.
var ErrServerUnavailable = errors.New("server unavailable")

// ServerUnavailableError provides structured information about a Git server that is unavailable.
type ServerUnavailableError struct {
	StatusCode int
	Underlying error
}

func (e *ServerUnavailableError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("server unavailable (status code %d): %v", e.StatusCode, e.Underlying)
	}
	return fmt.Sprintf("server unavailable (status code %d)", e.StatusCode)
}

// Unwrap returns the underlying error, preserving the error chain.
func (e *ServerUnavailableError) Unwrap() error {
	return e.Underlying
}

// Is enables errors.Is() compatibility with ErrServerUnavailable.
func (e *ServerUnavailableError) Is(target error) bool {
	return target == ErrServerUnavailable
}

// NewServerUnavailableError creates a new ServerUnavailableError with the specified status code and underlying error.
func NewServerUnavailableError(statusCode int, underlying error) *ServerUnavailableError {
	return &ServerUnavailableError{
		StatusCode: statusCode,
		Underlying: underlying,
	}
}

// Protocol framing and PACK decoding error kinds.
//
// These are terminal to the operation in progress: the response iterator and
// the PACK decoder never retry internally and never expose a partial object
// table (see spec.md §7).
var (
	// ErrInvalidRefHash is returned when an ls-refs response's first Normal
	// frame does not begin with a 40-character lowercase-hex SHA-1.
	ErrInvalidRefHash = errors.New("invalid ref hash")

	// ErrUtf8 reports a protocol token that must be textual but is not valid
	// UTF-8. Side-band progress/error text is never rejected with it: the
	// ResponseIterator decodes that text lossily.
	ErrUtf8 = errors.New("invalid utf-8")

	// ErrInvalidObjectType is returned when a PACK object entry header
	// declares a kind code outside {1,2,3,4,6,7}.
	ErrInvalidObjectType = errors.New("invalid object type")

	// ErrInvalidInflateStatus is returned when the zlib inflater reports a
	// status other than NeedsMoreInput, HasMoreOutput, or Done.
	ErrInvalidInflateStatus = errors.New("invalid inflate status")

	// ErrInvalidObject is returned when an object's decompressed length
	// disagrees with its header-declared size.
	ErrInvalidObject = errors.New("invalid object")

	// ErrInvalidChecksum is returned when the trailing SHA-1 over the pack
	// prefix does not match the declared trailing checksum.
	ErrInvalidChecksum = errors.New("invalid pack checksum")

	// ErrInvalidServerStatus is wrapped into the error returned when the
	// HTTP collaborator's response status is not 2xx. SmartInfo reports 5xx
	// and 429 as a ServerUnavailableError instead.
	ErrInvalidServerStatus = errors.New("invalid server status")
)

// MalformedFrameError reports a pkt-line frame that could not be decoded:
// a length field that isn't 4 hex digits, a length of exactly 3, or a frame
// truncated before its declared length.
type MalformedFrameError struct {
	Payload []byte
	Reason  string
}

func (e *MalformedFrameError) Error() string {
	return fmt.Sprintf("malformed pkt-line frame: %s", e.Reason)
}

// Is enables errors.Is(err, ErrMalformedFrame).
func (e *MalformedFrameError) Is(target error) bool {
	return target == ErrMalformedFrame
}

// ErrMalformedFrame is the sentinel compared against by MalformedFrameError.Is.
var ErrMalformedFrame = errors.New("malformed frame")

// InvalidContentTypeError reports an HTTP response whose Content-Type did not
// match what the Git Smart HTTP protocol requires for the endpoint queried.
type InvalidContentTypeError struct {
	Expected string
	Got      string
}

func (e *InvalidContentTypeError) Error() string {
	return fmt.Sprintf("invalid content type: expected %q, got %q", e.Expected, e.Got)
}

// Is enables errors.Is(err, ErrInvalidContentType).
func (e *InvalidContentTypeError) Is(target error) bool {
	return target == ErrInvalidContentType
}

// ErrInvalidContentType is the sentinel compared against by InvalidContentTypeError.Is.
var ErrInvalidContentType = errors.New("invalid content type")

// GitServerError reports a fatal message the server sent on the side-band
// error channel (spec.md §4.3 MessagePackError). The ResponseIterator
// yields such a message as MessagePackError; CollectPackBytes and the
// fetch-response decoder in model.go turn it into a GitServerError.
type GitServerError struct {
	ErrorType string // "ERR", "error", or "fatal", mirroring the channel-3 prefix
	Message   string
}

func (e *GitServerError) Error() string {
	return fmt.Sprintf("git server %s: %s", e.ErrorType, e.Message)
}

// Is enables errors.Is(err, ErrGitServerError).
func (e *GitServerError) Is(target error) bool {
	return target == ErrGitServerError
}

// ErrGitServerError is the sentinel compared against by GitServerError.Is.
var ErrGitServerError = errors.New("git server error")
