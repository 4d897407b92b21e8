package fetcher

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed download attempt. Every kind is terminal: nothing is retried.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindSizeLimit
	KindUpstream
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindSizeLimit:
		return "size_limit"
	case KindUpstream:
		return "upstream"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

const (
	MsgURLRequired       = "A valid URL is required"
	MsgInvalidURL        = "Invalid URL format"
	MsgUnsupportedScheme = "Only HTTP and HTTPS URLs are supported"
	MsgInternalAddress   = "Internal addresses are not allowed"
	MsgTimeout           = "Request timed out. The server took too long to respond."
	MsgUnknown           = "Failed to download the file. Please check the URL and try again."
)

// Error is returned by every failing step of the download pipeline.
// Status is the HTTP status the caller should answer with and Message the
// client-facing text.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

var (
	ErrURLRequired       = &Error{Kind: KindValidation, Status: http.StatusBadRequest, Message: MsgURLRequired}
	ErrInvalidURL        = &Error{Kind: KindValidation, Status: http.StatusBadRequest, Message: MsgInvalidURL}
	ErrUnsupportedScheme = &Error{Kind: KindValidation, Status: http.StatusBadRequest, Message: MsgUnsupportedScheme}
	ErrInternalAddress   = &Error{Kind: KindValidation, Status: http.StatusBadRequest, Message: MsgInternalAddress}
)

func tooLargeError(limit int64) *Error {
	return &Error{
		Kind:    KindSizeLimit,
		Status:  http.StatusRequestEntityTooLarge,
		Message: "File is too large (max " + formatLimit(limit) + ")",
	}
}

// formatLimit renders a byte cap in the largest unit that divides it exactly.
func formatLimit(limit int64) string {
	switch {
	case limit >= 1<<20 && limit%(1<<20) == 0:
		return fmt.Sprintf("%dMB", limit>>20)
	case limit >= 1<<10 && limit%(1<<10) == 0:
		return fmt.Sprintf("%dKB", limit>>10)
	default:
		return fmt.Sprintf("%d bytes", limit)
	}
}

func upstreamError(statusCode int, statusText string) *Error {
	return &Error{
		Kind:    KindUpstream,
		Status:  statusCode,
		Message: fmt.Sprintf("Failed to fetch: %d %s", statusCode, statusText),
	}
}

func timeoutError(err error) *Error {
	return &Error{Kind: KindTimeout, Status: http.StatusGatewayTimeout, Message: MsgTimeout, Err: err}
}

func unknownError(err error) *Error {
	return &Error{Kind: KindUnknown, Status: http.StatusInternalServerError, Message: MsgUnknown, Err: err}
}

// AsError returns err as *Error, converting anything else into an unknown failure.
func AsError(err error) *Error {
	var fe *Error
	if errors.As(err, &fe) {
		return fe
	}
	return unknownError(err)
}

// KindOf reports the Kind of err.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}
