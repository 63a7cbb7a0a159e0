package recipe

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Sentinels for errors.Is checks. The concrete error types below match them.
var (
	ErrInvalidURL      = errors.New("invalid url")
	ErrURLNotSupported = errors.New("url not supported")
	ErrFetch           = errors.New("fetch failed")
	ErrParse           = errors.New("parse failed")
)

// InvalidURLError means the input string is not a well-formed absolute URL.
type InvalidURLError struct {
	Input string
	Err   error
}

func (e *InvalidURLError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid url %q: %v", e.Input, e.Err)
	}
	return fmt.Sprintf("invalid url %q", e.Input)
}

func (e *InvalidURLError) Unwrap() error        { return e.Err }
func (e *InvalidURLError) Is(target error) bool { return target == ErrInvalidURL }

// URLNotSupportedError means no registered adapter claims the URL.
// URL is the caller's input exactly as given.
type URLNotSupportedError struct {
	URL string
}

func (e *URLNotSupportedError) Error() string {
	return fmt.Sprintf("url not supported: %s", e.URL)
}

func (e *URLNotSupportedError) Is(target error) bool { return target == ErrURLNotSupported }

// FetchError wraps a transport failure or timeout while retrieving a page.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error        { return e.Err }
func (e *FetchError) Is(target error) bool { return target == ErrFetch }

// Timeout reports whether the failure was a deadline being exceeded.
func (e *FetchError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}

// ParseError means the retrieved content did not have the structure the
// adapter expects. Expected describes the missing piece.
type ParseError struct {
	URL      string
	Expected string
	Err      error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("parse %s: expected %s", e.URL, e.Expected)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error        { return e.Err }
func (e *ParseError) Is(target error) bool { return target == ErrParse }

// Error kinds as reported by Kind.
const (
	KindInvalidURL      = "invalid_url"
	KindURLNotSupported = "url_not_supported"
	KindFetch           = "fetch_error"
	KindParse           = "parse_error"
	KindInternal        = "internal"
)

// Kind maps err onto a stable identifier for logs, API responses and exit
// codes. A nil error has kind "".
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidURL):
		return KindInvalidURL
	case errors.Is(err, ErrURLNotSupported):
		return KindURLNotSupported
	case errors.Is(err, ErrFetch):
		return KindFetch
	case errors.Is(err, ErrParse):
		return KindParse
	default:
		return KindInternal
	}
}
