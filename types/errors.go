package types

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// PDFErrorCode categorizes errors. Differences between documents are never
// errors; a code means a comparison could not be carried out.
type PDFErrorCode string

const (
	// Loading
	ErrCodeInvalidPDF     PDFErrorCode = "INVALID_PDF"
	ErrCodeMalformedPDF   PDFErrorCode = "MALFORMED_PDF"
	ErrCodeXRefError      PDFErrorCode = "XREF_ERROR"
	ErrCodeObjectNotFound PDFErrorCode = "OBJECT_NOT_FOUND"
	ErrCodeStreamError    PDFErrorCode = "STREAM_ERROR"
	ErrCodeEncrypted      PDFErrorCode = "ENCRYPTED"

	// Comparing
	ErrCodeNoRootIdentity PDFErrorCode = "NO_ROOT_IDENTITY"
	ErrCodeInvalidInput   PDFErrorCode = "INVALID_INPUT"

	// Visual fallback tools
	ErrCodeToolUnavailable PDFErrorCode = "TOOL_UNAVAILABLE"
	ErrCodeToolFailed      PDFErrorCode = "TOOL_FAILED"

	ErrCodeWriteError PDFErrorCode = "WRITE_ERROR"
	ErrCodeIOError    PDFErrorCode = "IO_ERROR"
)

// PDFError is a structured error carrying a code, an optional cause and
// context such as an object number or a tool name.
type PDFError struct {
	Code    PDFErrorCode
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error renders "[CODE] message (key=value, ...): cause" with context keys
// sorted.
func (e *PDFError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Code, e.Message)
	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%v", k, e.Context[k])
		}
		b.WriteByte(')')
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

func (e *PDFError) Unwrap() error {
	return e.Cause
}

// Is matches any PDFError with the same code, so the sentinels below work
// with errors.Is.
func (e *PDFError) Is(target error) bool {
	t, ok := target.(*PDFError)
	return ok && e.Code == t.Code
}

// WithContext adds context and returns e for chaining.
func (e *PDFError) WithContext(key string, value interface{}) *PDFError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

func NewPDFError(code PDFErrorCode, message string) *PDFError {
	return &PDFError{Code: code, Message: message}
}

func NewPDFErrorf(code PDFErrorCode, format string, args ...interface{}) *PDFError {
	return &PDFError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func WrapError(code PDFErrorCode, message string, cause error) *PDFError {
	return &PDFError{Code: code, Message: message, Cause: cause}
}

func WrapErrorf(code PDFErrorCode, cause error, format string, args ...interface{}) *PDFError {
	return &PDFError{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Sentinels for errors.Is.
var (
	ErrInvalidPDF     = &PDFError{Code: ErrCodeInvalidPDF}
	ErrMalformedPDF   = &PDFError{Code: ErrCodeMalformedPDF}
	ErrXRefError      = &PDFError{Code: ErrCodeXRefError}
	ErrObjectNotFound = &PDFError{Code: ErrCodeObjectNotFound}
	ErrStreamError    = &PDFError{Code: ErrCodeStreamError}
	ErrEncrypted      = &PDFError{Code: ErrCodeEncrypted}

	ErrNoRootIdentity = &PDFError{Code: ErrCodeNoRootIdentity}
	ErrInvalidInput   = &PDFError{Code: ErrCodeInvalidInput}

	ErrToolUnavailable = &PDFError{Code: ErrCodeToolUnavailable}
	ErrToolFailed      = &PDFError{Code: ErrCodeToolFailed}

	ErrIOError = &PDFError{Code: ErrCodeIOError}
)

// CodeOf returns the code of the first PDFError in err's chain, or "".
func CodeOf(err error) PDFErrorCode {
	var pdfErr *PDFError
	if errors.As(err, &pdfErr) {
		return pdfErr.Code
	}
	return ""
}

// IsLoadError reports whether err means a document could not be read.
func IsLoadError(err error) bool {
	switch CodeOf(err) {
	case ErrCodeInvalidPDF, ErrCodeMalformedPDF, ErrCodeXRefError, ErrCodeObjectNotFound,
		ErrCodeStreamError, ErrCodeEncrypted, ErrCodeIOError:
		return true
	}
	return false
}

// IsToolError reports whether the error came from a missing or failing
// external tool rather than from the documents themselves.
func IsToolError(err error) bool {
	return errors.Is(err, ErrToolUnavailable) || errors.Is(err, ErrToolFailed)
}
