package domain

import (
	"errors"
	"fmt"
)

// Error types for domain-specific errors
type ErrorType string

const (
	ErrorTypeUnsupportedFormat ErrorType = "unsupported_format"
	ErrorTypeNoTextLayer       ErrorType = "no_text_layer"
	ErrorTypeCorruptDocument   ErrorType = "corrupt_document"
	ErrorTypeRasterization     ErrorType = "rasterization"
	ErrorTypeOCRTimeout        ErrorType = "ocr_timeout"
	ErrorTypeOCRJobFailure     ErrorType = "ocr_job_failure"
	ErrorTypeOCRInit           ErrorType = "ocr_init"
	ErrorTypeValidation        ErrorType = "validation"
	ErrorTypeConfig            ErrorType = "config"
	ErrorTypeIO                ErrorType = "io"
)

// DomainError represents a domain-specific error with context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a DomainError of the same type, so the
// sentinels below match any error of their kind.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

// Sentinels for errors.Is checks.
var (
	ErrUnsupportedFormat = &DomainError{Type: ErrorTypeUnsupportedFormat, Message: "unsupported format"}
	ErrNoTextLayer       = &DomainError{Type: ErrorTypeNoTextLayer, Message: "no text layer"}
	ErrCorruptDocument   = &DomainError{Type: ErrorTypeCorruptDocument, Message: "corrupt document"}
	ErrRasterization     = &DomainError{Type: ErrorTypeRasterization, Message: "rasterization failed"}
	ErrOCRTimeout        = &DomainError{Type: ErrorTypeOCRTimeout, Message: "ocr timed out"}
	ErrOCRJobFailure     = &DomainError{Type: ErrorTypeOCRJobFailure, Message: "ocr job failed"}
	ErrOCRInit           = &DomainError{Type: ErrorTypeOCRInit, Message: "ocr engine unavailable"}
)

// NewError creates a new domain error
func NewError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// KindOf returns the type of the outermost DomainError in err's chain, or ""
// when there is none.
func KindOf(err error) ErrorType {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Type
	}
	return ""
}

// Common error constructors
func UnsupportedFormatError(message string, err error) *DomainError {
	return NewError(ErrorTypeUnsupportedFormat, message, err)
}

func NoTextLayerError(message string, err error) *DomainError {
	return NewError(ErrorTypeNoTextLayer, message, err)
}

func CorruptDocumentError(message string, err error) *DomainError {
	return NewError(ErrorTypeCorruptDocument, message, err)
}

func RasterizationError(message string, err error) *DomainError {
	return NewError(ErrorTypeRasterization, message, err)
}

func OCRTimeoutError(message string, err error) *DomainError {
	return NewError(ErrorTypeOCRTimeout, message, err)
}

func OCRJobFailureError(message string, err error) *DomainError {
	return NewError(ErrorTypeOCRJobFailure, message, err)
}

func OCRInitError(message string, err error) *DomainError {
	return NewError(ErrorTypeOCRInit, message, err)
}

func ValidationError(message string, err error) *DomainError {
	return NewError(ErrorTypeValidation, message, err)
}

func ConfigError(message string, err error) *DomainError {
	return NewError(ErrorTypeConfig, message, err)
}

func IOError(message string, err error) *DomainError {
	return NewError(ErrorTypeIO, message, err)
}
