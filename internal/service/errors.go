package service

import (
	"errors"
	"fmt"
	"strings"

	"subtrans/pkg/log"
)

type ErrorType int

const (
	ErrConfig ErrorType = iota
	ErrFileNotFound
	ErrFileRead
	ErrFileWrite
	ErrParse
	ErrLocked
	ErrBatchTranslation
	ErrUnknown
)

// TransError is the error type surfaced by the translation service.
// Transient request failures never reach callers directly, they are
// retried and, once exhausted, wrapped as ErrBatchTranslation.
type TransError struct {
	Type    ErrorType
	Message string
	Context map[string]any
	Cause   error
}

func NewError(errorType ErrorType, message string) *TransError {
	return &TransError{
		Type:    errorType,
		Message: message,
		Context: make(map[string]any),
	}
}

func NewErrorWithCause(errorType ErrorType, message string, cause error) *TransError {
	return &TransError{
		Type:    errorType,
		Message: message,
		Context: make(map[string]any),
		Cause:   cause,
	}
}

// NewBatchError reports a batch whose translation failed even after
// retries. The checkpoint written by earlier batches stays on disk,
// so the same invocation can be re-run to pick up where it stopped.
func NewBatchError(batchIndex int, rangeLabel string, attempts int, cause error) *TransError {
	return NewErrorWithCause(
		ErrBatchTranslation,
		fmt.Sprintf("batch %d (lines %s) failed after %d attempts", batchIndex+1, rangeLabel, attempts),
		cause,
	).
		WithContext("batch", batchIndex).
		WithContext("attempts", attempts)
}

func (e *TransError) Error() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s] %s", e.Type.String(), e.Message))

	if len(e.Context) > 0 {
		var ctxParts []string
		for k, v := range e.Context {
			ctxParts = append(ctxParts, fmt.Sprintf("%s=%v", k, v))
		}
		parts = append(parts, fmt.Sprintf("context: %s", strings.Join(ctxParts, ", ")))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause: %v", e.Cause))
	}

	return strings.Join(parts, " | ")
}

func (e *TransError) Unwrap() error {
	return e.Cause
}

func (e *TransError) WithContext(key string, value any) *TransError {
	e.Context[key] = value
	return e
}

func (t ErrorType) String() string {
	switch t {
	case ErrConfig:
		return "Config"
	case ErrFileNotFound:
		return "FileNotFound"
	case ErrFileRead:
		return "FileRead"
	case ErrFileWrite:
		return "FileWrite"
	case ErrParse:
		return "Parse"
	case ErrLocked:
		return "Locked"
	case ErrBatchTranslation:
		return "BatchTranslation"
	case ErrUnknown:
		return "Unknown"
	default:
		return "Unknown"
	}
}

type ErrorHandler interface {
	Handle(err error) bool
	GetAdvice(err *TransError) string
}

type DefaultErrorHandler struct{}

func NewDefaultErrorHandler() ErrorHandler {
	return &DefaultErrorHandler{}
}

func (h *DefaultErrorHandler) Handle(err error) bool {
	var transErr *TransError
	if !errors.As(err, &transErr) {
		log.Error("Unknown Error: %v", err)
		return false
	}

	advice := h.GetAdvice(transErr)
	log.Error("Error Detail: %v\n advice: %s", err, advice)

	return true
}

// GetAdvice returns error handling advice
func (h *DefaultErrorHandler) GetAdvice(err *TransError) string {
	switch err.Type {
	case ErrConfig:
		return "Please check command flags and environment variables, a target language and a positive batch size are required"
	case ErrFileNotFound:
		return "Please check that the input path is correct and ensure the file exists with read permissions"
	case ErrFileRead:
		return "Please check file permissions to ensure read access and verify the file is not corrupted"
	case ErrFileWrite:
		return "Please ensure the output directory exists and has write permissions"
	case ErrParse:
		return "Please verify the input file is valid SRT"
	case ErrLocked:
		return "Another run is already translating this file, wait for it to finish or remove the stale lock file"
	case ErrBatchTranslation:
		return "The LLM request kept failing, check API key, base URL and service status; completed batches are checkpointed, so re-running resumes where it stopped"
	default:
		return "Please review detailed error information and check relevant configuration and files"
	}
}

func IsErrorType(err error, errorType ErrorType) bool {
	var transErr *TransError
	if errors.As(err, &transErr) {
		return transErr.Type == errorType
	}
	return false
}

func WrapError(err error, errorType ErrorType, message string) *TransError {
	return NewErrorWithCause(errorType, message, err)
}
