package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

/**
 * Custom error types for the Lab Report Worker
 *
 * Only upstream failures (unreadable image, OCR engine, queue) become
 * errors. Ambiguous report layouts never do; they yield fewer records.
 */

// ErrorCode enum for structured error handling
type ErrorCode string

const (
	// Processing errors
	ErrorProcessingTimeout ErrorCode = "PROCESSING_TIMEOUT"
	ErrorOCRFailed         ErrorCode = "OCR_FAILED"
	ErrorUnsupportedFormat ErrorCode = "UNSUPPORTED_FORMAT"
	ErrorInvalidImage      ErrorCode = "INVALID_IMAGE"
	ErrorFileTooLarge      ErrorCode = "FILE_TOO_LARGE"

	// Queue errors
	ErrorQueueFailed ErrorCode = "QUEUE_FAILED"
	ErrorJobNotFound ErrorCode = "JOB_NOT_FOUND"
)

// ProcessingError represents a structured processing error
type ProcessingError struct {
	Code      ErrorCode
	Message   string
	JobID     string
	Timestamp time.Time
	Details   map[string]interface{}
	Cause     error
}

func (e *ProcessingError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ProcessingError) Unwrap() error {
	return e.Cause
}

// Factory functions for common errors

func NewProcessingTimeoutError(jobID string, duration time.Duration, cause error) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorProcessingTimeout,
		Message:   fmt.Sprintf("Processing timed out after %v", duration),
		JobID:     jobID,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"timeout_duration": duration.String(),
		},
		Cause: cause,
	}
}

func NewOCRFailedError(jobID string, engine string, cause error) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorOCRFailed,
		Message:   fmt.Sprintf("OCR failed using engine: %s", engine),
		JobID:     jobID,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"ocr_engine": engine,
		},
		Cause: cause,
	}
}

func NewUnsupportedFormatError(jobID string, mimeType string) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorUnsupportedFormat,
		Message:   "File must be an image",
		JobID:     jobID,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"mime_type": mimeType,
		},
	}
}

func NewInvalidImageError(jobID string, cause error) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorInvalidImage,
		Message:   "Image could not be decoded",
		JobID:     jobID,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

func NewFileTooLargeError(jobID string, size, limit int64) *ProcessingError {
	message := fmt.Sprintf("File size %d exceeds limit of %d bytes", size, limit)
	if size < 0 {
		// size unknown, e.g. the request body was cut off while reading
		message = fmt.Sprintf("File exceeds limit of %d bytes", limit)
	}

	return &ProcessingError{
		Code:      ErrorFileTooLarge,
		Message:   message,
		JobID:     jobID,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"file_size":  size,
			"size_limit": limit,
		},
	}
}

func NewQueueFailedError(jobID string, cause error) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorQueueFailed,
		Message:   "Failed to enqueue lab report job",
		JobID:     jobID,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

func NewJobNotFoundError(jobID string) *ProcessingError {
	return &ProcessingError{
		Code:      ErrorJobNotFound,
		Message:   fmt.Sprintf("Job %s not found", jobID),
		JobID:     jobID,
		Timestamp: time.Now(),
	}
}

// AsProcessingError finds the first ProcessingError in err's chain
func AsProcessingError(err error) (*ProcessingError, bool) {
	var pe *ProcessingError
	if stderrors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// CodeOf returns the code of the first ProcessingError in err's chain,
// or an empty code when there is none
func CodeOf(err error) ErrorCode {
	if pe, ok := AsProcessingError(err); ok {
		return pe.Code
	}
	return ""
}

// ToMap converts error to map for the job status store
func (e *ProcessingError) ToMap() map[string]interface{} {
	result := map[string]interface{}{
		"error_code": string(e.Code),
		"message":    e.Message,
		"timestamp":  e.Timestamp,
	}

	for k, v := range e.Details {
		result[k] = v
	}

	if e.Cause != nil {
		result["cause"] = e.Cause.Error()
	}

	return result
}
