// internal/common/errors/handler.go
package errors

import (
	"time"
)

// ErrorHandler logs and counts session failures without propagating them,
// so one failed call never takes the worker down.
type ErrorHandler struct {
	logger  Logger
	counter FailureCounter
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

// FailureCounter records a failure by task type and code.
type FailureCounter interface {
	RecordFailure(taskType string, code ErrorCode)
}

func NewErrorHandler(logger Logger, counter FailureCounter) *ErrorHandler {
	return &ErrorHandler{logger: logger, counter: counter}
}

// HandleSessionError normalises err, logs it and counts it. It returns the
// normalised error for callers that want to inspect the code.
func (h *ErrorHandler) HandleSessionError(taskType, room string, err error) *StandardError {
	if err == nil {
		return nil
	}
	stdErr := h.normalizeError(err)

	h.logger.Error("Session failed", map[string]interface{}{
		"taskType":      taskType,
		"room":          room,
		"errorCode":     string(stdErr.Code),
		"message":       stdErr.Message,
		"details":       stdErr.Details,
		"errorCategory": GetErrorCategory(stdErr.Code),
	})
	if h.counter != nil {
		h.counter.RecordFailure(taskType, stdErr.Code)
	}
	return stdErr
}

// normalizeError ensures we always have a StandardError
func (h *ErrorHandler) normalizeError(err error) *StandardError {
	var stdErr *StandardError
	if As(err, &stdErr) {
		return stdErr
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}
