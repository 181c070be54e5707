// internal/common/errors/errors.go

// Package errors provides standardized error codes for the voice agent worker.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeKnowledgeLoadFailed ErrorCode = "KNOWLEDGE_LOAD_FAILED"

	ErrCodeSessionStartFailed ErrorCode = "SESSION_START_FAILED"
	ErrCodeModelConnectFailed ErrorCode = "MODEL_CONNECT_FAILED"
	ErrCodeRoomConnectFailed  ErrorCode = "ROOM_CONNECT_FAILED"

	ErrCodeToolNotFound        ErrorCode = "TOOL_NOT_FOUND"
	ErrCodeToolExecutionFailed ErrorCode = "TOOL_EXECUTION_FAILED"

	ErrCodeRoomAlreadyClaimed ErrorCode = "ROOM_ALREADY_CLAIMED"
	ErrCodeCapacityExceeded   ErrorCode = "CAPACITY_EXCEEDED"
	ErrCodeWebhookRejected    ErrorCode = "WEBHOOK_REJECTED"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"

	ErrCodeConfigInvalid ErrorCode = "CONFIG_INVALID"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error { return e.cause }

func newError(code ErrorCode, message, details string, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// ==========================
// 2. Error Constructors
// ==========================

func NewKnowledgeLoadFailedError(path string, err error) *StandardError {
	return newError(ErrCodeKnowledgeLoadFailed, "Knowledge base could not be loaded",
		fmt.Sprintf("path: %s, error: %s", path, errText(err)), err)
}

func NewSessionStartFailedError(err error) *StandardError {
	return newError(ErrCodeSessionStartFailed, "Voice session failed to start", errText(err), err)
}

func NewModelConnectFailedError(model string, err error) *StandardError {
	return newError(ErrCodeModelConnectFailed, "Realtime model connection failed",
		fmt.Sprintf("model: %s, error: %s", model, errText(err)), err)
}

func NewRoomConnectFailedError(room string, err error) *StandardError {
	return newError(ErrCodeRoomConnectFailed, "Room connection failed",
		fmt.Sprintf("room: %s, error: %s", room, errText(err)), err)
}

func NewToolNotFoundError(name string) *StandardError {
	return newError(ErrCodeToolNotFound, "Tool is not registered", fmt.Sprintf("tool: %s", name), nil)
}

func NewToolExecutionFailedError(name string, err error) *StandardError {
	return newError(ErrCodeToolExecutionFailed, "Tool execution failed",
		fmt.Sprintf("tool: %s, error: %s", name, errText(err)), err)
}

func NewRoomAlreadyClaimedError(room string) *StandardError {
	return newError(ErrCodeRoomAlreadyClaimed, "Room already has an agent session", fmt.Sprintf("room: %s", room), nil)
}

func NewCapacityExceededError(limit int) *StandardError {
	return newError(ErrCodeCapacityExceeded, "Worker is at session capacity", fmt.Sprintf("limit: %d", limit), nil)
}

func NewWebhookRejectedError(err error) *StandardError {
	return newError(ErrCodeWebhookRejected, "Webhook could not be verified", errText(err), err)
}

func NewNotificationSendFailedError(notificationType string, err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, "Notification delivery failed",
		fmt.Sprintf("type: %s, error: %s", notificationType, errText(err)), err)
}

func NewConfigInvalidError(err error) *StandardError {
	return newError(ErrCodeConfigInvalid, "Configuration is invalid", errText(err), err)
}

// ==========================
// 3. Utility Functions
// ==========================

// Is and As forward to the standard library so callers importing this
// package under the name errors keep them.
func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target interface{}) bool { return stderrors.As(err, target) }

// CodeOf returns the ErrorCode carried anywhere in err's chain, or
// ErrCodeInternal.
func CodeOf(err error) ErrorCode {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr.Code
	}
	return ErrCodeInternal
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "KNOWLEDGE"):
		return "KNOWLEDGE"
	case strings.Contains(codeStr, "SESSION") || strings.Contains(codeStr, "MODEL"):
		return "SESSION"
	case strings.Contains(codeStr, "ROOM") || strings.Contains(codeStr, "WEBHOOK") || strings.Contains(codeStr, "CAPACITY"):
		return "DISPATCH"
	case strings.Contains(codeStr, "TOOL"):
		return "TOOL"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "CONFIG"):
		return "CONFIG"
	default:
		return "OTHER"
	}
}
