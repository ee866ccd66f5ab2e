package apperrors

import (
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrInvalidAllocation ErrorType = "INVALID_ALLOCATION"
	ErrInvalidAmount     ErrorType = "INVALID_AMOUNT"
	ErrInvalidRequest    ErrorType = "INVALID_REQUEST"
	ErrOrderNotFound     ErrorType = "ORDER_NOT_FOUND"
	ErrInvalidState      ErrorType = "INVALID_STATE"
	ErrPaymentRequired   ErrorType = "PAYMENT_REQUIRED"
	ErrUpstream          ErrorType = "UPSTREAM_ERROR"
	ErrInternal          ErrorType = "INTERNAL_ERROR"
)

// AppError is the standard error struct for the application
type AppError struct {
	Type       ErrorType `json:"code"`
	Message    string    `json:"message"`
	Suggestion string    `json:"suggestion,omitempty"`
	HTTPStatus int       `json:"-"`
	Cause      error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(errType ErrorType, msg string, cause error) *AppError {
	return &AppError{
		Type:       errType,
		Message:    msg,
		Cause:      cause,
		HTTPStatus: mapTypeToStatus(errType),
		Suggestion: mapTypeToSuggestion(errType),
	}
}

func NewInvalidAllocation(msg string) *AppError {
	return New(ErrInvalidAllocation, msg, nil)
}

func NewInvalidAmount(msg string) *AppError {
	return New(ErrInvalidAmount, msg, nil)
}

func NewOrderNotFound(orderID string) *AppError {
	return New(ErrOrderNotFound, fmt.Sprintf("order %s not found", orderID), nil)
}

func NewInvalidState(msg string) *AppError {
	return New(ErrInvalidState, msg, nil)
}

func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return New(ErrInternal, err.Error(), err)
}

func mapTypeToStatus(t ErrorType) int {
	switch t {
	case ErrInvalidAllocation, ErrInvalidAmount, ErrInvalidRequest:
		return http.StatusBadRequest
	case ErrPaymentRequired:
		return http.StatusPaymentRequired
	case ErrOrderNotFound:
		return http.StatusNotFound
	case ErrInvalidState:
		return http.StatusConflict
	case ErrUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func mapTypeToSuggestion(t ErrorType) string {
	switch t {
	case ErrInvalidAllocation:
		return "Allocation percentages must sum to 100."
	case ErrInvalidAmount:
		return "Amount must be a positive number."
	case ErrInvalidState:
		return "Check the order status before executing."
	case ErrPaymentRequired:
		return "Provide an X-Payment header to unlock this feature."
	case ErrUpstream:
		return "Retry the request."
	default:
		return ""
	}
}
