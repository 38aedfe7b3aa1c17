package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard error codes
const (
	CodeValidationError = "VALIDATION_ERROR"
	CodeNotFound        = "RESOURCE_NOT_FOUND"
	CodeConflict        = "CONFLICT"
	CodeInternalError   = "INTERNAL_ERROR"
	CodeBadRequest      = "BAD_REQUEST"

	// Fulfillment domain codes
	CodeNothingToReassign = "NOTHING_TO_REASSIGN"
	CodeAlreadyProcessed  = "ALREADY_PROCESSED"
	CodeNothingToPack     = "NOTHING_TO_PACK"
	CodeBackOrderNotFound = "BACKORDER_NOT_FOUND"
	CodePickListNotFound  = "PICKLIST_NOT_FOUND"
	CodeInsufficientStock = "INSUFFICIENT_STOCK"
)

// AppError represents an application error with HTTP status and error code
type AppError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	HTTPStatus int               `json:"-"`
	Err        error             `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a single detail to the error
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// Wrap wraps an existing error
func (e *AppError) Wrap(err error) *AppError {
	e.Err = err
	return e
}

// NewAppError creates a new AppError
func NewAppError(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// ErrValidation creates a validation error
func ErrValidation(message string) *AppError {
	return NewAppError(CodeValidationError, message, http.StatusBadRequest)
}

// ErrNotFound creates a not found error
func ErrNotFound(resource string) *AppError {
	return NewAppError(CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

// ErrPickListNotFound creates a not found error for a pick list id
func ErrPickListNotFound(listID string) *AppError {
	return NewAppError(CodePickListNotFound, "pick list not found", http.StatusNotFound).
		WithDetail("listId", listID)
}

// ErrBackOrderNotFound creates a not found error for a back order id
func ErrBackOrderNotFound(backOrderID string) *AppError {
	return NewAppError(CodeBackOrderNotFound, "back order not found", http.StatusNotFound).
		WithDetail("backOrderId", backOrderID)
}

// ErrNothingToReassign signals a reassignment request against a list with no
// open work
func ErrNothingToReassign(listID string) *AppError {
	return NewAppError(CodeNothingToReassign, "pick list has no open work to reassign", http.StatusUnprocessableEntity).
		WithDetail("listId", listID)
}

// ErrNothingToPack signals a packing request against an order with no
// packable lines
func ErrNothingToPack(orderID string) *AppError {
	return NewAppError(CodeNothingToPack, "order has nothing left to pack", http.StatusUnprocessableEntity).
		WithDetail("orderId", orderID)
}

// ErrAlreadyProcessed signals an operation against a back order that already
// left the pending state
func ErrAlreadyProcessed(backOrderID string) *AppError {
	return NewAppError(CodeAlreadyProcessed, "back order has already been processed", http.StatusConflict).
		WithDetail("backOrderId", backOrderID)
}

// ErrInsufficientStock reports an expected resource conflict: available
// stock does not cover the outstanding quantity
func ErrInsufficientStock(sku string) *AppError {
	return NewAppError(CodeInsufficientStock, "insufficient stock", http.StatusConflict).
		WithDetail("sku", sku)
}

// ErrConflict creates a conflict error
func ErrConflict(message string) *AppError {
	return NewAppError(CodeConflict, message, http.StatusConflict)
}

// ErrInternal creates an internal error
func ErrInternal(message string) *AppError {
	if message == "" {
		message = "an internal error occurred"
	}
	return NewAppError(CodeInternalError, message, http.StatusInternalServerError)
}

// ErrBadRequest creates a bad request error
func ErrBadRequest(message string) *AppError {
	return NewAppError(CodeBadRequest, message, http.StatusBadRequest)
}

// IsCode reports whether err is an AppError with the given code
func IsCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// AsAppError converts an error to an AppError if possible
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// FromError converts a standard error to an AppError
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	return ErrInternal("").Wrap(err)
}
