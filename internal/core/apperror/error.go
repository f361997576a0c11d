// Package apperror provides structured error handling following RFC 7807 Problem Details.
// All business errors must use AppError so callers can branch on Code.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes following domain-driven design
const (
	// Infrastructure errors (5xx)
	CodeInternal = "INTERNAL_ERROR"
	CodeDatabase = "DATABASE_ERROR"
	CodeTimeout  = "TIMEOUT_ERROR"

	// Validation errors (400)
	CodeValidation         = "VALIDATION_ERROR"
	CodeInvalidInput       = "INVALID_INPUT"
	CodeInconsistentTenant = "INCONSISTENT_TENANT"

	// Business rule violations (422)
	CodeBusinessRule           = "BUSINESS_RULE_VIOLATION"
	CodeNoApplicableValue      = "NO_APPLICABLE_VALUE"
	CodeDischargeNotActive     = "DISCHARGE_NOT_ACTIVE"
	CodeSettlementPaid         = "SETTLEMENT_ALREADY_PAID"
	CodeSettlementInconsistent = "SETTLEMENT_INCONSISTENT"
	CodeInvalidTransition      = "INVALID_TRANSITION"
	CodeCPINotFound            = "CPI_NOT_FOUND"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"

	// Conflict (409)
	CodeConflict            = "CONFLICT"
	CodeDuplicate           = "DUPLICATE_ENTRY"
	CodeDuplicateRecord     = "DUPLICATE_RECORD"
	CodeDuplicateSettlement = "DUPLICATE_SETTLEMENT"
)

// AppError is the standard error type for the platform.
// It implements error interface and provides structured details for callers.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (field errors, periods, ids)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions for common errors ---

// NewValidation creates a validation error (400)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewBusinessRule creates a business rule violation error (422)
func NewBusinessRule(code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// NewInconsistentTenant is returned when related records belong to different tenants.
func NewInconsistentTenant(entity string, expected, actual string) *AppError {
	return &AppError{
		Code:       CodeInconsistentTenant,
		Message:    fmt.Sprintf("%s belongs to a different tenant", entity),
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"entity": entity, "expected_tenant": expected, "actual_tenant": actual},
	}
}

// NewNoApplicableValue is returned when an active recurring discount has no value
// history entry for the requested month.
func NewNoApplicableValue(dischargeID any, period string) *AppError {
	return &AppError{
		Code:       CodeNoApplicableValue,
		Message:    "No value history entry covers the period",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"discharge_id": dischargeID, "period": period},
	}
}

// NewDuplicateSettlement is returned when a settlement already exists for the period.
func NewDuplicateSettlement(mandateID any, period string) *AppError {
	return &AppError{
		Code:       CodeDuplicateSettlement,
		Message:    fmt.Sprintf("Settlement for period %s already exists", period),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"mandate_id": mandateID, "period": period},
	}
}

// NewDuplicateRecord is returned when an applied monthly record conflicts with a new value.
func NewDuplicateRecord(dischargeID any, period string) *AppError {
	return &AppError{
		Code:       CodeDuplicateRecord,
		Message:    "Monthly record already applied with a different value",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"discharge_id": dischargeID, "period": period},
	}
}

// NewConcurrentModification creates an optimistic locking error
func NewConcurrentModification(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeConcurrentModification,
		Message:    "Record was modified by another user. Please refresh and try again.",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewDatabase wraps a storage failure.
func NewDatabase(err error) *AppError {
	return &AppError{
		Code:       CodeDatabase,
		Message:    "Database error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewConflict creates a conflict error (409)
func NewConflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// NewDuplicate creates a duplicate entry error (409)
func NewDuplicate(entity, field, value string) *AppError {
	return &AppError{
		Code:       CodeDuplicate,
		Message:    fmt.Sprintf("%s with this %s already exists", entity, field),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "field": field, "value": value},
	}
}

// --- Helper functions ---

// IsAppError checks if error is AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetHTTPStatus returns appropriate HTTP status for any error
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// HasCode reports whether err carries an AppError with the given code.
func HasCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool {
	return HasCode(err, CodeNotFound)
}

// IsDuplicateSettlement checks if error is CodeDuplicateSettlement
func IsDuplicateSettlement(err error) bool {
	return HasCode(err, CodeDuplicateSettlement)
}
