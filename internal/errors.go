package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeInvalidState ErrorType = "INVALID_STATE"
	ErrorTypeInternal     ErrorType = "INTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidStatus    ErrorCode = "INVALID_STATUS"
	ErrCodeInvalidAmount    ErrorCode = "INVALID_AMOUNT"
	ErrCodeInvalidFile      ErrorCode = "INVALID_FILE"

	ErrCodeAccountNotFound     ErrorCode = "ACCOUNT_NOT_FOUND"
	ErrCodeRoleNotFound        ErrorCode = "ROLE_NOT_FOUND"
	ErrCodeShipmentNotFound    ErrorCode = "SHIPMENT_NOT_FOUND"
	ErrCodePickupNotFound      ErrorCode = "PICKUP_NOT_FOUND"
	ErrCodeInvoiceNotFound     ErrorCode = "INVOICE_NOT_FOUND"
	ErrCodeTransactionNotFound ErrorCode = "TRANSACTION_NOT_FOUND"
	ErrCodeDeclarationNotFound ErrorCode = "DECLARATION_NOT_FOUND"
	ErrCodeAuditEntryNotFound  ErrorCode = "AUDIT_ENTRY_NOT_FOUND"

	ErrCodeDuplicateEmail             ErrorCode = "DUPLICATE_EMAIL"
	ErrCodeDuplicatePhone             ErrorCode = "DUPLICATE_PHONE"
	ErrCodeDuplicateRole              ErrorCode = "DUPLICATE_ROLE"
	ErrCodeDuplicateBillOfLading      ErrorCode = "DUPLICATE_BILL_OF_LADING"
	ErrCodeDuplicateDeclarationNumber ErrorCode = "DUPLICATE_DECLARATION_NUMBER"
	ErrCodeDuplicateReference         ErrorCode = "DUPLICATE_EXTERNAL_REFERENCE"
	ErrCodePickupAlreadyExists        ErrorCode = "PICKUP_ALREADY_EXISTS"
	ErrCodeInvoiceAlreadyExists       ErrorCode = "INVOICE_ALREADY_EXISTS"
	ErrCodeDeclarationAlreadyExists   ErrorCode = "DECLARATION_ALREADY_EXISTS"
	ErrCodeShipmentProtected          ErrorCode = "SHIPMENT_PROTECTED"
	ErrCodeAccountProtected           ErrorCode = "ACCOUNT_PROTECTED"

	ErrCodeInvalidInvoiceStatus     ErrorCode = "INVALID_INVOICE_STATUS"
	ErrCodeInvalidDeclarationStatus ErrorCode = "INVALID_DECLARATION_STATUS"
	ErrCodeInvalidTransactionStatus ErrorCode = "INVALID_TRANSACTION_STATUS"

	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeUserInactive       ErrorCode = "USER_INACTIVE"
	ErrCodeInvalidToken       ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired       ErrorCode = "TOKEN_EXPIRED"
	ErrCodeInvalidCode        ErrorCode = "INVALID_CODE"
	ErrCodeExpiredCode        ErrorCode = "EXPIRED_CODE"
	ErrCodePasswordMismatch   ErrorCode = "PASSWORD_MISMATCH"
	ErrCodeForbidden          ErrorCode = "FORBIDDEN"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {

			return validationErrors.Errors[0].Message
		}
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) GetDetailedMessage() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok {
			if len(validationErrors.Errors) == 1 {
				return validationErrors.Errors[0].Message
			} else if len(validationErrors.Errors) > 1 {
				messages := make([]string, len(validationErrors.Errors))
				for i, err := range validationErrors.Errors {
					messages[i] = err.Message
				}
				return strings.Join(messages, "; ")
			}
		}
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches on type and code so copies produced by WithCause still compare
// equal to the package-level sentinels.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

// WithCause returns a copy of e carrying cause. Sentinels are never mutated.
func (e *AppError) WithCause(cause error) *AppError {
	cp := *e
	cp.Cause = cause
	return &cp
}

// WithDetails returns a copy of e carrying details.
func (e *AppError) WithDetails(details interface{}) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeValidationFailed,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
		Details: ValidationErrors{
			Errors: []ValidationError{
				{Field: field, Message: message, Code: string(code)},
			},
		},
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func NewInvalidStateError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeInvalidState,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

var (
	ErrAccountNotFound     = NewNotFoundError("Account not found", ErrCodeAccountNotFound)
	ErrRoleNotFound        = NewNotFoundError("Role not found", ErrCodeRoleNotFound)
	ErrShipmentNotFound    = NewNotFoundError("Shipment not found", ErrCodeShipmentNotFound)
	ErrPickupNotFound      = NewNotFoundError("Pickup record not found", ErrCodePickupNotFound)
	ErrInvoiceNotFound     = NewNotFoundError("Invoice not found", ErrCodeInvoiceNotFound)
	ErrTransactionNotFound = NewNotFoundError("Transaction not found", ErrCodeTransactionNotFound)
	ErrDeclarationNotFound = NewNotFoundError("Customs declaration not found", ErrCodeDeclarationNotFound)
	ErrAuditEntryNotFound  = NewNotFoundError("Audit entry not found", ErrCodeAuditEntryNotFound)

	ErrDuplicateEmail             = NewConflictError("An account with this email already exists", ErrCodeDuplicateEmail)
	ErrDuplicatePhone             = NewConflictError("An account with this phone number already exists", ErrCodeDuplicatePhone)
	ErrDuplicateRole              = NewConflictError("A role with this name already exists", ErrCodeDuplicateRole)
	ErrDuplicateBillOfLading      = NewConflictError("A shipment with this bill of lading already exists", ErrCodeDuplicateBillOfLading)
	ErrDuplicateDeclarationNumber = NewConflictError("A declaration with this number already exists", ErrCodeDuplicateDeclarationNumber)
	ErrDuplicateReference         = NewConflictError("A transaction with this external reference already exists", ErrCodeDuplicateReference)
	ErrPickupAlreadyExists        = NewConflictError("This shipment has already been picked up", ErrCodePickupAlreadyExists)
	ErrInvoiceAlreadyExists       = NewConflictError("This shipment already has an invoice", ErrCodeInvoiceAlreadyExists)
	ErrDeclarationAlreadyExists   = NewConflictError("This shipment already has a customs declaration", ErrCodeDeclarationAlreadyExists)
	ErrShipmentProtected          = NewConflictError("Shipment has payment transactions and cannot be deleted", ErrCodeShipmentProtected)
	ErrAccountProtected           = NewConflictError("Account owns shipments, validated pickups or handles declarations and cannot be deleted", ErrCodeAccountProtected)

	ErrInvalidInvoiceStatus     = NewInvalidStateError("invalid invoice status for this operation", ErrCodeInvalidInvoiceStatus)
	ErrInvalidDeclarationStatus = NewInvalidStateError("invalid declaration status for this operation", ErrCodeInvalidDeclarationStatus)
	ErrInvalidTransactionStatus = NewInvalidStateError("invalid transaction status change", ErrCodeInvalidTransactionStatus)

	ErrInvalidCredentials = NewUnauthorizedError("Invalid email or password", ErrCodeInvalidCredentials)
	ErrUserInactive       = NewForbiddenError("User account is inactive", ErrCodeUserInactive)
	ErrInvalidToken       = NewUnauthorizedError("Invalid token", ErrCodeInvalidToken)
	ErrTokenExpired       = NewUnauthorizedError("Token has expired", ErrCodeTokenExpired)
	ErrInvalidCode        = NewValidationError("Invalid reset code", ErrCodeInvalidCode)
	ErrExpiredCode        = NewValidationError("Reset code has expired", ErrCodeExpiredCode)
	ErrPasswordMismatch   = NewValidationFieldError("password_confirm", "passwords do not match", ErrCodePasswordMismatch)
	ErrForbidden          = NewForbiddenError("You do not have permission to perform this action", ErrCodeForbidden)
)

func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
