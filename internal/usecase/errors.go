package usecase

import (
	"errors"
	"fmt"
	"net/http"
)

// Machine-readable error kind, carried next to the HTTP status so clients
// can branch without parsing messages.
type ErrorCode string

const (
	CodeNotFound              ErrorCode = "NOT_FOUND"
	CodeBadRequest            ErrorCode = "BAD_REQUEST"
	CodeInsufficientInventory ErrorCode = "INSUFFICIENT_INVENTORY"
	CodeUnauthorized          ErrorCode = "UNAUTHORIZED"
	CodeForbidden             ErrorCode = "FORBIDDEN"
	CodeExpiredToken          ErrorCode = "EXPIRED_TOKEN"
	CodePaymentError          ErrorCode = "PAYMENT_ERROR"
	CodeOperationInProgress   ErrorCode = "OPERATION_IN_PROGRESS"
	CodeInternal              ErrorCode = "INTERNAL"
)

type HTTPError struct {
	Status  int
	Code    ErrorCode
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

func NewNotFound(message string) error {
	return &HTTPError{Status: http.StatusNotFound, Code: CodeNotFound, Message: message}
}

func NewBadRequest(message string) error {
	return &HTTPError{Status: http.StatusBadRequest, Code: CodeBadRequest, Message: message}
}

// 409: the stock race was lost; retriable with corrected input.
func NewInsufficientInventory(message string) error {
	return &HTTPError{Status: http.StatusConflict, Code: CodeInsufficientInventory, Message: message}
}

func NewUnauthorized(message string) error {
	return &HTTPError{Status: http.StatusUnauthorized, Code: CodeUnauthorized, Message: message}
}

func NewForbidden(message string) error {
	return &HTTPError{Status: http.StatusForbidden, Code: CodeForbidden, Message: message}
}

// 401 with its own code: the anon/login token value was right but stale.
func NewExpiredToken(message string) error {
	return &HTTPError{Status: http.StatusUnauthorized, Code: CodeExpiredToken, Message: message}
}

func NewPaymentError(message string) error {
	return &HTTPError{Status: http.StatusBadGateway, Code: CodePaymentError, Message: message}
}

// 409: the idempotency key is locked by a concurrent call; retry shortly.
func NewOperationInProgress(message string) error {
	return &HTTPError{Status: http.StatusConflict, Code: CodeOperationInProgress, Message: message}
}

func NewInternal(message string) error {
	return &HTTPError{Status: http.StatusInternalServerError, Code: CodeInternal, Message: message}
}
