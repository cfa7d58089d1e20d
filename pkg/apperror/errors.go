package apperror

import (
	"fmt"
	"net/http"
)

// Kind classifies an error by who caused it and whether its message is safe
// to show to the caller.
type Kind string

const (
	KindValidation   Kind = "VALIDATION"   // malformed input, caller's fault
	KindPrecondition Kind = "PRECONDITION" // empty cart, no seller profile, inactive product
	KindContention   Kind = "CONTENTION"   // contended stock or wallet balance
	KindDependency   Kind = "DEPENDENCY"   // embedding or storage failure
	KindTransaction  Kind = "TRANSACTION"  // commit/abort failure or any internal error
	KindAuth         Kind = "AUTH"
	KindRateLimit    Kind = "RATE_LIMIT"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Kind       Kind   `json:"-"`
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // never exposed to the client
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(kind Kind, code string, message string, httpStatus int) *AppError {
	return &AppError{
		Kind:       kind,
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(kind Kind, code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Kind:       kind,
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Validation (VAL) ----

// Validation returns a generic 400 with a caller-safe message.
func Validation(message string) *AppError {
	return New(KindValidation, "VAL_001", message, http.StatusBadRequest)
}

func ErrInvalidMedia(message string) *AppError {
	return New(KindValidation, "VAL_002", message, http.StatusBadRequest)
}

func ErrNotFound(entity string) *AppError {
	return New(KindValidation, "VAL_404", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ---- Preconditions (PRE) ----

func ErrEmptyCart() *AppError {
	return New(KindPrecondition, "PRE_001", "Cart is empty", http.StatusBadRequest)
}

func ErrProductInactive(productName string) *AppError {
	return New(KindPrecondition, "PRE_002",
		fmt.Sprintf("Product %q is no longer available", productName), http.StatusConflict)
}

func ErrSellerNotOnboarded() *AppError {
	return New(KindPrecondition, "PRE_003", "Seller profile not found", http.StatusForbidden)
}

func ErrInvalidTransition(from, to string) *AppError {
	return New(KindPrecondition, "PRE_004",
		fmt.Sprintf("Cannot move order from %s to %s", from, to), http.StatusConflict)
}

// ---- Contention (CON) ----

func ErrInsufficientStock(productName string, requested, available int) *AppError {
	return New(KindContention, "CON_001",
		fmt.Sprintf("Insufficient stock for %q: requested %d, available %d", productName, requested, available),
		http.StatusConflict)
}

func ErrInsufficientFunds() *AppError {
	return New(KindContention, "CON_002", "Insufficient balance in seller wallet", http.StatusPaymentRequired)
}

func ErrConcurrentUpdate(entity string) *AppError {
	return New(KindContention, "CON_003",
		fmt.Sprintf("%s was modified concurrently, retry", entity), http.StatusConflict)
}

func ErrIdempotencyInProgress() *AppError {
	return New(KindContention, "CON_004",
		"A request with this idempotency key is still in progress, retry later", http.StatusConflict)
}

// ---- Dependencies (DEP) ----

func ErrEmbeddingFailed(err error) *AppError {
	return Wrap(KindDependency, "DEP_001", "Content indexing service unavailable", http.StatusBadGateway, err)
}

func ErrMediaStorageFailed(err error) *AppError {
	return Wrap(KindDependency, "DEP_002", "Media storage unavailable", http.StatusBadGateway, err)
}

// ---- Transaction / internal (TXN) ----

// ErrTransaction reports a commit or abort failure. The wrapped detail is
// logged, never returned to the caller.
func ErrTransaction(err error) *AppError {
	return Wrap(KindTransaction, "TXN_001", "Transaction failed", http.StatusInternalServerError, err)
}

// InternalError wraps any other internal failure.
func InternalError(err error) *AppError {
	return Wrap(KindTransaction, "TXN_000", "Internal server error", http.StatusInternalServerError, err)
}

// ---- Authorization (AUTH) ----

func ErrUnauthorized() *AppError {
	return New(KindAuth, "AUTH_001", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrForbidden(capability string) *AppError {
	return New(KindAuth, "AUTH_002", fmt.Sprintf("Missing capability %s", capability), http.StatusForbidden)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New(KindRateLimit, "RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}
