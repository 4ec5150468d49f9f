// Package apierror provides standardized error response structures for the API.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

// Machine-readable codes carried next to the human-readable detail.
const (
	CodeNotFound               = "not_found"
	CodeProductNotFound        = "product_not_found"
	CodeDuplicateRecord        = "duplicate_record"
	CodeInvalidQuantity        = "invalid_quantity"
	CodeInsufficientStock      = "insufficient_stock"
	CodeExceedsCentralStock    = "exceeds_central_stock"
	CodeNoInventoryForBranch   = "no_inventory_for_branch"
	CodeInvalidStateTransition = "invalid_state_transition"
	CodeHasDependentSales      = "has_dependent_sales"
	CodeArithmetic             = "arithmetic_inconsistency"
	CodeValidation             = "validation_failed"
	CodeBadRequest             = "bad_request"
	CodeUnauthorized           = "unauthorized"
	CodeForbidden              = "forbidden"
	CodeRateLimited            = "rate_limited"
	CodeBusy                   = "busy"
	CodeInternal               = "internal"
)

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
	Code   string `json:"code,omitempty"`
	// ID names the offending product, branch, record or sale when known.
	ID string `json:"id,omitempty"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

func WithCode(code, msg string) *APIError {
	return &APIError{Detail: msg, Code: code}
}

// Validation wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "validation failed", Code: CodeValidation, Fields: fields}
}
