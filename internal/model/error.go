package model

import "errors"

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error         string            `json:"error"`
	Message       string            `json:"message"`
	Details       map[string]string `json:"details,omitempty"`
	CorrelationID string            `json:"correlationId,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON         = "INVALID_JSON"
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeInvalidUsername     = "INVALID_USERNAME"
	ErrCodeInvalidPoints       = "INVALID_POINTS"
	ErrCodeInvalidQuantity     = "INVALID_QUANTITY"
	ErrCodeInvalidPrice        = "INVALID_PRICE"
	ErrCodeEmptyCart           = "EMPTY_CART"
	ErrCodeCartLineNotFound    = "CART_LINE_NOT_FOUND"
	ErrCodeUserNotFound        = "USER_NOT_FOUND"
	ErrCodeDuplicateDiscount   = "DUPLICATE_DISCOUNT"
	ErrCodeDiscountNotFound    = "DISCOUNT_NOT_FOUND"
	ErrCodeEmptyScan           = "EMPTY_SCAN"
	ErrCodeSelfReferral        = "SELF_REFERRAL"
	ErrCodeReferralRejected    = "REFERRAL_REJECTED"
	ErrCodeReferralCodeUnknown = "REFERRAL_CODE_UNKNOWN"
	ErrCodeCheckoutFailed      = "CHECKOUT_FAILED"
	ErrCodeStoreUnavailable    = "STORE_UNAVAILABLE"
	ErrCodeUnauthorised        = "UNAUTHORIZED"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeInternalError       = "INTERNAL_ERROR"
)

// Domain errors for business logic
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// AsDomainError extracts a DomainError from an error chain.
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// Common domain errors
var (
	ErrInvalidUsername     = NewDomainError(ErrCodeInvalidUsername, "Username is required")
	ErrInvalidPoints       = NewDomainError(ErrCodeInvalidPoints, "Points to add cannot be negative")
	ErrInvalidQuantity     = NewDomainError(ErrCodeInvalidQuantity, "Quantity must be greater than zero")
	ErrInvalidPrice        = NewDomainError(ErrCodeInvalidPrice, "Product price could not be determined")
	ErrEmptyCart           = NewDomainError(ErrCodeEmptyCart, "Cart is empty")
	ErrCartLineNotFound    = NewDomainError(ErrCodeCartLineNotFound, "Cart item not found")
	ErrUserNotFound        = NewDomainError(ErrCodeUserNotFound, "User is not enrolled in the loyalty program")
	ErrDuplicateDiscount   = NewDomainError(ErrCodeDuplicateDiscount, "This discount code was already scanned")
	ErrDiscountNotFound    = NewDomainError(ErrCodeDiscountNotFound, "Discount not found")
	ErrEmptyScan           = NewDomainError(ErrCodeEmptyScan, "Scanned content is empty")
	ErrSelfReferral        = NewDomainError(ErrCodeSelfReferral, "Users cannot refer themselves")
	ErrReferralRejected    = NewDomainError(ErrCodeReferralRejected, "Referral could not be registered")
	ErrReferralCodeUnknown = NewDomainError(ErrCodeReferralCodeUnknown, "Referral code does not exist")
	ErrCheckoutFailed      = NewDomainError(ErrCodeCheckoutFailed, "Checkout could not be completed, your cart was kept")
	ErrStoreUnavailable    = NewDomainError(ErrCodeStoreUnavailable, "Storage is temporarily unavailable")
)
