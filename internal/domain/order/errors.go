package order

import "net/http"

// NotFoundError is returned when a referenced entity does not exist.
// It maps to HTTP 404.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// HTTPStatus returns the HTTP-equivalent status for the error.
func (e *NotFoundError) HTTPStatus() int { return http.StatusNotFound }

// OwnershipError is returned when the acting user lacks rights over the
// entity. It maps to HTTP 403.
type OwnershipError struct {
	Message string
}

func (e *OwnershipError) Error() string { return e.Message }

// HTTPStatus returns the HTTP-equivalent status for the error.
func (e *OwnershipError) HTTPStatus() int { return http.StatusForbidden }

// ValidationError is returned when a business rule is violated. It maps to
// HTTP 400. The message doubles as the stable machine code surfaced to
// clients, so the strings below never change.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// HTTPStatus returns the HTTP-equivalent status for the error.
func (e *ValidationError) HTTPStatus() int { return http.StatusBadRequest }

// Sentinel errors surfaced by the order core. Compared by identity via
// errors.Is; the messages are part of the client contract.
var (
	ErrShopNotFound    = &NotFoundError{Message: "Shop not found!"}
	ErrBookNotFound    = &NotFoundError{Message: "Product not found!"}
	ErrReceiptNotFound = &NotFoundError{Message: "Order not found!"}
	ErrDetailNotFound  = &NotFoundError{Message: "Order detail not found!"}

	ErrInvalidUser      = &OwnershipError{Message: "Invalid user!"}
	ErrInvalidOwnership = &OwnershipError{Message: "Invalid ownership!"}

	ErrOutOfStock           = &ValidationError{Message: "Product out of stock!"}
	ErrInvalidQuantity      = &ValidationError{Message: "Invalid quantity!"}
	ErrInvalidCoupon        = &ValidationError{Message: "Invalid coupon!"}
	ErrCouponExpired        = &ValidationError{Message: "Coupon expired!"}
	ErrInvalidStatus        = &ValidationError{Message: "Invalid order status!"}
	ErrInvalidPaymentStatus = &ValidationError{Message: "Invalid payment status!"}
	ErrInvalidDate          = &ValidationError{Message: "Invalid date!"}
	ErrInvalidCaptcha       = &ValidationError{Message: "Invalid captcha!"}
	ErrEmptyCart            = &ValidationError{Message: "Empty cart!"}
)
