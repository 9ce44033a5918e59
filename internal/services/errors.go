package services

import "errors"

// Validation failures.
var (
	ErrEmptyOrder           = errors.New("order must contain at least one item")
	ErrInvalidQuantity      = errors.New("quantity must be a positive integer")
	ErrMenuItemNotFound     = errors.New("menu item not found")
	ErrMenuItemUnavailable  = errors.New("menu item is not available")
	ErrNoDefaultAddress     = errors.New("no address given and no default address set")
	ErrInvalidOrderStatus   = errors.New("invalid order status")
	ErrInvalidPaymentStatus = errors.New("invalid payment status")
	ErrInvalidRole          = errors.New("role must be admin or customer")
	ErrInvalidPrice         = errors.New("price must not be negative")
	ErrNothingToUpdate      = errors.New("no fields to update")
	ErrEmptyName            = errors.New("name must not be empty")
	ErrMissingURL           = errors.New("url is required")
)

// Lookup failures.
var (
	ErrAddressNotFound      = errors.New("address not found")
	ErrOrderNotFound        = errors.New("order not found")
	ErrPaymentNotFound      = errors.New("payment not found for order")
	ErrProfileNotFound      = errors.New("profile not found")
	ErrCategoryNotFound     = errors.New("category not found")
	ErrGalleryImageNotFound = errors.New("gallery image not found")
)

// Conflicts and auth failures.
var (
	ErrEmailTaken          = errors.New("email is already registered")
	ErrInUse               = errors.New("resource is still referenced")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrTransitionForbidden = errors.New("status transition not allowed")
)
