// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeySuccess = "success"
	KeyError   = "error"

	// Authentication
	KeyAuthRequired           = "auth.required"
	KeyAuthInvalidToken       = "auth.invalid_token"
	KeyAuthTokenExpired       = "auth.token_expired"
	KeyAuthInvalidCredentials = "auth.invalid_credentials"
	KeyAuthUserExists         = "auth.user_exists"
	KeyAuthLoginSuccess       = "auth.login_success"
	KeyAuthRegisterSuccess    = "auth.register_success"
	KeyAuthLogoutSuccess      = "auth.logout_success"
	KeyAuthAdminRequired      = "auth.admin_required"

	// User Management
	KeyUserNotFound       = "user.not_found"
	KeyUserProfileUpdated = "user.profile_updated"
	KeyUserAvatarUpdated  = "user.avatar_updated"
	KeyUserAvatarInvalid  = "user.avatar_invalid"

	// Validation
	KeyValidationInvalid  = "validation.invalid"
	KeyValidationRequired = "validation.required"
	KeyValidationFailed   = "validation.failed"

	// Products
	KeyProductNotFound = "product.not_found"
	KeyProductCreated  = "product.created"
	KeyProductUpdated  = "product.updated"
	KeyProductDeleted  = "product.deleted"

	// Cart & wishlist
	KeyCartUpdated           = "cart.updated"
	KeyCartCleared           = "cart.cleared"
	KeyCartInvalidItem       = "cart.invalid_item"
	KeyCartInsufficientStock = "cart.insufficient_stock"
	KeyCartItemNotFound      = "cart_item.not_found"
	KeyWishlistItemNotFound  = "wishlist_item.not_found"
	KeyWishlistMovedToCart   = "wishlist.moved_to_cart"

	// Compare
	KeyCompareLimitReached   = "compare.limit_reached"
	KeyCompareAlreadyPresent = "compare.already_present"
	KeyCompareMovedToCart    = "compare.moved_to_cart"

	// Addresses
	KeyAddressInvalid  = "address.invalid"
	KeyAddressExists   = "address.exists"
	KeyAddressNotFound = "address.not_found"
	KeyAddressDeleted  = "address.deleted"

	// Orders
	KeyOrderNotFound           = "order.not_found"
	KeyOrderInvalidTransition  = "order.invalid_transition"
	KeyOrderNotCancellable     = "order.not_cancellable"
	KeyOrderMissingReason      = "order.missing_reason"
	KeyOrderInvalid            = "order.invalid"
	KeyOrderEmpty              = "order.empty"
	KeyOrderInvalidItem        = "order.invalid_item"
	KeyOrderInvalidPayment     = "order.invalid_payment_method"
	KeyOrderPaymentUnconfirmed = "order.payment_unconfirmed"
	KeyOrderPaymentUsed        = "order.payment_used"
	KeyOrderInvalidTotal       = "order.invalid_total"
	KeyOrderInvalidShipping    = "order.invalid_shipping"
	KeyOrderPlaced             = "order.placed"
	KeyOrderCancelled          = "order.cancelled"
	KeyOrderReordered          = "order.reordered"

	// Payments
	KeyPaymentDeclined       = "payment.declined"
	KeyPaymentAmountMismatch = "payment.amount_mismatch"
	KeyPaymentNotConfigured  = "payment.not_configured"

	// Reviews
	KeyReviewInvalidRating  = "review.invalid_rating"
	KeyReviewCommentTooLong = "review.comment_too_long"
	KeyReviewInvalid        = "review.invalid"
	KeyReviewExists         = "review.exists"
	KeyReviewNotFound       = "review.not_found"
	KeyReviewNotEligible    = "review.not_eligible"
	KeyReviewDeleted        = "review.deleted"

	// Errors
	KeyErrorServiceUnavailable = "error.service_unavailable"
	KeyErrorInternal           = "error.internal"
	KeyRateLimitExceeded       = "rate_limit.exceeded"
)
