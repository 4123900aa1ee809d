package market

import "errors"

// Order creation failures.
var (
	ErrUnregisteredAsset        = errors.New("asset not registered")
	ErrInvalidPrice             = errors.New("price must be greater than zero")
	ErrInvalidAmount            = errors.New("invalid amount")
	ErrInvalidAssetID           = errors.New("asset id must be zero for fungible assets")
	ErrInvalidAmountGranularity = errors.New("amount not a multiple of the asset's whole-unit denomination")
	ErrNotOwner                 = errors.New("caller does not own the token")
	ErrInsufficientBalance      = errors.New("caller balance below listed amount")
	ErrMarketplaceUnauthorized  = errors.New("marketplace not authorized to move the asset")
)

// Order execution / cancellation failures.
var (
	ErrInvalidOrderIndex         = errors.New("order not found")
	ErrSelfTrade                 = errors.New("seller cannot execute own order")
	ErrPrivateOrder              = errors.New("order reserved for a designated buyer")
	ErrSellerNoLongerOwner       = errors.New("seller no longer owns the token")
	ErrSellerInsufficientBalance = errors.New("seller balance below listed amount")
	ErrUnauthorized              = errors.New("unauthorized")

	// ErrNotExecutable is deliberately unspecific: orders inside their
	// grace period fail with the same signal as any other rejected
	// execution, so the window cannot be probed cheaply.
	ErrNotExecutable = errors.New("order execution rejected")
)

// Configuration failures.
var (
	ErrInvalidOwnerCut    = errors.New("owner cut must be below 1,000,000 ppm")
	ErrZeroPaymentToken   = errors.New("payment currency address must be non-zero")
	ErrZeroFeeBeneficiary = errors.New("fee beneficiary address must be non-zero")
)
