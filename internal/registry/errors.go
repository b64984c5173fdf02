// internal/registry/errors.go
package registry

import "errors"

// Every rejection reason is a distinct sentinel so callers can map a
// failure onto a stable machine-readable code with errors.Is.
var (
	ErrUnauthorized          = errors.New("caller is not the mint authority")
	ErrDuplicateSerialNumber = errors.New("product already registered")
	ErrDuplicatePublicID     = errors.New("public id already used")
	ErrProductNotFound       = errors.New("product not found")
	ErrAlreadyClaimed        = errors.New("product already claimed")
	ErrNotOwner              = errors.New("not token owner")
	ErrPriceMustBePositive   = errors.New("price must be greater than 0")
	ErrNotForSale            = errors.New("product not for sale")
	ErrWrongPaymentAmount    = errors.New("funds not equal to price")
	ErrBuyerIsOwner          = errors.New("cannot buy your own product")
	ErrValueTransferFailed   = errors.New("transfer failed")
	ErrInvalidRecipient      = errors.New("transfer to the zero address")
)
