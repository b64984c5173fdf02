// internal/registry/registry.go
package registry

import (
	"fmt"
	"sync"
)

// Address identifies an account in the registry. The zero value means
// "no account" (e.g. the owner of an unclaimed product).
type Address string

const ZeroAddress Address = ""

// Product is a registered physical item. Enterprise, SerialNumber,
// PublicID and MetadataURI are immutable after mint; the remaining
// fields evolve through claim, listing and sale.
type Product struct {
	TokenID      uint64  `json:"token_id"`
	Enterprise   Address `json:"enterprise"`
	SerialNumber string  `json:"serial_number"`
	PublicID     string  `json:"public_id"`
	MetadataURI  string  `json:"metadata_uri"`
	IsClaimed    bool    `json:"is_claimed"`
	Owner        Address `json:"owner"`
	IsForSale    bool    `json:"is_for_sale"`
	Price        uint64  `json:"price"`
}

// PaymentBackend moves value between accounts during Buy. Transfer must
// be atomic: either the seller balance increases by exactly amount, or
// nothing happens and a non-nil error is returned.
type PaymentBackend interface {
	Transfer(from, to Address, amount uint64) error
}

// Registry is the product-authentication state machine. Every operation
// runs under one mutex, so transitions are totally ordered and a
// rejected operation leaves the state untouched.
type Registry struct {
	mu        sync.Mutex
	authority Address
	payments  PaymentBackend
	sink      EventSink

	products       map[uint64]*Product
	bySerialNumber map[string]uint64
	byPublicID     map[string]uint64
	ownedTokens    map[Address][]uint64
	tokenPosition  map[uint64]int
	nextTokenID    uint64
}

// New creates an empty registry. Only authority may mint. payments is
// required; sink may be nil when nobody consumes events.
func New(authority Address, payments PaymentBackend, sink EventSink) *Registry {
	return &Registry{
		authority:      authority,
		payments:       payments,
		sink:           sink,
		products:       make(map[uint64]*Product),
		bySerialNumber: make(map[string]uint64),
		byPublicID:     make(map[string]uint64),
		ownedTokens:    make(map[Address][]uint64),
		tokenPosition:  make(map[uint64]int),
		nextTokenID:    1,
	}
}

// Mint registers a new product and returns its token id. Serial numbers
// and public ids are unique across all ever-minted products.
func (r *Registry) Mint(caller, enterprise Address, metadataURI, serialNumber, publicID string) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if caller != r.authority {
		return 0, ErrUnauthorized
	}
	if _, exists := r.bySerialNumber[serialNumber]; exists {
		return 0, ErrDuplicateSerialNumber
	}
	if _, exists := r.byPublicID[publicID]; exists {
		return 0, ErrDuplicatePublicID
	}

	tokenID := r.nextTokenID
	r.nextTokenID++

	r.products[tokenID] = &Product{
		TokenID:      tokenID,
		Enterprise:   enterprise,
		SerialNumber: serialNumber,
		PublicID:     publicID,
		MetadataURI:  metadataURI,
	}
	r.bySerialNumber[serialNumber] = tokenID
	r.byPublicID[publicID] = tokenID

	r.emit(ProductMinted{
		Enterprise:   enterprise,
		TokenID:      tokenID,
		MetadataURI:  metadataURI,
		SerialNumber: serialNumber,
		PublicID:     publicID,
	})

	return tokenID, nil
}

// Claim assigns first-time ownership of the product with the given
// serial number to caller. A product can be claimed exactly once.
func (r *Registry) Claim(caller Address, serialNumber string) (Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tokenID, exists := r.bySerialNumber[serialNumber]
	if !exists {
		return Product{}, ErrProductNotFound
	}

	p := r.products[tokenID]
	if p.IsClaimed {
		return Product{}, ErrAlreadyClaimed
	}

	p.Owner = caller
	p.IsClaimed = true
	r.addToOwner(caller, tokenID)

	r.emit(ProductClaimed{
		Owner:        caller,
		TokenID:      tokenID,
		SerialNumber: p.SerialNumber,
		PublicID:     p.PublicID,
		MetadataURI:  p.MetadataURI,
		IsClaimed:    true,
	})

	return *p, nil
}

// PutForSale lists the caller's product at the given price.
func (r *Registry) PutForSale(caller Address, tokenID, price uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, exists := r.products[tokenID]
	if !exists {
		return ErrProductNotFound
	}
	if p.Owner != caller || caller == ZeroAddress {
		return ErrNotOwner
	}
	if price == 0 {
		return ErrPriceMustBePositive
	}

	p.IsForSale = true
	p.Price = price

	r.emit(ProductListedForSale{TokenID: tokenID, Price: price})
	return nil
}

// Buy purchases a listed product for exactly its asking price. The
// value transfer runs after all validation and before any state
// mutation, so a failed transfer rejects the operation with no
// observable effect.
func (r *Registry) Buy(caller Address, tokenID, payment uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, exists := r.products[tokenID]
	if !exists {
		return ErrProductNotFound
	}
	if !p.IsForSale {
		return ErrNotForSale
	}
	if payment != p.Price {
		return ErrWrongPaymentAmount
	}
	if p.Owner == caller {
		return ErrBuyerIsOwner
	}

	seller := p.Owner
	price := p.Price

	if err := r.payments.Transfer(caller, seller, price); err != nil {
		return fmt.Errorf("%w: %v", ErrValueTransferFailed, err)
	}

	r.transferOwnership(p, seller, caller)

	r.emit(ProductSold{TokenID: tokenID, Seller: seller, Buyer: caller, Price: price})
	return nil
}

// Transfer moves ownership of a claimed product directly, outside a
// sale. Any active listing is cleared.
func (r *Registry) Transfer(caller, to Address, tokenID uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, exists := r.products[tokenID]
	if !exists {
		return ErrProductNotFound
	}
	if p.Owner != caller || caller == ZeroAddress {
		return ErrNotOwner
	}
	if to == ZeroAddress {
		return ErrInvalidRecipient
	}

	r.transferOwnership(p, caller, to)
	return nil
}

// ProductByKey resolves a product by public id, falling back to serial
// number when no public id matches.
func (r *Registry) ProductByKey(key string) (Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if tokenID, exists := r.byPublicID[key]; exists {
		return *r.products[tokenID], nil
	}
	if tokenID, exists := r.bySerialNumber[key]; exists {
		return *r.products[tokenID], nil
	}
	return Product{}, ErrProductNotFound
}

// ProductByTokenID returns the product with the given token id.
func (r *Registry) ProductByTokenID(tokenID uint64) (Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, exists := r.products[tokenID]
	if !exists {
		return Product{}, ErrProductNotFound
	}
	return *p, nil
}

// ProductsByOwner returns every product currently owned by owner, in
// index order. Removals use swap-and-pop, so the order is not stable
// across transfers. The result is always non-nil.
func (r *Registry) ProductsByOwner(owner Address) []Product {
	r.mu.Lock()
	defer r.mu.Unlock()

	tokens := r.ownedTokens[owner]
	products := make([]Product, 0, len(tokens))
	for _, tokenID := range tokens {
		products = append(products, *r.products[tokenID])
	}
	return products
}

// OwnerOf returns the current owner of the token, or the zero address
// for an unclaimed product.
func (r *Registry) OwnerOf(tokenID uint64) (Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, exists := r.products[tokenID]
	if !exists {
		return ZeroAddress, ErrProductNotFound
	}
	return p.Owner, nil
}

// TotalMinted returns the number of products ever minted.
func (r *Registry) TotalMinted() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.nextTokenID - 1
}

// transferOwnership reassigns the token between the two owner indexes
// and unconditionally clears any listing. A listing never survives a
// change of owner.
func (r *Registry) transferOwnership(p *Product, from, to Address) {
	r.removeFromOwner(from, p.TokenID)
	r.addToOwner(to, p.TokenID)
	p.Owner = to
	p.IsForSale = false
	p.Price = 0
}

func (r *Registry) addToOwner(owner Address, tokenID uint64) {
	r.tokenPosition[tokenID] = len(r.ownedTokens[owner])
	r.ownedTokens[owner] = append(r.ownedTokens[owner], tokenID)
}

// removeFromOwner deletes tokenID from the owner's collection in O(1):
// the last token is swapped into the vacated slot and its stored
// position updated, then the collection shrinks by one.
func (r *Registry) removeFromOwner(owner Address, tokenID uint64) {
	tokens := r.ownedTokens[owner]
	pos := r.tokenPosition[tokenID]
	last := len(tokens) - 1

	if pos != last {
		moved := tokens[last]
		tokens[pos] = moved
		r.tokenPosition[moved] = pos
	}

	r.ownedTokens[owner] = tokens[:last]
	delete(r.tokenPosition, tokenID)
}

func (r *Registry) emit(event Event) {
	if r.sink != nil {
		r.sink.Publish(event)
	}
}
