// internal/registry/registry_test.go
package registry

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	authority  = Address("0xauthority")
	enterprise = Address("0xenterprise")
	alice      = Address("0xalice")
	bob        = Address("0xbob")
)

type transferCall struct {
	from, to Address
	amount   uint64
}

// fakePayments records transfers and can be told to fail.
type fakePayments struct {
	err   error
	calls []transferCall
}

func (f *fakePayments) Transfer(from, to Address, amount uint64) error {
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, transferCall{from, to, amount})
	return nil
}

// recordingSink collects every published event in order.
type recordingSink struct {
	events []Event
}

func (s *recordingSink) Publish(event Event) {
	s.events = append(s.events, event)
}

func newTestRegistry() (*Registry, *fakePayments, *recordingSink) {
	payments := &fakePayments{}
	sink := &recordingSink{}
	return New(authority, payments, sink), payments, sink
}

func mintTestProduct(t *testing.T, r *Registry, n int) uint64 {
	t.Helper()
	tokenID, err := r.Mint(authority, enterprise,
		fmt.Sprintf("ipfs://metadata-%d", n),
		fmt.Sprintf("SN-1-%d", n),
		fmt.Sprintf("PID-1-%d", n))
	require.NoError(t, err)
	return tokenID
}

func TestMint(t *testing.T) {
	t.Run("assigns sequential token ids starting at 1", func(t *testing.T) {
		r, _, _ := newTestRegistry()

		first := mintTestProduct(t, r, 1)
		second := mintTestProduct(t, r, 2)

		assert.Equal(t, uint64(1), first)
		assert.Equal(t, uint64(2), second)
		assert.Equal(t, uint64(2), r.TotalMinted())
	})

	t.Run("emits a mint event with the exact field set", func(t *testing.T) {
		r, _, sink := newTestRegistry()

		tokenID, err := r.Mint(authority, enterprise, "ipfs://meta", "SN-1", "PID-1")
		require.NoError(t, err)

		require.Len(t, sink.events, 1)
		assert.Equal(t, ProductMinted{
			Enterprise:   enterprise,
			TokenID:      tokenID,
			MetadataURI:  "ipfs://meta",
			SerialNumber: "SN-1",
			PublicID:     "PID-1",
		}, sink.events[0])
	})

	t.Run("creates an unclaimed unlisted record", func(t *testing.T) {
		r, _, _ := newTestRegistry()
		mintTestProduct(t, r, 1)

		p, err := r.ProductByKey("PID-1-1")
		require.NoError(t, err)
		assert.False(t, p.IsClaimed)
		assert.Equal(t, ZeroAddress, p.Owner)
		assert.False(t, p.IsForSale)
		assert.Zero(t, p.Price)
	})

	t.Run("rejects duplicate serial number", func(t *testing.T) {
		r, _, _ := newTestRegistry()
		mintTestProduct(t, r, 1)

		_, err := r.Mint(authority, enterprise, "ipfs://other", "SN-1-1", "PID-other")
		assert.ErrorIs(t, err, ErrDuplicateSerialNumber)
		assert.Equal(t, uint64(1), r.TotalMinted())
	})

	t.Run("rejects duplicate public id", func(t *testing.T) {
		r, _, _ := newTestRegistry()
		mintTestProduct(t, r, 1)

		_, err := r.Mint(authority, enterprise, "ipfs://other", "SN-other", "PID-1-1")
		assert.ErrorIs(t, err, ErrDuplicatePublicID)
	})

	t.Run("serial duplicate takes precedence when both keys collide", func(t *testing.T) {
		r, _, _ := newTestRegistry()
		mintTestProduct(t, r, 1)

		_, err := r.Mint(authority, enterprise, "ipfs://other", "SN-1-1", "PID-1-1")
		assert.ErrorIs(t, err, ErrDuplicateSerialNumber)
	})

	t.Run("duplicate keys stay rejected after a failed mint", func(t *testing.T) {
		r, _, _ := newTestRegistry()
		mintTestProduct(t, r, 1)

		_, err := r.Mint(authority, enterprise, "ipfs://other", "SN-1-1", "PID-other")
		require.ErrorIs(t, err, ErrDuplicateSerialNumber)

		// The failed mint must not have consumed PID-other.
		_, err = r.Mint(authority, enterprise, "ipfs://other", "SN-other", "PID-other")
		assert.NoError(t, err)
	})

	t.Run("rejects callers other than the authority", func(t *testing.T) {
		r, _, _ := newTestRegistry()

		_, err := r.Mint(alice, enterprise, "ipfs://meta", "SN-1", "PID-1")
		assert.ErrorIs(t, err, ErrUnauthorized)
		assert.Zero(t, r.TotalMinted())
	})
}

func TestClaim(t *testing.T) {
	t.Run("assigns first-time ownership", func(t *testing.T) {
		r, _, sink := newTestRegistry()
		mintTestProduct(t, r, 1)

		p, err := r.Claim(alice, "SN-1-1")
		require.NoError(t, err)
		assert.True(t, p.IsClaimed)
		assert.Equal(t, alice, p.Owner)

		owner, err := r.OwnerOf(p.TokenID)
		require.NoError(t, err)
		assert.Equal(t, alice, owner)

		require.Len(t, sink.events, 2)
		assert.Equal(t, ProductClaimed{
			Owner:        alice,
			TokenID:      p.TokenID,
			SerialNumber: "SN-1-1",
			PublicID:     "PID-1-1",
			MetadataURI:  "ipfs://metadata-1",
			IsClaimed:    true,
		}, sink.events[1])
	})

	t.Run("rejects unknown serial numbers", func(t *testing.T) {
		r, _, _ := newTestRegistry()
		mintTestProduct(t, r, 1)

		_, err := r.Claim(alice, "SN-missing")
		assert.ErrorIs(t, err, ErrProductNotFound)
	})

	t.Run("only one claim ever succeeds", func(t *testing.T) {
		r, _, _ := newTestRegistry()
		mintTestProduct(t, r, 1)

		_, err := r.Claim(alice, "SN-1-1")
		require.NoError(t, err)

		_, err = r.Claim(bob, "SN-1-1")
		assert.ErrorIs(t, err, ErrAlreadyClaimed)

		// Even the owner cannot claim again.
		_, err = r.Claim(alice, "SN-1-1")
		assert.ErrorIs(t, err, ErrAlreadyClaimed)

		owner, err := r.OwnerOf(1)
		require.NoError(t, err)
		assert.Equal(t, alice, owner)
	})
}

func TestPutForSale(t *testing.T) {
	t.Run("lists the product and emits an event", func(t *testing.T) {
		r, _, sink := newTestRegistry()
		mintTestProduct(t, r, 1)
		_, err := r.Claim(alice, "SN-1-1")
		require.NoError(t, err)

		require.NoError(t, r.PutForSale(alice, 1, 100))

		p, err := r.ProductByTokenID(1)
		require.NoError(t, err)
		assert.True(t, p.IsForSale)
		assert.Equal(t, uint64(100), p.Price)

		assert.Equal(t, ProductListedForSale{TokenID: 1, Price: 100}, sink.events[len(sink.events)-1])
	})

	t.Run("relisting overwrites the price", func(t *testing.T) {
		r, _, _ := newTestRegistry()
		mintTestProduct(t, r, 1)
		_, err := r.Claim(alice, "SN-1-1")
		require.NoError(t, err)

		require.NoError(t, r.PutForSale(alice, 1, 100))
		require.NoError(t, r.PutForSale(alice, 1, 250))

		p, _ := r.ProductByTokenID(1)
		assert.Equal(t, uint64(250), p.Price)
	})

	t.Run("rejects nonexistent products", func(t *testing.T) {
		r, _, _ := newTestRegistry()
		assert.ErrorIs(t, r.PutForSale(alice, 99, 100), ErrProductNotFound)
	})

	t.Run("rejects callers who do not own the token", func(t *testing.T) {
		r, _, _ := newTestRegistry()
		mintTestProduct(t, r, 1)
		_, err := r.Claim(alice, "SN-1-1")
		require.NoError(t, err)

		assert.ErrorIs(t, r.PutForSale(bob, 1, 100), ErrNotOwner)
	})

	t.Run("rejects listing an unclaimed product", func(t *testing.T) {
		r, _, _ := newTestRegistry()
		mintTestProduct(t, r, 1)

		assert.ErrorIs(t, r.PutForSale(alice, 1, 100), ErrNotOwner)
	})

	t.Run("rejects a zero price", func(t *testing.T) {
		r, _, _ := newTestRegistry()
		mintTestProduct(t, r, 1)
		_, err := r.Claim(alice, "SN-1-1")
		require.NoError(t, err)

		assert.ErrorIs(t, r.PutForSale(alice, 1, 0), ErrPriceMustBePositive)
	})
}

func TestBuy(t *testing.T) {
	setup := func(t *testing.T) (*Registry, *fakePayments, *recordingSink) {
		r, payments, sink := newTestRegistry()
		mintTestProduct(t, r, 1)
		_, err := r.Claim(alice, "SN-1-1")
		require.NoError(t, err)
		require.NoError(t, r.PutForSale(alice, 1, 100))
		return r, payments, sink
	}

	t.Run("transfers value and ownership atomically", func(t *testing.T) {
		r, payments, sink := setup(t)

		require.NoError(t, r.Buy(bob, 1, 100))

		// Payment went to the seller exactly once.
		require.Len(t, payments.calls, 1)
		assert.Equal(t, transferCall{from: bob, to: alice, amount: 100}, payments.calls[0])

		// Ownership moved and the listing is gone.
		p, err := r.ProductByTokenID(1)
		require.NoError(t, err)
		assert.Equal(t, bob, p.Owner)
		assert.False(t, p.IsForSale)
		assert.Zero(t, p.Price)

		assert.Empty(t, r.ProductsByOwner(alice))
		require.Len(t, r.ProductsByOwner(bob), 1)

		assert.Equal(t, ProductSold{TokenID: 1, Seller: alice, Buyer: bob, Price: 100}, sink.events[len(sink.events)-1])
	})

	t.Run("rejects nonexistent products", func(t *testing.T) {
		r, _, _ := newTestRegistry()
		assert.ErrorIs(t, r.Buy(bob, 99, 100), ErrProductNotFound)
	})

	t.Run("rejects products that are not for sale", func(t *testing.T) {
		r, _, _ := newTestRegistry()
		mintTestProduct(t, r, 1)

		assert.ErrorIs(t, r.Buy(bob, 1, 100), ErrNotForSale)
	})

	t.Run("rejects payment below and above the price", func(t *testing.T) {
		r, payments, _ := setup(t)

		assert.ErrorIs(t, r.Buy(bob, 1, 10), ErrWrongPaymentAmount)
		assert.ErrorIs(t, r.Buy(bob, 1, 200), ErrWrongPaymentAmount)
		assert.Empty(t, payments.calls)
	})

	t.Run("rejects buying your own listing", func(t *testing.T) {
		r, payments, _ := setup(t)

		assert.ErrorIs(t, r.Buy(alice, 1, 100), ErrBuyerIsOwner)
		assert.Empty(t, payments.calls)
	})

	t.Run("a failed value transfer leaves state untouched", func(t *testing.T) {
		r, payments, sink := setup(t)
		payments.err = errors.New("receiver reverted")
		eventsBefore := len(sink.events)

		err := r.Buy(bob, 1, 100)
		assert.ErrorIs(t, err, ErrValueTransferFailed)

		p, lookupErr := r.ProductByTokenID(1)
		require.NoError(t, lookupErr)
		assert.Equal(t, alice, p.Owner)
		assert.True(t, p.IsForSale)
		assert.Equal(t, uint64(100), p.Price)

		require.Len(t, r.ProductsByOwner(alice), 1)
		assert.Empty(t, r.ProductsByOwner(bob))
		assert.Len(t, sink.events, eventsBefore)

		// A later attempt with a working backend succeeds.
		payments.err = nil
		assert.NoError(t, r.Buy(bob, 1, 100))
	})
}

func TestTransfer(t *testing.T) {
	t.Run("moves ownership and clears any listing", func(t *testing.T) {
		r, _, _ := newTestRegistry()
		mintTestProduct(t, r, 1)
		_, err := r.Claim(alice, "SN-1-1")
		require.NoError(t, err)
		require.NoError(t, r.PutForSale(alice, 1, 100))

		require.NoError(t, r.Transfer(alice, bob, 1))

		p, err := r.ProductByTokenID(1)
		require.NoError(t, err)
		assert.Equal(t, bob, p.Owner)
		assert.False(t, p.IsForSale)
		assert.Zero(t, p.Price)
		assert.True(t, p.IsClaimed)

		assert.Empty(t, r.ProductsByOwner(alice))
		require.Len(t, r.ProductsByOwner(bob), 1)
	})

	t.Run("rejects callers who do not own the token", func(t *testing.T) {
		r, _, _ := newTestRegistry()
		mintTestProduct(t, r, 1)
		_, err := r.Claim(alice, "SN-1-1")
		require.NoError(t, err)

		assert.ErrorIs(t, r.Transfer(bob, alice, 1), ErrNotOwner)
	})

	t.Run("rejects the zero address as recipient", func(t *testing.T) {
		r, _, _ := newTestRegistry()
		mintTestProduct(t, r, 1)
		_, err := r.Claim(alice, "SN-1-1")
		require.NoError(t, err)

		assert.ErrorIs(t, r.Transfer(alice, ZeroAddress, 1), ErrInvalidRecipient)
	})

	t.Run("rejects nonexistent tokens", func(t *testing.T) {
		r, _, _ := newTestRegistry()
		assert.ErrorIs(t, r.Transfer(alice, bob, 99), ErrProductNotFound)
	})
}

// Removal uses swap-and-pop: selling the middle token moves the last
// token into its slot instead of shifting the collection.
func TestSwapAndPopReordering(t *testing.T) {
	r, _, _ := newTestRegistry()

	for n := 1; n <= 3; n++ {
		mintTestProduct(t, r, n)
	}
	for n := 1; n <= 3; n++ {
		_, err := r.Claim(alice, fmt.Sprintf("SN-1-%d", n))
		require.NoError(t, err)
	}

	require.NoError(t, r.PutForSale(alice, 2, 100))
	require.NoError(t, r.Buy(bob, 2, 100))

	sellerTokens := r.ProductsByOwner(alice)
	require.Len(t, sellerTokens, 2)
	assert.Equal(t, uint64(1), sellerTokens[0].TokenID)
	assert.Equal(t, uint64(3), sellerTokens[1].TokenID)

	buyerTokens := r.ProductsByOwner(bob)
	require.Len(t, buyerTokens, 1)
	assert.Equal(t, uint64(2), buyerTokens[0].TokenID)

	// Removing again from either end keeps positions consistent.
	require.NoError(t, r.Transfer(alice, bob, 3))
	require.NoError(t, r.Transfer(alice, bob, 1))
	assert.Empty(t, r.ProductsByOwner(alice))
	assert.Len(t, r.ProductsByOwner(bob), 3)
}

func TestProductByKey(t *testing.T) {
	r, _, _ := newTestRegistry()
	mintTestProduct(t, r, 1)

	t.Run("resolves by public id", func(t *testing.T) {
		p, err := r.ProductByKey("PID-1-1")
		require.NoError(t, err)
		assert.Equal(t, "SN-1-1", p.SerialNumber)
	})

	t.Run("falls back to serial number", func(t *testing.T) {
		p, err := r.ProductByKey("SN-1-1")
		require.NoError(t, err)
		assert.Equal(t, "PID-1-1", p.PublicID)
	})

	t.Run("rejects unknown keys", func(t *testing.T) {
		_, err := r.ProductByKey("nope")
		assert.ErrorIs(t, err, ErrProductNotFound)
	})
}

func TestProductsByOwnerEmpty(t *testing.T) {
	r, _, _ := newTestRegistry()
	mintTestProduct(t, r, 1)

	products := r.ProductsByOwner(alice)
	assert.NotNil(t, products)
	assert.Empty(t, products)
}

func TestOwnerOf(t *testing.T) {
	r, _, _ := newTestRegistry()
	mintTestProduct(t, r, 1)

	owner, err := r.OwnerOf(1)
	require.NoError(t, err)
	assert.Equal(t, ZeroAddress, owner)

	_, err = r.OwnerOf(42)
	assert.ErrorIs(t, err, ErrProductNotFound)
}
