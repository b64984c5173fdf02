// internal/ledger/ledger.go
package ledger

import (
	"errors"
	"sync"

	"github.com/chaincert/chaincert-backend/internal/registry"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAccount    = errors.New("invalid account address")
	ErrSelfTransfer      = errors.New("cannot transfer to the same account")
)

// Ledger holds account balances and implements registry.PaymentBackend.
// Transfer is all-or-nothing: on any error both balances are unchanged.
type Ledger struct {
	mu       sync.Mutex
	balances map[registry.Address]uint64
}

func New() *Ledger {
	return &Ledger{balances: make(map[registry.Address]uint64)}
}

// Deposit credits an account. Used when funding accounts from an
// external payment processor; a zero amount is a no-op.
func (l *Ledger) Deposit(account registry.Address, amount uint64) error {
	if account == registry.ZeroAddress {
		return ErrInvalidAccount
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[account] += amount
	return nil
}

func (l *Ledger) BalanceOf(account registry.Address) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account]
}

// Transfer moves amount from one account to the other atomically.
func (l *Ledger) Transfer(from, to registry.Address, amount uint64) error {
	if from == registry.ZeroAddress || to == registry.ZeroAddress {
		return ErrInvalidAccount
	}
	if from == to {
		return ErrSelfTransfer
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.balances[from] < amount {
		return ErrInsufficientFunds
	}

	l.balances[from] -= amount
	l.balances[to] += amount
	return nil
}
