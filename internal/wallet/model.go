package wallet

import (
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// ErrRefused is returned when a wallet's capability check rejects a mutation.
var ErrRefused = errors.New("wallet refused operation")

// Account is the capability set the transfer engine checks before moving
// value. New account kinds (credit lines, frozen accounts) implement it
// with their own rules.
type Account interface {
	CanWithdraw(amount decimal.Decimal) bool
	CanDeposit(amount decimal.Decimal) bool
}

// Wallet is one owner's spendable balance. ID, OwnerID, Name, Currency and
// CreatedAt are fixed at provisioning. The balance is guarded by the wallet's
// own lock; methods documented as "caller holds the lock" must only be used
// between Lock and Unlock.
type Wallet struct {
	ID        string
	OwnerID   string
	Name      string
	Currency  string
	CreatedAt time.Time

	mu      sync.Mutex
	balance decimal.Decimal
}

var _ Account = (*Wallet)(nil)

// Lock acquires the wallet's balance lock.
func (w *Wallet) Lock() { w.mu.Lock() }

// Unlock releases the wallet's balance lock.
func (w *Wallet) Unlock() { w.mu.Unlock() }

// HeldBalance returns the balance. Caller holds the lock.
func (w *Wallet) HeldBalance() decimal.Decimal {
	return w.balance
}

// CanWithdraw reports whether amount can leave the wallet without driving it
// negative. Caller holds the lock.
func (w *Wallet) CanWithdraw(amount decimal.Decimal) bool {
	return amount.IsPositive() && amount.LessThanOrEqual(w.balance)
}

// CanDeposit reports whether amount may be added. Caller holds the lock.
func (w *Wallet) CanDeposit(amount decimal.Decimal) bool {
	return amount.IsPositive()
}

// Deposit adds amount. Caller holds the lock.
func (w *Wallet) Deposit(amount decimal.Decimal) error {
	if !w.CanDeposit(amount) {
		return ErrRefused
	}
	w.balance = w.balance.Add(amount)
	return nil
}

// Withdraw subtracts amount. Caller holds the lock.
func (w *Wallet) Withdraw(amount decimal.Decimal) error {
	if !w.CanWithdraw(amount) {
		return ErrRefused
	}
	w.balance = w.balance.Sub(amount)
	return nil
}

// Snapshot takes the lock and returns a point-in-time copy.
func (w *Wallet) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshot()
}

func (w *Wallet) snapshot() Snapshot {
	return Snapshot{
		ID:        w.ID,
		OwnerID:   w.OwnerID,
		Name:      w.Name,
		Currency:  w.Currency,
		Balance:   w.balance,
		CreatedAt: w.CreatedAt,
	}
}

// Snapshot is an immutable view of a wallet.
type Snapshot struct {
	ID        string          `json:"id"`
	OwnerID   string          `json:"owner_id"`
	Name      string          `json:"name"`
	Currency  string          `json:"currency"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
}
