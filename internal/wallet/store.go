package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/walletledger/internal/clock"
	"github.com/congo-pay/walletledger/internal/idgen"
	"github.com/congo-pay/walletledger/internal/ledger"
)

const (
	defaultCurrency = "USD"
	defaultName     = "Main Wallet"
)

var (
	// ErrWalletNotFound is returned for unknown owners when provisioning on
	// access is disabled, and by Lookup.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrInvalidOwner rejects empty owner ids and the system actor.
	ErrInvalidOwner = errors.New("invalid owner id")

	// ErrDuplicateWalletID reports an identifier collision between owners.
	ErrDuplicateWalletID = fmt.Errorf("%w: duplicate wallet id", ledger.ErrInternalConsistency)
)

// Options tunes provisioning.
type Options struct {
	Currency string
	Name     string
	// DisableProvisioning makes Resolve behave like Lookup.
	DisableProvisioning bool
}

// ProvisionListener is told about every wallet the store creates. It runs
// after the store lock is released and must not block.
type ProvisionListener interface {
	WalletProvisioned(ctx context.Context, w Snapshot)
}

// Store maps owners to wallets, one wallet per owner.
type Store struct {
	mu      sync.RWMutex
	byOwner map[string]*Wallet
	byID    map[string]*Wallet
	order   []*Wallet

	seeder    Seeder
	ids       idgen.Generator
	clock     clock.Clock
	opts      Options
	logger    *slog.Logger
	listeners []ProvisionListener
}

// NewStore builds an empty store.
func NewStore(seeder Seeder, ids idgen.Generator, clk clock.Clock, logger *slog.Logger, opts Options) *Store {
	if opts.Currency == "" {
		opts.Currency = defaultCurrency
	}
	if opts.Name == "" {
		opts.Name = defaultName
	}
	return &Store{
		byOwner: make(map[string]*Wallet),
		byID:    make(map[string]*Wallet),
		seeder:  seeder,
		ids:     ids,
		clock:   clk,
		opts:    opts,
		logger:  logger,
	}
}

// OnProvision registers a listener. Not safe to call concurrently with Resolve.
func (s *Store) OnProvision(l ProvisionListener) {
	s.listeners = append(s.listeners, l)
}

// Resolve returns the owner's wallet, provisioning it with a seeded balance
// on first access. Concurrent first accesses yield the same wallet and the
// seeder runs exactly once.
func (s *Store) Resolve(ctx context.Context, ownerID string) (*Wallet, error) {
	if err := validOwner(ownerID); err != nil {
		return nil, err
	}

	s.mu.RLock()
	w, ok := s.byOwner[ownerID]
	s.mu.RUnlock()
	if ok {
		return w, nil
	}
	if s.opts.DisableProvisioning {
		return nil, ErrWalletNotFound
	}

	s.mu.Lock()
	if w, ok := s.byOwner[ownerID]; ok {
		s.mu.Unlock()
		return w, nil
	}

	id := s.ids.New(idgen.KindWallet)
	if _, taken := s.byID[id]; taken {
		s.mu.Unlock()
		s.logger.Error("wallet id collision", slog.String("wallet_id", id), slog.String("owner_id", ownerID))
		return nil, ErrDuplicateWalletID
	}

	opening := s.seeder.OpeningBalance(ownerID)
	if opening.IsNegative() {
		s.logger.Warn("seeder returned negative opening balance, using zero",
			slog.String("owner_id", ownerID), slog.String("opening", opening.String()))
		opening = decimal.Zero
	}

	w = &Wallet{
		ID:        id,
		OwnerID:   ownerID,
		Name:      s.opts.Name,
		Currency:  s.opts.Currency,
		CreatedAt: s.clock.Now(),
		balance:   opening,
	}
	s.byOwner[ownerID] = w
	s.byID[id] = w
	s.order = append(s.order, w)
	snap := w.snapshot()
	s.mu.Unlock()

	s.logger.Info("wallet provisioned",
		slog.String("wallet_id", snap.ID),
		slog.String("owner_id", ownerID),
		slog.String("opening_balance", snap.Balance.String()),
	)
	for _, l := range s.listeners {
		l.WalletProvisioned(ctx, snap)
	}
	return w, nil
}

// Lookup returns an existing wallet without provisioning.
func (s *Store) Lookup(_ context.Context, ownerID string) (*Wallet, error) {
	if err := validOwner(ownerID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.byOwner[ownerID]
	if !ok {
		return nil, ErrWalletNotFound
	}
	return w, nil
}

// ProvisionsOnAccess reports whether Resolve creates wallets for unknown owners.
func (s *Store) ProvisionsOnAccess() bool {
	return !s.opts.DisableProvisioning
}

// All snapshots every wallet in provisioning order.
func (s *Store) All(_ context.Context) []Snapshot {
	s.mu.RLock()
	wallets := make([]*Wallet, len(s.order))
	copy(wallets, s.order)
	s.mu.RUnlock()

	out := make([]Snapshot, 0, len(wallets))
	for _, w := range wallets {
		out = append(out, w.Snapshot())
	}
	return out
}

// Len returns the number of provisioned wallets.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

func validOwner(ownerID string) error {
	if ownerID == "" || ownerID == ledger.SystemActor {
		return fmt.Errorf("%w: %q", ErrInvalidOwner, ownerID)
	}
	return nil
}
