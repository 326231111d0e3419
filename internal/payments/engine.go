package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/walletledger/internal/clock"
	"github.com/congo-pay/walletledger/internal/idgen"
	"github.com/congo-pay/walletledger/internal/ledger"
	"github.com/congo-pay/walletledger/internal/logging"
	"github.com/congo-pay/walletledger/internal/metrics"
	"github.com/congo-pay/walletledger/internal/wallet"
)

var (
	// ErrInvalidAmount rejects amounts that are not positive, carry more than
	// two decimal places, or exceed the engine's maximum.
	ErrInvalidAmount = errors.New("amount must be positive with at most two decimal places and within the limit")

	// ErrInsufficientFunds means the source wallet cannot cover the amount.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrSelfTransfer rejects transfers whose sender and receiver are the same owner.
	ErrSelfTransfer = errors.New("sender and receiver must differ")

	// ErrDepositRefused is returned when the receiving account's capability
	// check rejects an otherwise valid deposit.
	ErrDepositRefused = errors.New("deposit refused by receiving account")
)

// DefaultMaxAmount caps a single movement when Deps.MaxAmount is unset.
var DefaultMaxAmount = decimal.NewFromInt(1_000_000_000)

const (
	// amountScale is the number of decimal places an amount may carry.
	amountScale = 2
	// maxExponent rejects huge exponents before any comparison rescales them.
	maxExponent = 18
)

const (
	defaultCreditDescription   = "Funds added to wallet"
	defaultDebitDescription    = "Funds withdrawn from wallet"
	defaultTransferDescription = "Fund transfer"
)

const (
	reasonInvalidAmount     = "invalid_amount"
	reasonInsufficientFunds = "insufficient_funds"
	reasonSelfTransfer      = "self_transfer"
	reasonDepositRefused    = "deposit_refused"
	reasonWallet            = "wallet_unavailable"
)

// FailurePolicy decides what the ledger keeps for refused operations.
type FailurePolicy int

const (
	// OmitFailures keeps the ledger a record of actual movements only.
	OmitFailures FailurePolicy = iota
	// RecordFailures appends a FAILED record for operations refused by a
	// balance rule. Malformed requests are never recorded.
	RecordFailures
)

// Listener is told about every record the engine appends. It runs after all
// wallet locks are released and must not block.
type Listener interface {
	TransactionRecorded(ctx context.Context, tx ledger.Transaction)
}

// Deps wires the engine's collaborators. Wallets and Ledger are required.
type Deps struct {
	Wallets   *wallet.Store
	Ledger    ledger.Ledger
	IDs       idgen.Generator
	Clock     clock.Clock
	Logger    *slog.Logger
	Metrics   metrics.Recorder
	Policy    FailurePolicy
	// MaxAmount bounds a single credit, debit or transfer. Zero means DefaultMaxAmount.
	MaxAmount decimal.Decimal
}

// Engine applies credits, debits and transfers. Each operation either
// mutates balances and appends exactly one COMPLETED record, or returns an
// error having mutated nothing.
//
// Locking: one wallet lock for credit/debit; for transfers both locks,
// always taken in ascending wallet id order. The ledger append happens while
// the locks are held, before the balances change, so a failed append leaves
// no trace.
type Engine struct {
	wallets   *wallet.Store
	ledger    ledger.Ledger
	ids       idgen.Generator
	clock     clock.Clock
	logger    *slog.Logger
	metrics   metrics.Recorder
	policy    FailurePolicy
	maxAmount decimal.Decimal
	listeners []Listener
}

// NewEngine builds an engine, filling optional dependencies with defaults.
func NewEngine(d Deps) *Engine {
	if d.IDs == nil {
		d.IDs = idgen.NewUUID()
	}
	if d.Clock == nil {
		d.Clock = clock.NewSystem()
	}
	if d.Logger == nil {
		d.Logger = logging.Discard()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.Nop{}
	}
	if !d.MaxAmount.IsPositive() {
		d.MaxAmount = DefaultMaxAmount
	}
	return &Engine{
		wallets:   d.Wallets,
		ledger:    d.Ledger,
		ids:       d.IDs,
		clock:     d.Clock,
		logger:    d.Logger,
		metrics:   d.Metrics,
		policy:    d.Policy,
		maxAmount: d.MaxAmount,
	}
}

// Subscribe adds a listener. Not safe to call concurrently with operations.
func (e *Engine) Subscribe(l Listener) {
	e.listeners = append(e.listeners, l)
}

// Credit adds amount to the owner's wallet, value entering from the system actor.
func (e *Engine) Credit(ctx context.Context, ownerID string, amount decimal.Decimal, description string) (ledger.Transaction, error) {
	const op = "payments.Credit"
	if !e.validAmount(amount) {
		return e.reject(ledger.TypeCredit, reasonInvalidAmount, ErrInvalidAmount)
	}

	w, err := e.wallets.Resolve(ctx, ownerID)
	if err != nil {
		return e.walletFailure(op, ledger.TypeCredit, ownerID, err)
	}

	w.Lock()
	if !w.CanDeposit(amount) {
		w.Unlock()
		return e.reject(ledger.TypeCredit, reasonDepositRefused, ErrDepositRefused)
	}
	tx := e.newRecord(ledger.TypeCredit, ledger.SystemActor, ownerID, amount, description, ledger.StatusCompleted)
	stored, err := e.ledger.Append(ctx, tx)
	if err != nil {
		w.Unlock()
		return ledger.Transaction{}, e.consistency(op, err, slog.String("transaction_id", tx.ID), slog.String("wallet_id", w.ID))
	}
	err = w.Deposit(amount)
	w.Unlock()
	if err != nil {
		return ledger.Transaction{}, e.consistency(op, err, slog.String("transaction_id", stored.ID), slog.String("wallet_id", w.ID))
	}

	e.recorded(ctx, stored)
	return stored, nil
}

// Debit removes amount from the owner's wallet, value leaving to the system actor.
func (e *Engine) Debit(ctx context.Context, ownerID string, amount decimal.Decimal, description string) (ledger.Transaction, error) {
	const op = "payments.Debit"
	if !e.validAmount(amount) {
		return e.reject(ledger.TypeDebit, reasonInvalidAmount, ErrInvalidAmount)
	}

	w, err := e.wallets.Resolve(ctx, ownerID)
	if err != nil {
		return e.walletFailure(op, ledger.TypeDebit, ownerID, err)
	}

	w.Lock()
	if !w.CanWithdraw(amount) {
		return e.insufficient(ctx, op, ledger.TypeDebit, ownerID, ledger.SystemActor, amount, description, w.Unlock)
	}
	tx := e.newRecord(ledger.TypeDebit, ownerID, ledger.SystemActor, amount, description, ledger.StatusCompleted)
	stored, err := e.ledger.Append(ctx, tx)
	if err != nil {
		w.Unlock()
		return ledger.Transaction{}, e.consistency(op, err, slog.String("transaction_id", tx.ID), slog.String("wallet_id", w.ID))
	}
	err = w.Withdraw(amount)
	w.Unlock()
	if err != nil {
		return ledger.Transaction{}, e.consistency(op, err, slog.String("transaction_id", stored.ID), slog.String("wallet_id", w.ID))
	}

	e.recorded(ctx, stored)
	return stored, nil
}

// Transfer moves amount from sender to receiver atomically.
func (e *Engine) Transfer(ctx context.Context, senderID, receiverID string, amount decimal.Decimal, description string) (ledger.Transaction, error) {
	const op = "payments.Transfer"
	if senderID == receiverID {
		return e.reject(ledger.TypeTransfer, reasonSelfTransfer, ErrSelfTransfer)
	}
	if !e.validAmount(amount) {
		return e.reject(ledger.TypeTransfer, reasonInvalidAmount, ErrInvalidAmount)
	}

	from, err := e.wallets.Resolve(ctx, senderID)
	if err != nil {
		return e.walletFailure(op, ledger.TypeTransfer, senderID, err)
	}
	to, err := e.wallets.Lookup(ctx, receiverID)
	if errors.Is(err, wallet.ErrWalletNotFound) && e.wallets.ProvisionsOnAccess() {
		// An unknown receiver is provisioned only once the sender can cover the amount.
		from.Lock()
		if !from.CanWithdraw(amount) {
			return e.insufficient(ctx, op, ledger.TypeTransfer, senderID, receiverID, amount, description, from.Unlock)
		}
		from.Unlock()
		to, err = e.wallets.Resolve(ctx, receiverID)
	}
	if err != nil {
		return e.walletFailure(op, ledger.TypeTransfer, receiverID, err)
	}

	first, second, err := lockOrder(from, to)
	if err != nil {
		return ledger.Transaction{}, e.consistency(op, err,
			slog.String("sender_wallet_id", from.ID), slog.String("receiver_wallet_id", to.ID))
	}
	first.Lock()
	second.Lock()
	unlock := func() {
		second.Unlock()
		first.Unlock()
	}

	if !from.CanWithdraw(amount) {
		return e.insufficient(ctx, op, ledger.TypeTransfer, senderID, receiverID, amount, description, unlock)
	}
	if !to.CanDeposit(amount) {
		unlock()
		return e.reject(ledger.TypeTransfer, reasonDepositRefused, ErrDepositRefused)
	}

	tx := e.newRecord(ledger.TypeTransfer, senderID, receiverID, amount, description, ledger.StatusCompleted)
	stored, err := e.ledger.Append(ctx, tx)
	if err != nil {
		unlock()
		return ledger.Transaction{}, e.consistency(op, err, slog.String("transaction_id", tx.ID))
	}
	werr := from.Withdraw(amount)
	derr := to.Deposit(amount)
	unlock()
	if err := errors.Join(werr, derr); err != nil {
		return ledger.Transaction{}, e.consistency(op, err, slog.String("transaction_id", stored.ID))
	}

	e.recorded(ctx, stored)
	return stored, nil
}

// ResolveWallet returns a snapshot of the owner's wallet, provisioning it if needed.
func (e *Engine) ResolveWallet(ctx context.Context, ownerID string) (wallet.Snapshot, error) {
	w, err := e.wallets.Resolve(ctx, ownerID)
	if err != nil {
		return wallet.Snapshot{}, err
	}
	return w.Snapshot(), nil
}

// HistoryFor lists the owner's transactions, newest first.
func (e *Engine) HistoryFor(ctx context.Context, ownerID string, filter ledger.HistoryFilter) ([]ledger.Transaction, error) {
	return e.ledger.HistoryFor(ctx, ownerID, filter)
}

// GetTransaction looks a record up by id.
func (e *Engine) GetTransaction(ctx context.Context, id string) (ledger.Transaction, error) {
	return e.ledger.Get(ctx, id)
}

// AllWallets snapshots every wallet.
func (e *Engine) AllWallets(ctx context.Context) []wallet.Snapshot {
	return e.wallets.All(ctx)
}

// AllTransactions returns the full ledger, newest first.
func (e *Engine) AllTransactions(ctx context.Context) ([]ledger.Transaction, error) {
	return e.ledger.All(ctx)
}

// TransactionsByType returns records of one type, newest first.
func (e *Engine) TransactionsByType(ctx context.Context, t ledger.Type) ([]ledger.Transaction, error) {
	return e.ledger.ByType(ctx, t)
}

// lockOrder sorts two distinct wallets by id.
func lockOrder(a, b *wallet.Wallet) (*wallet.Wallet, *wallet.Wallet, error) {
	switch {
	case a == b || a.ID == b.ID:
		return nil, nil, fmt.Errorf("%w: owners %s and %s share wallet %s", ledger.ErrInternalConsistency, a.OwnerID, b.OwnerID, a.ID)
	case a.ID < b.ID:
		return a, b, nil
	default:
		return b, a, nil
	}
}

func (e *Engine) newRecord(t ledger.Type, sender, receiver string, amount decimal.Decimal, description string, status ledger.Status) ledger.Transaction {
	description = strings.TrimSpace(description)
	if description == "" {
		switch t {
		case ledger.TypeCredit:
			description = defaultCreditDescription
		case ledger.TypeDebit:
			description = defaultDebitDescription
		case ledger.TypeTransfer:
			description = defaultTransferDescription
		}
	}
	return ledger.Transaction{
		ID:          e.ids.New(idgen.KindTransaction),
		SenderID:    sender,
		ReceiverID:  receiver,
		Amount:      amount,
		Type:        t,
		Status:      status,
		Description: description,
		Timestamp:   e.clock.Now(),
	}
}

// validAmount accepts positive amounts of at most two decimal places that
// do not exceed the configured maximum.
func (e *Engine) validAmount(amount decimal.Decimal) bool {
	exp := amount.Exponent()
	return amount.IsPositive() &&
		exp >= -amountScale && exp <= maxExponent &&
		amount.LessThanOrEqual(e.maxAmount)
}

// insufficient refuses an operation the source wallet cannot cover. Caller
// holds the locks and unlock releases them.
func (e *Engine) insufficient(ctx context.Context, op string, t ledger.Type, sender, receiver string, amount decimal.Decimal, description string, unlock func()) (ledger.Transaction, error) {
	failed, err := e.recordFailure(ctx, op, t, sender, receiver, amount, description)
	unlock()
	if err != nil {
		return ledger.Transaction{}, err
	}
	e.afterFailure(ctx, failed)
	return e.rejectWith(failed, t, reasonInsufficientFunds, ErrInsufficientFunds)
}

// recordFailure appends a FAILED record when the policy asks for it. Caller
// holds the wallet locks. The zero Transaction means nothing was recorded.
func (e *Engine) recordFailure(ctx context.Context, op string, t ledger.Type, sender, receiver string, amount decimal.Decimal, description string) (ledger.Transaction, error) {
	if e.policy != RecordFailures {
		return ledger.Transaction{}, nil
	}
	tx := e.newRecord(t, sender, receiver, amount, description, ledger.StatusFailed)
	stored, err := e.ledger.Append(ctx, tx)
	if err != nil {
		return ledger.Transaction{}, e.consistency(op, err, slog.String("transaction_id", tx.ID))
	}
	return stored, nil
}

func (e *Engine) afterFailure(ctx context.Context, failed ledger.Transaction) {
	if failed.ID == "" {
		return
	}
	e.recorded(ctx, failed)
}

func (e *Engine) recorded(ctx context.Context, tx ledger.Transaction) {
	e.metrics.TransactionRecorded(tx.Type, tx.Status)
	e.logger.Debug("transaction recorded",
		slog.String("transaction_id", tx.ID),
		slog.String("type", string(tx.Type)),
		slog.String("status", string(tx.Status)),
		slog.String("amount", tx.Amount.String()),
	)
	for _, l := range e.listeners {
		l.TransactionRecorded(ctx, tx)
	}
}

func (e *Engine) reject(t ledger.Type, reason string, err error) (ledger.Transaction, error) {
	return e.rejectWith(ledger.Transaction{}, t, reason, err)
}

func (e *Engine) rejectWith(tx ledger.Transaction, t ledger.Type, reason string, err error) (ledger.Transaction, error) {
	e.metrics.TransactionRejected(t, reason)
	return tx, err
}

func (e *Engine) walletFailure(op string, t ledger.Type, ownerID string, err error) (ledger.Transaction, error) {
	if errors.Is(err, ledger.ErrInternalConsistency) {
		return ledger.Transaction{}, e.consistency(op, err, slog.String("owner_id", ownerID))
	}
	e.metrics.TransactionRejected(t, reasonWallet)
	return ledger.Transaction{}, fmt.Errorf("%s: %w", op, err)
}

// consistency logs a broken invariant loudly and wraps it for the caller.
func (e *Engine) consistency(op string, err error, attrs ...any) error {
	e.metrics.InternalConsistency(op)
	args := append([]any{slog.String("op", op), slog.Any("error", err)}, attrs...)
	e.logger.Error("internal consistency violation", args...)
	if !errors.Is(err, ledger.ErrInternalConsistency) {
		err = fmt.Errorf("%w: %w", ledger.ErrInternalConsistency, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
