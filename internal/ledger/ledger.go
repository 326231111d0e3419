package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when no transaction has the requested id.
	ErrNotFound = errors.New("transaction not found")

	// ErrInternalConsistency marks a broken invariant (id collision, lock
	// ordering violation). It is never a user error and must be logged.
	ErrInternalConsistency = errors.New("internal consistency violation")

	// ErrDuplicateID reports an append whose id is already stored.
	ErrDuplicateID = fmt.Errorf("%w: duplicate transaction id", ErrInternalConsistency)

	// ErrUnknownType is returned by ParseType for unrecognised type names.
	ErrUnknownType = errors.New("unknown transaction type")
)

// SystemActor is the pseudo-owner on the far side of credits and debits.
const SystemActor = "SYSTEM"

// Type classifies a value movement.
type Type string

const (
	TypeCredit   Type = "CREDIT"
	TypeDebit    Type = "DEBIT"
	TypeTransfer Type = "TRANSFER"
)

// ParseType accepts a type name in any letter case.
func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToUpper(strings.TrimSpace(s))); t {
	case TypeCredit, TypeDebit, TypeTransfer:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
	}
}

// Status is the lifecycle state of a transaction record.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
)

// Terminal reports whether the status is final. Terminal records are write-once.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Transaction is an immutable record of one value movement.
type Transaction struct {
	ID          string          `json:"id"`
	Seq         uint64          `json:"seq"`
	SenderID    string          `json:"sender_id"`
	ReceiverID  string          `json:"receiver_id"`
	Amount      decimal.Decimal `json:"amount"`
	Type        Type            `json:"type"`
	Status      Status          `json:"status"`
	Description string          `json:"description,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
}

// Participants returns the owners indexed for this record, skipping the
// system actor and empty ids.
func (t Transaction) Participants() []string {
	out := make([]string, 0, 2)
	for _, id := range []string{t.SenderID, t.ReceiverID} {
		if id == "" || id == SystemActor {
			continue
		}
		if len(out) == 1 && out[0] == id {
			continue
		}
		out = append(out, id)
	}
	return out
}

// Involves reports whether ownerID sent or received the transaction.
func (t Transaction) Involves(ownerID string) bool {
	for _, id := range t.Participants() {
		if id == ownerID {
			return true
		}
	}
	return false
}

// HistoryFilter narrows an owner's history. The zero value returns everything.
type HistoryFilter struct {
	Type  Type
	Limit int
}

// Ledger is the append-only transaction store. Implementations never update
// or remove a stored record, and return copies so callers cannot either.
type Ledger interface {
	Append(ctx context.Context, tx Transaction) (Transaction, error)
	Get(ctx context.Context, id string) (Transaction, error)
	HistoryFor(ctx context.Context, ownerID string, filter HistoryFilter) ([]Transaction, error)
	All(ctx context.Context) ([]Transaction, error)
	ByType(ctx context.Context, t Type) ([]Transaction, error)
	Len() int
}
