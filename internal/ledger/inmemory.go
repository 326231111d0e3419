package ledger

import (
	"cmp"
	"context"
	"slices"
	"sync"
)

type inMemoryLedger struct {
	mu      sync.RWMutex
	records []Transaction // append order; records[i].Seq == i+1
	byID    map[string]int
	byOwner map[string][]int
	byType  map[Type][]int
}

// NewInMemory creates the process-local ledger that is the authority for
// transaction history.
func NewInMemory() Ledger {
	return &inMemoryLedger{
		byID:    make(map[string]int),
		byOwner: make(map[string][]int),
		byType:  make(map[Type][]int),
	}
}

func (l *inMemoryLedger) Append(_ context.Context, tx Transaction) (Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.byID[tx.ID]; exists {
		return Transaction{}, ErrDuplicateID
	}

	idx := len(l.records)
	tx.Seq = uint64(idx + 1)
	l.records = append(l.records, tx)
	l.byID[tx.ID] = idx
	for _, owner := range tx.Participants() {
		l.byOwner[owner] = append(l.byOwner[owner], idx)
	}
	l.byType[tx.Type] = append(l.byType[tx.Type], idx)

	return tx, nil
}

func (l *inMemoryLedger) Get(_ context.Context, id string) (Transaction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	idx, ok := l.byID[id]
	if !ok {
		return Transaction{}, ErrNotFound
	}
	return l.records[idx], nil
}

func (l *inMemoryLedger) HistoryFor(_ context.Context, ownerID string, filter HistoryFilter) ([]Transaction, error) {
	l.mu.RLock()
	out := make([]Transaction, 0, len(l.byOwner[ownerID]))
	for _, idx := range l.byOwner[ownerID] {
		tx := l.records[idx]
		if filter.Type != "" && tx.Type != filter.Type {
			continue
		}
		out = append(out, tx)
	}
	l.mu.RUnlock()

	newestFirst(out)
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (l *inMemoryLedger) All(_ context.Context) ([]Transaction, error) {
	l.mu.RLock()
	out := slices.Clone(l.records)
	l.mu.RUnlock()
	if out == nil {
		out = []Transaction{}
	}
	newestFirst(out)
	return out, nil
}

func (l *inMemoryLedger) ByType(_ context.Context, t Type) ([]Transaction, error) {
	l.mu.RLock()
	out := make([]Transaction, 0, len(l.byType[t]))
	for _, idx := range l.byType[t] {
		out = append(out, l.records[idx])
	}
	l.mu.RUnlock()
	newestFirst(out)
	return out, nil
}

func (l *inMemoryLedger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// newestFirst orders by timestamp descending; equal timestamps fall back to
// append sequence so later appends come first.
func newestFirst(txs []Transaction) {
	slices.SortFunc(txs, func(a, b Transaction) int {
		if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(b.Seq, a.Seq)
	})
}
