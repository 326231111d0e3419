package journal

import (
	"context"
	"log/slog"
	"time"

	"github.com/congo-pay/walletledger/internal/ledger"
	"github.com/congo-pay/walletledger/internal/wallet"
	"github.com/congo-pay/walletledger/internal/worker"
)

const defaultWriteTimeout = 5 * time.Second

// Store is the persistence target of a Mirror.
type Store interface {
	SaveWallet(ctx context.Context, w wallet.Snapshot) error
	SaveTransaction(ctx context.Context, tx ledger.Transaction) error
}

// Mirror copies wallet and ledger events to a Store on a worker pool. The
// in-memory ledger stays authoritative; a failed write is logged and dropped.
type Mirror struct {
	store   Store
	pool    *worker.Pool
	logger  *slog.Logger
	timeout time.Duration
}

// NewMirror constructs a mirror that submits writes to pool.
func NewMirror(store Store, pool *worker.Pool, logger *slog.Logger) *Mirror {
	return &Mirror{store: store, pool: pool, logger: logger, timeout: defaultWriteTimeout}
}

// TransactionRecorded queues a ledger record for persistence.
func (m *Mirror) TransactionRecorded(_ context.Context, tx ledger.Transaction) {
	m.submit("transaction", tx.ID, func(ctx context.Context) error {
		return m.store.SaveTransaction(ctx, tx)
	})
}

// WalletProvisioned queues a new wallet for persistence.
func (m *Mirror) WalletProvisioned(_ context.Context, w wallet.Snapshot) {
	m.submit("wallet", w.ID, func(ctx context.Context) error {
		return m.store.SaveWallet(ctx, w)
	})
}

func (m *Mirror) submit(kind, id string, write func(ctx context.Context) error) {
	err := m.pool.TrySubmit(func() {
		// Request contexts are gone by the time the job runs.
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()
		if err := write(ctx); err != nil {
			m.logger.Error("journal write failed", "kind", kind, "id", id, "error", err)
		}
	})
	if err != nil {
		m.logger.Warn("journal write dropped", "kind", kind, "id", id, "error", err)
	}
}
