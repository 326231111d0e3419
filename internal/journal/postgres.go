package journal

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/congo-pay/walletledger/internal/ledger"
	"github.com/congo-pay/walletledger/internal/wallet"
)

// Postgres writes wallets and ledger records to PostgreSQL. Writes are
// idempotent on the record id so a replayed job is harmless.
type Postgres struct {
	db *pgxpool.Pool
}

// NewPostgres constructs a Postgres-backed journal store.
func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{db: db}
}

// SaveWallet records a newly provisioned wallet.
func (p *Postgres) SaveWallet(ctx context.Context, w wallet.Snapshot) error {
	_, err := p.db.Exec(ctx, `INSERT INTO wallets (id, owner_id, name, currency, opening_balance, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (id) DO NOTHING`,
		w.ID, w.OwnerID, w.Name, w.Currency, w.Balance.String(), w.CreatedAt)
	return err
}

// SaveTransaction records one ledger entry.
func (p *Postgres) SaveTransaction(ctx context.Context, tx ledger.Transaction) error {
	_, err := p.db.Exec(ctx, `INSERT INTO transactions (id, seq, sender_id, receiver_id, amount, type, status, description, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        ON CONFLICT (id) DO NOTHING`,
		tx.ID, int64(tx.Seq), tx.SenderID, tx.ReceiverID, tx.Amount.String(),
		string(tx.Type), string(tx.Status), tx.Description, tx.Timestamp)
	return err
}
