package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/congo-pay/walletledger/internal/ledger"
	"github.com/congo-pay/walletledger/internal/worker"
)

const (
	// KindTransferReceived tells a receiver that funds arrived.
	KindTransferReceived = "transfer_received"
	// KindTransferSent confirms a completed transfer to its sender.
	KindTransferSent = "transfer_sent"
	// KindTransferFailed tells a sender that a transfer was refused.
	KindTransferFailed = "transfer_failed"
)

// Message describes a notification payload.
type Message struct {
	Kind        string
	Destination string
	Body        string
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the structured logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification", "kind", message.Kind, "destination", message.Destination, "body", message.Body)
	return nil
}

// TransferNotifier turns transfer records into messages for both parties.
// Delivery runs on the worker pool, never on the caller's goroutine.
type TransferNotifier struct {
	notifier Notifier
	pool     *worker.Pool
	logger   *slog.Logger
}

// NewTransferNotifier constructs a transfer listener.
func NewTransferNotifier(notifier Notifier, pool *worker.Pool, logger *slog.Logger) *TransferNotifier {
	return &TransferNotifier{notifier: notifier, pool: pool, logger: logger}
}

// TransactionRecorded queues notifications for transfer records. Credits and
// debits are not announced.
func (t *TransferNotifier) TransactionRecorded(_ context.Context, tx ledger.Transaction) {
	if tx.Type != ledger.TypeTransfer {
		return
	}
	for _, msg := range messagesFor(tx) {
		msg := msg
		err := t.pool.TrySubmit(func() {
			if err := t.notifier.Send(context.Background(), msg); err != nil {
				t.logger.Warn("notification failed", "kind", msg.Kind, "destination", msg.Destination, "error", err)
			}
		})
		if err != nil {
			t.logger.Warn("notification dropped", "kind", msg.Kind, "transaction_id", tx.ID, "error", err)
		}
	}
}

func messagesFor(tx ledger.Transaction) []Message {
	amount := tx.Amount.StringFixed(2)
	if tx.Status == ledger.StatusFailed {
		return []Message{{
			Kind:        KindTransferFailed,
			Destination: tx.SenderID,
			Body:        fmt.Sprintf("transfer %s of %s to %s was refused", tx.ID, amount, tx.ReceiverID),
		}}
	}
	return []Message{
		{
			Kind:        KindTransferSent,
			Destination: tx.SenderID,
			Body:        fmt.Sprintf("you sent %s to %s", amount, tx.ReceiverID),
		},
		{
			Kind:        KindTransferReceived,
			Destination: tx.ReceiverID,
			Body:        fmt.Sprintf("you received %s from %s", amount, tx.SenderID),
		},
	}
}
