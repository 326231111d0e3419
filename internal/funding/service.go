package funding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/walletledger/internal/ledger"
)

var (
	// ErrInvalidCard reports a card number that fails format or checksum validation.
	ErrInvalidCard = errors.New("invalid card number")
	// ErrDeclined reports an acquirer refusal.
	ErrDeclined = errors.New("card authorization declined")
)

// Mover is the slice of the transfer engine card funding needs.
type Mover interface {
	Credit(ctx context.Context, ownerID string, amount decimal.Decimal, description string) (ledger.Transaction, error)
	Debit(ctx context.Context, ownerID string, amount decimal.Decimal, description string) (ledger.Transaction, error)
}

// Service coordinates card top-ups and payouts between the acquirer and the
// wallet engine.
type Service struct {
	mover    Mover
	acquirer Acquirer
	currency string
	logger   *slog.Logger
}

// NewService builds a funding service. A nil acquirer approves everything.
func NewService(mover Mover, acquirer Acquirer, currency string, logger *slog.Logger) *Service {
	if acquirer == nil {
		acquirer = StaticAcquirer{}
	}
	return &Service{mover: mover, acquirer: acquirer, currency: currency, logger: logger}
}

// CardInInput captures the data for a card top-up.
type CardInInput struct {
	OwnerID    string
	Amount     decimal.Decimal
	CardNumber string
	Expiry     string
	CVV        string
}

// CardOutInput captures the data for a card payout.
type CardOutInput struct {
	OwnerID    string
	Amount     decimal.Decimal
	CardNumber string
}

// Result is the outcome of a card operation.
type Result struct {
	Transaction       ledger.Transaction
	AcquirerReference string
	CardLast4         string
}

// CardIn authorizes the card, then credits the owner's wallet.
func (s *Service) CardIn(ctx context.Context, in CardInInput) (Result, error) {
	card, err := normalizeCard(in.CardNumber)
	if err != nil {
		return Result{}, err
	}
	if !in.Amount.IsPositive() {
		// Let the engine report the canonical error kind.
		_, err := s.mover.Credit(ctx, in.OwnerID, in.Amount, "")
		return Result{}, err
	}

	decision, err := s.acquirer.AuthorizeCardIn(ctx, CardInAuthorization{
		CardNumber: card, Expiry: in.Expiry, CVV: in.CVV, Amount: in.Amount, Currency: s.currency,
	})
	if err != nil {
		return Result{}, fmt.Errorf("authorize card in: %w", err)
	}
	if !decision.Approved() {
		return Result{}, ErrDeclined
	}

	tx, err := s.mover.Credit(ctx, in.OwnerID, in.Amount, "Card top-up "+mask(card))
	if err != nil {
		// Authorized but not booked; the acquirer hold must be voided.
		s.logger.Error("card top-up not booked", slog.String("owner_id", in.OwnerID),
			slog.String("acquirer_reference", decision.Reference), slog.Any("error", err))
		return Result{}, err
	}
	return Result{Transaction: tx, AcquirerReference: decision.Reference, CardLast4: last4(card)}, nil
}

// CardOut debits the owner's wallet, then asks the acquirer to push the funds.
// A declined payout is reversed with a compensating credit.
func (s *Service) CardOut(ctx context.Context, in CardOutInput) (Result, error) {
	card, err := normalizeCard(in.CardNumber)
	if err != nil {
		return Result{}, err
	}

	tx, err := s.mover.Debit(ctx, in.OwnerID, in.Amount, "Card payout "+mask(card))
	if err != nil {
		return Result{Transaction: tx}, err
	}

	decision, err := s.acquirer.AuthorizeCardOut(ctx, CardOutAuthorization{CardNumber: card, Amount: in.Amount, Currency: s.currency})
	if err == nil && decision.Approved() {
		return Result{Transaction: tx, AcquirerReference: decision.Reference, CardLast4: last4(card)}, nil
	}

	if _, rerr := s.mover.Credit(ctx, in.OwnerID, in.Amount, "Card payout reversal "+tx.ID); rerr != nil {
		s.logger.Error("card payout reversal failed", slog.String("owner_id", in.OwnerID),
			slog.String("transaction_id", tx.ID), slog.Any("error", rerr))
	}
	if err != nil {
		return Result{}, fmt.Errorf("authorize card out: %w", err)
	}
	return Result{}, ErrDeclined
}

func normalizeCard(card string) (string, error) {
	digits := strings.NewReplacer(" ", "", "-", "").Replace(card)
	if len(digits) < 12 || len(digits) > 19 {
		return "", fmt.Errorf("%w: must be between 12 and 19 digits", ErrInvalidCard)
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("%w: must be numeric", ErrInvalidCard)
		}
	}
	if !luhn(digits) {
		return "", fmt.Errorf("%w: checksum mismatch", ErrInvalidCard)
	}
	return digits, nil
}

func luhn(digits string) bool {
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

func last4(card string) string {
	return card[len(card)-4:]
}

func mask(card string) string {
	return "****" + last4(card)
}
