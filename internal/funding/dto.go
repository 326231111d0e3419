package funding

import (
	"github.com/shopspring/decimal"

	"github.com/congo-pay/walletledger/internal/ledger"
)

// CardInRequest funds the caller's wallet from a card.
type CardInRequest struct {
	CardNumber string          `json:"card_number"`
	Expiry     string          `json:"expiry"`
	CVV        string          `json:"cvv"`
	Amount     decimal.Decimal `json:"amount"`
}

// CardOutRequest pushes funds from the caller's wallet to a card.
type CardOutRequest struct {
	CardNumber string          `json:"card_number"`
	Amount     decimal.Decimal `json:"amount"`
}

// FundingResponse is returned by both card endpoints.
type FundingResponse struct {
	Transaction       ledger.Transaction `json:"transaction"`
	AcquirerReference string             `json:"acquirer_reference"`
	CardLast4         string             `json:"card_last4"`
}
