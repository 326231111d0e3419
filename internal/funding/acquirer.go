package funding

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	decisionApproved = "approved"
	decisionDeclined = "declined"
)

// Acquirer represents a connector to an external card processor.
type Acquirer interface {
	AuthorizeCardIn(ctx context.Context, input CardInAuthorization) (AuthorizationDecision, error)
	AuthorizeCardOut(ctx context.Context, input CardOutAuthorization) (AuthorizationDecision, error)
}

// AuthorizationDecision captures the acquirer response.
type AuthorizationDecision struct {
	Reference string
	Status    string
}

// Approved reports whether the acquirer accepted the request.
func (d AuthorizationDecision) Approved() bool {
	return d.Status == decisionApproved
}

// CardInAuthorization carries the details of a card top-up.
type CardInAuthorization struct {
	CardNumber string
	Expiry     string
	CVV        string
	Amount     decimal.Decimal
	Currency   string
}

// CardOutAuthorization carries the details of a push-to-card payout.
type CardOutAuthorization struct {
	CardNumber string
	Amount     decimal.Decimal
	Currency   string
}

// StaticAcquirer simulates an acquirer that approves every request.
type StaticAcquirer struct{}

// AuthorizeCardIn approves the funding request with a synthetic reference.
func (StaticAcquirer) AuthorizeCardIn(_ context.Context, _ CardInAuthorization) (AuthorizationDecision, error) {
	return AuthorizationDecision{Reference: uuid.NewString(), Status: decisionApproved}, nil
}

// AuthorizeCardOut approves the payout request with a synthetic reference.
func (StaticAcquirer) AuthorizeCardOut(_ context.Context, _ CardOutAuthorization) (AuthorizationDecision, error) {
	return AuthorizationDecision{Reference: uuid.NewString(), Status: decisionApproved}, nil
}
