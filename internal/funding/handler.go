package funding

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/walletledger/internal/payments"
)

// Handler exposes HTTP endpoints for card funding flows.
type Handler struct {
	service *Service
}

// NewHandler constructs a funding handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// CardIn tops up the caller's wallet from a card.
func (h *Handler) CardIn(c *fiber.Ctx) error {
	ownerID, _ := c.Locals("user_id").(string)
	if ownerID == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	var req CardInRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	result, err := h.service.CardIn(c.UserContext(), CardInInput{
		OwnerID:    ownerID,
		Amount:     req.Amount,
		CardNumber: req.CardNumber,
		Expiry:     req.Expiry,
		CVV:        req.CVV,
	})
	if err != nil {
		return statusError(err)
	}
	return c.Status(http.StatusCreated).JSON(toResponse(result))
}

// CardOut withdraws from the caller's wallet to a card.
func (h *Handler) CardOut(c *fiber.Ctx) error {
	ownerID, _ := c.Locals("user_id").(string)
	if ownerID == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	var req CardOutRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	result, err := h.service.CardOut(c.UserContext(), CardOutInput{
		OwnerID:    ownerID,
		Amount:     req.Amount,
		CardNumber: req.CardNumber,
	})
	if err != nil {
		return statusError(err)
	}
	return c.Status(http.StatusCreated).JSON(toResponse(result))
}

func statusError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidCard):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrDeclined):
		return fiber.NewError(http.StatusPaymentRequired, err.Error())
	default:
		return payments.StatusError(err)
	}
}

func toResponse(result Result) FundingResponse {
	return FundingResponse{
		Transaction:       result.Transaction,
		AcquirerReference: result.AcquirerReference,
		CardLast4:         result.CardLast4,
	}
}
