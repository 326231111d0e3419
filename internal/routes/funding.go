package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/walletledger/internal/funding"
)

// RegisterFundingRoutes wires card top-up and payout endpoints.
func RegisterFundingRoutes(r fiber.Router, h *funding.Handler) {
	r.Post("/wallet/fund/card", h.CardIn)
	r.Post("/wallet/withdraw/card", h.CardOut)
}
