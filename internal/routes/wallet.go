package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/walletledger/internal/payments"
	"github.com/congo-pay/walletledger/internal/wallet"
)

// RegisterWalletRoutes wires the caller's wallet and money movement.
func RegisterWalletRoutes(r fiber.Router, w *wallet.Handler, p *payments.Handler) {
	r.Get("/wallet", w.Me)
	r.Post("/wallet/funds", p.AddFunds)
	r.Post("/wallet/withdraw", p.Withdraw)
	r.Post("/wallet/transfer", p.Transfer)
}
