package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/walletledger/internal/identity"
	"github.com/congo-pay/walletledger/internal/middleware"
	"github.com/congo-pay/walletledger/internal/payments"
	"github.com/congo-pay/walletledger/internal/wallet"
)

// RegisterTransactionRoutes wires the caller's transaction history.
func RegisterTransactionRoutes(r fiber.Router, h *payments.Handler) {
	r.Get("/transactions", h.History)
	r.Get("/transactions/:transactionId", h.Get)
}

// RegisterAdminRoutes wires inspection endpoints for the admin role.
func RegisterAdminRoutes(r fiber.Router, w *wallet.Handler, p *payments.Handler, ids *identity.Handler) {
	admin := r.Group("/admin", middleware.RequireRole(identity.RoleAdmin))
	admin.Get("/wallets", w.List)
	admin.Get("/transactions", p.All)
	admin.Get("/transactions/type/:type", p.ByType)
	admin.Get("/users", ids.List)
}
