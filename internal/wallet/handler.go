package wallet

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	store *Store
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

// Me returns the authenticated owner's wallet, provisioning it on first access.
func (h *Handler) Me(c *fiber.Ctx) error {
	ownerID, _ := c.Locals("user_id").(string)
	if ownerID == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	w, err := h.store.Resolve(c.UserContext(), ownerID)
	if err != nil {
		return StatusError(err)
	}
	return c.Status(http.StatusOK).JSON(w.Snapshot())
}

// List returns every wallet. Admin only.
func (h *Handler) List(c *fiber.Ctx) error {
	wallets := h.store.All(c.UserContext())
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"count":   len(wallets),
		"wallets": wallets,
	})
}

// StatusError maps store errors onto HTTP errors.
func StatusError(err error) error {
	switch {
	case errors.Is(err, ErrWalletNotFound):
		return fiber.NewError(http.StatusNotFound, "wallet not found")
	case errors.Is(err, ErrInvalidOwner):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, "internal error")
	}
}
