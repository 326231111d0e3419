package payments

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/congo-pay/walletledger/internal/ledger"
	"github.com/congo-pay/walletledger/internal/wallet"
)

const (
	maxDescriptionLen = 255
	maxHistoryLimit   = 500
	roleAdmin         = "admin"
)

// Handler exposes money movement and transaction history endpoints.
type Handler struct {
	engine *Engine
}

// NewHandler constructs a payment handler.
func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

type amountRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

type transferRequest struct {
	ReceiverID  string          `json:"receiver_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

type movementResponse struct {
	Transaction ledger.Transaction `json:"transaction"`
	Wallet      wallet.Snapshot    `json:"wallet"`
}

// AddFunds credits the caller's wallet.
func (h *Handler) AddFunds(c *fiber.Ctx) error {
	ownerID, err := caller(c)
	if err != nil {
		return err
	}
	var req amountRequest
	if err := parse(c, &req); err != nil {
		return err
	}
	if len(req.Description) > maxDescriptionLen {
		return fiber.NewError(http.StatusBadRequest, "description too long")
	}
	tx, err := h.engine.Credit(c.UserContext(), ownerID, req.Amount, req.Description)
	if err != nil {
		return respondError(c, tx, err)
	}
	return h.movement(c, ownerID, tx)
}

// Withdraw debits the caller's wallet.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	ownerID, err := caller(c)
	if err != nil {
		return err
	}
	var req amountRequest
	if err := parse(c, &req); err != nil {
		return err
	}
	if len(req.Description) > maxDescriptionLen {
		return fiber.NewError(http.StatusBadRequest, "description too long")
	}
	tx, err := h.engine.Debit(c.UserContext(), ownerID, req.Amount, req.Description)
	if err != nil {
		return respondError(c, tx, err)
	}
	return h.movement(c, ownerID, tx)
}

// Transfer moves funds from the caller to receiver_id.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	ownerID, err := caller(c)
	if err != nil {
		return err
	}
	var req transferRequest
	if err := parse(c, &req); err != nil {
		return err
	}
	if req.ReceiverID == "" {
		return fiber.NewError(http.StatusBadRequest, "receiver_id is required")
	}
	if len(req.Description) > maxDescriptionLen {
		return fiber.NewError(http.StatusBadRequest, "description too long")
	}
	tx, err := h.engine.Transfer(c.UserContext(), ownerID, req.ReceiverID, req.Amount, req.Description)
	if err != nil {
		return respondError(c, tx, err)
	}
	return h.movement(c, ownerID, tx)
}

// History lists the caller's transactions, newest first. Optional query
// parameters: type, limit.
func (h *Handler) History(c *fiber.Ctx) error {
	ownerID, err := caller(c)
	if err != nil {
		return err
	}
	var filter ledger.HistoryFilter
	if raw := c.Query("type"); raw != "" {
		t, err := ledger.ParseType(raw)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, "invalid transaction type")
		}
		filter.Type = t
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > maxHistoryLimit {
			return fiber.NewError(http.StatusBadRequest, "limit must be between 1 and 500")
		}
		filter.Limit = limit
	}
	txs, err := h.engine.HistoryFor(c.UserContext(), ownerID, filter)
	if err != nil {
		return StatusError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"owner_id":     ownerID,
		"count":        len(txs),
		"transactions": txs,
	})
}

// Get returns one transaction. Only participants and admins may read it.
func (h *Handler) Get(c *fiber.Ctx) error {
	ownerID, err := caller(c)
	if err != nil {
		return err
	}
	tx, err := h.engine.GetTransaction(c.UserContext(), c.Params("transactionId"))
	if err != nil {
		return StatusError(err)
	}
	role, _ := c.Locals("role").(string)
	if role != roleAdmin && !tx.Involves(ownerID) {
		// Same answer as a missing id so ids cannot be probed.
		return fiber.NewError(http.StatusNotFound, "transaction not found")
	}
	return c.Status(http.StatusOK).JSON(tx)
}

// All returns the full ledger. Admin only.
func (h *Handler) All(c *fiber.Ctx) error {
	txs, err := h.engine.AllTransactions(c.UserContext())
	if err != nil {
		return StatusError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"count": len(txs), "transactions": txs})
}

// ByType returns transactions of one type. Admin only.
func (h *Handler) ByType(c *fiber.Ctx) error {
	t, err := ledger.ParseType(c.Params("type"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid transaction type")
	}
	txs, err := h.engine.TransactionsByType(c.UserContext(), t)
	if err != nil {
		return StatusError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"type": t, "count": len(txs), "transactions": txs})
}

func (h *Handler) movement(c *fiber.Ctx, ownerID string, tx ledger.Transaction) error {
	snap, err := h.engine.ResolveWallet(c.UserContext(), ownerID)
	if err != nil {
		return StatusError(err)
	}
	return c.Status(http.StatusCreated).JSON(movementResponse{Transaction: tx, Wallet: snap})
}

func caller(c *fiber.Ctx) (string, error) {
	ownerID, _ := c.Locals("user_id").(string)
	if ownerID == "" {
		return "", fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	return ownerID, nil
}

func parse(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// respondError reports an engine error. A FAILED record produced under the
// RecordFailures policy is returned alongside the error message.
func respondError(c *fiber.Ctx, failed ledger.Transaction, err error) error {
	if failed.ID == "" {
		return StatusError(err)
	}
	var fe *fiber.Error
	if !errors.As(StatusError(err), &fe) {
		return err
	}
	return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message, "transaction": failed})
}

// StatusError maps engine error kinds onto HTTP errors.
func StatusError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrSelfTransfer):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrInsufficientFunds), errors.Is(err, ErrDepositRefused):
		return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ledger.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, "transaction not found")
	case errors.Is(err, ledger.ErrInternalConsistency):
		return fiber.NewError(http.StatusInternalServerError, "internal error")
	default:
		return wallet.StatusError(err)
	}
}
