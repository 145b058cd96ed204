package web

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/pkbhaiya/ytbulk/ytbulk/database/models"
	"github.com/pkbhaiya/ytbulk/ytbulk/metrics"
)

// GetWallet returns the caller's balance and recent ledger entries.
func (s *Server) GetWallet(c *fiber.Ctx) error {
	wallet, err := s.Wallets.GetOrCreate(c.Context(), UserID(c))
	if err != nil {
		return sendRepoError(c, err)
	}
	txns, err := s.Wallets.Transactions(c.Context(), wallet.ID, c.QueryInt("limit"))
	if err != nil {
		return sendRepoError(c, err)
	}
	return sendSuccess(c, fiber.Map{
		"balance":      wallet.Balance,
		"transactions": viewTransactions(txns),
	})
}

func (s *Server) ListMyWithdrawals(c *fiber.Ctx) error {
	wallet, err := s.Wallets.GetOrCreate(c.Context(), UserID(c))
	if err != nil {
		return sendRepoError(c, err)
	}
	reqs, err := s.Withdrawals.ListForWallet(c.Context(), wallet.ID)
	if err != nil {
		return sendRepoError(c, err)
	}
	return sendSuccess(c, viewWithdrawals(reqs))
}

type createWithdrawalRequest struct {
	Amount        int64  `json:"amount"`
	PayoutAddress string `json:"payout_address"`
}

// CreateWithdrawal places a payout request and holds the amount immediately.
func (s *Server) CreateWithdrawal(c *fiber.Ctx) error {
	var req createWithdrawalRequest
	if err := c.BodyParser(&req); err != nil {
		return sendError(c, http.StatusBadRequest, "invalid request body")
	}
	if req.Amount <= 0 {
		return sendError(c, http.StatusBadRequest, "amount must be positive")
	}
	address := strings.TrimSpace(req.PayoutAddress)
	if address == "" {
		return sendError(c, http.StatusBadRequest, "payout_address is required")
	}

	wr, err := s.Withdrawals.Create(c.Context(), UserID(c), req.Amount, address, s.MinWithdraw)
	if err != nil {
		return sendRepoError(c, err)
	}
	metrics.LedgerCreditsTotal.WithLabelValues(string(models.TxKindWithdrawalHold)).Inc()
	return sendCreated(c, viewWithdrawal(wr))
}

func (s *Server) ListWithdrawals(c *fiber.Ctx) error {
	status := models.WithdrawalStatus(c.Query("status"))
	reqs, err := s.Withdrawals.List(c.Context(), status, c.QueryInt("limit"))
	if err != nil {
		return sendRepoError(c, err)
	}
	return sendSuccess(c, viewWithdrawals(reqs))
}

type adjustWalletRequest struct {
	Amount int64  `json:"amount"`
	Note   string `json:"note"`
}

// AdjustWallet applies a manual correction to a user's balance. The amount is
// signed; the note should say why.
func (s *Server) AdjustWallet(c *fiber.Ctx) error {
	userID := strings.TrimSpace(c.Params("user_id"))
	if userID == "" {
		return sendError(c, http.StatusBadRequest, "invalid user id")
	}

	var req adjustWalletRequest
	if err := c.BodyParser(&req); err != nil {
		return sendError(c, http.StatusBadRequest, "invalid request body")
	}
	if req.Amount == 0 {
		return sendError(c, http.StatusBadRequest, "amount must not be zero")
	}
	if strings.TrimSpace(req.Note) == "" {
		return sendError(c, http.StatusBadRequest, "note is required")
	}

	wallet, err := s.Wallets.GetOrCreate(c.Context(), userID)
	if err != nil {
		return sendRepoError(c, err)
	}
	txn, err := s.Wallets.Apply(c.Context(), wallet.ID, models.TxKindAdminAdjustment, req.Amount, nil, req.Note)
	if err != nil {
		return sendRepoError(c, err)
	}
	metrics.LedgerCreditsTotal.WithLabelValues(string(models.TxKindAdminAdjustment)).Inc()
	return sendCreated(c, viewTransaction(txn))
}

type decideWithdrawalRequest struct {
	Note string `json:"note"`
}

func (s *Server) ApproveWithdrawal(c *fiber.Ctx) error {
	return s.decideWithdrawal(c, true)
}

func (s *Server) RejectWithdrawal(c *fiber.Ctx) error {
	return s.decideWithdrawal(c, false)
}

func (s *Server) decideWithdrawal(c *fiber.Ctx, approve bool) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return sendError(c, http.StatusBadRequest, "invalid withdrawal id")
	}

	var req decideWithdrawalRequest
	_ = c.BodyParser(&req)

	var wr *models.WithdrawalRequest
	if approve {
		wr, err = s.Withdrawals.Approve(c.Context(), int64(id), req.Note)
	} else {
		wr, err = s.Withdrawals.Reject(c.Context(), int64(id), req.Note)
	}
	if err != nil {
		return sendRepoError(c, err)
	}

	kind := models.TxKindWithdrawal
	if !approve {
		kind = models.TxKindReversal
	}
	metrics.LedgerCreditsTotal.WithLabelValues(string(kind)).Inc()

	return sendSuccess(c, viewWithdrawal(wr))
}
