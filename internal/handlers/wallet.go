package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ritz541/iamwheel/internal/logger"
	"github.com/ritz541/iamwheel/internal/models"
	"github.com/ritz541/iamwheel/internal/services"
)

type WalletHandler struct {
	accounts *services.AccountService
	ledger   *services.Ledger
}

func NewWalletHandler(accounts *services.AccountService, ledger *services.Ledger) *WalletHandler {
	return &WalletHandler{
		accounts: accounts,
		ledger:   ledger,
	}
}

func (h *WalletHandler) GetWallet(c *gin.Context) {
	userID := c.GetString("user_id")

	user, err := h.accounts.GetByID(c.Request.Context(), userID)
	if err != nil {
		logger.Errorf("failed to load wallet: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load wallet"})
		return
	}

	history, err := h.ledger.History(c.Request.Context(), userID, 50)
	if err != nil {
		logger.Errorf("failed to load transactions: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load transactions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"balance":      user.Balance,
		"transactions": history,
	})
}

// RequestDeposit validates bounds and records a pending deposit. Nothing
// is credited until an admin approves.
func (h *WalletHandler) RequestDeposit(c *gin.Context) {
	var req models.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount is required"})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetString("user_id")
	entry, err := h.ledger.RequestDeposit(c.Request.Context(), userID, req.Amount)
	if err != nil {
		logger.Errorf("deposit request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "deposit request failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "deposit request submitted, an admin will verify it",
		"transaction": entry,
	})
}

// RequestWithdrawal validates bounds and debits the wallet eagerly; the
// amount comes back only if an admin rejects the request.
func (h *WalletHandler) RequestWithdrawal(c *gin.Context) {
	var req models.WithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount and bank details are required"})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetString("user_id")
	bank := models.BankDetails{
		AccountNumber: req.BankAccount,
		IFSCCode:      req.IFSCCode,
		AccountHolder: req.AccountHolder,
	}

	entry, err := h.ledger.RequestWithdrawal(c.Request.Context(), userID, req.Amount, bank)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInsufficientFunds):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrAccountBlocked):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		default:
			logger.Errorf("withdrawal request failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "withdrawal request failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "withdrawal request submitted",
		"transaction": entry,
	})
}
