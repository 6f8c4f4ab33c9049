package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ritz541/iamwheel/internal/logger"
	"github.com/ritz541/iamwheel/internal/models"
	"github.com/ritz541/iamwheel/internal/services"
)

type AdminHandler struct {
	accounts *services.AccountService
	ledger   *services.Ledger
}

func NewAdminHandler(accounts *services.AccountService, ledger *services.Ledger) *AdminHandler {
	return &AdminHandler{
		accounts: accounts,
		ledger:   ledger,
	}
}

func (h *AdminHandler) ListTransactions(c *gin.Context) {
	status := models.TransactionStatus(c.DefaultQuery("status", string(models.TransactionStatusPending)))

	entries, err := h.ledger.ListByStatus(c.Request.Context(), status, 100)
	if err != nil {
		logger.Errorf("failed to list transactions: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list transactions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": entries})
}

func (h *AdminHandler) ApproveTransaction(c *gin.Context) {
	entry, err := h.ledger.Approve(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.transactionError(c, err, "approve")
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": "success", "transaction": entry})
}

func (h *AdminHandler) RejectTransaction(c *gin.Context) {
	entry, err := h.ledger.Reject(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.transactionError(c, err, "reject")
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": "success", "transaction": entry})
}

// transactionError maps every admin outcome to an explicit result rather
// than a generic 500.
func (h *AdminHandler) transactionError(c *gin.Context, err error, action string) {
	switch {
	case errors.Is(err, services.ErrTransactionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"result": "not found"})
	case errors.Is(err, services.ErrWrongStatus):
		c.JSON(http.StatusConflict, gin.H{"result": "wrong status"})
	case errors.Is(err, services.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"result": "user not found"})
	default:
		logger.Errorf("failed to %s transaction: %v", action, err)
		c.JSON(http.StatusInternalServerError, gin.H{"result": "error"})
	}
}

func (h *AdminHandler) BlockUser(c *gin.Context) {
	h.setBlocked(c, true)
}

func (h *AdminHandler) UnblockUser(c *gin.Context) {
	h.setBlocked(c, false)
}

func (h *AdminHandler) setBlocked(c *gin.Context, blocked bool) {
	err := h.accounts.SetBlocked(c.Request.Context(), c.Param("id"), blocked)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"result": "not found"})
			return
		}
		logger.Errorf("failed to update block state: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"result": "error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": "success", "blocked": blocked})
}
