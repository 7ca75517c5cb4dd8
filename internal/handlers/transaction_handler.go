package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"sms-gateway/internal/models"
	"sms-gateway/internal/services"
	"sms-gateway/pkg/common"
)

type CreateTransactionRequest struct {
	Type        models.TransactionType   `json:"type" binding:"required,oneof=CREDIT DEBIT"`
	Amount      decimal.Decimal          `json:"amount"`
	Description string                   `json:"description" binding:"max=255"`
	Status      models.TransactionStatus `json:"status" binding:"omitempty,oneof=PENDING COMPLETED FAILED CANCELLED"`
}

type UpdateTransactionRequest struct {
	Status models.TransactionStatus `json:"status" binding:"required,oneof=PENDING COMPLETED FAILED CANCELLED"`
}

func (h *Handler) CreateTransaction(c *gin.Context) {
	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	trx, err := h.Wallets.CreateTransaction(c.Request.Context(), services.CreateTransactionDTO{
		UserId:      currentUser(c).ID,
		Type:        req.Type,
		Amount:      req.Amount,
		Description: req.Description,
		Status:      req.Status,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, trx)
}

func (h *Handler) ListTransactions(c *gin.Context) {
	page, limit, ok := pagination(c)
	if !ok {
		return
	}
	trxs, total, err := h.Wallets.ListTransactions(c.Request.Context(), currentUser(c).ID, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.PaginateResponse(trxs, total, page, limit, ""))
}

func (h *Handler) GetTransaction(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	trx, err := h.Wallets.GetTransaction(c.Request.Context(), currentUser(c).ID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, trx)
}

func (h *Handler) UpdateTransaction(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	trx, err := h.Wallets.UpdateTransactionStatus(c.Request.Context(), currentUser(c).ID, id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, trx)
}
