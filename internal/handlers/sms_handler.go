package handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"sms-gateway/internal/models"
	"sms-gateway/internal/services"
	"sms-gateway/pkg/common"
)

type SendSmsRequest struct {
	SimIds          []int  `json:"sim_ids" binding:"required,min=1,unique,dive,gt=0"`
	RecipientNumber string `json:"recipient_number" binding:"required,max=32"`
	Content         string `json:"content" binding:"required,max=1600"`
}

type UpdateSmsRequest struct {
	Status       *models.MessageStatus `json:"status" binding:"omitempty,oneof=PENDING SENT DELIVERED FAILED RECEIVED"`
	ErrorMessage *string               `json:"error_message"`
}

type ReceiveSmsRequest struct {
	SenderNumber string `json:"sender_number" form:"sender_number" binding:"required,max=32"`
	Content      string `json:"content" form:"content" binding:"required,max=1600"`
}

func (h *Handler) SendSms(c *gin.Context) {
	var req SendSmsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	messages, err := h.Sms.SendBatch(c.Request.Context(), services.SendSmsDTO{
		UserId:          currentUser(c).ID,
		SimIds:          req.SimIds,
		RecipientNumber: req.RecipientNumber,
		Content:         req.Content,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

func (h *Handler) ListSms(c *gin.Context) {
	page, limit, ok := pagination(c)
	if !ok {
		return
	}
	messages, total, err := h.Sms.ListMessages(c.Request.Context(), currentUser(c).ID, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.PaginateResponse(messages, total, page, limit, ""))
}

func (h *Handler) GetSms(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	msg, err := h.Sms.GetMessage(c.Request.Context(), currentUser(c).ID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

func (h *Handler) UpdateSms(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req UpdateSmsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	msg, err := h.Sms.UpdateMessage(c.Request.Context(), currentUser(c).ID, id, services.UpdateSmsDTO{
		Status:       req.Status,
		ErrorMessage: req.ErrorMessage,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

func (h *Handler) RetrySms(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	msg, err := h.Sms.ScheduleRedelivery(c.Request.Context(), currentUser(c).ID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, common.NewSuccessResponse(msg, "Redelivery scheduled", http.StatusAccepted))
}

// ReceiveSms is called by the modem bridge for every inbound message.
func (h *Handler) ReceiveSms(c *gin.Context) {
	if h.WebhookSecret != "" {
		got := c.GetHeader("X-Webhook-Secret")
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.WebhookSecret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				common.NewErrorResponse("invalid webhook secret", nil, http.StatusUnauthorized))
			return
		}
	}

	var req ReceiveSmsRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBindError(c, err)
		return
	}

	msg, err := h.Sms.ReceiveInbound(c.Request.Context(), services.ReceiveSmsDTO{
		SenderNumber: req.SenderNumber,
		Content:      req.Content,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

func (h *Handler) CarrierStatus(c *gin.Context) {
	if err := h.Sms.CarrierStatus(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "disconnected", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "connected"})
}
