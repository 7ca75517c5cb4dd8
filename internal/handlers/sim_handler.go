package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"sms-gateway/internal/services"
)

type CreateSimRequest struct {
	Iccid         string     `json:"iccid" binding:"required,max=32"`
	PhoneNumber   string     `json:"phone_number" binding:"required,max=32"`
	MessagesLimit *int       `json:"messages_limit" binding:"omitempty,gte=0"`
	ExpiryDate    *time.Time `json:"expiry_date"`
}

// UpdateSimRequest only exposes the fields a user may change directly.
type UpdateSimRequest struct {
	MessagesLimit *int       `json:"messages_limit" binding:"omitempty,gte=0"`
	ExpiryDate    *time.Time `json:"expiry_date"`
}

func (h *Handler) ListSims(c *gin.Context) {
	sims, err := h.Sims.ListSims(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sims)
}

func (h *Handler) CreateSim(c *gin.Context) {
	var req CreateSimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	sim, err := h.Sims.CreateSim(c.Request.Context(), services.CreateSimDTO{
		UserId:        currentUser(c).ID,
		Iccid:         req.Iccid,
		PhoneNumber:   req.PhoneNumber,
		MessagesLimit: req.MessagesLimit,
		ExpiryDate:    req.ExpiryDate,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sim)
}

func (h *Handler) ListMarketplaceSims(c *gin.Context) {
	sims, err := h.Marketplace.ListSims(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sims)
}

func (h *Handler) GetSim(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	sim, err := h.Sims.GetSim(c.Request.Context(), currentUser(c).ID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sim)
}

func (h *Handler) UpdateSim(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req UpdateSimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	sim, err := h.Sims.UpdateSim(c.Request.Context(), currentUser(c).ID, id, services.UpdateSimDTO{
		MessagesLimit: req.MessagesLimit,
		ExpiryDate:    req.ExpiryDate,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sim)
}

func (h *Handler) DeleteSim(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.Sims.DeleteSim(c.Request.Context(), currentUser(c).ID, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ActivateSim(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	sim, err := h.Sims.ActivateSim(c.Request.Context(), currentUser(c).ID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sim)
}

func (h *Handler) DeactivateSim(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	sim, err := h.Sims.DeactivateSim(c.Request.Context(), currentUser(c).ID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sim)
}
