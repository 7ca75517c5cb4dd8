package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sms-gateway/pkg/common"
)

type CreateApiKeyRequest struct {
	Name string `json:"name" binding:"required,max=100"`
}

func (h *Handler) CreateApiKey(c *gin.Context) {
	var req CreateApiKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	key, err := h.ApiKeys.Create(c.Request.Context(), currentUser(c).ID, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, key)
}

func (h *Handler) ListApiKeys(c *gin.Context) {
	keys, err := h.ApiKeys.List(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, keys)
}

func (h *Handler) DeleteApiKey(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.ApiKeys.Delete(c.Request.Context(), currentUser(c).ID, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(nil, "API key deleted successfully", http.StatusOK))
}
