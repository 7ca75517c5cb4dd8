package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"sms-gateway/internal/auth"
	"sms-gateway/internal/models"
	"sms-gateway/internal/services"
	"sms-gateway/internal/store"
	"sms-gateway/pkg/common"
	"sms-gateway/pkg/logger"
	"sms-gateway/pkg/validation"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
	maxPage          = 1_000_000
	userContextKey   = "user"
	apiKeyHeader     = "X-API-Key"
)

type Handler struct {
	Users         *services.UserService
	Wallets       *services.WalletService
	Sims          *services.SimService
	Sms           *services.SmsService
	Marketplace   *services.MarketplaceService
	ApiKeys       *services.ApiKeyService
	WebhookSecret string
}

// respondError maps service and store errors to HTTP statuses.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"

	switch {
	case errors.Is(err, services.ErrDispatchFailed):
		message = "failed to send sms"
	case errors.Is(err, store.ErrNotFound):
		status, message = http.StatusNotFound, err.Error()
	case errors.Is(err, services.ErrInvalidRequest),
		errors.Is(err, services.ErrConflict),
		errors.Is(err, services.ErrAlreadyInState),
		errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrSimExpired),
		errors.Is(err, services.ErrInsufficientBalance),
		errors.Is(err, services.ErrInsufficientFunds),
		errors.Is(err, services.ErrSimNotEligible),
		errors.Is(err, services.ErrNotRedeliverable):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken):
		status, message = http.StatusUnauthorized, "could not validate credentials"
	case errors.Is(err, services.ErrUserInactive):
		status, message = http.StatusForbidden, "inactive user"
	case errors.Is(err, services.ErrMarketplaceUnavailable):
		status, message = http.StatusBadGateway, err.Error()
	case errors.Is(err, services.ErrRedeliveryUnavailable):
		status, message = http.StatusServiceUnavailable, "redelivery queue unavailable"
	}

	if status >= http.StatusInternalServerError {
		logger.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}).Errorf("Request failed: %v", err)
	}
	c.AbortWithStatusJSON(status, common.NewErrorResponse(message, nil, status))
}

func respondBindError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest,
		common.NewErrorResponse("validation failed", validation.FormatValidationError(err), http.StatusBadRequest))
}

func paramID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest,
			common.NewErrorResponse("invalid "+name, nil, http.StatusBadRequest))
		return 0, false
	}
	return id, true
}

// pagination reads page and limit, rejecting pages past maxPage with 400.
func pagination(c *gin.Context) (page, limit int, ok bool) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if errors.Is(err, strconv.ErrRange) || page > maxPage {
		c.AbortWithStatusJSON(http.StatusBadRequest,
			common.NewErrorResponse(fmt.Sprintf("page must be at most %d", maxPage), nil, http.StatusBadRequest))
		return 0, 0, false
	}
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageLimit)))
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit, true
}

func currentUser(c *gin.Context) *models.User {
	return c.MustGet(userContextKey).(*models.User)
}

// RequireUser authenticates the X-API-Key header, or else the bearer token,
// and stores the user on the context.
func (h *Handler) RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if key := c.GetHeader(apiKeyHeader); key != "" && h.ApiKeys != nil {
			user, err := h.ApiKeys.Authenticate(c.Request.Context(), key)
			if err != nil {
				respondError(c, err)
				return
			}
			c.Set(userContextKey, user)
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			c.Header("WWW-Authenticate", "Bearer")
			respondError(c, auth.ErrInvalidToken)
			return
		}

		user, err := h.Users.Authenticate(c.Request.Context(), strings.TrimSpace(token))
		if err != nil {
			c.Header("WWW-Authenticate", "Bearer")
			respondError(c, err)
			return
		}
		c.Set(userContextKey, user)
		c.Next()
	}
}

// RequestLogger writes one log entry per request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"status":    c.Writer.Status(),
			"latency":   time.Since(start).String(),
			"client_ip": c.ClientIP(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Error("request")
			return
		}
		entry.Info("request")
	}
}

func Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}
