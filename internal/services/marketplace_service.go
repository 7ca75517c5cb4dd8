package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"sms-gateway/internal/models"
	"sms-gateway/pkg/common"
)

// MarketplaceService lists SIM cards offered by the edge backend. The
// listing is read-only and never touches the local store.
type MarketplaceService struct {
	BaseURL string
	APIKey  string
	Client  *common.HTTPClient
	Now     func() time.Time
}

func NewMarketplaceService(baseURL, apiKey string, timeout time.Duration) *MarketplaceService {
	return &MarketplaceService{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client:  common.NewHTTPClient(timeout),
		Now:     time.Now,
	}
}

const marketplaceMessagesLimit = 1000

type edgeSimCard struct {
	ID     string `json:"id"`
	Number string `json:"number"`
	Status string `json:"status"`
}

type edgeSimCardsResponse struct {
	SimCards []edgeSimCard `json:"sim_cards"`
}

func (s *MarketplaceService) ListSims(ctx context.Context) ([]models.Sim, error) {
	if s.BaseURL == "" {
		return nil, fmt.Errorf("%w: edge backend not configured", ErrMarketplaceUnavailable)
	}

	var resp edgeSimCardsResponse
	err := s.Client.GetJSON(ctx, s.BaseURL+"/api/sim-cards", map[string]string{"X-API-Key": s.APIKey}, &resp)
	if err != nil {
		var httpErr *common.HTTPError
		if errors.As(err, &httpErr) {
			return nil, fmt.Errorf("%w: edge backend returned %d", ErrMarketplaceUnavailable, httpErr.StatusCode)
		}
		return nil, fmt.Errorf("%w: %v", ErrMarketplaceUnavailable, err)
	}

	now := s.Now().UTC()
	expiry := now.AddDate(1, 0, 0)
	sims := make([]models.Sim, 0, len(resp.SimCards))
	for _, card := range resp.SimCards {
		sims = append(sims, models.Sim{
			Iccid:         card.ID,
			PhoneNumber:   card.Number,
			Status:        models.SimActive,
			IsActive:      card.Status == "active",
			MessagesLimit: marketplaceMessagesLimit,
			ExpiryDate:    &expiry,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
	}
	return sims, nil
}
