package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"sms-gateway/internal/models"
	"sms-gateway/internal/store"
	"sms-gateway/pkg/logger"
)

const maxApiKeyName = 100

// ApiKeyService manages long-lived keys that authenticate a user without a
// bearer token.
type ApiKeyService struct {
	Store store.Store
	Now   func() time.Time
}

func NewApiKeyService(s store.Store) *ApiKeyService {
	return &ApiKeyService{Store: s, Now: time.Now}
}

// newApiKey returns 32 random bytes, URL-safe base64 encoded.
func newApiKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func (s *ApiKeyService) Create(ctx context.Context, userID int, name string) (*models.ApiKey, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxApiKeyName {
		return nil, fmt.Errorf("%w: name must be 1-%d characters", ErrInvalidRequest, maxApiKeyName)
	}
	key, err := newApiKey()
	if err != nil {
		return nil, err
	}

	apiKey := &models.ApiKey{UserId: userID, Name: name, Key: key, IsActive: true}
	if err := s.Store.CreateApiKey(ctx, apiKey); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, fmt.Errorf("%w: api key collision, try again", ErrConflict)
		}
		return nil, err
	}
	logger.WithField("user_id", userID).Infof("Created API key %d", apiKey.ID)
	return apiKey, nil
}

func (s *ApiKeyService) List(ctx context.Context, userID int) ([]models.ApiKey, error) {
	return s.Store.ListApiKeys(ctx, userID)
}

func (s *ApiKeyService) Delete(ctx context.Context, userID, id int) error {
	if err := s.Store.DeleteApiKey(ctx, id, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("api key %d: %w", id, err)
		}
		return err
	}
	logger.WithField("user_id", userID).Infof("Deleted API key %d", id)
	return nil
}

// Authenticate resolves an API key to its active owner and records the use.
func (s *ApiKeyService) Authenticate(ctx context.Context, key string) (*models.User, error) {
	apiKey, err := s.Store.FindApiKey(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !apiKey.IsActive {
		return nil, ErrInvalidCredentials
	}

	user, err := s.Store.GetUser(ctx, apiKey.UserId)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	if err := s.Store.TouchApiKey(ctx, apiKey.ID, s.Now()); err != nil {
		logger.WithField("api_key_id", apiKey.ID).Warnf("Failed to record API key use: %v", err)
	}
	return user, nil
}
