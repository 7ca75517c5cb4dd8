package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"sms-gateway/internal/auth"
	"sms-gateway/internal/models"
	"sms-gateway/internal/store"
	"sms-gateway/pkg/logger"
)

type UserService struct {
	Store  store.Store
	Tokens *auth.TokenIssuer
}

func NewUserService(s store.Store, tokens *auth.TokenIssuer) *UserService {
	return &UserService{Store: s, Tokens: tokens}
}

type RegisterDTO struct {
	Email    string
	Name     string
	Password string
}

func (s *UserService) Register(ctx context.Context, data RegisterDTO) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(data.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email", ErrInvalidRequest)
	}
	if len(data.Password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidRequest)
	}

	hash, err := auth.HashPassword(data.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        email,
		Name:         strings.TrimSpace(data.Name),
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := s.Store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, fmt.Errorf("%w: email %s is registered", ErrConflict, email)
		}
		return nil, err
	}
	logger.Infof("Registered user %d", user.ID)
	return user, nil
}

type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func (s *UserService) Login(ctx context.Context, email, password string) (*Token, error) {
	user, err := s.Store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	signed, expires, err := s.Tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &Token{AccessToken: signed, TokenType: "bearer", ExpiresAt: expires}, nil
}

// Authenticate resolves a bearer token to an active user.
func (s *UserService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	userID, err := s.Tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	user, err := s.Store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, auth.ErrInvalidToken
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, id int) (*models.User, error) {
	return s.Store.GetUser(ctx, id)
}

func (s *UserService) Deactivate(ctx context.Context, id int) (*models.User, error) {
	user, err := s.Store.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%w: user %d is inactive", ErrAlreadyInState, id)
	}
	user.IsActive = false
	if err := s.Store.SaveUser(ctx, user); err != nil {
		return nil, err
	}
	logger.Infof("Deactivated user %d", id)
	return user, nil
}
