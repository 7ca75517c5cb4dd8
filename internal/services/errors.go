package services

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRequest         = errors.New("invalid request")
	ErrConflict               = errors.New("already exists")
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrSimNotEligible         = errors.New("sim not eligible")
	ErrSimExpired             = errors.New("sim expired")
	ErrAlreadyInState         = errors.New("already in requested state")
	ErrInvalidTransition      = errors.New("invalid status transition")
	ErrDispatchFailed         = errors.New("dispatch failed")
	ErrNotRedeliverable       = errors.New("message cannot be redelivered")
	ErrRedeliveryUnavailable  = errors.New("redelivery unavailable")
	ErrMarketplaceUnavailable = errors.New("marketplace unavailable")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrUserInactive           = errors.New("user inactive")
)

func dispatchFailed(err error) error {
	return fmt.Errorf("%w: %w", ErrDispatchFailed, err)
}
