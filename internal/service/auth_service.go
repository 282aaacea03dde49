package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"

	"github.com/diagnosis/checkin-kiosk/pkg/auth"
	"github.com/diagnosis/checkin-kiosk/pkg/logger"
)

var (
	ErrUnlockDisabled = errors.New("kiosk unlock is not configured")
	ErrInvalidPIN     = errors.New("invalid pin")
)

type UnlockResult struct {
	Token     string    `json:"token"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type KioskAuthService interface {
	Unlock(ctx context.Context, pin string) (*UnlockResult, error)
}

type kioskAuthService struct {
	pinHash  string
	secret   string
	kioskID  string
	tokenTTL time.Duration
	now      func() time.Time
}

func NewKioskAuthService(pinHash, secret, kioskID string, tokenTTL time.Duration) KioskAuthService {
	return &kioskAuthService{
		pinHash:  strings.TrimSpace(pinHash),
		secret:   secret,
		kioskID:  kioskID,
		tokenTTL: tokenTTL,
		now:      time.Now,
	}
}

func (s *kioskAuthService) Unlock(ctx context.Context, pin string) (*UnlockResult, error) {
	if s.pinHash == "" {
		return nil, ErrUnlockDisabled
	}
	if pin == "" {
		return nil, ErrInvalidPIN
	}

	match, err := argon2id.ComparePasswordAndHash(pin, s.pinHash)
	if err != nil {
		return nil, fmt.Errorf("pin verification failed: %w", err)
	}
	if !match {
		logger.WarnContext(ctx, "Kiosk unlock rejected")
		return nil, ErrInvalidPIN
	}

	token, err := auth.NewStaffToken(s.kioskID, s.secret, s.tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to issue staff token: %w", err)
	}
	logger.InfoContext(ctx, "Kiosk unlocked")
	return &UnlockResult{Token: token, Role: auth.RoleStaff, ExpiresAt: s.now().Add(s.tokenTTL).UTC()}, nil
}

// HashPIN produces the value expected in KIOSK_PIN_HASH.
func HashPIN(pin string) (string, error) {
	if strings.TrimSpace(pin) == "" {
		return "", ErrInvalidPIN
	}
	return argon2id.CreateHash(pin, argon2id.DefaultParams)
}
