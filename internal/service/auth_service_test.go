package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diagnosis/checkin-kiosk/pkg/auth"
)

func TestKioskAuthService_Unlock(t *testing.T) {
	hash, err := HashPIN("4321")
	require.NoError(t, err)
	svc := NewKioskAuthService(hash, "test-secret", "kiosk-test", time.Hour)

	res, err := svc.Unlock(context.Background(), "4321")
	require.NoError(t, err)
	assert.Equal(t, auth.RoleStaff, res.Role)

	claims, err := auth.Parse(res.Token, "test-secret")
	require.NoError(t, err)
	assert.Equal(t, "kiosk-test", claims.KioskID)
	assert.Equal(t, auth.RoleStaff, claims.Role)

	_, err = svc.Unlock(context.Background(), "0000")
	assert.ErrorIs(t, err, ErrInvalidPIN)

	_, err = svc.Unlock(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidPIN)
}

func TestKioskAuthService_Disabled(t *testing.T) {
	svc := NewKioskAuthService("", "s", "k", time.Hour)
	_, err := svc.Unlock(context.Background(), "1234")
	assert.ErrorIs(t, err, ErrUnlockDisabled)
}

func TestHashPIN_RejectsBlank(t *testing.T) {
	_, err := HashPIN("  ")
	assert.ErrorIs(t, err, ErrInvalidPIN)
}
