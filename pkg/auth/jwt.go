package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleStaff = "staff"
	RoleAdmin = "admin"

	audience = "checkin-kiosk"
)

type Claims struct {
	KioskID string `json:"kiosk_id"`
	Role    string `json:"role"`
	Scope   string `json:"scope"`
	jwt.RegisteredClaims
}

func NewAccessToken(kioskID, role, scope, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		KioskID: kioskID,
		Role:    role,
		Scope:   scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   kioskID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Audience:  []string{audience},
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func Parse(tokenString, secret string) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithAudience(audience))
	if err != nil {
		return nil, err
	}
	if claims, ok := tok.Claims.(*Claims); ok && tok.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// NewStaffToken issues the token a kiosk holds after a staff member unlocks it.
func NewStaffToken(kioskID, secret string, ttl time.Duration) (string, error) {
	return NewAccessToken(kioskID, RoleStaff, "bookings:read bookings:check-in", secret, ttl)
}

// Allows reports whether a token role satisfies the required role. Admin satisfies every role.
func Allows(role, required string) bool {
	return required == "" || role == required || role == RoleAdmin
}
