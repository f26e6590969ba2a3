// Package jwt issues and validates the admin API's session tokens.
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"dustforce-relay/internal/module/admin/domain"
)

// Manager handles JWT token operations for the admin API.
type Manager struct {
	secretKey     string
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

// Claims represents JWT claims for an operator session.
type Claims struct {
	OperatorID string `json:"operator_id"`
	jwt.RegisteredClaims
}

// NewManager creates a new JWT manager.
func NewManager(secretKey string, accessExpiry, refreshExpiry time.Duration) *Manager {
	return &Manager{
		secretKey:     secretKey,
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
	}
}

// GenerateTokenPair generates access and refresh tokens for an operator.
func (m *Manager) GenerateTokenPair(operatorID string) (*domain.TokenPair, error) {
	accessToken, accessExpiresIn, err := m.generateToken(operatorID, m.accessExpiry)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, _, err := m.generateToken(operatorID, m.refreshExpiry)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(accessExpiresIn.Seconds()),
	}, nil
}

func (m *Manager) generateToken(operatorID string, expiry time.Duration) (string, time.Duration, error) {
	now := time.Now()
	claims := &Claims{
		OperatorID: operatorID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(m.secretKey))
	if err != nil {
		return "", 0, err
	}
	return tokenString, expiry, nil
}

// ValidateToken validates a JWT token and returns the operator id.
func (m *Manager) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(m.secretKey), nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return "", errors.New("invalid token")
	}
	return claims.OperatorID, nil
}
