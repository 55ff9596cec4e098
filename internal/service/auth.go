package service

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"starledger/internal/errs"
)

const tokenTTL = 12 * time.Hour

// AuthService issues bearer tokens for the admin HTTP API.
type AuthService struct {
	keyHash []byte
	secret  []byte
	adminID int64
	now     func() time.Time
}

func NewAuthService(keyHash, secret string, adminID int64) *AuthService {
	return &AuthService{
		keyHash: []byte(keyHash),
		secret:  []byte(secret),
		adminID: adminID,
		now:     time.Now,
	}
}

// Enabled reports whether the admin HTTP API may be served at all.
func (s *AuthService) Enabled() bool {
	return len(s.keyHash) > 0 && len(s.secret) > 0
}

func (s *AuthService) Login(apiKey string) (string, error) {
	if !s.Enabled() {
		return "", errs.New(errs.CodeUnauthorized, "admin api is disabled")
	}
	if err := bcrypt.CompareHashAndPassword(s.keyHash, []byte(apiKey)); err != nil {
		return "", errs.Wrap(errs.CodeUnauthorized, "invalid api key", err)
	}

	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(s.adminID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates a token and returns the actor id it names.
func ParseToken(tokenString string, secret []byte) (int64, error) {
	if len(secret) == 0 {
		return 0, errs.New(errs.CodeUnauthorized, "token signing key is not configured")
	}
	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return 0, errs.Wrap(errs.CodeUnauthorized, "invalid or expired token", err)
	}

	actorID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, errs.Wrap(errs.CodeUnauthorized, "invalid token subject", err)
	}
	return actorID, nil
}
