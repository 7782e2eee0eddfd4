package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidSignature = errors.New("invalid signature")
)

const callLinkAudience = "call-link"

type Claims struct {
	UserID   string `json:"uid"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// CallLinkClaims authorizes one account to read call link state.
type CallLinkClaims struct {
	jwt.RegisteredClaims
}

// GenerateAccessToken signs an API access token. The chat gateway issues these; this
// service only needs it for tooling and tests.
func GenerateAccessToken(userID uuid.UUID, username string, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:   userID.String(),
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return token, nil
}

// ValidateAccessToken parses and validates a JWT access token
func ValidateAccessToken(tokenString string, secret string) (*Claims, error) {
	claims := &Claims{}
	if err := parse(tokenString, secret, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// IssueCallLinkCredential mints a short lived credential scoped to the given account.
func IssueCallLinkCredential(accountID uuid.UUID, secret string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(ttl)
	claims := &CallLinkClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID.String(),
			Audience:  jwt.ClaimStrings{callLinkAudience},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign call link credential: %w", err)
	}
	return token, expiresAt, nil
}

// ValidateCallLinkCredential returns the account the credential was issued to.
func ValidateCallLinkCredential(tokenString string, secret string) (uuid.UUID, error) {
	claims := &CallLinkClaims{}
	if err := parse(tokenString, secret, claims, jwt.WithAudience(callLinkAudience)); err != nil {
		return uuid.Nil, err
	}

	accountID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return accountID, nil
}

func parse(tokenString, secret string, claims jwt.Claims, opts ...jwt.ParserOption) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSignature
		}
		return []byte(secret), nil
	}, opts...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrExpiredToken
		}
		return ErrInvalidToken
	}

	if !token.Valid {
		return ErrInvalidToken
	}
	return nil
}
