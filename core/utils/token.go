package utils

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
	"waitlist-service/core/constants"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

var (
	ErrTokenExpired  = stderrors.New("token expired")
	ErrTokenInvalid  = stderrors.New("token invalid")
	ErrTokenScope    = stderrors.New("token scope mismatch")
	ErrMissingHeader = stderrors.New("missing authorization header")
)

// TokenData is the verified content of a bearer or offer token.
type TokenData struct {
	Scope string `json:"scope"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

func GenerateSignedToken(secret, subject, scope string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := TokenData{
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// GenerateOfferToken signs a confirm link for a waitlist entry that stays valid until expiresAt.
func GenerateOfferToken(secret string, entryID uuid.UUID, expiresAt time.Time) (string, error) {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return "", ErrTokenExpired
	}
	return GenerateSignedToken(secret, entryID.String(), constants.ScopeTokenOfferConfirm, ttl)
}

func ValidateAndParseToken(secret, tokenString string) (*TokenData, error) {
	claims := &TokenData{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// ParseOfferToken verifies an offer link token and returns the entry id it names.
func ParseOfferToken(secret, tokenString string) (uuid.UUID, error) {
	data, err := ValidateAndParseToken(secret, tokenString)
	if err != nil {
		return uuid.Nil, err
	}
	if data.Scope != constants.ScopeTokenOfferConfirm {
		return uuid.Nil, ErrTokenScope
	}
	id, err := uuid.Parse(data.Subject)
	if err != nil {
		return uuid.Nil, ErrTokenInvalid
	}
	return id, nil
}

func GetTokenFromHeader(c echo.Context) (string, error) {
	header := c.Request().Header.Get("Authorization")
	if header == "" {
		return "", ErrMissingHeader
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", ErrTokenInvalid
	}
	return token, nil
}
