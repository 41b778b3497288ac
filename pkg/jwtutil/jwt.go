package jwtutil

import (
	"time"

	"storerate-service/pkg/config"

	"github.com/golang-jwt/jwt/v4"
)

var (
	signingKey = []byte("storeratesecretkey")
	validity   = 24 * time.Hour
)

// UserClaims represents the JWT claims for an authenticated user. The role is
// a snapshot taken at issue time; the auth middleware re-reads the user row
// before trusting it.
type UserClaims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Initialize sets the signing key and validity window from configuration.
func Initialize(cfg *config.JWTConfig) {
	if cfg.SigningKey != "" {
		signingKey = []byte(cfg.SigningKey)
	}
	if cfg.ExpirationHours > 0 {
		validity = time.Duration(cfg.ExpirationHours) * time.Hour
	}
}

// GenerateToken creates a signed JWT for the given user
func GenerateToken(userID uint, email, role string) (string, error) {
	claims := UserClaims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validity)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(signingKey)
}

// ValidateToken validates and parses the JWT token
func ValidateToken(tokenString string) (*UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		return signingKey, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*UserClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, jwt.ErrSignatureInvalid
}
