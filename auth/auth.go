// Package auth verifies admin bearer tokens on mutating endpoints.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
)

var (
	ErrInvalidToken     = errors.New("invalid token format")
	ErrTokenExpired     = errors.New("token has expired")
	ErrTokenNotYetValid = errors.New("token not yet valid")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrNotAdmin         = errors.New("token lacks admin role")
)

// AdminClaims is the claim set carried by operator tokens.
type AdminClaims struct {
	Issuer    string `json:"iss"`
	Subject   string `json:"sub"`
	Role      string `json:"role"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// VerifyConfig holds verification configuration.
type VerifyConfig struct {
	SecretKey []byte        // HMAC (HS256)
	ClockSkew time.Duration // optional clock skew allowance
}

// VerifyAdminToken verifies the signature and timestamps of an HS256 token
// and requires the admin role.
func VerifyAdminToken(tokenString string, config VerifyConfig) (*AdminClaims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}
	if len(config.SecretKey) == 0 {
		return nil, errors.New("no verification key provided")
	}

	tok, err := jwt.ParseSigned(tokenString, []jose.SignatureAlgorithm{jose.HS256})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims := &AdminClaims{}
	if err := tok.Claims(config.SecretKey, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	now := time.Now().Unix()
	clockSkew := int64(config.ClockSkew.Seconds())

	if claims.ExpiresAt > 0 && claims.ExpiresAt < (now-clockSkew) {
		return nil, ErrTokenExpired
	}
	if claims.IssuedAt > 0 && claims.IssuedAt > (now+clockSkew) {
		return nil, ErrTokenNotYetValid
	}
	if claims.Role != "admin" {
		return nil, ErrNotAdmin
	}

	return claims, nil
}

// CreateAdminToken signs an HS256 token for the given claims.
func CreateAdminToken(claims *AdminClaims, secretKey []byte) (string, error) {
	if claims == nil {
		return "", errors.New("claims cannot be nil")
	}
	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.HS256, Key: secretKey}, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create signer: %w", err)
	}
	token, err := jwt.Signed(signer).Claims(claims).Serialize()
	if err != nil {
		return "", fmt.Errorf("failed to create token: %w", err)
	}
	return token, nil
}

// FromRequest extracts the bearer token from the Authorization header and
// verifies it.
func FromRequest(r *http.Request, config VerifyConfig) (*AdminClaims, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, ErrInvalidToken
	}
	token := strings.TrimPrefix(header, "Bearer ")
	if token == header {
		return nil, ErrInvalidToken
	}
	return VerifyAdminToken(token, config)
}
