package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/kairan-app/kairan/utils"
)

// Token service error constants
var (
	ErrTokenExpired = errors.New("token has expired")
	ErrTokenInvalid = errors.New("invalid token")
)

// TokenService handles JWT token generation and validation for the admin API
type TokenService interface {
	GenerateAdminToken(adminID uint) (string, error)
	ValidateAdminToken(token string) (*AdminTokenClaims, error)
}

// AdminTokenClaims represents claims for admin JWTs
type AdminTokenClaims struct {
	AdminID   uint      `json:"admin_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	TokenID   string    `json:"jti"`
}

// TokenServiceImpl implements TokenService with HMAC signing
type TokenServiceImpl struct {
	tokenTTL  time.Duration
	secretKey []byte
	issuer    string
	audience  string
}

// NewTokenService creates a new token service
func NewTokenService(tokenTTL time.Duration, issuer, audience, secretKey string) (TokenService, error) {
	if secretKey == "" {
		return nil, fmt.Errorf("secret key is required")
	}
	return &TokenServiceImpl{
		tokenTTL:  tokenTTL,
		secretKey: []byte(secretKey),
		issuer:    issuer,
		audience:  audience,
	}, nil
}

// GenerateAdminToken issues a signed admin token
func (s *TokenServiceImpl) GenerateAdminToken(adminID uint) (string, error) {
	now := utils.UTCNow()
	claims := jwt.MapClaims{
		"admin_id": adminID,
		"iss":      s.issuer,
		"aud":      s.audience,
		"iat":      now.Unix(),
		"exp":      now.Add(s.tokenTTL).Unix(),
		"jti":      uuid.New().String(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign admin token: %w", err)
	}
	return signed, nil
}

// ValidateAdminToken parses and validates an admin token
func (s *TokenServiceImpl) ValidateAdminToken(tokenString string) (*AdminTokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secretKey, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithAudience(s.audience))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	adminID, ok := claims["admin_id"].(float64)
	if !ok {
		return nil, ErrTokenInvalid
	}

	out := &AdminTokenClaims{AdminID: uint(adminID)}
	if iat, ok := claims["iat"].(float64); ok {
		out.IssuedAt = time.Unix(int64(iat), 0).UTC()
	}
	if exp, ok := claims["exp"].(float64); ok {
		out.ExpiresAt = time.Unix(int64(exp), 0).UTC()
	}
	if jti, ok := claims["jti"].(string); ok {
		out.TokenID = jti
	}
	return out, nil
}
