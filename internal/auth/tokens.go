package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Muhsin-Gun/event-API/internal/config"
)

const issuer = "event-api"

var (
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Claims carried by access tokens. The user id travels in the registered
// audience claim, mirroring how older clients of this API already parse it.
type AccessClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

type Tokens struct {
	cfg config.JWTConfig
}

func NewTokens(cfg config.JWTConfig) *Tokens {
	return &Tokens{cfg: cfg}
}

func (t *Tokens) SignAccess(userID, role string) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{userID},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.cfg.AccessTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(t.cfg.AccessSecret))
}

// VerifyAccess returns the user id (audience) and role claim.
func (t *Tokens) VerifyAccess(token string) (userID, role string, err error) {
	claims := &AccessClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(t.cfg.AccessSecret), nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithIssuer(issuer))
	if err != nil || !parsed.Valid {
		return "", "", ErrInvalidToken
	}
	if len(claims.Audience) == 0 || claims.Audience[0] == "" {
		return "", "", ErrInvalidToken
	}
	return claims.Audience[0], claims.Role, nil
}

func (t *Tokens) SignRefresh(userID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Audience:  jwt.ClaimStrings{userID},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.cfg.RefreshTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(t.cfg.RefreshSecret))
}

// VerifyRefresh returns the user id the refresh token was issued to.
func (t *Tokens) VerifyRefresh(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(t.cfg.RefreshSecret), nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithIssuer(issuer))
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	if len(claims.Audience) == 0 || claims.Audience[0] == "" {
		return "", ErrInvalidToken
	}
	return claims.Audience[0], nil
}

func (t *Tokens) SignReset(userID string) (string, error) {
	now := time.Now()
	// The jti keeps back-to-back tokens for the same user distinct, so a
	// newly issued token never collides with the hash of the one it replaces.
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Audience:  jwt.ClaimStrings{userID},
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.cfg.ResetTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(t.cfg.ResetSecret))
}

func (t *Tokens) VerifyReset(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(t.cfg.ResetSecret), nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithIssuer(issuer))
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	if len(claims.Audience) == 0 || claims.Audience[0] == "" {
		return "", ErrInvalidToken
	}
	return claims.Audience[0], nil
}
