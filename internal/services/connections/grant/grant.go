// Package grant verifies signed identity grants presented with connection
// calls. A grant is an ed25519-signed JWT naming the acting user; services
// upstream mint them, this service only verifies.
package grant

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/shawnlauzon/belong-platform/internal/platform/errors"
)

// Environment variables configuring grant verification.
const (
	EnvIdentityIssuer    = "BELONG_IDENTITY_ISSUER"
	EnvIdentityAudience  = "BELONG_IDENTITY_AUDIENCE"
	EnvIdentityPublicKey = "BELONG_IDENTITY_PUBLIC_KEY"
)

// identityEnv holds raw env values before post-parse validation.
type identityEnv struct {
	Issuer    string `env:"BELONG_IDENTITY_ISSUER"`
	Audience  string `env:"BELONG_IDENTITY_AUDIENCE"`
	PublicKey string `env:"BELONG_IDENTITY_PUBLIC_KEY"`
}

// Config defines how identity grants are verified.
type Config struct {
	Issuer   string
	Audience string
	Key      ed25519.PublicKey
	Now      func() time.Time
}

// Configured reports whether the verifier has everything it needs.
func (c Config) Configured() bool {
	return c.Issuer != "" && c.Audience != "" && len(c.Key) == ed25519.PublicKeySize
}

// Claims captures validated identity grant claims.
type Claims struct {
	Issuer    string
	Audience  []string
	ExpiresAt time.Time
	NotBefore time.Time
	IssuedAt  time.Time
	JWTID     string
	UserID    string
	Locale    string
}

// identityClaims is the internal claims type used for JWT parsing.
type identityClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
	Locale string `json:"locale,omitempty"`
}

// LoadConfigFromEnv reads identity grant verification configuration.
func LoadConfigFromEnv(now func() time.Time) (Config, error) {
	var raw identityEnv
	if err := env.Parse(&raw); err != nil {
		return Config{}, fmt.Errorf("parse identity grant env: %w", err)
	}
	issuer := strings.TrimSpace(raw.Issuer)
	audience := strings.TrimSpace(raw.Audience)
	publicKey := strings.TrimSpace(raw.PublicKey)
	if issuer == "" {
		return Config{}, fmt.Errorf("BELONG_IDENTITY_ISSUER is required")
	}
	if audience == "" {
		return Config{}, fmt.Errorf("BELONG_IDENTITY_AUDIENCE is required")
	}
	if publicKey == "" {
		return Config{}, fmt.Errorf("BELONG_IDENTITY_PUBLIC_KEY is required")
	}
	keyBytes, err := decodeBase64(publicKey)
	if err != nil {
		return Config{}, fmt.Errorf("decode identity public key: %w", err)
	}
	if len(keyBytes) != ed25519.PublicKeySize {
		return Config{}, fmt.Errorf("identity public key must be %d bytes", ed25519.PublicKeySize)
	}
	if now == nil {
		now = time.Now
	}
	return Config{
		Issuer:   issuer,
		Audience: audience,
		Key:      ed25519.PublicKey(keyBytes),
		Now:      now,
	}, nil
}

// Verify checks an identity grant token and returns its claims.
func Verify(token string, cfg Config) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, apperrors.New(apperrors.CodeAuthUnauthenticated, "identity grant is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if !cfg.Configured() {
		return Claims{}, errors.New("identity grant verifier is not configured")
	}

	var parsed identityClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(token *jwt.Token) (any, error) {
		return cfg.Key, nil
	},
		jwt.WithValidMethods([]string{"EdDSA"}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return Claims{}, mapJWTError(err)
	}

	if parsed.Issuer == "" || parsed.Issuer != cfg.Issuer {
		return Claims{}, apperrors.WithMetadata(
			apperrors.CodeAuthGrantInvalid,
			"identity grant issuer mismatch",
			map[string]string{"Field": "issuer"},
		)
	}
	if !audienceContains(parsed.Audience, cfg.Audience) {
		return Claims{}, apperrors.WithMetadata(
			apperrors.CodeAuthGrantInvalid,
			"identity grant audience mismatch",
			map[string]string{"Field": "audience"},
		)
	}

	if parsed.ID == "" {
		return Claims{}, apperrors.New(apperrors.CodeAuthGrantInvalid, "identity grant jti is required")
	}
	if parsed.ExpiresAt == nil {
		return Claims{}, apperrors.New(apperrors.CodeAuthGrantInvalid, "identity grant exp is required")
	}

	now := cfg.Now().UTC()
	exp := parsed.ExpiresAt.Time.UTC()
	if !exp.After(now) {
		return Claims{}, apperrors.New(apperrors.CodeAuthGrantExpired, "identity grant is expired")
	}
	if parsed.NotBefore != nil {
		nbf := parsed.NotBefore.Time.UTC()
		if now.Before(nbf) {
			return Claims{}, apperrors.New(apperrors.CodeAuthGrantInvalid, "identity grant not active yet")
		}
	}

	if strings.TrimSpace(parsed.UserID) == "" {
		return Claims{}, apperrors.New(apperrors.CodeAuthGrantInvalid, "identity grant user is required")
	}

	claims := Claims{
		Issuer:    parsed.Issuer,
		Audience:  []string(parsed.Audience),
		ExpiresAt: exp,
		JWTID:     parsed.ID,
		UserID:    parsed.UserID,
		Locale:    strings.TrimSpace(parsed.Locale),
	}
	if parsed.NotBefore != nil {
		claims.NotBefore = parsed.NotBefore.Time.UTC()
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time.UTC()
	}
	return claims, nil
}

// mapJWTError translates jwt library errors to application errors.
func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenSignatureInvalid) || errors.Is(err, jwt.ErrEd25519Verification) {
		return apperrors.New(apperrors.CodeAuthGrantInvalid, "identity grant signature is invalid")
	}
	if errors.Is(err, jwt.ErrTokenUnverifiable) {
		return apperrors.New(apperrors.CodeAuthGrantInvalid, "identity grant alg is invalid")
	}
	return apperrors.New(apperrors.CodeAuthGrantInvalid, "identity grant is invalid")
}

// audienceContains reports whether the audience list contains the given value.
func audienceContains(aud jwt.ClaimStrings, value string) bool {
	for _, item := range aud {
		if item == value {
			return true
		}
	}
	return false
}

func decodeBase64(value string) ([]byte, error) {
	if value == "" {
		return nil, errors.New("empty base64 value")
	}
	decoded, err := base64.RawStdEncoding.DecodeString(value)
	if err == nil {
		return decoded, nil
	}
	return base64.StdEncoding.DecodeString(value)
}
