package auth

import (
	"fmt"
	"time"

	"studiobook/pkg/clock"
	"studiobook/pkg/config"
	"studiobook/services/cooperator"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
)

// TokenClaims are the private claims carried alongside the registered set.
type TokenClaims struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// TokenResponse is the OAuth 2.0 client-credentials grant response.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// TokenIssuer mints and validates the signed, time-bound identity assertions
// handed to cooperators. Validation is purely cryptographic; the caller is
// responsible for re-checking that the referenced cooperator is still active.
type TokenIssuer struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	clk      clock.Clock
}

func NewTokenIssuer(cfg *config.Config, clk clock.Clock) (*TokenIssuer, error) {
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("AUTH_JWT_SECRET is not configured")
	}
	return &TokenIssuer{
		secret:   []byte(cfg.Auth.JWTSecret),
		issuer:   cfg.Auth.Issuer,
		audience: cfg.Auth.Audience,
		ttl:      cfg.Auth.TokenTTL,
		clk:      clk,
	}, nil
}

func (t *TokenIssuer) TTL() time.Duration { return t.ttl }

func (t *TokenIssuer) Issue(c *cooperator.Cooperator) (string, error) {
	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.HS256, Key: t.secret},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return "", fmt.Errorf("token signer: %w", err)
	}

	now := t.clk.Now()
	claims := jwt.Claims{
		Subject:  c.ID,
		Issuer:   t.issuer,
		Audience: jwt.Audience{t.audience},
		IssuedAt: jwt.NewNumericDate(now),
		Expiry:   jwt.NewNumericDate(now.Add(t.ttl)),
	}
	custom := TokenClaims{Name: c.Name, Email: c.Email}

	raw, err := jwt.Signed(signer).Claims(claims).Claims(custom).Serialize()
	if err != nil {
		return "", fmt.Errorf("token sign: %w", err)
	}
	return raw, nil
}

// Verify checks signature, issuer, audience and expiry and returns the
// identity the token asserts.
func (t *TokenIssuer) Verify(raw string) (*cooperator.Identity, error) {
	tok, err := jwt.ParseSigned(raw, []jose.SignatureAlgorithm{jose.HS256})
	if err != nil {
		return nil, fmt.Errorf("token parse: %w", err)
	}

	var claims jwt.Claims
	var custom TokenClaims
	if err := tok.Claims(t.secret, &claims, &custom); err != nil {
		return nil, fmt.Errorf("token verify: %w", err)
	}

	if err := claims.Validate(jwt.Expected{
		Issuer:      t.issuer,
		AnyAudience: jwt.Audience{t.audience},
		Time:        t.clk.Now(),
	}); err != nil {
		return nil, fmt.Errorf("token claims: %w", err)
	}

	return &cooperator.Identity{
		ID:    claims.Subject,
		Name:  custom.Name,
		Email: custom.Email,
	}, nil
}
