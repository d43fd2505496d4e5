package oidc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/goalquest/internal/models"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// ErrInvalidToken wraps every verification failure
var ErrInvalidToken = errors.New("invalid token")

// TokenVerifier verifies bearer tokens and returns their claims
type TokenVerifier interface {
	Verify(ctx context.Context, tokenString string) (*models.JWTClaims, error)
}

// Verifier verifies JWT tokens
type Verifier struct {
	jwksManager *JWKSManager
	issuer      string
	jwksURL     string
	audience    string
	skew        time.Duration
}

var _ TokenVerifier = (*Verifier)(nil)

// NewVerifier creates a new JWT verifier for one issuer. An empty audience skips the aud check.
func NewVerifier(jwksManager *JWKSManager, issuer, jwksURL, audience string) *Verifier {
	return &Verifier{
		jwksManager: jwksManager,
		issuer:      issuer,
		jwksURL:     jwksURL,
		audience:    audience,
		skew:        30 * time.Second,
	}
}

// Verify verifies a JWT token and extracts claims
func (v *Verifier) Verify(ctx context.Context, tokenString string) (*models.JWTClaims, error) {
	token, err := v.parse(ctx, tokenString)
	if err != nil {
		// Possibly a rotated key: refetch once if the cached set is not fresh.
		if !v.jwksManager.Invalidate(v.jwksURL) {
			return nil, err
		}
		token, err = v.parse(ctx, tokenString)
		if err != nil {
			return nil, err
		}
	}

	claims := &models.JWTClaims{
		Sub: token.Subject(),
		Iss: token.Issuer(),
		Exp: token.Expiration().Unix(),
		Iat: token.IssuedAt().Unix(),
	}
	if claims.Sub == "" {
		return nil, fmt.Errorf("%w: token missing subject claim", ErrInvalidToken)
	}
	if aud := token.Audience(); len(aud) > 0 {
		claims.Aud = aud[0]
	}
	claims.Email = stringClaim(token, "email")
	claims.Name = stringClaim(token, "name")
	claims.GivenName = stringClaim(token, "given_name")

	return claims, nil
}

func (v *Verifier) parse(ctx context.Context, tokenString string) (jwt.Token, error) {
	keys, err := v.jwksManager.GetJWKS(ctx, v.jwksURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get JWKS: %w", err)
	}

	opts := []jwt.ParseOption{
		jwt.WithKeySet(keys),
		jwt.WithValidate(true),
		jwt.WithIssuer(v.issuer),
		jwt.WithAcceptableSkew(v.skew),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	token, err := jwt.Parse([]byte(tokenString), opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return token, nil
}

func stringClaim(token jwt.Token, name string) string {
	if v, ok := token.Get(name); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
