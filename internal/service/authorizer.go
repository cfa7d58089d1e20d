package service

import (
	"fmt"
	"time"

	"storefront/internal/core/domain"
	"storefront/pkg/apperror"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the token body: subject, role and granted capabilities.
type Claims struct {
	Role string   `json:"role"`
	Caps []string `json:"caps"`
	jwt.RegisteredClaims
}

// JWTAuthorizer implements ports.Authorizer using HS256 JWT. Tokens are
// issued by the identity service; Issue exists for tooling and tests.
type JWTAuthorizer struct {
	secret []byte
	issuer string
}

// NewJWTAuthorizer creates a new JWT authorizer.
func NewJWTAuthorizer(secret, issuer string) *JWTAuthorizer {
	return &JWTAuthorizer{
		secret: []byte(secret),
		issuer: issuer,
	}
}

// Issue signs a token for identity valid for ttl.
func (a *JWTAuthorizer) Issue(identity domain.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: identity.Role,
		Caps: identity.Capabilities,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID.String(),
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Authorize validates the token and checks that it grants capability.
func (a *JWTAuthorizer) Authorize(tokenString, capability string) (*domain.Identity, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(a.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, apperror.ErrUnauthorized()
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, apperror.ErrUnauthorized()
	}

	identity := &domain.Identity{
		UserID:       userID,
		Role:         claims.Role,
		Capabilities: claims.Caps,
	}
	if !identity.Can(capability) {
		return nil, apperror.ErrForbidden(capability)
	}
	return identity, nil
}
