package jwt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rbroggi/racketbuddy/internal/core/model"
)

const issuer = "racketbuddy"

// Provider issues and validates HS256 signed bearer tokens.
type Provider struct {
	secret  []byte
	ttl     time.Duration
	nowFunc func() time.Time
}

// ProviderArgs are the mandatory arguments for the creation of a Provider
type ProviderArgs struct {
	// Secret is the HMAC key.
	Secret []byte

	// TTL is how long an issued token is valid.
	TTL time.Duration
}

// ProviderOptArgs are the optional arguments for building a Provider
type ProviderOptArgs = func(*Provider)

// WithNowFunc can be used to override the nowFunc. Useful for testing.
func WithNowFunc(nowFunc func() time.Time) ProviderOptArgs {
	return func(p *Provider) {
		p.nowFunc = nowFunc
	}
}

// NewProvider creates a new Provider.
func NewProvider(args ProviderArgs, optArgs ...ProviderOptArgs) (*Provider, error) {
	if len(args.Secret) == 0 {
		return nil, errors.New("empty jwt secret")
	}
	if args.TTL <= 0 {
		return nil, fmt.Errorf("invalid token ttl [%s]", args.TTL)
	}
	p := &Provider{secret: args.Secret, ttl: args.TTL, nowFunc: time.Now}
	for _, opt := range optArgs {
		opt(p)
	}
	return p, nil
}

// IssueToken signs a token whose subject is the user id.
func (p *Provider) IssueToken(_ context.Context, user model.User) (string, error) {
	now := p.nowFunc()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   user.ID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
	})
	signed, err := token.SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("error signing token: %w", err)
	}
	return signed, nil
}

// ResolveToken validates the token and returns its subject. Any failure is model.ErrUnauthenticated.
func (p *Provider) ResolveToken(_ context.Context, token string) (uuid.UUID, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return p.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.nowFunc),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %w", model.ErrUnauthenticated, err)
	}
	if !parsed.Valid {
		return uuid.Nil, model.ErrUnauthenticated
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid subject", model.ErrUnauthenticated)
	}
	return userID, nil
}
