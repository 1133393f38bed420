package httpapi

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/custodia-labs/actharvest/internal/adapters/apitypes"
	"github.com/custodia-labs/actharvest/internal/core/domain"
)

const tokenIssuer = "actharvest"

// Tokens issues and verifies HS256 bearer tokens for the admin account.
type Tokens struct {
	secret   []byte
	ttl      time.Duration
	username string
	password string
	now      func() time.Time
}

// NewTokens builds the issuer from the auth settings.
func NewTokens(auth domain.AuthSettings) (*Tokens, error) {
	if auth.SecretKey == "" {
		return nil, fmt.Errorf("%w: auth.secret_key is empty", domain.ErrInvalidInput)
	}
	ttl := auth.TokenTTL
	if ttl <= 0 {
		ttl = domain.DefaultSettings().Auth.TokenTTL
	}
	return &Tokens{
		secret:   []byte(auth.SecretKey),
		ttl:      ttl,
		username: auth.AdminUsername,
		password: auth.AdminPassword,
		now:      time.Now,
	}, nil
}

// Login checks the credentials and issues a token for them.
func (t *Tokens) Login(username, password string) (apitypes.Token, error) {
	if t.username == "" || !equal(username, t.username) || !equal(password, t.password) {
		return apitypes.Token{}, fmt.Errorf("%w: bad username or password", domain.ErrUnauthorized)
	}
	signed, err := t.Issue(username)
	if err != nil {
		return apitypes.Token{}, err
	}
	return apitypes.Token{
		AccessToken: signed,
		TokenType:   "bearer",
		ExpiresIn:   int(t.ttl.Seconds()),
	}, nil
}

// Issue signs a token for subject.
func (t *Tokens) Issue(subject string) (string, error) {
	now := t.now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Verify parses a token and returns its subject.
func (t *Tokens) Verify(raw string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrUnauthorized, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: %w", domain.ErrUnauthorized, errors.New("token has no subject"))
	}
	return claims.Subject, nil
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
