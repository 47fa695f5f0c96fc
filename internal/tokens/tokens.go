// Package tokens issues the short-lived admin JWTs handed out after a
// successful login, and verifies them for the admin middleware.
package tokens

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/neubio/neubio/internal/sessions"
	"github.com/neubio/neubio/pkg/middleware"
)

const Subject = "admin"

var ErrRevoked = errors.New("token has been revoked")

// Issuer signs and verifies HS256 admin tokens.
type Issuer struct {
	secret    []byte
	ttl       time.Duration
	blacklist sessions.Blacklist
}

// NewIssuer returns an issuer. blacklist may be nil to disable revocation.
func NewIssuer(secret string, ttl time.Duration, blacklist sessions.Blacklist) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl, blacklist: blacklist}
}

func (i *Issuer) TTL() time.Duration { return i.ttl }

// GenerateAccessToken creates a signed admin token with a fresh jti.
func (i *Issuer) GenerateAccessToken() (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": Subject,
		"jti": uuid.NewString(),
		"iat": now.Unix(),
		"exp": now.Add(i.ttl).Unix(),
	}
	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return jt.SignedString(i.secret)
}

func (i *Issuer) parse(raw string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithSubject(Subject), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// Verify implements middleware.Verifier.
func (i *Issuer) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	claims, err := i.parse(raw)
	if err != nil {
		return nil, err
	}
	if i.blacklist != nil {
		jti, _ := claims["jti"].(string)
		revoked, err := i.blacklist.IsRevoked(ctx, jti)
		if err != nil {
			return nil, err
		}
		if revoked {
			return nil, ErrRevoked
		}
	}
	return token{claims: claims}, nil
}

// Revoke blacklists raw until it would have expired anyway.
func (i *Issuer) Revoke(ctx context.Context, raw string) error {
	if i.blacklist == nil {
		return nil
	}
	claims, err := i.parse(raw)
	if err != nil {
		return err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return err
	}
	jti, _ := claims["jti"].(string)
	return i.blacklist.Revoke(ctx, jti, time.Until(exp.Time))
}

type token struct {
	claims jwt.MapClaims
}

// Claims decodes the token claims into v.
func (t token) Claims(v interface{}) error {
	b, err := json.Marshal(t.claims)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}
