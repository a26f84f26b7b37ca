package server

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/vctt94/ohhell/pkg/wire"
)

const tokenIssuer = "ohhell"

// tokenLifetime is deliberately generous: anonymous identities have nothing
// to steal, and expiring them mid-game would orphan lobby slots.
const tokenLifetime = 365 * 24 * time.Hour

// tokenClaims is the JWT payload of an anonymous identity. The subject is
// the player id.
type tokenClaims struct {
	Nickname string `json:"nickname"`
	Picture  string `json:"picture"`
	jwt.RegisteredClaims
}

// Authenticator mints and verifies HS256 tokens for anonymous identities.
type Authenticator struct {
	key []byte
}

// NewAuthenticator creates an authenticator with the given HS256 secret.
func NewAuthenticator(key []byte) (*Authenticator, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("jwt key is required")
	}
	return &Authenticator{key: key}, nil
}

// NewIdentity mints claims for a fresh anonymous identity.
func NewIdentity(nickname, picture string) wire.UserClaims {
	return wire.UserClaims{
		ID:       uuid.NewString(),
		Nickname: nickname,
		Picture:  picture,
	}
}

// Issue signs a token for the given claims.
func (a *Authenticator) Issue(claims wire.UserClaims) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		Nickname: claims.Nickname,
		Picture:  claims.Picture,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.ID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenLifetime)),
		},
	})

	signed, err := token.SignedString(a.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %v", err)
	}
	return signed, nil
}

// Verify parses and validates a token, returning its claims. Any failure
// maps to ErrUnauthorized.
func (a *Authenticator) Verify(tokenString string) (wire.UserClaims, error) {
	var claims tokenClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims,
		func(t *jwt.Token) (interface{}, error) { return a.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
	)
	if err != nil {
		return wire.UserClaims{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if claims.Subject == "" {
		return wire.UserClaims{}, fmt.Errorf("%w: token has no subject", ErrUnauthorized)
	}

	return wire.UserClaims{
		ID:       claims.Subject,
		Nickname: claims.Nickname,
		Picture:  claims.Picture,
	}, nil
}
