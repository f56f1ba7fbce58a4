package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenMaker signs and verifies the cookie value that carries a session id.
// The id itself is opaque; the signature only stops clients from minting
// or swapping ids.
type TokenMaker struct {
	secret []byte
	issuer string
}

func NewTokenMaker(secret string) *TokenMaker {
	return &TokenMaker{
		secret: []byte(secret),
		issuer: "minishop-session",
	}
}

type sidClaims struct {
	SID string `json:"sid"`
	jwt.RegisteredClaims
}

func (t *TokenMaker) New(sid string, ttl time.Duration) (string, error) {
	now := time.Now()

	claims := sidClaims{
		SID: sid,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Parse returns the session id embedded in tokenStr, or an error for any
// token not signed by us.
func (t *TokenMaker) Parse(tokenStr string) (string, error) {
	var c sidClaims

	token, err := jwt.ParseWithClaims(tokenStr, &c, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return t.secret, nil
	})
	if err != nil || token == nil || !token.Valid {
		return "", errors.New("invalid token")
	}

	if c.Issuer != "" && c.Issuer != t.issuer {
		return "", errors.New("invalid issuer")
	}
	if c.SID == "" {
		return "", errors.New("empty session id")
	}

	return c.SID, nil
}
