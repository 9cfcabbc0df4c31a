package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"

	"github.com/georgemunganga/marketplace-api/internal/modules/access"
)

var errInvalidToken = errors.New("auth: invalid bearer token")

type claims struct {
	jwt.StandardClaims
	Role   access.Role `json:"role"`
	UserID int64       `json:"uid"`
}

// TokenIssuer signs and parses HS256 bearer tokens.
type TokenIssuer struct {
	secret   []byte
	issuer   string
	lifetime time.Duration
	now      func() time.Time
}

func NewTokenIssuer(secret, issuer string, lifetime time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), issuer: issuer, lifetime: lifetime, now: time.Now}
}

func (i *TokenIssuer) Issue(a *Account) (*Token, error) {
	now := i.now()
	exp := now.Add(i.lifetime)
	c := &claims{
		StandardClaims: jwt.StandardClaims{
			Subject:   a.Email,
			Issuer:    i.issuer,
			IssuedAt:  now.Unix(),
			ExpiresAt: exp.Unix(),
		},
		Role:   a.Role,
		UserID: a.ID,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(i.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &Token{Token: signed, Type: "Bearer", ExpiresAt: time.Unix(exp.Unix(), 0).UTC()}, nil
}

// Parse validates raw and returns the principal it carries.
func (i *TokenIssuer) Parse(raw string) (access.Principal, error) {
	c := &claims{}
	tok, err := jwt.ParseWithClaims(raw, c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil || !tok.Valid {
		return access.Anonymous, errInvalidToken
	}
	if i.issuer != "" && !c.VerifyIssuer(i.issuer, true) {
		return access.Anonymous, errInvalidToken
	}
	if c.UserID == 0 || !c.Role.Valid() {
		return access.Anonymous, errInvalidToken
	}
	return access.Principal{UserID: c.UserID, Email: c.Subject, Role: c.Role}, nil
}
