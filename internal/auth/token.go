// Package auth issues session tokens and hashes passwords.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/juju/clock"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	jwt.RegisteredClaims
	UserID      string `json:"userId"`
	Email       string `json:"email"`
	IsLocalUser *bool  `json:"isLocalUser,omitempty"`
}

// Local reports whether the token was issued to a local identity.
func (c *Claims) Local() bool {
	return c.IsLocalUser != nil && *c.IsLocalUser
}

type Issuer struct {
	secret    []byte
	remoteTTL time.Duration
	localTTL  time.Duration
	clock     clock.Clock
}

func NewIssuer(secret string, remoteTTL, localTTL time.Duration) *Issuer {
	return &Issuer{
		secret:    []byte(secret),
		remoteTTL: remoteTTL,
		localTTL:  localTTL,
		clock:     clock.WallClock,
	}
}

// IssueRemote signs an HS256 token for a remote user.
func (i *Issuer) IssueRemote(userID, email string) (string, error) {
	return i.issue(Claims{UserID: userID, Email: email}, i.remoteTTL)
}

// IssueLocal signs a token for a local identity; it lives longer than a remote one.
func (i *Issuer) IssueLocal(userID, email string) (string, error) {
	local := true
	return i.issue(Claims{UserID: userID, Email: email, IsLocalUser: &local}, i.localTTL)
}

func (i *Issuer) issue(claims Claims, ttl time.Duration) (string, error) {
	now := i.clock.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("token.SignedString() > %w", err)
	}
	return signed, nil
}

func (i *Issuer) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.clock.Now),
	)
	if err != nil {
		return nil, fmt.Errorf("jwt.ParseWithClaims() > %w", errors.Join(ErrInvalidToken, err))
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func HashPassword(password string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt.GenerateFromPassword() > %w", err)
	}
	return string(hashed), nil
}

func CheckPassword(hashed, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password)) == nil
}
