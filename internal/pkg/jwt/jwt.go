// Package jwt signs and verifies the two token kinds the service issues.
// Access and refresh tokens use distinct secrets, so one can never pass for
// the other.
package jwt

import (
	"errors"
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

var (
	ErrInvalidSignature = errors.New("jwt: invalid token")
	ErrExpired          = errors.New("jwt: token expired")
)

// Identity is the user snapshot embedded in every token.
type Identity struct {
	UserID   string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Claims is the JWT payload. Refresh tokens carry the session id as jti.
type Claims struct {
	UserID   string `json:"uid"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	jwtlib.RegisteredClaims
}

func (c *Claims) Identity() Identity {
	return Identity{UserID: c.UserID, Username: c.Username, Email: c.Email}
}

// SessionID returns the refresh session the token belongs to.
func (c *Claims) SessionID() string { return c.ID }

type Options struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	// Now overrides the clock, for tests.
	Now func() time.Time
}

type Codec struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	now           func() time.Time
}

func NewCodec(opts Options) (*Codec, error) {
	if opts.AccessSecret == "" || opts.RefreshSecret == "" {
		return nil, errors.New("jwt: both secrets are required")
	}
	if opts.AccessSecret == opts.RefreshSecret {
		return nil, errors.New("jwt: access and refresh secrets must differ")
	}
	c := &Codec{
		accessSecret:  []byte(opts.AccessSecret),
		refreshSecret: []byte(opts.RefreshSecret),
		accessTTL:     opts.AccessTTL,
		refreshTTL:    opts.RefreshTTL,
		issuer:        opts.Issuer,
		now:           opts.Now,
	}
	if c.accessTTL <= 0 {
		c.accessTTL = DefaultAccessTTL
	}
	if c.refreshTTL <= 0 {
		c.refreshTTL = DefaultRefreshTTL
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c, nil
}

func (c *Codec) Now() time.Time            { return c.now() }
func (c *Codec) AccessTTL() time.Duration  { return c.accessTTL }
func (c *Codec) RefreshTTL() time.Duration { return c.refreshTTL }

// SignAccess issues a short-lived access token for id.
func (c *Codec) SignAccess(id Identity) (string, error) {
	return c.sign(id, "", c.accessTTL, c.accessSecret)
}

// SignRefresh issues a refresh token bound to sessionID.
func (c *Codec) SignRefresh(id Identity, sessionID string) (string, error) {
	if sessionID == "" {
		return "", errors.New("jwt: refresh token requires a session id")
	}
	return c.sign(id, sessionID, c.refreshTTL, c.refreshSecret)
}

func (c *Codec) VerifyAccess(token string) (*Claims, error) {
	return c.parse(token, c.accessSecret)
}

func (c *Codec) VerifyRefresh(token string) (*Claims, error) {
	claims, err := c.parse(token, c.refreshSecret)
	if err != nil {
		return nil, err
	}
	if claims.ID == "" {
		return nil, ErrInvalidSignature
	}
	return claims, nil
}

func (c *Codec) sign(id Identity, jti string, ttl time.Duration, secret []byte) (string, error) {
	now := c.now()
	claims := Claims{
		UserID:   id.UserID,
		Username: id.Username,
		Email:    id.Email,
		RegisteredClaims: jwtlib.RegisteredClaims{
			ID:        jti,
			Subject:   id.UserID,
			Issuer:    c.issuer,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func (c *Codec) parse(tokenStr string, secret []byte) (*Claims, error) {
	if tokenStr == "" {
		return nil, ErrInvalidSignature
	}
	opts := []jwtlib.ParserOption{
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithTimeFunc(c.now),
	}
	if c.issuer != "" {
		opts = append(opts, jwtlib.WithIssuer(c.issuer))
	}
	token, err := jwtlib.ParseWithClaims(tokenStr, &Claims{}, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwtlib.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidSignature
	}
	return claims, nil
}
