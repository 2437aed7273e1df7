package utils // package utils provides helpers for session token creation and key hashing

import (
	"time" // time utilities for generating expirations

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// SessionToken represents a signed JWT session token along with its
// expiry.  Sessions are issued when a wallet connects and are sent in
// the Authorization header on protected endpoints.  There is no
// password: proving control of the wallet happens client-side, and the
// token simply binds the session to one wallet address and role.
type SessionToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// NewSessionToken builds and signs an HS256 JWT for a wallet.  The
// subject claim carries the wallet address and the role claim is
// either "wallet" or "admin".  TTL is expressed in minutes.
func NewSessionToken(secret, wallet, role string, ttlMin int) (SessionToken, error) {
	exp := time.Now().UTC().Add(time.Duration(ttlMin) * time.Minute)
	claims := jwt.MapClaims{
		"sub":  wallet,
		"role": role,
		"exp":  exp.Unix(),
		"iat":  time.Now().UTC().Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return SessionToken{}, err
	}
	return SessionToken{Token: signed, Exp: exp}, nil
}
