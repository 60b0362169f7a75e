package auth

import "time"

// Config drives bearer token verification. With Issuer set, tokens are
// verified against the issuer's OIDC keys and Audience; otherwise they must be
// HS256 tokens signed with Secret.
type Config struct {
	Secret   string
	Issuer   string
	Audience string
}

// Claims are extracted from a verified token.
type Claims struct {
	Subject   string
	Email     string
	ExpiresAt time.Time
}
