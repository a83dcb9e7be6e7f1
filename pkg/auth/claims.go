package auth

import "github.com/golang-jwt/jwt/v5"

// CookieClaims is the signed payload carried by the session cookie. The
// registered ID (jti) holds the opaque server-side session token.
type CookieClaims struct {
	Tenant string `json:"tenant,omitempty"`
	jwt.RegisteredClaims
}

// SessionToken returns the server-side token the cookie points at.
func (c *CookieClaims) SessionToken() string {
	if c == nil {
		return ""
	}
	return c.ID
}
