package auth

import "github.com/golang-jwt/jwt/v5"

// Claims is the token shape issued by the identity provider.
// The subject is the user id; role is "authenticated", "anon" or "service_role".
type Claims struct {
	jwt.RegisteredClaims

	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
	Role  string `json:"role"`
}

// UserID returns the subject claim.
func (c Claims) UserID() string { return c.Subject }
