package jwt

import "github.com/golang-jwt/jwt"

// Payload defines the JWT claims carried by operator tokens for the
// torwatch admin API.
type Payload struct {
	// StandardClaims embeds the standard JWT fields (Exp, Iat, Iss) used
	// for token validity checks.
	jwt.StandardClaims `json:"standard_claims"`

	// Role identifies the token holder's role. Currently only "operator"
	// is issued; the field exists so future read-only roles do not require
	// a token format change.
	Role string `json:"role"`
}
