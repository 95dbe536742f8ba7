/*
Package jwt issues and verifies the identity tokens presented on the REST API.

Tokens are HS256 signed. The subject is the user id that the chat client also
announces in its socket auth frame.
*/
package jwt

import "github.com/golang-jwt/jwt"

// Payload is the claim set of an identity token.
type Payload struct {
	jwt.StandardClaims

	// UserID is the users.id of the token holder.
	UserID string `json:"uid"`

	// Role mirrors users.role, informational only.
	Role string `json:"role,omitempty"`
}
