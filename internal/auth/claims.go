package auth

import "github.com/golang-jwt/jwt/v5"

type TokenType string

const (
	TokenTypeAccess TokenType = "access"
	// TokenTypeStream is a short-lived token that may travel in a URL query
	// string, since EventSource clients cannot attach headers.
	TokenTypeStream TokenType = "stream"
)

// Claims are the only supported JWT claims shape for this service.
// UserID is the owning account; every call event and alert is scoped to it.
type Claims struct {
	jwt.RegisteredClaims

	UserID    string    `json:"user_id"`
	TokenType TokenType `json:"token_type"`
}
