package transfer

import "github.com/golang-jwt/jwt/v5"

// CustomClaims is the session cookie payload.
type CustomClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// StateClaims is the signed OAuth state carried through the provider redirect.
// The registered ID is the handshake nonce.
type StateClaims struct {
	WorkspaceID int64  `json:"wid"`
	Platform    string `json:"plt"`
	Method      string `json:"mth,omitempty"`
	jwt.RegisteredClaims
}
