package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/stocktrail/stocktrail-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID   int64
	Username string
	Roles    []enums.Role
	JTI      string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID   int64        `json:"user_id"`
	Username string       `json:"username"`
	Roles    []enums.Role `json:"roles"`
	jwt.RegisteredClaims
}

// HasRole reports whether the claims grant the given role.
func (c *AccessTokenClaims) HasRole(role enums.Role) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}
