package jwt

import "github.com/golang-jwt/jwt/v5"

// Claims are carried by API bearer tokens.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

type Role string

const (
	RoleViewer Role = "viewer"
	RoleScorer Role = "scorer"
	RoleAdmin  Role = "admin"
)

// CanWrite reports whether the role may record frames and create games.
func (r Role) CanWrite() bool {
	return r == RoleScorer || r == RoleAdmin
}
