package session

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole maps the backend's role string onto a Role. Anything that is
// not recognisably admin is a plain user.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(s)), "ROLE_")) {
	case "admin":
		return RoleAdmin
	default:
		return RoleUser
	}
}

// Session is the authenticated user's token and role, valid until logout.
type Session struct {
	Token     string    `json:"token"`
	Role      Role      `json:"role"`
	Username  string    `json:"username,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == RoleAdmin
}

// ExpiresAt reads the exp claim when the token is a JWT. The signature is
// not checked; the backend remains the authority.
func (s *Session) ExpiresAt() (time.Time, bool) {
	if s == nil || s.Token == "" {
		return time.Time{}, false
	}
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(s.Token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

func (s *Session) Expired(now time.Time) bool {
	exp, ok := s.ExpiresAt()
	return ok && !now.Before(exp)
}
