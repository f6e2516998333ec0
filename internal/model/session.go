package model

import "time"

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleClinician Role = "clinician"
	RoleUnknown   Role = "unknown"
)

// ParseRole maps a stored role string; anything unrecognised is RoleUnknown.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleAdmin, RoleClinician:
		return Role(s)
	default:
		return RoleUnknown
	}
}

type Session struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	Role        Role   `json:"role"`
}

func (s Session) IsAdmin() bool { return s.Role == RoleAdmin }

// Credential is what the identity platform hands back on sign-in.
type Credential struct {
	UserID       string
	DisplayName  string
	Email        string
	IDToken      string
	RefreshToken string
	ExpiresAt    time.Time
}

// UserProfile is the per-user document kept by the document platform.
type UserProfile struct {
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}
