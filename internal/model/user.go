package model

import (
	"time"
)

// Role is the platform role of a user.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleSupport  Role = "customer_support"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleSupport
}

// UserProfile is the stored profile of a registered user.
type UserProfile struct {
	UID       string    `json:"uid"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// RegisterRequest registers a user after identity-provider sign-up.
type RegisterRequest struct {
	IDToken string `json:"idToken"`
	Role    Role   `json:"role"`
	Name    string `json:"name"`
	Email   string `json:"email"`
}

// LoginRequest exchanges an ID token for the stored profile.
type LoginRequest struct {
	IDToken string `json:"idToken"`
}

// AuthResponse wraps a user profile.
type AuthResponse struct {
	Success bool         `json:"success"`
	Data    AuthUserData `json:"data"`
}

// AuthUserData is the payload of AuthResponse.
type AuthUserData struct {
	User UserProfile `json:"user"`
}
