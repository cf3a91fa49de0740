package user

import (
	"time"

	"github.com/hnms/hnms/internal/platform/policy"
)

// User is a principal as stored. PasswordHash never leaves the service.
type User struct {
	ID           int64       `json:"id"`
	HospitalID   *int64      `json:"hospital_id"`
	HospitalName *string     `json:"hospital_name,omitempty"`
	Name         string      `json:"name"`
	Email        string      `json:"email"`
	PasswordHash string      `json:"-"`
	Role         policy.Role `json:"role"`
	Phone        *string     `json:"phone"`
	IsActive     bool        `json:"is_active"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// Principal returns the identity carried in the user's tokens.
func (u *User) Principal() policy.Principal {
	return policy.Principal{
		ID:         u.ID,
		Role:       u.Role,
		HospitalID: u.HospitalID,
		Email:      u.Email,
	}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Name       string      `json:"name"`
	Email      string      `json:"email"`
	Password   string      `json:"password"`
	Role       policy.Role `json:"role"`
	HospitalID *int64      `json:"hospital_id"`
	Phone      *string     `json:"phone"`
}

// UpdateProfileRequest is a partial update; nil fields are left unchanged.
type UpdateProfileRequest struct {
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// AuthResult is returned by login and registration.
type AuthResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *User     `json:"user"`
}

// Password length bounds, in bytes. bcrypt refuses input past 72 bytes.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 72
)
