package users

import (
	"strings"
	"time"
)

// Defaults for newly registered users.
const (
	DefaultLanguage  = "en"
	DefaultAIUpdates = true
)

// User is a registered citizen.
type User struct {
	ID           string
	Name         string
	Mobile       string
	PasswordHash string
	Language     string
	AIUpdates    bool
	CreatedAt    time.Time
}

// Profile is the public view of a user.
type Profile struct {
	ID        string `json:"id"`
	FullName  string `json:"fullName"`
	Phone     string `json:"phone"`
	Language  string `json:"language"`
	AIUpdates bool   `json:"ai_updates"`
	CreatedAt string `json:"created_at"`
}

// Profile renders the public view.
func (u *User) Profile() Profile {
	return Profile{
		ID:        u.ID,
		FullName:  u.Name,
		Phone:     u.Mobile,
		Language:  u.Language,
		AIUpdates: u.AIUpdates,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// RegisterRequest is the sign-up payload.
type RegisterRequest struct {
	Name     string `json:"name"`
	Mobile   string `json:"mobile"`
	Password string `json:"password"`
}

// Validate checks required fields.
func (r *RegisterRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrInvalidName
	}
	if strings.TrimSpace(r.Mobile) == "" {
		return ErrInvalidMobile
	}
	if len(r.Password) < 6 {
		return ErrInvalidPassword
	}
	return nil
}

// LoginRequest is the sign-in payload.
type LoginRequest struct {
	Mobile   string `json:"mobile"`
	Password string `json:"password"`
}

// UpdateProfileRequest renames a user.
type UpdateProfileRequest struct {
	FullName string `json:"fullName"`
}

// UpdatePreferencesRequest changes language and AI update settings.
type UpdatePreferencesRequest struct {
	Language  string `json:"language"`
	AIUpdates bool   `json:"ai_updates"`
}

// NormalizeMobile strips spaces and dashes so "98765 43210" and
// "98765-43210" register as the same number.
func NormalizeMobile(mobile string) string {
	return strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(strings.TrimSpace(mobile))
}
