package dto

import "time"

// RegisterRequest payload for new accounts. Role is deliberately absent:
// accounts are always created as USER.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// EmailRequest payload for verification resend and reset initiation.
type EmailRequest struct {
	Email string `json:"email"`
}

// VerifyEmailRequest payload for verification when the token is not passed
// as a query parameter.
type VerifyEmailRequest struct {
	Token string `json:"token"`
}

// ResetPasswordRequest payload for reset confirmation.
type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// ChangePasswordRequest payload for authenticated password change.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}
