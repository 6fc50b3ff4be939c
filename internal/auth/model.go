// File: internal/auth/model.go
package auth

import (
	"launchpad_backend/internal/firebase"
	"launchpad_backend/internal/user"
)

// SignUpRequest creates an identity and its account record.
type SignUpRequest struct {
	Email       string `json:"email" binding:"required,email,max=255"`
	Password    string `json:"password" binding:"required,min=8,max=128"`
	Username    string `json:"username" binding:"required,username"`
	DisplayName string `json:"display_name" binding:"omitempty,max=100"`
}

// LoginRequest defines the structure for login requests.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse pairs the account with the identity provider session.
type AuthResponse struct {
	User    user.UserResponse `json:"user"`
	Session *firebase.Session `json:"session,omitempty"`
}
