package http

import (
	"time"

	"github.com/AlibekovAA/examination-system/internal/auth/service"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Type     string `json:"type"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type resendConfirmationRequest struct {
	Email string `json:"email"`
}

type revokeTokenRequest struct {
	Token string `json:"token"`
}

type authResponse struct {
	Message                string     `json:"message,omitempty"`
	IsAuthenticated        bool       `json:"isAuthenticated"`
	Username               string     `json:"username,omitempty"`
	Email                  string     `json:"email,omitempty"`
	Roles                  []string   `json:"roles,omitempty"`
	Token                  string     `json:"token,omitempty"`
	ExpiresOn              *time.Time `json:"expiresOn,omitempty"`
	RefreshToken           string     `json:"refreshToken,omitempty"`
	RefreshTokenExpiration *time.Time `json:"refreshTokenExpiration,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func toAuthResponse(result service.AuthResult) authResponse {
	resp := authResponse{
		Message:         result.Message,
		IsAuthenticated: result.IsAuthenticated,
		Username:        result.Username,
		Email:           result.Email,
		Roles:           result.Roles,
		Token:           result.Token,
		RefreshToken:    result.RefreshToken,
	}
	if !result.ExpiresOn.IsZero() {
		expires := result.ExpiresOn
		resp.ExpiresOn = &expires
	}
	if !result.RefreshTokenExpiration.IsZero() {
		expires := result.RefreshTokenExpiration
		resp.RefreshTokenExpiration = &expires
	}
	return resp
}
