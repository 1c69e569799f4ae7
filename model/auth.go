// Package model - request and response records exchanged with the auth endpoints
package model

import "strings"

// DefaultTokenType is used when the server omits token_type
const DefaultTokenType = "Bearer"

// Credentials is the body of a login request
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Session is the body of a successful login response
type Session struct {
	AccessToken string `json:"access_token" yaml:"access_token"`
	TokenType   string `json:"token_type" yaml:"token_type"`
	Username    string `json:"username" yaml:"username"`
}

// AuthorizationHeader renders the value for the Authorization header.
// Servers commonly send "bearer" in lower case; the scheme is normalised to "Bearer".
func (s *Session) AuthorizationHeader() string {
	scheme := s.TokenType
	if scheme == "" || strings.EqualFold(scheme, DefaultTokenType) {
		scheme = DefaultTokenType
	}
	return scheme + " " + s.AccessToken
}

// PasswordChange is the body of a change-password request
type PasswordChange struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

// MessageResponse is the generic {"message": ...} acknowledgement
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the generic {"error": ...} failure body
type ErrorResponse struct {
	Error string `json:"error"`
}
