// Package auth provides authentication and authorization types for the REST API.
package auth

import (
	"time"

	"github.com/ortelius/pdvd-auth/model"
)

// Keys used to hand request identity from middleware to handlers via fiber Locals
const (
	localAuthenticated = "is_authenticated"
	localUsername      = "username"
	localRole          = "role"
	localTokenID       = "token_id"
	localTokenExpiry   = "token_expiry"
)

// Account is a stored user: the public profile plus credentials
type Account struct {
	model.User
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewAccount creates an active account with default values
func NewAccount(username, role string) *Account {
	now := time.Now()
	if role == "" {
		role = "viewer"
	}
	return &Account{
		User: model.User{
			Username: username,
			Role:     role,
			Orgs:     []string{}, // Empty by default (global access)
		},
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
