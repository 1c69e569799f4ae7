package auth

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// UserStore is an in-memory user and token revocation store
type UserStore struct {
	mu      sync.RWMutex
	users   map[string]*Account
	revoked map[string]time.Time // token id -> token expiry
}

// NewUserStore creates an empty store
func NewUserStore() *UserStore {
	return &UserStore{
		users:   make(map[string]*Account),
		revoked: make(map[string]time.Time),
	}
}

// UserSpec describes a user to seed, parsed from "name:password[:role]"
type UserSpec struct {
	Username string
	Password string
	Role     string
}

// ParseUserSpec parses "name:password[:role]"
func ParseUserSpec(spec string) (UserSpec, error) {
	parts := strings.SplitN(spec, ":", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return UserSpec{}, fmt.Errorf("invalid user %q (expected name:password[:role])", spec)
	}
	us := UserSpec{Username: parts[0], Password: parts[1], Role: "viewer"}
	if len(parts) == 3 && parts[2] != "" {
		us.Role = parts[2]
	}
	switch us.Role {
	case "admin", "editor", "viewer":
	default:
		return UserSpec{}, fmt.Errorf("invalid role %q for user %s", us.Role, us.Username)
	}
	return us, nil
}

// BootstrapUsers seeds the store; existing users are left untouched
func BootstrapUsers(db *UserStore, specs []UserSpec) error {
	for _, spec := range specs {
		if _, err := getUserByUsername(db, spec.Username); err == nil {
			continue
		}

		passwordHash, err := HashPassword(spec.Password)
		if err != nil {
			return fmt.Errorf("failed to hash password for %s: %w", spec.Username, err)
		}

		user := NewAccount(spec.Username, spec.Role)
		user.Email = spec.Username + "@localhost"
		user.PasswordHash = passwordHash

		if err := createUser(db, user); err != nil {
			return err
		}
	}
	return nil
}

func getUserByUsername(db *UserStore, username string) (*Account, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	user, ok := db.users[username]
	if !ok {
		return nil, fmt.Errorf("user not found")
	}
	cp := *user
	cp.Orgs = append([]string{}, user.Orgs...)
	return &cp, nil
}

func createUser(db *UserStore, user *Account) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.users[user.Username]; exists {
		return fmt.Errorf("user %s already exists", user.Username)
	}
	cp := *user
	db.users[user.Username] = &cp
	return nil
}

func updateUser(db *UserStore, user *Account) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.users[user.Username]; !exists {
		return fmt.Errorf("user not found")
	}
	cp := *user
	db.users[user.Username] = &cp
	return nil
}

// revokeToken records a token id as logged out until its expiry
func revokeToken(db *UserStore, tokenID string, expiresAt time.Time) {
	db.mu.Lock()
	defer db.mu.Unlock()

	now := time.Now()
	for id, exp := range db.revoked {
		if now.After(exp) {
			delete(db.revoked, id)
		}
	}
	db.revoked[tokenID] = expiresAt
}

func isRevoked(db *UserStore, tokenID string) bool {
	db.mu.RLock()
	defer db.mu.RUnlock()

	_, ok := db.revoked[tokenID]
	return ok
}
