// Package model provides data models for the PDVD auth client.
package model

// User is the profile returned by the /auth/me endpoint
type User struct {
	Username        string   `json:"username"`
	Email           string   `json:"email"`
	Role            string   `json:"role"` // admin, editor, viewer
	Orgs            []string `json:"orgs"` // empty means global access
	GitHubConnected bool     `json:"github_connected"`
}

// HasOrgAccess checks if user has access to a specific org
func (u *User) HasOrgAccess(org string) bool {
	// Empty orgs = global access
	if len(u.Orgs) == 0 {
		return true
	}

	for _, userOrg := range u.Orgs {
		if userOrg == org {
			return true
		}
	}

	return false
}

// HasPermission checks if user has a specific permission
func (u *User) HasPermission(permission string) bool {
	switch u.Role {
	case "admin":
		return true
	case "editor":
		return permission == "read" || permission == "write"
	case "viewer":
		return permission == "read"
	}

	return false
}

// IsAdmin returns true if user is admin
func (u *User) IsAdmin() bool {
	return u.Role == "admin"
}

// CanWrite returns true if user can write
func (u *User) CanWrite() bool {
	return u.HasPermission("write")
}

// CanRead returns true if user can read
func (u *User) CanRead() bool {
	return u.HasPermission("read")
}

// Permissions lists the permissions granted by the user's role, most privileged first
func (u *User) Permissions() []string {
	var perms []string
	for _, p := range []string{"admin", "write", "read"} {
		if u.HasPermission(p) {
			perms = append(perms, p)
		}
	}
	return perms
}
