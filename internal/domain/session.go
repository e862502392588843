package domain

import "strings"

// Role distinguishes employees from administrators.
type Role string

const (
	RoleEmployee Role = "Employee"
	RoleAdmin    Role = "Admin"
)

// ParseRole matches a role name case-insensitively.
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "employee":
		return RoleEmployee, true
	case "admin":
		return RoleAdmin, true
	}
	return "", false
}

// Session identifies the user behind a request.
type Session struct {
	Type  Role   `json:"type"`
	Email string `json:"email"`
}

// IsAdmin reports whether the session belongs to an administrator.
func (s Session) IsAdmin() bool {
	return s.Type == RoleAdmin
}

// CanSee reports whether the session may view the given bill.
// Admins see every bill; employees only their own.
func (s Session) CanSee(b Bill) bool {
	if s.IsAdmin() {
		return true
	}
	return s.Email != "" && strings.EqualFold(s.Email, b.Email)
}
