package model

import (
	"fmt"
	"strings"
)

// Role is the closed set of account types. Roles are stored and compared in
// their canonical lowercase form; parsing at the boundary is case-insensitive.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
	RoleManager Role = "manager"
)

func ParseRole(raw string) (Role, error) {
	switch strings.TrimSpace(strings.ToLower(raw)) {
	case "admin":
		return RoleAdmin, nil
	case "teacher":
		return RoleTeacher, nil
	case "student":
		return RoleStudent, nil
	case "manager", "administrative":
		return RoleManager, nil
	default:
		return "", fmt.Errorf("invalid role %q", raw)
	}
}

func (r Role) String() string {
	return string(r)
}
