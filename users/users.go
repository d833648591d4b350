package users

import (
	"fmt"
	"strings"
)

// RoleType is the single role a principal holds in the delivery platform
type RoleType string

const (
	RoleClient  RoleType = "CLIENT"  // Tracks their own deliveries
	RoleDriver  RoleType = "DRIVER"  // Works assigned deliveries
	RoleAdmin   RoleType = "ADMIN"   // Manages deliveries, drivers and vehicles
	RoleManager RoleType = "MANAGER" // Operational oversight
)

// StatusType is the account status reported by the backend
type StatusType string

const (
	StatusActive    StatusType = "ACTIVE"
	StatusInactive  StatusType = "INACTIVE"
	StatusSuspended StatusType = "SUSPENDED"
)

var knownRoles = map[RoleType]struct{}{
	RoleClient:  {},
	RoleDriver:  {},
	RoleAdmin:   {},
	RoleManager: {},
}

// ParseRole converts a role name (case insensitive) into a RoleType.
func ParseRole(s string) (RoleType, error) {
	role := RoleType(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := knownRoles[role]; !ok {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return role, nil
}

// User is the profile of the signed-in principal as returned by the remote API.
// It is only ever replaced wholesale by a fresh copy from the server.
type User struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	FirstName string     `json:"firstName"`
	LastName  string     `json:"lastName"`
	Phone     string     `json:"phone"`
	Role      RoleType   `json:"role"`
	Status    StatusType `json:"status"`
	CreatedAt string     `json:"createdAt"` // backend timestamps are zone-less local date-times
	UpdatedAt string     `json:"updatedAt"`
	Avatar    *string    `json:"avatar,omitempty"`
}

// HasRole reports whether the user holds role. An empty role is satisfied by any user.
func (u *User) HasRole(role RoleType) bool {
	if u == nil {
		return false
	}
	if role == "" {
		return true
	}
	return u.Role == role
}

func (u *User) IsClient() bool  { return u.HasRole(RoleClient) }
func (u *User) IsDriver() bool  { return u.HasRole(RoleDriver) }
func (u *User) IsAdmin() bool   { return u.HasRole(RoleAdmin) }
func (u *User) IsManager() bool { return u.HasRole(RoleManager) }

func (u *User) IsSuspended() bool {
	return u != nil && u.Status == StatusSuspended
}

func (u *User) FullName() string {
	if u == nil {
		return ""
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
