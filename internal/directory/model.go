package directory

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Role classifies a club member's access level.
type Role string

const (
	RoleMember Role = "Member"
	RoleStaff  Role = "Staff"
	RoleAdmin  Role = "Admin"
)

// ErrInvalidRole indicates an unrecognized role value.
var ErrInvalidRole = errors.New("directory: invalid role")

// ParseRole validates a raw role value.
func ParseRole(rawInput string) (Role, error) {
	switch strings.TrimSpace(rawInput) {
	case string(RoleMember):
		return RoleMember, nil
	case string(RoleStaff):
		return RoleStaff, nil
	case string(RoleAdmin):
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, rawInput)
	}
}

// String returns the underlying role value.
func (r Role) String() string {
	return string(r)
}

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	switch r {
	case RoleMember, RoleStaff, RoleAdmin:
		return true
	default:
		return false
	}
}

// User captures one club account: identity, display data, role and the
// credential used for password login.
type User struct {
	UserID       string    `gorm:"column:user_id;primaryKey;size:190;not null"`
	Email        string    `gorm:"column:email;size:320;not null;uniqueIndex"`
	DisplayName  string    `gorm:"column:display_name;size:320;not null"`
	Role         Role      `gorm:"column:role;size:32;not null;default:'Member'"`
	PasswordHash string    `gorm:"column:password_hash;size:120;not null"`
	Active       bool      `gorm:"column:active;not null;default:true"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName exposes the table backing club accounts.
func (User) TableName() string {
	return "users"
}
