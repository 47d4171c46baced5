package chat

import (
	"testing"

	"github.com/huddleapp/huddle/backend/internal/directory"
)

func TestCanMessageMatrix(t *testing.T) {
	testCases := []struct {
		actor   directory.Role
		target  directory.Role
		allowed bool
	}{
		{directory.RoleMember, directory.RoleMember, false},
		{directory.RoleMember, directory.RoleStaff, true},
		{directory.RoleMember, directory.RoleAdmin, true},
		{directory.RoleStaff, directory.RoleMember, true},
		{directory.RoleStaff, directory.RoleStaff, true},
		{directory.RoleStaff, directory.RoleAdmin, true},
		{directory.RoleAdmin, directory.RoleMember, false},
		{directory.RoleAdmin, directory.RoleStaff, true},
		{directory.RoleAdmin, directory.RoleAdmin, false},
		{directory.Role("Ghost"), directory.RoleStaff, false},
		{directory.RoleStaff, directory.Role("Ghost"), false},
	}

	for _, testCase := range testCases {
		got := CanMessage(testCase.actor, testCase.target)
		if got != testCase.allowed {
			t.Fatalf("CanMessage(%s, %s) = %v, expected %v",
				testCase.actor, testCase.target, got, testCase.allowed)
		}
	}
}
