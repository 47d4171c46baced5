package chat

import "github.com/huddleapp/huddle/backend/internal/directory"

// CanMessage evaluates the role visibility rule in one place: admins may only
// start conversations with staff, members may reach staff and admins, staff
// may reach anyone. Unknown roles are denied.
func CanMessage(actorRole, targetRole directory.Role) bool {
	if !actorRole.Valid() || !targetRole.Valid() {
		return false
	}
	switch actorRole {
	case directory.RoleAdmin:
		return targetRole == directory.RoleStaff
	case directory.RoleMember:
		return targetRole == directory.RoleStaff || targetRole == directory.RoleAdmin
	case directory.RoleStaff:
		return true
	default:
		return false
	}
}
