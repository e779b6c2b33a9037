package brewy

// roleHierarchy maps each role to its rank. Higher rank outranks lower.
var roleHierarchy = map[UserRole]int{
	RoleAgent:      0,
	RoleAdmin:      1,
	RoleOwner:      2,
	RoleSuperOwner: 3,
}

// roleCreationTable whitelists which roles a creator may hand out.
var roleCreationTable = map[UserRole][]UserRole{
	RoleSuperOwner: {RoleSuperOwner, RoleOwner, RoleAdmin, RoleAgent},
	RoleOwner:      {RoleAdmin, RoleAgent},
	RoleAdmin:      {RoleAgent},
	RoleAgent:      {},
}

// IsValidRole checks if the role is one of the predefined valid roles
func IsValidRole(r UserRole) bool {
	_, ok := roleHierarchy[r]
	return ok
}

// ParseRole safely parses a string into a UserRole type
func ParseRole(roleStr string) (UserRole, bool) {
	role := UserRole(roleStr)
	return role, IsValidRole(role)
}

// GetAllRoles returns all predefined roles in hierarchical order
func GetAllRoles() []UserRole {
	return []UserRole{
		RoleAgent,
		RoleAdmin,
		RoleOwner,
		RoleSuperOwner,
	}
}

// RoleAtLeast checks if role meets the minimum required level.
func RoleAtLeast(role, minRole UserRole) bool {
	currentLevel, exists := roleHierarchy[role]
	if !exists {
		return false
	}

	minLevel, exists := roleHierarchy[minRole]
	if !exists {
		return false
	}

	return currentLevel >= minLevel
}

// Authorize reports whether the principal's role is in requiredRoles.
// SUPER_OWNER passes every gate, including an empty list. An empty list
// for any other role means "no restriction".
func Authorize(principal *Principal, requiredRoles ...UserRole) bool {
	if principal == nil {
		return false
	}

	if principal.Role == RoleSuperOwner {
		return true
	}

	if len(requiredRoles) == 0 {
		return true
	}

	for _, role := range requiredRoles {
		if principal.Role == role {
			return true
		}
	}

	return false
}

// CanCreateRole checks the delegated-creation whitelist: whether a user
// holding creatorRole may create a user with targetRole.
func CanCreateRole(creatorRole, targetRole UserRole) bool {
	allowed, ok := roleCreationTable[creatorRole]
	if !ok {
		return false
	}

	for _, role := range allowed {
		if role == targetRole {
			return true
		}
	}

	return false
}
