package enums

import "fmt"

// ActorRole represents the roles a caller can act under.
type ActorRole string

const (
	ActorRoleAdmin    ActorRole = "admin"
	ActorRolePlanner  ActorRole = "planner"
	ActorRoleOperator ActorRole = "operator"
	ActorRoleService  ActorRole = "service"
)

var validActorRoles = []ActorRole{
	ActorRoleAdmin,
	ActorRolePlanner,
	ActorRoleOperator,
	ActorRoleService,
}

// String implements fmt.Stringer.
func (r ActorRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ActorRole.
func (r ActorRole) IsValid() bool {
	for _, candidate := range validActorRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseActorRole converts raw input into an ActorRole.
func ParseActorRole(value string) (ActorRole, error) {
	for _, candidate := range validActorRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid actor role %q", value)
}
