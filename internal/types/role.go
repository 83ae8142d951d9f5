package types

// Role is an administrative privilege level. Roles are strictly ordered;
// a higher role may do everything a lower role can.
type Role string

const (
	RoleSupport Role = "support"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
	RoleOwner   Role = "owner"
)

var roleRanks = map[Role]int{
	RoleSupport: 1,
	RoleManager: 2,
	RoleAdmin:   3,
	RoleOwner:   4,
}

// Rank returns the ordinal privilege level of the role. Unknown roles rank at 0,
// below every registered role.
func (r Role) Rank() int {
	return roleRanks[r]
}

// AtLeast reports whether the role grants at least the privilege of min.
func (r Role) AtLeast(min Role) bool {
	return r.Rank() >= min.Rank()
}

// HighestRole returns the most privileged role in the set. An empty set
// yields the zero Role, which ranks below everything.
func HighestRole(roles []Role) Role {
	var highest Role
	for _, r := range roles {
		if r.Rank() > highest.Rank() {
			highest = r
		}
	}
	return highest
}
