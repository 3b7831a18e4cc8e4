package domain

import "fmt"

// Role classifies what an account does in the supply chain. The numeric
// codes are part of the public record and must not change.
type Role int

const (
	RoleCoordinator  Role = 1
	RoleManufacturer Role = 2
	RoleCourier      Role = 3
	RoleAdmin        Role = 4
	RoleReceiver     Role = 5
)

var roleNames = map[Role]string{
	RoleCoordinator:  "coordinator",
	RoleManufacturer: "manufacturer",
	RoleCourier:      "courier",
	RoleAdmin:        "admin",
	RoleReceiver:     "receiver",
}

// Valid reports whether r is one of the known role codes.
func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// ParseRole accepts either the numeric code ("3") or the role name
// ("courier"). The zero Role is returned for anything else.
func ParseRole(s string) (Role, error) {
	for r, name := range roleNames {
		if s == name || s == fmt.Sprint(int(r)) {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown role %q", s)
}
