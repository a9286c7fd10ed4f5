package roles

// Role names recognised by the resolver.
const (
	RoleAdmin    = "admin"
	RoleHR       = "hr"
	RoleEmployer = "employer"
	RoleManager  = "manager"
	RolePayroll  = "payroll"
	RoleEmployee = "employee"
)

// precedence fixes the order used to pick PrimaryRole when multiple flags
// are set. Kept as an explicit list so it is independently testable.
var precedence = []string{RoleAdmin, RoleHR, RoleEmployer, RoleManager, RolePayroll, RoleEmployee}

// Capabilities is the derived access-control decision for one user. It is
// computed fresh on every session change and never persisted.
type Capabilities struct {
	IsAdmin     bool   `json:"isAdmin"`
	IsHR        bool   `json:"isHR"`
	IsManager   bool   `json:"isManager"`
	IsEmployee  bool   `json:"isEmployee"`
	IsPayroll   bool   `json:"isPayroll"`
	PrimaryRole string `json:"primaryRole"`
}

// EmployeeDefault is the safe fallback used whenever role lookups fail:
// authorization must never crash the caller.
func EmployeeDefault() Capabilities {
	return Capabilities{IsEmployee: true, PrimaryRole: RoleEmployee}
}

// Has reports whether the capability set grants the named role.
func (c Capabilities) Has(role string) bool {
	switch role {
	case RoleAdmin:
		return c.IsAdmin
	case RoleHR:
		return c.IsHR
	case RoleEmployer, RoleManager:
		return c.IsManager
	case RolePayroll:
		return c.IsPayroll
	case RoleEmployee:
		return c.IsEmployee
	default:
		return false
	}
}
