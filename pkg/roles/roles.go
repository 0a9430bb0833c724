package roles

// Role is the permission level of a scanner user.
type Role string

const (
	Operator   Role = "operator"
	Supervisor Role = "supervisor"
	Admin      Role = "admin"
)

type HierarchyLevel int

const (
	OperatorLevel   HierarchyLevel = 1
	SupervisorLevel HierarchyLevel = 2
	AdminLevel      HierarchyLevel = 3
)

func (r Role) GetHierarchyLevel() HierarchyLevel {
	switch r {
	case Operator:
		return OperatorLevel
	case Supervisor:
		return SupervisorLevel
	case Admin:
		return AdminLevel
	default:
		return 0
	}
}

// HasPermission reports whether r is at least requiredRole. Unknown roles never pass.
func (r Role) HasPermission(requiredRole Role) bool {
	if !r.IsValid() || !requiredRole.IsValid() {
		return false
	}
	return r.GetHierarchyLevel() >= requiredRole.GetHierarchyLevel()
}

func (r Role) IsValid() bool {
	switch r {
	case Operator, Supervisor, Admin:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	return string(r)
}
