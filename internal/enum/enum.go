package enum

// ── State machines (CHECK constrained in DB) ──

const (
	OrderStatusPending   = "PENDING"
	OrderStatusConfirmed = "CONFIRMED"
	OrderStatusPreparing = "PREPARING"
	OrderStatusReady     = "READY"
	OrderStatusServed    = "SERVED"
	OrderStatusCompleted = "COMPLETED"
	OrderStatusCancelled = "CANCELLED"
)

const (
	PaymentStatusPending   = "PENDING"
	PaymentStatusCompleted = "COMPLETED"
	PaymentStatusFailed    = "FAILED"
)

// Shared by staff, branches and hotels.
const (
	StatusActive    = "ACTIVE"
	StatusSuspended = "SUSPENDED"
)

const (
	StaffStatusActive    = StatusActive
	StaffStatusSuspended = StatusSuspended
)

const (
	AssignmentMethodRoundRobin    = "round-robin"
	AssignmentMethodLoadBalancing = "load-balancing"
	AssignmentMethodManual        = "manual"
)

const (
	AssignmentActionAssigned = "assigned"
	AssignmentActionRemoved  = "removed"
	AssignmentActionReleased = "released"
)

const (
	QueuePriorityNormal = "normal"
	QueuePriorityHigh   = "high"
)

// ── Roles (CHECK constrained in DB) ──

const (
	RoleSuperAdmin  = "SUPER_ADMIN"
	RoleHotelAdmin  = "HOTEL_ADMIN"
	RoleBranchAdmin = "BRANCH_ADMIN"
	RoleWaiter      = "WAITER"
)

// IsTerminalOrderStatus reports whether the order lifecycle has ended and the
// assignee's load slot must be released.
func IsTerminalOrderStatus(s string) bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// IsValidAssignmentMethod reports whether s names a selection policy or the
// manual override.
func IsValidAssignmentMethod(s string) bool {
	switch s {
	case AssignmentMethodRoundRobin, AssignmentMethodLoadBalancing, AssignmentMethodManual:
		return true
	}
	return false
}

// IsValidQueuePriority reports whether s is a recognized queue priority band.
func IsValidQueuePriority(s string) bool {
	return s == QueuePriorityNormal || s == QueuePriorityHigh
}
