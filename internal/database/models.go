package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Hotel struct {
	ID        uuid.UUID
	Name      string
	AdminID   pgtype.UUID
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Branch struct {
	ID        uuid.UUID
	HotelID   uuid.UUID
	Name      string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Staff struct {
	ID                 uuid.UUID
	HotelID            uuid.UUID
	BranchID           uuid.UUID
	Name               string
	Email              string
	PasswordHash       string
	Role               string
	Status             string
	IsAvailable        bool
	AvailabilityReason pgtype.Text
	ActiveOrdersCount  int32
	MaxCapacity        int32
	LastAssignedAt     pgtype.Timestamptz
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Order is the assignment-relevant projection of an order. The wider order
// lifecycle (items, pricing, fulfilment) belongs to the ordering subsystem.
type Order struct {
	ID               uuid.UUID
	HotelID          uuid.UUID
	BranchID         uuid.UUID
	CustomerID       pgtype.UUID
	Status           string
	PaymentStatus    string
	TotalAmount      pgtype.Numeric
	StaffID          pgtype.UUID
	AssignmentMethod pgtype.Text
	AssignedAt       pgtype.Timestamptz
	PaidAt           pgtype.Timestamptz
	CompletedAt      pgtype.Timestamptz
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type AssignmentHistory struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	StaffID   uuid.UUID
	Method    string
	Action    string
	Reason    pgtype.Text
	ActorID   pgtype.UUID
	CreatedAt time.Time
}

type QueueEntry struct {
	ID       uuid.UUID
	OrderID  uuid.UUID
	BranchID uuid.UUID
	Priority string
	QueuedAt time.Time
}

// BranchHierarchy is the joined row used to validate the hotel → branch →
// admin chain before any assignment mutation.
type BranchHierarchy struct {
	BranchID     uuid.UUID
	BranchName   string
	BranchStatus string
	HotelID      uuid.UUID
	HotelName    string
	HotelStatus  string
	HotelAdminID pgtype.UUID
}

// BranchUtilization aggregates capacity usage across a branch's waiters.
type BranchUtilization struct {
	BranchID         uuid.UUID
	TotalWaiters     int64
	AvailableWaiters int64
	TotalCapacity    int64
	UsedCapacity     int64
}

// WaiterPerformance aggregates a single waiter's assignment history for the
// performance-report endpoint.
type WaiterPerformance struct {
	StaffID             uuid.UUID
	TotalAssigned       int64
	RoundRobinAssigned  int64
	LoadBalanceAssigned int64
	ManualAssigned      int64
	CompletedOrders     int64
	CancelledOrders     int64
	AvgHandlingMinutes  pgtype.Numeric
}

// AssignmentMetrics aggregates period-scoped engine activity for the metrics
// endpoint.
type AssignmentMetrics struct {
	TotalAssignments    int64
	RoundRobinCount     int64
	LoadBalancingCount  int64
	ManualCount         int64
	ReassignmentCount   int64
	ReleasedCount       int64
	AvgAssignmentDelay  pgtype.Numeric
}
