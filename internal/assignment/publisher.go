package assignment

import "github.com/google/uuid"

// Socket event names delivered to interested rooms.
const (
	EventOrderAssigned             = "order:assigned"
	EventOrderStatusUpdated        = "order:status_updated"
	EventWaiterAvailabilityChanged = "waiter:availability_changed"
	EventQueueUpdated              = "queue:updated"
)

// Publisher fans out engine events to logical rooms. Implementations must
// never block the caller; delivery failures are the transport's problem and
// are never surfaced as assignment failures.
type Publisher interface {
	Publish(room, event string, payload any)
}

func StaffRoom(id uuid.UUID) string  { return "staff_" + id.String() }
func BranchRoom(id uuid.UUID) string { return "branch_" + id.String() }
func HotelRoom(id uuid.UUID) string  { return "hotel_" + id.String() }
func UserRoom(id uuid.UUID) string   { return "user_" + id.String() }

// NopPublisher drops everything; used in tests.
type NopPublisher struct{}

func (NopPublisher) Publish(room, event string, payload any) {}
