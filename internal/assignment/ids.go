package assignment

import "github.com/google/uuid"

// Identifiers are distinct types so an order id can never slip into a staff
// parameter. They are parsed once at the HTTP/AMQP boundary and unwrapped
// only at the store boundary.

type OrderID uuid.UUID

func ParseOrderID(s string) (OrderID, error) {
	u, err := uuid.Parse(s)
	return OrderID(u), err
}

func (id OrderID) UUID() uuid.UUID { return uuid.UUID(id) }
func (id OrderID) String() string  { return uuid.UUID(id).String() }

type StaffID uuid.UUID

func ParseStaffID(s string) (StaffID, error) {
	u, err := uuid.Parse(s)
	return StaffID(u), err
}

func (id StaffID) UUID() uuid.UUID { return uuid.UUID(id) }
func (id StaffID) String() string  { return uuid.UUID(id).String() }

type BranchID uuid.UUID

func ParseBranchID(s string) (BranchID, error) {
	u, err := uuid.Parse(s)
	return BranchID(u), err
}

func (id BranchID) UUID() uuid.UUID { return uuid.UUID(id) }
func (id BranchID) String() string  { return uuid.UUID(id).String() }
func (id BranchID) IsZero() bool    { return uuid.UUID(id) == uuid.Nil }

type HotelID uuid.UUID

func ParseHotelID(s string) (HotelID, error) {
	u, err := uuid.Parse(s)
	return HotelID(u), err
}

func (id HotelID) UUID() uuid.UUID { return uuid.UUID(id) }
func (id HotelID) String() string  { return uuid.UUID(id).String() }
