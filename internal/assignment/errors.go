package assignment

import (
	"errors"
	"fmt"
)

// Errors returned by the assignment engine.
var (
	ErrInvalidHierarchy   = errors.New("branch does not belong to the given hotel")
	ErrCapacityExceeded   = errors.New("waiter is at maximum capacity")
	ErrNoWaitersAvailable = errors.New("no waiters are currently available")
	ErrNotFound           = errors.New("not found")
	ErrAlreadyAssigned    = errors.New("order is already assigned")
	ErrNotQueued          = errors.New("order is not in the assignment queue")
	ErrQueueFull          = errors.New("assignment queue is full")
	ErrOrderNotPaid       = errors.New("order payment is not completed")
	ErrOrderTerminal      = errors.New("order lifecycle has already ended")
	ErrWaiterNotInBranch  = errors.New("waiter does not belong to the order's branch")
	ErrWaiterIneligible   = errors.New("waiter is suspended or marked unavailable")
	ErrInvalidMethod      = errors.New("invalid assignment method")
	ErrInvalidPriority    = errors.New("invalid queue priority")
)

// errCapacityRace signals that a conditional load update lost against a
// concurrent writer. The engine retries the whole transaction a bounded
// number of times before surfacing ErrCapacityExceeded.
var errCapacityRace = errors.New("capacity race detected")

// CapacityExceededError carries the waiter's own limit for the documented
// "Waiter is at maximum capacity (N orders)" message.
type CapacityExceededError struct {
	MaxCapacity int32
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("Waiter is at maximum capacity (%d orders)", e.MaxCapacity)
}

func (e *CapacityExceededError) Is(target error) bool {
	return target == ErrCapacityExceeded
}
