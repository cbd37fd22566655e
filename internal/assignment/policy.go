package assignment

import "github.com/dinehub/assignment-api/internal/database"

// Selection policies are pure: given an eligibility-filtered candidate list
// and (for round-robin) the persisted branch cursor, they deterministically
// name a waiter. Both return nil on an empty candidate list; the engine
// treats that as "defer to the queue".

// SelectRoundRobin picks among the candidates tied on the minimum load,
// rotating through them with the branch cursor so equal-load waiters receive
// equal shares over time. Returns the chosen waiter and the advanced cursor.
func SelectRoundRobin(candidates []database.Staff, cursor int32) (*database.Staff, int32) {
	if len(candidates) == 0 {
		return nil, cursor
	}

	minLoad := candidates[0].ActiveOrdersCount
	for _, c := range candidates[1:] {
		if c.ActiveOrdersCount < minLoad {
			minLoad = c.ActiveOrdersCount
		}
	}

	var tied []database.Staff
	for _, c := range candidates {
		if c.ActiveOrdersCount == minLoad {
			tied = append(tied, c)
		}
	}

	chosen := tied[int(cursor)%len(tied)]
	return &chosen, cursor + 1
}

// SelectLeastLoaded picks the single candidate with the lowest load. Ties go
// to the least-recently-assigned waiter (never-assigned counts as oldest) so
// idle waiters are not starved.
func SelectLeastLoaded(candidates []database.Staff) *database.Staff {
	if len(candidates) == 0 {
		return nil
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.ActiveOrdersCount < best.ActiveOrdersCount {
			best = c
			continue
		}
		if c.ActiveOrdersCount == best.ActiveOrdersCount && assignedBefore(c, best) {
			best = c
		}
	}
	return &best
}

// assignedBefore reports whether a was assigned less recently than b.
func assignedBefore(a, b database.Staff) bool {
	if !a.LastAssignedAt.Valid {
		return b.LastAssignedAt.Valid
	}
	if !b.LastAssignedAt.Valid {
		return false
	}
	return a.LastAssignedAt.Time.Before(b.LastAssignedAt.Time)
}
