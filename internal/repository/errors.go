package repository

import (
	"errors"

	"github.com/lib/pq"
)

// Sentinel errors surfaced when the store rejects a write that raced
// past the service-level checks. The unique index on events(user_id,
// date) and the range-exclusion constraint on project_users back the
// one-event-per-day and no-overlap invariants under concurrency.
var (
	ErrDuplicateEvent    = errors.New("event already exists for this user and date")
	ErrAssignmentOverlap = errors.New("assignment overlaps an existing range for this user")
)

const (
	pgUniqueViolation    = pq.ErrorCode("23505")
	pgExclusionViolation = pq.ErrorCode("23P01")
)

func isPGViolation(err error, codes ...pq.ErrorCode) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	for _, code := range codes {
		if pqErr.Code == code {
			return true
		}
	}
	return false
}
