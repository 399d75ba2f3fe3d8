// AngelaMos | 2026
// review.go

// Package review holds the one-shot pending -> approved|rejected lifecycle
// shared by ledger entries and membership applications.
package review

import (
	"fmt"
	"time"

	"github.com/pamojakenya/backend/internal/core"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

type Decision string

const (
	Approve Decision = "approve"
	Reject  Decision = "reject"
)

func (d Decision) Valid() bool {
	return d == Approve || d == Reject
}

// Outcome is the status a decision moves a pending record to.
func (d Decision) Outcome() Status {
	if d == Approve {
		return StatusApproved
	}
	return StatusRejected
}

// Reviewer is whoever is applying the decision.
type Reviewer struct {
	ID      string
	IsAdmin bool
}

// Stamp is what a completed review writes onto the record.
type Stamp struct {
	Status     Status
	ReviewedBy string
	ReviewedAt time.Time
	Notes      string
}

// Transition validates that reviewer may move a record currently in status
// cur by decision d, and returns the stamp to persist. It does no I/O.
func Transition(
	cur Status,
	d Decision,
	reviewer Reviewer,
	notes string,
	now time.Time,
) (Stamp, error) {
	if !reviewer.IsAdmin {
		return Stamp{}, fmt.Errorf("review: %w", core.ErrForbidden)
	}

	if !d.Valid() {
		return Stamp{}, core.Validationf("decision must be approve or reject")
	}

	if cur != StatusPending {
		return Stamp{}, fmt.Errorf(
			"already %s: %w",
			cur,
			core.ErrStateConflict,
		)
	}

	return Stamp{
		Status:     d.Outcome(),
		ReviewedBy: reviewer.ID,
		ReviewedAt: now.UTC(),
		Notes:      notes,
	}, nil
}
