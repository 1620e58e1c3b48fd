package fiscal

import (
	"errors"
	"strings"
	"time"
)

// YearStatus enumerates fiscal year lifecycle values. Transitions are
// monotonic: OPEN -> LOCKED -> CLOSED, with no way back.
type YearStatus string

const (
	YearStatusOpen   YearStatus = "OPEN"
	YearStatusLocked YearStatus = "LOCKED"
	YearStatusClosed YearStatus = "CLOSED"
)

// FiscalYear represents a tenant-scoped accounting period.
type FiscalYear struct {
	ID        int64
	CompanyID int64
	Name      string
	StartDate time.Time
	EndDate   time.Time
	Status    YearStatus
	ClosedAt  *time.Time
	ClosedBy  *int64
	NetIncome *float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Contains reports whether the date falls inside the year's range.
func (y FiscalYear) Contains(date time.Time) bool {
	return !date.Before(y.StartDate) && !date.After(y.EndDate)
}

// CreateYearInput captures validation rules for new fiscal years.
type CreateYearInput struct {
	CompanyID int64
	Name      string
	StartDate time.Time
	EndDate   time.Time
}

// Validate ensures the input is coherent.
func (in CreateYearInput) Validate() error {
	if in.CompanyID == 0 {
		return errors.New("fiscal: company id required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return errors.New("fiscal: name required")
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return errors.New("fiscal: start and end date required")
	}
	if in.StartDate.After(in.EndDate) {
		return errors.New("fiscal: start date cannot be after end date")
	}
	return nil
}

var (
	// ErrPeriodLocked indicates a posting targets a locked year.
	ErrPeriodLocked = errors.New("fiscal: period is locked")
	// ErrPeriodClosed indicates a posting targets a closed year.
	ErrPeriodClosed = errors.New("fiscal: period is closed")
	// ErrYearNotFound indicates a missing fiscal year.
	ErrYearNotFound = errors.New("fiscal: fiscal year not found")
	// ErrYearOverlap indicates the requested range conflicts with an existing year.
	ErrYearOverlap = errors.New("fiscal: year overlaps existing range")
	// ErrInvalidTransition indicates a non-monotonic status change.
	ErrInvalidTransition = errors.New("fiscal: invalid status transition")
	// ErrNoRetainedEarnings indicates closing could not resolve a retained
	// earnings account. Closing is rejected rather than posting blind.
	ErrNoRetainedEarnings = errors.New("fiscal: no retained earnings account resolvable")
)
