package assets

import (
	"errors"
	"time"
)

// AssetStatus enumerates fixed asset lifecycle values.
type AssetStatus string

const (
	AssetStatusActive   AssetStatus = "ACTIVE"
	AssetStatusSold     AssetStatus = "SOLD"
	AssetStatusDisposed AssetStatus = "DISPOSED"
)

// DepreciationMethod enumerates supported schedules.
type DepreciationMethod string

// MethodStraightLine is the only supported method: equal expense each
// period, (cost - salvage) / useful life in months.
const MethodStraightLine DepreciationMethod = "STRAIGHT_LINE"

// FixedAsset models a depreciable asset with its linked ledger accounts.
// BookValue is a cached derivation and never falls below SalvageValue.
type FixedAsset struct {
	ID                 int64
	CompanyID          int64
	Name               string
	Tag                string
	PurchaseDate       time.Time
	Cost               float64
	SalvageValue       float64
	UsefulLifeMonths   int
	Method             DepreciationMethod
	Status             AssetStatus
	AssetAccountID     int64
	AccumDepAccountID  int64
	ExpenseAccountID   int64
	BookValue          float64
	TotalDepreciated   float64
	LastDepreciationAt *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// MonthlyDepreciation computes the straight-line amount for one period,
// clamped so book value never drops below salvage value. Returns zero for
// fully depreciated assets.
func (a FixedAsset) MonthlyDepreciation() float64 {
	if a.UsefulLifeMonths <= 0 {
		return 0
	}
	monthly := (a.Cost - a.SalvageValue) / float64(a.UsefulLifeMonths)
	headroom := a.BookValue - a.SalvageValue
	if headroom < 0 {
		headroom = 0
	}
	if monthly > headroom {
		monthly = headroom
	}
	return monthly
}

// DepreciatedForMonth reports whether the asset already has a depreciation
// recorded for the month containing asOf. The scheduler and the auditor
// share this rule.
func (a FixedAsset) DepreciatedForMonth(asOf time.Time) bool {
	if a.LastDepreciationAt == nil {
		return false
	}
	return !a.LastDepreciationAt.Before(MonthStart(asOf))
}

// MonthStart truncates a date to the first of its month.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

var (
	// ErrAssetNotFound indicates a missing fixed asset.
	ErrAssetNotFound = errors.New("assets: fixed asset not found")
	// ErrAccountLinksMissing indicates the asset lacks one of its ledger
	// account links; depreciation aborts rather than posting misrouted lines.
	ErrAccountLinksMissing = errors.New("assets: asset account links missing")
	// ErrInvalidStatus indicates an unsupported status transition.
	ErrInvalidStatus = errors.New("assets: invalid status transition")
)

// skipThreshold filters amounts treated as already fully depreciated.
const skipThreshold = 0.01
