package ledger

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// PostingLineInput describes a journal line for a posting request.
type PostingLineInput struct {
	AccountID int64
	Debit     float64
	Credit    float64
	Note      string
}

// PostingInput groups fields required to create a journal entry.
type PostingInput struct {
	CompanyID     int64
	Date          time.Time
	Description   string
	ReferenceType ReferenceType
	ReferenceID   uuid.UUID
	CreatedBy     int64
	Lines         []PostingLineInput
}

// Validate ensures posting input meets the balance and shape invariants.
// Checks run before any persistence side effect.
func (in PostingInput) Validate() error {
	if in.CompanyID == 0 {
		return errors.New("ledger: company required")
	}
	if in.Date.IsZero() {
		return errors.New("ledger: date required")
	}
	if in.ReferenceType == "" {
		return errors.New("ledger: reference type required")
	}
	if len(in.Lines) < 2 {
		return ErrTooFewLines
	}
	var debit, credit float64
	for idx, line := range in.Lines {
		if line.AccountID == 0 {
			return fmt.Errorf("ledger: line %d missing account", idx)
		}
		if line.Debit < 0 || line.Credit < 0 {
			return fmt.Errorf("ledger: line %d negative amount", idx)
		}
		if line.Debit > 0 && line.Credit > 0 {
			return fmt.Errorf("ledger: line %d cannot be both debit and credit", idx)
		}
		debit += line.Debit
		credit += line.Credit
	}
	if math.Abs(debit-credit) > balanceTolerance {
		return fmt.Errorf("%w: debit %.2f credit %.2f", ErrUnbalanced, debit, credit)
	}
	return nil
}

// Totals returns the summed debit and credit over input lines.
func (in PostingInput) Totals() (debit, credit float64) {
	for _, line := range in.Lines {
		debit += line.Debit
		credit += line.Credit
	}
	return debit, credit
}

// ReverseInput wraps parameters for posting a mirror-image correction.
type ReverseInput struct {
	CompanyID   int64
	EntryID     int64
	ActorID     int64
	Date        time.Time
	Description string
}
