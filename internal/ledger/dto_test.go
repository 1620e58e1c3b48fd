package ledger

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func validInput() PostingInput {
	return PostingInput{
		CompanyID:     1,
		Date:          time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		ReferenceType: ReferenceManualJournal,
		ReferenceID:   uuid.New(),
		Lines: []PostingLineInput{
			{AccountID: 1, Debit: 100},
			{AccountID: 2, Credit: 100},
		},
	}
}

func TestPostingInputValidate(t *testing.T) {
	require.NoError(t, validInput().Validate())

	missingCompany := validInput()
	missingCompany.CompanyID = 0
	require.Error(t, missingCompany.Validate())

	missingDate := validInput()
	missingDate.Date = time.Time{}
	require.Error(t, missingDate.Validate())

	oneLine := validInput()
	oneLine.Lines = oneLine.Lines[:1]
	require.ErrorIs(t, oneLine.Validate(), ErrTooFewLines)

	negative := validInput()
	negative.Lines[0].Debit = -5
	require.Error(t, negative.Validate())

	bothSides := validInput()
	bothSides.Lines[0].Credit = 40
	require.Error(t, bothSides.Validate())

	unbalanced := validInput()
	unbalanced.Lines[1].Credit = 90
	require.ErrorIs(t, unbalanced.Validate(), ErrUnbalanced)

	withinTolerance := validInput()
	withinTolerance.Lines[1].Credit = 99.995
	require.NoError(t, withinTolerance.Validate())
}

func TestPostingInputTotals(t *testing.T) {
	in := validInput()
	in.Lines = append(in.Lines, PostingLineInput{AccountID: 3, Debit: 25}, PostingLineInput{AccountID: 4, Credit: 25})
	debit, credit := in.Totals()
	require.Equal(t, 125.0, debit)
	require.Equal(t, 125.0, credit)
}
