// Package reval recomputes the base-currency carrying value of
// foreign-currency accounts and posts the unrealized gain or loss.
package reval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/currency"

	"github.com/clearbooks/clearbooks/internal/accounts"
	"github.com/clearbooks/clearbooks/internal/ledger"
	"github.com/clearbooks/clearbooks/internal/mapping"
)

var (
	// ErrNotForeignCurrency indicates the account is denominated in the
	// base currency and has nothing to revalue.
	ErrNotForeignCurrency = errors.New("reval: account is not foreign currency")
	// ErrInvalidRate indicates a non-positive exchange rate.
	ErrInvalidRate = errors.New("reval: exchange rate must be positive")
)

// diffThreshold is the smallest revaluation difference worth posting.
const diffThreshold = 0.01

// BalanceSource reads the account and its derived balances.
type BalanceSource interface {
	Get(ctx context.Context, companyID, accountID int64) (accounts.Account, error)
	Balance(ctx context.Context, companyID, accountID int64) (accounts.Balance, error)
}

// RoleResolver resolves the unrealized gain/loss account.
type RoleResolver interface {
	ResolveOrFail(ctx context.Context, companyID int64, role mapping.AccountRole) (int64, error)
}

// PostingPort posts the revaluation entry through the ledger engine.
type PostingPort interface {
	Post(ctx context.Context, input ledger.PostingInput) (ledger.JournalEntry, error)
}

// Revaluation is the computed outcome for one account at a new rate.
type Revaluation struct {
	AccountID         int64
	Currency          string
	ForeignBalance    float64
	BookBalanceBase   float64
	TargetBaseBalance float64
	Diff              float64
}

// Service is the FX revaluation engine.
type Service struct {
	balances     BalanceSource
	resolver     RoleResolver
	poster       PostingPort
	baseCurrency string
	logger       *slog.Logger
	now          func() time.Time
}

// NewService constructs the revaluation engine.
func NewService(balances BalanceSource, resolver RoleResolver, poster PostingPort, baseCurrency string, logger *slog.Logger) *Service {
	return &Service{balances: balances, resolver: resolver, poster: poster, baseCurrency: baseCurrency, logger: logger, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Calculate computes the revaluation difference for an account at newRate:
// targetBaseBalance = foreignBalance * newRate, diff = target - book.
func (s *Service) Calculate(ctx context.Context, companyID, accountID int64, newRate float64) (Revaluation, error) {
	if newRate <= 0 {
		return Revaluation{}, ErrInvalidRate
	}
	account, err := s.balances.Get(ctx, companyID, accountID)
	if err != nil {
		return Revaluation{}, err
	}
	if _, err := currency.ParseISO(account.Currency); err != nil {
		return Revaluation{}, fmt.Errorf("reval: account currency %q: %w", account.Currency, err)
	}
	if account.Currency == s.baseCurrency {
		return Revaluation{}, ErrNotForeignCurrency
	}
	balance, err := s.balances.Balance(ctx, companyID, accountID)
	if err != nil {
		return Revaluation{}, err
	}
	foreign := balance.ForeignNet()
	book := balance.Net()
	target := foreign * newRate
	return Revaluation{
		AccountID:         accountID,
		Currency:          account.Currency,
		ForeignBalance:    foreign,
		BookBalanceBase:   book,
		TargetBaseBalance: target,
		Diff:              target - book,
	}, nil
}

// Post computes and books the unrealized gain or loss as a balanced
// two-line entry. Positive diff on an asset account is a gain: debit the
// account, credit the gain/loss account; negative is the mirror image.
// Differences under the threshold are a no-op.
func (s *Service) Post(ctx context.Context, companyID, accountID int64, newRate float64, actorID int64) (Revaluation, error) {
	result, err := s.Calculate(ctx, companyID, accountID, newRate)
	if err != nil {
		return Revaluation{}, err
	}
	if math.Abs(result.Diff) < diffThreshold {
		if s.logger != nil {
			s.logger.Info("revaluation skipped, difference below threshold",
				slog.Int64("account_id", accountID),
				slog.Float64("diff", result.Diff))
		}
		return result, nil
	}
	gainLossID, err := s.resolver.ResolveOrFail(ctx, companyID, mapping.RoleFXGainLoss)
	if err != nil {
		return Revaluation{}, err
	}
	note := fmt.Sprintf("FX revaluation %s at %.4f", result.Currency, newRate)
	var lines []ledger.PostingLineInput
	if result.Diff > 0 {
		lines = []ledger.PostingLineInput{
			{AccountID: accountID, Debit: result.Diff, Note: note},
			{AccountID: gainLossID, Credit: result.Diff, Note: note},
		}
	} else {
		loss := -result.Diff
		lines = []ledger.PostingLineInput{
			{AccountID: gainLossID, Debit: loss, Note: note},
			{AccountID: accountID, Credit: loss, Note: note},
		}
	}
	_, err = s.poster.Post(ctx, ledger.PostingInput{
		CompanyID:     companyID,
		Date:          s.now(),
		Description:   note,
		ReferenceType: ledger.ReferenceRevaluation,
		ReferenceID:   uuid.New(),
		CreatedBy:     actorID,
		Lines:         lines,
	})
	if err != nil {
		return Revaluation{}, err
	}
	return result, nil
}
