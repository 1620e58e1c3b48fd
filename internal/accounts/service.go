package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/currency"
)

// Service validates chart of accounts mutations.
type Service struct {
	repo         Repository
	baseCurrency string
}

// NewService constructs the accounts service.
func NewService(repo Repository, baseCurrency string) *Service {
	return &Service{repo: repo, baseCurrency: baseCurrency}
}

// List returns the chart of accounts ordered by code.
func (s *Service) List(ctx context.Context, companyID int64) ([]Account, error) {
	return s.repo.List(ctx, companyID)
}

// Get returns a single account.
func (s *Service) Get(ctx context.Context, companyID, id int64) (Account, error) {
	return s.repo.Get(ctx, companyID, id)
}

// Balance returns the derived balance for one account.
func (s *Service) Balance(ctx context.Context, companyID, accountID int64) (Balance, error) {
	return s.repo.Balance(ctx, companyID, accountID)
}

// Create inserts a new account. Currency defaults to the company base
// currency and must be a valid ISO 4217 code otherwise.
func (s *Service) Create(ctx context.Context, account Account) (Account, error) {
	if account.CompanyID == 0 {
		return Account{}, errors.New("accounts: company required")
	}
	if strings.TrimSpace(account.Code) == "" {
		return Account{}, errors.New("accounts: code required")
	}
	if strings.TrimSpace(account.Name) == "" {
		return Account{}, errors.New("accounts: name required")
	}
	if !account.Type.Valid() {
		return Account{}, fmt.Errorf("accounts: invalid type %q", account.Type)
	}
	if account.Currency == "" {
		account.Currency = s.baseCurrency
	}
	if _, err := currency.ParseISO(account.Currency); err != nil {
		return Account{}, fmt.Errorf("accounts: invalid currency %q: %w", account.Currency, err)
	}
	if account.ParentID != nil {
		parent, err := s.repo.Get(ctx, account.CompanyID, *account.ParentID)
		if err != nil {
			return Account{}, fmt.Errorf("accounts: parent: %w", err)
		}
		if parent.Type != account.Type {
			return Account{}, errors.New("accounts: parent type mismatch")
		}
	}
	account.IsActive = true
	return s.repo.Create(ctx, account)
}
