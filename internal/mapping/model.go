package mapping

import "time"

// AccountRole names a semantic slot in the chart of accounts. The set is
// closed: auto-posting flows only ever resolve one of these, and an unset
// role is an explicit miss, never an empty string coerced downstream.
type AccountRole string

const (
	RoleCash                AccountRole = "cash"
	RoleBank                AccountRole = "bank"
	RoleAccountsReceivable  AccountRole = "accounts_receivable"
	RoleAccountsPayable     AccountRole = "accounts_payable"
	RoleSalesRevenue        AccountRole = "sales_revenue"
	RoleDefaultExpense      AccountRole = "default_expense"
	RoleInventory           AccountRole = "inventory"
	RoleCOGS                AccountRole = "cogs"
	RoleTaxPayable          AccountRole = "tax_payable"
	RoleSalariesExpense     AccountRole = "salaries_expense"
	RoleSalariesPayable     AccountRole = "salaries_payable"
	RoleGeneralExpense      AccountRole = "general_expense"
	RoleCashSales           AccountRole = "cash_sales"
	RoleInventoryAdjustment AccountRole = "inventory_adjustment"
	RoleRetainedEarnings    AccountRole = "retained_earnings"
	RoleFXGainLoss          AccountRole = "fx_gain_loss"
)

// AllRoles lists every role in a stable order.
var AllRoles = []AccountRole{
	RoleCash,
	RoleBank,
	RoleAccountsReceivable,
	RoleAccountsPayable,
	RoleSalesRevenue,
	RoleDefaultExpense,
	RoleInventory,
	RoleCOGS,
	RoleTaxPayable,
	RoleSalariesExpense,
	RoleSalariesPayable,
	RoleGeneralExpense,
	RoleCashSales,
	RoleInventoryAdjustment,
	RoleRetainedEarnings,
	RoleFXGainLoss,
}

// CriticalRoles are the roles the consistency auditor treats as required
// for day-to-day operation.
var CriticalRoles = []AccountRole{
	RoleSalesRevenue,
	RoleAccountsReceivable,
	RoleInventory,
	RoleCOGS,
	RoleCash,
}

// Valid reports whether the role belongs to the closed set.
func (r AccountRole) Valid() bool {
	for _, role := range AllRoles {
		if role == r {
			return true
		}
	}
	return false
}

// AccountMapping links a role to a ledger account for one company.
type AccountMapping struct {
	CompanyID int64
	Role      AccountRole
	AccountID int64
	CreatedAt time.Time
	UpdatedAt time.Time
}
