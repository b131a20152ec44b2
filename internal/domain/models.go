// Package domain holds the entities shared by all floatbook services.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// User represents an agent or kiosk owner account.
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	DisplayName  string    `json:"display_name" db:"display_name"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Network is a mobile money provider (MTN, Orange, ...). Immutable reference
// data, created at seed time.
type Network struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Code      string    `json:"code" db:"code"`
	Name      string    `json:"name" db:"name"`
	Color     string    `json:"color" db:"color"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// RateKind distinguishes fixed-amount tiers from percentage tiers.
type RateKind string

const (
	RateKindFixed      RateKind = "FIXED"
	RateKindPercentage RateKind = "PERCENTAGE"
)

// CommissionRate is a network-wide tier: [MinAmount, MaxAmount] inclusive
// mapped to a fixed commission or a percentage of the amount.
type CommissionRate struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	NetworkID uuid.UUID       `json:"network_id" db:"network_id"`
	MinAmount decimal.Decimal `json:"min_amount" db:"min_amount"`
	MaxAmount decimal.Decimal `json:"max_amount" db:"max_amount"`
	RateKind  RateKind        `json:"rate_kind" db:"rate_kind"`
	RateValue decimal.Decimal `json:"rate_value" db:"rate_value"`
	IsActive  bool            `json:"is_active" db:"is_active"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// Matches reports whether amount falls inside this tier's range.
func (r *CommissionRate) Matches(amount decimal.Decimal) bool {
	return amount.GreaterThanOrEqual(r.MinAmount) && amount.LessThanOrEqual(r.MaxAmount)
}

// AgentCommissionRate is a kiosk-scoped tier that overrides the network-wide
// table for one transaction type. For withdrawals the percentage base is the
// network's own fee, not the transaction amount.
type AgentCommissionRate struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	KioskID         uuid.UUID       `json:"kiosk_id" db:"kiosk_id"`
	NetworkID       uuid.UUID       `json:"network_id" db:"network_id"`
	TransactionType TransactionType `json:"transaction_type" db:"transaction_type"`
	MinAmount       decimal.Decimal `json:"min_amount" db:"min_amount"`
	MaxAmount       decimal.Decimal `json:"max_amount" db:"max_amount"`
	RateKind        RateKind        `json:"rate_kind" db:"rate_kind"`
	RateValue       decimal.Decimal `json:"rate_value" db:"rate_value"`
	IsActive        bool            `json:"is_active" db:"is_active"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// Matches reports whether amount falls inside this tier's range.
func (r *AgentCommissionRate) Matches(amount decimal.Decimal) bool {
	return amount.GreaterThanOrEqual(r.MinAmount) && amount.LessThanOrEqual(r.MaxAmount)
}

// Kiosk is a physical agent location owned by exactly one user.
type Kiosk struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Slug      string    `json:"slug" db:"slug"`
	OwnerID   uuid.UUID `json:"owner_id" db:"owner_id"`
	Location  string    `json:"location" db:"location"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// MemberRole is a team member's access level on a kiosk.
type MemberRole string

const (
	RoleAdmin MemberRole = "ADMIN"
	RoleAgent MemberRole = "AGENT"
)

// KioskMember grants a user a role on a kiosk. The owner is implicitly a full
// member and never stored as a row.
type KioskMember struct {
	ID       uuid.UUID  `json:"id" db:"id"`
	KioskID  uuid.UUID  `json:"kiosk_id" db:"kiosk_id"`
	UserID   uuid.UUID  `json:"user_id" db:"user_id"`
	Role     MemberRole `json:"role" db:"role"`
	JoinedAt time.Time  `json:"joined_at" db:"joined_at"`
}

// TransactionType classifies a ledger entry.
type TransactionType string

const (
	TypeDeposit          TransactionType = "DEPOSIT"
	TypeWithdrawal       TransactionType = "WITHDRAWAL"
	TypeProfitWithdrawal TransactionType = "PROFIT_WITHDRAWAL"
)

// ProfitState tells whether a transaction's profit is still system-derived or
// has been overridden by the agent. Once USER_OVERRIDDEN it never flips back;
// CalculatedProfit may still be refreshed for audit display.
type ProfitState string

const (
	ProfitSystemComputed ProfitState = "SYSTEM_COMPUTED"
	ProfitUserOverridden ProfitState = "USER_OVERRIDDEN"
)

// Transaction is the atomic ledger entry.
type Transaction struct {
	ID               uuid.UUID       `json:"id" db:"id"`
	KioskID          uuid.UUID       `json:"kiosk_id" db:"kiosk_id"`
	NetworkID        uuid.UUID       `json:"network_id" db:"network_id"`
	RecordedBy       *uuid.UUID      `json:"recorded_by,omitempty" db:"recorded_by"`
	TransactionType  TransactionType `json:"transaction_type" db:"transaction_type"`
	Amount           decimal.Decimal `json:"amount" db:"amount"`
	CalculatedProfit decimal.Decimal `json:"calculated_profit" db:"calculated_profit"`
	Profit           decimal.Decimal `json:"profit" db:"profit"`
	ProfitState      ProfitState     `json:"profit_state" db:"profit_state"`
	CustomerPhone    string          `json:"customer_phone" db:"customer_phone"`
	CustomerName     string          `json:"customer_name" db:"customer_name"`
	TransactionRef   string          `json:"transaction_ref" db:"transaction_ref"`
	Notes            string          `json:"notes" db:"notes"`
	SMSText          string          `json:"sms_text" db:"sms_text"`
	Timestamp        time.Time       `json:"timestamp" db:"timestamp"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
}

func (t *Transaction) IsDeposit() bool    { return t.TransactionType == TypeDeposit }
func (t *Transaction) IsWithdrawal() bool { return t.TransactionType == TypeWithdrawal }

// AdjustmentReason explains why an opening balance differs from the previous
// day's computed closing position.
type AdjustmentReason string

const (
	AdjustmentNone          AdjustmentReason = ""
	AdjustmentCashInjection AdjustmentReason = "CASH_INJECTION"
	AdjustmentDiscrepancy   AdjustmentReason = "DISCREPANCY"
	AdjustmentFloatRecharge AdjustmentReason = "FLOAT_RECHARGE"
	AdjustmentOther         AdjustmentReason = "OTHER"
)

// DailyOpeningBalance is the explicit starting position of a kiosk on one
// calendar day. One row per (kiosk, date); created by the "start day" action.
type DailyOpeningBalance struct {
	ID               uuid.UUID        `json:"id" db:"id"`
	KioskID          uuid.UUID        `json:"kiosk_id" db:"kiosk_id"`
	Date             time.Time        `json:"date" db:"date"`
	OpeningCash      decimal.Decimal  `json:"opening_cash" db:"opening_cash"`
	AdjustmentReason AdjustmentReason `json:"adjustment_reason" db:"adjustment_reason"`
	AdjustmentNotes  string           `json:"adjustment_notes" db:"adjustment_notes"`
	CreatedBy        *uuid.UUID       `json:"created_by,omitempty" db:"created_by"`
	CreatedAt        time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at" db:"updated_at"`
}

// NetworkFloatBalance is the per-network opening float child of a
// DailyOpeningBalance.
type NetworkFloatBalance struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	DailyBalanceID uuid.UUID       `json:"daily_balance_id" db:"daily_balance_id"`
	NetworkID      uuid.UUID       `json:"network_id" db:"network_id"`
	OpeningFloat   decimal.Decimal `json:"opening_float" db:"opening_float"`
}

// DailyReport stores a computed analytics snapshot for one kiosk and day.
type DailyReport struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	KioskID   uuid.UUID  `json:"kiosk_id" db:"kiosk_id"`
	Date      time.Time  `json:"date" db:"date"`
	Data      ReportData `json:"data" db:"data"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}
