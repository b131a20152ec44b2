package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NetworkAmount pairs a network with a monetary figure, used for per-network
// float and profit breakdowns.
type NetworkAmount struct {
	NetworkID   uuid.UUID       `json:"network_id"`
	NetworkCode string          `json:"network_code"`
	NetworkName string          `json:"network_name"`
	Color       string          `json:"color"`
	Amount      decimal.Decimal `json:"amount"`
}

// CustomerVolume is a top-customer aggregate over a date range.
type CustomerVolume struct {
	Phone       string          `json:"phone" db:"customer_phone"`
	TotalAmount decimal.Decimal `json:"total_amount" db:"total_amount"`
	Count       int             `json:"transaction_count" db:"tx_count"`
}

// HourBucket is one hour-of-day slot of the activity histogram.
type HourBucket struct {
	Hour   int             `json:"hour" db:"hour"`
	Count  int             `json:"count" db:"count"`
	Amount decimal.Decimal `json:"amount" db:"amount"`
	Profit decimal.Decimal `json:"profit" db:"profit"`
}

// NetworkShare is one network's slice of the day's transaction volume.
type NetworkShare struct {
	NetworkID   uuid.UUID       `json:"network_id"`
	NetworkCode string          `json:"network_code"`
	NetworkName string          `json:"network_name"`
	Color       string          `json:"color"`
	Count       int             `json:"count"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Percentage  float64         `json:"percentage"`
}

// TrendPoint is one day of the profit trend line.
type TrendPoint struct {
	Date   string          `json:"date"`
	Day    string          `json:"day"`
	Profit decimal.Decimal `json:"profit"`
}

// LowBalanceAlert flags a float or cash position below the configured
// threshold.
type LowBalanceAlert struct {
	NetworkCode string          `json:"network_code"`
	NetworkName string          `json:"network_name"`
	Balance     decimal.Decimal `json:"balance"`
	Threshold   decimal.Decimal `json:"threshold"`
}

// ReportData is the full metric set computed for one kiosk and day. Stored as
// JSONB on DailyReport.
type ReportData struct {
	KioskName string `json:"kiosk_name"`
	Date      string `json:"date"`

	TotalProfit     decimal.Decimal `json:"total_profit"`
	CashBalance     decimal.Decimal `json:"cash_balance"`
	FloatBalance    decimal.Decimal `json:"float_balance"`
	FloatPerNetwork []NetworkAmount `json:"float_per_network"`

	TransactionCount int `json:"transaction_count"`
	DepositCount     int `json:"deposit_count"`
	WithdrawalCount  int `json:"withdrawal_count"`

	VsYesterdayPercent float64         `json:"vs_yesterday_percent"`
	VsLastWeekPercent  float64         `json:"vs_last_week_percent"`
	MonthlyAvgProfit   decimal.Decimal `json:"monthly_avg_profit"`

	TopCustomers []CustomerVolume `json:"top_customers"`

	BusiestHour      *int `json:"busiest_hour"`
	BusiestHourCount int  `json:"busiest_hour_count"`

	FloatDaysRemaining *float64 `json:"float_days_remaining"`
	CashDaysRemaining  *float64 `json:"cash_days_remaining"`

	NetworkDistribution []NetworkShare `json:"network_distribution"`

	AvgTransactionSize   decimal.Decimal `json:"avg_transaction_size"`
	TotalVolume          decimal.Decimal `json:"total_volume"`
	ProfitPerTransaction decimal.Decimal `json:"profit_per_transaction"`

	HourlyBreakdown []HourBucket `json:"hourly_breakdown"`
	ProfitTrend     []TrendPoint `json:"profit_trend"`
	ProfitStreak    int          `json:"profit_streak"`

	LowBalanceAlerts []LowBalanceAlert `json:"low_balance_alerts"`
	IsGrowing        bool              `json:"is_growing"`
	NeedsAttention   bool              `json:"needs_attention"`

	GeneratedAt   string `json:"generated_at"`
	ReportVersion string `json:"report_version"`
}

func (d ReportData) Value() (driver.Value, error) {
	return json.Marshal(d)
}

func (d *ReportData) Scan(value interface{}) error {
	if value == nil {
		*d = ReportData{}
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return errors.New("report data: type assertion to []byte failed")
	}
	return json.Unmarshal(b, d)
}
