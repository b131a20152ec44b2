// Package balance derives cash, float, and profit positions from opening
// balances and the day's ledger entries. The fold itself is pure; the service
// around it owns opening-balance rollover and the start-day state machine.
package balance

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"floatbook/internal/domain"
)

// OpeningPosition is a kiosk's starting state for one calendar day, either
// read from an explicit DailyOpeningBalance row or synthesized from the prior
// day's computed closing.
type OpeningPosition struct {
	KioskID uuid.UUID                     `json:"kiosk_id"`
	Date    time.Time                     `json:"date"`
	Cash    decimal.Decimal               `json:"cash"`
	Float   map[uuid.UUID]decimal.Decimal `json:"float"`
	// Explicit is true when the position comes from a persisted row, i.e. the
	// day has been started.
	Explicit bool `json:"explicit"`
}

// DaySummary is the engine's output for one kiosk and day.
type DaySummary struct {
	KioskID    uuid.UUID `json:"kiosk_id"`
	Date       time.Time `json:"date"`
	DayStarted bool      `json:"day_started"`

	OpeningCash decimal.Decimal `json:"opening_cash"`
	CashDelta   decimal.Decimal `json:"cash_delta"`
	CashBalance decimal.Decimal `json:"cash_balance"`

	FloatBalance    decimal.Decimal               `json:"float_balance"`
	FloatPerNetwork map[uuid.UUID]decimal.Decimal `json:"float_per_network"`

	ProfitBalance    decimal.Decimal               `json:"profit_balance"`
	ProfitPerNetwork map[uuid.UUID]decimal.Decimal `json:"profit_per_network"`

	TransactionCount int `json:"transaction_count"`
}

// Fold accumulates one day's signed deltas onto an opening position.
//
// The float balancing equation per entry:
//
//	DEPOSIT            cash +amount   float -amount   profit +profit
//	WITHDRAWAL         cash -amount   float +amount   profit +profit
//	PROFIT_WITHDRAWAL  cash 0         float +amount   profit -amount
//
// Cash is kiosk-wide; float and profit accumulate per network and are then
// summed for the totals. Entries on deactivated networks still count; only
// rate lookup, not historical inclusion, depends on a network being active.
// Deterministic for a fixed input, so recomputing without intervening writes
// is idempotent.
func Fold(opening OpeningPosition, txns []domain.Transaction) DaySummary {
	cashDelta := decimal.Zero
	floats := make(map[uuid.UUID]decimal.Decimal, len(opening.Float))
	profits := make(map[uuid.UUID]decimal.Decimal)

	for networkID, f := range opening.Float {
		floats[networkID] = f
	}

	for i := range txns {
		tx := &txns[i]
		switch tx.TransactionType {
		case domain.TypeDeposit:
			cashDelta = cashDelta.Add(tx.Amount)
			floats[tx.NetworkID] = floats[tx.NetworkID].Sub(tx.Amount)
			profits[tx.NetworkID] = profits[tx.NetworkID].Add(tx.Profit)
		case domain.TypeWithdrawal:
			cashDelta = cashDelta.Sub(tx.Amount)
			floats[tx.NetworkID] = floats[tx.NetworkID].Add(tx.Amount)
			profits[tx.NetworkID] = profits[tx.NetworkID].Add(tx.Profit)
		case domain.TypeProfitWithdrawal:
			floats[tx.NetworkID] = floats[tx.NetworkID].Add(tx.Amount)
			profits[tx.NetworkID] = profits[tx.NetworkID].Sub(tx.Amount)
		}
	}

	floatTotal := decimal.Zero
	for _, f := range floats {
		floatTotal = floatTotal.Add(f)
	}
	profitTotal := decimal.Zero
	for _, p := range profits {
		profitTotal = profitTotal.Add(p)
	}

	return DaySummary{
		KioskID:          opening.KioskID,
		Date:             opening.Date,
		DayStarted:       opening.Explicit,
		OpeningCash:      opening.Cash,
		CashDelta:        cashDelta,
		CashBalance:      opening.Cash.Add(cashDelta),
		FloatBalance:     floatTotal,
		FloatPerNetwork:  floats,
		ProfitBalance:    profitTotal,
		ProfitPerNetwork: profits,
		TransactionCount: len(txns),
	}
}

// ClosingPosition converts a day's summary into the next day's synthesized
// opening: closing cash and per-network closing floats. Profit does not roll
// over; it accrues within a day and is drawn down by profit withdrawals.
func (s DaySummary) ClosingPosition(nextDate time.Time) OpeningPosition {
	floats := make(map[uuid.UUID]decimal.Decimal, len(s.FloatPerNetwork))
	for networkID, f := range s.FloatPerNetwork {
		floats[networkID] = f
	}
	return OpeningPosition{
		KioskID: s.KioskID,
		Date:    nextDate,
		Cash:    s.CashBalance,
		Float:   floats,
	}
}

// DateOnly strips a timestamp to its UTC calendar day. All per-day grouping
// in the engine runs on these normalized values.
func DateOnly(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
