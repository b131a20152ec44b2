// Package commission implements the tiered commission rate engine: the
// network-wide rate table, kiosk-scoped agent overrides, and the resolution
// rules that assign profit to a transaction at write time.
package commission

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"floatbook/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// RateSource supplies active rate tiers for resolution. Implementations must
// return tiers ordered by min_amount ascending, then created_at ascending;
// that ordering is the documented tie-break when ranges overlap.
type RateSource interface {
	ActiveRatesByNetwork(ctx context.Context, networkID uuid.UUID) ([]domain.CommissionRate, error)
	ActiveAgentRates(ctx context.Context, kioskID, networkID uuid.UUID, txType domain.TransactionType) ([]domain.AgentCommissionRate, error)
}

// Resolver answers "what commission does this transaction earn". It is total
// for valid input: a configuration gap resolves to zero, never an error.
type Resolver struct {
	source RateSource
}

func NewResolver(source RateSource) *Resolver {
	return &Resolver{source: source}
}

// Resolve returns the network-wide commission for amount: the first active
// tier containing it, or zero when no tier matches.
func (r *Resolver) Resolve(ctx context.Context, networkID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	rates, err := r.source.ActiveRatesByNetwork(ctx, networkID)
	if err != nil {
		return decimal.Zero, err
	}

	for i := range rates {
		if rates[i].Matches(amount) {
			return commissionValue(rates[i].RateKind, rates[i].RateValue, amount), nil
		}
	}

	return decimal.Zero, nil
}

// ResolveForTransaction returns the profit a transaction earns, applying the
// agent-specific table first and falling back to the network-wide table.
//
// The agent tier is always matched against the transaction amount. The base
// the tier's rate applies to differs by type: a deposit's base is the amount
// itself, while a withdrawal's base is the network's own fee for that amount.
// Agent profit on a withdrawal is the agent's share of the network's
// commission, not a share of the customer's cash.
func (r *Resolver) ResolveForTransaction(ctx context.Context, kioskID, networkID uuid.UUID, txType domain.TransactionType, amount decimal.Decimal) (decimal.Decimal, error) {
	// Moving accrued profit out of the float earns nothing by definition.
	if txType == domain.TypeProfitWithdrawal {
		return decimal.Zero, nil
	}

	agentRates, err := r.source.ActiveAgentRates(ctx, kioskID, networkID, txType)
	if err != nil {
		return decimal.Zero, err
	}

	for i := range agentRates {
		if !agentRates[i].Matches(amount) {
			continue
		}

		base := amount
		if txType == domain.TypeWithdrawal {
			networkFee, err := r.Resolve(ctx, networkID, amount)
			if err != nil {
				return decimal.Zero, err
			}
			base = networkFee
		}

		profit := commissionValue(agentRates[i].RateKind, agentRates[i].RateValue, base)
		if profit.IsPositive() {
			return profit, nil
		}
		// A zero agent result falls through to the network-wide table.
		break
	}

	return r.Resolve(ctx, networkID, amount)
}

// commissionValue applies one tier to a base amount. Percentages round to
// 2 decimal places, half away from zero.
func commissionValue(kind domain.RateKind, value, base decimal.Decimal) decimal.Decimal {
	if kind == domain.RateKindPercentage {
		return base.Mul(value).Div(hundred).Round(2)
	}
	return value
}
