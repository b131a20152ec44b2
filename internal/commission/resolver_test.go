package commission

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"floatbook/internal/domain"
)

// --- Mocks ---

type MockRateSource struct {
	mock.Mock
}

func (m *MockRateSource) ActiveRatesByNetwork(ctx context.Context, networkID uuid.UUID) ([]domain.CommissionRate, error) {
	args := m.Called(ctx, networkID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CommissionRate), args.Error(1)
}

func (m *MockRateSource) ActiveAgentRates(ctx context.Context, kioskID, networkID uuid.UUID, txType domain.TransactionType) ([]domain.AgentCommissionRate, error) {
	args := m.Called(ctx, kioskID, networkID, txType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AgentCommissionRate), args.Error(1)
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func fixedTier(networkID uuid.UUID, min, max, value string) domain.CommissionRate {
	return domain.CommissionRate{
		ID:        uuid.New(),
		NetworkID: networkID,
		MinAmount: dec(min),
		MaxAmount: dec(max),
		RateKind:  domain.RateKindFixed,
		RateValue: dec(value),
		IsActive:  true,
	}
}

func percentTier(networkID uuid.UUID, min, max, value string) domain.CommissionRate {
	t := fixedTier(networkID, min, max, value)
	t.RateKind = domain.RateKindPercentage
	return t
}

// --- Resolve ---

func TestResolveFixedTier(t *testing.T) {
	networkID := uuid.New()
	source := new(MockRateSource)
	source.On("ActiveRatesByNetwork", mock.Anything, networkID).Return([]domain.CommissionRate{
		fixedTier(networkID, "100", "5000", "50"),
		fixedTier(networkID, "5001", "10000", "100"),
	}, nil)

	resolver := NewResolver(source)

	got, err := resolver.Resolve(context.Background(), networkID, dec("3000"))
	assert.NoError(t, err)
	assert.True(t, got.Equal(dec("50")), "expected 50, got %s", got)
}

func TestResolveTierBoundsAreInclusive(t *testing.T) {
	networkID := uuid.New()
	source := new(MockRateSource)
	source.On("ActiveRatesByNetwork", mock.Anything, networkID).Return([]domain.CommissionRate{
		fixedTier(networkID, "100", "5000", "50"),
	}, nil)

	resolver := NewResolver(source)

	for _, amount := range []string{"100", "5000"} {
		got, err := resolver.Resolve(context.Background(), networkID, dec(amount))
		assert.NoError(t, err)
		assert.True(t, got.Equal(dec("50")), "amount %s: expected 50, got %s", amount, got)
	}
}

func TestResolvePercentageRoundsToTwoPlaces(t *testing.T) {
	networkID := uuid.New()
	source := new(MockRateSource)
	source.On("ActiveRatesByNetwork", mock.Anything, networkID).Return([]domain.CommissionRate{
		percentTier(networkID, "50001", "500000", "0.3"),
	}, nil)

	resolver := NewResolver(source)

	// 0.3% of 55555 = 166.665 -> 166.67 (half away from zero)
	got, err := resolver.Resolve(context.Background(), networkID, dec("55555"))
	assert.NoError(t, err)
	assert.True(t, got.Equal(dec("166.67")), "expected 166.67, got %s", got)
	assert.LessOrEqual(t, int(got.Exponent()*-1), 2)
}

func TestResolveNoMatchingTierIsZeroNotError(t *testing.T) {
	networkID := uuid.New()
	source := new(MockRateSource)
	source.On("ActiveRatesByNetwork", mock.Anything, networkID).Return([]domain.CommissionRate{
		fixedTier(networkID, "100", "5000", "50"),
	}, nil)

	resolver := NewResolver(source)

	got, err := resolver.Resolve(context.Background(), networkID, dec("99"))
	assert.NoError(t, err)
	assert.True(t, got.IsZero())

	got, err = resolver.Resolve(context.Background(), networkID, dec("6000"))
	assert.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestResolveEmptyTableIsZero(t *testing.T) {
	networkID := uuid.New()
	source := new(MockRateSource)
	source.On("ActiveRatesByNetwork", mock.Anything, networkID).Return([]domain.CommissionRate{}, nil)

	resolver := NewResolver(source)

	got, err := resolver.Resolve(context.Background(), networkID, dec("3000"))
	assert.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestResolveOverlappingTiersPicksLowestMinFirst(t *testing.T) {
	networkID := uuid.New()
	source := new(MockRateSource)
	// The source contract orders by min_amount ascending; the resolver takes
	// the first match, so the 100-10000 tier wins for 3000.
	source.On("ActiveRatesByNetwork", mock.Anything, networkID).Return([]domain.CommissionRate{
		fixedTier(networkID, "100", "10000", "75"),
		fixedTier(networkID, "2000", "5000", "50"),
	}, nil)

	resolver := NewResolver(source)

	got, err := resolver.Resolve(context.Background(), networkID, dec("3000"))
	assert.NoError(t, err)
	assert.True(t, got.Equal(dec("75")), "expected 75, got %s", got)
}

// --- ResolveForTransaction ---

func TestResolveForTransactionProfitWithdrawalIsAlwaysZero(t *testing.T) {
	source := new(MockRateSource)
	resolver := NewResolver(source)

	got, err := resolver.ResolveForTransaction(
		context.Background(), uuid.New(), uuid.New(), domain.TypeProfitWithdrawal, dec("1000"))
	assert.NoError(t, err)
	assert.True(t, got.IsZero())
	// No rate lookup at all for profit withdrawals.
	source.AssertNotCalled(t, "ActiveRatesByNetwork", mock.Anything, mock.Anything)
	source.AssertNotCalled(t, "ActiveAgentRates", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestResolveForTransactionAgentDepositUsesAmountAsBase(t *testing.T) {
	kioskID := uuid.New()
	networkID := uuid.New()

	source := new(MockRateSource)
	source.On("ActiveAgentRates", mock.Anything, kioskID, networkID, domain.TypeDeposit).Return([]domain.AgentCommissionRate{
		{
			KioskID:         kioskID,
			NetworkID:       networkID,
			TransactionType: domain.TypeDeposit,
			MinAmount:       dec("100"),
			MaxAmount:       dec("5000"),
			RateKind:        domain.RateKindPercentage,
			RateValue:       dec("1"),
			IsActive:        true,
		},
	}, nil)

	resolver := NewResolver(source)

	got, err := resolver.ResolveForTransaction(
		context.Background(), kioskID, networkID, domain.TypeDeposit, dec("3000"))
	assert.NoError(t, err)
	assert.True(t, got.Equal(dec("30")), "expected 30 (1%% of 3000), got %s", got)
}

func TestResolveForTransactionAgentWithdrawalUsesNetworkFeeAsBase(t *testing.T) {
	kioskID := uuid.New()
	networkID := uuid.New()

	source := new(MockRateSource)
	// Network-wide fee for 3000 is a fixed 50.
	source.On("ActiveRatesByNetwork", mock.Anything, networkID).Return([]domain.CommissionRate{
		fixedTier(networkID, "100", "5000", "50"),
	}, nil)
	// Agent keeps 50% of the network fee on withdrawals.
	source.On("ActiveAgentRates", mock.Anything, kioskID, networkID, domain.TypeWithdrawal).Return([]domain.AgentCommissionRate{
		{
			KioskID:         kioskID,
			NetworkID:       networkID,
			TransactionType: domain.TypeWithdrawal,
			MinAmount:       dec("100"),
			MaxAmount:       dec("5000"),
			RateKind:        domain.RateKindPercentage,
			RateValue:       dec("50"),
			IsActive:        true,
		},
	}, nil)

	resolver := NewResolver(source)

	got, err := resolver.ResolveForTransaction(
		context.Background(), kioskID, networkID, domain.TypeWithdrawal, dec("3000"))
	assert.NoError(t, err)
	// 50% of the 50 network fee, not 50% of 3000.
	assert.True(t, got.Equal(dec("25")), "expected 25, got %s", got)
}

func TestResolveForTransactionFallsBackToNetworkTable(t *testing.T) {
	kioskID := uuid.New()
	networkID := uuid.New()

	source := new(MockRateSource)
	source.On("ActiveAgentRates", mock.Anything, kioskID, networkID, domain.TypeDeposit).Return([]domain.AgentCommissionRate{}, nil)
	source.On("ActiveRatesByNetwork", mock.Anything, networkID).Return([]domain.CommissionRate{
		fixedTier(networkID, "100", "5000", "50"),
	}, nil)

	resolver := NewResolver(source)

	got, err := resolver.ResolveForTransaction(
		context.Background(), kioskID, networkID, domain.TypeDeposit, dec("3000"))
	assert.NoError(t, err)
	assert.True(t, got.Equal(dec("50")), "expected network-wide 50, got %s", got)
}

func TestResolveForTransactionZeroAgentResultFallsBack(t *testing.T) {
	kioskID := uuid.New()
	networkID := uuid.New()

	source := new(MockRateSource)
	// The agent tier matches but resolves to zero (0% share), so the plain
	// network-wide rate applies.
	source.On("ActiveAgentRates", mock.Anything, kioskID, networkID, domain.TypeDeposit).Return([]domain.AgentCommissionRate{
		{
			KioskID:         kioskID,
			NetworkID:       networkID,
			TransactionType: domain.TypeDeposit,
			MinAmount:       dec("100"),
			MaxAmount:       dec("5000"),
			RateKind:        domain.RateKindPercentage,
			RateValue:       dec("0"),
			IsActive:        true,
		},
	}, nil)
	source.On("ActiveRatesByNetwork", mock.Anything, networkID).Return([]domain.CommissionRate{
		fixedTier(networkID, "100", "5000", "50"),
	}, nil)

	resolver := NewResolver(source)

	got, err := resolver.ResolveForTransaction(
		context.Background(), kioskID, networkID, domain.TypeDeposit, dec("3000"))
	assert.NoError(t, err)
	assert.True(t, got.Equal(dec("50")), "expected fallback 50, got %s", got)
}

func TestResolveForTransactionWithdrawalEarnsNetworkCommissionWithoutOverride(t *testing.T) {
	kioskID := uuid.New()
	networkID := uuid.New()

	source := new(MockRateSource)
	source.On("ActiveAgentRates", mock.Anything, kioskID, networkID, domain.TypeWithdrawal).Return([]domain.AgentCommissionRate{}, nil)
	source.On("ActiveRatesByNetwork", mock.Anything, networkID).Return([]domain.CommissionRate{
		fixedTier(networkID, "100", "5000", "50"),
	}, nil)

	resolver := NewResolver(source)

	// Without an agent override a withdrawal earns the generic tier value on
	// the raw amount, same as a deposit.
	got, err := resolver.ResolveForTransaction(
		context.Background(), kioskID, networkID, domain.TypeWithdrawal, dec("3000"))
	assert.NoError(t, err)
	assert.True(t, got.Equal(dec("50")), "expected 50, got %s", got)
}
