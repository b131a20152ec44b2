package report

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"floatbook/internal/balance"
	"floatbook/internal/domain"
	"floatbook/pkg/errors"
	"floatbook/pkg/logger"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, report *domain.DailyReport) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

func (m *MockRepository) FindByKioskAndDate(ctx context.Context, kioskID uuid.UUID, date time.Time) (*domain.DailyReport, error) {
	args := m.Called(ctx, kioskID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DailyReport), args.Error(1)
}

func (m *MockRepository) ListByKiosk(ctx context.Context, kioskID uuid.UUID, limit int) ([]domain.DailyReport, error) {
	args := m.Called(ctx, kioskID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.DailyReport), args.Error(1)
}

type MockTransactionSource struct {
	mock.Mock
}

func (m *MockTransactionSource) FindByKioskAndDay(ctx context.Context, kioskID uuid.UUID, day time.Time) ([]domain.Transaction, error) {
	args := m.Called(ctx, kioskID, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Transaction), args.Error(1)
}

func (m *MockTransactionSource) ProfitSumByDay(ctx context.Context, kioskID uuid.UUID, day time.Time) (decimal.Decimal, error) {
	args := m.Called(ctx, kioskID, day)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockTransactionSource) AvgProfitBetween(ctx context.Context, kioskID uuid.UUID, from, to time.Time) (decimal.Decimal, error) {
	args := m.Called(ctx, kioskID, from, to)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockTransactionSource) AmountSumByType(ctx context.Context, kioskID uuid.UUID, txType domain.TransactionType, from, to time.Time) (decimal.Decimal, error) {
	args := m.Called(ctx, kioskID, txType, from, to)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockTransactionSource) TopCustomers(ctx context.Context, kioskID uuid.UUID, from, to time.Time, limit int) ([]domain.CustomerVolume, error) {
	args := m.Called(ctx, kioskID, from, to, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CustomerVolume), args.Error(1)
}

type MockBalanceSource struct {
	mock.Mock
}

func (m *MockBalanceSource) DaySummary(ctx context.Context, kioskID uuid.UUID, date time.Time) (balance.DaySummary, error) {
	args := m.Called(ctx, kioskID, date)
	return args.Get(0).(balance.DaySummary), args.Error(1)
}

type MockKioskSource struct {
	mock.Mock
}

func (m *MockKioskSource) FindByID(ctx context.Context, id uuid.UUID) (*domain.Kiosk, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Kiosk), args.Error(1)
}

type MockNetworkSource struct {
	mock.Mock
}

func (m *MockNetworkSource) AllNetworks(ctx context.Context) ([]domain.Network, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Network), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyLowBalance(ctx context.Context, kioskID uuid.UUID, alerts []domain.LowBalanceAlert) error {
	args := m.Called(ctx, kioskID, alerts)
	return args.Error(0)
}

func (m *MockNotifier) NotifyDailySummary(ctx context.Context, kioskID uuid.UUID, data *domain.ReportData) error {
	args := m.Called(ctx, kioskID, data)
	return args.Error(0)
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

type fixture struct {
	repo     *MockRepository
	txs      *MockTransactionSource
	balances *MockBalanceSource
	kiosks   *MockKioskSource
	networks *MockNetworkSource
	kioskID  uuid.UUID
	mtn      uuid.UUID
}

// newFixture wires a kiosk with one MTN transaction day: two deposits of
// 3000 and 5000 making 150 profit, healthy balances, flat history.
func newFixture(date time.Time) *fixture {
	f := &fixture{
		repo:     new(MockRepository),
		txs:      new(MockTransactionSource),
		balances: new(MockBalanceSource),
		kiosks:   new(MockKioskSource),
		networks: new(MockNetworkSource),
		kioskID:  uuid.New(),
		mtn:      uuid.New(),
	}

	f.kiosks.On("FindByID", mock.Anything, f.kioskID).Return(&domain.Kiosk{
		ID: f.kioskID, Name: "Central", OwnerID: uuid.New(),
	}, nil)
	f.networks.On("AllNetworks", mock.Anything).Return([]domain.Network{
		{ID: f.mtn, Code: "MTN", Name: "MTN Mobile Money", Color: "#FC0", IsActive: true},
	}, nil)

	f.balances.On("DaySummary", mock.Anything, f.kioskID, date).Return(balance.DaySummary{
		KioskID:          f.kioskID,
		Date:             date,
		CashBalance:      dec("108000"),
		FloatBalance:     dec("92000"),
		FloatPerNetwork:  map[uuid.UUID]decimal.Decimal{f.mtn: dec("92000")},
		ProfitBalance:    dec("150"),
		TransactionCount: 2,
	}, nil)

	morning := date.Add(9 * time.Hour)
	afternoon := date.Add(15 * time.Hour)
	f.txs.On("FindByKioskAndDay", mock.Anything, f.kioskID, date).Return([]domain.Transaction{
		{ID: uuid.New(), KioskID: f.kioskID, NetworkID: f.mtn, TransactionType: domain.TypeDeposit,
			Amount: dec("3000"), Profit: dec("50"), CustomerPhone: "670000001", Timestamp: morning},
		{ID: uuid.New(), KioskID: f.kioskID, NetworkID: f.mtn, TransactionType: domain.TypeDeposit,
			Amount: dec("5000"), Profit: dec("100"), CustomerPhone: "670000002", Timestamp: afternoon},
	}, nil)

	// Flat history: every prior day earned 100.
	f.txs.On("ProfitSumByDay", mock.Anything, f.kioskID, mock.Anything).Return(dec("100"), nil)
	f.txs.On("AvgProfitBetween", mock.Anything, f.kioskID, mock.Anything, mock.Anything).Return(dec("75"), nil)
	f.txs.On("AmountSumByType", mock.Anything, f.kioskID, domain.TypeDeposit, mock.Anything, mock.Anything).Return(dec("49000"), nil)
	f.txs.On("AmountSumByType", mock.Anything, f.kioskID, domain.TypeWithdrawal, mock.Anything, mock.Anything).Return(dec("0"), nil)
	f.txs.On("TopCustomers", mock.Anything, f.kioskID, mock.Anything, mock.Anything, 3).Return([]domain.CustomerVolume{
		{Phone: "670000002", TotalAmount: dec("5000"), Count: 1},
	}, nil)

	return f
}

func (f *fixture) service(threshold string, notifier Notifier) *Service {
	return NewService(f.repo, f.txs, f.balances, f.kiosks, f.networks, notifier, dec(threshold), logger.NewNop())
}

func TestGenerateBasicMetrics(t *testing.T) {
	date := day("2025-07-10")
	f := newFixture(date)
	svc := f.service("50000", nil)

	data, err := svc.Generate(context.Background(), f.kioskID, date)

	assert.NoError(t, err)
	assert.Equal(t, "Central", data.KioskName)
	assert.Equal(t, "2025-07-10", data.Date)
	assert.True(t, data.TotalProfit.Equal(dec("150")))
	assert.Equal(t, 2, data.TransactionCount)
	assert.Equal(t, 2, data.DepositCount)
	assert.Equal(t, 0, data.WithdrawalCount)
	assert.True(t, data.TotalVolume.Equal(dec("8000")))
	assert.True(t, data.AvgTransactionSize.Equal(dec("4000")))
	assert.True(t, data.ProfitPerTransaction.Equal(dec("75")))
}

func TestGenerateComparisonsAgainstFlatHistory(t *testing.T) {
	date := day("2025-07-10")
	f := newFixture(date)
	svc := f.service("50000", nil)

	data, err := svc.Generate(context.Background(), f.kioskID, date)

	assert.NoError(t, err)
	// 150 today vs 100 on both baselines.
	assert.Equal(t, 50.0, data.VsYesterdayPercent)
	assert.Equal(t, 50.0, data.VsLastWeekPercent)
	assert.True(t, data.MonthlyAvgProfit.Equal(dec("75")))
	assert.True(t, data.IsGrowing)
}

func TestGenerateHourlyAndBusiestHour(t *testing.T) {
	date := day("2025-07-10")
	f := newFixture(date)
	svc := f.service("50000", nil)

	data, err := svc.Generate(context.Background(), f.kioskID, date)

	assert.NoError(t, err)
	assert.Len(t, data.HourlyBreakdown, 2)
	assert.Equal(t, 9, data.HourlyBreakdown[0].Hour)
	assert.Equal(t, 15, data.HourlyBreakdown[1].Hour)
	if assert.NotNil(t, data.BusiestHour) {
		assert.Equal(t, 9, *data.BusiestHour)
	}
	assert.Equal(t, 1, data.BusiestHourCount)
}

func TestGenerateNetworkDistribution(t *testing.T) {
	date := day("2025-07-10")
	f := newFixture(date)
	svc := f.service("50000", nil)

	data, err := svc.Generate(context.Background(), f.kioskID, date)

	assert.NoError(t, err)
	assert.Len(t, data.NetworkDistribution, 1)
	assert.Equal(t, "MTN", data.NetworkDistribution[0].NetworkCode)
	assert.Equal(t, 2, data.NetworkDistribution[0].Count)
	assert.Equal(t, 100.0, data.NetworkDistribution[0].Percentage)
}

func TestGenerateRunwayFromWeeklyUsage(t *testing.T) {
	date := day("2025-07-10")
	f := newFixture(date)
	svc := f.service("50000", nil)

	data, err := svc.Generate(context.Background(), f.kioskID, date)

	assert.NoError(t, err)
	// 49000 deposited over 7 days = 7000/day, float 92000 -> 13.1 days.
	if assert.NotNil(t, data.FloatDaysRemaining) {
		assert.Equal(t, 13.1, *data.FloatDaysRemaining)
	}
	// No withdrawals last week, so no cash runway estimate.
	assert.Nil(t, data.CashDaysRemaining)
}

func TestGenerateProfitStreakCapped(t *testing.T) {
	date := day("2025-07-10")
	f := newFixture(date)
	svc := f.service("50000", nil)

	data, err := svc.Generate(context.Background(), f.kioskID, date)

	assert.NoError(t, err)
	// Every day in the flat history is profitable, so the streak hits the cap.
	assert.Equal(t, 30, data.ProfitStreak)
	assert.Len(t, data.ProfitTrend, 7)
	assert.Equal(t, "2025-07-10", data.ProfitTrend[6].Date)
	assert.True(t, data.ProfitTrend[6].Profit.Equal(dec("100")))
}

func TestGenerateLowBalanceAlerts(t *testing.T) {
	date := day("2025-07-10")
	f := newFixture(date)
	// Threshold above both balances: one alert per network float plus cash.
	svc := f.service("200000", nil)

	data, err := svc.Generate(context.Background(), f.kioskID, date)

	assert.NoError(t, err)
	assert.Len(t, data.LowBalanceAlerts, 2)
	assert.Equal(t, "MTN", data.LowBalanceAlerts[0].NetworkCode)
	assert.Equal(t, "CASH", data.LowBalanceAlerts[1].NetworkCode)
	assert.True(t, data.NeedsAttention)
}

func TestGenerateEmptyDay(t *testing.T) {
	date := day("2025-07-10")
	f := newFixture(date)
	f.balances.ExpectedCalls = nil
	f.balances.On("DaySummary", mock.Anything, f.kioskID, date).Return(balance.DaySummary{
		KioskID:      f.kioskID,
		Date:         date,
		CashBalance:  dec("100000"),
		FloatBalance: dec("100000"),
	}, nil)
	f.txs.ExpectedCalls = nil
	f.txs.On("FindByKioskAndDay", mock.Anything, f.kioskID, date).Return([]domain.Transaction{}, nil)
	f.txs.On("ProfitSumByDay", mock.Anything, f.kioskID, mock.Anything).Return(dec("0"), nil)
	f.txs.On("AvgProfitBetween", mock.Anything, f.kioskID, mock.Anything, mock.Anything).Return(dec("0"), nil)
	f.txs.On("AmountSumByType", mock.Anything, f.kioskID, mock.Anything, mock.Anything, mock.Anything).Return(dec("0"), nil)
	f.txs.On("TopCustomers", mock.Anything, f.kioskID, mock.Anything, mock.Anything, 3).Return([]domain.CustomerVolume{}, nil)

	svc := f.service("50000", nil)

	data, err := svc.Generate(context.Background(), f.kioskID, date)

	assert.NoError(t, err)
	assert.Equal(t, 0, data.TransactionCount)
	assert.True(t, data.AvgTransactionSize.IsZero())
	assert.True(t, data.ProfitPerTransaction.IsZero())
	assert.Equal(t, 0.0, data.VsYesterdayPercent)
	assert.Nil(t, data.BusiestHour)
	assert.Equal(t, 0, data.ProfitStreak)
}

func TestGetOrGenerateReturnsStoredReport(t *testing.T) {
	date := day("2025-07-10")
	f := newFixture(date)
	stored := &domain.DailyReport{ID: uuid.New(), KioskID: f.kioskID, Date: date}
	f.repo.On("FindByKioskAndDate", mock.Anything, f.kioskID, date).Return(stored, nil)

	svc := f.service("50000", nil)

	report, err := svc.GetOrGenerate(context.Background(), f.kioskID, date)

	assert.NoError(t, err)
	assert.Equal(t, stored, report)
	f.kiosks.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestGetOrGeneratePersistsAndNotifies(t *testing.T) {
	date := day("2025-07-10")
	f := newFixture(date)
	f.repo.On("FindByKioskAndDate", mock.Anything, f.kioskID, date).Return(nil, errors.ErrReportNotFound)
	f.repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	notifier := new(MockNotifier)
	notifier.On("NotifyLowBalance", mock.Anything, f.kioskID, mock.Anything).Return(nil)
	notifier.On("NotifyDailySummary", mock.Anything, f.kioskID, mock.Anything).Return(nil)

	// Threshold above the balances so the low balance path fires too.
	svc := f.service("200000", notifier)

	report, err := svc.GetOrGenerate(context.Background(), f.kioskID, date)

	assert.NoError(t, err)
	assert.Equal(t, f.kioskID, report.KioskID)
	f.repo.AssertCalled(t, "Create", mock.Anything, mock.Anything)
	notifier.AssertExpectations(t)
}
