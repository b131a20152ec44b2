// Package report computes the daily analytics snapshot for a kiosk: profit,
// balances, comparisons, customer and network breakdowns, runway estimates,
// and low-balance alerts. Reports are generated once per (kiosk, date) and
// stored as JSONB.
package report

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"floatbook/internal/balance"
	"floatbook/internal/domain"
	"floatbook/pkg/errors"
	"floatbook/pkg/logger"
)

const (
	reportVersion    = "2.0"
	trendDays        = 7
	topCustomerCount = 3
	streakCap        = 30
)

type Repository interface {
	Create(ctx context.Context, report *domain.DailyReport) error
	FindByKioskAndDate(ctx context.Context, kioskID uuid.UUID, date time.Time) (*domain.DailyReport, error)
	ListByKiosk(ctx context.Context, kioskID uuid.UUID, limit int) ([]domain.DailyReport, error)
}

// TransactionSource provides the aggregates the metrics need. Sums are over
// the profit column, so user overrides flow into reports unchanged.
type TransactionSource interface {
	FindByKioskAndDay(ctx context.Context, kioskID uuid.UUID, day time.Time) ([]domain.Transaction, error)
	ProfitSumByDay(ctx context.Context, kioskID uuid.UUID, day time.Time) (decimal.Decimal, error)
	AvgProfitBetween(ctx context.Context, kioskID uuid.UUID, from, to time.Time) (decimal.Decimal, error)
	AmountSumByType(ctx context.Context, kioskID uuid.UUID, txType domain.TransactionType, from, to time.Time) (decimal.Decimal, error)
	TopCustomers(ctx context.Context, kioskID uuid.UUID, from, to time.Time, limit int) ([]domain.CustomerVolume, error)
}

type BalanceSource interface {
	DaySummary(ctx context.Context, kioskID uuid.UUID, date time.Time) (balance.DaySummary, error)
}

type KioskSource interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Kiosk, error)
}

type NetworkSource interface {
	AllNetworks(ctx context.Context) ([]domain.Network, error)
}

// Notifier receives the alerts a freshly generated report raises. Nil
// disables delivery.
type Notifier interface {
	NotifyLowBalance(ctx context.Context, kioskID uuid.UUID, alerts []domain.LowBalanceAlert) error
	NotifyDailySummary(ctx context.Context, kioskID uuid.UUID, data *domain.ReportData) error
}

type Service struct {
	repo      Repository
	txs       TransactionSource
	balances  BalanceSource
	kiosks    KioskSource
	networks  NetworkSource
	notifier  Notifier
	threshold decimal.Decimal
	logger    logger.Logger
}

func NewService(
	repo Repository,
	txs TransactionSource,
	balances BalanceSource,
	kiosks KioskSource,
	networks NetworkSource,
	notifier Notifier,
	lowBalanceThreshold decimal.Decimal,
	log logger.Logger,
) *Service {
	return &Service{
		repo:      repo,
		txs:       txs,
		balances:  balances,
		kiosks:    kiosks,
		networks:  networks,
		notifier:  notifier,
		threshold: lowBalanceThreshold,
		logger:    log,
	}
}

// GetOrGenerate returns the stored report for the date, generating and
// persisting it on first request.
func (s *Service) GetOrGenerate(ctx context.Context, kioskID uuid.UUID, date time.Time) (*domain.DailyReport, error) {
	date = balance.DateOnly(date)

	existing, err := s.repo.FindByKioskAndDate(ctx, kioskID, date)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, errors.ErrReportNotFound) {
		return nil, err
	}

	data, err := s.Generate(ctx, kioskID, date)
	if err != nil {
		return nil, err
	}

	report := &domain.DailyReport{
		ID:        uuid.New(),
		KioskID:   kioskID,
		Date:      date,
		Data:      *data,
		CreatedAt: time.Now(),
	}
	if err := s.repo.Create(ctx, report); err != nil {
		return nil, err
	}

	s.dispatchAlerts(ctx, kioskID, data)

	s.logger.Info("Report generated", map[string]interface{}{
		"kiosk_id": kioskID,
		"date":     date.Format("2006-01-02"),
		"alerts":   len(data.LowBalanceAlerts),
	})
	return report, nil
}

func (s *Service) History(ctx context.Context, kioskID uuid.UUID, limit int) ([]domain.DailyReport, error) {
	if limit <= 0 || limit > 90 {
		limit = 30
	}
	return s.repo.ListByKiosk(ctx, kioskID, limit)
}

// Generate computes the full metric set without persisting anything.
func (s *Service) Generate(ctx context.Context, kioskID uuid.UUID, date time.Time) (*domain.ReportData, error) {
	date = balance.DateOnly(date)

	kiosk, err := s.kiosks.FindByID(ctx, kioskID)
	if err != nil {
		return nil, err
	}
	networks, err := s.networks.AllNetworks(ctx)
	if err != nil {
		return nil, err
	}
	byNetwork := make(map[uuid.UUID]domain.Network, len(networks))
	for i := range networks {
		byNetwork[networks[i].ID] = networks[i]
	}

	summary, err := s.balances.DaySummary(ctx, kioskID, date)
	if err != nil {
		return nil, err
	}
	dayTxs, err := s.txs.FindByKioskAndDay(ctx, kioskID, date)
	if err != nil {
		return nil, err
	}

	data := &domain.ReportData{
		KioskName:     kiosk.Name,
		Date:          date.Format("2006-01-02"),
		GeneratedAt:   time.Now().UTC().Format(time.RFC3339),
		ReportVersion: reportVersion,
	}

	data.TotalProfit = summary.ProfitBalance
	data.CashBalance = summary.CashBalance
	data.FloatBalance = summary.FloatBalance
	data.FloatPerNetwork = networkAmounts(summary.FloatPerNetwork, byNetwork)

	data.TransactionCount = len(dayTxs)
	for i := range dayTxs {
		switch dayTxs[i].TransactionType {
		case domain.TypeDeposit:
			data.DepositCount++
		case domain.TypeWithdrawal:
			data.WithdrawalCount++
		}
		data.TotalVolume = data.TotalVolume.Add(dayTxs[i].Amount)
	}
	if data.TransactionCount > 0 {
		n := decimal.NewFromInt(int64(data.TransactionCount))
		data.AvgTransactionSize = data.TotalVolume.Div(n).Round(2)
		data.ProfitPerTransaction = data.TotalProfit.Div(n).Round(2)
	}

	if err := s.fillComparisons(ctx, kioskID, date, data); err != nil {
		return nil, err
	}
	if err := s.fillTopCustomers(ctx, kioskID, date, data); err != nil {
		return nil, err
	}
	s.fillHourly(dayTxs, data)
	s.fillNetworkDistribution(dayTxs, byNetwork, data)
	if err := s.fillRunway(ctx, kioskID, date, data); err != nil {
		return nil, err
	}
	if err := s.fillTrendAndStreak(ctx, kioskID, date, data); err != nil {
		return nil, err
	}
	s.fillAlerts(data)

	data.IsGrowing = data.VsYesterdayPercent > 0 && data.VsLastWeekPercent > 0
	data.NeedsAttention = len(data.LowBalanceAlerts) > 0

	return data, nil
}

// fillComparisons computes day-over-day and week-over-week percentages plus
// the 30-day per-transaction average. A zero comparison baseline reports 0
// when today is also zero and 100 otherwise.
func (s *Service) fillComparisons(ctx context.Context, kioskID uuid.UUID, date time.Time, data *domain.ReportData) error {
	yesterdayProfit, err := s.txs.ProfitSumByDay(ctx, kioskID, date.AddDate(0, 0, -1))
	if err != nil {
		return err
	}
	data.VsYesterdayPercent = changePercent(data.TotalProfit, yesterdayProfit)

	lastWeekProfit, err := s.txs.ProfitSumByDay(ctx, kioskID, date.AddDate(0, 0, -7))
	if err != nil {
		return err
	}
	data.VsLastWeekPercent = changePercent(data.TotalProfit, lastWeekProfit)

	monthlyAvg, err := s.txs.AvgProfitBetween(ctx, kioskID, date.AddDate(0, 0, -30), date.AddDate(0, 0, -1))
	if err != nil {
		return err
	}
	data.MonthlyAvgProfit = monthlyAvg
	return nil
}

func (s *Service) fillTopCustomers(ctx context.Context, kioskID uuid.UUID, date time.Time, data *domain.ReportData) error {
	top, err := s.txs.TopCustomers(ctx, kioskID, date.AddDate(0, 0, -7), date, topCustomerCount)
	if err != nil {
		return err
	}
	data.TopCustomers = top
	return nil
}

func (s *Service) fillHourly(dayTxs []domain.Transaction, data *domain.ReportData) {
	buckets := make(map[int]*domain.HourBucket)
	for i := range dayTxs {
		h := dayTxs[i].Timestamp.UTC().Hour()
		b, ok := buckets[h]
		if !ok {
			b = &domain.HourBucket{Hour: h}
			buckets[h] = b
		}
		b.Count++
		b.Amount = b.Amount.Add(dayTxs[i].Amount)
		b.Profit = b.Profit.Add(dayTxs[i].Profit)
	}

	hours := make([]int, 0, len(buckets))
	for h := range buckets {
		hours = append(hours, h)
	}
	sort.Ints(hours)

	data.HourlyBreakdown = make([]domain.HourBucket, 0, len(hours))
	for _, h := range hours {
		b := buckets[h]
		data.HourlyBreakdown = append(data.HourlyBreakdown, *b)
		if b.Count > data.BusiestHourCount {
			data.BusiestHourCount = b.Count
			hour := b.Hour
			data.BusiestHour = &hour
		}
	}
}

func (s *Service) fillNetworkDistribution(dayTxs []domain.Transaction, byNetwork map[uuid.UUID]domain.Network, data *domain.ReportData) {
	shares := make(map[uuid.UUID]*domain.NetworkShare)
	for i := range dayTxs {
		id := dayTxs[i].NetworkID
		sh, ok := shares[id]
		if !ok {
			sh = &domain.NetworkShare{NetworkID: id}
			if net, found := byNetwork[id]; found {
				sh.NetworkCode = net.Code
				sh.NetworkName = net.Name
				sh.Color = net.Color
			}
			shares[id] = sh
		}
		sh.Count++
		sh.TotalAmount = sh.TotalAmount.Add(dayTxs[i].Amount)
	}

	total := data.TransactionCount
	if total == 0 {
		total = 1
	}
	data.NetworkDistribution = make([]domain.NetworkShare, 0, len(shares))
	for _, sh := range shares {
		sh.Percentage = roundPercent(float64(sh.Count) / float64(total) * 100)
		data.NetworkDistribution = append(data.NetworkDistribution, *sh)
	}
	sort.Slice(data.NetworkDistribution, func(i, j int) bool {
		return data.NetworkDistribution[i].Count > data.NetworkDistribution[j].Count
	})
}

// fillRunway estimates days until float and cash run out, using the past
// week's average daily consumption. Deposits consume float, withdrawals
// consume cash. Nil means not enough data.
func (s *Service) fillRunway(ctx context.Context, kioskID uuid.UUID, date time.Time, data *domain.ReportData) error {
	weekAgo := date.AddDate(0, 0, -7)

	floatUsed, err := s.txs.AmountSumByType(ctx, kioskID, domain.TypeDeposit, weekAgo, date)
	if err != nil {
		return err
	}
	data.FloatDaysRemaining = runwayDays(data.FloatBalance, floatUsed)

	cashUsed, err := s.txs.AmountSumByType(ctx, kioskID, domain.TypeWithdrawal, weekAgo, date)
	if err != nil {
		return err
	}
	data.CashDaysRemaining = runwayDays(data.CashBalance, cashUsed)
	return nil
}

func (s *Service) fillTrendAndStreak(ctx context.Context, kioskID uuid.UUID, date time.Time, data *domain.ReportData) error {
	trend := make([]domain.TrendPoint, 0, trendDays)
	for i := trendDays - 1; i >= 0; i-- {
		d := date.AddDate(0, 0, -i)
		profit, err := s.txs.ProfitSumByDay(ctx, kioskID, d)
		if err != nil {
			return err
		}
		trend = append(trend, domain.TrendPoint{
			Date:   d.Format("2006-01-02"),
			Day:    d.Format("Mon"),
			Profit: profit,
		})
	}
	data.ProfitTrend = trend

	// Consecutive profitable days ending today, capped so an unbroken run
	// does not walk the whole ledger.
	streak := 0
	for streak < streakCap {
		d := date.AddDate(0, 0, -streak)
		var profit decimal.Decimal
		if i := trendDays - 1 - streak; i >= 0 && streak < trendDays {
			profit = trend[i].Profit
		} else {
			p, err := s.txs.ProfitSumByDay(ctx, kioskID, d)
			if err != nil {
				return err
			}
			profit = p
		}
		if !profit.IsPositive() {
			break
		}
		streak++
	}
	data.ProfitStreak = streak
	return nil
}

// fillAlerts flags each network float, and the cash drawer, that sits below
// the configured threshold.
func (s *Service) fillAlerts(data *domain.ReportData) {
	for i := range data.FloatPerNetwork {
		nf := data.FloatPerNetwork[i]
		if nf.Amount.LessThan(s.threshold) {
			data.LowBalanceAlerts = append(data.LowBalanceAlerts, domain.LowBalanceAlert{
				NetworkCode: nf.NetworkCode,
				NetworkName: nf.NetworkName,
				Balance:     nf.Amount,
				Threshold:   s.threshold,
			})
		}
	}
	if data.CashBalance.LessThan(s.threshold) {
		data.LowBalanceAlerts = append(data.LowBalanceAlerts, domain.LowBalanceAlert{
			NetworkCode: "CASH",
			NetworkName: "Cash",
			Balance:     data.CashBalance,
			Threshold:   s.threshold,
		})
	}
}

func (s *Service) dispatchAlerts(ctx context.Context, kioskID uuid.UUID, data *domain.ReportData) {
	if s.notifier == nil {
		return
	}
	if len(data.LowBalanceAlerts) > 0 {
		if err := s.notifier.NotifyLowBalance(ctx, kioskID, data.LowBalanceAlerts); err != nil {
			s.logger.Warn("Low balance notification failed", map[string]interface{}{
				"kiosk_id": kioskID,
				"error":    err.Error(),
			})
		}
	}
	if err := s.notifier.NotifyDailySummary(ctx, kioskID, data); err != nil {
		s.logger.Warn("Daily summary notification failed", map[string]interface{}{
			"kiosk_id": kioskID,
			"error":    err.Error(),
		})
	}
}

func networkAmounts(perNetwork map[uuid.UUID]decimal.Decimal, byNetwork map[uuid.UUID]domain.Network) []domain.NetworkAmount {
	out := make([]domain.NetworkAmount, 0, len(perNetwork))
	for id, amount := range perNetwork {
		na := domain.NetworkAmount{NetworkID: id, Amount: amount}
		if net, ok := byNetwork[id]; ok {
			na.NetworkCode = net.Code
			na.NetworkName = net.Name
			na.Color = net.Color
		}
		out = append(out, na)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NetworkCode < out[j].NetworkCode })
	return out
}

// changePercent returns the percentage change from baseline to current,
// rounded to one decimal place.
func changePercent(current, baseline decimal.Decimal) float64 {
	if baseline.IsPositive() {
		pct, _ := current.Sub(baseline).Div(baseline).Mul(decimal.NewFromInt(100)).Round(1).Float64()
		return pct
	}
	if current.IsZero() {
		return 0
	}
	return 100
}

func runwayDays(balanceNow, usedLastWeek decimal.Decimal) *float64 {
	if !usedLastWeek.IsPositive() || !balanceNow.IsPositive() {
		return nil
	}
	perDay := usedLastWeek.Div(decimal.NewFromInt(7))
	days, _ := balanceNow.Div(perDay).Round(1).Float64()
	return &days
}

func roundPercent(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
