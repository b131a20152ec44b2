package balance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"floatbook/internal/domain"
	"floatbook/pkg/errors"
	"floatbook/pkg/logger"
)

// Repository is the daily opening balance store.
type Repository interface {
	FindByKioskAndDate(ctx context.Context, kioskID uuid.UUID, date time.Time) (*domain.DailyOpeningBalance, error)
	// FindLatestBefore returns the most recent explicit row strictly before
	// date, or errors.ErrOpeningBalanceNotFound when none exists.
	FindLatestBefore(ctx context.Context, kioskID uuid.UUID, date time.Time) (*domain.DailyOpeningBalance, error)
	FloatsForBalance(ctx context.Context, balanceID uuid.UUID) ([]domain.NetworkFloatBalance, error)
	Create(ctx context.Context, bal *domain.DailyOpeningBalance, floats []domain.NetworkFloatBalance) error
	Update(ctx context.Context, bal *domain.DailyOpeningBalance) error
	UpsertFloat(ctx context.Context, f *domain.NetworkFloatBalance) error
}

// TransactionSource feeds ledger entries into the fold.
type TransactionSource interface {
	FindByKioskAndDay(ctx context.Context, kioskID uuid.UUID, day time.Time) ([]domain.Transaction, error)
	FindByKioskBetween(ctx context.Context, kioskID uuid.UUID, from, to time.Time) ([]domain.Transaction, error)
	// EarliestTimestamp returns nil when the kiosk has no entries at all.
	EarliestTimestamp(ctx context.Context, kioskID uuid.UUID) (*time.Time, error)
}

// NetworkSource lists the networks a started day gets float rows for.
type NetworkSource interface {
	ActiveNetworks(ctx context.Context) ([]domain.Network, error)
}

// Service owns opening positions and day summaries. Both the live dashboard
// and the report aggregator read through it, so the two can never disagree on
// rollover semantics.
type Service struct {
	repo     Repository
	txSource TransactionSource
	networks NetworkSource
	logger   logger.Logger
}

func NewService(repo Repository, txSource TransactionSource, networks NetworkSource, log logger.Logger) *Service {
	return &Service{repo: repo, txSource: txSource, networks: networks, logger: log}
}

// OpeningPosition returns the kiosk's starting state for date. An explicit
// row wins as-is. Otherwise the position is synthesized by walking forward
// from the last known anchor (the latest explicit row before date, or a zero
// position at the kiosk's earliest ledger entry), folding each intermediate
// day's transactions. The walk is iterative and the synthesized result is
// never persisted.
func (s *Service) OpeningPosition(ctx context.Context, kioskID uuid.UUID, date time.Time) (OpeningPosition, error) {
	date = DateOnly(date)

	row, err := s.repo.FindByKioskAndDate(ctx, kioskID, date)
	if err == nil {
		return s.positionFromRow(ctx, row)
	}
	if !errors.Is(err, errors.ErrOpeningBalanceNotFound) {
		return OpeningPosition{}, err
	}

	pos, cursor, err := s.anchorPosition(ctx, kioskID, date)
	if err != nil {
		return OpeningPosition{}, err
	}
	if cursor.Equal(date) {
		return pos, nil
	}

	// One range query, grouped by day, instead of a query per walked day.
	txns, err := s.txSource.FindByKioskBetween(ctx, kioskID, cursor, date.AddDate(0, 0, -1))
	if err != nil {
		return OpeningPosition{}, err
	}
	byDay := groupByDay(txns)

	for day := cursor; day.Before(date); day = day.AddDate(0, 0, 1) {
		summary := Fold(pos, byDay[day])
		pos = summary.ClosingPosition(day.AddDate(0, 0, 1))
	}
	pos.KioskID = kioskID
	pos.Date = date
	return pos, nil
}

// anchorPosition finds where the forward walk starts: the latest explicit row
// before date, else a zero position at the earliest transaction day, else a
// zero position at date itself (idle kiosk, nothing to walk).
func (s *Service) anchorPosition(ctx context.Context, kioskID uuid.UUID, date time.Time) (OpeningPosition, time.Time, error) {
	anchor, err := s.repo.FindLatestBefore(ctx, kioskID, date)
	if err == nil {
		pos, perr := s.positionFromRow(ctx, anchor)
		if perr != nil {
			return OpeningPosition{}, time.Time{}, perr
		}
		pos.Explicit = false
		return pos, DateOnly(anchor.Date), nil
	}
	if !errors.Is(err, errors.ErrOpeningBalanceNotFound) {
		return OpeningPosition{}, time.Time{}, err
	}

	zero := OpeningPosition{
		KioskID: kioskID,
		Date:    date,
		Cash:    decimal.Zero,
		Float:   map[uuid.UUID]decimal.Decimal{},
	}

	earliest, err := s.txSource.EarliestTimestamp(ctx, kioskID)
	if err != nil {
		return OpeningPosition{}, time.Time{}, err
	}
	if earliest == nil || !DateOnly(*earliest).Before(date) {
		return zero, date, nil
	}
	start := DateOnly(*earliest)
	zero.Date = start
	return zero, start, nil
}

func (s *Service) positionFromRow(ctx context.Context, row *domain.DailyOpeningBalance) (OpeningPosition, error) {
	floats, err := s.repo.FloatsForBalance(ctx, row.ID)
	if err != nil {
		return OpeningPosition{}, err
	}

	perNetwork := make(map[uuid.UUID]decimal.Decimal, len(floats))
	for i := range floats {
		perNetwork[floats[i].NetworkID] = floats[i].OpeningFloat
	}

	return OpeningPosition{
		KioskID:  row.KioskID,
		Date:     DateOnly(row.Date),
		Cash:     row.OpeningCash,
		Float:    perNetwork,
		Explicit: true,
	}, nil
}

// DaySummary folds the opening position and the day's ledger entries into the
// figures the dashboard and reports display.
func (s *Service) DaySummary(ctx context.Context, kioskID uuid.UUID, date time.Time) (DaySummary, error) {
	date = DateOnly(date)

	opening, err := s.OpeningPosition(ctx, kioskID, date)
	if err != nil {
		return DaySummary{}, err
	}

	txns, err := s.txSource.FindByKioskAndDay(ctx, kioskID, date)
	if err != nil {
		return DaySummary{}, err
	}

	return Fold(opening, txns), nil
}

// StartDayRequest starts (or same-day edits) a kiosk's day. Nil opening
// values default to the computed rollover; explicit values let the agent
// correct for a physical cash count, with the reason recorded for audit.
type StartDayRequest struct {
	KioskID          uuid.UUID                     `json:"kiosk_id" validate:"required"`
	Date             time.Time                     `json:"date"`
	OpeningCash      *decimal.Decimal              `json:"opening_cash" validate:"omitempty,gte=0"`
	AdjustmentReason domain.AdjustmentReason       `json:"adjustment_reason" validate:"omitempty,oneof=CASH_INJECTION DISCREPANCY FLOAT_RECHARGE OTHER"`
	AdjustmentNotes  string                        `json:"adjustment_notes"`
	OpeningFloats    map[uuid.UUID]decimal.Decimal `json:"opening_floats"`
	CreatedBy        *uuid.UUID                    `json:"-"`
}

// StartDay transitions a (kiosk, date) from uninitialized to started, exactly
// once; a second call the same day edits the row in place. A started day is
// never un-started.
func (s *Service) StartDay(ctx context.Context, req *StartDayRequest) (*domain.DailyOpeningBalance, error) {
	date := DateOnly(req.Date)
	if req.Date.IsZero() {
		date = DateOnly(time.Now())
	}

	existing, err := s.repo.FindByKioskAndDate(ctx, req.KioskID, date)
	switch {
	case err == nil:
		return s.editStartedDay(ctx, existing, req)
	case errors.Is(err, errors.ErrOpeningBalanceNotFound):
		// fall through to create
	default:
		return nil, err
	}

	// Rollover supplies the defaults the agent confirms or corrects.
	rollover, err := s.OpeningPosition(ctx, req.KioskID, date)
	if err != nil {
		return nil, err
	}

	openingCash := rollover.Cash
	if req.OpeningCash != nil {
		openingCash = *req.OpeningCash
	}

	now := time.Now()
	bal := &domain.DailyOpeningBalance{
		ID:               uuid.New(),
		KioskID:          req.KioskID,
		Date:             date,
		OpeningCash:      openingCash,
		AdjustmentReason: req.AdjustmentReason,
		AdjustmentNotes:  req.AdjustmentNotes,
		CreatedBy:        req.CreatedBy,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	networks, err := s.networks.ActiveNetworks(ctx)
	if err != nil {
		return nil, err
	}

	floats := make([]domain.NetworkFloatBalance, 0, len(networks))
	for i := range networks {
		opening := rollover.Float[networks[i].ID]
		if v, ok := req.OpeningFloats[networks[i].ID]; ok {
			opening = v
		}
		floats = append(floats, domain.NetworkFloatBalance{
			ID:             uuid.New(),
			DailyBalanceID: bal.ID,
			NetworkID:      networks[i].ID,
			OpeningFloat:   opening,
		})
	}

	if err := s.repo.Create(ctx, bal, floats); err != nil {
		return nil, err
	}

	s.logger.Info("Day started", map[string]interface{}{
		"kiosk_id":     req.KioskID,
		"date":         date.Format("2006-01-02"),
		"opening_cash": openingCash.String(),
		"adjusted":     req.AdjustmentReason != domain.AdjustmentNone,
	})
	return bal, nil
}

func (s *Service) editStartedDay(ctx context.Context, existing *domain.DailyOpeningBalance, req *StartDayRequest) (*domain.DailyOpeningBalance, error) {
	if req.OpeningCash != nil {
		existing.OpeningCash = *req.OpeningCash
	}
	existing.AdjustmentReason = req.AdjustmentReason
	existing.AdjustmentNotes = req.AdjustmentNotes
	existing.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, err
	}

	for networkID, opening := range req.OpeningFloats {
		f := &domain.NetworkFloatBalance{
			ID:             uuid.New(),
			DailyBalanceID: existing.ID,
			NetworkID:      networkID,
			OpeningFloat:   opening,
		}
		if err := s.repo.UpsertFloat(ctx, f); err != nil {
			return nil, err
		}
	}

	s.logger.Info("Opening balance updated", map[string]interface{}{
		"kiosk_id": existing.KioskID,
		"date":     DateOnly(existing.Date).Format("2006-01-02"),
	})
	return existing, nil
}

// DayStarted reports whether an explicit opening balance exists for the date.
func (s *Service) DayStarted(ctx context.Context, kioskID uuid.UUID, date time.Time) (bool, error) {
	_, err := s.repo.FindByKioskAndDate(ctx, kioskID, DateOnly(date))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, errors.ErrOpeningBalanceNotFound) {
		return false, nil
	}
	return false, err
}

func groupByDay(txns []domain.Transaction) map[time.Time][]domain.Transaction {
	byDay := make(map[time.Time][]domain.Transaction)
	for i := range txns {
		day := DateOnly(txns[i].Timestamp)
		byDay[day] = append(byDay[day], txns[i])
	}
	return byDay
}
