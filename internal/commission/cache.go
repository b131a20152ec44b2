package commission

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"floatbook/internal/domain"
	"floatbook/pkg/cache"
	"floatbook/pkg/logger"
)

// CachedRateSource is a read-through cache in front of a RateSource. Rate
// tables are small, mutable admin data queried on every transaction write, so
// the lists are cached whole per lookup key and invalidated on any rate-table
// write. A nil *CachedRateSource must never be constructed; pass the bare
// repository instead when Redis is unavailable.
type CachedRateSource struct {
	source RateSource
	cache  *cache.RedisCache
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedRateSource(source RateSource, c *cache.RedisCache, ttl time.Duration, log logger.Logger) *CachedRateSource {
	return &CachedRateSource{source: source, cache: c, ttl: ttl, logger: log}
}

func networkRatesKey(networkID uuid.UUID) string {
	return fmt.Sprintf("rates:network:%s", networkID)
}

func agentRatesKey(kioskID, networkID uuid.UUID, txType domain.TransactionType) string {
	return fmt.Sprintf("rates:agent:%s:%s:%s", kioskID, networkID, txType)
}

func (s *CachedRateSource) ActiveRatesByNetwork(ctx context.Context, networkID uuid.UUID) ([]domain.CommissionRate, error) {
	key := networkRatesKey(networkID)

	var rates []domain.CommissionRate
	err := s.cache.Get(ctx, key, &rates)
	if err == nil {
		return rates, nil
	}
	if !cache.Miss(err) {
		// Degrade to the repository on cache transport failures.
		s.logger.Warn("Rate cache read failed", map[string]interface{}{"key": key, "error": err.Error()})
	}

	rates, err = s.source.ActiveRatesByNetwork(ctx, networkID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, key, rates, s.ttl); err != nil {
		s.logger.Warn("Rate cache write failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
	return rates, nil
}

func (s *CachedRateSource) ActiveAgentRates(ctx context.Context, kioskID, networkID uuid.UUID, txType domain.TransactionType) ([]domain.AgentCommissionRate, error) {
	key := agentRatesKey(kioskID, networkID, txType)

	var rates []domain.AgentCommissionRate
	err := s.cache.Get(ctx, key, &rates)
	if err == nil {
		return rates, nil
	}
	if !cache.Miss(err) {
		s.logger.Warn("Rate cache read failed", map[string]interface{}{"key": key, "error": err.Error()})
	}

	rates, err = s.source.ActiveAgentRates(ctx, kioskID, networkID, txType)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, key, rates, s.ttl); err != nil {
		s.logger.Warn("Rate cache write failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
	return rates, nil
}

// InvalidateNetwork drops the cached network-wide tier list.
func (s *CachedRateSource) InvalidateNetwork(ctx context.Context, networkID uuid.UUID) {
	if err := s.cache.Delete(ctx, networkRatesKey(networkID)); err != nil {
		s.logger.Warn("Rate cache invalidation failed", map[string]interface{}{
			"network_id": networkID,
			"error":      err.Error(),
		})
	}
}

// InvalidateAgent drops the cached agent tier lists for both transaction
// types of a (kiosk, network) pair.
func (s *CachedRateSource) InvalidateAgent(ctx context.Context, kioskID, networkID uuid.UUID) {
	keys := []string{
		agentRatesKey(kioskID, networkID, domain.TypeDeposit),
		agentRatesKey(kioskID, networkID, domain.TypeWithdrawal),
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.Warn("Rate cache invalidation failed", map[string]interface{}{
			"kiosk_id":   kioskID,
			"network_id": networkID,
			"error":      err.Error(),
		})
	}
}
