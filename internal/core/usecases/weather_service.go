package usecases

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ericnem/passepartout/internal/core/domain"
	"github.com/ericnem/passepartout/internal/core/ports"
	"github.com/ericnem/passepartout/internal/pkg/metrics"
)

// WeatherService serves current-weather snapshots keyed by coordinate.
// Snapshot keys round coordinates to a ~100 m grid, so the upstream
// provider is only hit again once the traveler has moved materially or
// the cached entry expires.
type WeatherService struct {
	provider   ports.WeatherProvider
	cache      ports.CacheService
	ttlSeconds int
}

// NewWeatherService creates a new WeatherService. cache may be nil.
func NewWeatherService(provider ports.WeatherProvider, cache ports.CacheService, ttlSeconds int) *WeatherService {
	if ttlSeconds <= 0 {
		ttlSeconds = 300
	}
	return &WeatherService{provider: provider, cache: cache, ttlSeconds: ttlSeconds}
}

// CurrentAt returns the weather snapshot for a position.
func (s *WeatherService) CurrentAt(ctx context.Context, pos domain.GeoPoint) (*domain.WeatherSnapshot, error) {
	cacheKey := fmt.Sprintf("weather:%.3f:%.3f", pos.Lat, pos.Lon)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var snap domain.WeatherSnapshot
			if err := json.Unmarshal(data, &snap); err == nil {
				metrics.WeatherCacheHits.Inc()
				return &snap, nil
			}
		}
	}

	metrics.WeatherCacheMisses.Inc()
	snap, err := s.provider.Current(ctx, pos.Lat, pos.Lon)
	if err != nil {
		return nil, fmt.Errorf("fetch weather: %w", err)
	}

	if s.cache != nil {
		if data, err := json.Marshal(snap); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, s.ttlSeconds)
		}
	}

	return snap, nil
}
