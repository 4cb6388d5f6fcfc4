package pricing

import (
	"context"
	"time"

	"github.com/markcheno/go-talib"
	"github.com/shopspring/decimal"

	"github.com/minhleeee123/MantleFlow-sub001/internal/adapters/oracle"
	"github.com/minhleeee123/MantleFlow-sub001/internal/domain/market"
	"github.com/minhleeee123/MantleFlow-sub001/internal/domain/trigger"
	"github.com/minhleeee123/MantleFlow-sub001/pkg/errors"
	"github.com/minhleeee123/MantleFlow-sub001/pkg/logger"
)

// Options tune cache lifetime and indicator inputs
type Options struct {
	CacheTTL     time.Duration
	CandleLimit  int
	MetricPeriod int
}

func (o *Options) withDefaults() {
	if o.CacheTTL <= 0 {
		o.CacheTTL = 60 * time.Second
	}
	if o.CandleLimit <= 0 {
		o.CandleLimit = 100
	}
	if o.MetricPeriod <= 0 {
		o.MetricPeriod = 14
	}
}

// Service is the price oracle adapter: cache-first reads over the upstream
// provider with stale fallback when the oracle is unreachable
type Service struct {
	provider oracle.Provider
	cache    Cache
	opts     Options
	log      *logger.Logger
}

// NewService creates a new pricing service
func NewService(provider oracle.Provider, cache Cache, opts Options) *Service {
	opts.withDefaults()
	return &Service{
		provider: provider,
		cache:    cache,
		opts:     opts,
		log:      logger.Get().With("component", "pricing"),
	}
}

// GetPrices serves current prices for a symbol set: fresh cache hits are
// returned as-is, the stale/missing remainder goes upstream in one batched
// fetch. On upstream failure stale values are served (logged); a symbol
// with no value at all is omitted and the caller must skip it this cycle.
func (s *Service) GetPrices(ctx context.Context, symbols []string) map[string]decimal.Decimal {
	result := make(map[string]decimal.Decimal, len(symbols))
	stale := make(map[string]decimal.Decimal)

	var need []string
	seen := make(map[string]bool, len(symbols))
	for _, symbol := range symbols {
		if seen[symbol] {
			continue
		}
		seen[symbol] = true

		entry, fresh, ok := s.cached(ctx, priceKey(symbol))
		switch {
		case ok && fresh:
			result[symbol] = entry.Value
		case ok:
			stale[symbol] = entry.Value
			need = append(need, symbol)
		default:
			need = append(need, symbol)
		}
	}

	if len(need) == 0 {
		return result
	}

	fetched, err := s.provider.FetchPrices(ctx, need)
	if err != nil {
		s.log.Warnw("Oracle batch fetch failed, serving stale prices",
			"symbols", need,
			"stale_available", len(stale),
			"error", err,
		)
		for symbol, value := range stale {
			result[symbol] = value
		}
		return result
	}

	for _, symbol := range need {
		value, ok := fetched[symbol]
		if !ok {
			// The upstream answered but skipped this symbol; fall back
			// to stale if we have it, otherwise the symbol stays absent
			if staleValue, hasStale := stale[symbol]; hasStale {
				s.log.Warnw("Symbol missing from oracle response, serving stale", "symbol", symbol)
				result[symbol] = staleValue
			}
			continue
		}

		result[symbol] = value
		s.store(ctx, priceKey(symbol), value)
	}

	return result
}

// GetMetric serves one secondary metric value, cache-first with the same
// TTL and stale-fallback discipline as prices. RSI and MA are derived from
// the oracle's candle series; the rest are direct lookups.
func (s *Service) GetMetric(ctx context.Context, symbol string, metric trigger.Metric) (decimal.Decimal, error) {
	switch metric {
	case trigger.MetricPrice:
		prices := s.GetPrices(ctx, []string{symbol})
		price, ok := prices[symbol]
		if !ok {
			return decimal.Zero, errors.Wrapf(errors.ErrPriceUnavailable, "symbol %s", symbol)
		}
		return price, nil

	case trigger.MetricRSI:
		return s.derived(ctx, metricKey("rsi", symbol), symbol, func(closes []float64) ([]float64, error) {
			if len(closes) < s.opts.MetricPeriod+1 {
				return nil, errors.Wrapf(errors.ErrPriceUnavailable, "rsi needs %d closes, got %d", s.opts.MetricPeriod+1, len(closes))
			}
			return talib.Rsi(closes, s.opts.MetricPeriod), nil
		})

	case trigger.MetricMA:
		return s.derived(ctx, metricKey("ma", symbol), symbol, func(closes []float64) ([]float64, error) {
			if len(closes) < s.opts.MetricPeriod {
				return nil, errors.Wrapf(errors.ErrPriceUnavailable, "ma needs %d closes, got %d", s.opts.MetricPeriod, len(closes))
			}
			return talib.Sma(closes, s.opts.MetricPeriod), nil
		})

	case trigger.MetricVolume:
		return s.lookup(ctx, metricKey("volume", symbol), func(ctx context.Context) (decimal.Decimal, error) {
			return s.provider.FetchVolume24h(ctx, symbol)
		})

	case trigger.MetricSentiment:
		return s.lookup(ctx, metricKey("sentiment", symbol), func(ctx context.Context) (decimal.Decimal, error) {
			return s.provider.FetchSentiment(ctx, symbol)
		})

	case trigger.MetricGas:
		return s.lookup(ctx, "gas", func(ctx context.Context) (decimal.Decimal, error) {
			return s.provider.FetchGasPrice(ctx)
		})
	}

	return decimal.Zero, errors.Wrapf(errors.ErrInvalidInput, "unknown metric %q", metric)
}

// derived computes an indicator from the candle close series
func (s *Service) derived(ctx context.Context, key, symbol string, compute func(closes []float64) ([]float64, error)) (decimal.Decimal, error) {
	return s.lookup(ctx, key, func(ctx context.Context) (decimal.Decimal, error) {
		candles, err := s.provider.FetchCandles(ctx, symbol, s.opts.CandleLimit)
		if err != nil {
			return decimal.Zero, err
		}

		series, err := compute(market.Closes(candles))
		if err != nil {
			return decimal.Zero, err
		}
		if len(series) == 0 {
			return decimal.Zero, errors.Wrapf(errors.ErrPriceUnavailable, "empty indicator series for %s", symbol)
		}

		return decimal.NewFromFloat(series[len(series)-1]), nil
	})
}

// lookup is the shared cache-first read path for single metric values
func (s *Service) lookup(ctx context.Context, key string, fetch func(ctx context.Context) (decimal.Decimal, error)) (decimal.Decimal, error) {
	entry, fresh, ok := s.cached(ctx, key)
	if ok && fresh {
		return entry.Value, nil
	}

	value, err := fetch(ctx)
	if err != nil {
		if ok {
			s.log.Warnw("Metric fetch failed, serving stale value",
				"key", key,
				"age", time.Since(entry.FetchedAt),
				"error", err,
			)
			return entry.Value, nil
		}
		return decimal.Zero, errors.Wrapf(errors.ErrPriceUnavailable, "%s: %v", key, err)
	}

	s.store(ctx, key, value)
	return value, nil
}

// cached reads a cache entry; ok reports existence, fresh reports TTL validity
func (s *Service) cached(ctx context.Context, key string) (entry cacheEntry, fresh, ok bool) {
	if err := s.cache.Get(ctx, key, &entry); err != nil {
		return cacheEntry{}, false, false
	}
	return entry, time.Since(entry.FetchedAt) < s.opts.CacheTTL, true
}

// store overwrites a cache entry; refreshes are idempotent per key
func (s *Service) store(ctx context.Context, key string, value decimal.Decimal) {
	entry := cacheEntry{Value: value, FetchedAt: time.Now().UTC()}
	if err := s.cache.Set(ctx, key, entry, 0); err != nil {
		s.log.Warnw("Failed to write cache entry", "key", key, "error", err)
	}
}

func priceKey(symbol string) string {
	return "price:" + symbol
}

func metricKey(kind, symbol string) string {
	return kind + ":" + symbol
}
