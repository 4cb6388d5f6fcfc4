package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/minhleeee123/MantleFlow-sub001/internal/domain/market"
	"github.com/minhleeee123/MantleFlow-sub001/internal/domain/trigger"
	"github.com/minhleeee123/MantleFlow-sub001/pkg/errors"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) FetchPrices(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error) {
	args := m.Called(ctx, symbols)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]decimal.Decimal), args.Error(1)
}

func (m *mockProvider) FetchCandles(ctx context.Context, symbol string, limit int) ([]market.Candle, error) {
	args := m.Called(ctx, symbol, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]market.Candle), args.Error(1)
}

func (m *mockProvider) FetchVolume24h(ctx context.Context, symbol string) (decimal.Decimal, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *mockProvider) FetchSentiment(ctx context.Context, symbol string) (decimal.Decimal, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *mockProvider) FetchGasPrice(ctx context.Context) (decimal.Decimal, error) {
	args := m.Called(ctx)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func seedEntry(cache *MemoryCache, key string, value string, age time.Duration) {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	cache.entries[key] = cacheEntry{
		Value:     decimal.RequireFromString(value),
		FetchedAt: time.Now().UTC().Add(-age),
	}
}

func TestGetPricesBatchesStaleAndMissing(t *testing.T) {
	provider := &mockProvider{}
	cache := NewMemoryCache()
	svc := NewService(provider, cache, Options{CacheTTL: 60 * time.Second})

	// MNT is fresh, ETH is stale, BTC is unknown
	seedEntry(cache, "price:MNT", "0.52", 10*time.Second)
	seedEntry(cache, "price:ETH", "3100", 90*time.Second)

	provider.On("FetchPrices", mock.Anything, []string{"ETH", "BTC"}).
		Return(map[string]decimal.Decimal{
			"ETH": decimal.NewFromInt(3200),
			"BTC": decimal.NewFromInt(65000),
		}, nil).Once()

	prices := svc.GetPrices(context.Background(), []string{"MNT", "ETH", "BTC"})

	require.Len(t, prices, 3)
	assert.True(t, prices["MNT"].Equal(decimal.RequireFromString("0.52")))
	assert.True(t, prices["ETH"].Equal(decimal.NewFromInt(3200)))
	assert.True(t, prices["BTC"].Equal(decimal.NewFromInt(65000)))

	// Exactly one upstream round trip
	provider.AssertExpectations(t)
	provider.AssertNumberOfCalls(t, "FetchPrices", 1)
}

func TestGetPricesAllFreshSkipsUpstream(t *testing.T) {
	provider := &mockProvider{}
	cache := NewMemoryCache()
	svc := NewService(provider, cache, Options{CacheTTL: 60 * time.Second})

	seedEntry(cache, "price:MNT", "0.52", 5*time.Second)

	prices := svc.GetPrices(context.Background(), []string{"MNT", "MNT"})

	require.Len(t, prices, 1)
	provider.AssertNotCalled(t, "FetchPrices")
}

func TestGetPricesServesStaleOnUpstreamFailure(t *testing.T) {
	provider := &mockProvider{}
	cache := NewMemoryCache()
	svc := NewService(provider, cache, Options{CacheTTL: 60 * time.Second})

	seedEntry(cache, "price:MNT", "0.52", 5*time.Minute)

	provider.On("FetchPrices", mock.Anything, []string{"MNT", "BTC"}).
		Return(nil, errors.ErrUnavailable).Once()

	prices := svc.GetPrices(context.Background(), []string{"MNT", "BTC"})

	// The stale value still serves; the never-seen symbol is absent
	require.Len(t, prices, 1)
	assert.True(t, prices["MNT"].Equal(decimal.RequireFromString("0.52")))
	_, ok := prices["BTC"]
	assert.False(t, ok)
}

func TestGetPricesPartialResponseFallsBackToStale(t *testing.T) {
	provider := &mockProvider{}
	cache := NewMemoryCache()
	svc := NewService(provider, cache, Options{CacheTTL: 60 * time.Second})

	seedEntry(cache, "price:ETH", "3100", 2*time.Minute)

	// The oracle answers but omits ETH
	provider.On("FetchPrices", mock.Anything, []string{"ETH", "BTC"}).
		Return(map[string]decimal.Decimal{"BTC": decimal.NewFromInt(65000)}, nil).Once()

	prices := svc.GetPrices(context.Background(), []string{"ETH", "BTC"})

	require.Len(t, prices, 2)
	assert.True(t, prices["ETH"].Equal(decimal.NewFromInt(3100)))
	assert.True(t, prices["BTC"].Equal(decimal.NewFromInt(65000)))
}

func TestGetPricesRefreshesCache(t *testing.T) {
	provider := &mockProvider{}
	cache := NewMemoryCache()
	svc := NewService(provider, cache, Options{CacheTTL: 60 * time.Second})

	provider.On("FetchPrices", mock.Anything, []string{"MNT"}).
		Return(map[string]decimal.Decimal{"MNT": decimal.RequireFromString("0.55")}, nil).Once()

	svc.GetPrices(context.Background(), []string{"MNT"})

	// Second read within the TTL is a cache hit
	prices := svc.GetPrices(context.Background(), []string{"MNT"})
	assert.True(t, prices["MNT"].Equal(decimal.RequireFromString("0.55")))
	provider.AssertNumberOfCalls(t, "FetchPrices", 1)
}

func TestGetMetricRSIFromCandles(t *testing.T) {
	provider := &mockProvider{}
	cache := NewMemoryCache()
	svc := NewService(provider, cache, Options{CacheTTL: 60 * time.Second, CandleLimit: 100, MetricPeriod: 14})

	candles := make([]market.Candle, 30)
	for i := range candles {
		// Monotonically rising closes push RSI toward 100
		candles[i] = market.Candle{Close: float64(100 + i)}
	}
	provider.On("FetchCandles", mock.Anything, "MNT", 100).Return(candles, nil).Once()

	value, err := svc.GetMetric(context.Background(), "MNT", trigger.MetricRSI)

	require.NoError(t, err)
	assert.True(t, value.GreaterThan(decimal.NewFromInt(70)), "rising series should produce high RSI, got %s", value)

	// The derived value is cached; a second read skips the candles fetch
	_, err = svc.GetMetric(context.Background(), "MNT", trigger.MetricRSI)
	require.NoError(t, err)
	provider.AssertNumberOfCalls(t, "FetchCandles", 1)
}

func TestGetMetricRSIInsufficientHistory(t *testing.T) {
	provider := &mockProvider{}
	cache := NewMemoryCache()
	svc := NewService(provider, cache, Options{CacheTTL: 60 * time.Second, CandleLimit: 100, MetricPeriod: 14})

	provider.On("FetchCandles", mock.Anything, "MNT", 100).
		Return([]market.Candle{{Close: 1}, {Close: 2}}, nil).Once()

	_, err := svc.GetMetric(context.Background(), "MNT", trigger.MetricRSI)

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrPriceUnavailable))
}

func TestGetMetricMAFromCandles(t *testing.T) {
	provider := &mockProvider{}
	cache := NewMemoryCache()
	svc := NewService(provider, cache, Options{CacheTTL: 60 * time.Second, CandleLimit: 100, MetricPeriod: 3})

	provider.On("FetchCandles", mock.Anything, "MNT", 100).
		Return([]market.Candle{{Close: 1}, {Close: 2}, {Close: 3}, {Close: 4}, {Close: 5}}, nil).Once()

	value, err := svc.GetMetric(context.Background(), "MNT", trigger.MetricMA)

	require.NoError(t, err)
	// SMA(3) over the last window (3,4,5) is 4
	assert.True(t, value.Equal(decimal.NewFromInt(4)), "got %s", value)
}

func TestGetMetricDirectLookupsStaleFallback(t *testing.T) {
	provider := &mockProvider{}
	cache := NewMemoryCache()
	svc := NewService(provider, cache, Options{CacheTTL: 60 * time.Second})

	seedEntry(cache, "volume:MNT", "1500000", 10*time.Minute)
	provider.On("FetchVolume24h", mock.Anything, "MNT").
		Return(decimal.Zero, errors.ErrUnavailable).Once()

	value, err := svc.GetMetric(context.Background(), "MNT", trigger.MetricVolume)

	require.NoError(t, err)
	assert.True(t, value.Equal(decimal.NewFromInt(1_500_000)))
}

func TestGetMetricNothingToServe(t *testing.T) {
	provider := &mockProvider{}
	cache := NewMemoryCache()
	svc := NewService(provider, cache, Options{CacheTTL: 60 * time.Second})

	provider.On("FetchGasPrice", mock.Anything).
		Return(decimal.Zero, errors.ErrUnavailable).Once()

	_, err := svc.GetMetric(context.Background(), "", trigger.MetricGas)

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrPriceUnavailable))
}
