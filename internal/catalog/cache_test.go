package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/primelio/cee-service/internal/database"
)

// fakeSource is a controllable in-memory referential source.
type fakeSource struct {
	mu        sync.Mutex
	products  []database.CatalogProduct
	delegates []database.Delegate
	err       error
	delay     time.Duration

	loads atomic.Int32
}

func (s *fakeSource) Load(ctx context.Context) ([]database.CatalogProduct, []database.Delegate, error) {
	s.loads.Add(1)

	s.mu.Lock()
	delay := s.delay
	s.mu.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, nil, s.err
	}
	return s.products, s.delegates, nil
}

func (s *fakeSource) set(products []database.CatalogProduct, delegates []database.Delegate, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = products
	s.delegates = delegates
	s.err = err
}

func testReferential() ([]database.CatalogProduct, []database.Delegate) {
	coef := 2.0
	products := []database.CatalogProduct{
		{
			Code:          "BAT-EQ-127",
			Label:         "Luminaire LED",
			KwhCumac:      map[string]float64{"Bureaux": 1000, "Commerces": 800},
			MultiplierKey: "nombre_de_luminaires",
			Active:        true,
		},
		{
			Code:                  "BAT-EN-101",
			Label:                 "Isolation de combles",
			KwhCumac:              map[string]float64{"Bureaux": 2300},
			MultiplierKey:         "surface_isolee",
			MultiplierCoefficient: &coef,
			Active:                true,
		},
	}
	delegates := []database.Delegate{
		{Name: "TotalEnergies", PriceEurPerMwh: 50, Active: true},
		{Name: "EDF Obligé", PriceEurPerMwh: 48, Active: true},
	}
	return products, delegates
}

func testCacheConfig() Config {
	return Config{
		TTL:         time.Hour,
		LoadTimeout: 5 * time.Second,
		Breaker:     DefaultCircuitBreakerConfig(),
	}
}

func TestCacheWarmupAndLookup(t *testing.T) {
	source := &fakeSource{}
	products, delegates := testReferential()
	source.set(products, delegates, nil)

	cache := NewCache(source, testCacheConfig())
	defer cache.Close()

	require.NoError(t, cache.Warmup(context.Background()))

	assert.True(t, cache.IsHealthy())
	assert.True(t, cache.WaitForWarmup(context.Background()))
	assert.Equal(t, 2, cache.ProductCount())

	// Code matching ignores case and whitespace
	product, ok := cache.Product("  bat-eq-127 ")
	require.True(t, ok)
	assert.Equal(t, "BAT-EQ-127", product.Code)
	assert.Equal(t, "Luminaire LED", product.Label)
	assert.Equal(t, 1000.0, product.KwhCumac["Bureaux"])

	_, ok = cache.Product("BAT-TH-999")
	assert.False(t, ok)

	// Delegate matching folds case and accents
	delegate, ok := cache.Delegate("EDF  OBLIGE")
	require.True(t, ok)
	assert.Equal(t, "EDF Obligé", delegate.Name)
	assert.Equal(t, 48.0, delegate.PriceEurPerMwh)

	list := cache.Delegates()
	require.Len(t, list, 2)
	assert.Equal(t, "TotalEnergies", list[0].Name)

	freshness := cache.GetFreshness()
	assert.False(t, freshness.IsStale)
	assert.Equal(t, 2, freshness.Products)
	assert.Equal(t, 2, freshness.Delegates)
}

func TestCacheBeforeWarmup(t *testing.T) {
	cache := NewCache(&fakeSource{}, testCacheConfig())
	defer cache.Close()

	assert.False(t, cache.IsHealthy())
	assert.Equal(t, 0, cache.ProductCount())

	_, ok := cache.Product("BAT-EQ-127")
	assert.False(t, ok)
	_, ok = cache.Delegate("TotalEnergies")
	assert.False(t, ok)
	assert.Nil(t, cache.Delegates())

	assert.True(t, cache.GetFreshness().IsStale)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.False(t, cache.WaitForWarmup(ctx))
}

func TestCacheCollapsesConcurrentLoads(t *testing.T) {
	source := &fakeSource{delay: 100 * time.Millisecond}
	products, delegates := testReferential()
	source.set(products, delegates, nil)

	cache := NewCache(source, testCacheConfig())
	defer cache.Close()

	const concurrency = 20
	start := make(chan struct{})
	errs := make([]error, concurrency)

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			<-start
			errs[idx] = cache.Refresh(context.Background())
		}(i)
	}
	close(start)
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "refresh %d failed", i)
	}
	assert.Equal(t, int32(1), source.loads.Load(), "concurrent refreshes should share one load")
	assert.Equal(t, 2, cache.ProductCount())
}

func TestCacheRefreshSwapsSnapshot(t *testing.T) {
	source := &fakeSource{}
	products, delegates := testReferential()
	source.set(products, delegates, nil)

	cache := NewCache(source, testCacheConfig())
	defer cache.Close()
	require.NoError(t, cache.Warmup(context.Background()))

	before, ok := cache.Product("BAT-EQ-127")
	require.True(t, ok)
	require.Equal(t, "Luminaire LED", before.Label)

	updated := []database.CatalogProduct{
		{
			Code:          "BAT-EQ-127",
			Label:         "Luminaire LED rénové",
			KwhCumac:      map[string]float64{"Bureaux": 1100},
			MultiplierKey: "nombre_de_luminaires",
			Active:        true,
		},
	}
	source.set(updated, delegates, nil)
	require.NoError(t, cache.Refresh(context.Background()))

	after, ok := cache.Product("BAT-EQ-127")
	require.True(t, ok)
	assert.Equal(t, "Luminaire LED rénové", after.Label)
	assert.Equal(t, 1100.0, after.KwhCumac["Bureaux"])
	assert.Equal(t, 1, cache.ProductCount())

	// The previous snapshot stays intact for readers holding it
	assert.Equal(t, "Luminaire LED", before.Label)
}

func TestCacheCircuitBreakerOpensAndRecovers(t *testing.T) {
	source := &fakeSource{}
	source.set(nil, nil, errors.New("connection refused"))

	config := testCacheConfig()
	config.Breaker = &CircuitBreakerConfig{
		MaxFailures:      2,
		ResetTimeout:     40 * time.Millisecond,
		HalfOpenMaxCalls: 2,
	}
	cache := NewCache(source, config)
	defer cache.Close()

	require.Error(t, cache.Refresh(context.Background()))
	assert.Equal(t, CircuitClosed, cache.GetCircuitBreakerState())

	require.Error(t, cache.Refresh(context.Background()))
	assert.Equal(t, CircuitOpen, cache.GetCircuitBreakerState())

	// Open circuit rejects without hitting the source
	loadsBefore := source.loads.Load()
	err := cache.Refresh(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker")
	assert.Equal(t, loadsBefore, source.loads.Load())
	assert.False(t, cache.IsHealthy())

	// After the reset timeout a probe goes through and closes the circuit
	products, delegates := testReferential()
	source.set(products, delegates, nil)
	time.Sleep(60 * time.Millisecond)

	require.NoError(t, cache.Warmup(context.Background()))
	assert.Equal(t, CircuitClosed, cache.GetCircuitBreakerState())
	assert.True(t, cache.IsHealthy())
	assert.Equal(t, 2, cache.ProductCount())
}

func TestCacheResetCircuitBreaker(t *testing.T) {
	source := &fakeSource{}
	source.set(nil, nil, errors.New("connection refused"))

	config := testCacheConfig()
	config.Breaker = &CircuitBreakerConfig{
		MaxFailures:      1,
		ResetTimeout:     time.Hour,
		HalfOpenMaxCalls: 1,
	}
	cache := NewCache(source, config)
	defer cache.Close()

	require.Error(t, cache.Refresh(context.Background()))
	require.Equal(t, CircuitOpen, cache.GetCircuitBreakerState())

	cache.ResetCircuitBreaker()
	assert.Equal(t, CircuitClosed, cache.GetCircuitBreakerState())

	products, delegates := testReferential()
	source.set(products, delegates, nil)
	assert.NoError(t, cache.Refresh(context.Background()))
}

func TestCacheRefreshLoop(t *testing.T) {
	source := &fakeSource{}
	products, delegates := testReferential()
	source.set(products, delegates, nil)

	config := testCacheConfig()
	config.TTL = 20 * time.Millisecond
	config.RefreshJitter = 0

	cache := NewCache(source, config)
	require.NoError(t, cache.Warmup(context.Background()))

	cache.StartRefreshLoop(context.Background())
	time.Sleep(150 * time.Millisecond)
	require.NoError(t, cache.Close())

	loadsAtClose := source.loads.Load()
	assert.GreaterOrEqual(t, loadsAtClose, int32(3), "refresh loop should reload past the TTL")

	// Close stops the loop
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, loadsAtClose, source.loads.Load())
}

func TestCircuitBreakerTransitions(t *testing.T) {
	breaker := NewCircuitBreaker("test", &CircuitBreakerConfig{
		MaxFailures:      3,
		ResetTimeout:     30 * time.Millisecond,
		HalfOpenMaxCalls: 2,
	}, nil, nil)

	assert.Equal(t, CircuitClosed, breaker.State())
	assert.True(t, breaker.Allow())

	// A success clears accumulated failures
	breaker.RecordFailure(errors.New("boom"))
	breaker.RecordFailure(errors.New("boom"))
	breaker.RecordSuccess()
	breaker.RecordFailure(errors.New("boom"))
	breaker.RecordFailure(errors.New("boom"))
	assert.Equal(t, CircuitClosed, breaker.State())

	breaker.RecordFailure(errors.New("boom"))
	assert.Equal(t, CircuitOpen, breaker.State())
	assert.False(t, breaker.Allow())

	// Reset timeout admits a limited number of probes
	time.Sleep(40 * time.Millisecond)
	assert.True(t, breaker.Allow())
	assert.Equal(t, CircuitHalfOpen, breaker.State())
	assert.True(t, breaker.Allow())
	assert.False(t, breaker.Allow(), "half-open admits at most HalfOpenMaxCalls")

	// A failed probe reopens immediately
	breaker.RecordFailure(errors.New("boom"))
	assert.Equal(t, CircuitOpen, breaker.State())
	assert.False(t, breaker.Allow())

	// A successful probe closes the circuit
	time.Sleep(40 * time.Millisecond)
	assert.True(t, breaker.Allow())
	breaker.RecordSuccess()
	assert.Equal(t, CircuitClosed, breaker.State())
	assert.True(t, breaker.Allow())
}

func TestWarmupGate(t *testing.T) {
	gate := NewWarmupGate(nil)
	assert.False(t, gate.IsReady())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.False(t, gate.Wait(ctx))

	gate.Ready()
	gate.Ready() // idempotent
	assert.True(t, gate.IsReady())
	assert.True(t, gate.Wait(context.Background()))
}
