// Package catalog keeps the CEE referential (operation codes with their kWh
// cumac tables, and delegate purchase prices) in memory. Snapshots are built
// off-lock and swapped atomically so compute requests never block on a
// refresh.
package catalog

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/primelio/cee-service/internal/database"
	"github.com/primelio/cee-service/internal/valorisation"
)

// Source loads the referential from persistent storage.
type Source interface {
	Load(ctx context.Context) ([]database.CatalogProduct, []database.Delegate, error)
}

// DatabaseSource loads the referential through the database package.
type DatabaseSource struct{}

func (DatabaseSource) Load(ctx context.Context) ([]database.CatalogProduct, []database.Delegate, error) {
	return database.LoadReferential(ctx)
}

// Config holds the cache tuning knobs.
type Config struct {
	TTL           time.Duration
	LoadTimeout   time.Duration
	RefreshJitter time.Duration
	Breaker       *CircuitBreakerConfig
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig() Config {
	return Config{
		TTL:           1 * time.Hour,
		LoadTimeout:   30 * time.Second,
		RefreshJitter: 5 * time.Minute,
		Breaker:       DefaultCircuitBreakerConfig(),
	}
}

// Cache is the in-memory referential. A single immutable snapshot is swapped
// atomically on load; lookups are lock-free.
type Cache struct {
	snapshot atomic.Value // *referentialSnapshot
	loadedAt atomic.Value // time.Time

	sf loadGroup

	source Source
	config Config

	// Circuit breaker for load failures
	circuitBreaker *CircuitBreaker

	// Warmup gate blocks requests until the first load completes
	warmupGate *WarmupGate

	metrics *MetricsRecorder
	logger  *zerolog.Logger

	// Shutdown handling
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// referentialSnapshot is an immutable snapshot of the referential.
type referentialSnapshot struct {
	// products keyed by normalized operation code
	products map[string]*valorisation.CatalogProduct

	// delegates keyed by folded name, plus the original ordering for listings
	delegates    map[string]*database.Delegate
	delegateList []database.Delegate

	estimatedSizeBytes int64
}

// loadGroup collapses concurrent loads into one. A custom type instead of
// golang.org/x/sync/singleflight so the load runs under a dedicated context
// rather than the first caller's request context.
type loadGroup struct {
	mu   sync.Mutex
	call *loadCall
}

type loadCall struct {
	wg  sync.WaitGroup
	val *referentialSnapshot
	err error
}

// Do executes fn once for all concurrent callers. The bool reports whether
// this caller ran fn.
func (g *loadGroup) Do(fn func() (*referentialSnapshot, error)) (*referentialSnapshot, error, bool) {
	g.mu.Lock()
	if g.call != nil {
		call := g.call
		g.mu.Unlock()
		call.wg.Wait()
		return call.val, call.err, false
	}

	call := &loadCall{}
	call.wg.Add(1)
	g.call = call
	g.mu.Unlock()

	call.val, call.err = fn()
	call.wg.Done()

	g.mu.Lock()
	g.call = nil
	g.mu.Unlock()

	return call.val, call.err, true
}

// NewCache creates a referential cache over the given source.
func NewCache(source Source, config Config) *Cache {
	ctx, cancel := context.WithCancel(context.Background())

	if config.Breaker == nil {
		config.Breaker = DefaultCircuitBreakerConfig()
	}

	metrics := NewMetricsRecorder()
	logger := log.With().Str("component", "catalog_cache").Logger()

	return &Cache{
		source:         source,
		config:         config,
		circuitBreaker: NewCircuitBreaker("catalog_cache", config.Breaker, metrics, &logger),
		warmupGate:     NewWarmupGate(&logger),
		metrics:        metrics,
		logger:         &logger,
		ctx:            ctx,
		cancel:         cancel,
	}
}

// Warmup performs the initial referential load and opens the gate.
func (c *Cache) Warmup(ctx context.Context) error {
	if err := c.Refresh(ctx); err != nil {
		return fmt.Errorf("failed to warm catalog cache: %w", err)
	}
	c.warmupGate.Ready()
	return nil
}

// Refresh reloads the referential. Concurrent callers share one load, and
// the circuit breaker rejects loads while the source is failing.
func (c *Cache) Refresh(ctx context.Context) error {
	if !c.circuitBreaker.Allow() {
		c.metrics.RecordLoad("rejected", 0)
		c.logger.Warn().
			Str("circuit_state", c.circuitBreaker.State().String()).
			Msg("Circuit breaker rejected catalog load")
		return fmt.Errorf("circuit breaker %s for catalog load", c.circuitBreaker.State())
	}

	_, err, _ := c.sf.Do(func() (*referentialSnapshot, error) {
		// Dedicated load context: cancellation of one request must not
		// fail the load for the callers sharing it.
		loadCtx, cancel := context.WithTimeout(context.Background(), c.config.LoadTimeout)
		defer cancel()

		snapshot, loadErr := c.loadSnapshot(loadCtx)
		if loadErr != nil {
			c.circuitBreaker.RecordFailure(loadErr)
			return nil, loadErr
		}
		c.circuitBreaker.RecordSuccess()

		c.snapshot.Store(snapshot)
		c.loadedAt.Store(time.Now())

		c.metrics.RecordSnapshot(len(snapshot.products), len(snapshot.delegateList), snapshot.estimatedSizeBytes)
		return snapshot, nil
	})
	return err
}

// StartRefreshLoop refreshes the cache every TTL plus a random jitter until
// the context is cancelled or the cache is closed.
func (c *Cache) StartRefreshLoop(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			interval := c.config.TTL
			if c.config.RefreshJitter > 0 {
				interval += time.Duration(rand.Int63n(int64(c.config.RefreshJitter)))
			}

			select {
			case <-ctx.Done():
				return
			case <-c.ctx.Done():
				return
			case <-time.After(interval):
				if err := c.Refresh(ctx); err != nil {
					c.logger.Error().Err(err).Msg("Scheduled catalog refresh failed")
				}
			}
		}
	}()
}

func (c *Cache) loadSnapshot(ctx context.Context) (*referentialSnapshot, error) {
	startTime := time.Now()

	products, delegates, err := c.source.Load(ctx)
	if err != nil {
		c.metrics.RecordLoad("failure", time.Since(startTime))
		return nil, fmt.Errorf("failed to load referential: %w", err)
	}

	snapshot := &referentialSnapshot{
		products:     make(map[string]*valorisation.CatalogProduct, len(products)),
		delegates:    make(map[string]*database.Delegate, len(delegates)),
		delegateList: delegates,
	}

	for i := range products {
		p := toEngineProduct(&products[i])
		snapshot.products[normalizeCode(products[i].Code)] = p
	}
	for i := range delegates {
		snapshot.delegates[valorisation.FoldKey(delegates[i].Name)] = &delegates[i]
	}
	snapshot.estimatedSizeBytes = estimateSnapshotSize(snapshot)

	duration := time.Since(startTime)
	c.metrics.RecordLoad("success", duration)
	c.logger.Info().
		Int("products", len(snapshot.products)).
		Int("delegates", len(snapshot.delegateList)).
		Dur("duration", duration).
		Msg("Loaded catalog snapshot")

	return snapshot, nil
}

// toEngineProduct maps a stored referential row onto the engine's view.
func toEngineProduct(row *database.CatalogProduct) *valorisation.CatalogProduct {
	return &valorisation.CatalogProduct{
		Code:                  row.Code,
		Label:                 row.Label,
		KwhCumac:              row.KwhCumac,
		MultiplierKey:         row.MultiplierKey,
		MultiplierLabel:       row.MultiplierLabel,
		MultiplierCoefficient: row.MultiplierCoefficient,
		Bonification:          row.Bonification,
	}
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (c *Cache) getSnapshot() *referentialSnapshot {
	val := c.snapshot.Load()
	if val == nil {
		return nil
	}
	return val.(*referentialSnapshot)
}

// Product returns the referential entry for an operation code.
// Matching ignores case and surrounding whitespace.
func (c *Cache) Product(code string) (*valorisation.CatalogProduct, bool) {
	snapshot := c.getSnapshot()
	if snapshot == nil {
		c.metrics.RecordLookup("product", false)
		return nil, false
	}

	product, ok := snapshot.products[normalizeCode(code)]
	c.metrics.RecordLookup("product", ok)
	return product, ok
}

// Delegate returns a delegate by name, folding case and accents.
func (c *Cache) Delegate(name string) (*database.Delegate, bool) {
	snapshot := c.getSnapshot()
	if snapshot == nil {
		c.metrics.RecordLookup("delegate", false)
		return nil, false
	}

	delegate, ok := snapshot.delegates[valorisation.FoldKey(name)]
	c.metrics.RecordLookup("delegate", ok)
	return delegate, ok
}

// Delegates returns the active delegates in referential order.
func (c *Cache) Delegates() []database.Delegate {
	snapshot := c.getSnapshot()
	if snapshot == nil {
		return nil
	}
	return snapshot.delegateList
}

// ProductCount returns the number of cached referential entries.
func (c *Cache) ProductCount() int {
	snapshot := c.getSnapshot()
	if snapshot == nil {
		return 0
	}
	return len(snapshot.products)
}

// Freshness describes the age and size of the current snapshot.
type Freshness struct {
	LoadedAt    int64 `json:"loaded_at"`
	IsStale     bool  `json:"is_stale"`
	Products    int   `json:"products"`
	Delegates   int   `json:"delegates"`
	EstimatedKB int64 `json:"estimated_kb"`
}

// GetFreshness reports the current snapshot state for health endpoints.
func (c *Cache) GetFreshness() Freshness {
	snapshot := c.getSnapshot()
	if snapshot == nil {
		return Freshness{IsStale: true}
	}

	var loadedAt time.Time
	if val := c.loadedAt.Load(); val != nil {
		loadedAt = val.(time.Time)
	}

	return Freshness{
		LoadedAt:    loadedAt.Unix(),
		IsStale:     time.Since(loadedAt) > c.config.TTL,
		Products:    len(snapshot.products),
		Delegates:   len(snapshot.delegateList),
		EstimatedKB: snapshot.estimatedSizeBytes / 1024,
	}
}

// IsHealthy reports whether the cache can serve compute requests.
func (c *Cache) IsHealthy() bool {
	if c.circuitBreaker.State() == CircuitOpen {
		c.logger.Debug().Msg("Cache unhealthy: circuit breaker is open")
		return false
	}
	if !c.warmupGate.IsReady() {
		c.logger.Debug().Msg("Cache unhealthy: warmup not complete")
		return false
	}
	if c.getSnapshot() == nil {
		c.logger.Debug().Msg("Cache unhealthy: no snapshot")
		return false
	}
	return true
}

// WaitForWarmup blocks until the first load completes or ctx is cancelled.
// Returns false if the context was cancelled first.
func (c *Cache) WaitForWarmup(ctx context.Context) bool {
	return c.warmupGate.Wait(ctx)
}

// GetCircuitBreakerState returns the current breaker state.
func (c *Cache) GetCircuitBreakerState() CircuitBreakerState {
	return c.circuitBreaker.State()
}

// ResetCircuitBreaker closes the breaker, for manual recovery.
func (c *Cache) ResetCircuitBreaker() {
	c.circuitBreaker.Reset()
}

// Close stops the refresh loop and waits for it.
func (c *Cache) Close() error {
	c.cancel()
	c.wg.Wait()
	return nil
}

// estimateSnapshotSize estimates the memory footprint of a snapshot in bytes.
func estimateSnapshotSize(s *referentialSnapshot) int64 {
	size := int64(0)

	size += int64(len(s.products)) * 64 // map overhead
	for code, product := range s.products {
		size += int64(len(code) + len(product.Label) + len(product.MultiplierKey) + len(product.MultiplierLabel))
		size += int64(len(product.KwhCumac)) * 48 // building type key + float64
		for buildingType := range product.KwhCumac {
			size += int64(len(buildingType))
		}
		size += 64 // struct and pointers
	}

	size += int64(len(s.delegates)) * 64
	for name := range s.delegates {
		size += int64(len(name)) + 64
	}
	size += int64(len(s.delegateList)) * 96

	return size
}
