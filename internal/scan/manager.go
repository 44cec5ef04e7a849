package scan

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	customerrors "github.com/devfinder/devfinder/internal/errors"
	"github.com/devfinder/devfinder/internal/metrics"
)

const (
	cacheSize       = 8
	defaultCacheTTL = 30 * time.Second
)

// Manager coordinates scan strategies. Per-method results are cached
// with a TTL so rapid re-scans from the dashboard stay cheap.
type Manager struct {
	mu         sync.RWMutex
	strategies map[Method][]Strategy
	merger     Merger
	decorators []Decorator
	cache      *expirable.LRU[Method, []*Result]
}

// NewManager creates a scan manager. cacheTTL <= 0 falls back to the
// default; caching cannot be disabled, only shortened.
func NewManager(cacheTTL time.Duration) *Manager {
	if cacheTTL <= 0 {
		cacheTTL = defaultCacheTTL
	}

	return &Manager{
		strategies: make(map[Method][]Strategy),
		merger:     NewDefaultMerger(),
		cache:      expirable.NewLRU[Method, []*Result](cacheSize, nil, cacheTTL),
	}
}

// AddStrategy registers a discovery strategy for its method.
func (m *Manager) AddStrategy(strategy Strategy) {
	m.mu.Lock()
	defer m.mu.Unlock()

	method := strategy.Method()
	m.strategies[method] = append(m.strategies[method], strategy)

	sort.SliceStable(m.strategies[method], func(i, j int) bool {
		return m.strategies[method][i].Priority() > m.strategies[method][j].Priority()
	})
}

// AddDecorator registers a result decorator applied after merging.
func (m *Manager) AddDecorator(decorator Decorator) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.decorators = append(m.decorators, decorator)
}

// SetMerger replaces the merger.
func (m *Manager) SetMerger(merger Merger) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.merger = merger
}

// Scan runs discovery for one method. The highest-priority available
// strategy wins; lower-priority ones only run when it finds nothing.
func (m *Manager) Scan(ctx context.Context, method Method) ([]*Result, error) {
	logger := zerolog.Ctx(ctx)

	if cached, ok := m.cache.Get(method); ok {
		metrics.RecordScanCacheHit()

		logger.Debug().Str("method", string(method)).Int("results", len(cached)).Msg("scan cache hit")

		return cached, nil
	}

	m.mu.RLock()
	strategies := m.strategies[method]
	merger := m.merger
	decorators := m.decorators
	m.mu.RUnlock()

	if len(strategies) == 0 {
		return nil, customerrors.ErrUnknownScanMethod
	}

	if merger == nil {
		return nil, customerrors.ErrMergerNotSet
	}

	metrics.RecordScanCacheMiss()

	var results []*Result

	ran := false

	for _, strategy := range strategies {
		if !strategy.IsAvailable(ctx) {
			continue
		}

		ran = true

		found, err := strategy.Discover(ctx)
		if err != nil {
			logger.Warn().
				Err(err).
				Str("strategy", strategy.Name()).
				Msg("scan strategy failed")

			continue
		}

		results = append(results, found...)

		if len(results) > 0 {
			break
		}
	}

	if !ran {
		return nil, customerrors.ErrScanUnavailable
	}

	results = merger.Merge(results)

	for _, decorator := range decorators {
		decorated, err := decorator.Decorate(ctx, results)
		if err != nil {
			logger.Warn().Err(err).Msg("scan decorator failed")

			continue
		}

		results = decorated
	}

	m.cache.Add(method, results)

	return results, nil
}

// ScanAll fans out over every registered method concurrently and
// returns the per-method results. A method with no available strategy
// is skipped rather than failing the whole scan.
func (m *Manager) ScanAll(ctx context.Context) (map[Method][]*Result, error) {
	m.mu.RLock()

	methods := make([]Method, 0, len(m.strategies))
	for method := range m.strategies {
		methods = append(methods, method)
	}

	m.mu.RUnlock()

	var (
		outMu sync.Mutex
		out   = make(map[Method][]*Result, len(methods))
	)

	g, gctx := errgroup.WithContext(ctx)

	for _, method := range methods {
		g.Go(func() error {
			results, err := m.Scan(gctx, method)
			if err != nil {
				zerolog.Ctx(gctx).Debug().
					Err(err).
					Str("method", string(method)).
					Msg("scan skipped")

				return nil
			}

			outMu.Lock()
			out[method] = results
			outMu.Unlock()

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}

// Invalidate drops the cached results for a method. An empty method
// drops everything.
func (m *Manager) Invalidate(method Method) {
	if method == "" {
		m.cache.Purge()

		return
	}

	m.cache.Remove(method)
}

// PairedBluetooth returns only paired Bluetooth devices, bypassing the
// scan cache.
func (m *Manager) PairedBluetooth(ctx context.Context) ([]*Result, error) {
	m.mu.RLock()
	strategies := m.strategies[MethodBluetooth]
	m.mu.RUnlock()

	for _, strategy := range strategies {
		if !strategy.IsAvailable(ctx) {
			continue
		}

		switch s := strategy.(type) {
		case *BluetoothStrategy:
			return s.ListPaired(ctx)
		case *SimulatedStrategy:
			results, err := s.Discover(ctx)
			if err != nil {
				return nil, err
			}

			paired := []*Result{}

			for _, r := range results {
				if r.Paired {
					paired = append(paired, r)
				}
			}

			return paired, nil
		}
	}

	return nil, customerrors.ErrScanUnavailable
}
