package capability

import (
	"context"
	"sync"
	"time"

	"github.com/wonny/tradepress/internal/contracts"
	"github.com/wonny/tradepress/pkg/logger"
	"github.com/wonny/tradepress/pkg/metrics"
)

// DefaultFreshnessRequirement applies to data types missing from the matrix
const DefaultFreshnessRequirement = time.Hour

// DefaultTTL is the matrix cache lifetime when none is configured
const DefaultTTL = 24 * time.Hour

// CacheKey is the single key the whole matrix is stored under
const CacheKey = "capability:matrix"

// cachedMatrix is the stored cache entry
type cachedMatrix struct {
	Matrix  contracts.CapabilityMatrix `json:"matrix"`
	Expires time.Time                  `json:"expires"`
}

// Service serves the capability matrix, building it once per TTL
// ⭐ SSOT: 제공자 역량 조회는 이 서비스를 통해서만
type Service struct {
	mu        sync.Mutex
	store     contracts.CacheStore
	ttl       time.Duration
	clock     func() time.Time
	providers map[string][]string
	freshness map[string]int
	logger    *logger.Logger
	metrics   *metrics.Recorder
}

// Option customises a Service
type Option func(*Service)

// WithClock overrides the time source
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// WithTable replaces the static provider and freshness tables
func WithTable(providers map[string][]string, freshness map[string]int) Option {
	return func(s *Service) {
		s.providers = providers
		s.freshness = freshness
	}
}

// WithMetrics attaches a metrics recorder
func WithMetrics(m *metrics.Recorder) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService creates a capability service. store may be nil, in which case
// every call rebuilds. ttl <= 0 uses DefaultTTL.
func NewService(store contracts.CacheStore, ttl time.Duration, log *logger.Logger, opts ...Option) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = logger.Nop()
	}

	s := &Service{
		store:     store,
		ttl:       ttl,
		clock:     time.Now,
		providers: DefaultProviders(),
		freshness: DefaultFreshness(),
		logger:    log.WithComponent("capability"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// TTL returns the cache lifetime
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Matrix returns the cached matrix, rebuilding it when absent or expired.
// A build failure yields an empty matrix.
func (s *Service) Matrix(ctx context.Context) *contracts.CapabilityMatrix {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.load(ctx); ok {
		s.metrics.RecordCapabilityCache(metrics.CacheHit)
		m := entry.Matrix
		return &m
	}
	s.metrics.RecordCapabilityCache(metrics.CacheMiss)

	return s.rebuild(ctx)
}

// rebuild builds and stores the matrix; caller holds s.mu
func (s *Service) rebuild(ctx context.Context) *contracts.CapabilityMatrix {
	now := s.clock()

	m, err := Build(s.providers, s.freshness, now)
	if err != nil {
		s.metrics.RecordCapabilityCache(metrics.CacheError)
		s.logger.WithError(err).Error("Capability matrix build failed, serving empty matrix")
		return emptyMatrix(now)
	}
	s.metrics.RecordCapabilityCache(metrics.CacheRebuild)

	if s.store != nil {
		entry := cachedMatrix{Matrix: *m, Expires: now.Add(s.ttl)}
		if err := s.store.Set(ctx, CacheKey, entry, s.ttl); err != nil {
			s.metrics.RecordCapabilityCache(metrics.CacheError)
			s.logger.WithError(err).Warn("Failed to store capability matrix")
		}
	}

	s.logger.WithFields(map[string]interface{}{
		"platforms":  len(m.Platforms),
		"data_types": len(m.DataTypes),
		"ttl":        s.ttl.String(),
	}).Info("Capability matrix built")

	return m
}

// load reads a live entry from the store; read errors count as a miss
func (s *Service) load(ctx context.Context) (cachedMatrix, bool) {
	var entry cachedMatrix
	if s.store == nil {
		return entry, false
	}

	found, err := s.store.Get(ctx, CacheKey, &entry)
	if err != nil {
		s.metrics.RecordCapabilityCache(metrics.CacheError)
		s.logger.WithError(err).Warn("Failed to read capability matrix cache")
		return entry, false
	}
	if !found || !s.clock().Before(entry.Expires) {
		return entry, false
	}
	return entry, true
}

// CacheStatus reports whether a live matrix is cached. It never builds.
func (s *Service) CacheStatus(ctx context.Context) contracts.CacheStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.load(ctx)
	if !ok {
		return contracts.CacheStatus{Cached: false}
	}
	return contracts.CacheStatus{
		Cached:      true,
		LastUpdated: entry.Matrix.BuiltAt,
		Expires:     entry.Expires,
	}
}

// Invalidate drops the cached matrix as a whole
func (s *Service) Invalidate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store == nil {
		return nil
	}
	if err := s.store.Delete(ctx, CacheKey); err != nil {
		s.metrics.RecordCapabilityCache(metrics.CacheError)
		return err
	}

	s.logger.Info("Capability matrix cache invalidated")
	return nil
}

// Refresh invalidates and rebuilds the matrix
func (s *Service) Refresh(ctx context.Context) (*contracts.CapabilityMatrix, error) {
	if err := s.Invalidate(ctx); err != nil {
		s.logger.WithError(err).Warn("Invalidate failed during refresh, rebuilding anyway")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.rebuild(ctx)
	if m.IsEmpty() {
		return m, &contracts.MatrixBuildError{Reason: "refresh produced an empty matrix"}
	}
	return m, nil
}

// PlatformsForDataType lists providers supplying dataType (sorted).
// Unknown types yield an empty list.
func (s *Service) PlatformsForDataType(ctx context.Context, dataType string) []string {
	info, ok := s.Matrix(ctx).DataTypes[dataType]
	if !ok {
		return []string{}
	}
	out := make([]string, len(info.Platforms))
	copy(out, info.Platforms)
	return out
}

// PlatformSupports reports whether provider supplies dataType
func (s *Service) PlatformSupports(ctx context.Context, provider, dataType string) bool {
	for _, t := range s.Matrix(ctx).Platforms[provider] {
		if t == dataType {
			return true
		}
	}
	return false
}

// FreshnessRequirement returns the maximum data age for dataType
func (s *Service) FreshnessRequirement(ctx context.Context, dataType string) time.Duration {
	info, ok := s.Matrix(ctx).DataTypes[dataType]
	if !ok || info.FreshnessSeconds <= 0 {
		return DefaultFreshnessRequirement
	}
	return time.Duration(info.FreshnessSeconds) * time.Second
}
