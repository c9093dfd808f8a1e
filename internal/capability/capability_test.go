package capability

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/tradepress/internal/contracts"
	"github.com/wonny/tradepress/pkg/cache"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// countingStore counts writes to the wrapped store
type countingStore struct {
	contracts.CacheStore
	sets atomic.Int32
}

func (s *countingStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	s.sets.Add(1)
	return s.CacheStore.Set(ctx, key, value, ttl)
}

// failingStore fails every operation
type failingStore struct{}

var errStoreDown = errors.New("store unavailable")

func (failingStore) Get(context.Context, string, interface{}) (bool, error) { return false, errStoreDown }
func (failingStore) Set(context.Context, string, interface{}, time.Duration) error {
	return errStoreDown
}
func (failingStore) Delete(context.Context, string) error { return errStoreDown }

func newTestService(clock *fakeClock, ttl time.Duration) (*Service, *countingStore) {
	store := &countingStore{CacheStore: cache.NewMemoryStore(cache.WithClock(clock.Now))}
	return NewService(store, ttl, nil, WithClock(clock.Now)), store
}

func TestBuild_DefaultTable(t *testing.T) {
	now := time.Now()
	m, err := Build(DefaultProviders(), DefaultFreshness(), now)
	require.NoError(t, err)

	assert.Len(t, m.Platforms, 20)
	assert.Len(t, m.DataTypes, 12)
	assert.Equal(t, now, m.BuiltAt)

	for provider, types := range m.Platforms {
		assert.True(t, sort.StringsAreSorted(types), provider)
		for _, dt := range types {
			assert.Contains(t, m.DataTypes[dt].Platforms, provider, "reverse index for %s/%s", provider, dt)
		}
	}
	for dt, info := range m.DataTypes {
		assert.Positive(t, info.FreshnessSeconds, dt)
		assert.True(t, sort.StringsAreSorted(info.Platforms), dt)
		assert.NotEmpty(t, info.Platforms, "every data type has a provider: %s", dt)
	}
}

func TestBuild_Invalid(t *testing.T) {
	now := time.Now()

	_, err := Build(map[string][]string{"acme": {"telepathy"}}, DefaultFreshness(), now)
	require.Error(t, err)
	assert.True(t, errors.Is(err, contracts.ErrMatrixBuild))

	var buildErr *contracts.MatrixBuildError
	require.ErrorAs(t, err, &buildErr)
	assert.Contains(t, buildErr.Reason, "telepathy")

	_, err = Build(map[string][]string{"acme": {DataQuote}}, map[string]int{DataQuote: 0}, now)
	assert.ErrorIs(t, err, contracts.ErrMatrixBuild)

	_, err = Build(nil, DefaultFreshness(), now)
	assert.ErrorIs(t, err, contracts.ErrMatrixBuild)
}

func TestBuild_DuplicateTypes(t *testing.T) {
	m, err := Build(map[string][]string{"acme": {DataQuote, DataQuote}}, DefaultFreshness(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, []string{DataQuote}, m.Platforms["acme"])
	assert.Equal(t, []string{"acme"}, m.DataTypes[DataQuote].Platforms)
}

func TestService_TTL(t *testing.T) {
	clock := newFakeClock()
	svc, store := newTestService(clock, time.Hour)
	ctx := context.Background()

	assert.False(t, svc.CacheStatus(ctx).Cached, "nothing built yet")

	first := svc.Matrix(ctx)
	built := clock.Now()

	clock.Advance(30 * time.Minute)
	second := svc.Matrix(ctx)
	assert.Equal(t, first, second, "within TTL the cached matrix is returned")
	assert.EqualValues(t, 1, store.sets.Load())

	status := svc.CacheStatus(ctx)
	assert.True(t, status.Cached)
	assert.Equal(t, built, status.LastUpdated)
	assert.Equal(t, built.Add(time.Hour), status.Expires)

	clock.Advance(31 * time.Minute)
	third := svc.Matrix(ctx)
	assert.True(t, third.BuiltAt.After(first.BuiltAt), "expired matrix is rebuilt")
	assert.EqualValues(t, 2, store.sets.Load())
	assert.Equal(t, first.Platforms, third.Platforms)

	assert.Equal(t, third.BuiltAt, svc.CacheStatus(ctx).LastUpdated)
}

func TestService_Invalidate(t *testing.T) {
	clock := newFakeClock()
	svc, store := newTestService(clock, time.Hour)
	ctx := context.Background()

	svc.Matrix(ctx)
	require.True(t, svc.CacheStatus(ctx).Cached)

	require.NoError(t, svc.Invalidate(ctx))
	assert.False(t, svc.CacheStatus(ctx).Cached)

	svc.Matrix(ctx)
	assert.EqualValues(t, 2, store.sets.Load())
}

func TestService_Refresh(t *testing.T) {
	clock := newFakeClock()
	svc, store := newTestService(clock, time.Hour)
	ctx := context.Background()

	svc.Matrix(ctx)
	clock.Advance(time.Minute)

	m, err := svc.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, clock.Now(), m.BuiltAt)
	assert.EqualValues(t, 2, store.sets.Load())
}

func TestService_Lookups(t *testing.T) {
	svc, _ := newTestService(newFakeClock(), time.Hour)
	ctx := context.Background()

	platforms := svc.PlatformsForDataType(ctx, DataShortInterest)
	assert.Equal(t, []string{"nasdaq_data_link", "polygon", "yahoo_finance"}, platforms)
	assert.Equal(t, []string{}, svc.PlatformsForDataType(ctx, "telepathy"))

	assert.True(t, svc.PlatformSupports(ctx, "polygon", DataShortInterest))
	assert.False(t, svc.PlatformSupports(ctx, "fred", DataQuote))
	assert.False(t, svc.PlatformSupports(ctx, "unknown", DataQuote))

	assert.Equal(t, time.Minute, svc.FreshnessRequirement(ctx, DataQuote))
	assert.Equal(t, 7*24*time.Hour, svc.FreshnessRequirement(ctx, DataFundamentals))
	assert.Equal(t, DefaultFreshnessRequirement, svc.FreshnessRequirement(ctx, "telepathy"))
}

func TestService_LookupResultIsCopy(t *testing.T) {
	svc, _ := newTestService(newFakeClock(), time.Hour)
	ctx := context.Background()

	platforms := svc.PlatformsForDataType(ctx, DataQuote)
	platforms[0] = "mutated"

	assert.NotContains(t, svc.PlatformsForDataType(ctx, DataQuote), "mutated")
}

func TestService_StoreFailureDegrades(t *testing.T) {
	clock := newFakeClock()
	svc := NewService(failingStore{}, time.Hour, nil, WithClock(clock.Now))
	ctx := context.Background()

	first := svc.Matrix(ctx)
	assert.False(t, first.IsEmpty())

	clock.Advance(time.Second)
	second := svc.Matrix(ctx)
	assert.False(t, second.IsEmpty())
	assert.True(t, second.BuiltAt.After(first.BuiltAt), "no cache means every call rebuilds")

	assert.False(t, svc.CacheStatus(ctx).Cached)
	assert.Error(t, svc.Invalidate(ctx))
	assert.True(t, svc.PlatformSupports(ctx, "polygon", DataQuote))
}

func TestService_NilStore(t *testing.T) {
	svc := NewService(nil, 0, nil)
	ctx := context.Background()

	assert.Equal(t, DefaultTTL, svc.TTL())
	assert.False(t, svc.Matrix(ctx).IsEmpty())
	assert.NoError(t, svc.Invalidate(ctx))
}

func TestService_BuildFailureYieldsEmptyMatrix(t *testing.T) {
	svc := NewService(cache.NewMemoryStore(), time.Hour, nil,
		WithTable(map[string][]string{"acme": {"telepathy"}}, DefaultFreshness()))
	ctx := context.Background()

	m := svc.Matrix(ctx)
	require.NotNil(t, m)
	assert.True(t, m.IsEmpty())
	assert.False(t, svc.CacheStatus(ctx).Cached, "failed builds are not cached")

	assert.Empty(t, svc.PlatformsForDataType(ctx, DataQuote))
	assert.False(t, svc.PlatformSupports(ctx, "acme", DataQuote))
	assert.Equal(t, DefaultFreshnessRequirement, svc.FreshnessRequirement(ctx, DataQuote))

	_, err := svc.Refresh(ctx)
	assert.ErrorIs(t, err, contracts.ErrMatrixBuild)
}

func TestService_ConcurrentBuildOnce(t *testing.T) {
	svc, store := newTestService(newFakeClock(), time.Hour)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.Matrix(ctx)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, store.sets.Load())
}
