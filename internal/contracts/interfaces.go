package contracts

import (
	"context"
	"time"
)

// CacheStore is the opaque TTL key/value primitive used by the capability
// matrix. Implemented by pkg/redis.Cache and pkg/cache.MemoryStore.
type CacheStore interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// RankingRun is a persisted ranking pass
type RankingRun struct {
	ID        string                 `json:"id"`
	CreatedAt time.Time              `json:"created_at"`
	Results   []CompositeScoreResult `json:"results"`
}

// RankingRepository persists ranking runs and directive evaluations
type RankingRepository interface {
	SaveRanking(ctx context.Context, results []CompositeScoreResult) (string, error)
	LatestRanking(ctx context.Context, limit int) (*RankingRun, error)
	SaveDirectiveResult(ctx context.Context, symbol string, result DirectiveResult) error
	DirectiveHistory(ctx context.Context, symbol, code string, limit int) ([]DirectiveResult, error)
}
