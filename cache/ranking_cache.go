package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/poker-league/models"
	"github.com/redis/go-redis/v9"
)

// RedisRankingCache memoizes computed ranking tables in redis. It is a pure
// memoization layer: entries are written whole by the compute path and
// dropped whole by the elimination write path, never patched in place. Every
// cache failure degrades to a miss — the ranking read path must not fail
// because redis is down.
type RedisRankingCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisRankingCache(addr, password string, ttl time.Duration, logger *slog.Logger) (*RedisRankingCache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	return &RedisRankingCache{client: client, ttl: ttl, logger: logger}, nil
}

func rankingKey(tournamentID int) string {
	return fmt.Sprintf("ranking:%d", tournamentID)
}

func (c *RedisRankingCache) Get(ctx context.Context, tournamentID int) ([]models.RankingRow, bool) {
	data, err := c.client.Get(ctx, rankingKey(tournamentID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("ranking cache read failed", slog.Any("error", err))
		}
		return nil, false
	}

	var rows []models.RankingRow
	if err := json.Unmarshal(data, &rows); err != nil {
		c.logger.Warn("ranking cache entry corrupt, dropping",
			slog.Int("tournament_id", tournamentID), slog.Any("error", err))
		c.Invalidate(ctx, tournamentID)
		return nil, false
	}
	return rows, true
}

func (c *RedisRankingCache) Set(ctx context.Context, tournamentID int, rows []models.RankingRow) {
	data, err := json.Marshal(rows)
	if err != nil {
		c.logger.Warn("ranking cache marshal failed", slog.Any("error", err))
		return
	}
	if err := c.client.Set(ctx, rankingKey(tournamentID), data, c.ttl).Err(); err != nil {
		c.logger.Warn("ranking cache write failed", slog.Any("error", err))
	}
}

func (c *RedisRankingCache) Invalidate(ctx context.Context, tournamentID int) {
	if err := c.client.Del(ctx, rankingKey(tournamentID)).Err(); err != nil {
		c.logger.Warn("ranking cache invalidation failed",
			slog.Int("tournament_id", tournamentID), slog.Any("error", err))
	}
}

func (c *RedisRankingCache) Close() error {
	return c.client.Close()
}
