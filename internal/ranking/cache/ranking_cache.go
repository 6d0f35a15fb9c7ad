package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache struct{ R *redis.Client }

func New(r *redis.Client) *Cache { return &Cache{R: r} }

func key(competitionID, roundID string) string {
	if roundID != "" {
		return "ranking:round:" + roundID
	}
	if competitionID == "" {
		return "ranking:global"
	}
	return "ranking:competition:" + competitionID
}

func (c *Cache) GetRanking(ctx context.Context, competitionID, roundID string, dst any) (bool, error) {
	b, err := c.R.Get(ctx, key(competitionID, roundID)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(b, dst)
}

func (c *Cache) SetRanking(ctx context.Context, competitionID, roundID string, v any, ttl time.Duration) error {
	b, _ := json.Marshal(v)
	return c.R.Set(ctx, key(competitionID, roundID), b, ttl).Err()
}

// Invalidate remove os snapshots afetados por uma liquidação: o da
// competição, o geral e os de rodada. Sem isso os snapshots antigos
// valeriam até o TTL expirar.
func (c *Cache) Invalidate(ctx context.Context, competitionID string) error {
	keys := []string{key("", ""), key(competitionID, "")}
	iter := c.R.Scan(ctx, 0, "ranking:round:*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	return c.R.Del(ctx, keys...).Err()
}
