package producer

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

// RedisBroadcaster avisa o ranking-service (via Pub/Sub) que a classificação
// de uma competição mudou. O assinante recalcula e empurra pro WebSocket.
type RedisBroadcaster struct {
	r       *redis.Client
	channel string
}

func NewRedisBroadcaster(r *redis.Client, channel string) *RedisBroadcaster {
	return &RedisBroadcaster{r: r, channel: channel}
}

// Payload publicado no canal de broadcast do ranking.
type RankingChangedMsg struct {
	CompetitionID string `json:"competitionId"`
}

func (b *RedisBroadcaster) RankingChanged(ctx context.Context, competitionID string) error {
	payload, _ := json.Marshal(RankingChangedMsg{CompetitionID: competitionID})
	return b.r.Publish(ctx, b.channel, payload).Err()
}
