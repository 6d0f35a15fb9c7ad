package ws

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ChangedMsg é o aviso publicado pelo serviço de liquidação quando os
// pontos de uma competição mudam.
type ChangedMsg struct {
	CompetitionID string `json:"competitionId"`
}

// RefreshFunc recarrega o ranking de uma competição e devolve o payload
// que vai no snapshot enviado aos clientes.
type RefreshFunc func(ctx context.Context, competitionID string) (any, error)

// StartRedisSubscriber inicia uma goroutine que escuta o canal Redis
// Pub/Sub de mudanças de ranking e repassa snapshots para os clientes
// WebSocket conectados via Hub
//
// Funcionamento:
// - Recebe avisos JSON do canal Redis (competição afetada)
// - Recarrega o ranking via refresh se houver clientes inscritos
// - Chama hub.Broadcast com o snapshot atualizado
func StartRedisSubscriber(ctx context.Context, log *zap.Logger, r *redis.Client, channel string, hub *Hub, refresh RefreshFunc) {
	sub := r.Subscribe(ctx, channel)
	ch := sub.Channel()
	go func() {
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case msg := <-ch:
				if msg == nil {
					continue
				}
				var changed ChangedMsg
				if err := json.Unmarshal([]byte(msg.Payload), &changed); err != nil {
					log.Warn("ws subscriber unmarshal", zap.Error(err))
					continue
				}
				if !hub.HasSubscribers(changed.CompetitionID) {
					continue
				}
				payload, err := refresh(ctx, changed.CompetitionID)
				if err != nil {
					log.Warn("ranking refresh", zap.String("competition", changed.CompetitionID), zap.Error(err))
					continue
				}
				hub.Broadcast(RankingUpdate{CompetitionID: changed.CompetitionID, Payload: payload})
			}
		}
	}()
}
