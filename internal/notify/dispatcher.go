package notify

import (
	"fmt"
	"time"

	ev "github.com/bolaofpt/bolao-core/pkg/contracts/events"
)

// Tipos de notificação conhecidos pelo app.
const (
	TypeRoundSettled = "round_settled"
	TypePrizeWon     = "prize_won"
)

// Notification é o registro entregue ao usuário no sino do app.
type Notification struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data"`
	IsRead    bool           `json:"is_read"`
	CreatedAt time.Time      `json:"created_at"`
}

// FromRoundSettled monta as notificações de uma rodada liquidada:
// um round_settled para cada participante e um prize_won adicional
// para cada vencedor. Determinístico em relação ao evento de entrada.
// O valor exato do prêmio (com o resto da divisão) só aparece no
// prize_won, via PrizeCents de cada vencedor; o round_settled carrega
// o pool total, que não depende de arredondamento.
func FromRoundSettled(e ev.RoundSettled) []Notification {
	out := make([]Notification, 0, len(e.Holders)+e.TotalWinners)

	for _, h := range e.Holders {
		out = append(out, Notification{
			UserID:  h.UserID,
			Type:    TypeRoundSettled,
			Title:   fmt.Sprintf("Rodada %s encerrada", e.RoundName),
			Message: fmt.Sprintf("A %s foi encerrada. Maior pontuação: %d pontos.", e.RoundName, e.TopScore),
			Data: map[string]any{
				"round_id":      e.RoundID,
				"total_winners": e.TotalWinners,
				"pool_cents":    e.PoolCents,
				"user_points":   h.Points,
			},
		})
	}

	for _, h := range e.Holders {
		if !h.Winner {
			continue
		}
		out = append(out, Notification{
			UserID:  h.UserID,
			Type:    TypePrizeWon,
			Title:   "Parabéns, você venceu!",
			Message: fmt.Sprintf("Você fez %d pontos e venceu a %s. Prêmio: R$ %.2f.", h.Points, e.RoundName, float64(h.PrizeCents)/100),
			Data: map[string]any{
				"round_id":           e.RoundID,
				"total_winners":      e.TotalWinners,
				"prize_amount_cents": h.PrizeCents,
				"user_points":        h.Points,
			},
		})
	}

	return out
}
