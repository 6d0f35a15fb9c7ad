package events

import "time"

// Resultado de uma cartela dentro da rodada liquidada.
type HolderResult struct {
	UserID     string `json:"user_id"`
	TicketID   string `json:"ticket_id"`
	Points     int    `json:"points"`
	Winner     bool   `json:"winner"`
	PrizeCents int64  `json:"prize_cents"` // 0 para não vencedores
}

// Evento publicado no tópico "round_settled" quando a rodada inteira é
// liquidada e a premiação já foi calculada. O notification-worker consome
// este evento para gerar as notificações de cada participante.
type RoundSettled struct {
	RoundID        string         `json:"round_id"`
	RoundName      string         `json:"round_name"`
	CompetitionID  string         `json:"competition_id"`
	TopScore       int            `json:"top_score"`
	PoolCents      int64          `json:"pool_cents"`
	TotalWinners   int            `json:"total_winners"`
	PerWinnerCents int64          `json:"per_winner_cents"` // cota base; resto distribuído centavo a centavo
	Holders        []HolderResult `json:"holders"`
	Ts             time.Time      `json:"ts"`
}
