package dto

// BetEntry é um palpite da grade: resultado obrigatório, placar exato
// opcional (vale bônus quando acerta na mosca).
type BetEntry struct {
	MatchID   string `json:"match_id" validate:"required"`
	Outcome   string `json:"outcome" validate:"required,oneof=HOME DRAW AWAY"`
	HomeScore *int   `json:"home_score,omitempty" validate:"omitempty,min=0"`
	AwayScore *int   `json:"away_score,omitempty" validate:"omitempty,min=0"`
}

// CreateTicketRequest compra a cartela da rodada com a grade completa.
type CreateTicketRequest struct {
	RoundID string     `json:"round_id" validate:"required"`
	Bets    []BetEntry `json:"bets" validate:"required,min=1,dive"`
}

// MarkReadRequest marca uma notificação como lida.
type MarkReadRequest struct {
	NotificationID string `json:"notification_id" validate:"required"`
}
