package repo

import "time"

// Status de pagamento da cartela. O núcleo só lê; quem transita é o
// fluxo de pagamento (Pix), fora deste serviço.
const (
	PaymentPending  = "pending"
	PaymentPaid     = "paid"
	PaymentRejected = "rejected"
)

// Ticket é a cartela de palpites de um usuário em uma rodada.
type Ticket struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	RoundID       string     `json:"round_id"`
	PaymentStatus string     `json:"payment_status"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// TicketBet é um palpite da cartela, um por jogo da rodada.
// Points fica nulo até a liquidação do jogo gravar a pontuação.
type TicketBet struct {
	ID               string     `json:"id"`
	TicketID         string     `json:"ticket_id"`
	MatchID          string     `json:"match_id"`
	PredictedOutcome string     `json:"predicted_outcome"`
	PredictedHome    *int       `json:"predicted_home,omitempty"`
	PredictedAway    *int       `json:"predicted_away,omitempty"`
	Points           *int       `json:"points"`
	SettledAt        *time.Time `json:"settled_at,omitempty"`
}

// RoundMatch é a visão de um jogo para a tela de apostas, com nomes dos times.
type RoundMatch struct {
	ID           string     `json:"id"`
	RoundID      string     `json:"round_id"`
	HomeTeamID   string     `json:"home_team_id"`
	HomeTeamName string     `json:"home_team_name"`
	AwayTeamID   string     `json:"away_team_id"`
	AwayTeamName string     `json:"away_team_name"`
	ScheduledAt  time.Time  `json:"scheduled_at"`
	Status       string     `json:"status"`
	HomeScore    *int       `json:"home_score,omitempty"`
	AwayScore    *int       `json:"away_score,omitempty"`
}
