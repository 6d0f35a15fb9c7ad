package dto

import (
	"github.com/bolaofpt/bolao-core/internal/notify"
	"github.com/bolaofpt/bolao-core/internal/ticket-service/repo"
)

type CreateTicketResponse struct {
	TicketID      string `json:"ticket_id"`
	PaymentStatus string `json:"payment_status"`
	PriceCents    int64  `json:"price_cents"`
}

type TicketResponse struct {
	Ticket repo.Ticket      `json:"ticket"`
	Bets   []repo.TicketBet `json:"bets"`
}

type RoundResponse struct {
	ID               string `json:"id"`
	CompetitionID    string `json:"competition_id"`
	Number           int    `json:"number"`
	Name             string `json:"name"`
	Status           string `json:"status"`
	BetsDeadline     string `json:"bets_deadline"`
	TicketPriceCents int64  `json:"ticket_price_cents"`
}

type NotificationsResponse struct {
	Notifications []notify.Notification `json:"notifications"`
	UnreadCount   int                   `json:"unread_count"`
}
