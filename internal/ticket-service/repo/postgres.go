package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bolaofpt/bolao-core/internal/rounds"
)

var (
	ErrRoundNotFound  = errors.New("round not found")
	ErrTicketNotFound = errors.New("ticket not found")
	// ErrTicketExists indica que o usuário já tem cartela nesta rodada
	ErrTicketExists = errors.New("ticket already exists for user and round")
	// ErrIncompleteSheet indica palpites faltando ou sobrando em relação aos jogos da rodada
	ErrIncompleteSheet = errors.New("bet sheet must cover every match of the round exactly once")
)

// Postgres implementa a persistência de cartelas e palpites
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// ActiveRound retorna a rodada com apostas abertas, se houver.
func (p *Postgres) ActiveRound(ctx context.Context) (*rounds.Round, error) {
	const q = `
		SELECT id, competition_id, round_number, name, start_date, end_date,
		       bets_deadline, ticket_price_cents, status, created_at
		FROM rounds
		WHERE status = 'active'
		ORDER BY start_date
		LIMIT 1;
	`
	r, err := scanRound(p.db.QueryRowContext(ctx, q))
	if err == sql.ErrNoRows {
		return nil, ErrRoundNotFound
	}
	return r, err
}

func (p *Postgres) GetRound(ctx context.Context, roundID string) (*rounds.Round, error) {
	const q = `
		SELECT id, competition_id, round_number, name, start_date, end_date,
		       bets_deadline, ticket_price_cents, status, created_at
		FROM rounds
		WHERE id = $1;
	`
	r, err := scanRound(p.db.QueryRowContext(ctx, q, roundID))
	if err == sql.ErrNoRows {
		return nil, ErrRoundNotFound
	}
	return r, err
}

func scanRound(row *sql.Row) (*rounds.Round, error) {
	var r rounds.Round
	err := row.Scan(&r.ID, &r.CompetitionID, &r.Number, &r.Name, &r.StartDate,
		&r.EndDate, &r.BetsDeadline, &r.TicketPriceCents, &r.Status, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListRoundMatches retorna os jogos da rodada com os nomes dos times.
func (p *Postgres) ListRoundMatches(ctx context.Context, roundID string) ([]RoundMatch, error) {
	const q = `
		SELECT m.id, m.round_id, m.home_team_id, ht.name, m.away_team_id, aw.name,
		       m.scheduled_at, m.status, m.home_score, m.away_score
		FROM matches m
		JOIN teams ht ON ht.id = m.home_team_id
		JOIN teams aw ON aw.id = m.away_team_id
		WHERE m.round_id = $1
		ORDER BY m.scheduled_at, m.id;
	`
	rows, err := p.db.QueryContext(ctx, q, roundID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RoundMatch
	for rows.Next() {
		var m RoundMatch
		if err := rows.Scan(&m.ID, &m.RoundID, &m.HomeTeamID, &m.HomeTeamName,
			&m.AwayTeamID, &m.AwayTeamName, &m.ScheduledAt, &m.Status,
			&m.HomeScore, &m.AwayScore); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CreateWithBets cria a cartela pending com a grade completa de palpites
// em uma transação. Regras checadas dentro da transação:
//   - janela de apostas aberta (status active e antes do deadline)
//   - uma cartela por usuário por rodada
//   - exatamente um palpite por jogo da rodada
func (p *Postgres) CreateWithBets(ctx context.Context, userID, roundID string, bets []TicketBet) (string, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	const roundQ = `
		SELECT id, competition_id, round_number, name, start_date, end_date,
		       bets_deadline, ticket_price_cents, status, created_at
		FROM rounds
		WHERE id = $1
		FOR SHARE;
	`
	r, err := scanRound(tx.QueryRowContext(ctx, roundQ, roundID))
	if err == sql.ErrNoRows {
		return "", ErrRoundNotFound
	}
	if err != nil {
		return "", err
	}
	if !r.BettingOpen(time.Now()) {
		return "", rounds.ErrBettingClosed
	}

	var existing int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tickets WHERE user_id = $1 AND round_id = $2`,
		userID, roundID).Scan(&existing); err != nil {
		return "", err
	}
	if existing > 0 {
		return "", ErrTicketExists
	}

	// Grade completa: um palpite para cada jogo da rodada, nada além
	matchIDs := map[string]bool{}
	rows, err := tx.QueryContext(ctx, `SELECT id FROM matches WHERE round_id = $1`, roundID)
	if err != nil {
		return "", err
	}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return "", err
		}
		matchIDs[id] = false
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return "", err
	}
	if len(bets) != len(matchIDs) {
		return "", ErrIncompleteSheet
	}
	for _, b := range bets {
		seen, ok := matchIDs[b.MatchID]
		if !ok || seen {
			return "", ErrIncompleteSheet
		}
		matchIDs[b.MatchID] = true
	}

	ticketID := uuid.NewString()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO tickets (id, user_id, round_id, payment_status, created_at)
		VALUES ($1, $2, $3, 'pending', NOW())`,
		ticketID, userID, roundID); err != nil {
		return "", fmt.Errorf("insert ticket: %w", err)
	}

	// points nasce NULL: só a liquidação do jogo grava pontuação. Um palpite
	// ainda não liquidado não pode se confundir com um liquidado de 0 pontos.
	for _, b := range bets {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO bets (id, ticket_id, match_id, predicted_outcome, predicted_home, predicted_away, points)
			VALUES ($1, $2, $3, $4, $5, $6, NULL)`,
			uuid.NewString(), ticketID, b.MatchID, b.PredictedOutcome, b.PredictedHome, b.PredictedAway); err != nil {
			return "", fmt.Errorf("insert bet: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return ticketID, nil
}

// GetTicket retorna a cartela e seus palpites.
func (p *Postgres) GetTicket(ctx context.Context, ticketID string) (*Ticket, []TicketBet, error) {
	var t Ticket
	err := p.db.QueryRowContext(ctx, `
		SELECT id, user_id, round_id, payment_status, paid_at, created_at
		FROM tickets
		WHERE id = $1`, ticketID).
		Scan(&t.ID, &t.UserID, &t.RoundID, &t.PaymentStatus, &t.PaidAt, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil, ErrTicketNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT id, ticket_id, match_id, predicted_outcome, predicted_home, predicted_away, points, settled_at
		FROM bets
		WHERE ticket_id = $1
		ORDER BY match_id`, ticketID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var bets []TicketBet
	for rows.Next() {
		var b TicketBet
		if err := rows.Scan(&b.ID, &b.TicketID, &b.MatchID, &b.PredictedOutcome,
			&b.PredictedHome, &b.PredictedAway, &b.Points, &b.SettledAt); err != nil {
			return nil, nil, err
		}
		bets = append(bets, b)
	}
	return &t, bets, rows.Err()
}
