package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bolaofpt/bolao-core/internal/prizes"
	"github.com/bolaofpt/bolao-core/internal/rounds"
	"github.com/bolaofpt/bolao-core/internal/scoring"
	"github.com/bolaofpt/bolao-core/internal/settlement"
)

// Postgres implementa a persistência da liquidação, da premiação e do
// ciclo de vida das rodadas sobre um banco Postgres.
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

func (p *Postgres) GetMatch(ctx context.Context, matchID string) (*rounds.Match, error) {
	var m rounds.Match
	err := p.db.QueryRowContext(ctx, `
		SELECT id, round_id, home_team_id, away_team_id, scheduled_at, status, home_score, away_score
		FROM matches WHERE id=$1`, matchID).
		Scan(&m.ID, &m.RoundID, &m.HomeTeamID, &m.AwayTeamID, &m.ScheduledAt, &m.Status, &m.HomeScore, &m.AwayScore)
	if err == sql.ErrNoRows {
		return nil, settlement.ErrMatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get match: %w", err)
	}
	return &m, nil
}

func (p *Postgres) GetRound(ctx context.Context, roundID string) (*rounds.Round, error) {
	var r rounds.Round
	err := p.db.QueryRowContext(ctx, `
		SELECT id, competition_id, round_number, name, start_date, end_date, bets_deadline,
		       ticket_price_cents, status, created_at
		FROM rounds WHERE id=$1`, roundID).
		Scan(&r.ID, &r.CompetitionID, &r.Number, &r.Name, &r.StartDate, &r.EndDate,
			&r.BetsDeadline, &r.TicketPriceCents, &r.Status, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, settlement.ErrRoundNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get round: %w", err)
	}
	return &r, nil
}

func (p *Postgres) ListBetsByMatch(ctx context.Context, matchID string) ([]settlement.Bet, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT b.id, b.ticket_id, t.user_id, b.match_id,
		       b.predicted_outcome, b.predicted_home, b.predicted_away, b.points
		FROM bets b
		JOIN tickets t ON t.id = b.ticket_id
		WHERE b.match_id=$1`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []settlement.Bet
	for rows.Next() {
		var b settlement.Bet
		var outcome string
		if err := rows.Scan(&b.ID, &b.TicketID, &b.UserID, &b.MatchID,
			&outcome, &b.Prediction.HomeScore, &b.Prediction.AwayScore, &b.Points); err != nil {
			return nil, err
		}
		b.Prediction.Outcome = scoring.Outcome(outcome)
		out = append(out, b)
	}
	return out, rows.Err()
}

// ApplySettlement grava placar do jogo e pontos de todas as apostas dele em
// uma única transação. Reentrada sobrescreve com os mesmos valores (UPDATE
// absoluto, nunca incremento), preservando a idempotência.
func (p *Postgres) ApplySettlement(ctx context.Context, matchID string, homeScore, awayScore int, scores []settlement.BetScore) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Lock pessimista na linha do jogo: segundo liquidador espera o primeiro
	if _, err = tx.ExecContext(ctx, `SELECT id FROM matches WHERE id=$1 FOR UPDATE`, matchID); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, `
		UPDATE matches SET status='finished', home_score=$1, away_score=$2 WHERE id=$3`,
		homeScore, awayScore, matchID); err != nil {
		return err
	}

	now := time.Now().UTC()
	for _, s := range scores {
		if _, err = tx.ExecContext(ctx, `
			UPDATE bets SET points=$1, settled_at=$2 WHERE id=$3`,
			s.Points, now, s.BetID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (p *Postgres) RoundFullyFinished(ctx context.Context, roundID string) (bool, error) {
	var pending int
	err := p.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM matches WHERE round_id=$1 AND status <> 'finished'`, roundID).Scan(&pending)
	if err != nil {
		return false, err
	}
	return pending == 0, nil
}

func (p *Postgres) RoundFullyScored(ctx context.Context, roundID string) (bool, error) {
	var pending int
	err := p.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM bets b
		JOIN matches m ON m.id = b.match_id
		WHERE m.round_id=$1 AND b.points IS NULL`, roundID).Scan(&pending)
	if err != nil {
		return false, err
	}
	return pending == 0, nil
}

// CompareAndSetRoundStatus efetiva a transição apenas se o status atual for o
// esperado. RowsAffected=1 identifica o vencedor único entre chamadores
// concorrentes.
func (p *Postgres) CompareAndSetRoundStatus(ctx context.Context, roundID string, from, to rounds.Status) (bool, error) {
	res, err := p.db.ExecContext(ctx, `
		UPDATE rounds SET status=$1 WHERE id=$2 AND status=$3`,
		string(to), roundID, string(from))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (p *Postgres) RoundTicketScores(ctx context.Context, roundID string) ([]prizes.TicketScore, error) {
	return p.ListTicketScores(ctx, roundID)
}

// --- prizes.Store ---

func (p *Postgres) RoundStatus(ctx context.Context, roundID string) (rounds.Status, error) {
	var s string
	err := p.db.QueryRowContext(ctx, `SELECT status FROM rounds WHERE id=$1`, roundID).Scan(&s)
	if err == sql.ErrNoRows {
		return "", settlement.ErrRoundNotFound
	}
	if err != nil {
		return "", err
	}
	return rounds.Status(s), nil
}

func (p *Postgres) GetAllocation(ctx context.Context, roundID string) (*prizes.Allocation, error) {
	var alloc prizes.Allocation
	err := p.db.QueryRowContext(ctx, `
		SELECT round_id, pool_cents, top_score, allocated_at
		FROM round_settlements WHERE round_id=$1`, roundID).
		Scan(&alloc.RoundID, &alloc.PoolCents, &alloc.TopScore, &alloc.AllocatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT ticket_id, user_id, points, share_cents
		FROM round_winners WHERE round_id=$1
		ORDER BY share_cents DESC, ticket_id`, roundID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var w prizes.Winner
		if err := rows.Scan(&w.TicketID, &w.UserID, &w.Points, &w.ShareCents); err != nil {
			return nil, err
		}
		alloc.Winners = append(alloc.Winners, w)
	}
	return &alloc, rows.Err()
}

func (p *Postgres) ListTicketScores(ctx context.Context, roundID string) ([]prizes.TicketScore, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT t.id, t.user_id, COALESCE(SUM(b.points), 0),
		       t.payment_status = 'paid', COALESCE(t.paid_at, t.created_at),
		       r.ticket_price_cents
		FROM tickets t
		JOIN rounds r ON r.id = t.round_id
		LEFT JOIN bets b ON b.ticket_id = t.id
		WHERE t.round_id=$1
		GROUP BY t.id, t.user_id, t.payment_status, t.paid_at, t.created_at, r.ticket_price_cents`, roundID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []prizes.TicketScore
	for rows.Next() {
		var t prizes.TicketScore
		if err := rows.Scan(&t.TicketID, &t.UserID, &t.Points, &t.Paid, &t.PaidAt, &t.PriceCents); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// SaveAllocation grava marcador e vencedoras em transação. O ON CONFLICT DO
// NOTHING no marcador fecha a janela entre GetAllocation e SaveAllocation:
// uma segunda gravação concorrente não duplica prêmio.
func (p *Postgres) SaveAllocation(ctx context.Context, alloc *prizes.Allocation) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO round_settlements (round_id, pool_cents, top_score, total_winners, allocated_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (round_id) DO NOTHING`,
		alloc.RoundID, alloc.PoolCents, alloc.TopScore, len(alloc.Winners), alloc.AllocatedAt)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return nil // outro chamador gravou primeiro
	}

	for _, w := range alloc.Winners {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO round_winners (round_id, ticket_id, user_id, points, share_cents)
			VALUES ($1,$2,$3,$4,$5)`,
			alloc.RoundID, w.TicketID, w.UserID, w.Points, w.ShareCents); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// --- lifecycle.Store ---

// DueForActivation lista rodadas upcoming cuja data de início já chegou.
func (p *Postgres) DueForActivation(ctx context.Context, now time.Time) ([]rounds.Round, error) {
	return p.listByStatusDue(ctx, `
		SELECT id, competition_id, round_number, name, start_date, end_date, bets_deadline,
		       ticket_price_cents, status, created_at
		FROM rounds WHERE status='upcoming' AND start_date <= $1`, now)
}

// DueForClose lista rodadas active com deadline vencido ou todos os jogos
// finalizados.
func (p *Postgres) DueForClose(ctx context.Context, now time.Time) ([]rounds.Round, error) {
	return p.listByStatusDue(ctx, `
		SELECT r.id, r.competition_id, r.round_number, r.name, r.start_date, r.end_date,
		       r.bets_deadline, r.ticket_price_cents, r.status, r.created_at
		FROM rounds r
		WHERE r.status='active'
		  AND (r.bets_deadline <= $1
		       OR NOT EXISTS (SELECT 1 FROM matches m WHERE m.round_id = r.id AND m.status <> 'finished'))`, now)
}

// DueForSettlement lista rodadas closed com todos os jogos finalizados.
func (p *Postgres) DueForSettlement(ctx context.Context) ([]rounds.Round, error) {
	return p.listByStatusDue(ctx, `
		SELECT r.id, r.competition_id, r.round_number, r.name, r.start_date, r.end_date,
		       r.bets_deadline, r.ticket_price_cents, r.status, r.created_at
		FROM rounds r
		WHERE r.status='closed'
		  AND NOT EXISTS (SELECT 1 FROM matches m WHERE m.round_id = r.id AND m.status <> 'finished')`)
}

func (p *Postgres) listByStatusDue(ctx context.Context, query string, args ...any) ([]rounds.Round, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []rounds.Round
	for rows.Next() {
		var r rounds.Round
		if err := rows.Scan(&r.ID, &r.CompetitionID, &r.Number, &r.Name, &r.StartDate, &r.EndDate,
			&r.BetsDeadline, &r.TicketPriceCents, &r.Status, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
