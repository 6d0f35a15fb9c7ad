package repo

import (
	"context"
	"database/sql"

	"github.com/bolaofpt/bolao-core/internal/ranking"
)

// ReadRepo agrega pontos direto do Postgres. É a fonte de verdade do
// ranking; o cache Redis na frente absorve a carga de leitura.
type ReadRepo struct {
	DB *sql.DB
}

func (r *ReadRepo) ListRows(ctx context.Context, scope ranking.Scope) ([]ranking.Row, error) {
	if scope.RoundID != "" {
		return r.roundRows(ctx, scope.RoundID)
	}
	return r.competitionRows(ctx, scope.CompetitionID)
}

// competitionRows soma os pontos de todas as cartelas do usuário na
// competição e conta quantas rodadas ele venceu. Competição vazia agrega
// o ranking geral de todas as competições. Pagamento não filtra pontos;
// cartela não paga pontua no ranking, só fica fora da premiação.
func (r *ReadRepo) competitionRows(ctx context.Context, competitionID string) ([]ranking.Row, error) {
	const q = `
		SELECT u.id, u.name, u.created_at,
		       COALESCE(SUM(b.points), 0) AS points,
		       COALESCE(w.rounds_won, 0) AS rounds_won
		FROM tickets t
		JOIN users u ON u.id = t.user_id
		JOIN rounds r ON r.id = t.round_id
		LEFT JOIN bets b ON b.ticket_id = t.id
		LEFT JOIN (
			SELECT rw.user_id, COUNT(*) AS rounds_won
			FROM round_winners rw
			JOIN rounds r2 ON r2.id = rw.round_id
			WHERE $1 = '' OR r2.competition_id = $1
			GROUP BY rw.user_id
		) w ON w.user_id = u.id
		WHERE ($1 = '' OR r.competition_id = $1)
		GROUP BY u.id, u.name, u.created_at, w.rounds_won;
	`
	return r.queryRows(ctx, q, competitionID)
}

// roundRows retorna os pontos da cartela de cada usuário em uma rodada.
func (r *ReadRepo) roundRows(ctx context.Context, roundID string) ([]ranking.Row, error) {
	const q = `
		SELECT u.id, u.name, u.created_at,
		       COALESCE(SUM(b.points), 0) AS points,
		       COALESCE(COUNT(DISTINCT rw.round_id), 0) AS rounds_won
		FROM tickets t
		JOIN users u ON u.id = t.user_id
		LEFT JOIN bets b ON b.ticket_id = t.id
		LEFT JOIN round_winners rw ON rw.round_id = t.round_id AND rw.user_id = u.id
		WHERE t.round_id = $1
		GROUP BY u.id, u.name, u.created_at;
	`
	return r.queryRows(ctx, q, roundID)
}

func (r *ReadRepo) queryRows(ctx context.Context, q string, arg any) ([]ranking.Row, error) {
	rows, err := r.DB.QueryContext(ctx, q, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ranking.Row
	for rows.Next() {
		var row ranking.Row
		if err := rows.Scan(&row.UserID, &row.UserName, &row.JoinedAt, &row.Points, &row.RoundsWon); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
