package ranking

import (
	"cmp"
	"context"
	"slices"
	"time"
)

// Scope delimita o ranking: geral da competição ou de uma rodada.
type Scope struct {
	CompetitionID string
	RoundID       string // vazio = ranking geral
}

// Row é uma linha do ranking já agregada por usuário.
type Row struct {
	Position  int       `json:"position"`
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	Points    int       `json:"points"`
	RoundsWon int       `json:"rounds_won"`
	JoinedAt  time.Time `json:"joined_at"`
}

// Source carrega as linhas brutas do ranking, sem ordem garantida.
type Source interface {
	ListRows(ctx context.Context, scope Scope) ([]Row, error)
}

// Aggregator monta o ranking ordenado a partir de um Source.
type Aggregator struct {
	src Source
}

func NewAggregator(src Source) *Aggregator {
	return &Aggregator{src: src}
}

// Ranking retorna as linhas ordenadas e com posição atribuída.
func (a *Aggregator) Ranking(ctx context.Context, scope Scope) ([]Row, error) {
	rows, err := a.src.ListRows(ctx, scope)
	if err != nil {
		return nil, err
	}
	Sort(rows)
	return rows, nil
}

// Sort ordena in place: pontos desc, rodadas vencidas desc, data de
// cadastro asc; user_id como critério final para saída estável.
// Posições são sequenciais (1, 2, 3...) mesmo em empate de pontos.
func Sort(rows []Row) {
	slices.SortFunc(rows, func(a, b Row) int {
		if c := cmp.Compare(b.Points, a.Points); c != 0 {
			return c
		}
		if c := cmp.Compare(b.RoundsWon, a.RoundsWon); c != 0 {
			return c
		}
		if c := a.JoinedAt.Compare(b.JoinedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.UserID, b.UserID)
	})
	for i := range rows {
		rows[i].Position = i + 1
	}
}
