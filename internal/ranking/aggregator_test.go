package ranking

import (
	"context"
	"testing"
	"time"
)

type staticSource struct{ rows []Row }

func (s staticSource) ListRows(_ context.Context, _ Scope) ([]Row, error) {
	out := make([]Row, len(s.rows))
	copy(out, s.rows)
	return out, nil
}

func TestSortOrdering(t *testing.T) {
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	rows := []Row{
		{UserID: "u-carol", Points: 20, RoundsWon: 1, JoinedAt: t0.Add(48 * time.Hour)},
		{UserID: "u-alice", Points: 31, RoundsWon: 0, JoinedAt: t0},
		{UserID: "u-dani", Points: 20, RoundsWon: 2, JoinedAt: t0.Add(72 * time.Hour)},
		{UserID: "u-bob", Points: 20, RoundsWon: 1, JoinedAt: t0.Add(24 * time.Hour)},
	}
	Sort(rows)

	want := []string{"u-alice", "u-dani", "u-bob", "u-carol"}
	for i, id := range want {
		if rows[i].UserID != id {
			t.Fatalf("posição %d: got %s, want %s (ordem completa: %v)", i+1, rows[i].UserID, id, rows)
		}
		if rows[i].Position != i+1 {
			t.Errorf("position de %s = %d, want %d", id, rows[i].Position, i+1)
		}
	}
}

func TestSortFullTieBreaksByUserID(t *testing.T) {
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []Row{
		{UserID: "u-b", Points: 10, RoundsWon: 1, JoinedAt: t0},
		{UserID: "u-a", Points: 10, RoundsWon: 1, JoinedAt: t0},
	}
	Sort(rows)
	if rows[0].UserID != "u-a" || rows[1].UserID != "u-b" {
		t.Fatalf("empate total deve ordenar por user_id: %v", rows)
	}
}

func TestAggregatorAssignsPositions(t *testing.T) {
	src := staticSource{rows: []Row{
		{UserID: "u2", Points: 5},
		{UserID: "u1", Points: 8},
	}}
	rows, err := NewAggregator(src).Ranking(context.Background(), Scope{CompetitionID: "c1"})
	if err != nil {
		t.Fatal(err)
	}
	if rows[0].UserID != "u1" || rows[0].Position != 1 || rows[1].Position != 2 {
		t.Fatalf("ranking inesperado: %v", rows)
	}
}
