package prizes

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/bolaofpt/bolao-core/internal/rounds"
)

func ts(ticketID, userID string, points int, paid bool, paidAt time.Time) TicketScore {
	return TicketScore{
		TicketID:   ticketID,
		UserID:     userID,
		Points:     points,
		Paid:       paid,
		PaidAt:     paidAt,
		PriceCents: 1000, // R$ 10,00
	}
}

func TestComputeSplitsPoolAmongTiedWinners(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// Cenário do bolão: X e Y pagas com 8 pontos, Z não paga com 10.
	tickets := []TicketScore{
		ts("tx", "ux", 8, true, base),
		ts("ty", "uy", 8, true, base.Add(time.Hour)),
		ts("tz", "uz", 10, false, base.Add(2*time.Hour)),
	}

	alloc := Compute("r1", tickets)

	if alloc.PoolCents != 2000 {
		t.Fatalf("pool = %d, want 2000", alloc.PoolCents)
	}
	if alloc.TopScore != 8 {
		t.Fatalf("top score = %d, want 8 (unpaid ticket must not count)", alloc.TopScore)
	}
	if len(alloc.Winners) != 2 {
		t.Fatalf("winners = %d, want 2", len(alloc.Winners))
	}
	for _, w := range alloc.Winners {
		if w.ShareCents != 1000 {
			t.Errorf("winner %s share = %d, want 1000", w.TicketID, w.ShareCents)
		}
		if w.TicketID == "tz" {
			t.Error("unpaid ticket won the round")
		}
	}
}

func TestComputeRemainderGoesToEarliestPayment(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// Pool de 3 cartelas (3000 centavos)? Não: pool 1000*3=3000 divide exato.
	// Forçamos resto usando preço 1001.
	tickets := []TicketScore{
		{TicketID: "tb", UserID: "ub", Points: 7, Paid: true, PaidAt: base.Add(time.Minute), PriceCents: 1001},
		{TicketID: "ta", UserID: "ua", Points: 7, Paid: true, PaidAt: base, PriceCents: 1001},
		{TicketID: "tc", UserID: "uc", Points: 7, Paid: true, PaidAt: base.Add(2 * time.Minute), PriceCents: 1001},
	}

	alloc := Compute("r1", tickets)

	if alloc.PoolCents != 3003 {
		t.Fatalf("pool = %d, want 3003", alloc.PoolCents)
	}
	if len(alloc.Winners) != 3 {
		t.Fatalf("winners = %d, want 3", len(alloc.Winners))
	}

	// 3003 / 3 = 1001 exato; refaz com pool que deixa resto
	tickets[0].PriceCents = 1000
	tickets[1].PriceCents = 1000
	tickets[2].PriceCents = 1001 // pool 3001, base 1000, resto 1
	alloc = Compute("r1", tickets)

	var total int64
	shares := map[string]int64{}
	for _, w := range alloc.Winners {
		total += w.ShareCents
		shares[w.TicketID] = w.ShareCents
	}
	if total != alloc.PoolCents {
		t.Fatalf("shares sum %d != pool %d (currency lost or duplicated)", total, alloc.PoolCents)
	}
	// "ta" pagou primeiro: leva o centavo extra
	if shares["ta"] != 1001 || shares["tb"] != 1000 || shares["tc"] != 1000 {
		t.Fatalf("remainder misassigned: %v", shares)
	}
}

func TestComputeNoPaidTickets(t *testing.T) {
	alloc := Compute("r1", []TicketScore{
		ts("tz", "uz", 10, false, time.Now()),
	})
	if alloc.PoolCents != 0 || len(alloc.Winners) != 0 {
		t.Fatalf("expected zero-winners outcome, got pool=%d winners=%d", alloc.PoolCents, len(alloc.Winners))
	}
}

func TestComputeDeterministicOrder(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tickets := []TicketScore{
		ts("tb", "ub", 5, true, base),
		ts("ta", "ua", 5, true, base), // mesmo paid_at: desempata por ticket_id
	}
	first := Compute("r1", tickets)
	for i := 0; i < 5; i++ {
		again := Compute("r1", tickets)
		for j := range first.Winners {
			if first.Winners[j] != again.Winners[j] {
				t.Fatal("allocation order not deterministic")
			}
		}
	}
	if first.Winners[0].TicketID != "ta" {
		t.Errorf("tie on paid_at must break by ticket_id asc, got %s first", first.Winners[0].TicketID)
	}
}

// fakeStore implementa Store em memória para testar o Allocator.
type fakeStore struct {
	status  rounds.Status
	tickets []TicketScore
	saved   *Allocation
	saves   int
}

func (f *fakeStore) RoundStatus(_ context.Context, _ string) (rounds.Status, error) {
	return f.status, nil
}

func (f *fakeStore) GetAllocation(_ context.Context, _ string) (*Allocation, error) {
	if f.saved == nil {
		return nil, nil
	}
	cp := *f.saved
	return &cp, nil
}

func (f *fakeStore) ListTicketScores(_ context.Context, _ string) ([]TicketScore, error) {
	return f.tickets, nil
}

func (f *fakeStore) SaveAllocation(_ context.Context, alloc *Allocation) error {
	f.saved = alloc
	f.saves++
	return nil
}

func TestAllocateRequiresSettledRound(t *testing.T) {
	store := &fakeStore{status: rounds.StatusClosed}
	alloc := NewAllocator(zap.NewNop(), store)

	_, err := alloc.Allocate(context.Background(), "r1")
	if !errors.Is(err, ErrRoundNotFullySettled) {
		t.Fatalf("expected ErrRoundNotFullySettled, got %v", err)
	}
}

func TestAllocateIsIdempotent(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{
		status:  rounds.StatusSettled,
		tickets: []TicketScore{ts("t1", "u1", 8, true, base)},
	}
	alloc := NewAllocator(zap.NewNop(), store)

	first, err := alloc.Allocate(context.Background(), "r1")
	if err != nil {
		t.Fatalf("first allocation: %v", err)
	}
	if first.AlreadyAllocated {
		t.Error("first allocation flagged as rerun")
	}

	second, err := alloc.Allocate(context.Background(), "r1")
	if err != nil {
		t.Fatalf("second allocation: %v", err)
	}
	if !second.AlreadyAllocated {
		t.Error("rerun must report AlreadyAllocated")
	}
	if store.saves != 1 {
		t.Errorf("allocation saved %d times, want 1", store.saves)
	}
	if second.PoolCents != first.PoolCents {
		t.Errorf("rerun changed pool: %d != %d", second.PoolCents, first.PoolCents)
	}
}
