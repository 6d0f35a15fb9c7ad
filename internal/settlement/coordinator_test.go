package settlement

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/bolaofpt/bolao-core/internal/prizes"
	"github.com/bolaofpt/bolao-core/internal/rounds"
	"github.com/bolaofpt/bolao-core/internal/scoring"
	ev "github.com/bolaofpt/bolao-core/pkg/contracts/events"
)

func intp(v int) *int { return &v }

// memStore implementa Store e prizes.Store em memória.
type memStore struct {
	mu      sync.Mutex
	round   *rounds.Round
	matches map[string]*rounds.Match
	bets    map[string]*Bet // por bet id
	tickets map[string]prizes.TicketScore
	alloc   *prizes.Allocation
	saves   int
}

func newMemStore() *memStore {
	return &memStore{
		matches: make(map[string]*rounds.Match),
		bets:    make(map[string]*Bet),
		tickets: make(map[string]prizes.TicketScore),
	}
}

func (s *memStore) GetMatch(_ context.Context, id string) (*rounds.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[id]
	if !ok {
		return nil, ErrMatchNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *memStore) GetRound(_ context.Context, id string) (*rounds.Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.round == nil || s.round.ID != id {
		return nil, ErrRoundNotFound
	}
	cp := *s.round
	return &cp, nil
}

func (s *memStore) ListBetsByMatch(_ context.Context, matchID string) ([]Bet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Bet
	for _, b := range s.bets {
		if b.MatchID == matchID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (s *memStore) ApplySettlement(_ context.Context, matchID string, home, away int, scores []BetScore) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.matches[matchID]
	m.Status = rounds.MatchFinished
	m.HomeScore, m.AwayScore = &home, &away
	for _, sc := range scores {
		p := sc.Points
		s.bets[sc.BetID].Points = &p
	}
	return nil
}

func (s *memStore) RoundFullyFinished(_ context.Context, _ string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.matches {
		if m.Status != rounds.MatchFinished {
			return false, nil
		}
	}
	return true, nil
}

func (s *memStore) RoundFullyScored(_ context.Context, _ string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bets {
		if b.Points == nil {
			return false, nil
		}
	}
	return true, nil
}

func (s *memStore) RoundTicketScores(ctx context.Context, roundID string) ([]prizes.TicketScore, error) {
	return s.ListTicketScores(ctx, roundID)
}

func (s *memStore) CompareAndSetRoundStatus(_ context.Context, _ string, from, to rounds.Status) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.round.Status != from {
		return false, nil
	}
	s.round.Status = to
	return true, nil
}

// prizes.Store

func (s *memStore) RoundStatus(_ context.Context, _ string) (rounds.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.round.Status, nil
}

func (s *memStore) GetAllocation(_ context.Context, _ string) (*prizes.Allocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.alloc == nil {
		return nil, nil
	}
	cp := *s.alloc
	return &cp, nil
}

func (s *memStore) ListTicketScores(_ context.Context, _ string) ([]prizes.TicketScore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []prizes.TicketScore
	for tid, t := range s.tickets {
		total := 0
		for _, b := range s.bets {
			if b.TicketID == tid && b.Points != nil {
				total += *b.Points
			}
		}
		t.Points = total
		out = append(out, t)
	}
	return out, nil
}

func (s *memStore) SaveAllocation(_ context.Context, alloc *prizes.Allocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alloc = alloc
	s.saves++
	return nil
}

// memBus registra eventos publicados.
type memBus struct {
	mu           sync.Mutex
	matchEvents  []ev.MatchSettled
	roundEvents  []ev.RoundSettled
	rankingPings int
}

func (b *memBus) PublishMatchSettled(_ context.Context, e ev.MatchSettled) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.matchEvents = append(b.matchEvents, e)
	return nil
}

func (b *memBus) PublishRoundSettled(_ context.Context, e ev.RoundSettled) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.roundEvents = append(b.roundEvents, e)
	return nil
}

func (b *memBus) RankingChanged(_ context.Context, _ string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rankingPings++
	return nil
}

// fixture monta uma rodada de dois jogos com três cartelas pagas.
func fixture() (*memStore, *memBus, *Coordinator) {
	store := newMemStore()
	paid := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	store.round = &rounds.Round{
		ID:               "r1",
		CompetitionID:    "c1",
		Name:             "Rodada 1",
		Status:           rounds.StatusClosed,
		TicketPriceCents: 1000,
	}
	store.matches["m1"] = &rounds.Match{ID: "m1", RoundID: "r1", Status: rounds.MatchScheduled}
	store.matches["m2"] = &rounds.Match{ID: "m2", RoundID: "r1", Status: rounds.MatchScheduled}

	for i, u := range []string{"ua", "ub", "uc"} {
		tid := "t" + u
		store.tickets[tid] = prizes.TicketScore{
			TicketID:   tid,
			UserID:     u,
			Paid:       true,
			PaidAt:     paid.Add(time.Duration(i) * time.Minute),
			PriceCents: 1000,
		}
	}

	// Jogo m1: A acerta placar exato 2-1, B acerta resultado, C erra
	store.bets["b1"] = &Bet{ID: "b1", TicketID: "tua", UserID: "ua", MatchID: "m1",
		Prediction: scoring.Prediction{Outcome: scoring.OutcomeHome, HomeScore: intp(2), AwayScore: intp(1)}}
	store.bets["b2"] = &Bet{ID: "b2", TicketID: "tub", UserID: "ub", MatchID: "m1",
		Prediction: scoring.Prediction{Outcome: scoring.OutcomeHome, HomeScore: intp(1), AwayScore: intp(0)}}
	store.bets["b3"] = &Bet{ID: "b3", TicketID: "tuc", UserID: "uc", MatchID: "m1",
		Prediction: scoring.Prediction{Outcome: scoring.OutcomeDraw}}

	// Jogo m2: todos apostam empate
	for i, u := range []string{"ua", "ub", "uc"} {
		id := "b" + string(rune('4'+i))
		store.bets[id] = &Bet{ID: id, TicketID: "t" + u, UserID: u, MatchID: "m2",
			Prediction: scoring.Prediction{Outcome: scoring.OutcomeDraw}}
	}

	bus := &memBus{}
	alloc := prizes.NewAllocator(zap.NewNop(), store)
	coord := NewCoordinator(zap.NewNop(), store, scoring.Default(), alloc, bus, bus)
	return store, bus, coord
}

func TestSettleMatchScoresBets(t *testing.T) {
	store, _, coord := fixture()

	res, err := coord.SettleMatch(context.Background(), "m1", 2, 1)
	if err != nil {
		t.Fatalf("SettleMatch: %v", err)
	}
	if res.BetsScored != 3 {
		t.Fatalf("bets scored = %d, want 3", res.BetsScored)
	}
	if res.RoundSettled {
		t.Fatal("round settled with m2 pending")
	}

	want := map[string]int{"b1": 5, "b2": 3, "b3": 0}
	for id, pts := range want {
		if got := store.bets[id].Points; got == nil || *got != pts {
			t.Errorf("bet %s points = %v, want %d", id, got, pts)
		}
	}
}

func TestSettleMatchIdempotent(t *testing.T) {
	store, _, coord := fixture()
	ctx := context.Background()

	if _, err := coord.SettleMatch(ctx, "m1", 2, 1); err != nil {
		t.Fatalf("first settle: %v", err)
	}
	first := map[string]int{}
	for id, b := range store.bets {
		if b.Points != nil {
			first[id] = *b.Points
		}
	}

	// Reentrada com o mesmo placar: mesmos pontos, nunca acumula
	if _, err := coord.SettleMatch(ctx, "m1", 2, 1); err != nil {
		t.Fatalf("re-settle: %v", err)
	}
	for id, pts := range first {
		if *store.bets[id].Points != pts {
			t.Errorf("re-settlement changed bet %s: %d -> %d", id, pts, *store.bets[id].Points)
		}
	}
}

func TestSettleMatchValidation(t *testing.T) {
	_, _, coord := fixture()
	ctx := context.Background()

	if _, err := coord.SettleMatch(ctx, "m1", -1, 0); !errors.Is(err, ErrInvalidScore) {
		t.Errorf("negative home score: got %v, want ErrInvalidScore", err)
	}
	if _, err := coord.SettleMatch(ctx, "m1", 0, -2); !errors.Is(err, ErrInvalidScore) {
		t.Errorf("negative away score: got %v, want ErrInvalidScore", err)
	}
	if _, err := coord.SettleMatch(ctx, "nope", 1, 0); !errors.Is(err, ErrMatchNotFound) {
		t.Errorf("unknown match: got %v, want ErrMatchNotFound", err)
	}
}

func TestLastMatchSettlesRoundOnce(t *testing.T) {
	store, bus, coord := fixture()
	ctx := context.Background()

	if _, err := coord.SettleMatch(ctx, "m1", 2, 1); err != nil {
		t.Fatalf("settle m1: %v", err)
	}
	res, err := coord.SettleMatch(ctx, "m2", 0, 0)
	if err != nil {
		t.Fatalf("settle m2: %v", err)
	}
	if !res.RoundSettled {
		t.Fatal("last match must settle the round")
	}
	if store.round.Status != rounds.StatusSettled {
		t.Fatalf("round status = %s, want settled", store.round.Status)
	}

	// ua: 5 + 3 = 8, ub: 3 + 3 = 6, uc: 0 + 3 = 3 -> vencedora única ua
	alloc := res.Allocation
	if alloc == nil || len(alloc.Winners) != 1 || alloc.Winners[0].UserID != "ua" {
		t.Fatalf("unexpected allocation: %+v", alloc)
	}
	if alloc.PoolCents != 3000 || alloc.Winners[0].ShareCents != 3000 {
		t.Fatalf("pool/share = %d/%d, want 3000/3000", alloc.PoolCents, alloc.Winners[0].ShareCents)
	}
	if len(bus.roundEvents) != 1 {
		t.Fatalf("round_settled events = %d, want 1", len(bus.roundEvents))
	}

	// Reliquidar o último jogo não repete premiação nem evento
	res2, err := coord.SettleMatch(ctx, "m2", 0, 0)
	if err != nil {
		t.Fatalf("re-settle m2: %v", err)
	}
	if res2.RoundSettled {
		t.Error("re-settlement claimed to settle the round again")
	}
	if store.saves != 1 {
		t.Errorf("allocation saved %d times, want 1", store.saves)
	}
	if len(bus.roundEvents) != 1 {
		t.Errorf("round_settled events after rerun = %d, want 1", len(bus.roundEvents))
	}
}

func TestSettleRoundRequiresFinishedMatches(t *testing.T) {
	_, _, coord := fixture()
	ctx := context.Background()

	if _, err := coord.SettleRound(ctx, "r1"); !errors.Is(err, rounds.ErrIncompleteSettlement) {
		t.Fatalf("got %v, want ErrIncompleteSettlement", err)
	}
}

func TestSettleRoundIdempotentViaMarker(t *testing.T) {
	store, _, coord := fixture()
	ctx := context.Background()

	if _, err := coord.SettleMatch(ctx, "m1", 2, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := coord.SettleMatch(ctx, "m2", 0, 0); err != nil {
		t.Fatal(err)
	}

	alloc, err := coord.SettleRound(ctx, "r1")
	if err != nil {
		t.Fatalf("SettleRound on settled round: %v", err)
	}
	if alloc == nil || !alloc.AlreadyAllocated {
		t.Fatalf("expected stored allocation with AlreadyAllocated, got %+v", alloc)
	}
	if store.saves != 1 {
		t.Errorf("allocation saved %d times, want 1", store.saves)
	}
}

// Cartela não paga pontua normalmente e aparece no evento da rodada;
// só a premiação a ignora.
func TestUnpaidTicketScoresButNeverWins(t *testing.T) {
	store, bus, coord := fixture()
	ctx := context.Background()

	// ud não pagou e acerta o placar exato dos dois jogos (10 pontos)
	store.tickets["tud"] = prizes.TicketScore{TicketID: "tud", UserID: "ud", PriceCents: 1000}
	store.bets["b7"] = &Bet{ID: "b7", TicketID: "tud", UserID: "ud", MatchID: "m1",
		Prediction: scoring.Prediction{Outcome: scoring.OutcomeHome, HomeScore: intp(2), AwayScore: intp(1)}}
	store.bets["b8"] = &Bet{ID: "b8", TicketID: "tud", UserID: "ud", MatchID: "m2",
		Prediction: scoring.Prediction{Outcome: scoring.OutcomeDraw, HomeScore: intp(0), AwayScore: intp(0)}}

	if _, err := coord.SettleMatch(ctx, "m1", 2, 1); err != nil {
		t.Fatal(err)
	}
	res, err := coord.SettleMatch(ctx, "m2", 0, 0)
	if err != nil {
		t.Fatal(err)
	}

	alloc := res.Allocation
	if alloc == nil || alloc.TopScore != 8 || alloc.PoolCents != 3000 {
		t.Fatalf("allocation = %+v, want top score 8 e pool 3000 (só cartelas pagas)", alloc)
	}
	if len(alloc.Winners) != 1 || alloc.Winners[0].UserID != "ua" {
		t.Fatalf("winners = %+v, want só ua", alloc.Winners)
	}

	// Os 10 pontos de ud continuam visíveis para ranking e notificações
	var ud *ev.HolderResult
	for i := range bus.roundEvents[0].Holders {
		if bus.roundEvents[0].Holders[i].UserID == "ud" {
			ud = &bus.roundEvents[0].Holders[i]
		}
	}
	if ud == nil {
		t.Fatal("cartela não paga sumiu do evento round_settled")
	}
	if ud.Points != 10 || ud.Winner || ud.PrizeCents != 0 {
		t.Errorf("holder ud = %+v, want 10 pontos sem prêmio", ud)
	}
}

func TestSettleMatchUnknownIDLeavesNoLock(t *testing.T) {
	_, _, coord := fixture()

	if _, err := coord.SettleMatch(context.Background(), "nope", 1, 0); !errors.Is(err, ErrMatchNotFound) {
		t.Fatalf("got %v, want ErrMatchNotFound", err)
	}
	coord.mu.Lock()
	defer coord.mu.Unlock()
	if len(coord.locks) != 0 {
		t.Errorf("lock criado para jogo inexistente: %v", coord.locks)
	}
}

func TestConcurrentSettleSameMatch(t *testing.T) {
	store, _, coord := fixture()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = coord.SettleMatch(ctx, "m1", 2, 1)
		}()
	}
	wg.Wait()

	want := map[string]int{"b1": 5, "b2": 3, "b3": 0}
	for id, pts := range want {
		if got := store.bets[id].Points; got == nil || *got != pts {
			t.Errorf("bet %s points = %v after concurrent settles, want %d", id, got, pts)
		}
	}
}
