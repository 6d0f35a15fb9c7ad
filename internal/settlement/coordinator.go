package settlement

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bolaofpt/bolao-core/internal/prizes"
	"github.com/bolaofpt/bolao-core/internal/rounds"
	"github.com/bolaofpt/bolao-core/internal/scoring"
	ev "github.com/bolaofpt/bolao-core/pkg/contracts/events"
)

var (
	// ErrMatchNotFound indica liquidação de jogo inexistente
	ErrMatchNotFound = errors.New("match not found")
	// ErrRoundNotFound indica rodada inexistente
	ErrRoundNotFound = errors.New("round not found")
	// ErrInvalidScore indica placar negativo
	ErrInvalidScore = errors.New("invalid score")
)

// Bet é a visão de uma aposta para a liquidação.
type Bet struct {
	ID         string
	TicketID   string
	UserID     string
	MatchID    string
	Prediction scoring.Prediction
	Points     *int
}

// BetScore é a pontuação calculada de uma aposta.
type BetScore struct {
	BetID    string
	TicketID string
	UserID   string
	Points   int
}

// Result resume uma chamada de SettleMatch.
type Result struct {
	MatchID      string
	RoundID      string
	HomeScore    int
	AwayScore    int
	BetsScored   int
	RoundSettled bool
	Allocation   *prizes.Allocation // preenchido quando esta chamada liquidou a rodada
}

// Store define a persistência usada pelo coordenador.
// ApplySettlement é a unidade atômica: placar do jogo + pontos de todas as
// apostas do jogo em uma transação, ou nada.
type Store interface {
	GetMatch(ctx context.Context, matchID string) (*rounds.Match, error)
	GetRound(ctx context.Context, roundID string) (*rounds.Round, error)
	ListBetsByMatch(ctx context.Context, matchID string) ([]Bet, error)
	ApplySettlement(ctx context.Context, matchID string, homeScore, awayScore int, scores []BetScore) error
	RoundFullyFinished(ctx context.Context, roundID string) (bool, error)
	RoundFullyScored(ctx context.Context, roundID string) (bool, error)
	// RoundTicketScores alimenta o evento round_settled (pontuação por cartela)
	RoundTicketScores(ctx context.Context, roundID string) ([]prizes.TicketScore, error)
	// CompareAndSetRoundStatus retorna true apenas para o chamador que
	// efetivou a transição (vencedor único em concorrência)
	CompareAndSetRoundStatus(ctx context.Context, roundID string, from, to rounds.Status) (bool, error)
}

// EventBus publica eventos de domínio após o commit da liquidação.
type EventBus interface {
	PublishMatchSettled(ctx context.Context, e ev.MatchSettled) error
	PublishRoundSettled(ctx context.Context, e ev.RoundSettled) error
}

// RankingBroadcast avisa a camada de leitura que o ranking mudou.
type RankingBroadcast interface {
	RankingChanged(ctx context.Context, competitionID string) error
}

// Coordinator orquestra a liquidação de jogos e rodadas.
type Coordinator struct {
	log       *zap.Logger
	store     Store
	rule      scoring.Rule
	allocator *prizes.Allocator
	bus       EventBus
	broadcast RankingBroadcast

	// serializa liquidações concorrentes do mesmo jogo
	mu    sync.Mutex
	locks map[string]*sync.Mutex

	// métricas (counter++); opcionais
	OnMatchSettled func()
	OnBetsScored   func(n int)
	OnRoundSettled func()
	OnError        func(stage string)
}

func NewCoordinator(log *zap.Logger, store Store, rule scoring.Rule, allocator *prizes.Allocator, bus EventBus, broadcast RankingBroadcast) *Coordinator {
	return &Coordinator{
		log:       log,
		store:     store,
		rule:      rule,
		allocator: allocator,
		bus:       bus,
		broadcast: broadcast,
		locks:     make(map[string]*sync.Mutex),
	}
}

// matchLock devolve o mutex do jogo, criando sob demanda.
func (c *Coordinator) matchLock(matchID string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[matchID]
	if !ok {
		l = &sync.Mutex{}
		c.locks[matchID] = l
	}
	return l
}

// SettleMatch grava o placar final de um jogo e pontua todas as apostas dele.
//
// Idempotente: reexecutar com o mesmo placar recalcula os mesmos pontos e
// nunca acumula. Por isso jogo já finished é tolerado; o caminho de
// recuperação de qualquer falha é repetir a chamada inteira.
func (c *Coordinator) SettleMatch(ctx context.Context, matchID string, homeScore, awayScore int) (*Result, error) {
	if homeScore < 0 || awayScore < 0 {
		return nil, ErrInvalidScore
	}

	// Valida antes de travar: id desconhecido não entra no mapa de locks
	m, err := c.store.GetMatch(ctx, matchID)
	if err != nil {
		c.fail("load_match")
		return nil, err
	}

	lock := c.matchLock(matchID)
	lock.Lock()
	defer lock.Unlock()

	bets, err := c.store.ListBetsByMatch(ctx, matchID)
	if err != nil {
		c.fail("load_bets")
		return nil, fmt.Errorf("list bets: %w", err)
	}

	scores := make([]BetScore, 0, len(bets))
	users := make([]string, 0, len(bets))
	for _, b := range bets {
		scores = append(scores, BetScore{
			BetID:    b.ID,
			TicketID: b.TicketID,
			UserID:   b.UserID,
			Points:   c.rule.Score(b.Prediction, homeScore, awayScore),
		})
		users = append(users, b.UserID)
	}

	if err := c.store.ApplySettlement(ctx, matchID, homeScore, awayScore, scores); err != nil {
		c.fail("apply")
		return nil, fmt.Errorf("apply settlement: %w", err)
	}

	if c.OnMatchSettled != nil {
		c.OnMatchSettled()
	}
	if c.OnBetsScored != nil {
		c.OnBetsScored(len(scores))
	}

	round, err := c.store.GetRound(ctx, m.RoundID)
	if err != nil {
		c.fail("load_round")
		return nil, err
	}

	c.log.Info("match settled",
		zap.String("matchId", matchID),
		zap.String("roundId", round.ID),
		zap.Int("homeScore", homeScore),
		zap.Int("awayScore", awayScore),
		zap.Int("betsScored", len(scores)),
	)

	// Pós-commit: falha de publicação não desfaz a liquidação
	c.publishMatchSettled(ctx, m, round, homeScore, awayScore, len(scores), users)

	res := &Result{
		MatchID:    matchID,
		RoundID:    round.ID,
		HomeScore:  homeScore,
		AwayScore:  awayScore,
		BetsScored: len(scores),
	}

	finished, err := c.store.RoundFullyFinished(ctx, round.ID)
	if err != nil {
		c.fail("round_check")
		return nil, fmt.Errorf("round finished check: %w", err)
	}
	if !finished {
		return res, nil
	}

	// Todos os jogos acabaram: fecha apostas (se ainda não fechadas pelo
	// deadline) e tenta liquidar a rodada.
	if _, err := c.store.CompareAndSetRoundStatus(ctx, round.ID, rounds.StatusActive, rounds.StatusClosed); err != nil {
		c.fail("close_round")
		return nil, fmt.Errorf("close round: %w", err)
	}

	alloc, err := c.settleRound(ctx, round)
	if err != nil {
		return nil, err
	}
	if alloc != nil {
		res.RoundSettled = true
		res.Allocation = alloc
	}
	return res, nil
}

// SettleRound tenta a transição closed->settled da rodada e, vencendo o
// compare-and-set, calcula a premiação. Exposta para o endpoint de alocação
// manual e para o lifecycle-worker.
func (c *Coordinator) SettleRound(ctx context.Context, roundID string) (*prizes.Allocation, error) {
	round, err := c.store.GetRound(ctx, roundID)
	if err != nil {
		return nil, err
	}

	if round.Status == rounds.StatusSettled {
		// Rodada já liquidada: reexecução da alocação é no-op por marcador
		return c.allocator.Allocate(ctx, roundID)
	}

	finished, err := c.store.RoundFullyFinished(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("round finished check: %w", err)
	}
	if !finished {
		return nil, rounds.ErrIncompleteSettlement
	}

	return c.settleRound(ctx, round)
}

// settleRound executa a transição terminal e a premiação. Retorna nil quando
// outro chamador concorrente venceu o CAS (a rodada será liquidada por ele).
func (c *Coordinator) settleRound(ctx context.Context, round *rounds.Round) (*prizes.Allocation, error) {
	scored, err := c.store.RoundFullyScored(ctx, round.ID)
	if err != nil {
		c.fail("scored_check")
		return nil, fmt.Errorf("round scored check: %w", err)
	}
	if !scored {
		return nil, rounds.ErrIncompleteSettlement
	}

	won, err := c.store.CompareAndSetRoundStatus(ctx, round.ID, rounds.StatusClosed, rounds.StatusSettled)
	if err != nil {
		c.fail("settle_cas")
		return nil, fmt.Errorf("settle round: %w", err)
	}
	if !won {
		return nil, nil
	}

	alloc, err := c.allocator.Allocate(ctx, round.ID)
	if err != nil {
		c.fail("allocate")
		return nil, fmt.Errorf("allocate prizes: %w", err)
	}

	if c.OnRoundSettled != nil {
		c.OnRoundSettled()
	}
	c.log.Info("round settled",
		zap.String("roundId", round.ID),
		zap.Int64("poolCents", alloc.PoolCents),
		zap.Int("winners", len(alloc.Winners)),
	)

	c.publishRoundSettled(ctx, round, alloc)
	return alloc, nil
}

func (c *Coordinator) publishMatchSettled(ctx context.Context, m *rounds.Match, round *rounds.Round, home, away, scored int, users []string) {
	e := ev.MatchSettled{
		MatchID:       m.ID,
		RoundID:       round.ID,
		CompetitionID: round.CompetitionID,
		HomeScore:     home,
		AwayScore:     away,
		BetsScored:    scored,
		UserIDs:       users,
		TsUnixMs:      time.Now().UnixMilli(),
	}
	if err := c.bus.PublishMatchSettled(ctx, e); err != nil {
		c.log.Warn("publish match_settled", zap.Error(err))
		c.fail("publish")
	}
	if err := c.broadcast.RankingChanged(ctx, round.CompetitionID); err != nil {
		c.log.Warn("ranking broadcast", zap.Error(err))
	}
}

func (c *Coordinator) publishRoundSettled(ctx context.Context, round *rounds.Round, alloc *prizes.Allocation) {
	scores, err := c.store.RoundTicketScores(ctx, round.ID)
	if err != nil {
		c.log.Warn("load ticket scores for event", zap.Error(err))
		c.fail("publish")
		return
	}

	winners := make(map[string]int64, len(alloc.Winners))
	for _, w := range alloc.Winners {
		winners[w.TicketID] = w.ShareCents
	}

	e := ev.RoundSettled{
		RoundID:       round.ID,
		RoundName:     round.Name,
		CompetitionID: round.CompetitionID,
		TopScore:      alloc.TopScore,
		PoolCents:     alloc.PoolCents,
		TotalWinners:  len(alloc.Winners),
		Ts:            time.Now().UTC(),
	}
	if n := int64(len(alloc.Winners)); n > 0 {
		e.PerWinnerCents = alloc.PoolCents / n
	}
	for _, t := range scores {
		prize, winner := winners[t.TicketID]
		e.Holders = append(e.Holders, ev.HolderResult{
			UserID:     t.UserID,
			TicketID:   t.TicketID,
			Points:     t.Points,
			Winner:     winner,
			PrizeCents: prize,
		})
	}

	if err := c.bus.PublishRoundSettled(ctx, e); err != nil {
		c.log.Warn("publish round_settled", zap.Error(err))
		c.fail("publish")
	}
	if err := c.broadcast.RankingChanged(ctx, round.CompetitionID); err != nil {
		c.log.Warn("ranking broadcast", zap.Error(err))
	}
}

func (c *Coordinator) fail(stage string) {
	if c.OnError != nil {
		c.OnError(stage)
	}
}
