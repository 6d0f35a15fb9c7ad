package prizes

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/bolaofpt/bolao-core/internal/rounds"
)

var (
	// ErrRoundNotFullySettled indica alocação antes da rodada estar liquidada
	ErrRoundNotFullySettled = errors.New("round not fully settled")
)

// TicketScore é a visão de uma cartela para o cálculo de premiação:
// pontuação somada dos palpites da rodada e situação de pagamento.
type TicketScore struct {
	TicketID   string
	UserID     string
	Points     int
	Paid       bool
	PaidAt     time.Time
	PriceCents int64
}

// Winner é uma cartela vencedora com sua cota do prêmio.
type Winner struct {
	TicketID   string
	UserID     string
	Points     int
	ShareCents int64
}

// Allocation é o resultado da premiação de uma rodada.
// Gravada uma única vez por rodada (marcador em round_settlements).
type Allocation struct {
	RoundID          string
	PoolCents        int64
	TopScore         int
	Winners          []Winner
	AlreadyAllocated bool
	AllocatedAt      time.Time
}

// Compute calcula a premiação em memória, sem efeitos colaterais.
//
// Regras:
//   - só cartelas pagas compõem o pool e concorrem ao prêmio;
//   - vencedoras são as cartelas pagas de maior pontuação (empate divide);
//   - a divisão é inteira em centavos; o resto é distribuído um centavo por
//     vencedora na ordem de paid_at crescente (desempate por ticket_id),
//     de modo que soma das cotas == pool, sempre.
//
// Pool vazio (nenhuma cartela paga) não é erro: registra zero vencedoras.
func Compute(roundID string, tickets []TicketScore) *Allocation {
	alloc := &Allocation{RoundID: roundID}

	var paid []TicketScore
	for _, t := range tickets {
		if !t.Paid {
			continue
		}
		paid = append(paid, t)
		alloc.PoolCents += t.PriceCents
	}
	if len(paid) == 0 {
		return alloc
	}

	top := paid[0].Points
	for _, t := range paid[1:] {
		if t.Points > top {
			top = t.Points
		}
	}
	alloc.TopScore = top

	var winners []TicketScore
	for _, t := range paid {
		if t.Points == top {
			winners = append(winners, t)
		}
	}

	// Ordem determinística para a sobra de centavos: quem pagou primeiro
	// leva os centavos extras.
	sort.Slice(winners, func(i, j int) bool {
		if !winners[i].PaidAt.Equal(winners[j].PaidAt) {
			return winners[i].PaidAt.Before(winners[j].PaidAt)
		}
		return winners[i].TicketID < winners[j].TicketID
	})

	n := int64(len(winners))
	base := alloc.PoolCents / n
	remainder := alloc.PoolCents % n

	for i, t := range winners {
		share := base
		if int64(i) < remainder {
			share++
		}
		alloc.Winners = append(alloc.Winners, Winner{
			TicketID:   t.TicketID,
			UserID:     t.UserID,
			Points:     t.Points,
			ShareCents: share,
		})
	}
	return alloc
}

// Store define a persistência usada pelo alocador.
type Store interface {
	RoundStatus(ctx context.Context, roundID string) (rounds.Status, error)
	// GetAllocation retorna a alocação já gravada, ou nil se inexistente
	GetAllocation(ctx context.Context, roundID string) (*Allocation, error)
	ListTicketScores(ctx context.Context, roundID string) ([]TicketScore, error)
	// SaveAllocation grava marcador e vencedoras em uma transação
	SaveAllocation(ctx context.Context, alloc *Allocation) error
}

// Allocator executa a premiação de uma rodada exatamente uma vez.
type Allocator struct {
	log   *zap.Logger
	store Store
}

func NewAllocator(log *zap.Logger, store Store) *Allocator {
	return &Allocator{log: log, store: store}
}

// Allocate calcula e grava a premiação da rodada.
// Reexecução sobre rodada já premiada é no-op: devolve a alocação gravada
// com AlreadyAllocated=true e não emite nada de novo.
func (a *Allocator) Allocate(ctx context.Context, roundID string) (*Allocation, error) {
	st, err := a.store.RoundStatus(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("round status: %w", err)
	}
	if st != rounds.StatusSettled {
		return nil, ErrRoundNotFullySettled
	}

	if existing, err := a.store.GetAllocation(ctx, roundID); err != nil {
		return nil, fmt.Errorf("get allocation: %w", err)
	} else if existing != nil {
		existing.AlreadyAllocated = true
		return existing, nil
	}

	tickets, err := a.store.ListTicketScores(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("list ticket scores: %w", err)
	}

	alloc := Compute(roundID, tickets)
	alloc.AllocatedAt = time.Now().UTC()

	if err := a.store.SaveAllocation(ctx, alloc); err != nil {
		return nil, fmt.Errorf("save allocation: %w", err)
	}

	a.log.Info("prizes allocated",
		zap.String("roundId", roundID),
		zap.Int64("poolCents", alloc.PoolCents),
		zap.Int("winners", len(alloc.Winners)),
		zap.Int("topScore", alloc.TopScore),
	)
	return alloc, nil
}
