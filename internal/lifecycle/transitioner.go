package lifecycle

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/bolaofpt/bolao-core/internal/rounds"
)

// Store define a leitura/escrita usada pelas transições de ciclo de vida.
type Store interface {
	GetRound(ctx context.Context, roundID string) (*rounds.Round, error)
	RoundFullyFinished(ctx context.Context, roundID string) (bool, error)
	DueForActivation(ctx context.Context, now time.Time) ([]rounds.Round, error)
	DueForClose(ctx context.Context, now time.Time) ([]rounds.Round, error)
	DueForSettlement(ctx context.Context) ([]rounds.Round, error)
	CompareAndSetRoundStatus(ctx context.Context, roundID string, from, to rounds.Status) (bool, error)
}

// SettleFunc liquida uma rodada fechada (injeta o Coordinator.SettleRound).
type SettleFunc func(ctx context.Context, roundID string) error

// Transitioner aplica as transições do ciclo de vida das rodadas.
// Roda no lifecycle-worker (poll de baixa frequência) e atende o endpoint
// manual de transição do settlement-service.
type Transitioner struct {
	log    *zap.Logger
	store  Store
	settle SettleFunc
}

func New(log *zap.Logger, store Store, settle SettleFunc) *Transitioner {
	return &Transitioner{log: log, store: store, settle: settle}
}

// Tick varre as rodadas com transição pendente e as avança.
// Tolerante a concorrência: cada transição é um compare-and-set, perder a
// corrida apenas significa que outro processo já avançou a rodada.
func (t *Transitioner) Tick(ctx context.Context, now time.Time) {
	due, err := t.store.DueForActivation(ctx, now)
	if err != nil {
		t.log.Warn("list rounds due for activation", zap.Error(err))
	}
	for _, r := range due {
		if ok, err := t.store.CompareAndSetRoundStatus(ctx, r.ID, rounds.StatusUpcoming, rounds.StatusActive); err != nil {
			t.log.Warn("activate round", zap.String("roundId", r.ID), zap.Error(err))
		} else if ok {
			t.log.Info("round activated", zap.String("roundId", r.ID), zap.Int("number", r.Number))
		}
	}

	due, err = t.store.DueForClose(ctx, now)
	if err != nil {
		t.log.Warn("list rounds due for close", zap.Error(err))
	}
	for _, r := range due {
		if ok, err := t.store.CompareAndSetRoundStatus(ctx, r.ID, rounds.StatusActive, rounds.StatusClosed); err != nil {
			t.log.Warn("close round", zap.String("roundId", r.ID), zap.Error(err))
		} else if ok {
			t.log.Info("round closed", zap.String("roundId", r.ID), zap.Int("number", r.Number))
		}
	}

	if t.settle == nil {
		return
	}
	due, err = t.store.DueForSettlement(ctx)
	if err != nil {
		t.log.Warn("list rounds due for settlement", zap.Error(err))
	}
	for _, r := range due {
		if err := t.settle(ctx, r.ID); err != nil {
			t.log.Warn("settle round", zap.String("roundId", r.ID), zap.Error(err))
		}
	}
}

// TransitionRound aplica a próxima transição devida de uma rodada específica
// (gatilho manual do admin) e retorna o status resultante.
func (t *Transitioner) TransitionRound(ctx context.Context, roundID string, now time.Time) (rounds.Status, error) {
	r, err := t.store.GetRound(ctx, roundID)
	if err != nil {
		return "", err
	}

	switch r.Status {
	case rounds.StatusUpcoming:
		// Override manual: ativa mesmo antes de start_date
		if _, err := t.store.CompareAndSetRoundStatus(ctx, roundID, rounds.StatusUpcoming, rounds.StatusActive); err != nil {
			return "", err
		}
		return rounds.StatusActive, nil

	case rounds.StatusActive:
		finished, err := t.store.RoundFullyFinished(ctx, roundID)
		if err != nil {
			return "", err
		}
		if !now.Before(r.BetsDeadline) || finished {
			if _, err := t.store.CompareAndSetRoundStatus(ctx, roundID, rounds.StatusActive, rounds.StatusClosed); err != nil {
				return "", err
			}
			return rounds.StatusClosed, nil
		}
		return rounds.StatusActive, nil

	case rounds.StatusClosed:
		finished, err := t.store.RoundFullyFinished(ctx, roundID)
		if err != nil {
			return "", err
		}
		if !finished {
			return rounds.StatusClosed, rounds.ErrIncompleteSettlement
		}
		if t.settle != nil {
			if err := t.settle(ctx, roundID); err != nil {
				return rounds.StatusClosed, err
			}
		}
		return rounds.StatusSettled, nil
	}

	// settled é terminal
	return rounds.StatusSettled, nil
}
