package consumer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/bolaofpt/bolao-core/internal/notify"
	"github.com/bolaofpt/bolao-core/internal/notify/repo"
	sharedkafka "github.com/bolaofpt/bolao-core/internal/shared/kafka"
	ev "github.com/bolaofpt/bolao-core/pkg/contracts/events"
)

// Processor consome eventos round_settled do Kafka e grava as
// notificações de cada participante no banco.
// Callbacks de métricas podem ser usadas para monitoramento de cada etapa
type Processor struct {
	Log    *zap.Logger
	Reader *kafka.Reader
	Repo   *repo.Postgres
	DLQ    *kafka.Writer // opcional

	OnConsumed func()       // métricas (counter++)
	OnNotified func(n int)  // métricas: notificações gravadas
	OnError    func(string) // métricas por fase
}

// Run inicia o loop principal de consumo e processamento das mensagens Kafka
func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Log.Warn("kafka read failed", zap.Error(err))
			if p.OnError != nil {
				p.OnError("read")
			}
			time.Sleep(500 * time.Millisecond)
			continue
		}

		if p.OnConsumed != nil {
			p.OnConsumed()
		}

		var e ev.RoundSettled
		if err := json.Unmarshal(m.Value, &e); err != nil {
			p.Log.Warn("invalid message", zap.Error(err))
			if p.OnError != nil {
				p.OnError("decode")
			}
			// mensagem malformada nunca vai processar; manda para a DLQ
			p.toDLQ(ctx, m)
			continue
		}

		ns := notify.FromRoundSettled(e)
		if err := p.Repo.InsertBatch(ctx, ns); err != nil {
			p.Log.Error("insert notifications", zap.String("roundId", e.RoundID), zap.Error(err))
			if p.OnError != nil {
				p.OnError("db_insert")
			}
			p.toDLQ(ctx, m)
			continue
		}

		if p.OnNotified != nil {
			p.OnNotified(len(ns))
		}
		p.Log.Info("round settled notified",
			zap.String("roundId", e.RoundID),
			zap.Int("holders", len(e.Holders)),
			zap.Int("winners", e.TotalWinners),
		)
	}
}

func (p *Processor) toDLQ(ctx context.Context, m kafka.Message) {
	if p.DLQ == nil {
		return
	}
	if err := sharedkafka.WriteJSON(ctx, p.DLQ, string(m.Key), m.Value); err != nil {
		p.Log.Error("dlq write", zap.Error(err))
	}
}
