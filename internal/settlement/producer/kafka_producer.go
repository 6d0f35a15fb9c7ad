package producer

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"github.com/bolaofpt/bolao-core/pkg/contracts/events"
)

// KafkaPublisher publica os eventos de liquidação nos tópicos de domínio.
type KafkaPublisher struct {
	MatchWriter *kafka.Writer
	RoundWriter *kafka.Writer
}

func NewKafkaPublisher(matchWriter, roundWriter *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{MatchWriter: matchWriter, RoundWriter: roundWriter}
}

func (p *KafkaPublisher) PublishMatchSettled(ctx context.Context, e events.MatchSettled) error {
	b, _ := json.Marshal(e)
	return p.MatchWriter.WriteMessages(ctx, kafka.Message{Key: []byte(e.MatchID), Value: b})
}

func (p *KafkaPublisher) PublishRoundSettled(ctx context.Context, e events.RoundSettled) error {
	b, _ := json.Marshal(e)
	return p.RoundWriter.WriteMessages(ctx, kafka.Message{Key: []byte(e.RoundID), Value: b})
}
