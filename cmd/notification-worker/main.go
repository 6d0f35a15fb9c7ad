package main

import (
	"context"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/bolaofpt/bolao-core/internal/notify/consumer"
	"github.com/bolaofpt/bolao-core/internal/notify/repo"
	"github.com/bolaofpt/bolao-core/internal/shared/config"
	"github.com/bolaofpt/bolao-core/internal/shared/db"
	"github.com/bolaofpt/bolao-core/internal/shared/kafka"
	"github.com/bolaofpt/bolao-core/internal/shared/logger"
	"github.com/bolaofpt/bolao-core/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	// Consumer group notification-worker no tópico round_settled
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  strings.Split(cfg.KafkaBrokers, ","),
		GroupID:  "notification-worker",
		Topic:    cfg.TopicRoundSettled,
		MinBytes: 1e3,
		MaxBytes: 10e6,
	})
	defer reader.Close()

	var dlqWriter *kafkago.Writer
	if cfg.TopicRoundStlDLQ != "" {
		dlqWriter = kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicRoundStlDLQ)
		defer dlqWriter.Close()
	}

	consumed := prometheus.NewCounter(prometheus.CounterOpts{Name: "notif_messages_consumed_total", Help: "mensagens consumidas"})
	notified := prometheus.NewCounter(prometheus.CounterOpts{Name: "notif_notifications_written_total", Help: "notificações gravadas"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "notif_errors_total", Help: "erros por estágio"}, []string{"stage"})
	prometheus.MustRegister(consumed, notified, errorsBy)

	proc := &consumer.Processor{
		Log:        log,
		Reader:     reader,
		Repo:       repo.New(pg),
		DLQ:        dlqWriter,
		OnConsumed: func() { consumed.Inc() },
		OnNotified: func(n int) { notified.Add(float64(n)) },
		OnError:    func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
	}

	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		return pg.PingContext(ctx)
	})
	log.Info("metrics/health listening", zap.String("port", cfg.MetricsPort))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("notification-worker started", zap.String("consume", cfg.TopicRoundSettled))
	if err := proc.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("processor stopped with error", zap.Error(err))
	}
	log.Info("notification-worker stopped")
}
