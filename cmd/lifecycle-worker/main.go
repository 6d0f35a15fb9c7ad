package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/bolaofpt/bolao-core/internal/lifecycle"
	"github.com/bolaofpt/bolao-core/internal/prizes"
	"github.com/bolaofpt/bolao-core/internal/scoring"
	"github.com/bolaofpt/bolao-core/internal/settlement"
	"github.com/bolaofpt/bolao-core/internal/settlement/producer"
	"github.com/bolaofpt/bolao-core/internal/settlement/repo"
	"github.com/bolaofpt/bolao-core/internal/shared/cache"
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

	redisClient, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	matchWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicMatchSettled)
	defer matchWriter.Close()
	roundWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicRoundSettled)
	defer roundWriter.Close()

	store := repo.NewPostgres(pg)
	allocator := prizes.NewAllocator(log, store)
	bus := producer.NewKafkaPublisher(matchWriter, roundWriter)
	broadcast := producer.NewRedisBroadcaster(redisClient, cfg.RedisRankingChannel)

	// O worker também sabe liquidar: uma rodada closed com todos os jogos
	// encerrados e pontuados é liquidada no próximo tick, mesmo que o
	// gatilho manual nunca venha.
	coord := settlement.NewCoordinator(log, store, scoring.Default(), allocator, bus, broadcast)

	ticks := prometheus.NewCounter(prometheus.CounterOpts{Name: "lifecycle_ticks_total", Help: "execuções do verificador"})
	prometheus.MustRegister(ticks)

	trans := lifecycle.New(log, store, func(ctx context.Context, roundID string) error {
		_, err := coord.SettleRound(ctx, roundID)
		return err
	})

	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		return pg.PingContext(ctx)
	})
	log.Info("metrics/health listening", zap.String("port", cfg.MetricsPort))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sched, err := gocron.NewScheduler()
	if err != nil {
		log.Fatal("scheduler init", zap.Error(err))
	}

	_, err = sched.NewJob(
		gocron.DurationJob(cfg.LifecycleInterval),
		gocron.NewTask(func() {
			ticks.Inc()
			trans.Tick(ctx, time.Now())
		}),
	)
	if err != nil {
		log.Fatal("schedule tick", zap.Error(err))
	}

	sched.Start()
	log.Info("lifecycle-worker started", zap.Duration("interval", cfg.LifecycleInterval))

	<-ctx.Done()
	_ = sched.Shutdown()
	log.Info("lifecycle-worker stopped")
}
