package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/bolaofpt/bolao-core/internal/lifecycle"
	"github.com/bolaofpt/bolao-core/internal/prizes"
	"github.com/bolaofpt/bolao-core/internal/scoring"
	"github.com/bolaofpt/bolao-core/internal/settlement"
	httpapi "github.com/bolaofpt/bolao-core/internal/settlement/http"
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

	// Producers Kafka: um writer por tópico
	matchWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicMatchSettled)
	defer matchWriter.Close()
	roundWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicRoundSettled)
	defer roundWriter.Close()

	store := repo.NewPostgres(pg)
	allocator := prizes.NewAllocator(log, store)
	bus := producer.NewKafkaPublisher(matchWriter, roundWriter)
	broadcast := producer.NewRedisBroadcaster(redisClient, cfg.RedisRankingChannel)

	coord := settlement.NewCoordinator(log, store, scoring.Default(), allocator, bus, broadcast)

	// Métricas Prometheus por etapa da liquidação
	matchesSettled := prometheus.NewCounter(prometheus.CounterOpts{Name: "settlement_matches_settled_total", Help: "jogos liquidados"})
	betsScored := prometheus.NewCounter(prometheus.CounterOpts{Name: "settlement_bets_scored_total", Help: "apostas pontuadas"})
	roundsSettled := prometheus.NewCounter(prometheus.CounterOpts{Name: "settlement_rounds_settled_total", Help: "rodadas liquidadas"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "settlement_errors_total", Help: "erros por estágio"}, []string{"stage"})
	prometheus.MustRegister(matchesSettled, betsScored, roundsSettled, errorsBy)

	coord.OnMatchSettled = func() { matchesSettled.Inc() }
	coord.OnBetsScored = func(n int) { betsScored.Add(float64(n)) }
	coord.OnRoundSettled = func() { roundsSettled.Inc() }
	coord.OnError = func(stage string) { errorsBy.WithLabelValues(stage).Inc() }

	// Transitioner atende o gatilho manual do admin; o tick periódico fica
	// no lifecycle-worker.
	trans := lifecycle.New(log, store, func(ctx context.Context, roundID string) error {
		_, err := coord.SettleRound(ctx, roundID)
		return err
	})

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return err
		}
		return redisClient.Ping(ctx).Err()
	})
	log.Info("metrics/health listening", zap.String("port", cfg.MetricsPort))

	api := httpapi.NewAPI(log, coord, trans)
	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: api.Router(),
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		log.Info("settlement-service listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutCancel()
	_ = srv.Shutdown(shutCtx)
	_ = metricsSrv.Shutdown(shutCtx)
	log.Info("settlement-service stopped")
}
