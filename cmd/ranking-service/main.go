package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/bolaofpt/bolao-core/internal/ranking"
	rcache "github.com/bolaofpt/bolao-core/internal/ranking/cache"
	httpapi "github.com/bolaofpt/bolao-core/internal/ranking/http"
	"github.com/bolaofpt/bolao-core/internal/ranking/repo"
	"github.com/bolaofpt/bolao-core/internal/ranking/ws"
	"github.com/bolaofpt/bolao-core/internal/shared/cache"
	"github.com/bolaofpt/bolao-core/internal/shared/config"
	"github.com/bolaofpt/bolao-core/internal/shared/db"
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

	agg := ranking.NewAggregator(&repo.ReadRepo{DB: pg})
	snapshots := rcache.New(redisClient)

	// Hub WebSocket do placar ao vivo; CORS liberado como no resto da API
	hub := ws.NewHub(func(*http.Request) bool { return true })

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Liquidações invalidam o snapshot e empurram o ranking novo pro hub
	ws.StartRedisSubscriber(ctx, log, redisClient, cfg.RedisRankingChannel, hub, func(ctx context.Context, competitionID string) (any, error) {
		_ = snapshots.Invalidate(ctx, competitionID)
		rows, err := agg.Ranking(ctx, ranking.Scope{CompetitionID: competitionID})
		if err != nil {
			return nil, err
		}
		_ = snapshots.SetRanking(ctx, competitionID, "", rows, 30*time.Second)
		return rows, nil
	})

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return err
		}
		return redisClient.Ping(ctx).Err()
	})
	log.Info("metrics/health listening", zap.String("port", cfg.MetricsPort))

	api := &httpapi.API{Agg: agg, Cache: snapshots, Hub: hub}
	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: api.Router(),
	}

	go func() {
		log.Info("ranking-service listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutCancel()
	_ = srv.Shutdown(shutCtx)
	_ = metricsSrv.Shutdown(shutCtx)
	log.Info("ranking-service stopped")
}
