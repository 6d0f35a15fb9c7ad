package main

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"

	"go.uber.org/zap"

	"github.com/bolaofpt/bolao-core/internal/shared/config"
	"github.com/bolaofpt/bolao-core/internal/shared/logger"
)

func rp(to string) *httputil.ReverseProxy {
	u, _ := url.Parse(to)
	return httputil.NewSingleHostReverseProxy(u)
}

func main() {
	cfg := config.Load()
	log, _ := logger.New(cfg.ServiceName, cfg.Env)
	defer log.Sync()

	// targets
	rankingURL := os.Getenv("RANKING_URL")
	if rankingURL == "" {
		rankingURL = "http://localhost:8080"
	}
	ticketURL := os.Getenv("TICKET_URL")
	if ticketURL == "" {
		ticketURL = "http://localhost:8082"
	}
	settlementURL := os.Getenv("SETTLEMENT_URL")
	if settlementURL == "" {
		settlementURL = "http://localhost:8083"
	}
	ranking := rp(rankingURL)
	ticket := rp(ticketURL)
	settlement := rp(settlementURL)

	mux := http.NewServeMux()

	// ranking + WebSocket do placar (ex.: /api/ranking/* -> ranking-service)
	mux.Handle("/api/ranking/", http.StripPrefix("/api/ranking", ranking))

	// cartelas e notificações (ex.: /api/tickets/* -> ticket-service)
	mux.Handle("/api/tickets/", http.StripPrefix("/api/tickets", ticket))

	// liquidação admin (ex.: /api/settlement/* -> settlement-service)
	mux.Handle("/api/settlement/", http.StripPrefix("/api/settlement", settlement))

	addr := ":" + cfg.HTTPPort
	log.Info("api-gateway listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, withCORS(mux)); err != nil && err != http.ErrServerClosed {
		log.Fatal("gateway failed", zap.Error(err))
	}
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-User-ID, X-User-Admin")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.ServeHTTP(w, r)
	})
}
