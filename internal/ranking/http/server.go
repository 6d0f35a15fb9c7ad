package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bolaofpt/bolao-core/internal/ranking"
	"github.com/bolaofpt/bolao-core/internal/ranking/cache"
	"github.com/bolaofpt/bolao-core/internal/ranking/ws"
)

// API expõe o endpoint REST de consulta de ranking e o WebSocket de
// atualizações ao vivo. Leitura preferencial do cache Redis.
type API struct {
	Agg   *ranking.Aggregator
	Cache *cache.Cache
	Hub   *ws.Hub
}

// Router retorna o roteador HTTP com os endpoints REST
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/v1/ranking", a.getRanking)
	r.Get("/ws/leaderboard", a.Hub.HandleWS)
	return r
}

// getRanking retorna o ranking da competição (ou de uma rodada),
// preferencialmente do cache
func (a *API) getRanking(w http.ResponseWriter, r *http.Request) {
	// Sem filtros retorna o ranking geral de todas as competições
	competitionID := r.URL.Query().Get("competition")
	roundID := r.URL.Query().Get("round")

	var fromCache []ranking.Row
	if ok, _ := a.Cache.GetRanking(r.Context(), competitionID, roundID, &fromCache); ok {
		writeJSON(w, http.StatusOK, fromCache)
		return
	}

	rows, err := a.Agg.Ranking(r.Context(), ranking.Scope{CompetitionID: competitionID, RoundID: roundID})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if rows == nil {
		rows = []ranking.Row{}
	}

	_ = a.Cache.SetRanking(r.Context(), competitionID, roundID, rows, 30*time.Second)
	writeJSON(w, http.StatusOK, rows)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
