package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/bolaofpt/bolao-core/internal/lifecycle"
	"github.com/bolaofpt/bolao-core/internal/rounds"
	"github.com/bolaofpt/bolao-core/internal/settlement"
	"github.com/bolaofpt/bolao-core/internal/settlement/dto"
)

// API expõe as operações administrativas de liquidação.
// O gateway autentica e repassa a identidade nos headers X-User-ID e
// X-User-Admin; aqui só conferimos a flag.
type API struct {
	Log         *zap.Logger
	Coordinator *settlement.Coordinator
	Lifecycle   *lifecycle.Transitioner

	validate *validator.Validate
}

func NewAPI(log *zap.Logger, c *settlement.Coordinator, t *lifecycle.Transitioner) *API {
	return &API{Log: log, Coordinator: c, Lifecycle: t, validate: validator.New()}
}

func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(a.requireAdmin)
	r.Post("/v1/matches/{id}/result", a.submitMatchResult)
	r.Post("/v1/rounds/{id}/transition", a.transitionRound)
	r.Post("/v1/rounds/{id}/allocate", a.allocatePrizes)
	return r
}

func (a *API) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-User-Admin") != "true" {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "admin only"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// submitMatchResult registra o placar final de um jogo e pontua todas as
// apostas dele. Repetir a chamada com o mesmo placar é inofensivo.
func (a *API) submitMatchResult(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "id")

	var req dto.MatchResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad json"})
		return
	}
	if err := a.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	res, err := a.Coordinator.SettleMatch(r.Context(), matchID, req.HomeScore, req.AwayScore)
	if err != nil {
		a.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.MatchResultResponse{
		MatchID:     res.MatchID,
		RoundID:     res.RoundID,
		HomeScore:   res.HomeScore,
		AwayScore:   res.AwayScore,
		BetsScored:  res.BetsScored,
		RoundClosed: res.RoundSettled,
	})
}

// transitionRound aplica a próxima transição devida da rodada (gatilho
// manual do admin, mesmo fluxo do worker de ciclo de vida).
func (a *API) transitionRound(w http.ResponseWriter, r *http.Request) {
	roundID := chi.URLParam(r, "id")

	st, err := a.Lifecycle.TransitionRound(r.Context(), roundID, time.Now())
	if err != nil {
		if errors.Is(err, rounds.ErrIncompleteSettlement) {
			writeJSON(w, http.StatusConflict, map[string]string{
				"error":  "round has unfinished matches",
				"status": string(st),
			})
			return
		}
		a.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransitionResponse{RoundID: roundID, Status: string(st)})
}

// allocatePrizes dispara a premiação de uma rodada já liquidada.
// Reexecutar devolve a alocação existente sem duplicar prêmios.
func (a *API) allocatePrizes(w http.ResponseWriter, r *http.Request) {
	roundID := chi.URLParam(r, "id")

	alloc, err := a.Coordinator.SettleRound(r.Context(), roundID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	if alloc == nil {
		// outro processo liquidou no mesmo instante; o resultado chega via evento
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "settling"})
		return
	}

	writeJSON(w, http.StatusOK, dto.AllocationResponse{
		RoundID:          alloc.RoundID,
		PoolCents:        alloc.PoolCents,
		TopScore:         alloc.TopScore,
		TotalWinners:     len(alloc.Winners),
		AlreadyAllocated: alloc.AlreadyAllocated,
	})
}

func (a *API) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, settlement.ErrMatchNotFound), errors.Is(err, settlement.ErrRoundNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, settlement.ErrInvalidScore):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "scores must be >= 0"})
	case errors.Is(err, rounds.ErrIncompleteSettlement):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "round has unfinished matches"})
	default:
		a.Log.Error("settlement api", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
