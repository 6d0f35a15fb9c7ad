package httpapi

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/bolaofpt/bolao-core/internal/notify"
	notifyrepo "github.com/bolaofpt/bolao-core/internal/notify/repo"
	"github.com/bolaofpt/bolao-core/internal/rounds"
	"github.com/bolaofpt/bolao-core/internal/scoring"
	"github.com/bolaofpt/bolao-core/internal/ticket-service/dto"
	"github.com/bolaofpt/bolao-core/internal/ticket-service/repo"
)

// API expõe a compra de cartelas, a tela de apostas e o sino de
// notificações. Identidade vem nos headers X-User-ID / X-User-Admin,
// preenchidos pelo gateway.
type API struct {
	Log     *zap.Logger
	Tickets *repo.Postgres
	Notif   *notifyrepo.Postgres

	validate *validator.Validate
}

func NewAPI(log *zap.Logger, tickets *repo.Postgres, notif *notifyrepo.Postgres) *API {
	return &API{Log: log, Tickets: tickets, Notif: notif, validate: validator.New()}
}

func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Post("/v1/tickets", a.createTicket)
	r.Get("/v1/tickets/{id}", a.getTicket)
	r.Get("/v1/rounds/active", a.getActiveRound)
	r.Get("/v1/rounds/{id}/matches", a.listRoundMatches)
	r.Get("/v1/users/{id}/notifications", a.listNotifications)
	r.Post("/v1/users/{id}/notifications/read", a.markRead)
	r.Post("/v1/users/{id}/notifications/read-all", a.markAllRead)
	r.Delete("/v1/notifications/{id}", a.deleteNotification)
	return r
}

func principal(r *http.Request) (userID string, admin bool) {
	return r.Header.Get("X-User-ID"), r.Header.Get("X-User-Admin") == "true"
}

// createTicket compra a cartela da rodada com a grade completa de
// palpites. Uma cartela por usuário por rodada; só com apostas abertas.
func (a *API) createTicket(w http.ResponseWriter, r *http.Request) {
	userID, _ := principal(r)
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing user"})
		return
	}

	var req dto.CreateTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad json"})
		return
	}
	if err := a.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	bets := make([]repo.TicketBet, 0, len(req.Bets))
	for _, b := range req.Bets {
		// Placar exato, quando informado, precisa ser coerente com o resultado
		if b.HomeScore != nil && b.AwayScore != nil {
			if scoring.OutcomeOf(*b.HomeScore, *b.AwayScore) != scoring.Outcome(b.Outcome) {
				writeJSON(w, http.StatusBadRequest, map[string]string{
					"error": "score and outcome disagree for match " + b.MatchID,
				})
				return
			}
		}
		bets = append(bets, repo.TicketBet{
			MatchID:          b.MatchID,
			PredictedOutcome: b.Outcome,
			PredictedHome:    b.HomeScore,
			PredictedAway:    b.AwayScore,
		})
	}

	ticketID, err := a.Tickets.CreateWithBets(r.Context(), userID, req.RoundID, bets)
	if err != nil {
		a.writeError(w, err)
		return
	}

	round, err := a.Tickets.GetRound(r.Context(), req.RoundID)
	if err != nil {
		a.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.CreateTicketResponse{
		TicketID:      ticketID,
		PaymentStatus: repo.PaymentPending,
		PriceCents:    round.TicketPriceCents,
	})
}

// getTicket retorna a cartela com os palpites. Só o dono ou admin.
func (a *API) getTicket(w http.ResponseWriter, r *http.Request) {
	userID, admin := principal(r)

	t, bets, err := a.Tickets.GetTicket(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	if t.UserID != userID && !admin {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not your ticket"})
		return
	}
	if bets == nil {
		bets = []repo.TicketBet{}
	}
	writeJSON(w, http.StatusOK, dto.TicketResponse{Ticket: *t, Bets: bets})
}

func (a *API) getActiveRound(w http.ResponseWriter, r *http.Request) {
	round, err := a.Tickets.ActiveRound(r.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.RoundResponse{
		ID:               round.ID,
		CompetitionID:    round.CompetitionID,
		Number:           round.Number,
		Name:             round.Name,
		Status:           string(round.Status),
		BetsDeadline:     round.BetsDeadline.Format(time.RFC3339),
		TicketPriceCents: round.TicketPriceCents,
	})
}

func (a *API) listRoundMatches(w http.ResponseWriter, r *http.Request) {
	ms, err := a.Tickets.ListRoundMatches(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	if ms == nil {
		ms = []repo.RoundMatch{}
	}
	writeJSON(w, http.StatusOK, ms)
}

// listNotifications devolve as últimas notificações do usuário e o
// contador de não lidas para o badge do sino.
func (a *API) listNotifications(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if !sameUserOrAdmin(r, userID) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
		return
	}

	ns, err := a.Notif.ListByUser(r.Context(), userID, 50)
	if err != nil {
		a.writeError(w, err)
		return
	}
	unread, err := a.Notif.UnreadCount(r.Context(), userID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	if ns == nil {
		ns = []notify.Notification{}
	}
	writeJSON(w, http.StatusOK, dto.NotificationsResponse{Notifications: ns, UnreadCount: unread})
}

func (a *API) markRead(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if !sameUserOrAdmin(r, userID) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
		return
	}

	var req dto.MarkReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad json"})
		return
	}
	if err := a.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	if err := a.Notif.MarkRead(r.Context(), userID, req.NotificationID); err != nil {
		a.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) markAllRead(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if !sameUserOrAdmin(r, userID) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
		return
	}
	if err := a.Notif.MarkAllRead(r.Context(), userID); err != nil {
		a.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) deleteNotification(w http.ResponseWriter, r *http.Request) {
	userID, _ := principal(r)
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing user"})
		return
	}
	if err := a.Notif.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		a.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func sameUserOrAdmin(r *http.Request, userID string) bool {
	id, admin := principal(r)
	return admin || (id != "" && id == userID)
}

func (a *API) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repo.ErrRoundNotFound), errors.Is(err, repo.ErrTicketNotFound), errors.Is(err, sql.ErrNoRows):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, rounds.ErrBettingClosed):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "betting closed"})
	case errors.Is(err, repo.ErrTicketExists):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "ticket already exists for this round"})
	case errors.Is(err, repo.ErrIncompleteSheet):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bet sheet must cover every match exactly once"})
	default:
		a.Log.Error("ticket api", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
