package rounds

import (
	"errors"
	"time"
)

// Status representa o ciclo de vida de uma rodada.
// Transições válidas: upcoming -> active -> closed -> settled.
// "settled" é terminal; nenhuma rodada regride.
type Status string

const (
	StatusUpcoming Status = "upcoming"
	StatusActive   Status = "active"
	StatusClosed   Status = "closed"
	StatusSettled  Status = "settled"
)

var (
	// ErrBettingClosed indica tentativa de criar/alterar aposta fora da janela de palpites
	ErrBettingClosed = errors.New("betting closed")
	// ErrIncompleteSettlement indica tentativa de liquidar rodada com jogo pendente
	ErrIncompleteSettlement = errors.New("incomplete settlement")
	// ErrInvalidTransition indica transição de status fora da ordem do ciclo de vida
	ErrInvalidTransition = errors.New("invalid round transition")
)

// Valid informa se o status é um dos quatro estados conhecidos.
func (s Status) Valid() bool {
	switch s {
	case StatusUpcoming, StatusActive, StatusClosed, StatusSettled:
		return true
	}
	return false
}

// CanTransitionTo valida a progressão monotônica do ciclo de vida.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusUpcoming:
		return next == StatusActive
	case StatusActive:
		return next == StatusClosed
	case StatusClosed:
		return next == StatusSettled
	}
	return false
}

// MatchStatus representa o andamento de um jogo.
type MatchStatus string

const (
	MatchScheduled MatchStatus = "scheduled"
	MatchLive      MatchStatus = "live"
	MatchFinished  MatchStatus = "finished"
)

// Round é uma rodada de apostas de uma competição.
type Round struct {
	ID               string
	CompetitionID    string
	Number           int
	Name             string
	StartDate        time.Time
	EndDate          time.Time
	BetsDeadline     time.Time
	TicketPriceCents int64
	Status           Status
	CreatedAt        time.Time
}

// BettingOpen informa se palpites ainda podem ser feitos nesta rodada.
// Exige status active e instante anterior ao deadline de apostas.
func (r *Round) BettingOpen(now time.Time) bool {
	return r.Status == StatusActive && now.Before(r.BetsDeadline)
}

// Match é um jogo dentro de uma rodada. Placares só existem quando finished.
type Match struct {
	ID          string
	RoundID     string
	HomeTeamID  string
	AwayTeamID  string
	ScheduledAt time.Time
	Status      MatchStatus
	HomeScore   *int
	AwayScore   *int
}

// Finished informa se o jogo já tem placar final.
func (m *Match) Finished() bool { return m.Status == MatchFinished }
