package events

// Evento publicado no tópico "match_settled" após a liquidação atômica
// de todas as apostas de um jogo.
type MatchSettled struct {
	MatchID       string   `json:"match_id"`
	RoundID       string   `json:"round_id"`
	CompetitionID string   `json:"competition_id"`
	HomeScore     int      `json:"home_score"`
	AwayScore     int      `json:"away_score"`
	BetsScored    int      `json:"bets_scored"`
	UserIDs       []string `json:"user_ids"` // usuários com apostas neste jogo
	TsUnixMs      int64    `json:"ts_unix_ms"`
}
