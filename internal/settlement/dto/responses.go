package dto

type MatchResultResponse struct {
	MatchID     string `json:"match_id"`
	RoundID     string `json:"round_id"`
	HomeScore   int    `json:"home_score"`
	AwayScore   int    `json:"away_score"`
	BetsScored  int    `json:"bets_scored"`
	RoundClosed bool   `json:"round_closed"`
}

type TransitionResponse struct {
	RoundID string `json:"round_id"`
	Status  string `json:"status"`
}

type AllocationResponse struct {
	RoundID          string `json:"round_id"`
	PoolCents        int64  `json:"pool_cents"`
	TopScore         int    `json:"top_score"`
	TotalWinners     int    `json:"total_winners"`
	AlreadyAllocated bool   `json:"already_allocated"`
}
