package dto

// MatchResultRequest é o placar final informado pelo admin.
type MatchResultRequest struct {
	HomeScore int `json:"home_score" validate:"min=0"`
	AwayScore int `json:"away_score" validate:"min=0"`
}
