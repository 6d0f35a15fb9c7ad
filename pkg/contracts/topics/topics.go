package topics

const (
	// Liquidação de resultados
	MatchSettled = "match_settled"
	RoundSettled = "round_settled"

	// DLQs
	RoundSettledDLQ = "round_settled_dlq"
)
