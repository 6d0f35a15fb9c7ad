package ws

// ClientMsg representa uma mensagem recebida do cliente WebSocket
// Type: subscribe | unsubscribe | ping
// CompetitionID: obrigatório para subscribe/unsubscribe
type ClientMsg struct {
	Type          string `json:"type"`
	CompetitionID string `json:"competitionId"`
}

// RankingUpdate é o snapshot enviado aos clientes quando o ranking muda
type RankingUpdate struct {
	CompetitionID string      `json:"competitionId"`
	Payload       interface{} `json:"payload"`
}
