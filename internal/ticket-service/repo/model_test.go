package repo

import (
	"encoding/json"
	"strings"
	"testing"
)

// Palpite recém-comprado não tem pontuação; só a liquidação grava pontos.
// O JSON precisa distinguir "ainda não liquidado" de "liquidado com 0".
func TestTicketBetPointsNullUntilSettled(t *testing.T) {
	fresh := TicketBet{ID: "b1", TicketID: "t1", MatchID: "m1", PredictedOutcome: "HOME"}

	b, err := json.Marshal(fresh)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `"points":null`) {
		t.Fatalf("palpite não liquidado deve serializar points null, got %s", b)
	}

	zero := 0
	fresh.Points = &zero
	b, err = json.Marshal(fresh)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `"points":0`) {
		t.Fatalf("palpite liquidado com 0 deve serializar points 0, got %s", b)
	}
}
