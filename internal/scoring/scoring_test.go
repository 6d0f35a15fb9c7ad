package scoring

import "testing"

func intp(v int) *int { return &v }

func TestOutcomeOf(t *testing.T) {
	cases := []struct {
		home, away int
		want       Outcome
	}{
		{2, 1, OutcomeHome},
		{0, 1, OutcomeAway},
		{0, 0, OutcomeDraw},
		{3, 3, OutcomeDraw},
	}
	for _, c := range cases {
		if got := OutcomeOf(c.home, c.away); got != c.want {
			t.Errorf("OutcomeOf(%d,%d) = %s, want %s", c.home, c.away, got, c.want)
		}
	}
}

func TestScore(t *testing.T) {
	rule := Default()

	cases := []struct {
		name       string
		p          Prediction
		home, away int
		want       int
	}{
		{"placar exato", Prediction{Outcome: OutcomeHome, HomeScore: intp(2), AwayScore: intp(1)}, 2, 1, 5},
		{"resultado certo placar errado", Prediction{Outcome: OutcomeHome, HomeScore: intp(1), AwayScore: intp(0)}, 2, 1, 3},
		{"resultado certo sem placar", Prediction{Outcome: OutcomeHome}, 2, 1, 3},
		{"resultado errado", Prediction{Outcome: OutcomeDraw}, 2, 1, 0},
		{"resultado errado com placar exato dele", Prediction{Outcome: OutcomeAway, HomeScore: intp(1), AwayScore: intp(2)}, 2, 1, 0},
		{"empate exato", Prediction{Outcome: OutcomeDraw, HomeScore: intp(1), AwayScore: intp(1)}, 1, 1, 5},
		{"empate sem placar", Prediction{Outcome: OutcomeDraw}, 0, 0, 3},
		{"placar parcial ignorado", Prediction{Outcome: OutcomeHome, HomeScore: intp(2)}, 2, 1, 3},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := rule.Score(c.p, c.home, c.away); got != c.want {
				t.Errorf("Score = %d, want %d", got, c.want)
			}
		})
	}
}

// A regra deve ser determinística: reexecução sempre produz o mesmo valor,
// e todo resultado está em {0, 3, 5}.
func TestScoreDeterministicAndBounded(t *testing.T) {
	rule := Default()
	allowed := map[int]bool{0: true, 3: true, 5: true}

	for home := 0; home <= 4; home++ {
		for away := 0; away <= 4; away++ {
			for _, out := range []Outcome{OutcomeHome, OutcomeDraw, OutcomeAway} {
				p := Prediction{Outcome: out, HomeScore: intp(2), AwayScore: intp(1)}
				first := rule.Score(p, home, away)
				for i := 0; i < 3; i++ {
					if got := rule.Score(p, home, away); got != first {
						t.Fatalf("Score not deterministic for %v %d-%d", out, home, away)
					}
				}
				if !allowed[first] {
					t.Fatalf("Score(%v, %d-%d) = %d outside {0,3,5}", out, home, away, first)
				}
			}
		}
	}
}
