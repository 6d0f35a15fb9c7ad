package scoring

// Outcome é o resultado 1x2 de um jogo, do ponto de vista do mandante.
type Outcome string

const (
	OutcomeHome Outcome = "HOME"
	OutcomeDraw Outcome = "DRAW"
	OutcomeAway Outcome = "AWAY"
)

// Valid informa se o palpite é um dos três resultados conhecidos.
func (o Outcome) Valid() bool {
	return o == OutcomeHome || o == OutcomeDraw || o == OutcomeAway
}

// OutcomeOf deriva o resultado real a partir do placar final.
func OutcomeOf(homeScore, awayScore int) Outcome {
	switch {
	case homeScore > awayScore:
		return OutcomeHome
	case homeScore < awayScore:
		return OutcomeAway
	default:
		return OutcomeDraw
	}
}

// Prediction é o palpite de uma aposta: resultado 1x2 obrigatório,
// placar exato opcional.
type Prediction struct {
	Outcome   Outcome
	HomeScore *int
	AwayScore *int
}

// Rule calcula os pontos de um palpite dado o placar final.
// Função total e determinística: pode ser reexecutada qualquer número de
// vezes sobre as mesmas entradas com o mesmo resultado (pré-requisito da
// liquidação idempotente).
type Rule interface {
	Score(p Prediction, homeScore, awayScore int) int
}

// ExactScoreBonus é a regra vigente do bolão:
// resultado errado = 0, resultado certo = OutcomePoints,
// resultado certo com placar exato = ExactPoints.
type ExactScoreBonus struct {
	OutcomePoints int
	ExactPoints   int
}

// Default retorna a regra padrão (3 pontos resultado, 5 placar exato).
func Default() Rule {
	return ExactScoreBonus{OutcomePoints: 3, ExactPoints: 5}
}

func (r ExactScoreBonus) Score(p Prediction, homeScore, awayScore int) int {
	if p.Outcome != OutcomeOf(homeScore, awayScore) {
		return 0
	}
	if p.HomeScore != nil && p.AwayScore != nil &&
		*p.HomeScore == homeScore && *p.AwayScore == awayScore {
		return r.ExactPoints
	}
	return r.OutcomePoints
}
