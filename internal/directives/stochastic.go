package directives

import (
	"fmt"

	"github.com/wonny/tradepress/internal/contracts"
)

// StochasticDirective scores %K zones with a %K/%D cross adjustment
type StochasticDirective struct{ meta }

// NewStochasticDirective creates the stochastic directive
func NewStochasticDirective() Directive {
	return &StochasticDirective{meta{
		code:        "stochastic",
		name:        "Stochastic Oscillator",
		description: "%K in the oversold zone is bullish; %K above %D adds momentum",
		fields:      []string{FieldStochastic},
		defaults: map[string]float64{
			"overbought":  80,
			"oversold":    20,
			"cross_bonus": 10,
		},
		checks: append(oscillatorChecks(0, 100), atLeast("cross_bonus", 0)),
	}}
}

func (d *StochasticDirective) CalculateScore(data contracts.MarketDataSnapshot, cfg contracts.DirectiveConfig) contracts.DirectiveResult {
	return run(d, data, cfg, func(data contracts.MarketDataSnapshot, cfg contracts.DirectiveConfig) outcome {
		st := *data.Technical.Stochastic

		score, condition := oscillatorScore(st.K, cfg.Param("oversold", 20), cfg.Param("overbought", 80))
		cross := sign(st.K-st.D) * cfg.Param("cross_bonus", 10)
		score += cross

		return outcome{
			score:     score,
			condition: condition,
			values:    map[string]float64{"k": st.K, "d": st.D},
			details:   fmt.Sprintf("%%K %.2f / %%D %.2f (%s), cross adjustment %+.0f", st.K, st.D, condition, cross),
		}
	})
}
