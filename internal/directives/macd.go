package directives

import (
	"fmt"

	"github.com/wonny/tradepress/internal/contracts"
)

// MACDDirective scores the MACD line against its signal line and zero
type MACDDirective struct{ meta }

// NewMACDDirective creates the macd directive
func NewMACDDirective() Directive {
	return &MACDDirective{meta{
		code:        "macd",
		name:        "MACD Crossover",
		description: "MACD above signal and above zero is bullish; histogram adds momentum",
		fields:      []string{FieldMACD},
		defaults: map[string]float64{
			"crossover_bonus":      30,
			"zero_line_bonus":      15,
			"histogram_multiplier": 10,
			"histogram_cap":        10,
		},
		checks: nonNegative("crossover_bonus", "zero_line_bonus", "histogram_multiplier", "histogram_cap"),
	}}
}

func (d *MACDDirective) CalculateScore(data contracts.MarketDataSnapshot, cfg contracts.DirectiveConfig) contracts.DirectiveResult {
	return run(d, data, cfg, func(data contracts.MarketDataSnapshot, cfg contracts.DirectiveConfig) outcome {
		m := *data.Technical.MACD
		crossover := cfg.Param("crossover_bonus", 30)
		zeroLine := cfg.Param("zero_line_bonus", 15)
		histCap := cfg.Param("histogram_cap", 10)

		score := NeutralScore
		condition := "converged"
		switch {
		case m.MACD > m.Signal:
			score += crossover
			condition = "bullish_crossover"
		case m.MACD < m.Signal:
			score -= crossover
			condition = "bearish_crossover"
		}

		score += sign(m.MACD) * zeroLine

		histBonus := bound(m.Histogram*cfg.Param("histogram_multiplier", 10), -histCap, histCap)
		score += histBonus

		return outcome{
			score:     score,
			condition: condition,
			values: map[string]float64{
				"macd":      m.MACD,
				"signal":    m.Signal,
				"histogram": m.Histogram,
			},
			details: fmt.Sprintf("MACD %.4f vs signal %.4f (%s), histogram bonus %.2f", m.MACD, m.Signal, condition, histBonus),
		}
	})
}
