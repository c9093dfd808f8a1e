package directives

import (
	"fmt"
	"math"

	"github.com/wonny/tradepress/internal/contracts"
)

// CCIDirective scores the Commodity Channel Index
type CCIDirective struct{ meta }

// NewCCIDirective creates the cci directive
func NewCCIDirective() Directive {
	return &CCIDirective{meta{
		code:        "cci",
		name:        "Commodity Channel Index",
		description: "CCI below the oversold line is bullish, above the overbought line bearish",
		fields:      []string{FieldCCI},
		defaults: map[string]float64{
			"overbought":    100,
			"oversold":      -100,
			"extreme_range": 100,
		},
		checks: []paramCheck{lessThan("oversold", 0), greaterThan("overbought", 0), greaterThan("extreme_range", 0)},
	}}
}

func (d *CCIDirective) CalculateScore(data contracts.MarketDataSnapshot, cfg contracts.DirectiveConfig) contracts.DirectiveResult {
	return run(d, data, cfg, func(data contracts.MarketDataSnapshot, cfg contracts.DirectiveConfig) outcome {
		cci := *data.Technical.CCI
		overbought := cfg.Param("overbought", 100)
		oversold := cfg.Param("oversold", -100)
		extreme := cfg.Param("extreme_range", 100)

		var score float64
		var condition string
		switch {
		case cci <= oversold:
			score = 75 + math.Min(ratio(oversold-cci, extreme), 1)*25
			condition = "oversold"
		case cci < 0:
			score = NeutralScore + ratio(cci, oversold)*20
			condition = "approaching_oversold"
		case cci == 0:
			score = NeutralScore
			condition = "neutral"
		case cci < overbought:
			score = NeutralScore - ratio(cci, overbought)*20
			condition = "approaching_overbought"
		default:
			score = 25 - math.Min(ratio(cci-overbought, extreme), 1)*25
			condition = "overbought"
		}

		return outcome{
			score:     score,
			condition: condition,
			values:    map[string]float64{"cci_value": cci},
			details:   fmt.Sprintf("CCI %.2f (%s) against %.0f / %.0f", cci, condition, oversold, overbought),
		}
	})
}
