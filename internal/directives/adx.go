package directives

import (
	"fmt"
	"math"

	"github.com/wonny/tradepress/internal/contracts"
)

// ADXDirective scores trend strength in the direction of the dominant DI
type ADXDirective struct{ meta }

// NewADXDirective creates the adx directive
func NewADXDirective() Directive {
	return &ADXDirective{meta{
		code:        "adx",
		name:        "Average Directional Index",
		description: "Strong trends score away from neutral in the +DI/-DI direction",
		fields:      []string{FieldADX},
		defaults: map[string]float64{
			"weak_trend":   20,
			"strong_trend": 40,
			"base_bonus":   15,
			"max_bonus":    35,
		},
		checks: append([]paramCheck{within("weak_trend", 0, 100), within("strong_trend", 0, 100), ordered("weak_trend", "strong_trend")}, nonNegative("base_bonus", "max_bonus")...),
	}}
}

func (d *ADXDirective) CalculateScore(data contracts.MarketDataSnapshot, cfg contracts.DirectiveConfig) contracts.DirectiveResult {
	return run(d, data, cfg, func(data contracts.MarketDataSnapshot, cfg contracts.DirectiveConfig) outcome {
		a := *data.Technical.ADX
		weak := cfg.Param("weak_trend", 20)
		strong := cfg.Param("strong_trend", 40)

		values := map[string]float64{"adx_value": a.ADX}
		if contracts.Finite(a.PlusDI) {
			values["plus_di"] = *a.PlusDI
		}
		if contracts.Finite(a.MinusDI) {
			values["minus_di"] = *a.MinusDI
		}

		if a.ADX < weak {
			return outcome{
				score:     NeutralScore,
				condition: "weak_trend",
				values:    values,
				details:   fmt.Sprintf("ADX %.2f below %.0f: no tradable trend", a.ADX, weak),
			}
		}

		if !contracts.Finite(a.PlusDI) || !contracts.Finite(a.MinusDI) || *a.PlusDI == *a.MinusDI {
			return outcome{
				score:     NeutralScore,
				condition: "trend_without_direction",
				values:    values,
				details:   fmt.Sprintf("ADX %.2f without a dominant directional indicator", a.ADX),
			}
		}

		dir := sign(*a.PlusDI - *a.MinusDI)
		strength := math.Min(ratio(a.ADX-weak, strong-weak), 1)
		score := NeutralScore + dir*(cfg.Param("base_bonus", 15)+cfg.Param("max_bonus", 35)*strength)

		condition := "uptrend"
		if dir < 0 {
			condition = "downtrend"
		}
		if a.ADX >= strong {
			condition = "strong_" + condition
		}

		return outcome{
			score:     score,
			condition: condition,
			values:    values,
			details:   fmt.Sprintf("ADX %.2f (%s), +DI %.2f / -DI %.2f", a.ADX, condition, *a.PlusDI, *a.MinusDI),
		}
	})
}
