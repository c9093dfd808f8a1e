package directives

import (
	"fmt"

	"github.com/wonny/tradepress/internal/contracts"
)

// BollingerDirective scores where price sits inside the bands (mean reversion)
type BollingerDirective struct{ meta }

// NewBollingerDirective creates the bollinger_bands directive
func NewBollingerDirective() Directive {
	return &BollingerDirective{meta{
		code:        "bollinger_bands",
		name:        "Bollinger Bands",
		description: "Price near the lower band is bullish, near the upper band bearish",
		fields:      []string{FieldPrice, FieldBollinger},
		defaults: map[string]float64{
			"near_band":   0.2,
			"sensitivity": 80,
		},
		checks: []paramCheck{within("near_band", 0, 0.5), atLeast("sensitivity", 0)},
	}}
}

func (d *BollingerDirective) CalculateScore(data contracts.MarketDataSnapshot, cfg contracts.DirectiveConfig) contracts.DirectiveResult {
	return run(d, data, cfg, func(data contracts.MarketDataSnapshot, cfg contracts.DirectiveConfig) outcome {
		price := *data.Price
		b := *data.Technical.Bollinger
		width := b.Upper - b.Lower

		values := map[string]float64{
			"price": price,
			"upper": b.Upper,
			"lower": b.Lower,
		}

		if width <= 0 {
			return outcome{
				score:     NeutralScore,
				condition: "collapsed_bands",
				values:    values,
				details:   "upper and lower bands coincide",
			}
		}

		position := (price - b.Lower) / width
		values["position"] = position
		values["bandwidth"] = ratio(width, b.Middle)

		near := cfg.Param("near_band", 0.2)
		var condition string
		switch {
		case position < 0:
			condition = "below_lower_band"
		case position < near:
			condition = "near_lower_band"
		case position > 1:
			condition = "above_upper_band"
		case position > 1-near:
			condition = "near_upper_band"
		default:
			condition = "inside_bands"
		}

		score := NeutralScore + (0.5-bound(position, -0.25, 1.25))*cfg.Param("sensitivity", 80)

		return outcome{
			score:     score,
			condition: condition,
			values:    values,
			details:   fmt.Sprintf("price %.2f at band position %.2f (%s)", price, position, condition),
		}
	})
}
