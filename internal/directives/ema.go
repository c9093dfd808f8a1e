package directives

import (
	"fmt"

	"github.com/wonny/tradepress/internal/contracts"
)

// EMADirective scores short/long EMA alignment and price position
type EMADirective struct{ meta }

// NewEMADirective creates the ema directive
func NewEMADirective() Directive {
	return &EMADirective{meta{
		code:        "ema",
		name:        "EMA Trend",
		description: "Short EMA above long EMA with price above both is bullish",
		fields:      []string{FieldPrice, FieldEMA},
		defaults: map[string]float64{
			"trend_bonus":    20,
			"position_bonus": 15,
			"distance_bonus": 15,
			"distance_scale": 0.05,
		},
		checks: append(nonNegative("trend_bonus", "position_bonus", "distance_bonus"), greaterThan("distance_scale", 0)),
	}}
}

func (d *EMADirective) CalculateScore(data contracts.MarketDataSnapshot, cfg contracts.DirectiveConfig) contracts.DirectiveResult {
	return run(d, data, cfg, func(data contracts.MarketDataSnapshot, cfg contracts.DirectiveConfig) outcome {
		price := *data.Price
		e := *data.Technical.EMA

		values := map[string]float64{
			"price":     price,
			"ema_short": e.Short,
			"ema_long":  e.Long,
		}

		if e.Long == 0 {
			return outcome{
				score:     NeutralScore,
				condition: "no_baseline",
				values:    values,
				details:   "long EMA is zero",
			}
		}

		trend := sign(e.Short - e.Long)
		position := sign(price - e.Short)
		distance := (price - e.Long) / e.Long
		values["distance_pct"] = distance * 100

		score := NeutralScore +
			trend*cfg.Param("trend_bonus", 20) +
			position*cfg.Param("position_bonus", 15) +
			bound(ratio(distance, cfg.Param("distance_scale", 0.05)), -1, 1)*cfg.Param("distance_bonus", 15)

		condition := "mixed"
		switch {
		case trend > 0 && position > 0:
			condition = "bullish_alignment"
		case trend < 0 && position < 0:
			condition = "bearish_alignment"
		}

		return outcome{
			score:     score,
			condition: condition,
			values:    values,
			details: fmt.Sprintf("EMA%d %.2f vs EMA%d %.2f, price %.2f (%s)",
				e.ShortPeriod, e.Short, e.LongPeriod, e.Long, price, condition),
		}
	})
}
