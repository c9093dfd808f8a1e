package directives

import (
	"fmt"
	"math"

	"github.com/wonny/tradepress/internal/contracts"
)

// VolumeDirective scores volume relative to its average, signed by price direction
type VolumeDirective struct{ meta }

// NewVolumeDirective creates the volume directive
func NewVolumeDirective() Directive {
	return &VolumeDirective{meta{
		code:        "volume",
		name:        "Volume Surge",
		description: "Above-average volume confirms the direction of the price move",
		fields:      []string{FieldVolume, FieldAverageVolume, FieldChangePercent},
		defaults: map[string]float64{
			"surge_ratio": 1.5,
			"base_bonus":  10,
			"surge_bonus": 30,
		},
		checks: append([]paramCheck{greaterThan("surge_ratio", 1)}, nonNegative("base_bonus", "surge_bonus")...),
	}}
}

func (d *VolumeDirective) CalculateScore(data contracts.MarketDataSnapshot, cfg contracts.DirectiveConfig) contracts.DirectiveResult {
	return run(d, data, cfg, func(data contracts.MarketDataSnapshot, cfg contracts.DirectiveConfig) outcome {
		volume, avg, change := *data.Volume, *data.AverageVolume, *data.ChangePercent

		values := map[string]float64{
			"volume":         volume,
			"average_volume": avg,
			"change_percent": change,
		}

		if avg <= 0 {
			return outcome{
				score:     NeutralScore,
				condition: "no_average",
				values:    values,
				details:   "average volume is not positive",
			}
		}

		volumeRatio := volume / avg
		values["volume_ratio"] = volumeRatio
		dir := sign(change)
		surge := cfg.Param("surge_ratio", 1.5)

		if volumeRatio < 1 {
			return outcome{
				score:     NeutralScore + dir*5,
				condition: "below_average",
				values:    values,
				details:   fmt.Sprintf("volume %.2fx average, move %+.2f%% lacks confirmation", volumeRatio, change),
			}
		}

		intensity := math.Min(ratio(volumeRatio-1, surge-1), 2) / 2
		score := NeutralScore + dir*(cfg.Param("base_bonus", 10)+cfg.Param("surge_bonus", 30)*intensity)

		condition := "above_average"
		if volumeRatio >= surge {
			condition = "surge"
		}

		return outcome{
			score:     score,
			condition: condition,
			values:    values,
			details:   fmt.Sprintf("volume %.2fx average (%s) on a %+.2f%% move", volumeRatio, condition, change),
		}
	})
}
