package directives

import (
	"fmt"

	"github.com/wonny/tradepress/internal/contracts"
)

// RSIDirective scores the Relative Strength Index
type RSIDirective struct{ meta }

// NewRSIDirective creates the rsi directive
func NewRSIDirective() Directive {
	return &RSIDirective{meta{
		code:        "rsi",
		name:        "Relative Strength Index",
		description: "Oversold RSI raises the score, overbought RSI lowers it",
		fields:      []string{FieldRSI},
		defaults:    map[string]float64{"overbought": 70, "oversold": 30},
		checks:      oscillatorChecks(0, 100),
	}}
}

func (d *RSIDirective) CalculateScore(data contracts.MarketDataSnapshot, cfg contracts.DirectiveConfig) contracts.DirectiveResult {
	return run(d, data, cfg, func(data contracts.MarketDataSnapshot, cfg contracts.DirectiveConfig) outcome {
		rsi := *data.Technical.RSI
		oversold, overbought := cfg.Param("oversold", 30), cfg.Param("overbought", 70)

		score, condition := oscillatorScore(rsi, oversold, overbought)
		return outcome{
			score:     score,
			condition: condition,
			values:    map[string]float64{"rsi_value": rsi},
			details:   fmt.Sprintf("RSI %.2f against oversold %.0f / overbought %.0f", rsi, oversold, overbought),
		}
	})
}

// MFIDirective scores the Money Flow Index
type MFIDirective struct{ meta }

// NewMFIDirective creates the mfi directive
func NewMFIDirective() Directive {
	return &MFIDirective{meta{
		code:        "mfi",
		name:        "Money Flow Index",
		description: "Volume-weighted RSI; low money flow is bullish, high is bearish",
		fields:      []string{FieldMFI},
		defaults:    map[string]float64{"overbought": 80, "oversold": 20},
		checks:      oscillatorChecks(0, 100),
	}}
}

func (d *MFIDirective) CalculateScore(data contracts.MarketDataSnapshot, cfg contracts.DirectiveConfig) contracts.DirectiveResult {
	return run(d, data, cfg, func(data contracts.MarketDataSnapshot, cfg contracts.DirectiveConfig) outcome {
		mfi := *data.Technical.MFI
		oversold, overbought := cfg.Param("oversold", 20), cfg.Param("overbought", 80)

		score, condition := oscillatorScore(mfi, oversold, overbought)
		return outcome{
			score:     score,
			condition: condition,
			values:    map[string]float64{"mfi_value": mfi},
			details:   fmt.Sprintf("MFI %.2f against oversold %.0f / overbought %.0f", mfi, oversold, overbought),
		}
	})
}

// WilliamsRDirective scores Williams %R on its native [-100, 0] scale
type WilliamsRDirective struct{ meta }

// NewWilliamsRDirective creates the williams_r directive
func NewWilliamsRDirective() Directive {
	return &WilliamsRDirective{meta{
		code:        "williams_r",
		name:        "Williams %R",
		description: "Readings below -80 are oversold, above -20 overbought",
		fields:      []string{FieldWilliamsR},
		defaults:    map[string]float64{"overbought": -20, "oversold": -80},
		checks:      oscillatorChecks(-100, 0),
	}}
}

func (d *WilliamsRDirective) CalculateScore(data contracts.MarketDataSnapshot, cfg contracts.DirectiveConfig) contracts.DirectiveResult {
	return run(d, data, cfg, func(data contracts.MarketDataSnapshot, cfg contracts.DirectiveConfig) outcome {
		wr := *data.Technical.WilliamsR
		oversold, overbought := cfg.Param("oversold", -80), cfg.Param("overbought", -20)

		// shift onto 0..100 so the shared oscillator bands apply
		score, condition := oscillatorScore(wr+100, oversold+100, overbought+100)
		return outcome{
			score:     score,
			condition: condition,
			values:    map[string]float64{"williams_r_value": wr},
			details:   fmt.Sprintf("Williams %%R %.2f against oversold %.0f / overbought %.0f", wr, oversold, overbought),
		}
	})
}
