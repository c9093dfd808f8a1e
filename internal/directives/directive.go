// Package directives holds the scoring rules that turn one technical
// indicator into a 0-100 opportunity score.
package directives

import (
	"fmt"
	"math"

	"github.com/wonny/tradepress/internal/contracts"
)

// Directive is a named scoring rule
// ⭐ SSOT: 모든 지시자는 이 인터페이스를 구현
type Directive interface {
	Code() string
	Name() string
	Description() string
	// RequiredFields lists snapshot fields (dotted paths) the rule reads
	RequiredFields() []string
	DefaultConfig() contracts.DirectiveConfig
	// CalculateScore never fails: missing input yields a neutral,
	// insufficient-data result
	CalculateScore(data contracts.MarketDataSnapshot, cfg contracts.DirectiveConfig) contracts.DirectiveResult
}

// Score bounds
const (
	MinScore     = 0.0
	MaxScore     = 100.0
	NeutralScore = 50.0
)

// Signal bands applied to the long-side score
const (
	StrongBullishAt = 80.0
	BullishAt       = 60.0
	NeutralAbove    = 40.0
	BearishAbove    = 20.0
)

// meta carries the descriptive part every directive shares
type meta struct {
	code        string
	name        string
	description string
	fields      []string
	defaults    map[string]float64
	checks      []paramCheck
}

func (m meta) Code() string        { return m.code }
func (m meta) Name() string        { return m.name }
func (m meta) Description() string { return m.description }

func (m meta) RequiredFields() []string {
	out := make([]string, len(m.fields))
	copy(out, m.fields)
	return out
}

func (m meta) DefaultConfig() contracts.DirectiveConfig {
	params := make(map[string]float64, len(m.defaults))
	for k, v := range m.defaults {
		params[k] = v
	}
	return contracts.DirectiveConfig{TradingMode: contracts.TradingModeLong, Params: params}
}

// outcome is the long-side evaluation a rule produces before shared post-processing
type outcome struct {
	score     float64
	condition string
	values    map[string]float64
	details   string
}

type scoreFunc func(data contracts.MarketDataSnapshot, cfg contracts.DirectiveConfig) outcome

// run merges defaults (all of them when a param is out of range), enforces
// the missing-data policy, clamps, labels and mirrors the score for short mode.
func run(d Directive, data contracts.MarketDataSnapshot, cfg contracts.DirectiveConfig, fn scoreFunc) contracts.DirectiveResult {
	paramErr := ValidateConfig(d, cfg)
	if paramErr != nil {
		// 범위 밖 파라미터는 무시하고 기본값으로 평가
		cfg = contracts.DirectiveConfig{TradingMode: cfg.TradingMode}
	}
	cfg = cfg.Merge(d.DefaultConfig())

	if field := firstMissing(data, d.RequiredFields()); field != "" {
		return insufficient(d.Code(), field, cfg.Mode())
	}

	o := fn(data, cfg)
	long := Clamp(o.score)
	if paramErr != nil {
		o.details += fmt.Sprintf(" (%v; defaults applied)", paramErr)
	}

	final := long
	if cfg.Mode() == contracts.TradingModeShort {
		final = MaxScore - long
	}

	return contracts.DirectiveResult{
		Code:               d.Code(),
		Score:              round2(final),
		Signal:             SignalFromScore(long),
		Condition:          o.condition,
		Values:             o.values,
		CalculationDetails: o.details,
		TradingMode:        cfg.Mode(),
	}
}

func insufficient(code, field string, mode contracts.TradingMode) contracts.DirectiveResult {
	return contracts.DirectiveResult{
		Code:               code,
		Score:              NeutralScore,
		Signal:             contracts.SignalInsufficientData,
		Condition:          "insufficient_data",
		CalculationDetails: fmt.Sprintf("missing %s, neutral score applied", field),
		TradingMode:        mode,
		InsufficientData:   true,
	}
}

// CheckRequired returns a *contracts.MissingDataError for the first required
// field of d that data does not carry.
func CheckRequired(d Directive, data contracts.MarketDataSnapshot) error {
	if field := firstMissing(data, d.RequiredFields()); field != "" {
		return &contracts.MissingDataError{Directive: d.Code(), Field: field}
	}
	return nil
}

// Clamp bounds a score to [0,100]; NaN becomes neutral
func Clamp(score float64) float64 {
	switch {
	case math.IsNaN(score):
		return NeutralScore
	case score < MinScore:
		return MinScore
	case score > MaxScore:
		return MaxScore
	default:
		return score
	}
}

// SignalFromScore maps a long-side score to its label
func SignalFromScore(score float64) string {
	switch {
	case score >= StrongBullishAt:
		return contracts.SignalStrongBullish
	case score >= BullishAt:
		return contracts.SignalBullish
	case score > NeutralAbove:
		return contracts.SignalNeutral
	case score > BearishAbove:
		return contracts.SignalBearish
	default:
		return contracts.SignalStrongBearish
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func ratio(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

func bound(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// oscillatorScore scores a 0-100 oscillator against oversold/overbought
// thresholds: oversold maps to 70..100, overbought to 30..0, the band
// between them linearly to 65..35.
func oscillatorScore(v, oversold, overbought float64) (float64, string) {
	switch {
	case v <= oversold:
		return 70 + ratio(oversold-v, oversold)*30, "oversold"
	case v >= overbought:
		return 30 - ratio(v-overbought, 100-overbought)*30, "overbought"
	default:
		mid := (oversold + overbought) / 2
		half := (overbought - oversold) / 2
		return NeutralScore + ratio(mid-v, half)*15, "neutral"
	}
}
