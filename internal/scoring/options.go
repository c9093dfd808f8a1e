package scoring

import (
	"fmt"
	"math"
)

// Component names, in evaluation order
const (
	ComponentEarningsHistory  = "earnings_history"
	ComponentWhisperGap       = "whisper_gap"
	ComponentAnalystRevisions = "analyst_revisions"
	ComponentGuidance         = "guidance"
	ComponentShortInterest    = "short_interest"
	ComponentTechnical        = "technical"
)

// Components lists component names in their fixed order
var Components = []string{
	ComponentEarningsHistory,
	ComponentWhisperGap,
	ComponentAnalystRevisions,
	ComponentGuidance,
	ComponentShortInterest,
	ComponentTechnical,
}

// Weights defines component weights for the total score.
// Weights need not sum to 1: the total is normalised by the weight sum.
type Weights struct {
	EarningsHistory  float64 `yaml:"earnings_history" json:"earnings_history"`   // 실적 이력 (기본: 0.25)
	WhisperGap       float64 `yaml:"whisper_gap" json:"whisper_gap"`             // 위스퍼 괴리 (기본: 0.20)
	AnalystRevisions float64 `yaml:"analyst_revisions" json:"analyst_revisions"` // 애널리스트 수정 (기본: 0.15)
	Guidance         float64 `yaml:"guidance" json:"guidance"`                   // 가이던스 (기본: 0.15)
	ShortInterest    float64 `yaml:"short_interest" json:"short_interest"`       // 공매도 (기본: 0.10)
	Technical        float64 `yaml:"technical" json:"technical"`                 // 기술적 (기본: 0.15)
}

// ByComponent returns the weights keyed by component name
func (w Weights) ByComponent() map[string]float64 {
	return map[string]float64{
		ComponentEarningsHistory:  w.EarningsHistory,
		ComponentWhisperGap:       w.WhisperGap,
		ComponentAnalystRevisions: w.AnalystRevisions,
		ComponentGuidance:         w.Guidance,
		ComponentShortInterest:    w.ShortInterest,
		ComponentTechnical:        w.Technical,
	}
}

// Sum returns the total weight
func (w Weights) Sum() float64 {
	return w.EarningsHistory + w.WhisperGap + w.AnalystRevisions +
		w.Guidance + w.ShortInterest + w.Technical
}

// Validate rejects negative or non-finite weights and a zero sum
func (w Weights) Validate() error {
	for _, name := range Components {
		v := w.ByComponent()[name]
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("weight %s must be a non-negative number, got %v", name, v)
		}
	}
	if w.Sum() <= 0 {
		return fmt.Errorf("weights must sum to more than zero")
	}
	return nil
}

// RecommendationBands are the minimum total scores per recommendation
type RecommendationBands struct {
	StrongBuy float64 `yaml:"strong_buy" json:"strong_buy"`
	Buy       float64 `yaml:"buy" json:"buy"`
	Hold      float64 `yaml:"hold" json:"hold"`
}

// ConfidenceBands map the spread of component scores to a confidence level
type ConfidenceBands struct {
	HighMaxStdDev   float64 `yaml:"high_max_stddev" json:"high_max_stddev"`
	MediumMaxStdDev float64 `yaml:"medium_max_stddev" json:"medium_max_stddev"`
	// MissingDowngrade is the number of neutral-filled components that
	// lowers confidence by one level
	MissingDowngrade int `yaml:"missing_downgrade" json:"missing_downgrade"`
}

// Bands groups recommendation and confidence bands
type Bands struct {
	Recommendation RecommendationBands `yaml:"recommendation" json:"recommendation"`
	Confidence     ConfidenceBands     `yaml:"confidence" json:"confidence"`
}

// RiskThresholds trigger risk factors
type RiskThresholds struct {
	ShortInterestChangePct float64 `yaml:"short_interest_change_pct" json:"short_interest_change_pct"`
	ImpliedMovePct         float64 `yaml:"implied_move_pct" json:"implied_move_pct"`
	MinBeatRate            float64 `yaml:"min_beat_rate" json:"min_beat_rate"`
}

// Options configures a Scorer
// ⭐ SSOT: 종합 점수 상수는 여기서만 정의
type Options struct {
	Weights             Weights        `yaml:"weights" json:"weights"`
	TechnicalDirectives []string       `yaml:"technical_directives" json:"technical_directives"`
	Bands               Bands          `yaml:"bands" json:"bands"`
	Risk                RiskThresholds `yaml:"risk" json:"risk"`
}

// DefaultOptions returns the built-in scoring configuration
func DefaultOptions() Options {
	return Options{
		Weights: Weights{
			EarningsHistory:  0.25,
			WhisperGap:       0.20,
			AnalystRevisions: 0.15,
			Guidance:         0.15,
			ShortInterest:    0.10,
			Technical:        0.15,
		},
		// Total: 100%
		TechnicalDirectives: []string{"rsi", "macd", "cci", "adx"},
		Bands: Bands{
			Recommendation: RecommendationBands{StrongBuy: 75, Buy: 60, Hold: 45},
			Confidence:     ConfidenceBands{HighMaxStdDev: 12, MediumMaxStdDev: 22, MissingDowngrade: 2},
		},
		Risk: RiskThresholds{
			ShortInterestChangePct: 20,
			ImpliedMovePct:         10,
			MinBeatRate:            0.5,
		},
	}
}

// Validate checks band ordering
func (b Bands) Validate() error {
	r := b.Recommendation
	if !(r.StrongBuy >= r.Buy && r.Buy >= r.Hold) {
		return fmt.Errorf("recommendation bands must satisfy strong_buy >= buy >= hold")
	}
	if r.StrongBuy > 100 || r.Hold < 0 {
		return fmt.Errorf("recommendation bands must lie in [0, 100]")
	}

	c := b.Confidence
	if c.HighMaxStdDev < 0 || c.HighMaxStdDev > c.MediumMaxStdDev {
		return fmt.Errorf("confidence bands must satisfy 0 <= high_max_stddev <= medium_max_stddev")
	}
	if c.MissingDowngrade < 0 {
		return fmt.Errorf("confidence missing_downgrade must not be negative")
	}
	return nil
}
