package contracts

import "time"

// Guidance direction reported with the last earnings release
type Guidance string

const (
	GuidanceRaised     Guidance = "raised"
	GuidanceMaintained Guidance = "maintained"
	GuidanceLowered    Guidance = "lowered"
	GuidanceNone       Guidance = ""
)

// Candidate is one company considered by the earnings whisper scorer.
// Pointer fields are optional; nil means the data was not available.
type Candidate struct {
	Symbol      string    `json:"symbol"`
	CompanyName string    `json:"company_name"`
	ReportDate  time.Time `json:"report_date,omitempty"`

	ConsensusEPS   *float64 `json:"consensus_eps,omitempty"`
	WhisperEPS     *float64 `json:"whisper_eps,omitempty"`
	BeatRate       *float64 `json:"beat_rate,omitempty"`        // 0 ~ 1, share of past quarters beating consensus
	AvgSurprisePct *float64 `json:"avg_surprise_pct,omitempty"` // mean EPS surprise, percent

	RevisionsUp   int      `json:"revisions_up"`
	RevisionsDown int      `json:"revisions_down"`
	Guidance      Guidance `json:"guidance,omitempty"`

	ShortInterestChangePct *float64 `json:"short_interest_change_pct,omitempty"`
	ImpliedMovePct         *float64 `json:"implied_move_pct,omitempty"`

	Technical *MarketDataSnapshot `json:"technical,omitempty"`
}

// Recommendation categories
const (
	RecommendationStrongBuy = "Strong Buy"
	RecommendationBuy       = "Buy"
	RecommendationHold      = "Hold"
	RecommendationAvoid     = "Avoid"
)

// Confidence levels
const (
	ConfidenceHigh   = "High"
	ConfidenceMedium = "Medium"
	ConfidenceLow    = "Low"
)

// CompositeScoreResult is the weighted score of one candidate
// ⭐ SSOT: 종합 점수 결과는 이 구조체로만 전달
type CompositeScoreResult struct {
	Symbol          string             `json:"symbol"`
	CompanyName     string             `json:"company_name"`
	Rank            int                `json:"rank"` // 1-based
	TotalScore      float64            `json:"total_score"`
	ScoreBreakdown  map[string]float64 `json:"score_breakdown"`
	Recommendation  string             `json:"recommendation"`
	ConfidenceLevel string             `json:"confidence_level"`
	RiskFactors     []string           `json:"risk_factors"`
}
