package scoring

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/wonny/tradepress/internal/contracts"
	"github.com/wonny/tradepress/internal/directives"
	"github.com/wonny/tradepress/pkg/logger"
	"github.com/wonny/tradepress/pkg/metrics"
)

// Scorer implements the earnings whisper composite score and ranking
// ⭐ SSOT: 종합 점수/랭킹 로직은 여기서만
type Scorer struct {
	opts      Options
	technical []directives.Directive
	configs   map[string]contracts.DirectiveConfig
	fallback  contracts.DirectiveConfig
	logger    *logger.Logger
	metrics   *metrics.Recorder
}

// Option customises a Scorer
type Option func(*Scorer)

// WithDirectiveConfigs sets per-directive overrides for the technical
// component; fallback applies to directives without an override.
func WithDirectiveConfigs(cfgs map[string]contracts.DirectiveConfig, fallback contracts.DirectiveConfig) Option {
	return func(s *Scorer) {
		s.configs = cfgs
		s.fallback = fallback
	}
}

// WithMetrics attaches a metrics recorder
func WithMetrics(m *metrics.Recorder) Option {
	return func(s *Scorer) {
		s.metrics = m
	}
}

// NewScorer creates a scorer. Technical directive codes are resolved
// against registry now; an unknown code is returned as an error.
func NewScorer(registry *directives.Registry, opts Options, log *logger.Logger, options ...Option) (*Scorer, error) {
	if registry == nil {
		return nil, fmt.Errorf("scoring: registry is required")
	}
	if err := opts.Weights.Validate(); err != nil {
		return nil, fmt.Errorf("scoring: %w", err)
	}
	if err := opts.Bands.Validate(); err != nil {
		return nil, fmt.Errorf("scoring: %w", err)
	}
	if log == nil {
		log = logger.Nop()
	}

	technical := make([]directives.Directive, 0, len(opts.TechnicalDirectives))
	for _, code := range opts.TechnicalDirectives {
		d, err := registry.Get(code)
		if err != nil {
			return nil, fmt.Errorf("scoring: technical component: %w", err)
		}
		technical = append(technical, d)
	}

	s := &Scorer{
		opts:      opts,
		technical: technical,
		logger:    log.WithComponent("scoring"),
	}
	for _, o := range options {
		o(s)
	}
	return s, nil
}

// Options returns the scorer configuration
func (s *Scorer) Options() Options {
	return s.opts
}

// ScoreAndRank scores every candidate and returns them sorted by total
// score descending. Equal totals keep their input order. Candidates
// without a symbol are skipped.
func (s *Scorer) ScoreAndRank(ctx context.Context, candidates []contracts.Candidate) ([]contracts.CompositeScoreResult, error) {
	start := time.Now()
	ranked := make([]contracts.CompositeScoreResult, 0, len(candidates))

	for i, c := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if strings.TrimSpace(c.Symbol) == "" {
			s.logger.WithFields(map[string]interface{}{
				"index":        i,
				"company_name": c.CompanyName,
			}).Warn("Candidate without symbol skipped")
			continue
		}

		ranked = append(ranked, s.ScoreCandidate(c))
	}

	// Sort by total score (descending), stable for ties
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].TotalScore > ranked[j].TotalScore
	})

	// Assign ranks
	for i := range ranked {
		ranked[i].Rank = i + 1
	}

	s.metrics.RecordRanking(time.Since(start), len(ranked))

	fields := map[string]interface{}{
		"candidates": len(candidates),
		"ranked":     len(ranked),
	}
	if len(ranked) > 0 {
		fields["top_symbol"] = ranked[0].Symbol
		fields["top_score"] = ranked[0].TotalScore
	}
	s.logger.WithFields(fields).Info("Ranking completed")

	return ranked, nil
}

// ScoreCandidate computes the composite score of one candidate. Rank is left 0.
func (s *Scorer) ScoreCandidate(c contracts.Candidate) (result contracts.CompositeScoreResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.WithFields(map[string]interface{}{
				"symbol": c.Symbol,
				"panic":  fmt.Sprint(r),
			}).Error("Candidate scoring failed")
			result = s.failedResult(c, fmt.Sprint(r))
		}
	}()

	var lackingTechnical []string
	evaluators := map[string]func() componentScore{
		ComponentEarningsHistory:  func() componentScore { return earningsHistory(c) },
		ComponentWhisperGap:       func() componentScore { return whisperGap(c) },
		ComponentAnalystRevisions: func() componentScore { return analystRevisions(c) },
		ComponentGuidance:         func() componentScore { return guidance(c) },
		ComponentShortInterest:    func() componentScore { return shortInterest(c) },
		ComponentTechnical: func() componentScore {
			cs, lacking := s.technicalScore(c)
			lackingTechnical = lacking
			return cs
		},
	}

	breakdown := make(map[string]float64, len(Components))
	var present []float64
	var missing, failed []string

	for _, name := range Components {
		cs, ok := s.evaluate(c.Symbol, name, evaluators[name])
		breakdown[name] = round2(cs.score)

		switch {
		case !ok:
			failed = append(failed, name)
		case cs.missing:
			missing = append(missing, name)
		default:
			present = append(present, cs.score)
		}
	}

	total := round2(RecomputeTotal(breakdown, s.opts.Weights))

	return contracts.CompositeScoreResult{
		Symbol:          c.Symbol,
		CompanyName:     c.CompanyName,
		TotalScore:      total,
		ScoreBreakdown:  breakdown,
		Recommendation:  s.recommendation(total),
		ConfidenceLevel: s.confidence(present, len(missing)+len(failed)),
		RiskFactors:     s.riskFactors(c, missing, lackingTechnical, failed),
	}
}

// evaluate runs one component, turning a panic or a non-finite score into
// a neutral contribution. ok is false when the component failed.
func (s *Scorer) evaluate(symbol, name string, fn func() componentScore) (cs componentScore, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.WithFields(map[string]interface{}{
				"symbol":    symbol,
				"component": name,
				"panic":     fmt.Sprint(r),
			}).Warn("Scoring component failed, using neutral score")
			s.metrics.RecordComponentFailure(name)
			cs, ok = componentScore{score: directives.NeutralScore}, false
		}
	}()

	cs = fn()
	if math.IsNaN(cs.score) || math.IsInf(cs.score, 0) {
		panic(fmt.Sprintf("non-finite score %v", cs.score))
	}
	cs.score = directives.Clamp(cs.score)
	return cs, true
}

// technicalScore averages the configured directives over the candidate's
// snapshot. Directives lacking data are left out and reported.
func (s *Scorer) technicalScore(c contracts.Candidate) (componentScore, []string) {
	if c.Technical == nil || len(s.technical) == 0 {
		return neutral(), nil
	}

	var sum float64
	var n int
	var lacking []string
	for _, d := range s.technical {
		res := d.CalculateScore(*c.Technical, s.configFor(d.Code()))
		s.metrics.RecordDirective(res)

		if res.InsufficientData {
			lacking = append(lacking, res.Code)
			continue
		}
		sum += res.Score
		n++
	}

	if n == 0 {
		return neutral(), lacking
	}
	return componentScore{score: sum / float64(n)}, lacking
}

func (s *Scorer) configFor(code string) contracts.DirectiveConfig {
	if cfg, ok := s.configs[code]; ok {
		return cfg
	}
	return s.fallback
}

// RecomputeTotal is the total score formula: Σ wᵢ·sᵢ / Σ wᵢ over the
// components present in breakdown. Returns the neutral score when the
// weights of those components sum to zero.
func RecomputeTotal(breakdown map[string]float64, w Weights) float64 {
	weights := w.ByComponent()

	var weighted, sum float64
	for _, name := range Components {
		score, ok := breakdown[name]
		if !ok {
			continue
		}
		weighted += weights[name] * score
		sum += weights[name]
	}

	if sum == 0 {
		return directives.NeutralScore
	}
	return weighted / sum
}

func (s *Scorer) recommendation(total float64) string {
	b := s.opts.Bands.Recommendation
	switch {
	case total >= b.StrongBuy:
		return contracts.RecommendationStrongBuy
	case total >= b.Buy:
		return contracts.RecommendationBuy
	case total >= b.Hold:
		return contracts.RecommendationHold
	default:
		return contracts.RecommendationAvoid
	}
}

var confidenceLevels = []string{
	contracts.ConfidenceHigh,
	contracts.ConfidenceMedium,
	contracts.ConfidenceLow,
}

// confidence grades agreement between the components that had data.
// Fewer than two such components is always Low.
func (s *Scorer) confidence(present []float64, neutralFilled int) string {
	b := s.opts.Bands.Confidence

	level := 2
	if len(present) >= 2 {
		_, sd := stat.MeanStdDev(present, nil)
		switch {
		case sd <= b.HighMaxStdDev:
			level = 0
		case sd <= b.MediumMaxStdDev:
			level = 1
		}
	}

	if b.MissingDowngrade > 0 && neutralFilled >= b.MissingDowngrade && level < 2 {
		level++
	}
	return confidenceLevels[level]
}

// riskFactors lists triggered warnings in a fixed order
func (s *Scorer) riskFactors(c contracts.Candidate, missing, lackingTechnical, failed []string) []string {
	risk := s.opts.Risk
	factors := []string{}

	if c.Guidance == contracts.GuidanceLowered {
		factors = append(factors, "Guidance lowered")
	}
	if contracts.Finite(c.ShortInterestChangePct) && *c.ShortInterestChangePct >= risk.ShortInterestChangePct {
		factors = append(factors, fmt.Sprintf("Short interest rising (+%.1f%%)", *c.ShortInterestChangePct))
	}
	if contracts.Finite(c.ImpliedMovePct) && math.Abs(*c.ImpliedMovePct) >= risk.ImpliedMovePct {
		factors = append(factors, fmt.Sprintf("High implied move (±%.1f%%)", math.Abs(*c.ImpliedMovePct)))
	}
	if contracts.Finite(c.BeatRate) && *c.BeatRate < risk.MinBeatRate {
		factors = append(factors, fmt.Sprintf("Low beat rate (%.0f%%)", *c.BeatRate*100))
	}
	if c.RevisionsDown > c.RevisionsUp {
		factors = append(factors, fmt.Sprintf("Net negative analyst revisions (%d up / %d down)", c.RevisionsUp, c.RevisionsDown))
	}
	if contracts.Finite(c.WhisperEPS) && contracts.Finite(c.ConsensusEPS) && *c.WhisperEPS < *c.ConsensusEPS {
		factors = append(factors, fmt.Sprintf("Whisper below consensus (%.2f vs %.2f)", *c.WhisperEPS, *c.ConsensusEPS))
	}
	if len(missing) > 0 {
		factors = append(factors, "Missing data: "+strings.Join(missing, ", "))
	}
	if c.Technical != nil && len(lackingTechnical) > 0 {
		factors = append(factors, "Insufficient technical data: "+strings.Join(lackingTechnical, ", "))
	}
	for _, name := range failed {
		factors = append(factors, "Component failed: "+name)
	}

	return factors
}

func (s *Scorer) failedResult(c contracts.Candidate, reason string) contracts.CompositeScoreResult {
	breakdown := make(map[string]float64, len(Components))
	for _, name := range Components {
		breakdown[name] = directives.NeutralScore
	}

	total := round2(RecomputeTotal(breakdown, s.opts.Weights))
	return contracts.CompositeScoreResult{
		Symbol:          c.Symbol,
		CompanyName:     c.CompanyName,
		TotalScore:      total,
		ScoreBreakdown:  breakdown,
		Recommendation:  s.recommendation(total),
		ConfidenceLevel: contracts.ConfidenceLow,
		RiskFactors:     []string{"Scoring failed: " + reason},
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
