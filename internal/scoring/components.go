package scoring

import (
	"math"

	"github.com/wonny/tradepress/internal/contracts"
	"github.com/wonny/tradepress/internal/directives"
)

// componentScore is one evaluated component. missing means the candidate
// carried no data for it and the neutral score was used.
type componentScore struct {
	score   float64
	missing bool
}

func neutral() componentScore {
	return componentScore{score: directives.NeutralScore, missing: true}
}

// earningsHistory blends the historical beat rate with the average surprise
func earningsHistory(c contracts.Candidate) componentScore {
	hasBeat := contracts.Finite(c.BeatRate)
	hasSurprise := contracts.Finite(c.AvgSurprisePct)

	switch {
	case hasBeat && hasSurprise:
		return componentScore{score: 0.6*beatScore(*c.BeatRate) + 0.4*surpriseScore(*c.AvgSurprisePct)}
	case hasBeat:
		return componentScore{score: beatScore(*c.BeatRate)}
	case hasSurprise:
		return componentScore{score: surpriseScore(*c.AvgSurprisePct)}
	default:
		return neutral()
	}
}

func beatScore(rate float64) float64 {
	return clamp01(rate) * 100
}

// ±10% average surprise spans the full range
func surpriseScore(pct float64) float64 {
	return 50 + math.Max(-10, math.Min(10, pct))*5
}

// whisperGap scores the whisper number against consensus: a whisper above
// consensus means the street expects a beat
func whisperGap(c contracts.Candidate) componentScore {
	if !contracts.Finite(c.ConsensusEPS) || !contracts.Finite(c.WhisperEPS) {
		return neutral()
	}
	return componentScore{score: surpriseScore(gapPct(*c.WhisperEPS, *c.ConsensusEPS))}
}

// gapPct is the whisper/consensus gap in percent of |consensus|.
// Consensus close to zero is floored at 0.01.
func gapPct(whisper, consensus float64) float64 {
	base := math.Max(math.Abs(consensus), 0.01)
	return (whisper - consensus) / base * 100
}

// analystRevisions scores net revisions, scaled by how many there were
func analystRevisions(c contracts.Candidate) componentScore {
	up, down := float64(max(c.RevisionsUp, 0)), float64(max(c.RevisionsDown, 0))
	total := up + down
	if total == 0 {
		return componentScore{score: directives.NeutralScore}
	}

	coverage := math.Min(total/5, 1)
	return componentScore{score: 50 + (up-down)/total*50*coverage}
}

func guidance(c contracts.Candidate) componentScore {
	switch c.Guidance {
	case contracts.GuidanceRaised:
		return componentScore{score: 80}
	case contracts.GuidanceMaintained:
		return componentScore{score: 55}
	case contracts.GuidanceLowered:
		return componentScore{score: 20}
	default:
		return neutral()
	}
}

// shortInterest: rising short interest is bearish, ±25% spans the range
func shortInterest(c contracts.Candidate) componentScore {
	if !contracts.Finite(c.ShortInterestChangePct) {
		return neutral()
	}
	change := math.Max(-25, math.Min(25, *c.ShortInterestChangePct))
	return componentScore{score: 50 - change*2}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
