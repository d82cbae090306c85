package pipeline

import (
	"time"

	"github.com/aegismail/threat-engine/internal/domain"
	"github.com/google/uuid"
)

// Thresholds map the aggregated 0-100 score to a verdict category.
// They are tenant policy; the defaults align with the attachment risk-level
// buckets so a critical attachment alone is enough to block.
type Thresholds struct {
	Suspicious int `yaml:"suspicious"`
	Quarantine int `yaml:"quarantine"`
	Block      int `yaml:"block"`
}

// DefaultThresholds returns the standard verdict cutoffs
func DefaultThresholds() Thresholds {
	return Thresholds{Suspicious: 40, Quarantine: 60, Block: 80}
}

// Aggregator combines the results of all registered layers into one verdict.
//
// Contract: the verdict is monotonic in each layer's score, the overall
// confidence never exceeds the highest confidence of any layer that actually
// ran, and the in-order union of all layer signals is preserved for audit.
type Aggregator struct {
	thresholds Thresholds
}

// NewAggregator creates a verdict aggregator with the given thresholds
func NewAggregator(thresholds Thresholds) *Aggregator {
	return &Aggregator{thresholds: thresholds}
}

// Aggregate combines layer results into the final verdict.
//
// Scoring mirrors the sandbox layer's own attachment combination: the worst
// layer counts fully and every other non-skipped layer scoring above 20 adds
// 10% of its score, capped at 100. Confidence is the score-weighted average
// of the non-skipped layers' confidences, which keeps it at or below the
// best-informed layer; skipped layers contribute neither score nor
// confidence.
func (a *Aggregator) Aggregate(tenantID uuid.UUID, layers []domain.LayerResult) domain.Verdict {
	verdict := domain.Verdict{
		ID:         uuid.New(),
		TenantID:   tenantID,
		Signals:    []domain.Signal{},
		Layers:     layers,
		AnalyzedAt: time.Now(),
	}

	var active []domain.LayerResult
	for _, layer := range layers {
		verdict.Signals = append(verdict.Signals, layer.Signals...)
		if !layer.Skipped {
			active = append(active, layer)
		}
	}

	if len(active) == 0 {
		// Nothing ran; the verdict can only be pass, with confidence no
		// better than the least certain skip
		verdict.Category = domain.VerdictPass
		verdict.Confidence = minSkipConfidence(layers)
		return verdict
	}

	maxIdx := 0
	for i, layer := range active {
		if layer.Score > active[maxIdx].Score {
			maxIdx = i
		}
	}

	score := float64(active[maxIdx].Score)
	for i, layer := range active {
		if i != maxIdx && layer.Score > 20 {
			score += 0.1 * float64(layer.Score)
		}
	}
	if score > 100 {
		score = 100
	}
	verdict.Score = int(score)

	weightSum := 0.0
	weighted := 0.0
	for _, layer := range active {
		// Weight each layer's confidence by its score plus one so zero-score
		// layers still count without dominating
		w := float64(layer.Score) + 1
		weighted += layer.Confidence * w
		weightSum += w
	}
	verdict.Confidence = weighted / weightSum

	verdict.Category = a.categorize(verdict.Score)
	return verdict
}

func (a *Aggregator) categorize(score int) domain.VerdictCategory {
	switch {
	case score >= a.thresholds.Block:
		return domain.VerdictBlock
	case score >= a.thresholds.Quarantine:
		return domain.VerdictQuarantine
	case score >= a.thresholds.Suspicious:
		return domain.VerdictSuspicious
	default:
		return domain.VerdictPass
	}
}

func minSkipConfidence(layers []domain.LayerResult) float64 {
	if len(layers) == 0 {
		return 0
	}
	lowest := layers[0].Confidence
	for _, layer := range layers[1:] {
		if layer.Confidence < lowest {
			lowest = layer.Confidence
		}
	}
	return lowest
}
