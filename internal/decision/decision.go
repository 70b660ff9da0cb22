// Package decision turns weighted flags into a final score and verdict.
package decision

import (
	"fmt"
	"strings"

	"github.com/Timiochukwu/sentinel/internal/domain"
)

// Combiner aggregates flag scores, optionally blends an ML prediction, and
// classifies the result against the vertical's thresholds.
type Combiner struct {
	cfg domain.ScoringConfig
}

// NewCombiner creates a combiner. Zero-value config fields fall back to the
// standard ladder.
func NewCombiner(cfg domain.ScoringConfig) *Combiner {
	if cfg.CriticalCeiling <= 0 {
		cfg.CriticalCeiling = 80
	}
	if cfg.ReviewRatio <= 0 {
		cfg.ReviewRatio = 0.7
	}
	if cfg.MLBlendWeight <= 0 || cfg.MLBlendWeight > 1 {
		cfg.MLBlendWeight = 0.7
	}
	return &Combiner{cfg: cfg}
}

// Result is the combined verdict.
type Result struct {
	Score     float64
	RuleScore float64
	MLScore   *float64
	Level     domain.RiskLevel
	Decision  domain.Decision
}

// Combine applies the vertical's rule weights to the flags, sums and clamps
// to [0,100], blends ML when enabled, and classifies. The flags slice is
// rescaled in place so the persisted evaluation shows weighted scores.
func (c *Combiner) Combine(flags []domain.FraudFlag, mlProbability *float64, p *domain.VerticalPolicy) Result {
	var ruleScore float64
	for i := range flags {
		w := p.Weight(flags[i].Rule)
		if w != 1.0 {
			flags[i].Score *= w
		}
		ruleScore += flags[i].Score
	}
	ruleScore = clamp(ruleScore)

	score := ruleScore
	var mlScore *float64
	if c.cfg.MLEnabled && mlProbability != nil {
		ml := clamp(*mlProbability * 100)
		mlScore = &ml
		score = clamp(c.cfg.MLBlendWeight*ml + (1-c.cfg.MLBlendWeight)*ruleScore)
	}

	level, dec := c.classify(score, p)
	return Result{
		Score:     score,
		RuleScore: ruleScore,
		MLScore:   mlScore,
		Level:     level,
		Decision:  dec,
	}
}

func (c *Combiner) classify(score float64, p *domain.VerticalPolicy) (domain.RiskLevel, domain.Decision) {
	threshold := 100.0
	if p != nil {
		threshold = p.Threshold
	}

	switch {
	case score >= c.cfg.CriticalCeiling:
		return domain.RiskCritical, domain.DecisionDecline
	case score >= threshold:
		return domain.RiskHigh, domain.DecisionDecline
	case score >= c.cfg.ReviewRatio*threshold:
		return domain.RiskMedium, domain.DecisionReview
	default:
		return domain.RiskLow, domain.DecisionApprove
	}
}

// Recommend produces the short human explanation attached to an evaluation.
func Recommend(res Result, flags []domain.FraudFlag, alerts []string) string {
	switch res.Decision {
	case domain.DecisionApprove:
		return "no significant risk signals; approve"
	case domain.DecisionReview:
		return fmt.Sprintf("manual review recommended: %s", topReasons(flags, alerts, 3))
	default:
		return fmt.Sprintf("decline: %s", topReasons(flags, alerts, 3))
	}
}

func topReasons(flags []domain.FraudFlag, alerts []string, n int) string {
	var reasons []string
	for _, a := range alerts {
		reasons = append(reasons, strings.ReplaceAll(a, "_", " "))
	}
	// Flags arrive already scored; take the heaviest first.
	best := make([]domain.FraudFlag, len(flags))
	copy(best, flags)
	for i := 0; i < len(best); i++ {
		for j := i + 1; j < len(best); j++ {
			if best[j].Score > best[i].Score {
				best[i], best[j] = best[j], best[i]
			}
		}
	}
	for _, f := range best {
		if len(reasons) >= n {
			break
		}
		reasons = append(reasons, strings.ReplaceAll(f.Rule, "_", " "))
	}
	if len(reasons) == 0 {
		return "aggregate score exceeded threshold"
	}
	if len(reasons) > n {
		reasons = reasons[:n]
	}
	return strings.Join(reasons, "; ")
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
