package rules

import (
	"fmt"

	"github.com/Timiochukwu/sentinel/internal/domain"
)

// behaviorRules covers behavioral biometrics. Scores arrive normalized to
// 0.0-1.0 where higher means more human-like.
func behaviorRules() []Rule {
	return []Rule{
		{
			Name:     "bot_typing_cadence",
			Category: CategoryBehavior,
			Severity: domain.SeverityHigh,
			Score:    35,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				ts := tx.Enrichment.TypingScore
				if ts == nil || *ts >= 0.2 {
					return nil
				}
				return &Hit{
					Message:    fmt.Sprintf("typing cadence score %.2f indicates scripted input", *ts),
					Confidence: confidence(0.8),
				}
			},
		},
		{
			Name:     "suspicious_typing_cadence",
			Category: CategoryBehavior,
			Severity: domain.SeverityMedium,
			Score:    15,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				ts := tx.Enrichment.TypingScore
				if ts == nil || *ts < 0.2 || *ts >= 0.4 {
					return nil
				}
				return &Hit{Message: fmt.Sprintf("typing cadence score %.2f is below the human band", *ts)}
			},
		},
		{
			Name:     "bot_mouse_movement",
			Category: CategoryBehavior,
			Severity: domain.SeverityHigh,
			Score:    30,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				ms := tx.Enrichment.MouseScore
				if ms == nil || *ms >= 0.2 {
					return nil
				}
				return &Hit{Message: fmt.Sprintf("mouse movement score %.2f indicates automation", *ms)}
			},
		},
		{
			Name:     "all_fields_pasted",
			Category: CategoryBehavior,
			Severity: domain.SeverityMedium,
			Score:    15,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				if !tx.Enrichment.CopyPasteAll {
					return nil
				}
				return &Hit{Message: "every form field was pasted rather than typed"}
			},
		},
		{
			Name:     "implausibly_short_session",
			Category: CategoryBehavior,
			Severity: domain.SeverityMedium,
			Score:    18,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				secs := tx.Enrichment.SessionSecs
				if secs == nil || *secs > 5 || tx.Amount < 10000 {
					return nil
				}
				return &Hit{Message: fmt.Sprintf("session lasted %ds before a sizeable transaction", *secs)}
			},
		},
		{
			Name:     "automation_signal_cluster",
			Category: CategoryBehavior,
			Severity: domain.SeverityCritical,
			Score:    55,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				ts, ms := tx.Enrichment.TypingScore, tx.Enrichment.MouseScore
				low := func(p *float64) bool { return p != nil && *p < 0.3 }
				signals := 0
				if low(ts) {
					signals++
				}
				if low(ms) {
					signals++
				}
				if tx.Enrichment.CopyPasteAll {
					signals++
				}
				if signals < 3 {
					return nil
				}
				return &Hit{
					Message:    "typing, mouse, and paste signals all indicate automation",
					Confidence: confidence(0.9),
				}
			},
		},
		{
			Name:     "bot_signals_high_value",
			Category: CategoryBehavior,
			Severity: domain.SeverityHigh,
			Score:    40,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				ms := tx.Enrichment.MouseScore
				if ms == nil || *ms >= 0.2 || tx.Amount < 100000 {
					return nil
				}
				return &Hit{Message: "automated mouse movement on a high-value transaction"}
			},
		},
		{
			Name:     "rushed_large_checkout",
			Category: CategoryBehavior,
			Severity: domain.SeverityMedium,
			Score:    20,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				secs := tx.Enrichment.SessionSecs
				if secs == nil || *secs > 30 || tx.Amount < 200000 {
					return nil
				}
				return &Hit{Message: fmt.Sprintf("%.0f committed after a %ds session", tx.Amount, *secs)}
			},
		},
		{
			Name:     "replayed_biometrics",
			Category: CategoryBehavior,
			Severity: domain.SeverityMedium,
			Score:    15,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				// Perfect scores on both channels look recorded, not typed.
				ts, ms := tx.Enrichment.TypingScore, tx.Enrichment.MouseScore
				if ts == nil || ms == nil || *ts < 1.0 || *ms < 1.0 {
					return nil
				}
				return &Hit{Message: "typing and mouse scores are both perfect, consistent with replayed input"}
			},
		},
	}
}
