package decision

import (
	"testing"

	"github.com/Timiochukwu/sentinel/internal/domain"
)

func testPolicy() *domain.VerticalPolicy {
	return &domain.VerticalPolicy{
		Vertical:    domain.VerticalLending,
		Threshold:   60,
		RuleWeights: map[string]float64{"weighted_rule": 1.5},
		Enabled:     true,
	}
}

func TestCombineLadder(t *testing.T) {
	c := NewCombiner(domain.ScoringConfig{CriticalCeiling: 80, ReviewRatio: 0.7})

	tests := []struct {
		name     string
		score    float64
		level    domain.RiskLevel
		decision domain.Decision
	}{
		{"approve", 20, domain.RiskLow, domain.DecisionApprove},
		{"review band", 45, domain.RiskMedium, domain.DecisionReview},
		{"review lower edge", 42, domain.RiskMedium, domain.DecisionReview},
		{"decline at threshold", 60, domain.RiskHigh, domain.DecisionDecline},
		{"critical ceiling", 85, domain.RiskCritical, domain.DecisionDecline},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags := []domain.FraudFlag{{Rule: "r", Score: tt.score}}
			res := c.Combine(flags, nil, testPolicy())
			if res.Level != tt.level || res.Decision != tt.decision {
				t.Errorf("score %.0f: got %s/%s, want %s/%s",
					tt.score, res.Level, res.Decision, tt.level, tt.decision)
			}
		})
	}
}

func TestCombineWeighting(t *testing.T) {
	c := NewCombiner(domain.ScoringConfig{})

	flags := []domain.FraudFlag{
		{Rule: "weighted_rule", Score: 20},
		{Rule: "plain_rule", Score: 10},
	}
	res := c.Combine(flags, nil, testPolicy())

	if res.RuleScore != 40 {
		t.Errorf("rule score = %v, want 40 (20*1.5 + 10)", res.RuleScore)
	}
	if flags[0].Score != 30 {
		t.Errorf("weighted flag score = %v, want 30", flags[0].Score)
	}
}

func TestCombineClamps(t *testing.T) {
	c := NewCombiner(domain.ScoringConfig{})

	flags := []domain.FraudFlag{
		{Rule: "a", Score: 70},
		{Rule: "b", Score: 60},
		{Rule: "c", Score: 50},
	}
	res := c.Combine(flags, nil, testPolicy())
	if res.Score != 100 {
		t.Errorf("score = %v, want clamp at 100", res.Score)
	}
	if res.Level != domain.RiskCritical || res.Decision != domain.DecisionDecline {
		t.Errorf("expected critical/decline, got %s/%s", res.Level, res.Decision)
	}
}

func TestCombineMLBlend(t *testing.T) {
	c := NewCombiner(domain.ScoringConfig{MLEnabled: true, MLBlendWeight: 0.7})

	flags := []domain.FraudFlag{{Rule: "r", Score: 40}}
	ml := 0.9 // probability -> 90 on the score scale

	res := c.Combine(flags, &ml, testPolicy())
	want := 0.7*90 + 0.3*40
	if res.Score != want {
		t.Errorf("blended score = %v, want %v", res.Score, want)
	}
	if res.RuleScore != 40 {
		t.Errorf("rule score = %v, want 40", res.RuleScore)
	}
	if res.MLScore == nil || *res.MLScore != 90 {
		t.Errorf("ml score = %v, want 90", res.MLScore)
	}
}

func TestCombineMLDisabled(t *testing.T) {
	c := NewCombiner(domain.ScoringConfig{MLEnabled: false})

	flags := []domain.FraudFlag{{Rule: "r", Score: 40}}
	ml := 0.9
	res := c.Combine(flags, &ml, testPolicy())
	if res.Score != 40 || res.MLScore != nil {
		t.Errorf("disabled ML must not blend: score=%v ml=%v", res.Score, res.MLScore)
	}
}

func TestCombineNoFlags(t *testing.T) {
	c := NewCombiner(domain.ScoringConfig{})
	res := c.Combine(nil, nil, testPolicy())
	if res.Score != 0 || res.Decision != domain.DecisionApprove {
		t.Errorf("empty flags: got %v/%s, want 0/approve", res.Score, res.Decision)
	}
}

func TestRecommend(t *testing.T) {
	flags := []domain.FraudFlag{
		{Rule: "impossible_travel", Score: 85},
		{Rule: "vpn_or_proxy_suspected", Score: 20},
	}

	res := Result{Decision: domain.DecisionDecline}
	msg := Recommend(res, flags, []string{"known_fraudster"})
	if msg == "" || msg == "aggregate score exceeded threshold" {
		t.Errorf("unexpected recommendation: %q", msg)
	}

	approve := Recommend(Result{Decision: domain.DecisionApprove}, nil, nil)
	if approve != "no significant risk signals; approve" {
		t.Errorf("unexpected approve text: %q", approve)
	}
}
