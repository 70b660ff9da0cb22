package rules

import (
	"context"
	"testing"
	"time"

	"github.com/Timiochukwu/sentinel/internal/domain"
)

func TestCustomEngineEvaluate(t *testing.T) {
	engine, err := NewCustomEngine(nil)
	if err != nil {
		t.Fatalf("engine failed: %v", err)
	}

	engine.LoadTenant("t-1", []*domain.CustomRule{
		{
			ID: "cr-1", Name: "big_night_transfer",
			Expression: `amount > 100000.0 && tx_type == "transfer"`,
			Severity:   domain.SeverityHigh, Score: 30, Enabled: true,
		},
		{
			ID: "cr-2", Name: "velocity_custom",
			Expression: `context.count_1h > 5`,
			Severity:   domain.SeverityMedium, Score: 15, Enabled: true,
		},
		{
			ID: "cr-3", Name: "disabled_rule",
			Expression: `true`,
			Severity:   domain.SeverityLow, Score: 5, Enabled: false,
		},
	})

	if n := engine.TenantRuleCount("t-1"); n != 2 {
		t.Fatalf("expected 2 compiled rules, got %d", n)
	}

	tx := &domain.Transaction{
		ID: "tx-1", TenantID: "t-1", UserID: "u-1",
		Type: "transfer", Vertical: domain.VerticalFintech,
		Amount: 200000, Currency: "NGN", Timestamp: time.Now(),
	}
	rc := &domain.RiskContext{Count1h: 2}

	flags := engine.Evaluate(context.Background(), tx, rc)
	if len(flags) != 1 {
		t.Fatalf("expected 1 flag, got %+v", flags)
	}
	if flags[0].Rule != "big_night_transfer" || flags[0].Score != 30 {
		t.Errorf("unexpected flag: %+v", flags[0])
	}
}

func TestCustomEngineTenantIsolation(t *testing.T) {
	engine, _ := NewCustomEngine(nil)
	engine.LoadTenant("t-1", []*domain.CustomRule{
		{ID: "cr-1", Name: "always", Expression: "true", Severity: domain.SeverityLow, Score: 5, Enabled: true},
	})

	tx := &domain.Transaction{
		ID: "tx-1", TenantID: "t-2", UserID: "u-1",
		Type: "transfer", Vertical: domain.VerticalFintech,
		Amount: 100, Currency: "NGN", Timestamp: time.Now(),
	}
	if flags := engine.Evaluate(context.Background(), tx, &domain.RiskContext{}); len(flags) != 0 {
		t.Errorf("tenant t-2 ran t-1's rules: %+v", flags)
	}
}

func TestCustomEngineVerticalRestriction(t *testing.T) {
	engine, _ := NewCustomEngine(nil)
	engine.LoadTenant("t-1", []*domain.CustomRule{
		{
			ID: "cr-1", Name: "crypto_only", Expression: "true",
			Severity: domain.SeverityLow, Score: 5, Enabled: true,
			Verticals: []domain.Vertical{domain.VerticalCrypto},
		},
	})

	tx := &domain.Transaction{
		ID: "tx-1", TenantID: "t-1", UserID: "u-1",
		Type: "purchase", Vertical: domain.VerticalEcommerce,
		Amount: 100, Currency: "NGN", Timestamp: time.Now(),
	}
	if flags := engine.Evaluate(context.Background(), tx, &domain.RiskContext{}); len(flags) != 0 {
		t.Errorf("crypto-only rule fired for ecommerce: %+v", flags)
	}
}

func TestCustomEngineValidate(t *testing.T) {
	engine, _ := NewCustomEngine(nil)

	tests := []struct {
		name       string
		expression string
		wantErr    bool
	}{
		{"valid bool", `amount > 100.0`, false},
		{"syntax error", `amount >`, true},
		{"non-bool result", `amount + 1.0`, true},
		{"unknown variable", `no_such_var == 1`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := engine.Validate(&domain.CustomRule{Name: tt.name, Expression: tt.expression})
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(%q) error = %v, wantErr %v", tt.expression, err, tt.wantErr)
			}
		})
	}
}

func TestCustomEngineBadRuleSkipped(t *testing.T) {
	engine, _ := NewCustomEngine(nil)
	engine.LoadTenant("t-1", []*domain.CustomRule{
		{ID: "cr-1", Name: "broken", Expression: "amount >", Severity: domain.SeverityLow, Score: 5, Enabled: true},
		{ID: "cr-2", Name: "fine", Expression: "amount > 0.0", Severity: domain.SeverityLow, Score: 5, Enabled: true},
	})

	if n := engine.TenantRuleCount("t-1"); n != 1 {
		t.Errorf("expected the broken rule to be skipped, got %d compiled", n)
	}
}
