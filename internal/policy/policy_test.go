package policy

import (
	"testing"

	"github.com/Timiochukwu/sentinel/internal/domain"
)

func TestStoreDefaults(t *testing.T) {
	s := NewStore(nil)

	if !s.IsEnabled(domain.VerticalLending) {
		t.Error("lending should be enabled by default")
	}
	if got := s.Threshold(domain.VerticalLending); got != 60 {
		t.Errorf("lending threshold = %v, want 60", got)
	}
	if got := s.Threshold(domain.VerticalCrypto); got != 55 {
		t.Errorf("crypto threshold = %v, want 55", got)
	}
	if got := s.Weight(domain.VerticalLending, "loan_stacking_consortium"); got != 1.5 {
		t.Errorf("lending stacking weight = %v, want 1.5", got)
	}
	if got := s.Weight(domain.VerticalLending, "no_such_rule"); got != 1.0 {
		t.Errorf("unknown rule weight = %v, want 1.0", got)
	}
}

func TestStoreUnknownVertical(t *testing.T) {
	s := NewStore(nil)

	if s.IsEnabled("aviation") {
		t.Error("unknown vertical must not be enabled")
	}
	if got := s.Threshold("aviation"); got != 100 {
		t.Errorf("unknown vertical threshold = %v, want 100", got)
	}
}

func TestStoreSetOverrides(t *testing.T) {
	s := NewStore(nil)

	s.Set(&domain.VerticalPolicy{
		Vertical:    domain.VerticalBetting,
		Threshold:   50,
		RuleWeights: map[string]float64{"bonus_abuse_withdrawal": 2.0},
		Enabled:     false,
	})

	if s.IsEnabled(domain.VerticalBetting) {
		t.Error("betting should be disabled after override")
	}
	if got := s.Threshold(domain.VerticalBetting); got != 50 {
		t.Errorf("betting threshold = %v, want 50", got)
	}
	if got := s.Weight(domain.VerticalBetting, "bonus_abuse_withdrawal"); got != 2.0 {
		t.Errorf("weight = %v, want 2.0", got)
	}
}

func TestStoreAllOrdered(t *testing.T) {
	s := NewStore(nil)
	all := s.All()
	if len(all) != len(domain.Verticals()) {
		t.Fatalf("expected %d policies, got %d", len(domain.Verticals()), len(all))
	}
	if all[0].Vertical != domain.VerticalLending {
		t.Errorf("expected lending first, got %s", all[0].Vertical)
	}
}
