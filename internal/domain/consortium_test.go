package domain

import "testing"

func TestDeriveConsortiumRisk(t *testing.T) {
	cases := []struct {
		occurrences int
		want        RiskLevel
	}{
		{0, RiskLow},
		{1, RiskMedium},
		{2, RiskMedium},
		{3, RiskHigh},
		{4, RiskHigh},
		{5, RiskCritical},
		{12, RiskCritical},
	}
	for _, c := range cases {
		if got := DeriveConsortiumRisk(c.occurrences); got != c.want {
			t.Errorf("DeriveConsortiumRisk(%d) = %s, want %s", c.occurrences, got, c.want)
		}
	}
}
