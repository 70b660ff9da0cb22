package domain

// VerticalPolicy is the per-vertical decision threshold and rule-weight map.
// Read on every request, administratively mutable, hot-reloadable without
// redeploying rule code.
type VerticalPolicy struct {
	Vertical     Vertical           `json:"vertical"`
	Threshold    float64            `json:"threshold"`    // score at which decline starts
	AMLThreshold float64            `json:"amlThreshold"` // amount above which AML flags apply
	RuleWeights  map[string]float64 `json:"ruleWeights"`  // rule name -> multiplier, default 1.0
	Enabled      bool               `json:"enabled"`
}

// Weight returns the multiplier for a rule name, defaulting to 1.0.
func (p *VerticalPolicy) Weight(rule string) float64 {
	if p == nil || p.RuleWeights == nil {
		return 1.0
	}
	if w, ok := p.RuleWeights[rule]; ok {
		return w
	}
	return 1.0
}

// DefaultPolicies seeds one enabled policy per vertical. Thresholds reflect
// each vertical's appetite: lending and crypto decline earlier than
// e-commerce.
func DefaultPolicies() []*VerticalPolicy {
	thresholds := map[Vertical]struct {
		decision float64
		aml      float64
	}{
		VerticalLending:     {60, 1_000_000},
		VerticalFintech:     {65, 1_000_000},
		VerticalPayments:    {65, 500_000},
		VerticalEcommerce:   {70, 2_000_000},
		VerticalBetting:     {65, 500_000},
		VerticalCrypto:      {55, 250_000},
		VerticalMarketplace: {70, 1_000_000},
		VerticalGaming:      {70, 500_000},
	}

	weights := map[Vertical]map[string]float64{
		// Wallet signals dominate in crypto; stacking signals in lending.
		VerticalCrypto: {
			"new_wallet_large_transfer": 1.5,
			"mixer_exposure_high":       1.5,
			"fresh_wallet_mixer_combo":  1.3,
		},
		VerticalLending: {
			"loan_stacking_consortium": 1.5,
			"loan_stacking_active":     1.4,
			"new_account_large_amount": 1.2,
		},
		VerticalBetting: {
			"multi_account_bonus_farm": 1.4,
			"bonus_abuse_withdrawal":   1.3,
		},
		VerticalMarketplace: {
			"buyer_seller_same_device": 1.4,
		},
	}

	policies := make([]*VerticalPolicy, 0, len(Verticals()))
	for _, v := range Verticals() {
		t := thresholds[v]
		policies = append(policies, &VerticalPolicy{
			Vertical:     v,
			Threshold:    t.decision,
			AMLThreshold: t.aml,
			RuleWeights:  weights[v],
			Enabled:      true,
		})
	}
	return policies
}
