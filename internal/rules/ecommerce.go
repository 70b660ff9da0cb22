package rules

import (
	"fmt"
	"strings"

	"github.com/Timiochukwu/sentinel/internal/domain"
)

// ecommerceRules covers retail-specific order patterns. Card testing is
// covered by the payments rules, which also apply to this vertical.
func ecommerceRules() []Rule {
	retail := only(domain.VerticalEcommerce)
	return []Rule{
		{
			Name:      "first_order_high_value",
			Category:  CategoryEcommerce,
			Severity:  domain.SeverityMedium,
			Score:     20,
			Verticals: retail,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				age := tx.Enrichment.AccountAgeDays
				if age == nil || *age > 1 || tx.Amount < 150000 {
					return nil
				}
				return &Hit{Message: fmt.Sprintf("first-day account placing a %.0f order", tx.Amount)}
			},
		},
		{
			Name:      "order_burst_one_account",
			Category:  CategoryEcommerce,
			Severity:  domain.SeverityMedium,
			Score:     22,
			Verticals: retail,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				if rc.Count1h < 5 {
					return nil
				}
				return &Hit{Message: fmt.Sprintf("%d orders from one account in an hour", rc.Count1h)}
			},
		},
		{
			Name:      "gift_card_rapid_purchase",
			Category:  CategoryEcommerce,
			Severity:  domain.SeverityHigh,
			Score:     32,
			Verticals: retail,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				if !strings.Contains(strings.ToLower(tx.Type), "gift_card") || rc.Count1h < 3 {
					return nil
				}
				return &Hit{
					Message:    fmt.Sprintf("%d gift card purchases in an hour", rc.Count1h),
					Confidence: confidence(0.8),
				}
			},
		},
		{
			Name:      "freight_forward_new_account",
			Category:  CategoryEcommerce,
			Severity:  domain.SeverityMedium,
			Score:     22,
			Verticals: retail,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				e := tx.Enrichment
				age := e.AccountAgeDays
				if age == nil || *age > 7 || e.ShippingCountry == "" || e.BillingCountry == "" {
					return nil
				}
				if e.ShippingCountry == e.BillingCountry {
					return nil
				}
				return &Hit{Message: "new account shipping abroad from its billing country"}
			},
		},
		{
			Name:      "guest_checkout_high_value",
			Category:  CategoryEcommerce,
			Severity:  domain.SeverityLow,
			Score:     10,
			Verticals: retail,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				if tx.Enrichment.AccountAgeDays != nil || tx.Amount < 300000 {
					return nil
				}
				return &Hit{Message: fmt.Sprintf("%.0f order with no account history available", tx.Amount)}
			},
		},
		{
			Name:      "reshipper_country_pattern",
			Category:  CategoryEcommerce,
			Severity:  domain.SeverityMedium,
			Score:     18,
			Verticals: retail,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				e := tx.Enrichment
				if e.ShippingCountry == "" || e.BillingCountry == "" {
					return nil
				}
				if e.ShippingCountry == e.BillingCountry || tx.Amount < 100000 {
					return nil
				}
				return &Hit{Message: fmt.Sprintf("high-value order billed in %s shipping to %s", e.BillingCountry, e.ShippingCountry)}
			},
		},
	}
}
