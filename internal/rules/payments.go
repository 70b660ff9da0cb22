package rules

import (
	"fmt"

	"github.com/Timiochukwu/sentinel/internal/domain"
)

// paymentsRules covers card-present-less payment fraud, mainly card testing
// and geography mismatches.
func paymentsRules() []Rule {
	cardVerticals := only(domain.VerticalPayments, domain.VerticalEcommerce)
	return []Rule{
		{
			Name:      "card_testing_burst",
			Category:  CategoryPayments,
			Severity:  domain.SeverityCritical,
			Score:     55,
			Verticals: cardVerticals,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				attempts := tx.Enrichment.CardAttempts
				if attempts == nil || *attempts < 5 {
					return nil
				}
				return &Hit{
					Message:    fmt.Sprintf("%d card attempts in this session", *attempts),
					Confidence: confidence(0.9),
					Metadata:   map[string]any{"attempts": *attempts},
				}
			},
		},
		{
			Name:      "card_attempts_elevated",
			Category:  CategoryPayments,
			Severity:  domain.SeverityMedium,
			Score:     22,
			Verticals: cardVerticals,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				attempts := tx.Enrichment.CardAttempts
				if attempts == nil || *attempts < 3 || *attempts >= 5 {
					return nil
				}
				return &Hit{Message: fmt.Sprintf("%d card attempts in this session", *attempts)}
			},
		},
		{
			Name:      "card_testing_micro_amounts",
			Category:  CategoryPayments,
			Severity:  domain.SeverityHigh,
			Score:     40,
			Verticals: cardVerticals,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				// Authorization probes: tiny charges fired in quick succession.
				if tx.Amount >= 10 || rc.Count10m < 5 {
					return nil
				}
				return &Hit{Message: fmt.Sprintf("micro-charge with %d recent attempts", rc.Count10m)}
			},
		},
		{
			Name:      "card_billing_country_mismatch",
			Category:  CategoryPayments,
			Severity:  domain.SeverityMedium,
			Score:     18,
			Verticals: cardVerticals,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				card, billing := tx.Enrichment.CardCountry, tx.Enrichment.BillingCountry
				if card == "" || billing == "" || card == billing {
					return nil
				}
				return &Hit{
					Message:  fmt.Sprintf("card issued in %s, billing address in %s", card, billing),
					Metadata: map[string]any{"card_country": card, "billing_country": billing},
				}
			},
		},
		{
			Name:      "shipping_billing_mismatch",
			Category:  CategoryPayments,
			Severity:  domain.SeverityLow,
			Score:     10,
			Verticals: cardVerticals,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				ship, billing := tx.Enrichment.ShippingCountry, tx.Enrichment.BillingCountry
				if ship == "" || billing == "" || ship == billing {
					return nil
				}
				return &Hit{Message: fmt.Sprintf("ships to %s, billed in %s", ship, billing)}
			},
		},
		{
			Name:      "triple_country_mismatch",
			Category:  CategoryPayments,
			Severity:  domain.SeverityHigh,
			Score:     32,
			Verticals: cardVerticals,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				e := tx.Enrichment
				if e.CardCountry == "" || e.BillingCountry == "" || e.ShippingCountry == "" {
					return nil
				}
				if e.CardCountry == e.BillingCountry || e.BillingCountry == e.ShippingCountry || e.CardCountry == e.ShippingCountry {
					return nil
				}
				return &Hit{
					Message:    "card, billing, and shipping countries all differ",
					Confidence: confidence(0.8),
				}
			},
		},
		{
			Name:      "card_attempts_with_vpn",
			Category:  CategoryPayments,
			Severity:  domain.SeverityHigh,
			Score:     40,
			Verticals: cardVerticals,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				attempts := tx.Enrichment.CardAttempts
				if attempts == nil || *attempts < 3 || !rc.VPNSuspected {
					return nil
				}
				return &Hit{
					Message:    fmt.Sprintf("%d card attempts behind a suspected VPN", *attempts),
					Confidence: confidence(0.85),
				}
			},
		},
		{
			Name:      "foreign_card_big_ticket",
			Category:  CategoryPayments,
			Severity:  domain.SeverityMedium,
			Score:     20,
			Verticals: cardVerticals,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				card, billing := tx.Enrichment.CardCountry, tx.Enrichment.BillingCountry
				if card == "" || billing == "" || card == billing || tx.Amount < 500000 {
					return nil
				}
				return &Hit{Message: fmt.Sprintf("%.0f charged to a card issued in %s", tx.Amount, card)}
			},
		},
		{
			Name:      "card_payment_without_bin",
			Category:  CategoryPayments,
			Severity:  domain.SeverityLow,
			Score:     8,
			Verticals: cardVerticals,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				if tx.Enrichment.CardLast4 == "" || tx.Enrichment.CardBIN != "" {
					return nil
				}
				return &Hit{Message: "card payment submitted without an issuer BIN"}
			},
		},
		{
			Name:      "card_country_unknown_big_ticket",
			Category:  CategoryPayments,
			Severity:  domain.SeverityLow,
			Score:     8,
			Verticals: cardVerticals,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				if tx.Enrichment.CardLast4 == "" || tx.Enrichment.CardCountry != "" || tx.Amount < 200000 {
					return nil
				}
				return &Hit{Message: "large card payment with no issuer country resolved"}
			},
		},
		{
			Name:      "many_cards_one_user",
			Category:  CategoryPayments,
			Severity:  domain.SeverityMedium,
			Score:     25,
			Verticals: cardVerticals,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				// A burst of payment attempts with card data present reads as
				// cycling through stolen numbers.
				if tx.Enrichment.CardLast4 == "" || rc.Count1h < 6 {
					return nil
				}
				return &Hit{Message: fmt.Sprintf("%d card payments from one user in an hour", rc.Count1h)}
			},
		},
	}
}
