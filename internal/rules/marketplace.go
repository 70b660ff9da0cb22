package rules

import (
	"fmt"

	"github.com/Timiochukwu/sentinel/internal/domain"
)

// marketplaceRules covers buyer/seller collusion.
func marketplaceRules() []Rule {
	marketplace := only(domain.VerticalMarketplace)
	return []Rule{
		{
			Name:      "buyer_seller_same_device",
			Category:  CategoryMarketplace,
			Severity:  domain.SeverityCritical,
			Score:     55,
			Verticals: marketplace,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				if !tx.Enrichment.BuyerSellerShared {
					return nil
				}
				return &Hit{
					Message:    "buyer and seller operate from the same device",
					Confidence: confidence(0.95),
				}
			},
		},
		{
			Name:      "new_seller_high_value_sale",
			Category:  CategoryMarketplace,
			Severity:  domain.SeverityHigh,
			Score:     35,
			Verticals: marketplace,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				age := tx.Enrichment.SellerAgeDays
				if age == nil || *age > 7 || tx.Amount < 100000 {
					return nil
				}
				return &Hit{
					Message:  fmt.Sprintf("seller registered %d days ago closing a %.0f sale", *age, tx.Amount),
					Metadata: map[string]any{"seller_age_days": *age},
				}
			},
		},
		{
			Name:      "seller_payout_burst",
			Category:  CategoryMarketplace,
			Severity:  domain.SeverityMedium,
			Score:     22,
			Verticals: marketplace,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				if tx.Enrichment.SellerID == "" || rc.Count1h < 5 {
					return nil
				}
				return &Hit{Message: fmt.Sprintf("%d sales to one seller within an hour", rc.Count1h)}
			},
		},
		{
			Name:      "zero_history_seller_payout",
			Category:  CategoryMarketplace,
			Severity:  domain.SeverityHigh,
			Score:     30,
			Verticals: marketplace,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				age := tx.Enrichment.SellerAgeDays
				if age == nil || *age > 1 || tx.Type != "payout" {
					return nil
				}
				return &Hit{
					Message:    "payout to a seller registered within the last day",
					Confidence: confidence(0.8),
				}
			},
		},
		{
			Name:      "buyer_burst_new_seller",
			Category:  CategoryMarketplace,
			Severity:  domain.SeverityMedium,
			Score:     20,
			Verticals: marketplace,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				age := tx.Enrichment.SellerAgeDays
				if age == nil || *age > 7 || rc.Count10m < 3 {
					return nil
				}
				return &Hit{Message: fmt.Sprintf("%d rapid purchases from a week-old seller", rc.Count10m)}
			},
		},
		{
			Name:      "collusion_ring_device",
			Category:  CategoryMarketplace,
			Severity:  domain.SeverityHigh,
			Score:     38,
			Verticals: marketplace,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				if tx.Enrichment.SellerID == "" || rc.DeviceUserCount < 3 {
					return nil
				}
				return &Hit{Message: fmt.Sprintf("marketplace purchase from a device shared by %d accounts", rc.DeviceUserCount)}
			},
		},
	}
}
