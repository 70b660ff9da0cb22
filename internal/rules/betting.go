package rules

import (
	"fmt"

	"github.com/Timiochukwu/sentinel/internal/domain"
)

// bettingRules covers bonus abuse and gnoming in betting and gaming.
func bettingRules() []Rule {
	gaming := only(domain.VerticalBetting, domain.VerticalGaming)
	return []Rule{
		{
			Name:      "bonus_abuse_withdrawal",
			Category:  CategoryBetting,
			Severity:  domain.SeverityHigh,
			Score:     40,
			Verticals: gaming,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				if !tx.Enrichment.BonusClaimed || !tx.Enrichment.WithdrawalOnly {
					return nil
				}
				return &Hit{
					Message:    "withdrawal of a claimed bonus with no play in between",
					Confidence: confidence(0.85),
				}
			},
		},
		{
			Name:      "multi_account_bonus_farm",
			Category:  CategoryBetting,
			Severity:  domain.SeverityCritical,
			Score:     55,
			Verticals: gaming,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				if !tx.Enrichment.BonusClaimed || rc.DeviceUserCount < 3 {
					return nil
				}
				return &Hit{
					Message:    fmt.Sprintf("bonus claimed on a device tied to %d accounts", rc.DeviceUserCount),
					Confidence: confidence(0.9),
					Metadata:   map[string]any{"account_count": rc.DeviceUserCount},
				}
			},
		},
		{
			Name:      "deep_referral_chain",
			Category:  CategoryBetting,
			Severity:  domain.SeverityHigh,
			Score:     30,
			Verticals: gaming,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				depth := tx.Enrichment.ReferralChain
				if depth == nil || *depth < 5 {
					return nil
				}
				return &Hit{
					Message:  fmt.Sprintf("account sits %d levels deep in a referral chain", *depth),
					Metadata: map[string]any{"depth": *depth},
				}
			},
		},
		{
			Name:      "referral_chain_elevated",
			Category:  CategoryBetting,
			Severity:  domain.SeverityLow,
			Score:     12,
			Verticals: gaming,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				depth := tx.Enrichment.ReferralChain
				if depth == nil || *depth < 3 || *depth >= 5 {
					return nil
				}
				return &Hit{Message: fmt.Sprintf("referral chain depth %d", *depth)}
			},
		},
		{
			Name:      "withdrawal_without_play",
			Category:  CategoryBetting,
			Severity:  domain.SeverityMedium,
			Score:     20,
			Verticals: gaming,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				if !tx.Enrichment.WithdrawalOnly || tx.Enrichment.BonusClaimed {
					return nil
				}
				return &Hit{Message: "withdrawal from an account that never placed a bet"}
			},
		},
		{
			Name:      "bonus_claim_with_vpn",
			Category:  CategoryBetting,
			Severity:  domain.SeverityHigh,
			Score:     35,
			Verticals: gaming,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				if !tx.Enrichment.BonusClaimed || !rc.VPNSuspected {
					return nil
				}
				return &Hit{
					Message:    "bonus claimed from behind a suspected VPN",
					Confidence: confidence(0.8),
				}
			},
		},
		{
			Name:      "bonus_claim_velocity",
			Category:  CategoryBetting,
			Severity:  domain.SeverityMedium,
			Score:     22,
			Verticals: gaming,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				if !tx.Enrichment.BonusClaimed || rc.Count24h < 10 {
					return nil
				}
				return &Hit{Message: fmt.Sprintf("bonus claimed amid %d transactions in 24 hours", rc.Count24h)}
			},
		},
		{
			Name:      "instant_withdrawal_new_account",
			Category:  CategoryBetting,
			Severity:  domain.SeverityMedium,
			Score:     22,
			Verticals: gaming,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				age := tx.Enrichment.AccountAgeDays
				if age == nil || *age > 1 || tx.Type != "withdrawal" {
					return nil
				}
				return &Hit{Message: "withdrawal within a day of account creation"}
			},
		},
		{
			Name:      "referral_bonus_combo",
			Category:  CategoryBetting,
			Severity:  domain.SeverityHigh,
			Score:     32,
			Verticals: gaming,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				depth := tx.Enrichment.ReferralChain
				if depth == nil || *depth < 3 || !tx.Enrichment.BonusClaimed {
					return nil
				}
				return &Hit{Message: fmt.Sprintf("bonus claimed %d levels deep in a referral chain", *depth)}
			},
		},
		{
			Name:      "new_account_bonus_withdrawal",
			Category:  CategoryBetting,
			Severity:  domain.SeverityHigh,
			Score:     35,
			Verticals: gaming,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				age := tx.Enrichment.AccountAgeDays
				if age == nil || *age > 3 || !tx.Enrichment.BonusClaimed {
					return nil
				}
				if tx.Type != "withdrawal" {
					return nil
				}
				return &Hit{Message: fmt.Sprintf("account %d days old withdrawing a bonus", *age)}
			},
		},
	}
}
