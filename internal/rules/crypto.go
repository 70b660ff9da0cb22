package rules

import (
	"fmt"

	"github.com/Timiochukwu/sentinel/internal/domain"
)

// cryptoRules covers wallet risk signals.
func cryptoRules() []Rule {
	crypto := only(domain.VerticalCrypto)
	return []Rule{
		{
			Name:      "new_wallet_large_transfer",
			Category:  CategoryCrypto,
			Severity:  domain.SeverityHigh,
			Score:     40,
			Verticals: crypto,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				age := tx.Enrichment.WalletAgeDays
				if age == nil || *age > 7 || tx.Amount < 100000 {
					return nil
				}
				return &Hit{
					Message:    fmt.Sprintf("wallet %d days old receiving %.0f %s", *age, tx.Amount, tx.Currency),
					Confidence: confidence(0.8),
					Metadata:   map[string]any{"wallet_age_days": *age},
				}
			},
		},
		{
			Name:      "mixer_exposure_high",
			Category:  CategoryCrypto,
			Severity:  domain.SeverityCritical,
			Score:     60,
			Verticals: crypto,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				exp := tx.Enrichment.MixerExposure
				if exp == nil || *exp < 0.5 {
					return nil
				}
				return &Hit{
					Message:    fmt.Sprintf("%.0f%% of wallet funds trace to mixing services", *exp*100),
					Confidence: confidence(0.9),
					Metadata:   map[string]any{"exposure": *exp},
				}
			},
		},
		{
			Name:      "mixer_exposure_elevated",
			Category:  CategoryCrypto,
			Severity:  domain.SeverityMedium,
			Score:     25,
			Verticals: crypto,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				exp := tx.Enrichment.MixerExposure
				if exp == nil || *exp < 0.1 || *exp >= 0.5 {
					return nil
				}
				return &Hit{Message: fmt.Sprintf("%.0f%% mixer exposure on the counterparty wallet", *exp*100)}
			},
		},
		{
			Name:      "missing_wallet_large_withdrawal",
			Category:  CategoryCrypto,
			Severity:  domain.SeverityMedium,
			Score:     15,
			Verticals: crypto,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				if tx.Enrichment.WalletAddress != "" || tx.Type != "withdrawal" || tx.Amount < 200000 {
					return nil
				}
				return &Hit{Message: "large withdrawal without a destination wallet on record"}
			},
		},
		{
			Name:      "rapid_exchange_cycling",
			Category:  CategoryCrypto,
			Severity:  domain.SeverityHigh,
			Score:     30,
			Verticals: crypto,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				// Deposit-trade-withdraw loops in quick succession are a
				// layering pattern.
				if rc.Count1h < 10 {
					return nil
				}
				return &Hit{Message: fmt.Sprintf("%d exchange operations within an hour", rc.Count1h)}
			},
		},
		{
			Name:      "mixer_exposure_new_account",
			Category:  CategoryCrypto,
			Severity:  domain.SeverityMedium,
			Score:     20,
			Verticals: crypto,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				age, exp := tx.Enrichment.AccountAgeDays, tx.Enrichment.MixerExposure
				if age == nil || exp == nil || *age > 7 || *exp <= 0 {
					return nil
				}
				return &Hit{Message: "days-old account already touching mixer-tainted funds"}
			},
		},
		{
			Name:      "wallet_hop_velocity",
			Category:  CategoryCrypto,
			Severity:  domain.SeverityMedium,
			Score:     22,
			Verticals: crypto,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				if tx.Enrichment.WalletAddress == "" || rc.Count1h < 8 {
					return nil
				}
				return &Hit{Message: fmt.Sprintf("%d wallet transfers within an hour", rc.Count1h)}
			},
		},
		{
			Name:      "mixer_tainted_withdrawal",
			Category:  CategoryCrypto,
			Severity:  domain.SeverityHigh,
			Score:     38,
			Verticals: crypto,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				exp := tx.Enrichment.MixerExposure
				if exp == nil || *exp < 0.1 || tx.Type != "withdrawal" || tx.Amount < 500000 {
					return nil
				}
				return &Hit{
					Message:    fmt.Sprintf("large withdrawal from a wallet with %.0f%% mixer exposure", *exp*100),
					Confidence: confidence(0.8),
				}
			},
		},
		{
			Name:      "fresh_wallet_mixer_combo",
			Category:  CategoryCrypto,
			Severity:  domain.SeverityCritical,
			Score:     55,
			Verticals: crypto,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				age, exp := tx.Enrichment.WalletAgeDays, tx.Enrichment.MixerExposure
				if age == nil || exp == nil || *age > 7 || *exp < 0.1 {
					return nil
				}
				return &Hit{
					Message:    "brand-new wallet already carrying mixer-tainted funds",
					Confidence: confidence(0.9),
				}
			},
		},
	}
}
