package rules

import (
	"fmt"
	"strings"

	"github.com/Timiochukwu/sentinel/internal/domain"
)

// Disposable mail providers seen in abuse traffic. Deliberately short; tenant
// custom rules can extend coverage.
var disposableDomains = map[string]struct{}{
	"mailinator.com":    {},
	"guerrillamail.com": {},
	"10minutemail.com":  {},
	"temp-mail.org":     {},
	"throwawaymail.com": {},
	"yopmail.com":       {},
	"sharklasers.com":   {},
	"getnada.com":       {},
}

func emailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}

// identityRules covers identity verification signals.
func identityRules() []Rule {
	return []Rule{
		{
			Name:     "new_account_large_amount",
			Category: CategoryIdentity,
			Severity: domain.SeverityHigh,
			Score:    45,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				age := tx.Enrichment.AccountAgeDays
				if age == nil || *age > 7 || tx.Amount < 100000 {
					return nil
				}
				return &Hit{
					Message:    fmt.Sprintf("account is %d days old moving %.0f %s", *age, tx.Amount, tx.Currency),
					Confidence: confidence(0.8),
					Metadata:   map[string]any{"account_age_days": *age},
				}
			},
		},
		{
			Name:     "brand_new_account_activity",
			Category: CategoryIdentity,
			Severity: domain.SeverityMedium,
			Score:    20,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				age := tx.Enrichment.AccountAgeDays
				if age == nil || *age > 0 {
					return nil
				}
				return &Hit{Message: "account created today is already transacting"}
			},
		},
		{
			Name:     "disposable_email_domain",
			Category: CategoryIdentity,
			Severity: domain.SeverityHigh,
			Score:    35,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				d := emailDomain(tx.Enrichment.Email)
				if d == "" {
					return nil
				}
				if _, bad := disposableDomains[d]; !bad {
					return nil
				}
				return &Hit{
					Message:  "email uses a disposable provider",
					Metadata: map[string]any{"domain": d},
				}
			},
		},
		{
			Name:     "missing_contact_identity",
			Category: CategoryIdentity,
			Severity: domain.SeverityMedium,
			Score:    15,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				if tx.Enrichment.Email != "" || tx.Enrichment.Phone != "" {
					return nil
				}
				if tx.Amount < 50000 {
					return nil
				}
				return &Hit{Message: "no email or phone attached to a high-value transaction"}
			},
		},
		{
			Name:     "unverified_id_large_amount",
			Category: CategoryIdentity,
			Severity: domain.SeverityMedium,
			Score:    20,
			Verticals: only(domain.VerticalLending, domain.VerticalFintech,
				domain.VerticalCrypto),
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				if tx.Enrichment.IDNumber != "" || tx.Amount < 200000 {
					return nil
				}
				return &Hit{Message: "large transaction without a government ID on file"}
			},
		},
		{
			Name:     "synthetic_identity_profile",
			Category: CategoryIdentity,
			Severity: domain.SeverityHigh,
			Score:    40,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				// Thin profile plus brand-new account plus immediate volume is
				// the classic synthetic pattern.
				age := tx.Enrichment.AccountAgeDays
				if age == nil || *age > 3 {
					return nil
				}
				thin := tx.Enrichment.Phone == "" && tx.Enrichment.IDNumber == ""
				if !thin || rc.Count24h < 3 {
					return nil
				}
				return &Hit{
					Message:    "new thin-file identity with immediate transaction volume",
					Confidence: confidence(0.7),
				}
			},
		},
		{
			Name:     "email_plus_addressing_new_account",
			Category: CategoryIdentity,
			Severity: domain.SeverityLow,
			Score:    8,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				age := tx.Enrichment.AccountAgeDays
				if age == nil || *age > 7 {
					return nil
				}
				email := tx.Enrichment.Email
				at := strings.Index(email, "@")
				if at < 1 || !strings.Contains(email[:at], "+") {
					return nil
				}
				return &Hit{Message: "new account registered with a plus-addressed email"}
			},
		},
		{
			Name:      "phone_missing_large_credit",
			Category:  CategoryIdentity,
			Severity:  domain.SeverityLow,
			Score:     10,
			Verticals: only(domain.VerticalLending, domain.VerticalFintech),
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				if tx.Enrichment.Phone != "" || tx.Amount < 100000 {
					return nil
				}
				return &Hit{Message: "large credit movement with no phone number on file"}
			},
		},
		{
			Name:     "thin_file_foreign_card",
			Category: CategoryIdentity,
			Severity: domain.SeverityMedium,
			Score:    22,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				e := tx.Enrichment
				if e.IDNumber != "" || e.CardCountry == "" || e.BillingCountry == "" {
					return nil
				}
				if e.CardCountry == e.BillingCountry {
					return nil
				}
				return &Hit{Message: "no ID on file and the card was issued abroad"}
			},
		},
		{
			Name:     "email_user_mismatch_burst",
			Category: CategoryIdentity,
			Severity: domain.SeverityLow,
			Score:    10,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				// Numeric-noise local parts correlate with scripted signups.
				email := tx.Enrichment.Email
				at := strings.Index(email, "@")
				if at < 8 {
					return nil
				}
				local := email[:at]
				digits := 0
				for _, r := range local {
					if r >= '0' && r <= '9' {
						digits++
					}
				}
				if digits*2 < len(local) {
					return nil
				}
				return &Hit{Message: "email local part is mostly digits"}
			},
		},
	}
}
