package rules

import (
	"fmt"

	"github.com/Timiochukwu/sentinel/internal/domain"
)

// takeoverRules covers account-takeover patterns. The sequence that matters
// is credential change, payee change, then rapid extraction.
func takeoverRules() []Rule {
	return []Rule{
		{
			Name:     "credential_change_then_transfer",
			Category: CategoryTakeover,
			Severity: domain.SeverityHigh,
			Score:    40,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				if !tx.Enrichment.PasswordChanged || tx.Amount < 50000 {
					return nil
				}
				return &Hit{
					Message:    "sizeable transfer shortly after a password change",
					Confidence: confidence(0.75),
				}
			},
		},
		{
			Name:     "new_beneficiary_large_transfer",
			Category: CategoryTakeover,
			Severity: domain.SeverityHigh,
			Score:    35,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				if !tx.Enrichment.NewBeneficiary || tx.Amount < 100000 {
					return nil
				}
				return &Hit{Message: fmt.Sprintf("%.0f %s to a beneficiary added recently", tx.Amount, tx.Currency)}
			},
		},
		{
			Name:     "takeover_sequence",
			Category: CategoryTakeover,
			Severity: domain.SeverityCritical,
			Score:    60,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				if !tx.Enrichment.PasswordChanged || !tx.Enrichment.NewBeneficiary {
					return nil
				}
				return &Hit{
					Message:    "password changed and new beneficiary added before this transfer",
					Confidence: confidence(0.9),
				}
			},
		},
		{
			Name:     "takeover_drain_pattern",
			Category: CategoryTakeover,
			Severity: domain.SeverityCritical,
			Score:    50,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				// Credential change followed by a burst of transfers.
				if !tx.Enrichment.PasswordChanged || rc.Count10m < 3 {
					return nil
				}
				return &Hit{Message: fmt.Sprintf("%d transfers within 10 minutes of a password change", rc.Count10m)}
			},
		},
		{
			Name:     "new_device_after_credential_change",
			Category: CategoryTakeover,
			Severity: domain.SeverityMedium,
			Score:    25,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				if !tx.Enrichment.PasswordChanged || rc.DeviceUserCount != 1 {
					return nil
				}
				// A device with exactly one account and a fresh credential
				// change reads as a freshly enrolled attacker device.
				if tx.Enrichment.DeviceFingerprint == "" {
					return nil
				}
				return &Hit{Message: "first-seen device used right after a password change"}
			},
		},
		{
			Name:     "credential_change_vpn",
			Category: CategoryTakeover,
			Severity: domain.SeverityHigh,
			Score:    35,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				if !tx.Enrichment.PasswordChanged || !rc.VPNSuspected {
					return nil
				}
				return &Hit{
					Message:    "password changed during a suspected VPN session",
					Confidence: confidence(0.7),
				}
			},
		},
		{
			Name:     "beneficiary_churn_burst",
			Category: CategoryTakeover,
			Severity: domain.SeverityHigh,
			Score:    30,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				if !tx.Enrichment.NewBeneficiary || rc.Count10m < 3 {
					return nil
				}
				return &Hit{Message: "burst of transfers immediately after adding a beneficiary"}
			},
		},
		{
			Name:     "credential_change_location_shift",
			Category: CategoryTakeover,
			Severity: domain.SeverityMedium,
			Score:    25,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				if !tx.Enrichment.PasswordChanged || !tx.HasCoordinates() || rc.LastLocation == nil {
					return nil
				}
				dist := haversineKm(rc.LastLocation.Latitude, rc.LastLocation.Longitude,
					*tx.Enrichment.Latitude, *tx.Enrichment.Longitude)
				if dist < 500 {
					return nil
				}
				return &Hit{
					Message:  "credential change from a location far from the account's usual one",
					Metadata: map[string]any{"distance_km": dist},
				}
			},
		},
	}
}
