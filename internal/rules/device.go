package rules

import (
	"fmt"
	"strings"

	"github.com/Timiochukwu/sentinel/internal/domain"
)

var automationAgents = []string{
	"headlesschrome", "phantomjs", "selenium", "puppeteer", "playwright",
	"python-requests", "curl/", "wget/", "okhttp", "go-http-client",
}

// deviceRules covers device and browser fingerprint consistency.
func deviceRules() []Rule {
	return []Rule{
		{
			Name:     "device_multi_account_fanout",
			Category: CategoryDevice,
			Severity: domain.SeverityHigh,
			Score:    40,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				if rc.DeviceUserCount < 5 {
					return nil
				}
				return &Hit{
					Message:    fmt.Sprintf("device fingerprint seen on %d distinct accounts", rc.DeviceUserCount),
					Confidence: confidence(0.85),
					Metadata:   map[string]any{"account_count": rc.DeviceUserCount},
				}
			},
		},
		{
			Name:     "device_shared_accounts",
			Category: CategoryDevice,
			Severity: domain.SeverityHigh,
			Score:    28,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				if rc.DeviceUserCount < 3 || rc.DeviceUserCount >= 5 {
					return nil
				}
				return &Hit{Message: fmt.Sprintf("device shared by %d accounts", rc.DeviceUserCount)}
			},
		},
		{
			Name:     "missing_device_fingerprint",
			Category: CategoryDevice,
			Severity: domain.SeverityLow,
			Score:    10,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				if tx.Enrichment.DeviceFingerprint != "" || tx.Amount < 100000 {
					return nil
				}
				return &Hit{Message: "high-value transaction with no device fingerprint"}
			},
		},
		{
			Name:     "automation_user_agent",
			Category: CategoryDevice,
			Severity: domain.SeverityHigh,
			Score:    35,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				ua := strings.ToLower(tx.Enrichment.UserAgent)
				if ua == "" {
					return nil
				}
				for _, marker := range automationAgents {
					if strings.Contains(ua, marker) {
						return &Hit{
							Message:  "user agent identifies an automation tool",
							Metadata: map[string]any{"marker": marker},
						}
					}
				}
				return nil
			},
		},
		{
			Name:     "missing_user_agent_web",
			Category: CategoryDevice,
			Severity: domain.SeverityLow,
			Score:    8,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				if tx.Enrichment.UserAgent != "" || tx.Enrichment.DeviceFingerprint == "" {
					return nil
				}
				return &Hit{Message: "fingerprinted session sent no user agent"}
			},
		},
		{
			Name:     "device_fanout_new_account",
			Category: CategoryDevice,
			Severity: domain.SeverityHigh,
			Score:    45,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				age := tx.Enrichment.AccountAgeDays
				if age == nil || *age > 7 || rc.DeviceUserCount < 3 {
					return nil
				}
				return &Hit{
					Message:    fmt.Sprintf("new account on a device already tied to %d others", rc.DeviceUserCount),
					Confidence: confidence(0.8),
				}
			},
		},
		{
			Name:     "shared_device_high_value",
			Category: CategoryDevice,
			Severity: domain.SeverityCritical,
			Score:    50,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				if rc.DeviceUserCount < 3 || tx.Amount < 500000 {
					return nil
				}
				return &Hit{
					Message:    fmt.Sprintf("%.0f moved from a device shared by %d accounts", tx.Amount, rc.DeviceUserCount),
					Confidence: confidence(0.85),
				}
			},
		},
		{
			Name:     "device_shared_pair",
			Category: CategoryDevice,
			Severity: domain.SeverityLow,
			Score:    8,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				if rc.DeviceUserCount != 2 {
					return nil
				}
				return &Hit{Message: "device fingerprint shared by one other account"}
			},
		},
		{
			Name:     "shared_device_burst",
			Category: CategoryDevice,
			Severity: domain.SeverityHigh,
			Score:    35,
			Check: func(tx *domain.Transaction, rc *domain.RiskContext) *Hit {
				if rc.DeviceUserCount < 2 || rc.Count10m < 10 {
					return nil
				}
				return &Hit{Message: "rapid transaction burst from a multi-account device"}
			},
		},
	}
}
