// Package rules provides the fraud rule catalog and its evaluator.
//
// Every rule is a pure predicate over (transaction, context): it performs no
// I/O, mutates nothing, and returns at most one hit. Anything a rule needs
// must already be on the RiskContext built by the aggregator.
package rules

import (
	"fmt"
	"sort"

	"github.com/Timiochukwu/sentinel/internal/domain"
)

// Category groups rules for listing and diagnostics.
type Category string

const (
	CategoryIdentity    Category = "identity"
	CategoryDevice      Category = "device"
	CategoryNetwork     Category = "network"
	CategoryBehavior    Category = "behavior"
	CategoryTakeover    Category = "account_takeover"
	CategoryGeoVelocity Category = "geo_velocity"
	CategoryConsortium  Category = "consortium"
	CategoryLending     Category = "lending"
	CategoryPayments    Category = "payments"
	CategoryBetting     Category = "betting"
	CategoryCrypto      Category = "crypto"
	CategoryMarketplace Category = "marketplace"
	CategoryEcommerce   Category = "ecommerce"
)

// Hit is a rule's triggered result before it becomes a FraudFlag.
type Hit struct {
	Message    string
	Confidence *float64
	Metadata   map[string]any
}

// CheckFunc decides whether a rule fires. A nil return means not triggered.
type CheckFunc func(tx *domain.Transaction, rc *domain.RiskContext) *Hit

// Rule is one catalog entry. Name is unique across the whole catalog; an
// empty Verticals set means the rule applies everywhere.
type Rule struct {
	Name      string
	Category  Category
	Severity  domain.Severity
	Score     float64
	Verticals []domain.Vertical
	Check     CheckFunc
}

// AppliesTo reports whether the rule runs for the given vertical.
func (r Rule) AppliesTo(v domain.Vertical) bool {
	if len(r.Verticals) == 0 {
		return true
	}
	for _, rv := range r.Verticals {
		if rv == v {
			return true
		}
	}
	return false
}

// Flag converts a hit into the immutable flag shape.
func (r Rule) Flag(h *Hit) domain.FraudFlag {
	return domain.FraudFlag{
		Rule:       r.Name,
		Severity:   r.Severity,
		Message:    h.Message,
		Score:      r.Score,
		Confidence: h.Confidence,
		Metadata:   h.Metadata,
	}
}

// Catalog assembles the full built-in rule set. Rule names must be unique;
// duplicates are a programming error caught at startup.
func Catalog() ([]Rule, error) {
	groups := [][]Rule{
		identityRules(),
		deviceRules(),
		networkRules(),
		behaviorRules(),
		takeoverRules(),
		geoVelocityRules(DefaultTravelLimits()),
		consortiumRules(),
		fintechRules(),
		amlRules(),
		lendingRules(),
		paymentsRules(),
		bettingRules(),
		cryptoRules(),
		marketplaceRules(),
		ecommerceRules(),
	}

	seen := map[string]struct{}{}
	var all []Rule
	for _, group := range groups {
		for _, r := range group {
			if _, dup := seen[r.Name]; dup {
				return nil, fmt.Errorf("duplicate rule name %q", r.Name)
			}
			seen[r.Name] = struct{}{}
			all = append(all, r)
		}
	}

	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return all, nil
}

// confidence builds an optional confidence pointer.
func confidence(v float64) *float64 {
	return &v
}

// only builds a vertical restriction; an absent restriction means all.
func only(vs ...domain.Vertical) []domain.Vertical {
	return vs
}
