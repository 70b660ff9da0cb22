// Package domain defines the core types and interfaces for Sentinel.
package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Vertical is an industry segment with its own risk profile.
type Vertical string

const (
	VerticalLending     Vertical = "lending"
	VerticalFintech     Vertical = "fintech"
	VerticalPayments    Vertical = "payments"
	VerticalEcommerce   Vertical = "ecommerce"
	VerticalBetting     Vertical = "betting"
	VerticalCrypto      Vertical = "crypto"
	VerticalMarketplace Vertical = "marketplace"
	VerticalGaming      Vertical = "gaming"
)

// Verticals returns all known verticals in a stable order.
func Verticals() []Vertical {
	return []Vertical{
		VerticalLending, VerticalFintech, VerticalPayments, VerticalEcommerce,
		VerticalBetting, VerticalCrypto, VerticalMarketplace, VerticalGaming,
	}
}

// KnownVertical reports whether v names a supported vertical.
func KnownVertical(v Vertical) bool {
	for _, k := range Verticals() {
		if k == v {
			return true
		}
	}
	return false
}

// VerticalNames returns the valid vertical names joined for error messages.
func VerticalNames() string {
	names := make([]string, 0, len(Verticals()))
	for _, v := range Verticals() {
		names = append(names, string(v))
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// Transaction is an incoming transaction to be scored. It is immutable once
// built from the API request.
type Transaction struct {
	ID       string   `json:"id"`
	TenantID string   `json:"tenantId"`
	UserID   string   `json:"userId"`
	Type     string   `json:"type"`
	Vertical Vertical `json:"vertical"`

	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`

	Timestamp time.Time `json:"timestamp"`
	CreatedAt time.Time `json:"createdAt"`

	Enrichment Enrichment     `json:"enrichment"`
	Metadata   map[string]any `json:"metadata,omitempty"`

	// IdentifierHashes are the salted identifier hashes persisted in place
	// of raw identity attributes. Populated on load, never serialized.
	IdentifierHashes []HashedIdentifier `json:"-"`

	// Outcome fields are set once feedback confirms the label.
	Outcome   string     `json:"outcome,omitempty"`
	FraudType string     `json:"fraudType,omitempty"`
	OutcomeAt *time.Time `json:"outcomeAt,omitempty"`
}

// Enrichment carries the optional attributes a client may attach to a
// transaction. Missing data is represented by zero values or nil pointers so
// rules can distinguish "absent" from "zero".
type Enrichment struct {
	// Device and network
	DeviceFingerprint string   `json:"deviceFingerprint,omitempty"`
	UserAgent         string   `json:"userAgent,omitempty"`
	IPAddress         string   `json:"ipAddress,omitempty"`
	Latitude          *float64 `json:"latitude,omitempty"`
	Longitude         *float64 `json:"longitude,omitempty"`

	// Identity attributes. Raw values are hashed at the pipeline boundary
	// before any cross-tenant use and are never persisted.
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	IDNumber string `json:"idNumber,omitempty"`

	// Account
	AccountAgeDays  *int `json:"accountAgeDays,omitempty"`
	PasswordChanged bool `json:"passwordChangedRecently,omitempty"`
	NewBeneficiary  bool `json:"newBeneficiary,omitempty"`

	// Behavioral biometrics (0.0-1.0, higher = more human-like)
	TypingScore  *float64 `json:"typingScore,omitempty"`
	MouseScore   *float64 `json:"mouseScore,omitempty"`
	SessionSecs  *int     `json:"sessionSeconds,omitempty"`
	CopyPasteAll bool     `json:"copyPasteAll,omitempty"`

	// Card
	CardBIN         string `json:"cardBin,omitempty"`
	CardLast4       string `json:"cardLast4,omitempty"`
	CardCountry     string `json:"cardCountry,omitempty"`
	BillingCountry  string `json:"billingCountry,omitempty"`
	ShippingCountry string `json:"shippingCountry,omitempty"`
	CardAttempts    *int   `json:"cardAttempts,omitempty"`

	// Crypto wallet
	WalletAddress string   `json:"walletAddress,omitempty"`
	WalletAgeDays *int     `json:"walletAgeDays,omitempty"`
	MixerExposure *float64 `json:"mixerExposure,omitempty"`

	// Marketplace / e-commerce
	SellerID          string `json:"sellerId,omitempty"`
	SellerAgeDays     *int   `json:"sellerAgeDays,omitempty"`
	BuyerSellerShared bool   `json:"buyerSellerSharedDevice,omitempty"`

	// Betting / gaming
	BonusClaimed   bool `json:"bonusClaimed,omitempty"`
	ReferralChain  *int `json:"referralChainDepth,omitempty"`
	WithdrawalOnly bool `json:"withdrawalWithoutPlay,omitempty"`
}

// Validate checks the required transaction fields. Vertical enablement is a
// policy concern and checked separately.
func (t *Transaction) Validate() error {
	if t.TenantID == "" {
		return fmt.Errorf("%w: tenantId is required", ErrInvalidInput)
	}
	if t.UserID == "" {
		return fmt.Errorf("%w: userId is required", ErrInvalidInput)
	}
	if t.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	if t.Type == "" {
		return fmt.Errorf("%w: type is required", ErrInvalidInput)
	}
	if !KnownVertical(t.Vertical) {
		return fmt.Errorf("%w: %q (valid: %s)", ErrUnknownVertical, t.Vertical, VerticalNames())
	}
	return nil
}

// HasCoordinates reports whether the transaction carries a geolocation.
func (t *Transaction) HasCoordinates() bool {
	return t.Enrichment.Latitude != nil && t.Enrichment.Longitude != nil
}
