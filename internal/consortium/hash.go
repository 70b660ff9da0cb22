package consortium

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/Timiochukwu/sentinel/internal/domain"
)

// Hasher turns raw identity attributes into deterministic one-way salted
// hashes. Nothing downstream of this type ever sees a raw value; the salt
// must match across every node sharing a consortium pool.
type Hasher struct {
	salt []byte
}

// NewHasher creates a hasher with the given salt.
func NewHasher(salt string) *Hasher {
	return &Hasher{salt: []byte(salt)}
}

// Hash returns the hex-encoded salted SHA-256 of a normalized value, scoped
// by identifier type so a phone number and an ID number with the same digits
// do not collide.
func (h *Hasher) Hash(idType domain.IdentifierType, value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	sum := sha256.New()
	sum.Write(h.salt)
	sum.Write([]byte(idType))
	sum.Write([]byte(":"))
	sum.Write([]byte(normalized))
	return hex.EncodeToString(sum.Sum(nil))
}

// Identifiers hashes every identity attribute present on the transaction.
// Absent attributes produce no entry.
func (h *Hasher) Identifiers(tx *domain.Transaction) []domain.HashedIdentifier {
	var ids []domain.HashedIdentifier
	add := func(t domain.IdentifierType, raw string) {
		if raw == "" {
			return
		}
		ids = append(ids, domain.HashedIdentifier{Type: t, Hash: h.Hash(t, raw)})
	}

	add(domain.IdentifierDevice, tx.Enrichment.DeviceFingerprint)
	add(domain.IdentifierEmail, tx.Enrichment.Email)
	add(domain.IdentifierPhone, tx.Enrichment.Phone)
	add(domain.IdentifierID, tx.Enrichment.IDNumber)
	return ids
}

// Hashes extracts the hash strings from a set of identifiers.
func Hashes(ids []domain.HashedIdentifier) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.Hash)
	}
	return out
}
