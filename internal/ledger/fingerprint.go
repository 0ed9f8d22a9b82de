package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// ComputeFingerprint returns a sha256 hex digest over the currently active
// decision set. The digest is pure and insertion-order independent: the
// active set holds at most one decision per category, so sorting by
// category gives a canonical order, and serializing through maps keeps
// JSON key order stable. Two ledgers holding the same active set always
// agree, even when their sequential decision ids differ.
//
// Plans persist this value at creation time; execution is gated on the
// recorded fingerprint matching the ledger's current one.
func (l *Ledger) ComputeFingerprint() string {
	active := l.ActiveDecisions()

	sort.Slice(active, func(i, j int) bool {
		return active[i].Category < active[j].Category
	})

	canonical := make([]map[string]any, 0, len(active))
	for _, d := range active {
		// Only fields that define the decision's meaning participate in
		// the digest. Ids, timestamps, and authorship are provenance, not
		// content: they vary with insertion order and re-import of an
		// identical active set must not change the fingerprint.
		canonical = append(canonical, map[string]any{
			"category":      d.Category,
			"description":   d.Description,
			"value":         d.Value,
			"justification": d.Justification,
		})
	}

	// encoding/json sorts map keys, giving a stable byte stream.
	data, err := json.Marshal(canonical)
	if err != nil {
		// Marshaling maps of strings cannot fail; keep the signature pure.
		panic("ledger: fingerprint marshal: " + err.Error())
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// DecisionSnapshot returns the active set as a category to value map.
// Plans store this beside the fingerprint so a mismatch can be reported
// in terms of which categories changed, not just differing digests.
func (l *Ledger) DecisionSnapshot() map[string]string {
	snapshot := make(map[string]string)
	for _, d := range l.ActiveDecisions() {
		snapshot[d.Category] = d.Value
	}
	return snapshot
}
