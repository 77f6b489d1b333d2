package record

import (
	"encoding/json"
	"time"
)

// Event is a single supply-chain record submitted by a node.
//
// An Event is immutable once admitted: the validation outcome is
// attached exactly once and never rewritten, and no container mutates
// an event after it enters the pool or a sealed block. Events are
// owned by exactly one container at a time (pool or block); read APIs
// hand out value copies.
type Event struct {
	ID        string    `json:"id"`
	Kind      EventKind `json:"kind"`
	NodeID    string    `json:"node_id"`
	NodeRole  Role      `json:"node_role"` // stamped at admission for traceability
	Payload   Payload   `json:"payload"`
	Timestamp time.Time `json:"timestamp"`

	// Digest is a placeholder signature over the event's canonical
	// fields plus the submitting node id. Not a cryptographic
	// signature; tamper evidence only.
	Digest string `json:"digest"`

	// Outcome is the validation record attached at admission.
	// Nil only on candidates that have not been evaluated yet.
	Outcome *Outcome `json:"outcome,omitempty"`
}

// Outcome records the result of rule evaluation for one event.
// Checks lists every rule that was actually evaluated, in evaluation
// order. Once attached to an event, an Outcome is never modified.
type Outcome struct {
	Checks []CheckResult `json:"checks"`
	Passed bool          `json:"passed"`
	Digest string        `json:"digest"`
}

// CheckResult is the verdict of a single named rule.
type CheckResult struct {
	Rule   string `json:"rule"`
	Passed bool   `json:"passed"`
	Reason string `json:"reason,omitempty"`
}

// MatchesBatch reports whether the event belongs to the given batch id,
// either as the batch's originating event (id match) or by referencing
// it from the payload. Both matches are accepted.
func (e Event) MatchesBatch(batchID string) bool {
	if e.ID == batchID {
		return true
	}
	for _, ref := range e.Payload.BatchRefs() {
		if ref == batchID {
			return true
		}
	}
	return false
}

// MarshalJSON renders the event with its concrete payload inline.
// The kind field disambiguates the payload union on the wire.
func (e Event) MarshalJSON() ([]byte, error) {
	type alias Event // drop method set to avoid recursion
	return json.Marshal(alias(e))
}

// canonical returns the digest input for the event, including the
// payload and any attached outcome. Block digests are computed over
// this form, so tampering with a sealed event's payload is detectable.
func (e Event) canonical() map[string]any {
	obj := map[string]any{
		"id":        e.ID,
		"kind":      string(e.Kind),
		"node_id":   e.NodeID,
		"node_role": string(e.NodeRole),
		"timestamp": canonicalTime(e.Timestamp),
		"payload":   e.Payload.canonical(),
	}
	if e.Digest != "" {
		obj["digest"] = e.Digest
	}
	if e.Outcome != nil {
		obj["outcome"] = map[string]any{
			"passed": e.Outcome.Passed,
			"digest": e.Outcome.Digest,
		}
	}
	return obj
}

// Block is an immutable, hash-linked batch of sealed events.
//
// Index is 0-based and contiguous; index 0 is the genesis block and is
// never removed. Events preserve admission order and are never
// reordered. Digest must carry the difficulty prefix of zero
// characters and PrevDigest must equal the prior block's digest.
type Block struct {
	Index      int       `json:"index"`
	Timestamp  time.Time `json:"timestamp"`
	Events     []Event   `json:"events"`
	PrevDigest string    `json:"prev_digest"`
	SealerID   string    `json:"sealer_id"`
	Nonce      int64     `json:"nonce"`
	Digest     string    `json:"digest"`
}

// canonicalTime renders a timestamp for digest input.
// UTC RFC 3339 with nanoseconds keeps the rendering unambiguous.
func canonicalTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
