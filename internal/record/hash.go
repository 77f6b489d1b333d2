package record

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Domain prefixes for digest computation. The version suffix enables
// future algorithm migration without colliding with old digests.
const (
	DomainEvent   = "herbtrace/event/v1"
	DomainOutcome = "herbtrace/outcome/v1"
	DomainBlock   = "herbtrace/block/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null byte prevents
// domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// EventDigest computes the placeholder signature for an event: a hash
// over the event's canonical fields plus the submitting node id.
//
// This is NOT a verifiable cryptographic signature. A deployment
// wanting real trust guarantees must replace it with asymmetric
// signing verified against the node's registered public key.
func EventDigest(id string, kind EventKind, nodeID string, role Role, payload Payload, ts time.Time) (string, error) {
	obj := map[string]any{
		"id":        id,
		"kind":      string(kind),
		"node_id":   nodeID,
		"node_role": string(role),
		"timestamp": canonicalTime(ts),
		"payload":   payload.canonical(),
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("EventDigest: %w", err)
	}
	return hashWithDomain(DomainEvent, canonical), nil
}

// OutcomeDigest derives the digest stored on a validation outcome,
// computed over (event id, timestamp, kind, node id).
func OutcomeDigest(eventID string, ts time.Time, kind EventKind, nodeID string) (string, error) {
	obj := map[string]any{
		"event_id":  eventID,
		"timestamp": canonicalTime(ts),
		"kind":      string(kind),
		"node_id":   nodeID,
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("OutcomeDigest: %w", err)
	}
	return hashWithDomain(DomainOutcome, canonical), nil
}

// BlockDigest computes a block's digest over (index, timestamp, the
// canonical serialization of all events, previous digest, nonce).
// The stored Digest field itself is excluded: Validate recomputes this
// function and compares against the stored value.
func BlockDigest(b Block, nonce int64) (string, error) {
	events := make([]any, len(b.Events))
	for i, e := range b.Events {
		events[i] = e.canonical()
	}
	obj := map[string]any{
		"index":       b.Index,
		"timestamp":   canonicalTime(b.Timestamp),
		"events":      events,
		"prev_digest": b.PrevDigest,
		"sealer_id":   b.SealerID,
		"nonce":       nonce,
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("BlockDigest: %w", err)
	}
	return hashWithDomain(DomainBlock, canonical), nil
}
