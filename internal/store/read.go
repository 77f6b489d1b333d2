package store

import (
	"database/sql"
	"fmt"

	"github.com/herbtrace/ledger/internal/record"
	"github.com/herbtrace/ledger/internal/registry"
)

// LoadNodes returns every archived node ordered by id.
func (s *Store) LoadNodes() ([]record.Node, error) {
	rows, err := s.db.Query(`
		SELECT id, role, public_key, metadata, active, registered_at
		FROM nodes
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("load nodes: %w", err)
	}
	defer rows.Close()

	var nodes []record.Node
	for rows.Next() {
		var (
			n            record.Node
			role         string
			metadata     string
			registeredAt string
		)
		if err := rows.Scan(&n.ID, &role, &n.PublicKey, &metadata, &n.Active, &registeredAt); err != nil {
			return nil, fmt.Errorf("load nodes: scan: %w", err)
		}
		n.Role = record.Role(role)
		if n.Metadata, err = unmarshalMetadata(metadata); err != nil {
			return nil, fmt.Errorf("load node %s: %w", n.ID, err)
		}
		if n.RegisteredAt, err = unmarshalTime(registeredAt); err != nil {
			return nil, fmt.Errorf("load node %s: %w", n.ID, err)
		}
		// Capabilities are derived from the role, not stored.
		n.Capabilities = registry.CapabilitiesFor(n.Role)
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

// LoadBlocks returns the archived chain in index order, each block with
// its events in sealed position order. An empty archive returns nil.
func (s *Store) LoadBlocks() ([]record.Block, error) {
	rows, err := s.db.Query(`
		SELECT block_index, timestamp, prev_digest, sealer_id, nonce, digest
		FROM blocks
		ORDER BY block_index ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("load blocks: %w", err)
	}
	defer rows.Close()

	var blocks []record.Block
	for rows.Next() {
		var (
			b  record.Block
			ts string
		)
		if err := rows.Scan(&b.Index, &ts, &b.PrevDigest, &b.SealerID, &b.Nonce, &b.Digest); err != nil {
			return nil, fmt.Errorf("load blocks: scan: %w", err)
		}
		if b.Timestamp, err = unmarshalTime(ts); err != nil {
			return nil, fmt.Errorf("load block %d: %w", b.Index, err)
		}
		blocks = append(blocks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load blocks: %w", err)
	}

	for i := range blocks {
		events, err := s.loadBlockEvents(blocks[i].Index)
		if err != nil {
			return nil, err
		}
		blocks[i].Events = events
	}
	return blocks, nil
}

// loadBlockEvents returns a block's events in sealed position order.
func (s *Store) loadBlockEvents(blockIndex int) ([]record.Event, error) {
	rows, err := s.db.Query(`
		SELECT id, kind, node_id, node_role, payload, timestamp, digest, outcome
		FROM events
		WHERE block_index = ?
		ORDER BY position ASC
	`, blockIndex)
	if err != nil {
		return nil, fmt.Errorf("load block %d events: %w", blockIndex, err)
	}
	defer rows.Close()

	events := []record.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("load block %d events: %w", blockIndex, err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// LoadPoolEvents returns the persisted pending pool in admission order.
func (s *Store) LoadPoolEvents() ([]record.Event, error) {
	rows, err := s.db.Query(`
		SELECT id, kind, node_id, node_role, payload, timestamp, digest, outcome
		FROM pool_events
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("load pool events: %w", err)
	}
	defer rows.Close()

	var events []record.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("load pool events: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// scanEvent reads one event row; the payload column is decoded into the
// concrete payload type selected by the kind column.
func scanEvent(rows *sql.Rows) (record.Event, error) {
	var (
		e       record.Event
		kind    string
		role    string
		payload string
		ts      string
		outcome sql.NullString
	)
	if err := rows.Scan(&e.ID, &kind, &e.NodeID, &role, &payload, &ts, &e.Digest, &outcome); err != nil {
		return record.Event{}, fmt.Errorf("scan event: %w", err)
	}

	e.Kind = record.EventKind(kind)
	e.NodeRole = record.Role(role)

	var err error
	if e.Payload, err = record.DecodePayload(e.Kind, []byte(payload)); err != nil {
		return record.Event{}, fmt.Errorf("event %s: %w", e.ID, err)
	}
	if e.Timestamp, err = unmarshalTime(ts); err != nil {
		return record.Event{}, fmt.Errorf("event %s: %w", e.ID, err)
	}
	if e.Outcome, err = unmarshalOutcome(outcome); err != nil {
		return record.Event{}, fmt.Errorf("event %s: %w", e.ID, err)
	}
	return e, nil
}
