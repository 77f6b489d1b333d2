package store

import (
	"database/sql"
	"fmt"

	"github.com/herbtrace/ledger/internal/record"
)

// SaveNode upserts a node record. Registration inserts; deactivation
// rewrites the same row with active = 0.
func (s *Store) SaveNode(node record.Node) error {
	metadata, err := marshalMetadata(node.Metadata)
	if err != nil {
		return fmt.Errorf("save node: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO nodes (id, role, public_key, metadata, active, registered_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			metadata = excluded.metadata,
			active = excluded.active
	`,
		node.ID,
		string(node.Role),
		node.PublicKey,
		metadata,
		node.Active,
		marshalTime(node.RegisteredAt),
	)
	if err != nil {
		return fmt.Errorf("save node: %w", err)
	}
	return nil
}

// AppendPoolEvent records an admitted event in the persisted pool.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - a retried write of
// the same admission is silently ignored.
func (s *Store) AppendPoolEvent(event record.Event) error {
	payload, outcome, err := marshalEventColumns(event)
	if err != nil {
		return fmt.Errorf("append pool event: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO pool_events (id, kind, node_id, node_role, payload, timestamp, digest, outcome)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		event.ID,
		string(event.Kind),
		event.NodeID,
		string(event.NodeRole),
		payload,
		marshalTime(event.Timestamp),
		event.Digest,
		outcome,
	)
	if err != nil {
		return fmt.Errorf("append pool event: %w", err)
	}
	return nil
}

// SaveBlock persists a sealed block, its events, and the removal of
// those events from the persisted pool in a single transaction, so a
// crash can never leave an event both pooled and sealed.
func (s *Store) SaveBlock(block record.Block) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("save block: begin tx: %w", err)
	}
	defer tx.Rollback() // no-op if committed

	_, err = tx.Exec(`
		INSERT INTO blocks (block_index, timestamp, prev_digest, sealer_id, nonce, digest)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(block_index) DO NOTHING
	`,
		block.Index,
		marshalTime(block.Timestamp),
		block.PrevDigest,
		block.SealerID,
		block.Nonce,
		block.Digest,
	)
	if err != nil {
		return fmt.Errorf("save block %d: %w", block.Index, err)
	}

	for pos, event := range block.Events {
		if err := insertSealedEvent(tx, block.Index, pos, event); err != nil {
			return fmt.Errorf("save block %d: %w", block.Index, err)
		}
		if _, err := tx.Exec(`DELETE FROM pool_events WHERE id = ?`, event.ID); err != nil {
			return fmt.Errorf("save block %d: clear pool: %w", block.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save block %d: commit: %w", block.Index, err)
	}
	return nil
}

func insertSealedEvent(tx *sql.Tx, blockIndex, position int, event record.Event) error {
	payload, outcome, err := marshalEventColumns(event)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		INSERT INTO events (id, block_index, position, kind, node_id, node_role, payload, timestamp, digest, outcome)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		event.ID,
		blockIndex,
		position,
		string(event.Kind),
		event.NodeID,
		string(event.NodeRole),
		payload,
		marshalTime(event.Timestamp),
		event.Digest,
		outcome,
	)
	if err != nil {
		return fmt.Errorf("insert event %s: %w", event.ID, err)
	}
	return nil
}

func marshalEventColumns(event record.Event) (payload string, outcome sql.NullString, err error) {
	payload, err = marshalPayload(event.Payload)
	if err != nil {
		return "", sql.NullString{}, err
	}
	outcome, err = marshalOutcome(event.Outcome)
	if err != nil {
		return "", sql.NullString{}, err
	}
	return payload, outcome, nil
}
