package store

import (
	"context"
	"fmt"

	"github.com/roach88/querystate/internal/ir"
)

// WriteCycle appends a cycle record and its corrections in one
// transaction. Uses ON CONFLICT(seq) DO NOTHING for idempotency: a record
// whose seq is already journaled is silently ignored, corrections
// included.
//
// WriteCycle satisfies engine.Journal.
func (s *Store) WriteCycle(ctx context.Context, rec ir.CycleRecord) error {
	state, err := marshalState(rec.State)
	if err != nil {
		return fmt.Errorf("write cycle %d: %w", rec.Seq, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write cycle %d: begin tx: %w", rec.Seq, err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO cycles
		(seq, token, url, route, schema_hash, outcome, target, reason, state, error, engine_version, ir_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(seq) DO NOTHING
	`,
		rec.Seq,
		rec.Token,
		rec.URL,
		rec.Route,
		rec.SchemaHash,
		rec.Outcome,
		rec.Target,
		rec.Reason,
		state,
		rec.Error,
		ir.EngineVersion,
		ir.SchemaVersion,
	)
	if err != nil {
		return fmt.Errorf("write cycle %d: %w", rec.Seq, err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("write cycle %d: rows affected: %w", rec.Seq, err)
	}
	if inserted == 0 {
		return nil
	}

	for i, c := range rec.Corrections {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO corrections (seq, idx, key, raw, canonical, reason, dropped)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, rec.Seq, i, c.Key, c.Raw, c.Canonical, c.Reason, c.Dropped)
		if err != nil {
			return fmt.Errorf("write cycle %d: correction %q: %w", rec.Seq, c.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write cycle %d: commit: %w", rec.Seq, err)
	}
	return nil
}
