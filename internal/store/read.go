package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/querystate/internal/ir"
)

const cycleColumns = `seq, token, url, route, schema_hash, outcome, target, reason, state, error`

// rowScanner abstracts *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCycle(row rowScanner) (ir.CycleRecord, error) {
	var (
		rec   ir.CycleRecord
		state sql.NullString
	)
	err := row.Scan(
		&rec.Seq,
		&rec.Token,
		&rec.URL,
		&rec.Route,
		&rec.SchemaHash,
		&rec.Outcome,
		&rec.Target,
		&rec.Reason,
		&state,
		&rec.Error,
	)
	if err != nil {
		return ir.CycleRecord{}, err
	}

	rec.State, err = unmarshalState(state)
	if err != nil {
		return ir.CycleRecord{}, fmt.Errorf("cycle %d: %w", rec.Seq, err)
	}
	return rec, nil
}

// ReadCycles returns every journaled cycle ordered by seq ASC.
// Returns an empty slice, never nil, for an empty journal.
func (s *Store) ReadCycles(ctx context.Context) ([]ir.CycleRecord, error) {
	return s.Select(ctx, nil)
}

// ReadToken returns the cycles of one navigation token ordered by seq ASC.
func (s *Store) ReadToken(ctx context.Context, token string) ([]ir.CycleRecord, error) {
	return s.Select(ctx, Equals{Column: "token", Value: token})
}

// ReadOutcome returns the cycles with the given outcome ordered by seq ASC.
func (s *Store) ReadOutcome(ctx context.Context, outcome string) ([]ir.CycleRecord, error) {
	return s.Select(ctx, Equals{Column: "outcome", Value: outcome})
}

func (s *Store) readCycles(ctx context.Context, query string, args ...any) ([]ir.CycleRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query cycles: %w", err)
	}
	defer rows.Close()

	recs := []ir.CycleRecord{}
	for rows.Next() {
		rec, err := scanCycle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cycle: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cycles: %w", err)
	}
	// rows must be drained before the single connection is reused
	rows.Close()

	for i := range recs {
		if recs[i].Corrections, err = s.readCorrections(ctx, recs[i].Seq); err != nil {
			return nil, err
		}
	}
	return recs, nil
}

// ReadCycle retrieves a single cycle by seq.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadCycle(ctx context.Context, seq int64) (ir.CycleRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+cycleColumns+` FROM cycles WHERE seq = ?`, seq)
	rec, err := scanCycle(row)
	if err != nil {
		return ir.CycleRecord{}, err
	}

	if rec.Corrections, err = s.readCorrections(ctx, seq); err != nil {
		return ir.CycleRecord{}, err
	}
	return rec, nil
}

// LastSeq returns the highest journaled seq, or 0 for an empty journal.
// An engine resumed against an existing journal starts its clock here.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM cycles`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("query last seq: %w", err)
	}
	return seq.Int64, nil
}

func (s *Store) readCorrections(ctx context.Context, seq int64) ([]ir.Correction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, raw, canonical, reason, dropped
		FROM corrections
		WHERE seq = ?
		ORDER BY idx ASC
	`, seq)
	if err != nil {
		return nil, fmt.Errorf("query corrections for cycle %d: %w", seq, err)
	}
	defer rows.Close()

	var out []ir.Correction
	for rows.Next() {
		var c ir.Correction
		if err := rows.Scan(&c.Key, &c.Raw, &c.Canonical, &c.Reason, &c.Dropped); err != nil {
			return nil, fmt.Errorf("scan correction for cycle %d: %w", seq, err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate corrections for cycle %d: %w", seq, err)
	}
	return out, nil
}
