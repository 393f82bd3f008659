package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/roach88/querystate/internal/ir"
)

// marshalState converts a State to canonical JSON TEXT. A nil state (e.g.
// a redirect record) is stored as NULL so it reads back as nil.
func marshalState(s ir.State) (sql.NullString, error) {
	if s == nil {
		return sql.NullString{}, nil
	}
	data, err := ir.MarshalCanonical(s)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshal state: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func unmarshalState(data sql.NullString) (ir.State, error) {
	if !data.Valid {
		return nil, nil
	}
	var s ir.State
	if err := json.Unmarshal([]byte(data.String), &s); err != nil {
		return nil, fmt.Errorf("unmarshal state: %w", err)
	}
	return s, nil
}
