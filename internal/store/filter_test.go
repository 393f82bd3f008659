package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/querystate/internal/ir"
)

func TestCompileSelect(t *testing.T) {
	tests := []struct {
		name  string
		pred  Predicate
		where string
		args  []any
	}{
		{
			name:  "nil matches everything",
			pred:  nil,
			where: "",
		},
		{
			name:  "equals",
			pred:  Equals{Column: "token", Value: "nav-1"},
			where: " WHERE token = ?",
			args:  []any{"nav-1"},
		},
		{
			name:  "after",
			pred:  After{Seq: 4},
			where: " WHERE seq > ?",
			args:  []any{int64(4)},
		},
		{
			name:  "and",
			pred:  And{Equals{Column: "route", Value: "/users"}, Equals{Column: "outcome", Value: "redirect"}},
			where: " WHERE (route = ?) AND (outcome = ?)",
			args:  []any{"/users", "redirect"},
		},
		{
			name:  "empty and",
			pred:  And{},
			where: " WHERE 1 = 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args, err := compileSelect(tt.pred)
			require.NoError(t, err)
			assert.Equal(t, `SELECT `+cycleColumns+` FROM cycles`+tt.where+` ORDER BY seq ASC`, query)
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestCompileSelect_RejectsUnknownColumns(t *testing.T) {
	_, _, err := compileSelect(Equals{Column: "state; DROP TABLE cycles", Value: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown column")

	_, _, err = compileSelect(And{After{Seq: 1}, Equals{Column: "seq", Value: "1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "and[1]")

	_, _, err = compileSelect(And{nil})
	require.Error(t, err)
}

func TestSelect(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for seq := int64(1); seq <= 4; seq++ {
		rec := reconciledRecord(seq)
		if seq%2 == 0 {
			rec.Route = "/users"
			rec.URL = "/users"
		}
		require.NoError(t, s.WriteCycle(ctx, rec))
	}

	users, err := s.Select(ctx, And{Equals{Column: "route", Value: "/users"}, After{Seq: 2}})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, int64(4), users[0].Seq)

	all, err := s.Select(ctx, Equals{Column: "outcome", Value: ir.CycleReconciled})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	_, err = s.Select(ctx, Equals{Column: "bogus"})
	assert.Error(t, err)
}
