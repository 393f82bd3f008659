package store

import (
	"bytes"
	"context"
	"database/sql"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/querystate/internal/engine"
	"github.com/roach88/querystate/internal/ir"
	"github.com/roach88/querystate/internal/testutil"
)

func reconciledRecord(seq int64) ir.CycleRecord {
	return ir.CycleRecord{
		Seq:        seq,
		Token:      "nav-1",
		URL:        "/?pageSize=10",
		Route:      "/",
		SchemaHash: "abc123",
		Outcome:    ir.CycleReconciled,
		State: ir.State{
			"pageSize": ir.Number(10),
			"filter":   ir.String(""),
			"role":     ir.Null{},
			"page":     ir.Numbers(1, 2, 3),
			"toggles":  ir.Bools(true, false),
		},
	}
}

func TestWriteCycle_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rec := reconciledRecord(1)
	require.NoError(t, s.WriteCycle(ctx, rec))

	got, err := s.ReadCycle(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestWriteCycle_RedirectWithCorrections(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rec := ir.CycleRecord{
		Seq:     2,
		Token:   "nav-1",
		URL:     "/?pageSize=abc&x=1",
		Route:   "/users",
		Outcome: ir.CycleRedirect,
		Target:  "/users",
		Reason:  ir.ReasonRedirect,
		Corrections: []ir.Correction{
			{Key: "pageSize", Raw: "abc", Reason: "Invalid Number", Dropped: true},
			{Key: "x", Raw: "1", Reason: "Unknown param", Dropped: true},
		},
	}
	require.NoError(t, s.WriteCycle(ctx, rec))

	got, err := s.ReadCycle(ctx, 2)
	require.NoError(t, err)
	assert.Nil(t, got.State, "redirect records carry no state")
	assert.Equal(t, rec.Corrections, got.Corrections)
	assert.Equal(t, "/users", got.Target)
}

func TestWriteCycle_DuplicateSeqIgnored(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteCycle(ctx, reconciledRecord(1)))

	dup := reconciledRecord(1)
	dup.URL = "/other"
	dup.Corrections = []ir.Correction{{Key: "k", Raw: "v", Reason: "r"}}
	require.NoError(t, s.WriteCycle(ctx, dup))

	got, err := s.ReadCycle(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "/?pageSize=10", got.URL)
	assert.Empty(t, got.Corrections)
}

func TestReadCycle_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadCycle(context.Background(), 42)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestReadCycles_OrderedBySeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, seq := range []int64{3, 1, 2} {
		require.NoError(t, s.WriteCycle(ctx, reconciledRecord(seq)))
	}

	recs, err := s.ReadCycles(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	for i, rec := range recs {
		assert.Equal(t, int64(i+1), rec.Seq)
	}
}

func TestReadCycles_Empty(t *testing.T) {
	s := createTestStore(t)

	recs, err := s.ReadCycles(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
}

func TestReadTokenAndOutcome(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first := reconciledRecord(1)
	second := reconciledRecord(2)
	second.Token = "nav-2"
	second.Outcome = ir.CycleFailed
	second.Error = "REDIRECT_CYCLE: redirect cycle detected"
	second.State = nil
	require.NoError(t, s.WriteCycle(ctx, first))
	require.NoError(t, s.WriteCycle(ctx, second))

	byToken, err := s.ReadToken(ctx, "nav-2")
	require.NoError(t, err)
	require.Len(t, byToken, 1)
	assert.Equal(t, int64(2), byToken[0].Seq)

	failed, err := s.ReadOutcome(ctx, ir.CycleFailed)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, second.Error, failed[0].Error)
}

func TestLastSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	seq, err := s.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), seq)

	require.NoError(t, s.WriteCycle(ctx, reconciledRecord(7)))
	seq, err = s.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), seq)
}

func TestStore_AsEngineJournal(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	quiet := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	e := engine.New(
		engine.WithJournal(s),
		engine.WithNavigator(&testutil.RecordingNavigator{}),
		engine.WithTokenGenerator(testutil.NewSequentialTokens("")),
		engine.WithLogger(quiet),
	)
	defer e.Stop()

	for _, url := range []string{"/?pageSize=abc", "/", "/?filter=x"} {
		_, err := e.Process(ctx, engine.Event{Type: engine.EventNavigation, URL: url, Chain: testutil.DemoChain("")})
		require.NoError(t, err)
	}

	recs, err := s.ReadCycles(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, []string{ir.CycleRedirect, ir.CycleReconciled, ir.CycleReconciled},
		[]string{recs[0].Outcome, recs[1].Outcome, recs[2].Outcome})
	assert.Equal(t, recs[0].Token, recs[1].Token, "follow-up shares the redirect's token")

	fresh := engine.New(engine.WithLogger(quiet))
	defer fresh.Stop()
	diffs, err := engine.Replay(ctx, fresh, recs, func(string) []*ir.RouteNode {
		return testutil.DemoChain("")
	})
	require.NoError(t, err)
	assert.Empty(t, diffs)

	last, err := s.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, recs[2].Seq, last)
}
