package reconcile

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/querystate/internal/ir"
)

func TestCompressRoundTrip(t *testing.T) {
	m := map[string]string{"pageSize": "10", "filter": "some value", "page": "1;2;3", "é": "ü"}

	blob, err := Compress(m)
	require.NoError(t, err)
	assert.Regexp(t, `^[A-Za-z0-9_-]+$`, blob)

	back, err := Decompress(blob)
	require.NoError(t, err)
	assert.Equal(t, m, back.Map())
}

func TestCompressDeterministic(t *testing.T) {
	a, err := Compress(map[string]string{"a": "1", "b": "2"})
	require.NoError(t, err)
	b, err := Compress(map[string]string{"b": "2", "a": "1"})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDecompressRejectsGarbage(t *testing.T) {
	_, err := Decompress("!!!")
	assert.Error(t, err)

	_, err = Decompress(base64.RawURLEncoding.EncodeToString([]byte("not zstd")))
	assert.Error(t, err)
}

func compressedOptions() ir.Options {
	return ir.Options{UseCompression: true}
}

func TestReconcileCompressedRoundTrip(t *testing.T) {
	schema := storeSchema()
	in := Input{Location: ir.ParseLocation("/?pageSize=10&filter=x&openToggles=60&extra=1"), Schema: schema, Options: compressedOptions()}

	res := Reconcile(in)
	require.Equal(t, ir.OutcomeRedirect, res.Outcome)
	target := ir.ParseLocation(res.Redirect)
	assert.Equal(t, []string{"q"}, target.Query.Keys())

	in.Location = target
	again := Reconcile(in)
	require.Equal(t, ir.OutcomeReconciled, again.Outcome)
	assert.True(t, res.State.Equal(again.State))
	assert.Equal(t, ir.Number(10), again.State["pageSize"])
	assert.Equal(t, ir.String("1"), again.State["extra"])
}

func TestReconcileCompressedInvalidBlob(t *testing.T) {
	in := Input{Location: ir.ParseLocation("/list?q=garbage"), Schema: storeSchema(), Options: compressedOptions()}

	res := Reconcile(in)
	require.Equal(t, ir.OutcomeRedirect, res.Outcome)
	assert.Equal(t, "/list", res.Redirect)
	assert.Equal(t, ir.Number(30), res.State["pageSize"])
	require.NotEmpty(t, res.Corrections)
	assert.Equal(t, ReasonBadCompressed, res.Corrections[0].Reason)
}

func TestReconcileCompressedEmpty(t *testing.T) {
	res := Reconcile(Input{Location: ir.ParseLocation("/list"), Schema: storeSchema(), Options: compressedOptions()})
	assert.Equal(t, ir.OutcomeReconciled, res.Outcome)
}

func TestReconcileCompressedRoundTripProperty(t *testing.T) {
	schema := storeSchema()
	states := []string{
		"/?page=4;5;6",
		"/?allowed=Best&numberOrNull=2",
		"/?filter=%26%3D%3F&pageStringsOrNull=a;b",
	}
	for _, url := range states {
		plain := Reconcile(Input{Location: ir.ParseLocation(url), Schema: schema})
		require.Equal(t, ir.OutcomeReconciled, plain.Outcome, url)

		blob, err := Compress(plain.Pairs.Map())
		require.NoError(t, err)

		compressed := Reconcile(Input{
			Location: ir.Location{Path: "/", Query: ir.Query{{Key: "q", Value: blob}}},
			Schema:   schema,
			Options:  compressedOptions(),
		})
		require.Equal(t, ir.OutcomeReconciled, compressed.Outcome, url)
		assert.True(t, plain.State.Equal(compressed.State), url)
	}
}
