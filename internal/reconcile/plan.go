package reconcile

import (
	"strings"

	"github.com/roach88/querystate/internal/codec"
	"github.com/roach88/querystate/internal/ir"
)

// Plan renders the redirect target for path and canonical pairs. Without
// pairs the target is the bare path. In compressed mode the pairs are
// carried as one opts.Key() parameter.
func Plan(path string, pairs ir.Query, opts ir.Options) (string, error) {
	if len(pairs) == 0 {
		return path, nil
	}
	if !opts.UseCompression {
		return ir.Location{Path: path, Query: pairs}.String(), nil
	}

	blob, err := Compress(pairs.Map())
	if err != nil {
		return "", err
	}
	return ir.Location{Path: path, Query: ir.Query{{Key: opts.Key(), Value: blob}}}.String(), nil
}

// planMulti renders the URL form of a decoded multi value. When the raw
// elements are a prefix of the canonical ones only the missing tail is
// appended, and when the canonical elements are a prefix of the raw ones
// the raw tail is cut. Otherwise the value is re-serialized.
func planMulti(spec ir.FieldSpec, raw string, value ir.Value) string {
	want := codec.Elements(spec, value)
	sep := spec.Sep()
	if raw == "" {
		return strings.Join(want, sep)
	}

	have := strings.Split(raw, sep)
	n := min(len(have), len(want))
	for i := 0; i < n; i++ {
		if have[i] != want[i] {
			return strings.Join(want, sep)
		}
	}

	switch {
	case len(want) > len(have):
		return raw + sep + strings.Join(want[len(have):], sep)
	case len(want) < len(have):
		return strings.Join(have[:len(want)], sep)
	default:
		return raw
	}
}
