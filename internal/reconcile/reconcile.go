package reconcile

import (
	"github.com/roach88/querystate/internal/codec"
	"github.com/roach88/querystate/internal/ir"
)

// Correction reasons beyond the codec's decode reasons.
const (
	ReasonUnknownParam    = "Unknown param"
	ReasonNotCanonical    = "Not canonical"
	ReasonKeyCase         = "Key case"
	ReasonTransition      = "Schema transition"
	ReasonBadCompressed   = "Invalid compressed state"
	ReasonQuerySuppressed = "Query suppressed"
)

// Snapshot is a completed reconciliation, used as history by the next one.
type Snapshot struct {
	Location ir.Location     `json:"location"`
	Schema   *ir.StateConfig `json:"-"`

	// Raw holds the query pairs the state was decoded from, after
	// decompression and key folding.
	Raw   ir.Query `json:"raw,omitempty"`
	State ir.State `json:"state"`
}

// URL returns the snapshot's full location.
func (s *Snapshot) URL() string {
	if s == nil {
		return ""
	}
	return s.Location.String()
}

// Input is everything one reconciliation needs.
type Input struct {
	Location ir.Location
	Schema   *ir.StateConfig
	Options  ir.Options

	// Previous is the last completed snapshot, or nil. It enables value
	// carry-over when a field changes shape between route nodes.
	Previous *Snapshot
}

// Result is the outcome of Reconcile.
type Result struct {
	Outcome ir.OutcomeKind `json:"outcome"`

	// State is the canonical state. Set for both outcomes; only a
	// Reconciled state may be published.
	State ir.State `json:"state"`

	// Redirect is the canonical target location when Outcome is Redirect.
	Redirect string `json:"redirect,omitempty"`

	// Reason is ir.ReasonRedirect or ir.ReasonStrip for redirects.
	Reason string `json:"reason,omitempty"`

	// Raw is the decoded query the state was derived from.
	Raw ir.Query `json:"raw,omitempty"`

	// Pairs is the canonical query in schema-then-unknown order.
	Pairs ir.Query `json:"pairs,omitempty"`

	Corrections []ir.Correction `json:"corrections,omitempty"`
}

// Snapshot builds the history record for a Reconciled result.
func (r Result) Snapshot(loc ir.Location, schema *ir.StateConfig) *Snapshot {
	return &Snapshot{Location: loc, Schema: schema, Raw: r.Raw, State: r.State}
}

// Reconcile decodes in.Location's query against in.Schema.
func Reconcile(in Input) Result {
	schema := in.Schema
	if schema == nil {
		schema = &ir.StateConfig{}
	}
	path := in.Location.Path

	if schema.Suppress() && len(in.Location.Query) > 0 {
		res := Result{Outcome: ir.OutcomeRedirect, State: ir.State{}, Redirect: path, Reason: ir.ReasonStrip}
		for _, p := range in.Location.Query {
			res.Corrections = append(res.Corrections, ir.Correction{Key: p.Key, Raw: p.Value, Reason: ReasonQuerySuppressed, Dropped: true})
		}
		return res
	}

	var corrections []ir.Correction
	raw := in.Location.Query
	if in.Options.UseCompression {
		key := in.Options.Key()
		if blob, ok := raw.Get(key); ok {
			decoded, err := Decompress(blob)
			if err != nil {
				corrections = append(corrections, ir.Correction{Key: key, Raw: blob, Reason: ReasonBadCompressed, Dropped: true})
			}
			raw = decoded
		}
	}

	matched, unknown, folded := match(schema, raw)
	corrections = append(corrections, folded...)

	state := make(ir.State, len(schema.Fields)+len(unknown))
	var pairs ir.Query
	var working ir.Query

	for _, spec := range schema.Fields {
		value, present := matched[spec.Name]
		if !present {
			state[spec.Name] = codec.Default(spec)
			continue
		}
		working = append(working, ir.Param{Key: spec.Name, Value: value})

		if v, ok := carryOver(in.Previous, spec, value); ok {
			canonical := codec.Encode(spec, v)
			state[spec.Name] = v
			pairs = append(pairs, ir.Param{Key: spec.Name, Value: canonical})
			if canonical != value {
				corrections = append(corrections, ir.Correction{Key: spec.Name, Raw: value, Canonical: canonical, Reason: ReasonTransition})
			}
			continue
		}

		res := codec.Decode(spec, value)
		state[spec.Name] = res.Value
		if !res.Valid {
			corrections = append(corrections, ir.Correction{Key: spec.Name, Raw: value, Reason: res.Reason, Dropped: true})
			continue
		}

		canonical := codec.Encode(spec, res.Value)
		if spec.Kind == ir.KindMulti {
			canonical = planMulti(spec, value, res.Value)
		}
		pairs = append(pairs, ir.Param{Key: spec.Name, Value: canonical})
		if canonical != value {
			corrections = append(corrections, ir.Correction{Key: spec.Name, Raw: value, Canonical: canonical, Reason: ReasonNotCanonical})
		}
	}

	for _, p := range unknown {
		working = append(working, p)
		if schema.RemoveUnknown() {
			corrections = append(corrections, ir.Correction{Key: p.Key, Raw: p.Value, Reason: ReasonUnknownParam, Dropped: true})
			continue
		}
		state[p.Key] = ir.String(p.Value)
		pairs = append(pairs, p)
	}

	res := Result{
		Outcome:     ir.OutcomeReconciled,
		State:       state,
		Raw:         working,
		Pairs:       pairs,
		Corrections: corrections,
	}

	if in.Options.UseCompression {
		target, err := Plan(path, pairs, in.Options)
		if err != nil || target != in.Location.String() {
			if err != nil {
				// Unencodable state cannot be carried compressed; fall back to
				// the plain form so the URL still reproduces the state.
				target, _ = Plan(path, pairs, ir.Options{})
			}
			res.Outcome = ir.OutcomeRedirect
			res.Redirect = target
			res.Reason = ir.ReasonRedirect
		}
		return res
	}

	if len(corrections) > 0 {
		res.Outcome = ir.OutcomeRedirect
		res.Redirect, _ = Plan(path, pairs, in.Options)
		res.Reason = ir.ReasonRedirect
	}
	return res
}
