package reconcile

import (
	"golang.org/x/text/cases"

	"github.com/roach88/querystate/internal/ir"
)

// match splits raw into values keyed by schema field name and the unknown
// remainder in order of appearance. With case-insensitive matching, every
// raw key that folds to a field name matches it and the last one wins; any
// key not spelled exactly like its field is reported as a correction.
func match(schema *ir.StateConfig, raw ir.Query) (map[string]string, ir.Query, []ir.Correction) {
	matched := make(map[string]string, len(schema.Fields))
	var unknown ir.Query
	var corrections []ir.Correction

	var folder cases.Caser
	byFold := map[string]string{}
	if !schema.CaseSensitive() {
		folder = cases.Fold()
		for _, f := range schema.Fields {
			byFold[folder.String(f.Name)] = f.Name
		}
	}

	for _, p := range raw {
		if _, ok := schema.Field(p.Key); ok {
			matched[p.Key] = p.Value
			continue
		}
		if len(byFold) > 0 {
			if name, ok := byFold[folder.String(p.Key)]; ok {
				matched[name] = p.Value
				corrections = append(corrections, ir.Correction{Key: p.Key, Raw: p.Value, Canonical: name, Reason: ReasonKeyCase, Dropped: true})
				continue
			}
		}
		unknown = append(unknown, p)
	}
	return matched, unknown, corrections
}
