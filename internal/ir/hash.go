package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashes.
// Version suffix enables future algorithm migration.
const (
	DomainSchema = "querystate/schema/v1"
	DomainState  = "querystate/state/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SchemaHash identifies an effective schema. Two configs that decode every
// query identically hash the same, regardless of how they were declared.
func SchemaHash(cfg *StateConfig) (string, error) {
	if cfg == nil {
		cfg = &StateConfig{}
	}

	fields := make([]any, len(cfg.Fields))
	for i, f := range cfg.Fields {
		var allowed any
		if f.AllowedValues != nil {
			list := make([]any, len(f.AllowedValues))
			for j, v := range f.AllowedValues {
				list[j] = v
			}
			allowed = list
		}
		fields[i] = map[string]any{
			"name":           f.Name,
			"kind":           f.Kind.String(),
			"converter":      f.Converter.String(),
			"default":        f.Default,
			"default_set":    f.Default != nil,
			"separator":      f.Sep(),
			"count":          f.Count,
			"vector_length":  f.VectorLength,
			"remove_invalid": f.RemoveInvalidOverflow,
			"allowed":        allowed,
		}
	}

	obj := map[string]any{
		"fields":         fields,
		"remove_unknown": cfg.RemoveUnknown(),
		"case_sensitive": cfg.CaseSensitive(),
		"suppress":       cfg.Suppress(),
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("SchemaHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSchema, canonical), nil
}

// StateHash identifies a canonical state.
func StateHash(s State) (string, error) {
	canonical, err := MarshalCanonical(s)
	if err != nil {
		return "", fmt.Errorf("StateHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainState, canonical), nil
}

// MustSchemaHash is like SchemaHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustSchemaHash(cfg *StateConfig) string {
	h, err := SchemaHash(cfg)
	if err != nil {
		panic(err)
	}
	return h
}
