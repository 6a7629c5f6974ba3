package subscript

import (
	"fmt"
	"sort"

	"github.com/dvensim/vensimc/internal/diag"
	"github.com/dvensim/vensimc/internal/iospec"
	"github.com/dvensim/vensimc/internal/parsetree"
)

// BuildRegistry runs every registry-construction step spec.md §4.1 and §3
// require, in order, from a parsed model's raw dimension/mapping
// declarations plus the I/O spec's family overrides. This is the one
// entry point internal/pipeline needs instead of replaying the five-call
// sequence itself. diags collects non-fatal findings about the spec's
// dimensionFamilies/indexFamilies overrides (SPEC_FULL.md §9); it may be nil
// when the caller does not need them (e.g. in tests).
func BuildRegistry(mdl *parsetree.Model, spec *iospec.Spec, diags *diag.Collector) (*Registry, error) {
	r := New()

	var dimFamilies, idxFamilies map[string]string
	if spec != nil {
		dimFamilies = spec.DimensionFamilies
		idxFamilies = spec.IndexFamilies
	}
	r.SetFamilyOverrides(dimFamilies, idxFamilies)

	for _, name := range sortedKeys(mdl.Dimensions) {
		if err := r.DeclareDimension(name, mdl.Dimensions[name]); err != nil {
			return nil, fmt.Errorf("building subscript registry: %w", err)
		}
	}

	for _, m := range mdl.Mappings {
		if err := r.DeclareMapping(m.FromDim, m.ToDim, m.Raw); err != nil {
			return nil, fmt.Errorf("building subscript registry: %w", err)
		}
	}

	if err := r.Expand(); err != nil {
		return nil, fmt.Errorf("building subscript registry: %w", err)
	}
	if err := r.ResolveFamilies(); err != nil {
		return nil, fmt.Errorf("building subscript registry: %w", err)
	}
	r.InstantiateIndices()
	if err := r.InvertMapping(); err != nil {
		return nil, fmt.Errorf("building subscript registry: %w", err)
	}

	validateFamilyOverrides(r, spec, diags)

	return r, nil
}

// validateFamilyOverrides checks every dimensionFamilies/indexFamilies entry
// against the now-resolved registry, recording a diagnostic (not an error)
// for an override naming an undeclared dimension/index or pointing at a
// family that isn't itself a declared dimension — the same non-fatal
// diagnostic-style validation ValidateSpecVars already applies to
// inputVars/outputVars (spec.md §4.7, SPEC_FULL.md §9).
func validateFamilyOverrides(r *Registry, spec *iospec.Spec, diags *diag.Collector) {
	if spec == nil || diags == nil {
		return
	}

	for _, name := range sortedStringMapKeys(spec.DimensionFamilies) {
		family := spec.DimensionFamilies[name]
		if !r.IsDimension(name) {
			diags.Warnf(name, "dimensionFamilies: unknown dimension %q", name)
			continue
		}
		if !r.IsDimension(family) {
			diags.Warnf(name, "dimensionFamilies: family override %q is not a declared dimension", family)
		}
	}

	for _, name := range sortedStringMapKeys(spec.IndexFamilies) {
		family := spec.IndexFamilies[name]
		if !r.IsIndex(name) {
			diags.Warnf(name, "indexFamilies: unknown index %q", name)
			continue
		}
		if !r.IsDimension(family) {
			diags.Warnf(name, "indexFamilies: family override %q is not a declared dimension", family)
		}
	}
}

// sortedStringMapKeys returns m's keys in ascending order, for deterministic
// diagnostic ordering (map iteration order is random).
func sortedStringMapKeys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// sortedKeys returns m's keys in ascending order, since map iteration order
// is random but registry declaration order affects listing determinism.
func sortedKeys(m map[string][]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
