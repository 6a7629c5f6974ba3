// Package analyzer implements the analyzer (spec.md §4.4): it detects
// non-apply-to-all arrays, assigns reference identifiers, resolves raw
// references against the variable table, and strips constant dependencies.
// This mirrors the way the teacher's internal/jumpengine package resolves a
// symbolic jump target against the already-built offset table, falling back
// to a secondary strategy (indirect-table scanning there, external-data
// synthesis here) when no direct match exists.
package analyzer

import (
	"fmt"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/dvensim/vensimc/internal/diag"
	"github.com/dvensim/vensimc/internal/extdata"
	"github.com/dvensim/vensimc/internal/iospec"
	"github.com/dvensim/vensimc/internal/model"
	"github.com/dvensim/vensimc/internal/subscript"
	"github.com/dvensim/vensimc/internal/vartable"
)

// Analyzer runs the fix-up passes over a populated variable table.
type Analyzer struct {
	table    *vartable.Table
	registry *subscript.Registry
	extData  extdata.Series
	spec     *iospec.Spec
	diags    *diag.Collector

	// nonApplyToAll maps a VarName to its per-position expansion-flag vector,
	// computed by DetectNonApplyToAll.
	nonApplyToAll map[string][]bool
}

// New creates an analyzer bound to the table to fix up, the resolved
// subscript registry, the external data contract and the I/O spec.
func New(table *vartable.Table, registry *subscript.Registry, extData extdata.Series, spec *iospec.Spec, diags *diag.Collector) *Analyzer {
	return &Analyzer{
		table:         table,
		registry:      registry,
		extData:       extData,
		spec:          spec,
		diags:         diags,
		nonApplyToAll: make(map[string][]bool),
	}
}

// Run executes every analyzer pass in the order spec.md §4.4 lists them.
func (a *Analyzer) Run() error {
	a.DetectNonApplyToAll()
	if err := a.AssignRefIDs(); err != nil {
		return err
	}
	if err := a.ResolveReferences(); err != nil {
		return err
	}
	a.PruneConstantReferences()
	a.ValidateSpecVars()
	return nil
}

// DetectNonApplyToAll groups records by VarName and, for every group with
// more than one record, computes the per-position expansion-flag vector: true
// wherever records in the group disagree on the subscript at that position
// (spec.md §4.4 step 1).
func (a *Analyzer) DetectNonApplyToAll() {
	for _, name := range a.table.Names() {
		recs := a.table.RecordsByName(name)
		if len(recs) < 2 {
			continue
		}
		width := len(recs[0].Subscripts)
		flags := make([]bool, width)
		for i := 0; i < width; i++ {
			first := recs[0].Subscripts[i]
			for _, r := range recs[1:] {
				if i >= len(r.Subscripts) || r.Subscripts[i] != first {
					flags[i] = true
					break
				}
			}
		}
		a.nonApplyToAll[name] = flags
	}
}

// NonApplyToAllFlags returns the expansion-flag vector computed for varName,
// and whether it is registered as non-apply-to-all at all.
func (a *Analyzer) NonApplyToAllFlags(varName string) ([]bool, bool) {
	flags, ok := a.nonApplyToAll[varName]
	return flags, ok
}

// AssignRefIDs assigns every record's RefID (spec.md §4.4 step 2) and
// indexes the table by RefID.
func (a *Analyzer) AssignRefIDs() error {
	for _, name := range a.table.Names() {
		recs := a.table.RecordsByName(name)
		nonATA := len(recs) > 1
		for _, rec := range recs {
			if nonATA {
				rec.RefID = rec.VarName + "[" + strings.Join(rec.Subscripts, ",") + "]"
			} else {
				rec.RefID = rec.VarName
			}
		}
	}
	if err := a.table.IndexByRefID(); err != nil {
		return fmt.Errorf("assigning refIDs: %w", err)
	}
	return nil
}

// ResolveReferences replaces every raw reference token in References and
// InitReferences with the RefID(s) it binds to, synthesizing a data record
// from external data when no direct match exists (spec.md §4.4 step 3).
func (a *Analyzer) ResolveReferences() error {
	// snapshot: synthesized records are appended to the table as we go but
	// never need their own references resolved (they carry none).
	for _, rec := range a.table.All() {
		resolved, err := a.resolveList(rec.References)
		if err != nil {
			return fmt.Errorf("resolving references of %q: %w", rec.RefID, err)
		}
		rec.References = resolved

		resolvedInit, err := a.resolveList(rec.InitReferences)
		if err != nil {
			return fmt.Errorf("resolving init references of %q: %w", rec.RefID, err)
		}
		rec.InitReferences = resolvedInit
	}
	return nil
}

func (a *Analyzer) resolveList(tokens []string) ([]string, error) {
	var out []string
	for _, tok := range tokens {
		ref := model.DecodeRawRef(tok)
		refIDs, err := a.resolveOne(ref)
		if err != nil {
			return nil, err
		}
		out = append(out, refIDs...)
	}
	return out, nil
}

// resolveOne binds a single raw reference to the RefID(s) of the record(s) it
// matches, per the matching rules of spec.md §4.3.
func (a *Analyzer) resolveOne(ref model.RawRef) ([]string, error) {
	name := ref.CanonicalName()
	candidates := a.table.RecordsByName(name)

	if len(candidates) == 0 {
		return a.synthesizeFromExternalData(name)
	}
	if len(candidates) == 1 {
		return []string{candidates[0].RefID}, nil
	}

	var matched []string
	for _, cand := range candidates {
		ok, err := a.matches(cand, ref)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, cand.RefID)
		}
	}
	if len(matched) == 0 {
		return nil, fmt.Errorf("reference %q matches no element of %q: %w", ref.Encode(), name, model.ErrSubscriptMismatch)
	}
	slices.Sort(matched)
	return matched, nil
}

// matches implements the subscript binding rules of spec.md §4.3: index<->index
// must be equal, dimension<->dimension must be equal, a candidate declaring a
// dimension matches a reference naming one of its indices, and a candidate
// declaring a single index can never be reached by a reference naming a
// whole dimension.
func (a *Analyzer) matches(candidate *model.Variable, ref model.RawRef) (bool, error) {
	candFamilies, err := a.registry.SubscriptFamilies(candidate.Subscripts)
	if err != nil {
		return false, err
	}
	refFamilies, err := a.registry.SubscriptFamilies(ref.Subscripts)
	if err != nil {
		return false, err
	}

	candByFamily := make(map[string]string, len(candFamilies))
	for i, f := range candFamilies {
		candByFamily[f] = candidate.Subscripts[i]
	}
	refByFamily := make(map[string]string, len(refFamilies))
	for i, f := range refFamilies {
		refByFamily[f] = ref.Subscripts[i]
	}

	for family, refSub := range refByFamily {
		candSub, ok := candByFamily[family]
		if !ok {
			continue
		}

		candSubscript, _ := a.registry.Sub(candSub)
		refSubscript, _ := a.registry.Sub(refSub)

		switch {
		case candSubscript.IsIndex() && refSubscript.IsIndex():
			if candSub != refSub {
				return false, nil
			}
		case candSubscript.IsDimension() && refSubscript.IsDimension():
			if candSub != refSub {
				return false, nil
			}
		case candSubscript.IsDimension() && refSubscript.IsIndex():
			if !containsIndexName(candSubscript.Dimension.Value, refSub) {
				return false, nil
			}
		case candSubscript.IsIndex() && refSubscript.IsDimension():
			return false, fmt.Errorf("reference %q: %w", ref.Encode(), model.ErrSubscriptMismatch)
		}
	}
	return true, nil
}

func containsIndexName(values []string, name string) bool {
	for _, v := range values {
		if v == name {
			return true
		}
	}
	return false
}

// synthesizeFromExternalData builds a WITH LOOKUP(Time, ...) data record from
// an external data series when a dangling reference's name is found there
// (spec.md §4.4 step 3).
func (a *Analyzer) synthesizeFromExternalData(name string) ([]string, error) {
	if !a.extData.Has(name) {
		return nil, fmt.Errorf("reference %q: %w", name, model.ErrDanglingReference)
	}

	rec := &model.Variable{
		VarName:      name,
		RefID:        name,
		VarType:      model.VarData,
		ModelFormula: fmt.Sprintf("WITH LOOKUP(Time, <synthesized from external data %q>)", name),
	}
	for _, p := range a.extData.Points(name) {
		rec.Points = append(rec.Points, model.Point{X: p[0], Y: p[1]})
	}
	if err := a.table.AddSynthesized(rec); err != nil {
		return nil, fmt.Errorf("synthesizing data variable %q: %w", name, err)
	}
	return []string{rec.RefID}, nil
}

// PruneConstantReferences removes, from every record's References and
// InitReferences, any RefID whose target's VarType is const, data, or lookup
// (spec.md §4.4 step 4): those targets do not constrain evaluation order.
func (a *Analyzer) PruneConstantReferences() {
	for _, rec := range a.table.All() {
		rec.References = a.prune(rec.References)
		rec.InitReferences = a.prune(rec.InitReferences)
	}
}

func (a *Analyzer) prune(refIDs []string) []string {
	var out []string
	for _, id := range refIDs {
		target, ok := a.table.ByRefID(id)
		if !ok {
			continue
		}
		switch target.VarType {
		case model.VarConst, model.VarData, model.VarLookup:
			continue
		default:
			out = append(out, id)
		}
	}
	return out
}

// ValidateSpecVars checks that every name in spec.InputVars/OutputVars
// resolves to a RefID, recording a diagnostic (not an error) for any that do
// not (spec.md §4.4 step 5, §7 class (f)).
func (a *Analyzer) ValidateSpecVars() {
	if a.spec == nil {
		return
	}
	a.validateList("inputVars", a.spec.InputVars)
	a.validateList("outputVars", a.spec.OutputVars)
}

func (a *Analyzer) validateList(field string, names []string) {
	for _, name := range names {
		if _, ok := a.table.ByRefID(name); ok {
			continue
		}
		// Open question (b): names containing "[" are accepted as explicit
		// element refIDs above; fall back to apply-to-all resolution by
		// canonical name otherwise.
		canonical := model.CanonicalName(name)
		if recs := a.table.RecordsByName(canonical); len(recs) == 1 {
			continue
		}
		a.diags.Add(diag.Diagnostic{
			Severity: diag.Warning,
			Message:  fmt.Sprintf("%s: %v", field, model.ErrUnknownSpecVar),
			VarName:  name,
		})
	}
}
