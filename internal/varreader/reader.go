// Package varreader implements the variable reader (spec.md §4.2): it walks
// the parsed equation list and produces one Variable record per separation,
// the way the teacher's internal/parser.go walks a cartridge's PRG bytes and
// emits one offset record per decoded instruction.
package varreader

import (
	"fmt"
	"sort"

	"github.com/dvensim/vensimc/internal/iospec"
	"github.com/dvensim/vensimc/internal/model"
	"github.com/dvensim/vensimc/internal/parsetree"
	"github.com/dvensim/vensimc/internal/subscript"
	"github.com/dvensim/vensimc/internal/vartable"
)

// Reader walks a parsed model's equations and populates a variable table.
type Reader struct {
	registry *subscript.Registry
	spec     *iospec.Spec
}

// New creates a variable reader bound to a resolved subscript registry and
// the (optional) I/O spec that may request extra separation.
func New(registry *subscript.Registry, spec *iospec.Spec) *Reader {
	return &Reader{registry: registry, spec: spec}
}

// Read walks every equation in model and appends one or more Variable records
// per equation to table, then appends the always-present _time pseudo
// variable.
func (r *Reader) Read(mdl *parsetree.Model, table *vartable.Table) error {
	for _, eq := range mdl.Equations {
		records, err := r.readEquation(eq)
		if err != nil {
			return fmt.Errorf("reading equation %q: %w", eq.LHSText, err)
		}
		for _, rec := range records {
			table.Add(rec)
		}
	}
	table.Add(model.NewTimeVariable())
	return nil
}

// readEquation produces one record per separation for a single equation, per
// spec.md §4.2 step 1.
func (r *Reader) readEquation(eq parsetree.Equation) ([]*model.Variable, error) {
	varName := model.CanonicalName(eq.LHSName)

	separated, unseparated, err := r.classifySubscripts(varName, eq.Subscripts)
	if err != nil {
		return nil, err
	}

	combos, err := r.expandSeparated(separated)
	if err != nil {
		return nil, err
	}

	points, isLookup := lookupPoints(eq.RHS)

	records := make([]*model.Variable, 0, len(combos))
	for _, combo := range combos {
		subs := mergeSubscripts(eq.Subscripts, unseparated, combo)
		normalized, err := r.registry.NormalizeSubscripts(subs)
		if err != nil {
			return nil, fmt.Errorf("normalizing subscripts for %q: %w", varName, err)
		}

		rec := &model.Variable{
			ModelLHS:       eq.LHSText,
			VarName:        varName,
			Subscripts:     normalized,
			SeparationDims: separationNames(combo),
			ModelFormula:   eq.RHSText,
			RHS:            eq.RHS,
		}
		if isLookup {
			rec.Points = points
			rec.VarType = model.VarLookup
		}
		records = append(records, rec)
	}
	return records, nil
}

// classifySubscripts splits a LHS's subscripts into those that must be
// separated (explicit index, or named in specialSeparationDims) and those
// that stay as a dimension shared by every record.
func (r *Reader) classifySubscripts(varName string, subs []string) (separated, unseparated []string, err error) {
	forced := map[string]bool{}
	for _, d := range r.spec.SeparationDimsFor(varName) {
		forced[d] = true
	}

	for _, s := range subs {
		sub, ok := r.registry.Sub(s)
		if !ok {
			return nil, nil, fmt.Errorf("unknown subscript %q", s)
		}
		switch {
		case sub.IsIndex():
			separated = append(separated, s)
		case forced[s]:
			separated = append(separated, s)
		default:
			unseparated = append(unseparated, s)
		}
	}
	return separated, unseparated, nil
}

// combo is one concrete assignment of separated-dimension names to index
// names (or, for an already-explicit index, the index name itself).
type combo map[string]string

func separationNames(c combo) []string {
	names := make([]string, 0, len(c))
	for d := range c {
		names = append(names, d)
	}
	sort.Strings(names)
	return names
}

// expandSeparated computes the cross product of every separated dimension's
// indices, per spec.md §4.2 step 1.
func (r *Reader) expandSeparated(separated []string) ([]combo, error) {
	combos := []combo{{}}
	for _, s := range separated {
		sub, ok := r.registry.Sub(s)
		if !ok {
			return nil, fmt.Errorf("unknown separated subscript %q", s)
		}

		var indexNames []string
		if sub.IsIndex() {
			indexNames = []string{s}
		} else {
			names, err := r.registry.IndexNamesForSubscript(sub.Dimension.Name)
			if err != nil {
				return nil, err
			}
			indexNames = names
		}

		var next []combo
		for _, c := range combos {
			for _, idx := range indexNames {
				nc := make(combo, len(c)+1)
				for k, v := range c {
					nc[k] = v
				}
				nc[s] = idx
				next = append(next, nc)
			}
		}
		combos = next
	}
	return combos, nil
}

// mergeSubscripts rebuilds the subscript list in the LHS's original order,
// substituting each separated dimension's chosen index.
func mergeSubscripts(original, unseparated []string, c combo) []string {
	unsep := map[string]bool{}
	for _, u := range unseparated {
		unsep[u] = true
	}

	out := make([]string, 0, len(original))
	for _, s := range original {
		if unsep[s] {
			out = append(out, s)
			continue
		}
		if idx, ok := c[s]; ok {
			out = append(out, idx)
			continue
		}
		out = append(out, s)
	}
	return out
}

// lookupPoints extracts lookup table points from a RHS, if it is a literal
// lookup table (spec.md §4.2 step 3).
func lookupPoints(rhs parsetree.Expr) ([]model.Point, bool) {
	lit, ok := rhs.(parsetree.LookupLiteral)
	if !ok {
		return nil, false
	}
	points := make([]model.Point, len(lit.Points))
	for i, p := range lit.Points {
		points[i] = model.Point{X: p[0], Y: p[1]}
	}
	return points, true
}
