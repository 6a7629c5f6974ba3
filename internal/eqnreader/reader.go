// Package eqnreader implements the equation reader (spec.md §4.3): it walks
// each equation's parsed right-hand side, records which other variables it
// references (split into evaluation-time and init-time references), and
// infers a semantic type. This mirrors the way the teacher's
// internal/disasm/disasm.go walks decoded operands and classifies each
// offset as code, data, or a jump-engine table entry before anything is
// emitted.
package eqnreader

import (
	"fmt"
	"strings"

	"github.com/dvensim/vensimc/internal/iospec"
	"github.com/dvensim/vensimc/internal/model"
	"github.com/dvensim/vensimc/internal/parsetree"
	"github.com/dvensim/vensimc/internal/vartable"
)

// levelPrimitives are the call names that force VarType = level and
// HasInitValue = true regardless of what the RHS otherwise contains, per
// spec.md §4.3 and the DELAY FIXED/SMOOTH*/TREND supplement in SPEC_FULL.md §9.
var levelPrimitives = map[string]bool{
	"INTEG":       true,
	"DELAY FIXED": true,
	"DELAY1":      true,
	"DELAY1I":     true,
	"DELAY3":      true,
	"DELAY3I":     true,
	"SMOOTH":      true,
	"SMOOTHI":     true,
	"SMOOTH3":     true,
	"SMOOTH3I":    true,
	"TREND":       true,
}

// Reader classifies equations and collects their references.
type Reader struct {
	spec *iospec.Spec
}

// New creates an equation reader bound to the (optional) I/O spec, needed to
// recognize directData tags.
func New(spec *iospec.Spec) *Reader {
	return &Reader{spec: spec}
}

// Read walks every equation in mdl and annotates the matching records already
// present in table (added by the variable reader) with VarType,
// HasInitValue, References and InitReferences. References/InitReferences
// hold raw encoded tokens (model.RawRef.Encode) until the analyzer resolves
// them to RefIDs.
func (r *Reader) Read(mdl *parsetree.Model, table *vartable.Table) error {
	for _, eq := range mdl.Equations {
		result, err := r.classify(eq)
		if err != nil {
			return fmt.Errorf("reading equation %q: %w", eq.LHSText, err)
		}

		varName := model.CanonicalName(eq.LHSName)
		for _, rec := range table.RecordsByName(varName) {
			if rec.ModelLHS != eq.LHSText {
				continue
			}
			rec.VarType = result.varType
			rec.HasInitValue = rec.HasInitValue || result.hasInitValue
			rec.References = append(rec.References, encodeAll(result.refs)...)
			rec.InitReferences = append(rec.InitReferences, encodeAll(result.initRefs)...)
		}
	}
	propagateConstants(table)
	return nil
}

type classification struct {
	varType      model.VarType
	hasInitValue bool
	refs         []model.RawRef
	initRefs     []model.RawRef
}

// classify applies the first-match-wins rules of spec.md §4.3.
func (r *Reader) classify(eq parsetree.Equation) (classification, error) {
	if _, ok := eq.RHS.(parsetree.LookupLiteral); ok {
		return classification{varType: model.VarLookup}, nil
	}

	if tag, ok := directDataTag(eq.RHS); ok && r.spec.IsDirectDataTag(tag) {
		return classification{varType: model.VarData}, nil
	}

	var c classification
	walk(eq.RHS, false, &c)

	if call, ok := eq.RHS.(parsetree.CallExpr); ok && levelPrimitives[call.Func] {
		c.varType = model.VarLevel
		c.hasInitValue = true
		return c, nil
	}

	if len(c.refs) == 0 && len(c.initRefs) == 0 {
		c.varType = model.VarConst
		return c, nil
	}

	c.varType = model.VarAux
	return c, nil
}

// walk collects every VarRef under expr into c.refs (or c.initRefs when
// inInit is true), and implements INTEG's flow/init split.
func walk(expr parsetree.Expr, inInit bool, c *classification) {
	switch e := expr.(type) {
	case nil:
		return
	case parsetree.NumberLiteral, parsetree.StringLiteral:
		return
	case parsetree.VarRef:
		ref := model.RawRef{Name: e.Name, Subscripts: e.Subscripts}
		if inInit {
			c.initRefs = append(c.initRefs, ref)
		} else {
			c.refs = append(c.refs, ref)
		}
	case parsetree.BinaryExpr:
		walk(e.Left, inInit, c)
		walk(e.Right, inInit, c)
	case parsetree.UnaryExpr:
		walk(e.Operand, inInit, c)
	case parsetree.InitialExpr:
		walk(e.Inner, true, c)
	case parsetree.LookupLiteral:
		walk(e.Input, inInit, c)
	case parsetree.CallExpr:
		if e.Func == "INTEG" && len(e.Args) == 2 {
			walk(e.Args[0], inInit, c)
			walk(e.Args[1], true, c)
			return
		}
		for _, arg := range e.Args {
			walk(arg, inInit, c)
		}
	}
}

func encodeAll(refs []model.RawRef) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.Encode()
	}
	return out
}

// directDataTag extracts the tag string from a GET DIRECT DATA(...)-shaped
// call, if the RHS is one.
func directDataTag(expr parsetree.Expr) (string, bool) {
	call, ok := expr.(parsetree.CallExpr)
	if !ok || !strings.HasPrefix(call.Func, "GET DIRECT") {
		return "", false
	}
	if len(call.Args) == 0 {
		return "", false
	}
	lit, ok := call.Args[0].(parsetree.StringLiteral)
	if !ok {
		return "", false
	}
	return lit.Value, true
}

// propagateConstants implements the "references to const-typed variables"
// part of the const classification rule: a variable first classified aux
// (because its RHS is not bare literals but also triggers no level/data/lookup
// rule) is reclassified const once every one of its references is itself
// const, iterated to a fixpoint since constness can chain through several
// auxiliaries. Subscript matching is approximate here (by canonical name
// only); the analyzer's precise resolution happens afterwards and does not
// revisit this classification.
func propagateConstants(table *vartable.Table) {
	for {
		changed := false
		for _, rec := range table.All() {
			if rec.VarType != model.VarAux || len(rec.InitReferences) > 0 {
				continue
			}
			if len(rec.References) == 0 {
				continue
			}
			allConst := true
			for _, tok := range rec.References {
				ref := model.DecodeRawRef(tok)
				if !allRecordsConst(table.RecordsByName(ref.CanonicalName())) {
					allConst = false
					break
				}
			}
			if allConst {
				rec.VarType = model.VarConst
				changed = true
			}
		}
		if !changed {
			return
		}
	}
}

func allRecordsConst(recs []*model.Variable) bool {
	if len(recs) == 0 {
		return false
	}
	for _, rec := range recs {
		if rec.VarType != model.VarConst {
			return false
		}
	}
	return true
}
