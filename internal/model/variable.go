package model

import "github.com/dvensim/vensimc/internal/parsetree"

// VarType classifies a Variable's semantic role, assigned by the equation
// reader and refined by the analyzer.
type VarType uint8

const (
	// VarUnknown is the zero value; no record should keep this type past
	// classification.
	VarUnknown VarType = iota
	// VarConst is a variable computed only from literals and other VarConst
	// variables.
	VarConst
	// VarData is a variable fed by an external data series.
	VarData
	// VarLookup is a variable defined by a lookup table literal.
	VarLookup
	// VarAux is a variable recomputed every step from other variables.
	VarAux
	// VarLevel is a stock variable integrated over time.
	VarLevel
)

// String returns the lower-case Vensim-ish name of the type, used in
// diagnostics and listing output.
func (t VarType) String() string {
	switch t {
	case VarConst:
		return "const"
	case VarData:
		return "data"
	case VarLookup:
		return "lookup"
	case VarAux:
		return "aux"
	case VarLevel:
		return "level"
	default:
		return "unknown"
	}
}

// Point is one (x, y) pair of a lookup table.
type Point struct {
	X float64
	Y float64
}

// Variable is one record in the variable table: either an apply-to-all
// variable (one record for every subscript combination) or one element of a
// non-apply-to-all array (one record per separated subscript combination).
type Variable struct {
	ModelLHS     string // original left-hand-side text, for diagnostics
	VarName      string // canonical name, not unique across records
	Subscripts   []string
	RefID        string // unique reference identifier, see analyzer.AssignRefIDs
	VarType      VarType
	HasInitValue bool

	// References used during per-step evaluation, by RefID once resolved.
	References []string
	// References used only during initialization, by RefID once resolved.
	InitReferences []string

	// SeparationDims names the LHS subscripts that were separated to produce
	// this record (a dimension forced by specialSeparationDims, or an index
	// the LHS wrote explicitly), as written on the LHS rather than as the
	// index that replaced them in Subscripts.
	SeparationDims []string

	Points []Point // lookup/data table, when VarType is VarLookup or VarData

	ModelFormula string        // RHS source text, for diagnostics and to let the emitter re-emit expressions
	RHS          parsetree.Expr // parsed RHS, nil for the time pseudo-variable
}

// IsTimeVar reports whether this record is the pseudo-variable representing
// the simulation clock.
func (v *Variable) IsTimeVar() bool {
	return v.VarName == TimeVarName
}

// TimeVarName is the canonical name of the always-present simulation-clock
// pseudo-variable.
const TimeVarName = "_time"

// NewTimeVariable returns the pseudo-variable record representing the
// simulation clock. It is untyped (VarUnknown) and carries no formula.
func NewTimeVariable() *Variable {
	return &Variable{
		ModelLHS: "Time",
		VarName:  TimeVarName,
		RefID:    TimeVarName,
		VarType:  VarUnknown,
	}
}
