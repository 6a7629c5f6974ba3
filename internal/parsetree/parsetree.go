// Package parsetree defines the shape of the already-parsed Vensim model that
// the grammar front-end hands to the analyzer. The grammar itself is out of
// scope (see spec.md §1); this package is the contract the rest of the
// pipeline is built against.
package parsetree

// Expr is a node of a parsed right-hand-side expression tree.
type Expr interface {
	// isExpr is unexported so Expr can only be implemented within this
	// package, the same closed-set-of-node-types shape as instruction.Instruction.
	isExpr()
}

// NumberLiteral is a numeric constant appearing in an expression.
type NumberLiteral struct {
	Value float64
}

func (NumberLiteral) isExpr() {}

// StringLiteral is a quoted string argument, e.g. a GET DIRECT DATA tag.
type StringLiteral struct {
	Value string
}

func (StringLiteral) isExpr() {}

// VarRef references another variable by its raw (pre-canonicalization) name,
// optionally with subscripts as written in the source.
type VarRef struct {
	Name       string
	Subscripts []string
}

func (VarRef) isExpr() {}

// BinaryExpr is a binary operator application, e.g. "+", "-", "*", "/", "^".
type BinaryExpr struct {
	Op          string
	Left, Right Expr
}

func (BinaryExpr) isExpr() {}

// UnaryExpr is a unary operator application, e.g. negation.
type UnaryExpr struct {
	Op      string
	Operand Expr
}

func (UnaryExpr) isExpr() {}

// CallExpr is a function or primitive application, e.g. INTEG(...), MIN(...),
// IF THEN ELSE(...), SMOOTH3(...), DELAY FIXED(...).
type CallExpr struct {
	Func string
	Args []Expr
}

func (CallExpr) isExpr() {}

// InitialExpr wraps an expression evaluated only once, at init time
// (INITIAL(...)). Anything inside contributes only to a variable's
// initReferences.
type InitialExpr struct {
	Inner Expr
}

func (InitialExpr) isExpr() {}

// LookupLiteral is a literal lookup table RHS, e.g. "WITH LOOKUP(x, ((0,0),(1,1)))"
// or a bare "((0,0),(1,1))" table assignment.
type LookupLiteral struct {
	Input  Expr // the x argument, nil for a bare table assignment
	Points [][2]float64
}

func (LookupLiteral) isExpr() {}

// Equation is one parsed "LHS = RHS" (or "LHS = RHS ~~|") statement from the
// model, exactly as the grammar front-end produces it: one entry per textual
// equation, before any subscript separation.
type Equation struct {
	LHSText    string // original left-hand-side text, for diagnostics
	LHSName    string // raw variable name as written
	Subscripts []string
	RHSText    string // original right-hand-side text, for diagnostics
	RHS        Expr
}

// Model is the full parsed model: every equation plus the constants the
// grammar front-end extracted for time control.
type Model struct {
	Equations   []Equation
	Dimensions  map[string][]string            // raw dimension declarations, may reference other dimensions
	Mappings    []DimensionMapping              // raw (pre-inversion) mapping declarations
	InitialTime float64
	FinalTime   float64
	TimeStep    float64
	SavePer     float64
}

// DimensionMapping is one raw "MAP fromDim -> toDim" declaration.
type DimensionMapping struct {
	FromDim string
	ToDim   string
	Raw     []string // fromDim-order list of toDim index names, may be empty (identity)
}
