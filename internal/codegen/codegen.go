// Package codegen implements the code emitter (spec.md §4.6): given the
// fully analyzed variable table and the three orderings the dependency
// sorter produced, it writes a single C translation unit whose execution
// reproduces the model's semantics. This mirrors the way the teacher's
// internal/writer package walks a program's banks and offsets to produce one
// assembly file; here the "program" is the variable table and the "offsets"
// are C statements in dependency order.
package codegen

import (
	"fmt"
	"io"
	"strings"

	"github.com/dvensim/vensimc/internal/depsort"
	"github.com/dvensim/vensimc/internal/iospec"
	"github.com/dvensim/vensimc/internal/model"
	"github.com/dvensim/vensimc/internal/parsetree"
	"github.com/dvensim/vensimc/internal/runtime"
	"github.com/dvensim/vensimc/internal/subscript"
	"github.com/dvensim/vensimc/internal/vartable"
)

// TimeControl carries the four simulation-control constants read from the
// model (spec.md §4.6).
type TimeControl struct {
	InitialTime float64
	FinalTime   float64
	TimeStep    float64
	SavePer     float64
}

// Emitter writes the C translation unit for one analyzed model.
type Emitter struct {
	modelName string
	table     *vartable.Table
	registry  *subscript.Registry
	order     depsort.Order
	spec      *iospec.Spec
	control   TimeControl

	delaySlots map[string]int
	nextSlot   int
}

// New creates an emitter for modelName, bound to the analyzed table, the
// resolved subscript registry, the computed orderings, the (optional) I/O
// spec, and the model's time-control constants.
func New(modelName string, table *vartable.Table, registry *subscript.Registry, order depsort.Order, spec *iospec.Spec, control TimeControl) *Emitter {
	return &Emitter{
		modelName:  modelName,
		table:      table,
		registry:   registry,
		order:      order,
		spec:       spec,
		control:    control,
		delaySlots: make(map[string]int),
	}
}

// Write emits the complete translation unit to w.
func (e *Emitter) Write(w io.Writer) error {
	var b strings.Builder

	fmt.Fprintf(&b, "/* generated from %s, do not edit by hand */\n", e.modelName)
	fmt.Fprintf(&b, "#include \"%s\"\n\n", runtime.FileName)

	e.writeTimeControl(&b)
	e.writeMapTables(&b)
	if err := e.writeDeclarations(&b); err != nil {
		return err
	}
	if err := e.writeLookupTables(&b); err != nil {
		return err
	}
	if err := e.writeInitConstants(&b); err != nil {
		return err
	}
	e.writeInitLookups(&b)
	if err := e.writeInitLevels(&b); err != nil {
		return err
	}
	if err := e.writeEvalAux(&b); err != nil {
		return err
	}
	if err := e.writeEvalLevels(&b); err != nil {
		return err
	}
	e.writeStoreOutputs(&b)
	e.writeRunModel(&b)

	_, err := io.WriteString(w, b.String())
	return err
}

// outputMaxRows bounds the generated output table; large batch runs should
// page storeOutputs() output instead of holding every row in memory, but
// that is out of scope for a single translation unit.
const outputMaxRows = 100000

func (e *Emitter) writeTimeControl(b *strings.Builder) {
	fmt.Fprintf(b, "#define INITIAL_TIME (%s)\n", formatNumber(e.control.InitialTime))
	fmt.Fprintf(b, "#define FINAL_TIME (%s)\n", formatNumber(e.control.FinalTime))
	fmt.Fprintf(b, "#define TIME_STEP (%s)\n", formatNumber(e.control.TimeStep))
	fmt.Fprintf(b, "#define SAVEPER (%s)\n\n", formatNumber(e.control.SavePer))
	fmt.Fprintf(b, "#define VENSIM_OUTPUT_MAX_ROWS %d\n\n", outputMaxRows)
}

// writeMapTables emits one static lookup array per declared map-to mapping,
// translating a loop position in the from-dimension's family into the
// corresponding position in the to-dimension's family (spec.md §4.1, §4.6),
// so varRefToC's generated MAP_<From>_TO_<To>[idx] expressions resolve.
func (e *Emitter) writeMapTables(b *strings.Builder) {
	var wrote bool
	for _, fromName := range e.registry.DimensionNames() {
		fromDim := e.registry.Dimension(fromName)
		if fromDim == nil || fromDim.Family != fromName {
			continue // only family dimensions carry loop variables to translate
		}
		for toName, mapping := range fromDim.Mappings {
			toDim := e.registry.Dimension(toName)
			if toDim == nil {
				continue
			}
			table := make([]int, fromDim.Size())
			for toPos, fromIdxName := range mapping {
				fromPos := indexOfName(fromDim.Value, fromIdxName)
				if fromPos < 0 {
					continue
				}
				table[fromPos] = toPos
			}
			if !wrote {
				b.WriteString("/* map-to translation tables */\n")
				wrote = true
			}
			entries := make([]string, len(table))
			for i, v := range table {
				entries[i] = fmt.Sprintf("%d", v)
			}
			fmt.Fprintf(b, "static const int %s[%d] = {%s};\n",
				mapTableName(fromName, toName), len(table), strings.Join(entries, ", "))
		}
	}
	if wrote {
		b.WriteByte('\n')
	}
}

func indexOfName(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}

// writeDeclarations emits one storage cell (scalar or array) per distinct
// VarName, per spec.md §4.6.
func (e *Emitter) writeDeclarations(b *strings.Builder) error {
	b.WriteString("/* variable storage */\n")
	for _, name := range e.table.Names() {
		recs := e.table.RecordsByName(name)
		decl, err := e.declareStorage(name, recs[0].Subscripts)
		if err != nil {
			return fmt.Errorf("declaring %q: %w", name, err)
		}
		b.WriteString(decl)
		b.WriteByte('\n')
	}
	if e.spec != nil && len(e.spec.OutputVars) > 0 {
		fmt.Fprintf(b, "#define VENSIM_OUTPUT_COLUMNS %d\n", len(e.spec.OutputVars)+1)
		b.WriteString("static double output_table[VENSIM_OUTPUT_MAX_ROWS][VENSIM_OUTPUT_COLUMNS];\n")
		b.WriteString("static int output_rows;\n")
	}
	b.WriteByte('\n')
	return nil
}

func (e *Emitter) declareStorage(name string, subscripts []string) (string, error) {
	ident := cIdent(name)
	if len(subscripts) == 0 {
		return fmt.Sprintf("static double %s;", ident), nil
	}
	sizes, err := e.familySizes(subscripts)
	if err != nil {
		return "", err
	}
	var dims strings.Builder
	for _, n := range sizes {
		fmt.Fprintf(&dims, "[%d]", n)
	}
	return fmt.Sprintf("static double %s%s;", ident, dims.String()), nil
}

// declareLevelNext renders a function-local (non-static) snapshot buffer
// shaped exactly like the real storage cell declareStorage would declare for
// name/subscripts, under the "_next_"-prefixed identifier writeEvalLevels
// uses to hold a level's newly computed value until every level's new value
// has been computed (see writeEvalLevels).
func (e *Emitter) declareLevelNext(name string, subscripts []string) (string, error) {
	ident := levelNextIdent(name)
	if len(subscripts) == 0 {
		return fmt.Sprintf("    double %s;\n", ident), nil
	}
	sizes, err := e.familySizes(subscripts)
	if err != nil {
		return "", err
	}
	var dims strings.Builder
	for _, n := range sizes {
		fmt.Fprintf(&dims, "[%d]", n)
	}
	return fmt.Sprintf("    double %s%s;\n", ident, dims.String()), nil
}

func levelNextIdent(varName string) string {
	return "_next_" + cIdent(varName)
}

func (e *Emitter) familySizes(subscripts []string) ([]int, error) {
	families, err := e.registry.SubscriptFamilies(subscripts)
	if err != nil {
		return nil, err
	}
	sizes := make([]int, len(families))
	for i, f := range families {
		dim := e.registry.Dimension(f)
		if dim == nil {
			return nil, fmt.Errorf("family %q has no dimension record", f)
		}
		sizes[i] = dim.Size()
	}
	return sizes, nil
}

// writeLookupTables emits the static point arrays backing every lookup/data
// record (spec.md §4.6 initLookups).
func (e *Emitter) writeLookupTables(b *strings.Builder) error {
	b.WriteString("/* lookup tables */\n")
	for _, rec := range e.table.All() {
		if rec.VarType != model.VarLookup && rec.VarType != model.VarData {
			continue
		}
		if len(rec.Points) == 0 {
			continue
		}
		ident := cIdent(rec.RefID)
		xs := make([]string, len(rec.Points))
		ys := make([]string, len(rec.Points))
		for i, p := range rec.Points {
			xs[i] = formatNumber(p.X)
			ys[i] = formatNumber(p.Y)
		}
		fmt.Fprintf(b, "static const double %s_x[] = {%s};\n", ident, strings.Join(xs, ", "))
		fmt.Fprintf(b, "static const double %s_y[] = {%s};\n", ident, strings.Join(ys, ", "))
		fmt.Fprintf(b, "static VensimLookup %s_table = { %s_x, %s_y, %d };\n", ident, ident, ident, len(rec.Points))
	}
	b.WriteByte('\n')
	return nil
}

// writeInitConstants assigns every const record's literal value.
func (e *Emitter) writeInitConstants(b *strings.Builder) error {
	b.WriteString("static void initConstants(void) {\n")
	for _, id := range e.order.Const {
		rec, ok := e.table.ByRefID(id)
		if !ok || rec.RHS == nil {
			continue
		}
		stmt, err := e.assignStatement(rec, rec.RHS)
		if err != nil {
			return fmt.Errorf("emitting constant %q: %w", rec.RefID, err)
		}
		b.WriteString(stmt)
	}
	b.WriteString("}\n\n")
	return nil
}

// writeInitLookups is a no-op body: lookup table contents are emitted as
// static initializers by writeLookupTables. The function still exists so the
// driver sequence in run_model reads the way spec.md §4.6 describes it.
func (e *Emitter) writeInitLookups(b *strings.Builder) {
	b.WriteString("static void initLookups(void) {\n    /* lookup tables are statically initialized above */\n}\n\n")
}

// writeInitLevels assigns every level's initial value, in init order.
func (e *Emitter) writeInitLevels(b *strings.Builder) error {
	b.WriteString("static void initLevels(void) {\n")
	for _, id := range e.order.Init {
		rec, ok := e.table.ByRefID(id)
		if !ok || rec.VarType != model.VarLevel {
			continue
		}
		init := initExprOf(rec.RHS)
		if init == nil {
			continue
		}
		stmt, err := e.assignStatement(rec, init)
		if err != nil {
			return fmt.Errorf("emitting level init %q: %w", rec.RefID, err)
		}
		b.WriteString(stmt)
	}
	b.WriteString("}\n\n")
	return nil
}

// writeEvalAux recomputes every aux record in step order.
func (e *Emitter) writeEvalAux(b *strings.Builder) error {
	b.WriteString("static void evalAux(void) {\n")
	for _, id := range e.order.Aux {
		rec, ok := e.table.ByRefID(id)
		if !ok || rec.VarType != model.VarAux || rec.RHS == nil {
			continue
		}
		stmt, err := e.assignStatement(rec, rec.RHS)
		if err != nil {
			return fmt.Errorf("emitting aux %q: %w", rec.RefID, err)
		}
		b.WriteString(stmt)
	}
	b.WriteString("}\n\n")
	return nil
}

// writeEvalLevels integrates every level record one Euler step, in step
// order: newValue = oldValue + dt * flow (for the DELAY/SMOOTH/TREND
// primitives, newValue is the runtime helper's output instead).
//
// Every level's new value is computed from a snapshot of the previous step's
// storage, not the live storage cells, so that depsort.Sort's step order
// among levels never affects the numbers a level's flow expression observes
// (spec.md §4.5: "a level's next value is computed from the previous-step
// values of other levels"). Without this, a level A whose flow references
// level B would read B's already-updated value whenever B happens to sort
// before A in e.order.Level, silently making evaluation order part of the
// model's semantics. Concretely: the whole function runs as two passes —
// first every level's new value is computed (reading only real storage,
// which nothing has touched yet this step) into a "_next_"-prefixed local
// buffer shaped like its real storage cell, then every buffer is copied into
// the real storage cell. Order between the two passes is what matters, not
// order within either one.
func (e *Emitter) writeEvalLevels(b *strings.Builder) error {
	b.WriteString("static void evalLevels(void) {\n")

	declaredNext := make(map[string]bool)
	var computed strings.Builder
	var active []*model.Variable

	for _, id := range e.order.Level {
		rec, ok := e.table.ByRefID(id)
		if !ok || rec.VarType != model.VarLevel {
			continue
		}
		flow := flowExprOf(rec.RHS)
		if flow == nil {
			continue
		}

		if !declaredNext[rec.VarName] {
			decl, err := e.declareLevelNext(rec.VarName, rec.Subscripts)
			if err != nil {
				return fmt.Errorf("declaring level snapshot %q: %w", rec.VarName, err)
			}
			b.WriteString(decl)
			declaredNext[rec.VarName] = true
		}

		stmt, err := e.computeLevelNextStatement(rec, flow)
		if err != nil {
			return fmt.Errorf("emitting level flow %q: %w", rec.RefID, err)
		}
		computed.WriteString(stmt)
		active = append(active, rec)
	}

	b.WriteString(computed.String())

	for _, rec := range active {
		stmt, err := e.commitLevelNextStatement(rec)
		if err != nil {
			return fmt.Errorf("committing level %q: %w", rec.RefID, err)
		}
		b.WriteString(stmt)
	}

	b.WriteString("}\n\n")
	return nil
}

// computeLevelNextStatement computes rec's new value from the current
// (pre-step) storage and assigns it into rec's "_next_" snapshot buffer
// cell, wrapped in loops over any whole-dimension subscripts rec carries.
func (e *Emitter) computeLevelNextStatement(rec *model.Variable, flow parsetree.Expr) (string, error) {
	loopFamilies, loopVars, err := e.loopPlan(rec)
	if err != nil {
		return "", err
	}

	flowC, err := e.exprToC(rec, flow, loopVars)
	if err != nil {
		return "", err
	}

	nextLHS := e.lvalueIdent(rec, loopVars, levelNextIdent(rec.VarName))
	var rhs string
	if isDirectLevelCall(rec.RHS) {
		// DELAY FIXED/SMOOTH*/TREND already return the current output of
		// their runtime helper, not a rate to integrate (see runtime.go);
		// snapshot that output directly instead of accumulating it.
		rhs = flowC
	} else {
		rhs = fmt.Sprintf("%s + TIME_STEP * (%s)", e.lvalue(rec, loopVars), flowC)
	}

	stmt := fmt.Sprintf("%s = %s;", nextLHS, rhs)
	return e.wrapInLoops(loopFamilies, loopVars, stmt), nil
}

// commitLevelNextStatement copies rec's "_next_" snapshot buffer cell into
// its real storage cell, once every level's new value has been computed.
func (e *Emitter) commitLevelNextStatement(rec *model.Variable) (string, error) {
	loopFamilies, loopVars, err := e.loopPlan(rec)
	if err != nil {
		return "", err
	}
	nextRHS := e.lvalueIdent(rec, loopVars, levelNextIdent(rec.VarName))
	stmt := fmt.Sprintf("%s = %s;", e.lvalue(rec, loopVars), nextRHS)
	return e.wrapInLoops(loopFamilies, loopVars, stmt), nil
}

// writeStoreOutputs appends a row to the output table for the spec's output
// vars, at the current simulated time.
func (e *Emitter) writeStoreOutputs(b *strings.Builder) {
	b.WriteString("static void storeOutputs(void) {\n")
	if e.spec == nil || len(e.spec.OutputVars) == 0 {
		b.WriteString("}\n\n")
		return
	}
	b.WriteString("    if (output_rows >= VENSIM_OUTPUT_MAX_ROWS) {\n        return;\n    }\n")
	b.WriteString("    output_table[output_rows][0] = _time;\n")
	for i, name := range e.spec.OutputVars {
		rec := e.findSpecVar(name)
		if rec == nil {
			continue
		}
		fmt.Fprintf(b, "    output_table[output_rows][%d] = %s;\n", i+1, e.lvalue(rec, nil))
	}
	b.WriteString("    output_rows++;\n")
	b.WriteString("}\n\n")
}

func (e *Emitter) findSpecVar(name string) *model.Variable {
	if rec, ok := e.table.ByRefID(name); ok {
		return rec
	}
	recs := e.table.RecordsByName(model.CanonicalName(name))
	if len(recs) == 1 {
		return recs[0]
	}
	return nil
}

// writeRunModel emits the top-level driver (spec.md §4.6).
func (e *Emitter) writeRunModel(b *strings.Builder) {
	b.WriteString("void run_model(void) {\n")
	b.WriteString("    initConstants();\n")
	b.WriteString("    initLookups();\n")
	b.WriteString("    _time = INITIAL_TIME;\n")
	b.WriteString("    initLevels();\n")
	b.WriteString("    double next_save = INITIAL_TIME;\n")
	b.WriteString("    while (_time <= FINAL_TIME) {\n")
	b.WriteString("        if (_time >= next_save) {\n")
	b.WriteString("            storeOutputs();\n")
	b.WriteString("            next_save += SAVEPER;\n")
	b.WriteString("        }\n")
	b.WriteString("        evalAux();\n")
	b.WriteString("        evalLevels();\n")
	b.WriteString("        _time += TIME_STEP;\n")
	b.WriteString("    }\n")
	b.WriteString("    storeOutputs();\n")
	b.WriteString("}\n")
}

// --- expression translation ---

// assignStatement emits one or more "name[idx...] = expr;" statements for
// rec, looping over any subscript families rec's formula leaves as whole
// dimensions (spec.md §4.6: "generates nested loops over the variable's
// subscript families").
func (e *Emitter) assignStatement(rec *model.Variable, expr parsetree.Expr) (string, error) {
	loopFamilies, loopVars, err := e.loopPlan(rec)
	if err != nil {
		return "", err
	}

	rhsC, err := e.exprToC(rec, expr, loopVars)
	if err != nil {
		return "", err
	}
	stmt := fmt.Sprintf("%s = %s;", e.lvalue(rec, loopVars), rhsC)
	return e.wrapInLoops(loopFamilies, loopVars, stmt), nil
}

// wrapInLoops wraps a single already-rendered C statement in nested
// "for (int i_fam = 0; ...)" loops, one per entry of loopFamilies/loopVars,
// matching spec.md §4.6's "generates nested loops over the variable's
// subscript families" requirement. loopFamilies/loopVars must come from the
// same loopPlan call that produced the loop variables baked into stmt.
func (e *Emitter) wrapInLoops(loopFamilies, loopVars []string, stmt string) string {
	var b strings.Builder
	indent := "    "
	for i, family := range loopFamilies {
		dim := e.registry.Dimension(family)
		fmt.Fprintf(&b, "%sfor (int %s = 0; %s < %d; %s++) {\n", indent, loopVars[i], loopVars[i], dim.Size(), loopVars[i])
		indent += "    "
	}

	fmt.Fprintf(&b, "%s%s\n", indent, stmt)

	for range loopFamilies {
		indent = indent[:len(indent)-4]
		fmt.Fprintf(&b, "%s}\n", indent)
	}
	return b.String()
}

// loopPlan returns, for rec's subscripts, the families that are whole
// dimensions (need a loop) in registry family order, and the C loop-variable
// names to use for them. Subscripts that are already a concrete index need
// no loop.
func (e *Emitter) loopPlan(rec *model.Variable) (families []string, vars []string, err error) {
	for _, s := range rec.Subscripts {
		sub, ok := e.registry.Sub(s)
		if !ok {
			return nil, nil, fmt.Errorf("unknown subscript %q on %q", s, rec.RefID)
		}
		if sub.IsDimension() {
			families = append(families, sub.FamilyName())
			vars = append(vars, "i_"+sub.FamilyName())
		}
	}
	return families, vars, nil
}

// lvalue renders rec's storage cell, indexed by loopVars for each dimension
// family rec's declaration carries, or by a literal index position for any
// subscript that is a concrete index.
func (e *Emitter) lvalue(rec *model.Variable, loopVars []string) string {
	return e.lvalueIdent(rec, loopVars, cIdent(rec.VarName))
}

// lvalueIdent renders rec's storage cell the way lvalue does, but addressing
// a caller-supplied storage identifier instead of rec's own. Used by
// writeEvalLevels to address the "_next_"-prefixed snapshot buffer that
// holds every level's newly computed value until the whole step has been
// computed (see the snapshot note on writeEvalLevels).
func (e *Emitter) lvalueIdent(rec *model.Variable, loopVars []string, ident string) string {
	if len(rec.Subscripts) == 0 {
		return ident
	}

	var b strings.Builder
	b.WriteString(ident)
	loopIdx := 0
	for _, s := range rec.Subscripts {
		sub, ok := e.registry.Sub(s)
		if !ok {
			fmt.Fprintf(&b, "[/* unknown subscript %s */0]", s)
			continue
		}
		if sub.IsDimension() {
			if loopIdx < len(loopVars) {
				fmt.Fprintf(&b, "[%s]", loopVars[loopIdx])
				loopIdx++
			}
			continue
		}
		fmt.Fprintf(&b, "[%d]", sub.Index.Position)
	}
	return b.String()
}

// exprToC translates a parsed RHS expression into a C expression string.
// loopVars, when non-nil, gives the loop-variable names in the same family
// order loopPlan produced for rec, so that VarRef nodes whose subscript
// names a family rec is itself looping over reuse the loop variable instead
// of a literal index.
func (e *Emitter) exprToC(rec *model.Variable, expr parsetree.Expr, loopVars []string) (string, error) {
	switch node := expr.(type) {
	case nil:
		return "0.0", nil
	case parsetree.NumberLiteral:
		return formatNumber(node.Value), nil
	case parsetree.StringLiteral:
		return fmt.Sprintf("%q", node.Value), nil
	case parsetree.VarRef:
		return e.varRefToC(rec, node, loopVars)
	case parsetree.BinaryExpr:
		return e.binaryToC(rec, node, loopVars)
	case parsetree.UnaryExpr:
		operand, err := e.exprToC(rec, node.Operand, loopVars)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(-(%s))", operand), nil
	case parsetree.InitialExpr:
		return e.exprToC(rec, node.Inner, loopVars)
	case parsetree.LookupLiteral:
		input, err := e.exprToC(rec, node.Input, loopVars)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("_LOOKUP(&%s_table, %s)", cIdent(rec.RefID), input), nil
	case parsetree.CallExpr:
		return e.callToC(rec, node, loopVars)
	default:
		return "", fmt.Errorf("unsupported expression node %T in %q", expr, rec.RefID)
	}
}

func (e *Emitter) binaryToC(rec *model.Variable, node parsetree.BinaryExpr, loopVars []string) (string, error) {
	left, err := e.exprToC(rec, node.Left, loopVars)
	if err != nil {
		return "", err
	}
	right, err := e.exprToC(rec, node.Right, loopVars)
	if err != nil {
		return "", err
	}

	switch node.Op {
	case "^":
		return fmt.Sprintf("pow(%s, %s)", left, right), nil
	case ":AND:":
		return fmt.Sprintf("(%s && %s)", left, right), nil
	case ":OR:":
		return fmt.Sprintf("(%s || %s)", left, right), nil
	default:
		return fmt.Sprintf("(%s %s %s)", left, node.Op, right), nil
	}
}

// varRefToC resolves a referenced variable name/subscripts to its storage
// expression, reusing rec's own loop variable where the reference shares a
// family with one of rec's active loops, translating through a map-to table
// where the referenced family differs, or using the referenced record's own
// concrete index otherwise (spec.md §4.6, §4.1).
func (e *Emitter) varRefToC(rec *model.Variable, ref parsetree.VarRef, loopVars []string) (string, error) {
	if model.CanonicalName(ref.Name) == model.TimeVarName {
		return "_time", nil
	}

	name := model.CanonicalName(ref.Name)
	candidates := e.table.RecordsByName(name)
	if len(candidates) == 0 {
		return "0.0 /* unresolved reference */", nil
	}

	target := candidates[0]
	if len(candidates) > 1 {
		if match := e.pickCandidate(candidates, ref.Subscripts); match != nil {
			target = match
		}
	}

	if len(target.Subscripts) == 0 {
		return cIdent(target.VarName), nil
	}

	ident := cIdent(target.VarName)
	var b strings.Builder
	b.WriteString(ident)

	recFamilies, _ := e.registry.SubscriptFamilies(rec.Subscripts)
	loopVarFor := make(map[string]string, len(loopVars))
	j := 0
	for _, s := range rec.Subscripts {
		sub, ok := e.registry.Sub(s)
		if ok && sub.IsDimension() && j < len(loopVars) {
			loopVarFor[sub.FamilyName()] = loopVars[j]
			j++
		}
	}
	_ = recFamilies

	for _, s := range target.Subscripts {
		sub, ok := e.registry.Sub(s)
		if !ok {
			fmt.Fprintf(&b, "[/* unknown subscript %s */0]", s)
			continue
		}
		if sub.IsDimension() {
			family := sub.FamilyName()
			if lv, ok := loopVarFor[family]; ok {
				fmt.Fprintf(&b, "[%s]", lv)
				continue
			}
			fmt.Fprintf(&b, "[0]")
			continue
		}

		// Target declares a concrete index of its own family. If rec is
		// looping over a *different* family that maps onto this one
		// (map-to), translate the loop index through the mapping array;
		// otherwise use the index's own position directly.
		targetFamily := sub.FamilyName()
		if lv, ok := loopVarFor[targetFamily]; ok {
			fmt.Fprintf(&b, "[%s]", lv)
			continue
		}

		if mapped, ok := e.mapToIndex(loopVarFor, targetFamily); ok {
			b.WriteString(mapped)
			continue
		}

		fmt.Fprintf(&b, "[%d]", sub.Index.Position)
	}
	return b.String(), nil
}

// mapToIndex looks for a loop variable over some family F whose dimension
// declares a mapping to targetFamily, and if found returns a bracketed
// index expression that looks the mapped position up via a generated
// mapping table (spec.md §4.1, §4.6 map-to).
func (e *Emitter) mapToIndex(loopVarFor map[string]string, targetFamily string) (string, bool) {
	targetDim := e.registry.Dimension(targetFamily)
	if targetDim == nil {
		return "", false
	}
	for fromFamily, lv := range loopVarFor {
		fromDim := e.registry.Dimension(fromFamily)
		if fromDim == nil {
			continue
		}
		if _, ok := fromDim.Mappings[targetFamily]; !ok {
			continue
		}
		return fmt.Sprintf("[%s[%s]]", mapTableName(fromFamily, targetFamily), lv), true
	}
	return "", false
}

func mapTableName(fromFamily, toFamily string) string {
	return fmt.Sprintf("MAP_%s_TO_%s", cIdent(fromFamily), cIdent(toFamily))
}

// pickCandidate picks the non-apply-to-all element of candidates whose
// subscripts match ref's written subscripts under the matching rules of
// spec.md §4.3, mirroring analyzer.matches without requiring a second
// analyzer instance at codegen time.
func (e *Emitter) pickCandidate(candidates []*model.Variable, refSubs []string) *model.Variable {
	refFamilies, err := e.registry.SubscriptFamilies(refSubs)
	if err != nil {
		return nil
	}
	refByFamily := make(map[string]string, len(refFamilies))
	for i, f := range refFamilies {
		refByFamily[f] = refSubs[i]
	}

	for _, cand := range candidates {
		candFamilies, err := e.registry.SubscriptFamilies(cand.Subscripts)
		if err != nil {
			continue
		}
		ok := true
		for i, f := range candFamilies {
			refSub, has := refByFamily[f]
			if !has {
				continue
			}
			candSub := cand.Subscripts[i]
			if refSub == candSub {
				continue
			}
			// A candidate declaring a whole dimension matches a reference
			// naming one of that dimension's indices.
			if sub, found := e.registry.Sub(candSub); found && sub.IsDimension() && indexOfName(sub.Dimension.Value, refSub) >= 0 {
				continue
			}
			ok = false
			break
		}
		if ok {
			return cand
		}
	}
	return nil
}

func (e *Emitter) callToC(rec *model.Variable, node parsetree.CallExpr, loopVars []string) (string, error) {
	args := make([]string, len(node.Args))
	for i, a := range node.Args {
		c, err := e.exprToC(rec, a, loopVars)
		if err != nil {
			return "", err
		}
		args[i] = c
	}

	switch node.Func {
	case "MIN":
		return fmt.Sprintf("_MIN(%s)", strings.Join(args, ", ")), nil
	case "MAX":
		return fmt.Sprintf("_MAX(%s)", strings.Join(args, ", ")), nil
	case "ABS":
		return fmt.Sprintf("fabs(%s)", args[0]), nil
	case "SQRT":
		return fmt.Sprintf("sqrt(%s)", args[0]), nil
	case "EXP":
		return fmt.Sprintf("exp(%s)", args[0]), nil
	case "LN":
		return fmt.Sprintf("log(%s)", args[0]), nil
	case "SIN":
		return fmt.Sprintf("sin(%s)", args[0]), nil
	case "COS":
		return fmt.Sprintf("cos(%s)", args[0]), nil
	case "TAN":
		return fmt.Sprintf("tan(%s)", args[0]), nil
	case "ARCSIN":
		return fmt.Sprintf("asin(%s)", args[0]), nil
	case "ARCCOS":
		return fmt.Sprintf("acos(%s)", args[0]), nil
	case "ARCTAN":
		return fmt.Sprintf("atan(%s)", args[0]), nil
	case "INTEGER":
		return fmt.Sprintf("((double)(long)(%s))", args[0]), nil
	case "MODULO":
		return fmt.Sprintf("fmod(%s, %s)", args[0], args[1]), nil
	case "RANDOM UNIFORM":
		if len(args) >= 2 {
			return fmt.Sprintf("(%s + ((double)rand() / RAND_MAX) * (%s - %s))", args[0], args[1], args[0]), nil
		}
		return "((double)rand() / RAND_MAX)", nil
	case "IF THEN ELSE":
		return fmt.Sprintf("_IF_THEN_ELSE((int)(%s), %s, %s)", args[0], args[1], args[2]), nil
	case "INTEG":
		// INTEG's flow argument is handled by writeEvalLevels; encountering
		// it elsewhere (e.g. nested in another call) just yields the level's
		// current value.
		return e.lvalue(rec, loopVars), nil
	case "DELAY FIXED":
		return e.delayCall(rec, "_DELAY_FIXED", withInit(args), 1)
	case "DELAY1", "DELAY1I":
		return e.delayCall(rec, "_DELAY1", withInit(args), 1)
	case "DELAY3", "DELAY3I":
		return e.delayCall(rec, "_DELAY3", withInit(args), 3)
	case "SMOOTH", "SMOOTHI":
		return e.delayCall(rec, "_SMOOTH1", withInit(args), 1)
	case "SMOOTH3", "SMOOTH3I":
		return e.delayCall(rec, "_SMOOTH3", withInit(args), 3)
	case "TREND":
		return e.delayCall(rec, "_TREND", withInit(args), 1)
	case "GET DIRECT DATA", "GET DIRECT LOOKUPS":
		return fmt.Sprintf("_LOOKUP(&%s_table, _time)", cIdent(rec.RefID)), nil
	default:
		return "", fmt.Errorf("unsupported function %q in %q", node.Func, rec.RefID)
	}
}

// withInit pads a two-argument DELAY1/SMOOTH/SMOOTH3/DELAY FIXED call
// (Vensim's non-I forms omit the initial value) with its own input as the
// implicit init, so every runtime helper always receives (input, time, init).
func withInit(args []string) []string {
	if len(args) >= 3 {
		return args
	}
	if len(args) == 2 {
		return []string{args[0], args[1], args[0]}
	}
	return args
}

// delayCall assigns rec a dedicated block of runtime state slots (width
// contiguous ints, for the cascaded SMOOTH3/DELAY3 stages) and emits the
// runtime helper call, appending TIME_STEP as the dt argument every stateful
// primitive needs.
func (e *Emitter) delayCall(rec *model.Variable, helper string, args []string, width int) (string, error) {
	slot, ok := e.delaySlots[rec.RefID]
	if !ok {
		slot = e.nextSlot
		e.nextSlot += width
		e.delaySlots[rec.RefID] = slot
	}
	callArgs := append([]string{fmt.Sprintf("%d", slot)}, args...)
	callArgs = append(callArgs, "TIME_STEP")
	return fmt.Sprintf("%s(%s)", helper, strings.Join(callArgs, ", ")), nil
}

// initExprOf returns the sub-expression that supplies a level's initial
// value: INTEG's second argument, or an INITIAL(...)-wrapped expression
// elsewhere in the formula, or nil if the formula carries no distinct init
// expression (as for the DELAY/SMOOTH/TREND primitives, whose runtime helper
// initializes itself on its first call).
func initExprOf(expr parsetree.Expr) parsetree.Expr {
	switch node := expr.(type) {
	case parsetree.CallExpr:
		if node.Func == "INTEG" && len(node.Args) == 2 {
			return node.Args[1]
		}
		for _, a := range node.Args {
			if v := initExprOf(a); v != nil {
				return v
			}
		}
	case parsetree.InitialExpr:
		return node.Inner
	case parsetree.BinaryExpr:
		if v := initExprOf(node.Left); v != nil {
			return v
		}
		return initExprOf(node.Right)
	}
	return nil
}

// flowExprOf returns the per-step integration rate for a level's formula:
// INTEG's first argument, or the whole formula for the other level
// primitives (DELAY FIXED/SMOOTH*/TREND), whose runtime helper already
// returns the current output rather than a rate to integrate, so
// writeEvalLevels assigns it directly instead of accumulating it.
func flowExprOf(expr parsetree.Expr) parsetree.Expr {
	if call, ok := expr.(parsetree.CallExpr); ok && call.Func == "INTEG" && len(call.Args) == 2 {
		return call.Args[0]
	}
	return expr
}

// isDirectLevelCall reports whether expr is one of the DELAY FIXED/SMOOTH*/
// TREND primitives, whose runtime helper returns the already-advanced output
// value for this step rather than a rate (spec.md §4.3, §4.6).
func isDirectLevelCall(expr parsetree.Expr) bool {
	call, ok := expr.(parsetree.CallExpr)
	if !ok {
		return false
	}
	switch call.Func {
	case "DELAY FIXED", "DELAY1", "DELAY1I", "DELAY3", "DELAY3I",
		"SMOOTH", "SMOOTHI", "SMOOTH3", "SMOOTH3I", "TREND":
		return true
	default:
		return false
	}
}

func cIdent(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := b.String()
	if out == "" {
		return "_"
	}
	if out[0] >= '0' && out[0] <= '9' {
		return "_" + out
	}
	return out
}

func formatNumber(v float64) string {
	return fmt.Sprintf("%g", v)
}
