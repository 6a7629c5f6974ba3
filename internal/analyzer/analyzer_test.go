package analyzer

import (
	"testing"

	"github.com/retroenv/retrogolib/assert"

	"github.com/dvensim/vensimc/internal/diag"
	"github.com/dvensim/vensimc/internal/extdata"
	"github.com/dvensim/vensimc/internal/iospec"
	"github.com/dvensim/vensimc/internal/model"
	"github.com/dvensim/vensimc/internal/subscript"
	"github.com/dvensim/vensimc/internal/vartable"
)

func newRegionRegistry(t *testing.T) *subscript.Registry {
	t.Helper()
	r := subscript.New()
	assert.NoError(t, r.DeclareDimension("Region", []string{"East", "West"}))
	assert.NoError(t, r.Expand())
	assert.NoError(t, r.ResolveFamilies())
	r.InstantiateIndices()
	assert.NoError(t, r.InvertMapping())
	return r
}

func TestAnalyzer_AssignRefIDsApplyToAll(t *testing.T) {
	table := vartable.New()
	table.Add(&model.Variable{VarName: "population", Subscripts: nil})

	a := New(table, subscript.New(), nil, nil, diag.NewCollector())
	a.DetectNonApplyToAll()
	assert.NoError(t, a.AssignRefIDs())

	rec := table.RecordsByName("population")[0]
	assert.Equal(t, "population", rec.RefID)
}

func TestAnalyzer_AssignRefIDsNonApplyToAll(t *testing.T) {
	table := vartable.New()
	table.Add(&model.Variable{VarName: "sales", Subscripts: []string{"East"}})
	table.Add(&model.Variable{VarName: "sales", Subscripts: []string{"West"}})

	a := New(table, newRegionRegistry(t), nil, nil, diag.NewCollector())
	a.DetectNonApplyToAll()
	assert.NoError(t, a.AssignRefIDs())

	flags, ok := a.NonApplyToAllFlags("sales")
	assert.True(t, ok)
	assert.Equal(t, []bool{true}, flags)

	recs := table.RecordsByName("sales")
	assert.Equal(t, "sales[East]", recs[0].RefID)
	assert.Equal(t, "sales[West]", recs[1].RefID)
}

func TestAnalyzer_ResolveReferencesApplyToAllTarget(t *testing.T) {
	// References hold raw encoded tokens (model.RawRef.Encode), which are
	// already canonicalized by the equation reader before the analyzer ever
	// sees them; VarName is likewise the canonical form varreader assigns.
	table := vartable.New()
	table.Add(&model.Variable{
		VarName:    "_profit",
		Subscripts: nil,
		References: []string{"_cost"},
	})
	table.Add(&model.Variable{VarName: "_cost", Subscripts: nil, VarType: model.VarConst})

	a := New(table, subscript.New(), nil, nil, diag.NewCollector())
	a.DetectNonApplyToAll()
	assert.NoError(t, a.AssignRefIDs())
	assert.NoError(t, a.ResolveReferences())

	rec := table.RecordsByName("_profit")[0]
	assert.Equal(t, []string{"_cost"}, rec.References)
}

func TestAnalyzer_ResolveReferencesDimensionOnVarMatchesIndexOnRef(t *testing.T) {
	registry := newRegionRegistry(t)
	table := vartable.New()
	// "total" references sales[East]; sales is apply-to-all with a
	// whole-dimension subscript, so the single record matches any index.
	table.Add(&model.Variable{
		VarName:    "_total",
		Subscripts: nil,
		References: []string{"_sales[East]"},
	})
	table.Add(&model.Variable{VarName: "_sales", Subscripts: []string{"Region"}, VarType: model.VarConst})

	a := New(table, registry, nil, nil, diag.NewCollector())
	a.DetectNonApplyToAll()
	assert.NoError(t, a.AssignRefIDs())
	assert.NoError(t, a.ResolveReferences())

	rec := table.RecordsByName("_total")[0]
	assert.Equal(t, []string{"_sales"}, rec.References)
}

func TestAnalyzer_ResolveReferencesIndexOnVarDisallowsDimensionOnRef(t *testing.T) {
	registry := newRegionRegistry(t)
	table := vartable.New()
	table.Add(&model.Variable{
		VarName:    "_total",
		Subscripts: nil,
		References: []string{"_sales[Region]"},
	})
	table.Add(&model.Variable{VarName: "_sales", Subscripts: []string{"East"}, VarType: model.VarConst})
	table.Add(&model.Variable{VarName: "_sales", Subscripts: []string{"West"}, VarType: model.VarConst})

	a := New(table, registry, nil, nil, diag.NewCollector())
	a.DetectNonApplyToAll()
	assert.NoError(t, a.AssignRefIDs())

	err := a.ResolveReferences()
	assert.Error(t, err)
}

func TestAnalyzer_ResolveReferencesSynthesizesFromExternalData(t *testing.T) {
	table := vartable.New()
	table.Add(&model.Variable{
		VarName:    "_revenue",
		References: []string{"_exogenous_price"},
	})
	series := extdata.Series{
		"_exogenous_price": {{Time: 0, Value: 1}, {Time: 1, Value: 2}},
	}

	a := New(table, subscript.New(), series, nil, diag.NewCollector())
	a.DetectNonApplyToAll()
	assert.NoError(t, a.AssignRefIDs())
	assert.NoError(t, a.ResolveReferences())

	rec := table.RecordsByName("_revenue")[0]
	assert.Equal(t, []string{"_exogenous_price"}, rec.References)

	synthesized, ok := table.ByRefID("_exogenous_price")
	assert.True(t, ok)
	assert.Equal(t, model.VarData, synthesized.VarType)
	assert.Equal(t, 2, len(synthesized.Points))
}

func TestAnalyzer_ResolveReferencesDanglingFails(t *testing.T) {
	table := vartable.New()
	table.Add(&model.Variable{VarName: "_revenue", References: []string{"_nowhere"}})

	a := New(table, subscript.New(), nil, nil, diag.NewCollector())
	a.DetectNonApplyToAll()
	assert.NoError(t, a.AssignRefIDs())

	err := a.ResolveReferences()
	assert.Error(t, err)
}

func TestAnalyzer_PruneConstantReferences(t *testing.T) {
	table := vartable.New()
	table.Add(&model.Variable{
		VarName:    "stock",
		VarType:    model.VarLevel,
		References: []string{"inflow", "rate"},
	})
	table.Add(&model.Variable{VarName: "inflow", VarType: model.VarAux})
	table.Add(&model.Variable{VarName: "rate", VarType: model.VarConst})

	a := New(table, subscript.New(), nil, nil, diag.NewCollector())
	a.DetectNonApplyToAll()
	assert.NoError(t, a.AssignRefIDs())

	rec, _ := table.ByRefID("stock")
	if rec == nil {
		t.Fatal("expected stock to be indexed")
	}

	a.PruneConstantReferences()
	assert.Equal(t, []string{"inflow"}, rec.References)
}

func TestAnalyzer_ValidateSpecVarsWarnsOnUnknown(t *testing.T) {
	table := vartable.New()
	table.Add(&model.Variable{VarName: "_population"})
	spec := &iospec.Spec{OutputVars: []string{"Population"}, InputVars: []string{"Ghost Variable"}}

	collector := diag.NewCollector()
	a := New(table, subscript.New(), nil, spec, collector)
	a.DetectNonApplyToAll()
	assert.NoError(t, a.AssignRefIDs())

	a.ValidateSpecVars()

	assert.True(t, collector.HasDiagnostics())
	assert.Equal(t, 1, len(collector.Items()))
	assert.Equal(t, "Ghost Variable", collector.Items()[0].VarName)
}
