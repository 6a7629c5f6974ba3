package varreader

import (
	"testing"

	"github.com/retroenv/retrogolib/assert"

	"github.com/dvensim/vensimc/internal/iospec"
	"github.com/dvensim/vensimc/internal/model"
	"github.com/dvensim/vensimc/internal/parsetree"
	"github.com/dvensim/vensimc/internal/subscript"
	"github.com/dvensim/vensimc/internal/vartable"
)

func TestReader_Read_ScalarEquationAndTimeVar(t *testing.T) {
	mdl := &parsetree.Model{
		Equations: []parsetree.Equation{
			{LHSText: "Sales", LHSName: "Sales", RHSText: "10", RHS: parsetree.NumberLiteral{Value: 10}},
		},
	}

	r := New(subscript.New(), nil)
	table := vartable.New()
	assert.NoError(t, r.Read(mdl, table))

	recs := table.RecordsByName("_sales")
	assert.Equal(t, 1, len(recs))
	assert.Equal(t, "Sales", recs[0].ModelLHS)
	assert.Equal(t, "10", recs[0].ModelFormula)

	timeRecs := table.RecordsByName(model.TimeVarName)
	assert.Equal(t, 1, len(timeRecs))
}

func TestReader_Read_LookupLiteral(t *testing.T) {
	mdl := &parsetree.Model{
		Equations: []parsetree.Equation{
			{
				LHSText: "f", LHSName: "f", RHSText: "((0,0),(1,1))",
				RHS: parsetree.LookupLiteral{Points: [][2]float64{{0, 0}, {1, 1}}},
			},
		},
	}

	r := New(subscript.New(), nil)
	table := vartable.New()
	assert.NoError(t, r.Read(mdl, table))

	rec := table.RecordsByName("_f")[0]
	assert.Equal(t, model.VarLookup, rec.VarType)
	assert.Equal(t, 2, len(rec.Points))
}

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

func TestReader_Read_ApplyToAllArray(t *testing.T) {
	registry := newRegionRegistry(t)
	mdl := &parsetree.Model{
		Equations: []parsetree.Equation{
			{
				LHSText: "Sales[Region]", LHSName: "Sales", Subscripts: []string{"Region"},
				RHSText: "10", RHS: parsetree.NumberLiteral{Value: 10},
			},
		},
	}

	r := New(registry, nil)
	table := vartable.New()
	assert.NoError(t, r.Read(mdl, table))

	recs := table.RecordsByName("_sales")
	assert.Equal(t, 1, len(recs))
	assert.Equal(t, []string{"Region"}, recs[0].Subscripts)
}

func TestReader_Read_ExplicitIndexSeparatesRecord(t *testing.T) {
	registry := newRegionRegistry(t)
	mdl := &parsetree.Model{
		Equations: []parsetree.Equation{
			{
				LHSText: "Sales[East]", LHSName: "Sales", Subscripts: []string{"East"},
				RHSText: "1", RHS: parsetree.NumberLiteral{Value: 1},
			},
			{
				LHSText: "Sales[West]", LHSName: "Sales", Subscripts: []string{"West"},
				RHSText: "2", RHS: parsetree.NumberLiteral{Value: 2},
			},
		},
	}

	r := New(registry, nil)
	table := vartable.New()
	assert.NoError(t, r.Read(mdl, table))

	recs := table.RecordsByName("_sales")
	assert.Equal(t, 2, len(recs))
	assert.Equal(t, []string{"East"}, recs[0].Subscripts)
	assert.Equal(t, []string{"West"}, recs[1].Subscripts)
}

func TestReader_Read_SpecialSeparationDimsForcesSeparation(t *testing.T) {
	registry := newRegionRegistry(t)
	spec := &iospec.Spec{SpecialSeparationDims: map[string][]string{"_sales": {"Region"}}}
	mdl := &parsetree.Model{
		Equations: []parsetree.Equation{
			{
				LHSText: "Sales[Region]", LHSName: "Sales", Subscripts: []string{"Region"},
				RHSText: "10", RHS: parsetree.NumberLiteral{Value: 10},
			},
		},
	}

	r := New(registry, spec)
	table := vartable.New()
	assert.NoError(t, r.Read(mdl, table))

	recs := table.RecordsByName("_sales")
	assert.Equal(t, 2, len(recs))
}
