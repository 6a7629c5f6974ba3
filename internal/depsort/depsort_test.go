package depsort

import (
	"testing"

	"github.com/retroenv/retrogolib/assert"

	"github.com/dvensim/vensimc/internal/model"
	"github.com/dvensim/vensimc/internal/vartable"
)

func indexOf(order []string, id string) int {
	for i, v := range order {
		if v == id {
			return i
		}
	}
	return -1
}

func TestSort_AuxOrderRespectsDependencies(t *testing.T) {
	table := vartable.New()
	table.Add(&model.Variable{RefID: "b", VarName: "b", VarType: model.VarAux, References: []string{"a"}})
	table.Add(&model.Variable{RefID: "a", VarName: "a", VarType: model.VarAux})

	order, err := Sort(table)
	assert.NoError(t, err)

	assert.True(t, indexOf(order.Aux, "a") < indexOf(order.Aux, "b"))
}

func TestSort_LevelToLevelEdgesAreInverted(t *testing.T) {
	table := vartable.New()
	// Two levels reference each other's RefIDs directly (as a level
	// integrating another level's current value would); this must not be
	// treated as a cycle.
	table.Add(&model.Variable{RefID: "stock1", VarName: "stock1", VarType: model.VarLevel, References: []string{"stock2"}})
	table.Add(&model.Variable{RefID: "stock2", VarName: "stock2", VarType: model.VarLevel, References: []string{"stock1"}})

	order, err := Sort(table)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(order.Level))
}

func TestSort_LevelToLevelOneDirectionalEdgeIsInverted(t *testing.T) {
	table := vartable.New()
	// zstock's flow references astock (a level), but astock never
	// references zstock back: a genuine one-directional level-to-level
	// edge. Per spec.md §4.5 the edge inverts to zstock before astock,
	// the opposite of both the uninverted order and of alphabetical
	// tie-breaking among zero-indegree nodes -- this distinguishes a real
	// inversion from the edge simply being dropped.
	table.Add(&model.Variable{RefID: "astock", VarName: "astock", VarType: model.VarLevel})
	table.Add(&model.Variable{RefID: "zstock", VarName: "zstock", VarType: model.VarLevel, References: []string{"astock"}})

	order, err := Sort(table)
	assert.NoError(t, err)
	assert.True(t, indexOf(order.Level, "zstock") < indexOf(order.Level, "astock"))
}

func TestSort_AuxCycleFails(t *testing.T) {
	table := vartable.New()
	table.Add(&model.Variable{RefID: "a", VarName: "a", VarType: model.VarAux, References: []string{"b"}})
	table.Add(&model.Variable{RefID: "b", VarName: "b", VarType: model.VarAux, References: []string{"a"}})

	_, err := Sort(table)
	assert.Error(t, err)
}

func TestSort_InitOrderIncludesLevelInitClosure(t *testing.T) {
	table := vartable.New()
	table.Add(&model.Variable{
		RefID: "stock", VarName: "stock", VarType: model.VarLevel,
		InitReferences: []string{"initial_stock_aux"},
	})
	table.Add(&model.Variable{
		RefID: "initial_stock_aux", VarName: "initial_stock_aux", VarType: model.VarAux,
		References: []string{"initial_stock_const"},
	})
	table.Add(&model.Variable{
		RefID: "initial_stock_const", VarName: "initial_stock_const", VarType: model.VarConst,
	})
	table.Add(&model.Variable{
		RefID: "unrelated", VarName: "unrelated", VarType: model.VarConst,
	})

	order, err := Sort(table)
	assert.NoError(t, err)

	assert.True(t, indexOf(order.Init, "initial_stock_aux") < indexOf(order.Init, "stock"))
	assert.Equal(t, -1, indexOf(order.Init, "initial_stock_const"))
	assert.Equal(t, -1, indexOf(order.Init, "unrelated"))
}
