package vartable

import (
	"testing"

	"github.com/retroenv/retrogolib/assert"

	"github.com/dvensim/vensimc/internal/model"
)

func TestTable_AddAndLookup(t *testing.T) {
	table := New()
	table.Add(&model.Variable{VarName: "_a", RefID: "_a"})
	table.Add(&model.Variable{VarName: "_a", RefID: "_a[_r1]"})
	table.Add(&model.Variable{VarName: "_b", RefID: "_b"})

	assert.Equal(t, 3, table.Len())
	assert.True(t, table.IsNonApplyToAll("_a"))
	assert.True(t, !table.IsNonApplyToAll("_b"))
	assert.Equal(t, 2, len(table.RecordsByName("_a")))

	assert.NoError(t, table.IndexByRefID())
	v, ok := table.ByRefID("_b")
	assert.True(t, ok)
	assert.Equal(t, "_b", v.VarName)

	_, ok = table.ByRefID("_missing")
	assert.True(t, !ok)
}

func TestTable_IndexByRefID_DuplicateError(t *testing.T) {
	table := New()
	table.Add(&model.Variable{VarName: "_a", RefID: "_a"})
	table.Add(&model.Variable{VarName: "_b", RefID: "_a"})

	err := table.IndexByRefID()
	assert.ErrorContains(t, err, "duplicate refID")
}

func TestTable_AddSynthesized_DuplicateError(t *testing.T) {
	table := New()
	assert.NoError(t, table.AddSynthesized(&model.Variable{VarName: "_a", RefID: "_a"}))
	err := table.AddSynthesized(&model.Variable{VarName: "_a2", RefID: "_a"})
	assert.ErrorContains(t, err, "already exists")
}

func TestTable_Names_Sorted(t *testing.T) {
	table := New()
	table.Add(&model.Variable{VarName: "_z"})
	table.Add(&model.Variable{VarName: "_a"})
	assert.Equal(t, []string{"_a", "_z"}, table.Names())
}

func TestTable_All_PreservesInsertionOrder(t *testing.T) {
	table := New()
	table.Add(&model.Variable{VarName: "_first"})
	table.Add(&model.Variable{VarName: "_second"})
	all := table.All()
	assert.Equal(t, "_first", all[0].VarName)
	assert.Equal(t, "_second", all[1].VarName)
}
