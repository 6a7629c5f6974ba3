package listing

import (
	"strings"
	"testing"

	"github.com/retroenv/retrogolib/assert"

	"github.com/dvensim/vensimc/internal/model"
	"github.com/dvensim/vensimc/internal/subscript"
	"github.com/dvensim/vensimc/internal/vartable"
)

func buildTable(t *testing.T) (*vartable.Table, *subscript.Registry) {
	t.Helper()
	table := vartable.New()
	table.Add(&model.Variable{
		VarName: "x", RefID: "x", ModelLHS: "x", ModelFormula: "1", VarType: model.VarConst,
	})
	assert.NoError(t, table.IndexByRefID())

	registry := subscript.New()
	assert.NoError(t, registry.DeclareDimension("Region", []string{"East", "West"}))
	assert.NoError(t, registry.Expand())
	assert.NoError(t, registry.ResolveFamilies())
	registry.InstantiateIndices()
	assert.NoError(t, registry.InvertMapping())

	return table, registry
}

func TestBuildVars(t *testing.T) {
	table, registry := buildTable(t)
	entries := BuildVars(table, registry)
	assert.Equal(t, 1, len(entries))
	assert.Equal(t, "x", entries[0].CanonicalName)
	assert.Equal(t, "const", entries[0].Type)
}

func TestBuildSubs(t *testing.T) {
	_, registry := buildTable(t)
	entries := BuildSubs(registry)
	assert.Equal(t, 1, len(entries))
	assert.Equal(t, "Region", entries[0].Name)
	assert.Equal(t, 2, len(entries[0].Indices))
}

func TestWriteVarsText(t *testing.T) {
	table, registry := buildTable(t)
	var b strings.Builder
	assert.NoError(t, WriteVarsText(&b, BuildVars(table, registry)))
	assert.True(t, strings.Contains(b.String(), "refId=x"))
}

func TestWriteYAMLAndJSON(t *testing.T) {
	table, registry := buildTable(t)
	entries := BuildVars(table, registry)

	var yamlOut strings.Builder
	assert.NoError(t, WriteYAML(&yamlOut, entries))
	assert.True(t, strings.Contains(yamlOut.String(), "canonicalName: x"))

	var jsonOut strings.Builder
	assert.NoError(t, WriteJSON(&jsonOut, entries))
	assert.True(t, strings.Contains(jsonOut.String(), "\"canonicalName\": \"x\""))
}
