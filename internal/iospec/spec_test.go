package iospec

import (
	"strings"
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

func TestDecode_FullDocument(t *testing.T) {
	doc := `{
		"inputVars": ["_price"],
		"outputVars": ["_sales", "_inventory"],
		"externalDatfiles": ["base.dat", {"hist_": "history.dat"}],
		"directData": {"Hist Sales": "sales.xlsx"},
		"dimensionFamilies": {"RegionSub": "Region"},
		"indexFamilies": {"East": "Region"},
		"specialSeparationDims": {"_sales": ["Region"]}
	}`

	spec, err := Decode(strings.NewReader(doc))
	assert.NoError(t, err)

	assert.Equal(t, 1, len(spec.InputVars))
	assert.Equal(t, "_price", spec.InputVars[0])
	assert.Equal(t, 2, len(spec.OutputVars))

	assert.Equal(t, 2, len(spec.ExternalDatfiles))
	assert.Equal(t, "base.dat", spec.ExternalDatfiles[0].Filename)
	assert.Equal(t, "", spec.ExternalDatfiles[0].Prefix)
	assert.Equal(t, "history.dat", spec.ExternalDatfiles[1].Filename)
	assert.Equal(t, "hist_", spec.ExternalDatfiles[1].Prefix)

	assert.Equal(t, "sales.xlsx", spec.DirectData["Hist Sales"])
	assert.Equal(t, "Region", spec.DimensionFamilies["RegionSub"])
	assert.Equal(t, "Region", spec.IndexFamilies["East"])
	assert.Equal(t, 1, len(spec.SeparationDimsFor("_sales")))
}

func TestDatFileEntry_UnmarshalJSON_RejectsMultiKeyObject(t *testing.T) {
	var e DatFileEntry
	err := e.UnmarshalJSON([]byte(`{"a": "x.dat", "b": "y.dat"}`))
	assert.Error(t, err)
}

func TestSpec_IsDirectDataTag(t *testing.T) {
	spec := &Spec{DirectData: map[string]string{"tag1": "file.xlsx"}}
	assert.True(t, spec.IsDirectDataTag("tag1"))
	assert.True(t, !spec.IsDirectDataTag("tag2"))
}

func TestSpec_IsDirectDataTag_NilSpec(t *testing.T) {
	var spec *Spec
	assert.True(t, !spec.IsDirectDataTag("anything"))
}

func TestSpec_SeparationDimsFor_Unconfigured(t *testing.T) {
	spec := &Spec{}
	assert.Equal(t, 0, len(spec.SeparationDimsFor("_unknown")))
}

func TestDecode_InvalidJSON(t *testing.T) {
	_, err := Decode(strings.NewReader(`{not valid`))
	assert.Error(t, err)
}
