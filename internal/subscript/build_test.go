package subscript

import (
	"testing"

	"github.com/retroenv/retrogolib/assert"

	"github.com/dvensim/vensimc/internal/diag"
	"github.com/dvensim/vensimc/internal/iospec"
	"github.com/dvensim/vensimc/internal/parsetree"
)

func TestBuildRegistry_DimensionsAndMappings(t *testing.T) {
	mdl := &parsetree.Model{
		Dimensions: map[string][]string{
			"Region": {"East", "West"},
			"Zone":   {"North", "South"},
		},
		Mappings: []parsetree.DimensionMapping{
			{FromDim: "Region", ToDim: "Zone", Raw: nil},
		},
	}

	r, err := BuildRegistry(mdl, nil, nil)
	assert.NoError(t, err)

	region := r.Dimension("Region")
	assert.NotNil(t, region)
	assert.Equal(t, 2, region.Size())
	assert.Equal(t, "Region", region.Family)

	_, ok := r.Sub("East")
	assert.True(t, ok)
	assert.True(t, r.IsIndex("East"))
}

func TestBuildRegistry_FamilyOverride(t *testing.T) {
	mdl := &parsetree.Model{
		Dimensions: map[string][]string{
			"Region": {"East", "West"},
		},
	}
	spec := &iospec.Spec{DimensionFamilies: map[string]string{"Region": "Region"}}

	r, err := BuildRegistry(mdl, spec, nil)
	assert.NoError(t, err)
	assert.Equal(t, "Region", r.Dimension("Region").Family)
}

func TestBuildRegistry_UnknownFamilyOverride_RecordsDiagnostic(t *testing.T) {
	mdl := &parsetree.Model{
		Dimensions: map[string][]string{
			"Region": {"East", "West"},
		},
	}
	spec := &iospec.Spec{
		DimensionFamilies: map[string]string{"Zone": "Region"},
		IndexFamilies:     map[string]string{"East": "Nowhere"},
	}
	diags := diag.NewCollector()

	r, err := BuildRegistry(mdl, spec, diags)
	assert.NoError(t, err)
	assert.NotNil(t, r)
	assert.True(t, diags.HasDiagnostics())
	assert.Equal(t, 2, len(diags.Items()))
}
