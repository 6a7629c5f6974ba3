package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"
)

const minimalModelDoc = `{
	"equations": [
		{"lhsText": "x", "lhsName": "x", "rhs": {"type": "number", "value": 1}},
		{"lhsText": "y", "lhsName": "y", "rhs": {"type": "binary", "op": "+",
			"left": {"type": "varRef", "name": "x"},
			"right": {"type": "number", "value": 2}}}
	],
	"initialTime": 0, "finalTime": 10, "timeStep": 1, "savePer": 1
}`

func TestNew(t *testing.T) {
	logger := log.NewTestLogger(t)
	p := New(logger)
	assert.NotNil(t, p)
	assert.NotNil(t, p.logger)
}

func TestExecute_MinimalModel(t *testing.T) {
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "model.json")
	assert.NoError(t, os.WriteFile(modelPath, []byte(minimalModelDoc), 0o644))

	logger := log.NewTestLogger(t)
	p := New(logger)

	result, err := p.Execute(context.Background(), Options{
		ModelPath: modelPath,
		ModelName: "testmodel",
		OutputDir: dir,
	})
	assert.NoError(t, err)
	assert.Equal(t, 0, len(result.Diagnostics))

	var foundC, foundRuntime, foundVarsJSON bool
	for _, f := range result.WrittenFiles {
		switch filepath.Base(f) {
		case "testmodel.c":
			foundC = true
		case "vensim_runtime.h":
			foundRuntime = true
		case "testmodel_vars.json":
			foundVarsJSON = true
		}
	}
	assert.True(t, foundC)
	assert.True(t, foundRuntime)
	assert.True(t, foundVarsJSON)

	generated, err := os.ReadFile(filepath.Join(dir, "testmodel.c"))
	assert.NoError(t, err)
	assert.True(t, strings.Contains(string(generated), "static double _y;"))
}

func TestExecute_SpecWithUnknownOutputVarDiagnoses(t *testing.T) {
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "model.json")
	assert.NoError(t, os.WriteFile(modelPath, []byte(minimalModelDoc), 0o644))

	specPath := filepath.Join(dir, "spec.json")
	assert.NoError(t, os.WriteFile(specPath, []byte(`{"outputVars": ["does_not_exist"]}`), 0o644))

	logger := log.NewTestLogger(t)
	p := New(logger)

	result, err := p.Execute(context.Background(), Options{
		ModelPath: modelPath,
		SpecPath:  specPath,
		ModelName: "testmodel",
		OutputDir: dir,
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, len(result.Diagnostics))
}

func TestExecute_MissingModelFileFails(t *testing.T) {
	logger := log.NewTestLogger(t)
	p := New(logger)
	_, err := p.Execute(context.Background(), Options{ModelPath: "/no/such/file.json", OutputDir: t.TempDir()})
	assert.Error(t, err)
}
