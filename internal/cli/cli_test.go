package cli

import (
	"os"
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

// withArgs runs fn with os.Args set to args. ParseFlags builds its own
// flag.FlagSet per call, so no package-level flag state needs resetting.
func withArgs(t *testing.T, args []string, fn func()) {
	t.Helper()
	oldArgs := os.Args
	t.Cleanup(func() { os.Args = oldArgs })
	os.Args = args
	fn()
}

func TestParseFlags_RequiresModel(t *testing.T) {
	withArgs(t, []string{"vensimc"}, func() {
		_, err := ParseFlags()
		assert.Error(t, err)
		_, ok := IsUsageError(err)
		assert.True(t, ok)
	})
}

func TestParseFlags_MinimalArgs(t *testing.T) {
	withArgs(t, []string{"vensimc", "-model", "model.json"}, func() {
		settings, err := ParseFlags()
		assert.NoError(t, err)
		assert.Equal(t, "model.json", settings.Options.ModelPath)
		assert.Equal(t, "", settings.Options.SpecPath)
		assert.True(t, !settings.Debug)
		assert.True(t, !settings.Quiet)
	})
}

func TestParseFlags_AllFlags(t *testing.T) {
	withArgs(t, []string{
		"vensimc", "-model", "model.json", "-spec", "spec.json", "-data", "data.json",
		"-name", "mymodel", "-o", "out", "-debug", "-q",
	}, func() {
		settings, err := ParseFlags()
		assert.NoError(t, err)
		assert.Equal(t, "model.json", settings.Options.ModelPath)
		assert.Equal(t, "spec.json", settings.Options.SpecPath)
		assert.Equal(t, "data.json", settings.Options.DataPath)
		assert.Equal(t, "mymodel", settings.Options.ModelName)
		assert.Equal(t, "out", settings.Options.OutputDir)
		assert.True(t, settings.Debug)
		assert.True(t, settings.Quiet)
	})
}

func TestUsageError_ShowUsageDoesNotPanic(t *testing.T) {
	withArgs(t, []string{"vensimc"}, func() {
		_, err := ParseFlags()
		usageErr, ok := IsUsageError(err)
		assert.True(t, ok)
		usageErr.ShowUsage()
	})
}
