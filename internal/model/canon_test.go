package model

import (
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

func TestCanonicalName(t *testing.T) {
	cases := map[string]string{
		"Time":           "_time",
		"Birth Rate":     "_birth_rate",
		"already_clean":  "_already_clean",
		"Multiple   Gaps": "_multiple_gaps",
		"Trailing!!":     "_trailing",
		"123abc":         "_123abc",
	}
	for in, want := range cases {
		assert.Equal(t, want, CanonicalName(in))
	}
}

func TestCanonicalName_Idempotent(t *testing.T) {
	once := CanonicalName("Net Flow Rate")
	twice := CanonicalName(once)
	assert.Equal(t, once, twice)
}
