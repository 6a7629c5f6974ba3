package diag

import (
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

func TestCollector_AddAndItems(t *testing.T) {
	c := NewCollector()
	assert.True(t, !c.HasDiagnostics())

	c.Add(Diagnostic{Severity: Warning, Message: "dangling reference", VarName: "_sales"})
	c.Warnf("_inventory", "missing %s", "initial value")

	assert.True(t, c.HasDiagnostics())
	assert.Equal(t, 2, len(c.Items()))
	assert.Equal(t, "missing initial value", c.Items()[1].Message)
}

func TestDiagnostic_String_Variants(t *testing.T) {
	plain := Diagnostic{Severity: Info, Message: "note"}
	assert.Equal(t, "info: note", plain.String())

	withVar := Diagnostic{Severity: Warning, Message: "unresolved", VarName: "_sales"}
	assert.Equal(t, "warning: unresolved (var=_sales)", withVar.String())

	withLHS := Diagnostic{Severity: Warning, Message: "unresolved", VarName: "_sales", LHS: "Sales[East]"}
	assert.Equal(t, `warning: unresolved (var=_sales, lhs="Sales[East]")`, withLHS.String())
}

func TestSeverity_String(t *testing.T) {
	assert.Equal(t, "warning", Warning.String())
	assert.Equal(t, "info", Info.String())
}
