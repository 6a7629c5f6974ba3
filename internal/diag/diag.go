// Package diag collects non-fatal diagnostics produced while processing a
// model, so that as much of the listing output as possible is still produced
// (spec.md §7, error class (f)).
package diag

import "fmt"

// Severity classifies a diagnostic.
type Severity uint8

const (
	// Warning is a non-fatal issue; processing continues.
	Warning Severity = iota
	// Info records a non-error fact worth surfacing to the user.
	Info
)

// String returns the severity name used in rendered diagnostics.
func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	default:
		return "warning"
	}
}

// Diagnostic is one human-readable non-fatal finding, tagged with the
// offending canonical name and, when available, its original LHS.
type Diagnostic struct {
	Severity Severity
	Message  string
	VarName  string
	LHS      string
}

// String renders the diagnostic for the error stream or a listing file.
func (d Diagnostic) String() string {
	if d.LHS != "" {
		return fmt.Sprintf("%s: %s (var=%s, lhs=%q)", d.Severity, d.Message, d.VarName, d.LHS)
	}
	if d.VarName != "" {
		return fmt.Sprintf("%s: %s (var=%s)", d.Severity, d.Message, d.VarName)
	}
	return fmt.Sprintf("%s: %s", d.Severity, d.Message)
}

// Collector accumulates diagnostics across a pipeline run.
type Collector struct {
	items []Diagnostic
}

// NewCollector creates an empty diagnostic collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Add appends a diagnostic.
func (c *Collector) Add(d Diagnostic) {
	c.items = append(c.items, d)
}

// Warnf appends a warning-severity diagnostic about a variable.
func (c *Collector) Warnf(varName, format string, args ...any) {
	c.Add(Diagnostic{
		Severity: Warning,
		Message:  fmt.Sprintf(format, args...),
		VarName:  varName,
	})
}

// Items returns every diagnostic collected so far, in the order they were
// added.
func (c *Collector) Items() []Diagnostic {
	return c.items
}

// HasDiagnostics reports whether any diagnostic was collected.
func (c *Collector) HasDiagnostics() bool {
	return len(c.items) > 0
}
