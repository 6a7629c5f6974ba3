// Package vartable holds the variable table: the read-only-after-analysis
// collection of every Variable record, indexed for the lookups the analyzer,
// sorter and emitter need. Kept as a concrete type rather than routed through
// a generic keyed manager (as the teacher's internal/symbols.Manager[T] does
// for constants/variables) because records are grouped by VarName with a
// variable-length fan-out per group, not addressed 1:1 by a scalar key.
package vartable

import (
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/dvensim/vensimc/internal/model"
)

// Table is the variable table described in spec.md §3 (Lifecycle).
type Table struct {
	byName  map[string][]*model.Variable
	byRefID map[string]*model.Variable
	order   []*model.Variable // insertion order, for deterministic listings
}

// New creates an empty variable table.
func New() *Table {
	return &Table{
		byName:  make(map[string][]*model.Variable),
		byRefID: make(map[string]*model.Variable),
	}
}

// Add appends a record to the table. The table is populated once and then
// only annotated in place; after analysis begins, Add is only reached through
// AddSynthesized.
func (t *Table) Add(v *model.Variable) {
	t.byName[v.VarName] = append(t.byName[v.VarName], v)
	t.order = append(t.order, v)
}

// AddSynthesized inserts a record created during analysis (e.g. a synthesized
// WITH LOOKUP data equation) and immediately indexes it by RefID.
func (t *Table) AddSynthesized(v *model.Variable) error {
	if _, exists := t.byRefID[v.RefID]; exists {
		return fmt.Errorf("variable table: refID %q already exists", v.RefID)
	}
	t.Add(v)
	t.byRefID[v.RefID] = v
	return nil
}

// RecordsByName returns every record sharing varName, in the order they were
// added.
func (t *Table) RecordsByName(varName string) []*model.Variable {
	return t.byName[varName]
}

// IsNonApplyToAll reports whether varName has more than one record.
func (t *Table) IsNonApplyToAll(varName string) bool {
	return len(t.byName[varName]) > 1
}

// IndexByRefID must be called once, after RefIDs are assigned, to populate
// RefID-keyed lookups.
func (t *Table) IndexByRefID() error {
	t.byRefID = make(map[string]*model.Variable, len(t.order))
	for _, v := range t.order {
		if _, exists := t.byRefID[v.RefID]; exists {
			return fmt.Errorf("variable table: duplicate refID %q", v.RefID)
		}
		t.byRefID[v.RefID] = v
	}
	return nil
}

// ByRefID returns the record with the given RefID, if any.
func (t *Table) ByRefID(refID string) (*model.Variable, bool) {
	v, ok := t.byRefID[refID]
	return v, ok
}

// All returns every record in insertion order.
func (t *Table) All() []*model.Variable {
	return t.order
}

// Names returns every distinct VarName in the table, sorted, for
// deterministic iteration during analysis passes.
func (t *Table) Names() []string {
	names := maps.Keys(t.byName)
	slices.Sort(names)
	return names
}

// Len returns the number of records in the table.
func (t *Table) Len() int {
	return len(t.order)
}
