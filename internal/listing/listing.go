// Package listing renders the variable- and subscript-table listings
// (spec.md §6) in the three formats the I/O spec's consumers expect: a plain
// text table for a human reading the terminal, and YAML/JSON for tools
// further down the pipeline. This mirrors the way the teacher's
// internal/writer package renders the same assembled program through
// several backend-specific text shapes.
package listing

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dvensim/vensimc/internal/subscript"
	"github.com/dvensim/vensimc/internal/vartable"
)

// VarEntry is one row of the <model>_vars listing.
type VarEntry struct {
	CanonicalName  string   `yaml:"canonicalName" json:"canonicalName"`
	RefID          string   `yaml:"refId" json:"refId"`
	Subscripts     []string `yaml:"subscripts,omitempty" json:"subscripts,omitempty"`
	Families       []string `yaml:"families,omitempty" json:"families,omitempty"`
	Type           string   `yaml:"type" json:"type"`
	References     []string `yaml:"references,omitempty" json:"references,omitempty"`
	InitReferences []string `yaml:"initReferences,omitempty" json:"initReferences,omitempty"`
	SeparationDims []string `yaml:"separationDims,omitempty" json:"separationDims,omitempty"`
	LHS            string   `yaml:"lhs" json:"lhs"`
	Formula        string   `yaml:"formula" json:"formula"`
}

// SubEntry is one row of the <model>_subs listing.
type SubEntry struct {
	Name     string              `yaml:"name" json:"name"`
	Family   string              `yaml:"family" json:"family"`
	Indices  []string            `yaml:"indices" json:"indices"`
	Mappings map[string][]string `yaml:"mappings,omitempty" json:"mappings,omitempty"`
}

// BuildVars produces one VarEntry per record in table, in the table's
// deterministic name-sorted iteration order.
func BuildVars(table *vartable.Table, registry *subscript.Registry) []VarEntry {
	var entries []VarEntry
	for _, name := range table.Names() {
		for _, rec := range table.RecordsByName(name) {
			families, _ := registry.SubscriptFamilies(rec.Subscripts)
			entries = append(entries, VarEntry{
				CanonicalName:  rec.VarName,
				RefID:          rec.RefID,
				Subscripts:     rec.Subscripts,
				Families:       families,
				Type:           rec.VarType.String(),
				References:     rec.References,
				InitReferences: rec.InitReferences,
				SeparationDims: rec.SeparationDims,
				LHS:            rec.ModelLHS,
				Formula:        rec.ModelFormula,
			})
		}
	}
	return entries
}

// BuildSubs produces one SubEntry per declared dimension, in declaration
// order.
func BuildSubs(registry *subscript.Registry) []SubEntry {
	var entries []SubEntry
	for _, name := range registry.DimensionNames() {
		dim := registry.Dimension(name)
		if dim == nil {
			continue
		}
		entries = append(entries, SubEntry{
			Name:     dim.Name,
			Family:   dim.Family,
			Indices:  dim.Value,
			Mappings: dim.Mappings,
		})
	}
	return entries
}

// WriteVarsText renders the variable listing as an aligned text table.
func WriteVarsText(w io.Writer, entries []VarEntry) error {
	for _, e := range entries {
		fmt.Fprintf(w, "%-30s refId=%-30s type=%-7s subs=%-20s refs=%s\n",
			e.CanonicalName, e.RefID, e.Type,
			strings.Join(e.Subscripts, ","), strings.Join(e.References, ","))
	}
	return nil
}

// WriteSubsText renders the subscript listing as an aligned text table.
func WriteSubsText(w io.Writer, entries []SubEntry) error {
	for _, e := range entries {
		fmt.Fprintf(w, "%-20s family=%-20s indices=%s\n", e.Name, e.Family, strings.Join(e.Indices, ","))
		var toNames []string
		for to := range e.Mappings {
			toNames = append(toNames, to)
		}
		sort.Strings(toNames)
		for _, to := range toNames {
			fmt.Fprintf(w, "    -> %s: %s\n", to, strings.Join(e.Mappings[to], ","))
		}
	}
	return nil
}

// WriteYAML marshals any listing (vars or subs) as YAML.
func WriteYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	defer func() { _ = enc.Close() }()
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding YAML listing: %w", err)
	}
	return nil
}

// WriteJSON marshals any listing (vars or subs) as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding JSON listing: %w", err)
	}
	return nil
}
