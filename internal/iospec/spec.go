// Package iospec decodes the I/O specification (spec.md §6, §4.7): the JSON
// document naming a model's inputs, outputs, external data files, and
// subscript overrides. Checking those names against the model happens in
// internal/analyzer and internal/subscript, not here.
package iospec

import (
	"encoding/json"
	"fmt"
	"io"
)

// DatFileEntry is one entry of externalDatfiles: either a bare filename, or an
// object whose single key is a name prefix applied to every series the file
// contains.
type DatFileEntry struct {
	Prefix   string // empty when this entry is a bare filename
	Filename string
}

// UnmarshalJSON accepts either a JSON string (bare filename) or a
// single-key JSON object ({"prefix": "filename"}).
func (e *DatFileEntry) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		e.Filename = asString
		e.Prefix = ""
		return nil
	}

	var asObject map[string]string
	if err := json.Unmarshal(data, &asObject); err != nil {
		return fmt.Errorf("decoding externalDatfiles entry: %w", err)
	}
	if len(asObject) != 1 {
		return fmt.Errorf("externalDatfiles object entry must have exactly one key, got %d", len(asObject))
	}
	for prefix, filename := range asObject {
		e.Prefix = prefix
		e.Filename = filename
	}
	return nil
}

// Spec is the decoded I/O specification document.
type Spec struct {
	InputVars  []string `json:"inputVars"`
	OutputVars []string `json:"outputVars"`

	ExternalDatfiles []DatFileEntry `json:"externalDatfiles"`

	// DirectData maps a tag appearing in the model to a spreadsheet filename.
	DirectData map[string]string `json:"directData"`

	DimensionFamilies map[string]string `json:"dimensionFamilies"`
	IndexFamilies     map[string]string `json:"indexFamilies"`

	// SpecialSeparationDims maps a variable canonical name to the dimension
	// names that must be separated for it.
	SpecialSeparationDims map[string][]string `json:"specialSeparationDims"`
}

// Decode reads and parses an I/O spec document.
func Decode(r io.Reader) (*Spec, error) {
	var spec Spec
	dec := json.NewDecoder(r)
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("decoding spec: %w", err)
	}
	return &spec, nil
}

// IsDirectDataTag reports whether tag was declared in directData.
func (s *Spec) IsDirectDataTag(tag string) bool {
	if s == nil {
		return false
	}
	_, ok := s.DirectData[tag]
	return ok
}

// SeparationDimsFor returns the dimensions that must be separated for the
// given canonical variable name, or nil if none are configured.
func (s *Spec) SeparationDimsFor(varName string) []string {
	if s == nil {
		return nil
	}
	return s.SpecialSeparationDims[varName]
}
