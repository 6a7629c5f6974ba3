package model

// Index is a leaf subscript: one named element of exactly one family Dimension.
type Index struct {
	Name     string // canonical name
	Position int    // zero-based position within its family
	Family   string // name of the family dimension this index belongs to
}

// Dimension is a named, ordered set of indices, or (before expansion) of other
// dimension names.
type Dimension struct {
	Name string

	// Value holds index names after expansion (see Registry.Expand). Before
	// expansion it may also contain dimension names.
	Value []string

	// Family is the name of the maximal dimension containing this dimension's
	// indices. A dimension is its own family when it is maximal.
	Family string

	// Mappings maps another dimension's name to an ordered list of this
	// dimension's index names, one per index of that other dimension (see
	// Registry.InvertMapping).
	Mappings map[string][]string
}

// Size returns the number of indices in the dimension.
func (d *Dimension) Size() int {
	return len(d.Value)
}

// Subscript is the union type returned by lookups that may resolve to either a
// Dimension or an Index.
type Subscript struct {
	Dimension *Dimension
	Index     *Index
}

// IsDimension reports whether the resolved subscript is a dimension.
func (s Subscript) IsDimension() bool {
	return s.Dimension != nil
}

// IsIndex reports whether the resolved subscript is an index.
func (s Subscript) IsIndex() bool {
	return s.Index != nil
}

// Name returns the canonical name of whichever concrete subscript is set.
func (s Subscript) Name() string {
	if s.Dimension != nil {
		return s.Dimension.Name
	}
	if s.Index != nil {
		return s.Index.Name
	}
	return ""
}

// FamilyName returns the family name of whichever concrete subscript is set.
func (s Subscript) FamilyName() string {
	if s.Dimension != nil {
		return s.Dimension.Family
	}
	if s.Index != nil {
		return s.Index.Family
	}
	return ""
}
