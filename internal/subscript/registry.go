// Package subscript implements the subscript registry: it stores dimensions
// and indices declared by a model and resolves families and map inversions,
// the way the teacher's internal/mapper package tracks cartridge bank layout
// before the disassembler can resolve any address into a bank-relative one.
package subscript

import (
	"errors"
	"fmt"
	"sort"

	"github.com/dvensim/vensimc/internal/model"
)

var errAlreadyDeclared = errors.New("dimension already declared")

// Registry stores every dimension and index declared by a model and answers
// family/mapping/ordering queries about them.
type Registry struct {
	dims  map[string]*model.Dimension
	idxs  map[string]*model.Index
	order []string // dimension declaration order, for deterministic iteration

	dimFamilyOverride map[string]string
	idxFamilyOverride map[string]string

	// rawMappings[fromDim][toDim] is the declared-order mapping value before
	// inversion: position j (fromDim order) names the toDim index that the
	// j-th fromDim index maps to. An empty slice requests the identity
	// mapping.
	rawMappings map[string]map[string][]string
}

// New creates an empty subscript registry.
func New() *Registry {
	return &Registry{
		dims:        make(map[string]*model.Dimension),
		idxs:        make(map[string]*model.Index),
		rawMappings: make(map[string]map[string][]string),
	}
}

// SetFamilyOverrides installs the spec's dimensionFamilies/indexFamilies
// overrides. It must be called before ResolveFamilies.
func (r *Registry) SetFamilyOverrides(dimFamilies, idxFamilies map[string]string) {
	r.dimFamilyOverride = dimFamilies
	r.idxFamilyOverride = idxFamilies
}

// DeclareDimension registers a dimension with its raw value list, which may
// contain other dimension names; Expand() resolves those afterwards.
func (r *Registry) DeclareDimension(name string, rawValue []string) error {
	if _, exists := r.dims[name]; exists {
		return fmt.Errorf("declaring dimension %q: %w", name, errAlreadyDeclared)
	}
	value := make([]string, len(rawValue))
	copy(value, rawValue)
	r.dims[name] = &model.Dimension{
		Name:     name,
		Value:    value,
		Mappings: map[string][]string{},
	}
	r.order = append(r.order, name)
	return nil
}

// DeclareMapping records a raw (pre-inversion) mapping from fromDim to toDim.
// raw is in fromDim declaration order; an empty raw requests the identity
// mapping once sizes are known. Call InvertMapping after Expand to finalize.
func (r *Registry) DeclareMapping(fromDim, toDim string, raw []string) error {
	if _, ok := r.dims[fromDim]; !ok {
		return fmt.Errorf("declaring mapping: unknown dimension %q", fromDim)
	}
	if _, ok := r.rawMappings[fromDim]; !ok {
		r.rawMappings[fromDim] = make(map[string][]string)
	}
	value := make([]string, len(raw))
	copy(value, raw)
	r.rawMappings[fromDim][toDim] = value
	return nil
}

// Expand replaces dimension names appearing in each dimension's Value with
// that dimension's own Value, repeatedly, until only index names remain. It
// fails with model.ErrCyclicDimension if the dimension-name graph does not
// terminate within len(dims)+2 passes, which bounds any acyclic graph.
func (r *Registry) Expand() error {
	for pass := 0; pass <= len(r.dims)+1; pass++ {
		changed := false
		for _, name := range r.order {
			dim := r.dims[name]
			var next []string
			for _, v := range dim.Value {
				if sub, ok := r.dims[v]; ok && v != name {
					next = append(next, sub.Value...)
					changed = true
					continue
				}
				next = append(next, v)
			}
			dim.Value = next
		}
		if !changed {
			return nil
		}
	}
	return fmt.Errorf("expanding dimensions: %w", model.ErrCyclicDimension)
}

// ResolveFamilies assigns the Family field of every declared dimension. If a
// spec override names the dimension, that wins; otherwise the family is the
// dimension of greatest size among those containing the dimension's first
// index, ties broken by descending name (see SPEC_FULL.md §11(a)).
func (r *Registry) ResolveFamilies() error {
	for _, name := range r.order {
		dim := r.dims[name]
		if override, ok := r.dimFamilyOverride[name]; ok {
			dim.Family = override
			continue
		}
		if len(dim.Value) == 0 {
			dim.Family = name
			continue
		}
		first := dim.Value[0]

		var best *model.Dimension
		for _, candidateName := range r.order {
			candidate := r.dims[candidateName]
			if !containsString(candidate.Value, first) {
				continue
			}
			if best == nil {
				best = candidate
				continue
			}
			if candidate.Size() > best.Size() {
				best = candidate
				continue
			}
			if candidate.Size() == best.Size() && candidate.Name > best.Name {
				best = candidate
			}
		}
		if best == nil {
			dim.Family = name
			continue
		}
		dim.Family = best.Name
	}
	return nil
}

// InstantiateIndices creates one Index record per index name, owned by the
// family dimension that names it. Must be called after ResolveFamilies.
func (r *Registry) InstantiateIndices() {
	for _, name := range r.order {
		dim := r.dims[name]
		if dim.Family != name {
			continue // not a family dimension, its indices are owned elsewhere
		}
		for pos, idxName := range dim.Value {
			if _, exists := r.idxs[idxName]; exists {
				continue
			}
			r.idxs[idxName] = &model.Index{
				Name:     idxName,
				Position: pos,
				Family:   name,
			}
		}
	}
	for idxName, family := range r.idxFamilyOverride {
		if idx, ok := r.idxs[idxName]; ok {
			idx.Family = family
		}
	}
}

// InvertMapping finalizes every declared mapping into the storage order
// required by the invariant in spec.md §3: fromDim.Mappings[toDim][i] names
// the fromDim index mapping to the i-th toDim index.
func (r *Registry) InvertMapping() error {
	for _, fromName := range r.order {
		toMaps, ok := r.rawMappings[fromName]
		if !ok {
			continue
		}
		fromDim := r.dims[fromName]
		for toName, raw := range toMaps {
			toDim, ok := r.dims[toName]
			if !ok {
				return fmt.Errorf("inverting mapping %s->%s: %w", fromName, toName, model.ErrMapping)
			}

			inverted := make([]string, toDim.Size())
			if len(raw) == 0 {
				for i := range inverted {
					if i < len(fromDim.Value) {
						inverted[i] = fromDim.Value[i]
					}
				}
				fromDim.Mappings[toName] = inverted
				continue
			}

			for j, toIdxName := range raw {
				if toIdxName == "" {
					continue
				}
				pos := indexOfString(toDim.Value, toIdxName)
				if pos < 0 {
					return fmt.Errorf("mapping %s->%s references unknown index %q: %w",
						fromName, toName, toIdxName, model.ErrMapping)
				}
				if j >= len(fromDim.Value) {
					return fmt.Errorf("mapping %s->%s has more entries than %s has indices: %w",
						fromName, toName, fromName, model.ErrMapping)
				}
				inverted[pos] = fromDim.Value[j]
			}
			fromDim.Mappings[toName] = inverted
		}
	}
	return nil
}

// Sub resolves a name to whichever concrete subscript (dimension or index) it
// names.
func (r *Registry) Sub(name string) (model.Subscript, bool) {
	if dim, ok := r.dims[name]; ok {
		return model.Subscript{Dimension: dim}, true
	}
	if idx, ok := r.idxs[name]; ok {
		return model.Subscript{Index: idx}, true
	}
	return model.Subscript{}, false
}

// IsDimension reports whether name was declared as a dimension.
func (r *Registry) IsDimension(name string) bool {
	_, ok := r.dims[name]
	return ok
}

// IsIndex reports whether name was instantiated as an index.
func (r *Registry) IsIndex(name string) bool {
	_, ok := r.idxs[name]
	return ok
}

// IndexNamesForSubscript returns the ordered index names of the family
// dimension named familyName.
func (r *Registry) IndexNamesForSubscript(familyName string) ([]string, error) {
	dim, ok := r.dims[familyName]
	if !ok {
		return nil, fmt.Errorf("index names for %q: unknown dimension", familyName)
	}
	out := make([]string, len(dim.Value))
	copy(out, dim.Value)
	return out, nil
}

// SubscriptFamilies returns, in the same order as subscripts, the family name
// of each one.
func (r *Registry) SubscriptFamilies(subscripts []string) ([]string, error) {
	families := make([]string, len(subscripts))
	for i, s := range subscripts {
		sub, ok := r.Sub(s)
		if !ok {
			return nil, fmt.Errorf("subscript family for %q: unknown subscript", s)
		}
		families[i] = sub.FamilyName()
	}
	return families, nil
}

// NormalizeSubscripts returns subscripts sorted ascending by family name
// (normal order, spec.md §3). Idempotent: normalizing twice yields the same
// result.
func (r *Registry) NormalizeSubscripts(subscripts []string) ([]string, error) {
	families, err := r.SubscriptFamilies(subscripts)
	if err != nil {
		return nil, err
	}
	type pair struct {
		sub    string
		family string
	}
	pairs := make([]pair, len(subscripts))
	for i, s := range subscripts {
		pairs[i] = pair{sub: s, family: families[i]}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].family < pairs[j].family
	})
	out := make([]string, len(pairs))
	for i, p := range pairs {
		out[i] = p.sub
	}
	return out, nil
}

// Dimension returns the declared dimension by name, or nil.
func (r *Registry) Dimension(name string) *model.Dimension {
	return r.dims[name]
}

// DimensionNames returns every declared dimension name in declaration order.
func (r *Registry) DimensionNames() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func containsString(list []string, s string) bool {
	return indexOfString(list, s) >= 0
}

func indexOfString(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
