// Package depsort computes the evaluation order of the variable table's two
// dependency graphs (spec.md §4.5): the auxiliary/level step-time graph and
// the init-time graph. This mirrors the way the teacher's internal/mapper
// package walks bank offsets in dependency order before the program can be
// assembled into banks - both need a deterministic linear order derived from
// a graph that is only implicit in the data until someone walks it.
package depsort

import (
	"fmt"

	"github.com/retroenv/retrogolib/set"
	"golang.org/x/exp/slices"

	"github.com/dvensim/vensimc/internal/model"
	"github.com/dvensim/vensimc/internal/vartable"
)

// Order holds the four orderings codegen needs (spec.md §4.5).
type Order struct {
	// Init lists every level and its init-time transitive dependencies, in the
	// order initLevels must evaluate them. const and lookup records are left
	// out; initConstants/initLookups assign those.
	Init []string

	// Aux lists aux RefIDs in step-time evaluation order. const, data and
	// lookup records never appear here.
	Aux []string

	// Level lists level RefIDs in step-time evaluation order. Per spec.md
	// §4.5, level-to-level edges are inverted before sorting: a level's own
	// References never force another level to evaluate first, since every
	// level is integrated from its previous-step value.
	Level []string

	// Const lists const RefIDs in the order initConstants must assign them:
	// a const may itself reference another const in its formula (spec.md
	// §4.3's const rule is transitive), so assignment order matters even
	// though consts never depend on anything recomputed per step.
	Const []string
}

// Sort computes every ordering codegen needs for the records in table.
func Sort(table *vartable.Table) (Order, error) {
	aux, level := splitByType(table)

	auxOrder, err := topoSort(aux, table, false)
	if err != nil {
		return Order{}, fmt.Errorf("sorting aux graph: %w", err)
	}

	levelOrder, err := topoSort(level, table, true)
	if err != nil {
		return Order{}, fmt.Errorf("sorting level graph: %w", err)
	}

	initOrder, err := initSort(table)
	if err != nil {
		return Order{}, fmt.Errorf("sorting init graph: %w", err)
	}

	constOrder, err := constSort(table)
	if err != nil {
		return Order{}, fmt.Errorf("sorting const graph: %w", err)
	}

	return Order{Init: initOrder, Aux: auxOrder, Level: levelOrder, Const: constOrder}, nil
}

// constSort orders const records so that any const referencing another const
// in its formula is assigned after the const it depends on.
func constSort(table *vartable.Table) ([]string, error) {
	var consts []*model.Variable
	for _, rec := range table.All() {
		if rec.VarType == model.VarConst {
			consts = append(consts, rec)
		}
	}
	return topoSort(consts, table, false)
}

// splitByType partitions records into the step-time aux and level graphs
// (spec.md §4.5): only records actually recomputed every step participate.
// const/data/lookup/time records are initialized once and never appear here.
func splitByType(table *vartable.Table) (aux, level []*model.Variable) {
	for _, rec := range table.All() {
		switch rec.VarType {
		case model.VarLevel:
			level = append(level, rec)
		case model.VarAux:
			aux = append(aux, rec)
		}
	}
	return aux, level
}

// topoSort runs Kahn's algorithm over the References edges of recs.
// invertLevelEdges reverses an edge pointing at another level record instead
// of recording it normally, per the level-to-level inversion rule of
// spec.md §4.5: v no longer waits on r, r waits on v instead. A genuinely
// mutual pair (both v -> r and r -> v present) would turn that into a 2-node
// cycle, so the second edge of such a pair is skipped rather than added —
// scenario 5's p/q stocks must sort in either order, not fail to sort at all.
func topoSort(recs []*model.Variable, table *vartable.Table, invertLevelEdges bool) ([]string, error) {
	inGraph := set.New[string]()
	for _, rec := range recs {
		inGraph[rec.RefID] = struct{}{}
	}

	indegree := make(map[string]int, len(recs))
	dependents := make(map[string][]string, len(recs))
	levelEdges := set.New[string]() // "from|to" keys already recorded between two levels

	for _, rec := range recs {
		indegree[rec.RefID] = 0
	}

	for _, rec := range recs {
		for _, dep := range rec.References {
			if _, ok := inGraph[dep]; !ok {
				continue
			}

			from, to := dep, rec.RefID
			if invertLevelEdges {
				if target, ok := table.ByRefID(dep); ok && target.VarType == model.VarLevel {
					// Inverted: rec must be ordered before dep instead of
					// the reverse.
					from, to = rec.RefID, dep

					reverseKey := to + "|" + from
					if _, seen := levelEdges[reverseKey]; seen {
						continue
					}
					levelEdges[from+"|"+to] = struct{}{}
				}
			}

			dependents[from] = append(dependents[from], to)
			indegree[to]++
		}
	}

	var ready []string
	for id, deg := range indegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}
	slices.Sort(ready)

	var order []string
	for len(ready) > 0 {
		slices.Sort(ready)
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)

		for _, dependent := range dependents[next] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	if len(order) != len(recs) {
		return nil, model.ErrDependencyCycle
	}
	return order, nil
}

// initSort orders every level plus its transitive init-time dependency
// closure (spec.md §4.5): the set of records reachable by following
// InitReferences from a level's init references, together forming the
// dependency graph that initLevels() must evaluate before any level's
// initial value is assigned.
func initSort(table *vartable.Table) ([]string, error) {
	seeds := set.New[string]()
	for _, rec := range table.All() {
		if rec.VarType == model.VarLevel {
			seeds[rec.RefID] = struct{}{}
		}
	}

	closure := set.New[string]()
	var visit func(id string)
	visit = func(id string) {
		if _, ok := closure[id]; ok {
			return
		}
		closure[id] = struct{}{}
		rec, ok := table.ByRefID(id)
		if !ok {
			return
		}
		for _, dep := range rec.InitReferences {
			visit(dep)
		}
		for _, dep := range rec.References {
			visit(dep)
		}
	}
	for id := range seeds {
		rec, _ := table.ByRefID(id)
		if rec == nil {
			continue
		}
		closure[id] = struct{}{}
		for _, dep := range rec.InitReferences {
			visit(dep)
		}
	}

	var recs []*model.Variable
	for id := range closure {
		if rec, ok := table.ByRefID(id); ok {
			recs = append(recs, rec)
		}
	}
	slices.SortFunc(recs, func(a, b *model.Variable) bool { return a.RefID < b.RefID })

	sorted, err := topoSortInit(recs, seeds)
	if err != nil {
		return nil, err
	}

	// const and lookup records are assigned by initConstants/initLookups, not
	// initLevels; they only needed to participate above to order their
	// dependents correctly.
	var out []string
	for _, id := range sorted {
		rec, ok := table.ByRefID(id)
		if !ok {
			continue
		}
		if rec.VarType == model.VarConst || rec.VarType == model.VarLookup {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

// topoSortInit sorts recs by InitReferences (for seeds, the level's own
// init-time dependencies) or References (for everything else, which only
// ever runs once at init time regardless of type).
func topoSortInit(recs []*model.Variable, seeds set.Set[string]) ([]string, error) {
	inGraph := set.New[string]()
	for _, rec := range recs {
		inGraph[rec.RefID] = struct{}{}
	}

	indegree := make(map[string]int, len(recs))
	dependents := make(map[string][]string, len(recs))
	for _, rec := range recs {
		indegree[rec.RefID] = 0
	}

	edgesFor := func(rec *model.Variable) []string {
		if _, ok := seeds[rec.RefID]; ok {
			return rec.InitReferences
		}
		return rec.References
	}

	for _, rec := range recs {
		for _, dep := range edgesFor(rec) {
			if _, ok := inGraph[dep]; !ok {
				continue
			}
			dependents[dep] = append(dependents[dep], rec.RefID)
			indegree[rec.RefID]++
		}
	}

	var ready []string
	for id, deg := range indegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}

	var order []string
	for len(ready) > 0 {
		slices.Sort(ready)
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)

		for _, dependent := range dependents[next] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	if len(order) != len(recs) {
		return nil, model.ErrDependencyCycle
	}
	return order, nil
}
