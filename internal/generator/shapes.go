package generator

import (
	"gmark/internal/edgegraph"
	"gmark/internal/query"
	"gmark/internal/schema"
	"gmark/internal/schemagraph"
	"gmark/internal/util"
)

type draftConjunct struct {
	source query.Variable
	target query.Variable
	paths  []edgegraph.Path
}

// draft is a query body before materialization.
type draft struct {
	conjuncts []draftConjunct
	variables int
	// anchors are the variables projected when the arity is two.
	anchors []query.Variable

	spine      *edgegraph.EdgeGraph
	spinePath  edgegraph.Path
	boundaries []int
}

func (d *draft) add(source, target query.Variable, paths []edgegraph.Path) {
	d.conjuncts = append(d.conjuncts, draftConjunct{source: source, target: target, paths: paths})
	d.variables = max(d.variables, int(source)+1, int(target)+1)
}

// boundaryNode returns the selectivity type bound to spine variable j.
func (d *draft) boundaryNode(j int) *schemagraph.Node {
	return d.spinePath.States()[d.boundaries[j]]
}

func (g *Generator) pickPair(c schema.SelectivityClass) (*schemagraph.Node, *schemagraph.Node, error) {
	starts := g.starts[c]
	if len(starts) == 0 {
		return nil, nil, missf("selectivity_unreachable")
	}
	s := util.Pick(g.Rand, starts)
	return s, util.Pick(g.Rand, g.targets[c][s]), nil
}

func (g *Generator) minLength() int {
	return max(1, g.Workload.Length.Min)
}

// split draws n part lengths in [minLength, Length.Max] summing to total.
func (g *Generator) split(total, n int) []int {
	lo, hi := g.minLength(), g.Workload.Length.Max
	parts := make([]int, n)
	for i := range parts {
		parts[i] = lo
	}
	open := make([]int, 0, n)
	for rest := total - n*lo; rest > 0; rest-- {
		open = open[:0]
		for i, p := range parts {
			if p < hi {
				open = append(open, i)
			}
		}
		parts[util.Pick(g.Rand, open)]++
	}
	return parts
}

// alternatives adds up to Disjuncts.Max-1 further paths joining the same
// selectivity types as p. Duplicates are skipped.
func (g *Generator) alternatives(p edgegraph.Path) []edgegraph.Path {
	out := []edgegraph.Path{p}
	want := util.UniformInt(g.Rand, g.Workload.Disjuncts.Min, g.Workload.Disjuncts.Max)
	if want <= 1 {
		return out
	}
	eg, err := g.edgeGraph(p.Source(), p.Target(), g.Workload.Length.Max)
	if err != nil {
		return out
	}
	seen := map[string]bool{p.String(): true}
	for tries := 0; tries < want-1; tries++ {
		alt, err := eg.DrawPathMin(g.Rand, g.minLength())
		if err != nil {
			break
		}
		if seen[alt.String()] {
			continue
		}
		seen[alt.String()] = true
		out = append(out, alt)
	}
	return out
}

// chain draws one path and cuts it into n consecutive conjuncts.
func (g *Generator) chain(n int, c schema.SelectivityClass) (*draft, error) {
	s, t, err := g.pickPair(c)
	if err != nil {
		return nil, err
	}
	eg, err := g.edgeGraph(s, t, n*g.Workload.Length.Max)
	if err != nil {
		return nil, missf("chain_no_path")
	}
	path, err := eg.DrawPathMin(g.Rand, n*g.minLength())
	if err != nil {
		return nil, missf("chain_too_short")
	}
	d := &draft{spine: eg, spinePath: path, boundaries: []int{0}}
	pos := 0
	for i, k := range g.split(path.Len(), n) {
		chunk := path.Slice(pos, pos+k)
		pos += k
		d.boundaries = append(d.boundaries, pos)
		d.add(query.Variable(i), query.Variable(i+1), g.alternatives(chunk))
	}
	d.anchors = []query.Variable{0, query.Variable(n)}
	return d, nil
}

// star draws n independent paths leaving one start node.
func (g *Generator) star(n int, c schema.SelectivityClass) (*draft, error) {
	starts := g.starts[c]
	if len(starts) == 0 {
		return nil, missf("selectivity_unreachable")
	}
	s := util.Pick(g.Rand, starts)
	targets := g.targets[c][s]
	d := &draft{}
	for i := 0; i < n; i++ {
		var (
			leaf edgegraph.Path
			ok   bool
		)
		for try := 0; try < BranchTargetTries && !ok; try++ {
			eg, err := g.edgeGraph(s, util.Pick(g.Rand, targets), g.Workload.Length.Max)
			if err != nil {
				continue
			}
			if leaf, err = eg.DrawPathMin(g.Rand, g.minLength()); err == nil {
				ok = true
			}
		}
		if !ok {
			return nil, missf("star_leaf")
		}
		d.add(0, query.Variable(i+1), g.alternatives(leaf))
	}
	d.anchors = []query.Variable{0, 1}
	return d, nil
}

// cycle closes a chain of n-1 conjuncts with a conjunct from an inner chain
// variable back to its end. Variables that are cut vertices of the chain's
// edge graph are avoided as branch points when possible.
func (g *Generator) cycle(n int, c schema.SelectivityClass) (*draft, error) {
	d, err := g.chain(n-1, c)
	if err != nil {
		return nil, err
	}
	last := n - 1
	var open []int
	for j := 0; j < last; j++ {
		if !d.spine.IsCut(d.boundaries[j], d.boundaryNode(j)) {
			open = append(open, j)
		}
	}
	j := 0
	if len(open) > 0 {
		j = util.Pick(g.Rand, open)
	}
	eg, err := g.edgeGraph(d.boundaryNode(j), d.boundaryNode(last), g.Workload.Length.Max)
	if err != nil {
		return nil, missf("cycle_return")
	}
	back, err := eg.DrawPathMin(g.Rand, g.minLength())
	if err != nil {
		return nil, missf("cycle_return")
	}
	d.add(query.Variable(j), query.Variable(last), g.alternatives(back))
	d.anchors = []query.Variable{0, query.Variable(last)}
	return d, nil
}

// starChain grows free branches off the variables of a shorter chain.
func (g *Generator) starChain(n int, c schema.SelectivityClass) (*draft, error) {
	if n == 1 {
		return g.chain(1, c)
	}
	k := util.UniformInt(g.Rand, 1, n-1)
	d, err := g.chain(k, c)
	if err != nil {
		return nil, err
	}
	for i := 0; i < n-k; i++ {
		j := g.Rand.Intn(k + 1)
		leaf, err := g.branch(d.boundaryNode(j), c)
		if err != nil {
			return nil, err
		}
		d.add(query.Variable(j), query.Variable(d.variables), g.alternatives(leaf))
	}
	d.anchors = []query.Variable{0, query.Variable(k)}
	return d, nil
}

// branch draws a path of conjunct length from a node to some target,
// preferring targets of class c.
func (g *Generator) branch(from *schemagraph.Node, c schema.SelectivityClass) (edgegraph.Path, error) {
	preferred := g.Graph.NodesWithClass(c)
	rest := g.Graph.Nodes()
	g.Rand.Shuffle(len(preferred), func(i, j int) { preferred[i], preferred[j] = preferred[j], preferred[i] })
	g.Rand.Shuffle(len(rest), func(i, j int) { rest[i], rest[j] = rest[j], rest[i] })
	tries := 0
	for _, t := range append(preferred, rest...) {
		if tries == BranchTargetTries {
			break
		}
		tries++
		eg, err := g.edgeGraph(from, t, g.Workload.Length.Max)
		if err != nil {
			continue
		}
		if p, err := eg.DrawPathMin(g.Rand, g.minLength()); err == nil {
			return p, nil
		}
	}
	return edgegraph.Path{}, missf("branch")
}

// project picks the head variables. Arity one keeps the first variable and
// arity two keeps the shape's anchors; larger arities drop random variables.
func (g *Generator) project(d *draft) []query.Variable {
	w := g.Workload
	available := d.variables
	arity := util.UniformInt(g.Rand, min(w.Arity.Min, available), min(w.Arity.Max, available))
	switch arity {
	case 0:
		return nil
	case 1:
		return []query.Variable{0}
	case 2:
		return append([]query.Variable(nil), d.anchors...)
	}
	vars := make([]query.Variable, available)
	for i := range vars {
		vars[i] = query.Variable(i)
	}
	for len(vars) > arity {
		drop := g.Rand.Intn(len(vars))
		vars = append(vars[:drop], vars[drop+1:]...)
	}
	return vars
}
