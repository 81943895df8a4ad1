// Package edgegraph unrolls the schema graph into bounded-length layers
// between a source and a target selectivity type, draws random label paths
// through it, and reports the cut vertices of the unrolled structure.
package edgegraph

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/pkg/errors"

	"gmark/internal/schema"
	"gmark/internal/schemagraph"
	"gmark/internal/util"
)

// ErrNoPath reports that no path of an admissible length joins the endpoints.
var ErrNoPath = errors.New("no path within length bound")

// State is a schema-graph node placed at a given distance from the source.
type State struct {
	Layer int
	Node  *schemagraph.Node
}

func (s State) String() string {
	return fmt.Sprintf("%d:%s", s.Layer, s.Node)
}

type stateKey struct {
	layer int
	node  int
}

// EdgeGraph holds the unrolled layers for one (source, target) pair. It is
// read-only after New.
type EdgeGraph struct {
	graph     *schemagraph.Graph
	source    *schemagraph.Node
	target    *schemagraph.Node
	maxLength int

	// walks[r][i] counts the label sequences of exactly r steps leading from
	// node i to the target.
	walks [][]float64

	states  []State
	index   map[stateKey]int
	sinkIdx int
	tree    *SpanningTree
}

// New unrolls g from source towards target up to maxLength labels. Only
// states that lie on some admissible source-target path are kept.
func New(g *schemagraph.Graph, source, target *schemagraph.Node, maxLength int) (*EdgeGraph, error) {
	if source == nil || target == nil {
		return nil, errors.New("edge graph endpoints must be set")
	}
	if maxLength < 1 {
		return nil, errors.Errorf("edge graph length bound must be positive, got %d", maxLength)
	}
	eg := &EdgeGraph{
		graph:     g,
		source:    source,
		target:    target,
		maxLength: maxLength,
		index:     make(map[stateKey]int),
	}
	eg.countWalks()
	if len(eg.Lengths(1)) == 0 {
		return nil, errors.Wrapf(ErrNoPath, "%s to %s within %d", source, target, maxLength)
	}
	eg.unroll()
	return eg, nil
}

func (eg *EdgeGraph) countWalks() {
	capacity := eg.graph.Capacity()
	eg.walks = make([][]float64, eg.maxLength+1)
	eg.walks[0] = make([]float64, capacity)
	eg.walks[0][eg.target.Index] = 1
	nodes := eg.graph.Nodes()
	for r := 1; r <= eg.maxLength; r++ {
		row := make([]float64, capacity)
		prev := eg.walks[r-1]
		for _, n := range nodes {
			total := 0.0
			for _, e := range eg.graph.Out(n) {
				total += prev[e.To.Index]
			}
			row[n.Index] = total
		}
		eg.walks[r] = row
	}
}

// alive reports whether the target can still be reached from n placed at
// layer, with at least one label overall.
func (eg *EdgeGraph) alive(layer int, n *schemagraph.Node) bool {
	lo := 0
	if layer == 0 {
		lo = 1
	}
	for r := lo; r <= eg.maxLength-layer; r++ {
		if eg.walks[r][n.Index] > 0 {
			return true
		}
	}
	return false
}

func (eg *EdgeGraph) addState(layer int, n *schemagraph.Node) (int, bool) {
	key := stateKey{layer: layer, node: n.Index}
	if idx, ok := eg.index[key]; ok {
		return idx, false
	}
	idx := len(eg.states)
	eg.states = append(eg.states, State{Layer: layer, Node: n})
	eg.index[key] = idx
	return idx, true
}

func (eg *EdgeGraph) unroll() {
	var adj [][]int
	grow := func(idx int) {
		for len(adj) <= idx {
			adj = append(adj, nil)
		}
	}
	first, _ := eg.addState(0, eg.source)
	grow(first)
	frontier := []int{first}
	for layer := 0; layer < eg.maxLength && len(frontier) > 0; layer++ {
		var next []int
		for _, idx := range frontier {
			from := eg.states[idx]
			for _, e := range eg.graph.Out(from.Node) {
				if !eg.alive(layer+1, e.To) {
					continue
				}
				to, created := eg.addState(layer+1, e.To)
				grow(to)
				if created {
					next = append(next, to)
				}
				adj[idx] = append(adj[idx], to)
				adj[to] = append(adj[to], idx)
			}
		}
		frontier = next
	}
	eg.sinkIdx = len(eg.states)
	adj = append(adj, nil)
	for idx, s := range eg.states {
		if s.Layer > 0 && s.Node == eg.target {
			adj[idx] = append(adj[idx], eg.sinkIdx)
			adj[eg.sinkIdx] = append(adj[eg.sinkIdx], idx)
		}
	}
	eg.tree = NewSpanningTree(adj, first)
}

// Source returns the node every drawn path starts at.
func (eg *EdgeGraph) Source() *schemagraph.Node { return eg.source }

// Target returns the node every drawn path ends at.
func (eg *EdgeGraph) Target() *schemagraph.Node { return eg.target }

// MaxLength returns the label bound of the unrolling.
func (eg *EdgeGraph) MaxLength() int { return eg.maxLength }

// States returns the unrolled states, source first. The sink is not included.
func (eg *EdgeGraph) States() []State {
	return append([]State(nil), eg.states...)
}

// Lengths lists the path lengths in [minLength, MaxLength] for which at least
// one path exists.
func (eg *EdgeGraph) Lengths(minLength int) []int {
	var out []int
	for k := max(1, minLength); k <= eg.maxLength; k++ {
		if eg.walks[k][eg.source.Index] > 0 {
			out = append(out, k)
		}
	}
	return out
}

// CountPaths returns the number of distinct label paths of exactly k labels.
func (eg *EdgeGraph) CountPaths(k int) float64 {
	if k < 0 || k > eg.maxLength {
		return 0
	}
	return eg.walks[k][eg.source.Index]
}

// DrawPath draws a path of any admissible length.
func (eg *EdgeGraph) DrawPath(r *rand.Rand) (Path, error) {
	return eg.DrawPathMin(r, 1)
}

// DrawPathMin draws a path with at least minLength labels. The length is
// chosen uniformly among admissible lengths, then every path of that length
// is equally likely.
func (eg *EdgeGraph) DrawPathMin(r *rand.Rand, minLength int) (Path, error) {
	lengths := eg.Lengths(minLength)
	if len(lengths) == 0 {
		return Path{}, errors.Wrapf(ErrNoPath, "%s to %s with at least %d labels", eg.source, eg.target, minLength)
	}
	k := util.Pick(r, lengths)
	steps := make([]Step, 0, k)
	at := eg.source
	weights := make([]float64, 0, 8)
	for layer := 0; layer < k; layer++ {
		remaining := k - layer - 1
		out := eg.graph.Out(at)
		weights = weights[:0]
		total := 0.0
		for _, e := range out {
			w := eg.walks[remaining][e.To.Index]
			weights = append(weights, w)
			total += w
		}
		if total == 0 {
			panic(fmt.Sprintf("impossible state: %s at layer %d has %g completions of %d labels but no usable successor",
				at, layer, eg.walks[remaining+1][at.Index], remaining+1))
		}
		e := out[util.PickWeighted(r, weights)]
		steps = append(steps, Step{Layer: layer, From: e.From, To: e.To, Predicate: e.Predicate})
		at = e.To
	}
	return Path{Steps: steps}, nil
}

// IsCut reports whether the state is an articulation point of the unrolled
// graph. Unknown states are not cut vertices.
func (eg *EdgeGraph) IsCut(layer int, n *schemagraph.Node) bool {
	idx, ok := eg.index[stateKey{layer: layer, node: n.Index}]
	if !ok {
		return false
	}
	return eg.tree.Articulation[idx]
}

// CutVertices returns every state whose removal disconnects the unrolled graph.
func (eg *EdgeGraph) CutVertices() []State {
	var out []State
	for _, idx := range eg.tree.ArticulationPoints() {
		if idx == eg.sinkIdx {
			continue
		}
		out = append(out, eg.states[idx])
	}
	return out
}

// Step is one label of a drawn path.
type Step struct {
	Layer     int
	From      *schemagraph.Node
	To        *schemagraph.Node
	Predicate schema.Predicate
}

// Segment groups consecutive labels travelled in the same direction.
type Segment struct {
	From    *schemagraph.Node
	To      *schemagraph.Node
	Labels  []schema.Predicate
	Inverse bool
}

// Loop reports whether the segment returns to the selectivity type it left.
func (s Segment) Loop() bool {
	return s.From == s.To
}

// Path is a label sequence drawn from an edge graph.
type Path struct {
	Steps []Step
}

// Len returns the number of labels.
func (p Path) Len() int {
	return len(p.Steps)
}

// Labels returns the predicates in travel order.
func (p Path) Labels() []schema.Predicate {
	out := make([]schema.Predicate, len(p.Steps))
	for i, s := range p.Steps {
		out[i] = s.Predicate
	}
	return out
}

// States returns the Len()+1 nodes visited, source first.
func (p Path) States() []*schemagraph.Node {
	if len(p.Steps) == 0 {
		return nil
	}
	out := make([]*schemagraph.Node, 0, len(p.Steps)+1)
	out = append(out, p.Steps[0].From)
	for _, s := range p.Steps {
		out = append(out, s.To)
	}
	return out
}

// Source returns the first node of a non-empty path.
func (p Path) Source() *schemagraph.Node {
	return p.Steps[0].From
}

// Target returns the last node of a non-empty path.
func (p Path) Target() *schemagraph.Node {
	return p.Steps[len(p.Steps)-1].To
}

// Slice returns the labels in [i, j).
func (p Path) Slice(i, j int) Path {
	return Path{Steps: p.Steps[i:j]}
}

// Segments splits the path wherever the travel direction changes.
func (p Path) Segments() []Segment {
	var out []Segment
	for _, s := range p.Steps {
		if n := len(out); n > 0 && out[n-1].Inverse == s.Predicate.Inverse {
			out[n-1].Labels = append(out[n-1].Labels, s.Predicate)
			out[n-1].To = s.To
			continue
		}
		out = append(out, Segment{
			From:    s.From,
			To:      s.To,
			Labels:  []schema.Predicate{s.Predicate},
			Inverse: s.Predicate.Inverse,
		})
	}
	return out
}

func (p Path) String() string {
	parts := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		parts[i] = s.Predicate.String()
	}
	return strings.Join(parts, "◦")
}
