package generator

import (
	"gmark/internal/edgegraph"
	"gmark/internal/query"
	"gmark/internal/query/cpq"
	"gmark/internal/query/rpq"
	"gmark/internal/schema"
	"gmark/internal/util"
)

// conjunctBuilder turns drawn paths sharing their endpoints into one
// expression of the workload language.
type conjunctBuilder interface {
	build(paths []edgegraph.Path) query.Expression
}

// parallel picks another predicate labelling the same schema-graph step.
func (g *Generator) parallel(step edgegraph.Step) (schema.Predicate, bool) {
	var others []schema.Predicate
	for _, p := range g.Graph.Parallel(step.From, step.To) {
		if !p.Same(step.Predicate) {
			others = append(others, p)
		}
	}
	if len(others) == 0 || !util.Chance(g.Rand, ParallelLabelProb) {
		return schema.Predicate{}, false
	}
	return util.Pick(g.Rand, others), true
}

type cpqBuilder struct {
	gen *Generator
}

func (b *cpqBuilder) build(paths []edgegraph.Path) query.Expression {
	alts := make([]cpq.Expr, len(paths))
	for i, p := range paths {
		alts[i] = b.path(p)
	}
	if len(alts) == 1 {
		return alts[0]
	}
	return cpq.Intersect{Elems: alts}
}

func (b *cpqBuilder) path(p edgegraph.Path) cpq.Expr {
	var elems []cpq.Expr
	at := 0
	for _, seg := range p.Segments() {
		var labels []cpq.Expr
		for _, step := range p.Steps[at : at+len(seg.Labels)] {
			l := cpq.Expr(cpq.Label{Predicate: step.Predicate})
			if other, ok := b.gen.parallel(step); ok {
				l = cpq.Intersect{Elems: []cpq.Expr{l, cpq.Label{Predicate: other}}}
			}
			labels = append(labels, l)
		}
		at += len(seg.Labels)
		var e cpq.Expr = cpq.Concat{Elems: labels}
		if len(labels) == 1 {
			e = labels[0]
		}
		if seg.Loop() && util.Chance(b.gen.Rand, IdentityLoopProb) {
			e = cpq.Intersect{Elems: []cpq.Expr{e, cpq.Identity{}}}
		}
		elems = append(elems, e)
	}
	if len(elems) == 1 {
		return elems[0]
	}
	return cpq.Concat{Elems: elems}
}

type rpqBuilder struct {
	gen *Generator
}

func (b *rpqBuilder) build(paths []edgegraph.Path) query.Expression {
	alts := make([]rpq.Expr, len(paths))
	for i, p := range paths {
		alts[i] = b.path(p)
	}
	if len(alts) == 1 {
		return alts[0]
	}
	return rpq.Disjunct{Elems: alts}
}

func (b *rpqBuilder) path(p edgegraph.Path) rpq.Expr {
	var elems []rpq.Expr
	at := 0
	for _, seg := range p.Segments() {
		var labels []rpq.Expr
		for _, step := range p.Steps[at : at+len(seg.Labels)] {
			l := rpq.Expr(rpq.Label{Predicate: step.Predicate})
			if other, ok := b.gen.parallel(step); ok {
				l = rpq.Disjunct{Elems: []rpq.Expr{l, rpq.Label{Predicate: other}}}
			}
			labels = append(labels, l)
		}
		at += len(seg.Labels)
		var e rpq.Expr = rpq.Concat{Elems: labels}
		if len(labels) == 1 {
			e = labels[0]
		}
		if seg.Loop() && util.Chance(b.gen.Rand, KleeneLoopProb) {
			e = rpq.Kleene{Inner: e}
		}
		elems = append(elems, e)
	}
	if len(elems) == 1 {
		return elems[0]
	}
	return rpq.Concat{Elems: elems}
}
