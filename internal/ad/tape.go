// Package ad provides the differentiation primitives used by the swap engine:
// a scalar reverse-mode tape and helpers over gonum dual numbers for forward mode.
package ad

import (
	"fmt"
	"math"
)

// Var is a handle to a value recorded on a Tape
type Var struct {
	index int
	value float64
}

// Value returns the primal value of v
func (v Var) Value() float64 {
	return v.value
}

// node stores the local partial derivatives of one operation with respect to its parents
type node struct {
	parents  [2]int
	partials [2]float64
	arity    int
}

// Tape records scalar operations in evaluation order so they can be replayed
// backwards. A Tape belongs to a single computation and is not safe for
// concurrent use.
type Tape struct {
	nodes []node
}

// NewTape creates an empty tape with room for n nodes
func NewTape(n int) *Tape {
	return &Tape{nodes: make([]node, 0, n)}
}

// Len returns the number of recorded nodes
func (t *Tape) Len() int {
	return len(t.nodes)
}

func (t *Tape) push(value float64, n node) Var {
	t.nodes = append(t.nodes, n)
	return Var{index: len(t.nodes) - 1, value: value}
}

// Var registers an independent input
func (t *Tape) Var(x float64) Var {
	return t.push(x, node{})
}

// Const records a value that does not depend on any input
func (t *Tape) Const(x float64) Var {
	return t.push(x, node{})
}

func (t *Tape) unary(value float64, a Var, da float64) Var {
	return t.push(value, node{parents: [2]int{a.index}, partials: [2]float64{da}, arity: 1})
}

func (t *Tape) binary(value float64, a, b Var, da, db float64) Var {
	return t.push(value, node{
		parents:  [2]int{a.index, b.index},
		partials: [2]float64{da, db},
		arity:    2,
	})
}

func (t *Tape) Add(a, b Var) Var {
	return t.binary(a.value+b.value, a, b, 1, 1)
}

func (t *Tape) Sub(a, b Var) Var {
	return t.binary(a.value-b.value, a, b, 1, -1)
}

func (t *Tape) Mul(a, b Var) Var {
	return t.binary(a.value*b.value, a, b, b.value, a.value)
}

// Scale multiplies a by the constant k
func (t *Tape) Scale(k float64, a Var) Var {
	return t.unary(k*a.value, a, k)
}

// AddConst adds the constant k to a
func (t *Tape) AddConst(a Var, k float64) Var {
	return t.unary(a.value+k, a, 1)
}

func (t *Tape) Neg(a Var) Var {
	return t.unary(-a.value, a, -1)
}

// Apply records an elementary function of a whose value and derivative the
// caller has already evaluated
func (t *Tape) Apply(a Var, value, derivative float64) Var {
	return t.unary(value, a, derivative)
}

func (t *Tape) Exp(a Var) Var {
	e := math.Exp(a.value)
	return t.unary(e, a, e)
}

// Sum folds vs with Add. An empty sum records a zero constant.
func (t *Tape) Sum(vs ...Var) Var {
	if len(vs) == 0 {
		return t.Const(0)
	}
	acc := vs[0]
	for _, v := range vs[1:] {
		acc = t.Add(acc, v)
	}
	return acc
}

// Adjoints holds d out / d node for every node recorded before out
type Adjoints struct {
	bar []float64
}

// Of returns the adjoint of v
func (a Adjoints) Of(v Var) float64 {
	if v.index < 0 || v.index >= len(a.bar) {
		return 0
	}
	return a.bar[v.index]
}

// Backward seeds out with seed and propagates adjoints to every node in strict
// reverse recording order
func (t *Tape) Backward(out Var, seed float64) (Adjoints, error) {
	if out.index < 0 || out.index >= len(t.nodes) {
		return Adjoints{}, fmt.Errorf("variable %d is not on this tape", out.index)
	}

	bar := make([]float64, out.index+1)
	bar[out.index] = seed
	for i := out.index; i >= 0; i-- {
		b := bar[i]
		if b == 0 {
			continue
		}
		n := t.nodes[i]
		for k := 0; k < n.arity; k++ {
			bar[n.parents[k]] += n.partials[k] * b
		}
	}
	return Adjoints{bar: bar}, nil
}

// Gradient evaluates f on a fresh tape and returns f(x) and its gradient
func Gradient(f func(t *Tape, x []Var) Var, x []float64) (float64, []float64, error) {
	tape := NewTape(4 * len(x))
	vars := make([]Var, len(x))
	for i, xi := range x {
		vars[i] = tape.Var(xi)
	}

	out := f(tape, vars)
	adj, err := tape.Backward(out, 1)
	if err != nil {
		return 0, nil, err
	}

	grad := make([]float64, len(x))
	for i, v := range vars {
		grad[i] = adj.Of(v)
	}
	return out.Value(), grad, nil
}
