package ad

import "gonum.org/v1/gonum/num/dual"

// Seed returns x carrying the tangent direction dot
func Seed(x, dot float64) dual.Number {
	return dual.Number{Real: x, Emag: dot}
}

// Const returns x with a zero tangent
func Const(x float64) dual.Number {
	return dual.Number{Real: x}
}

// Tangent returns the derivative part of n
func Tangent(n dual.Number) float64 {
	return n.Emag
}

// Sum adds dual numbers
func Sum(ns ...dual.Number) dual.Number {
	var acc dual.Number
	for _, n := range ns {
		acc = dual.Add(acc, n)
	}
	return acc
}

// Directional evaluates f at x seeded with the direction dir and returns
// f(x) and the directional derivative grad f(x) . dir
func Directional(f func(x []dual.Number) dual.Number, x, dir []float64) (float64, float64) {
	in := make([]dual.Number, len(x))
	for i := range x {
		var d float64
		if i < len(dir) {
			d = dir[i]
		}
		in[i] = Seed(x[i], d)
	}
	out := f(in)
	return out.Real, out.Emag
}
