package fit

import "math"

// adam implements the Adam optimizer with bias correction.
//
// Update rule:
//
//	m[i] = β1·m[i] + (1-β1)·g[i]
//	v[i] = β2·v[i] + (1-β2)·g[i]²
//	m̂[i] = m[i] / (1 - β1^t)
//	v̂[i] = v[i] / (1 - β2^t)
//	x[i] = x[i] - lr · m̂[i] / (√v̂[i] + ε)
type adam struct {
	lr           float64
	beta1, beta2 float64
	eps          float64
	m, v         []float64
	step         int
}

// newAdam creates an Adam stepper with standard defaults: β1=0.9, β2=0.999,
// ε=1e-8.
func newAdam(lr float64, dim int) *adam {
	return &adam{
		lr:    lr,
		beta1: 0.9,
		beta2: 0.999,
		eps:   1e-8,
		m:     make([]float64, dim),
		v:     make([]float64, dim),
	}
}

// update applies one Adam step to x in place.
func (a *adam) update(x, grad []float64) {
	a.step++
	for i := range x {
		g := grad[i]
		a.m[i] = a.beta1*a.m[i] + (1-a.beta1)*g
		a.v[i] = a.beta2*a.v[i] + (1-a.beta2)*g*g

		mHat := a.m[i] / (1 - math.Pow(a.beta1, float64(a.step)))
		vHat := a.v[i] / (1 - math.Pow(a.beta2, float64(a.step)))

		x[i] -= a.lr * mHat / (math.Sqrt(vHat) + a.eps)
	}
}
