package qsim

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"
)

// GateKind names a gate in the supported gate set.
type GateKind string

const (
	GateH   GateKind = "H"
	GateX   GateKind = "X"
	GateCX  GateKind = "CX"
	GateCCX GateKind = "CCX"
	GateCH  GateKind = "CH"
	GateMCX GateKind = "MCX"
)

// controlArity is the number of controls each kind takes. -1 means one or more.
var controlArity = map[GateKind]int{
	GateH:   0,
	GateX:   0,
	GateCX:  1,
	GateCCX: 2,
	GateCH:  1,
	GateMCX: -1,
}

// Gate is one unitary step of a program: a gate kind applied to Target on
// the subspace where every qubit in Controls is 1.
type Gate struct {
	Kind     GateKind
	Controls []int
	Target   int
}

// NewGate builds a gate descriptor and checks it against the kind's control
// arity. Controls and target must be disjoint and non-negative.
func NewGate(kind GateKind, target int, controls ...int) (Gate, error) {
	arity, ok := controlArity[kind]
	if !ok {
		return Gate{}, validationErrorf("unknown gate kind %q", kind)
	}
	if arity >= 0 && len(controls) != arity {
		return Gate{}, validationErrorf("%s takes %d control(s), got %d", kind, arity, len(controls))
	}
	if arity < 0 && len(controls) == 0 {
		return Gate{}, validationErrorf("%s needs at least one control", kind)
	}
	if target < 0 {
		return Gate{}, validationErrorf("%s: negative target qubit %d", kind, target)
	}
	for i, c := range controls {
		if c < 0 {
			return Gate{}, validationErrorf("%s: negative control qubit %d", kind, c)
		}
		if c == target {
			return Gate{}, validationErrorf("%s: qubit %d is both control and target", kind, c)
		}
		if slices.Contains(controls[:i], c) {
			return Gate{}, validationErrorf("%s: duplicate control qubit %d", kind, c)
		}
	}
	return Gate{Kind: kind, Controls: slices.Clone(controls), Target: target}, nil
}

// Qubits returns every qubit the gate touches, controls first.
func (g Gate) Qubits() []int {
	return append(slices.Clone(g.Controls), g.Target)
}

func (Gate) isInstruction() {}

var (
	hadamard = mat.NewCDense(2, 2, []complex128{
		complex(1/math.Sqrt2, 0), complex(1/math.Sqrt2, 0),
		complex(1/math.Sqrt2, 0), complex(-1/math.Sqrt2, 0),
	})
	pauliX = mat.NewCDense(2, 2, []complex128{
		0, 1,
		1, 0,
	})
)

// Matrix returns the 2x2 unitary a gate of the given kind applies to its
// target. Controlled kinds share the matrix of their base gate; the control
// condition is applied by the backend's control mask, not by a larger matrix.
func Matrix(kind GateKind) (mat.CMatrix, error) {
	switch kind {
	case GateH, GateCH:
		return hadamard, nil
	case GateX, GateCX, GateCCX, GateMCX:
		return pauliX, nil
	}
	return nil, validationErrorf("unknown gate kind %q", kind)
}

// unitary2 pulls the four entries out of a 2x2 matrix so the amplitude
// loops avoid interface calls.
func unitary2(m mat.CMatrix) (u00, u01, u10, u11 complex128, err error) {
	if r, c := m.Dims(); r != 2 || c != 2 {
		return 0, 0, 0, 0, domainErrorf("gate matrix is %dx%d, want 2x2", r, c)
	}
	return m.At(0, 0), m.At(0, 1), m.At(1, 0), m.At(1, 1), nil
}

// controlMask folds a control set into a single bit mask.
func controlMask(controls []int) int {
	mask := 0
	for _, c := range controls {
		mask |= 1 << c
	}
	return mask
}
