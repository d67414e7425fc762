// Package circuits holds ready-made programs.
package circuits

import (
	"fmt"

	"qshot/qsim"
)

// Builtin maps a circuit name to its constructor.
var Builtin = map[string]func() (*qsim.Program, error){
	"transport": Transport,
	"bell":      Bell,
}

// Transport builds the labeled transport circuit: three "data" qubits are
// split into a superposition, propagated and merged, the result is moved
// onto the "ancilla" qubit, and the data qubits are reset from it. Data
// qubits are measured into c[0:3] and the ancilla into c[3].
//
// The final distribution is c = 1000 with probability 1/2 and 1100, 0110
// with probability 1/4 each.
func Transport() (*qsim.Program, error) {
	b := qsim.NewBuilder()
	data := b.AddQubits("data", 3)
	anc := b.AddQubits("ancilla", 1)
	c := b.AddClbits("c", 4)

	d0, d1, d2 := data.At(0), data.At(1), data.At(2)
	a0 := anc.At(0)

	// Split.
	b.H(d2).
		X(d0).
		CX(d2, d0).
		Barrier()

	// Propagate.
	b.CH(d2, d1).
		CX(d2, d0).
		X(d2).
		CCX(d2, d0, d1).
		X(d2).
		Barrier()

	// Merge.
	b.CCX(d2, d1, d0).
		CCX(d2, d0, d1).
		Barrier()

	// Transport to the ancilla, once for each value of d2.
	b.MCX(data.All(), a0).
		X(d2).
		MCX(data.All(), a0).
		X(d2).
		Barrier()

	// Reset data.
	b.CX(a0, d0).
		CX(a0, d1)

	b.Measure(data.All(), c.Range(0, 3)).
		Measure(anc.All(), c.Range(3, 4))

	p, err := b.Build(qsim.RequireFullCoverage())
	if err != nil {
		return nil, fmt.Errorf("building transport circuit: %w", err)
	}
	return p, nil
}

// Bell builds a two-qubit Bell pair measured into c[0:2]; the only outcomes
// are 00 and 11.
func Bell() (*qsim.Program, error) {
	b := qsim.NewBuilder()
	q := b.AddQubits("q", 2)
	c := b.AddClbits("c", 2)
	b.H(q.At(0)).
		CX(q.At(0), q.At(1)).
		Measure(q.All(), c.All())
	p, err := b.Build(qsim.RequireFullCoverage())
	if err != nil {
		return nil, fmt.Errorf("building bell circuit: %w", err)
	}
	return p, nil
}
