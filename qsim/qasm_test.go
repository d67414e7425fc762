package qsim

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQASMNamedRegisters(t *testing.T) {
	src := `OPENQASM 2.0;
include "qelib1.inc";

qreg data[3];
qreg anc[1];
creg c[4];

h data[2];
cx data[2], data[0];
ch data[2], data[1];
ccx data[2], data[0], data[1];
mcx data[0], data[1], data[2], anc[0];
barrier data, anc[0];
measure data -> c[0];
measure anc[0] -> c[3];`

	_, err := ParseQASM(src)
	// "measure data -> c[0]" maps three qubits onto one bit.
	require.ErrorIs(t, err, ErrValidation)

	src = strings.Replace(src, "measure data -> c[0];", "measure data[0] -> c[0];\nmeasure data[1] -> c[1];\nmeasure data[2] -> c[2];", 1)
	p, err := ParseQASM(src, RequireFullCoverage())
	require.NoError(t, err)

	assert.Equal(t, 4, p.NumQubits())
	assert.Equal(t, 4, p.NumClbits())
	assert.Equal(t, 5, p.GateCount())

	insts := p.Instructions()
	require.Len(t, insts, 10)
	assert.Equal(t, Gate{Kind: GateCX, Controls: []int{2}, Target: 0}, insts[1])
	assert.Equal(t, Gate{Kind: GateMCX, Controls: []int{0, 1, 2}, Target: 3}, insts[4])
	assert.Equal(t, Barrier{Qubits: []int{0, 1, 2, 3}}, insts[5])
	assert.Equal(t, Measurement{Qubits: []int{3}, Clbits: []int{3}}, insts[9])
}

func TestParseQASMWholeRegisterMeasure(t *testing.T) {
	src := `OPENQASM 2.0;
qreg q[2];
creg c[2];
h q;
measure q -> c;`
	p, err := ParseQASM(src)
	require.NoError(t, err)

	insts := p.Instructions()
	require.Len(t, insts, 3)
	assert.Equal(t, Gate{Kind: GateH, Target: 0}, insts[0])
	assert.Equal(t, Gate{Kind: GateH, Target: 1}, insts[1])
	assert.Equal(t, Measurement{Qubits: []int{0, 1}, Clbits: []int{0, 1}}, insts[2])
}

func TestParseQASMSkipsCommentsAndGateDefinitions(t *testing.T) {
	src := `OPENQASM 2.0;
include "qelib1.inc";
// a comment; with a semicolon
gate majority a,b,c { cx c,b; cx c,a; ccx a,b,c; }
qreg q[1]; creg c[1];
x q[0]; // trailing comment
measure q[0] -> c[0];`
	p, err := ParseQASM(src)
	require.NoError(t, err)

	res, err := Run(context.Background(), p, 10, 1)
	require.NoError(t, err)
	assert.Equal(t, Counts{"1": 10}, res.Counts)
}

func TestParseQASMErrors(t *testing.T) {
	header := "qreg q[2];\ncreg c[2];\n"
	tests := []struct {
		name string
		body string
	}{
		{"unsupported gate", "rz(0.5) q[0];"},
		{"unknown gate", "swap q[0], q[1];"},
		{"undeclared register", "h r[0];"},
		{"index out of range", "x q[2];"},
		{"malformed operand", "x q[a];"},
		{"control equals target", "cx q[0], q[0];"},
		{"wrong arity", "ccx q[0], q[1];"},
		{"register operand on cx", "cx q, q[1];"},
		{"clbit reused", "measure q[0] -> c[0];\nmeasure q[1] -> c[0];"},
		{"duplicate register", "qreg q[1];"},
		{"classical operand undeclared", "measure q[0] -> d[0];"},
		{"register too wide", "qreg wide[64];"},
		{"register size overflows int", "qreg wide[99999999999999999999];"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseQASM(header + tt.body)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Contains(t, err.Error(), "statement")
		})
	}
}

func TestParseQASMRejectsSixtyFourQubits(t *testing.T) {
	_, err := ParseQASM("qreg q[64]; creg c[1]; x q[0]; measure q[0] -> c[0];")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestQASMRoundTrip(t *testing.T) {
	b := NewBuilder()
	data := b.AddQubits("data", 3)
	anc := b.AddQubits("ancilla", 1)
	c := b.AddClbits("c", 4)
	p, err := b.H(data.At(2)).
		CX(data.At(2), data.At(0)).
		CH(data.At(2), data.At(1)).
		Barrier().
		CCX(data.At(2), data.At(0), data.At(1)).
		MCX(data.All(), anc.At(0)).
		Barrier(data.At(0), anc.At(0)).
		Measure(data.All(), c.Range(0, 3)).
		Measure(anc.All(), c.Range(3, 4)).
		Build()
	require.NoError(t, err)

	text := p.QASM()
	assert.True(t, strings.HasPrefix(text, "OPENQASM 2.0;\n"))
	assert.Contains(t, text, "qreg data[3];")
	assert.Contains(t, text, "qreg ancilla[1];")
	assert.Contains(t, text, "creg c[4];")
	assert.Contains(t, text, "ch data[2], data[1];")
	assert.Contains(t, text, "mcx data[0], data[1], data[2], ancilla[0];")
	assert.Contains(t, text, "barrier data, ancilla;")
	assert.Contains(t, text, "barrier data[0], ancilla[0];")
	assert.Contains(t, text, "measure ancilla[0] -> c[3];")

	back, err := ParseQASM(text)
	require.NoError(t, err)
	assert.Equal(t, p.QuantumRegisters(), back.QuantumRegisters())
	assert.Equal(t, p.ClassicalRegisters(), back.ClassicalRegisters())
	assert.Equal(t, p.GateCount(), back.GateCount())

	// Measurements come back one qubit at a time, barriers over the whole
	// register come back with explicit qubits; both run identically.
	want, err := Run(context.Background(), p, 500, 77)
	require.NoError(t, err)
	got, err := Run(context.Background(), back, 500, 77)
	require.NoError(t, err)
	assert.Equal(t, want.Counts, got.Counts)
}
