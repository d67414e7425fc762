package qsim

import (
	"slices"
)

// Instruction is one step of a program: a Gate, a Measurement or a Barrier.
type Instruction interface {
	isInstruction()
}

// Measurement reads Qubits[i] into classical bit Clbits[i], in slice order.
type Measurement struct {
	Qubits []int
	Clbits []int
}

func (Measurement) isInstruction() {}

// Barrier marks a scheduling boundary across Qubits (all qubits when
// empty). It never changes the state.
type Barrier struct {
	Qubits []int
}

func (Barrier) isInstruction() {}

// Register is a named, contiguous slice of the flat qubit or classical bit
// index space.
type Register struct {
	Name   string
	Offset int
	Size   int
}

// At translates a register-local index into a flat index. It returns -1 for
// an index outside the register, which the builder rejects.
func (r Register) At(i int) int {
	if i < 0 || i >= r.Size {
		return -1
	}
	return r.Offset + i
}

// All returns the flat indices of the whole register.
func (r Register) All() []int {
	return r.Range(0, r.Size)
}

// Range returns the flat indices of local positions [lo, hi). Positions
// outside the register map to -1.
func (r Register) Range(lo, hi int) []int {
	out := make([]int, 0, max(hi-lo, 0))
	for i := lo; i < hi; i++ {
		out = append(out, r.At(i))
	}
	return out
}

// Program is a frozen, ordered instruction list over fixed-size qubit and
// classical registers. It is safe to share between goroutines.
type Program struct {
	numQubits    int
	numClbits    int
	qregs        []Register
	cregs        []Register
	instructions []Instruction
}

func (p *Program) NumQubits() int { return p.numQubits }
func (p *Program) NumClbits() int { return p.numClbits }

// Instructions returns a deep copy of the instruction list in program order.
func (p *Program) Instructions() []Instruction {
	out := make([]Instruction, len(p.instructions))
	for i, inst := range p.instructions {
		switch v := inst.(type) {
		case Gate:
			v.Controls = slices.Clone(v.Controls)
			out[i] = v
		case Measurement:
			out[i] = Measurement{Qubits: slices.Clone(v.Qubits), Clbits: slices.Clone(v.Clbits)}
		case Barrier:
			out[i] = Barrier{Qubits: slices.Clone(v.Qubits)}
		}
	}
	return out
}

// QuantumRegisters returns the named qubit registers in declaration order.
func (p *Program) QuantumRegisters() []Register { return slices.Clone(p.qregs) }

// ClassicalRegisters returns the named classical registers in declaration order.
func (p *Program) ClassicalRegisters() []Register { return slices.Clone(p.cregs) }

// GateCount returns the number of gate instructions, barriers and
// measurements excluded.
func (p *Program) GateCount() int {
	n := 0
	for _, inst := range p.instructions {
		if _, ok := inst.(Gate); ok {
			n++
		}
	}
	return n
}

// Builder accumulates instructions in call order. Each Add method validates
// immediately; the first failure is also kept and returned by Build, so
// chains of the shorthand gate methods only need one check at the end.
type Builder struct {
	numQubits    int
	numClbits    int
	qregs        []Register
	cregs        []Register
	instructions []Instruction
	measuredQ    map[int]bool
	assignedC    map[int]bool
	err          error
	frozen       bool
}

// NewBuilder returns an empty builder. Declare registers with AddQubits and
// AddClbits before adding instructions that reference them.
func NewBuilder() *Builder {
	return &Builder{
		measuredQ: make(map[int]bool),
		assignedC: make(map[int]bool),
	}
}

// Err returns the first error recorded by the builder.
func (b *Builder) Err() error { return b.err }

func (b *Builder) fail(err error) error {
	if b.err == nil {
		b.err = err
	}
	return err
}

func (b *Builder) checkOpen() error {
	if b.frozen {
		return b.fail(validationErrorf("program already built"))
	}
	return nil
}

func registerNameTaken(regs []Register, name string) bool {
	return slices.ContainsFunc(regs, func(r Register) bool { return r.Name == name })
}

// AddQubits declares a named qubit register appended after the existing
// ones. On error the returned register is empty.
func (b *Builder) AddQubits(name string, size int) Register {
	if b.checkOpen() != nil {
		return Register{Name: name}
	}
	if size <= 0 {
		b.fail(validationErrorf("qubit register %q has size %d", name, size))
		return Register{Name: name}
	}
	if size > MaxQubits-b.numQubits {
		b.fail(validationErrorf("qubit register %q of size %d exceeds the %d-qubit limit", name, size, MaxQubits))
		return Register{Name: name}
	}
	if registerNameTaken(b.qregs, name) || registerNameTaken(b.cregs, name) {
		b.fail(validationErrorf("register name %q already declared", name))
		return Register{Name: name}
	}
	r := Register{Name: name, Offset: b.numQubits, Size: size}
	b.qregs = append(b.qregs, r)
	b.numQubits += size
	return r
}

// AddClbits declares a named classical register appended after the
// existing ones.
func (b *Builder) AddClbits(name string, size int) Register {
	if b.checkOpen() != nil {
		return Register{Name: name}
	}
	if size <= 0 {
		b.fail(validationErrorf("classical register %q has size %d", name, size))
		return Register{Name: name}
	}
	if registerNameTaken(b.qregs, name) || registerNameTaken(b.cregs, name) {
		b.fail(validationErrorf("register name %q already declared", name))
		return Register{Name: name}
	}
	r := Register{Name: name, Offset: b.numClbits, Size: size}
	b.cregs = append(b.cregs, r)
	b.numClbits += size
	return r
}

func (b *Builder) checkQubit(q int) error {
	if q < 0 || q >= b.numQubits {
		return validationErrorf("qubit %d outside register of %d qubits", q, b.numQubits)
	}
	return nil
}

// AddGate appends a gate after checking its qubits against the declared
// register size.
func (b *Builder) AddGate(g Gate) error {
	if err := b.checkOpen(); err != nil {
		return err
	}
	// Re-run the descriptor checks in case g was built by hand.
	g, err := NewGate(g.Kind, g.Target, g.Controls...)
	if err != nil {
		return b.fail(err)
	}
	for _, q := range g.Qubits() {
		if err := b.checkQubit(q); err != nil {
			return b.fail(err)
		}
	}
	b.instructions = append(b.instructions, g)
	return nil
}

// AddMeasurement appends a measurement. Qubits and Clbits must have equal
// length; no qubit may be measured twice and no classical bit assigned
// twice across the whole program.
func (b *Builder) AddMeasurement(m Measurement) error {
	if err := b.checkOpen(); err != nil {
		return err
	}
	if len(m.Qubits) == 0 {
		return b.fail(validationErrorf("measurement of no qubits"))
	}
	if len(m.Qubits) != len(m.Clbits) {
		return b.fail(validationErrorf("measurement maps %d qubits to %d classical bits", len(m.Qubits), len(m.Clbits)))
	}
	seenQ := make(map[int]bool, len(m.Qubits))
	seenC := make(map[int]bool, len(m.Clbits))
	for i, q := range m.Qubits {
		c := m.Clbits[i]
		if err := b.checkQubit(q); err != nil {
			return b.fail(err)
		}
		if c < 0 || c >= b.numClbits {
			return b.fail(validationErrorf("classical bit %d outside register of %d bits", c, b.numClbits))
		}
		if b.measuredQ[q] || seenQ[q] {
			return b.fail(validationErrorf("qubit %d measured twice", q))
		}
		if b.assignedC[c] || seenC[c] {
			return b.fail(validationErrorf("classical bit %d assigned twice", c))
		}
		seenQ[q], seenC[c] = true, true
	}
	for q := range seenQ {
		b.measuredQ[q] = true
	}
	for c := range seenC {
		b.assignedC[c] = true
	}
	b.instructions = append(b.instructions, Measurement{
		Qubits: slices.Clone(m.Qubits),
		Clbits: slices.Clone(m.Clbits),
	})
	return nil
}

// AddBarrier appends a barrier over qubits, or over every qubit when none
// are given.
func (b *Builder) AddBarrier(qubits ...int) error {
	if err := b.checkOpen(); err != nil {
		return err
	}
	for _, q := range qubits {
		if err := b.checkQubit(q); err != nil {
			return b.fail(err)
		}
	}
	b.instructions = append(b.instructions, Barrier{Qubits: slices.Clone(qubits)})
	return nil
}

func (b *Builder) gate(kind GateKind, target int, controls ...int) *Builder {
	g, err := NewGate(kind, target, controls...)
	if err != nil {
		b.fail(err)
		return b
	}
	b.AddGate(g)
	return b
}

// Shorthand gate methods. They record failures on the builder instead of
// returning them; check Err or Build.

func (b *Builder) H(target int) *Builder { return b.gate(GateH, target) }
func (b *Builder) X(target int) *Builder { return b.gate(GateX, target) }
func (b *Builder) CX(control, target int) *Builder { return b.gate(GateCX, target, control) }
func (b *Builder) CH(control, target int) *Builder { return b.gate(GateCH, target, control) }
func (b *Builder) CCX(c0, c1, target int) *Builder { return b.gate(GateCCX, target, c0, c1) }
func (b *Builder) MCX(controls []int, target int) *Builder {
	return b.gate(GateMCX, target, controls...)
}

// Barrier appends a barrier; see AddBarrier.
func (b *Builder) Barrier(qubits ...int) *Builder {
	b.AddBarrier(qubits...)
	return b
}

// Measure maps qubits[i] to clbits[i]; see AddMeasurement.
func (b *Builder) Measure(qubits, clbits []int) *Builder {
	b.AddMeasurement(Measurement{Qubits: qubits, Clbits: clbits})
	return b
}

// BuildOption adjusts the checks Build performs.
type BuildOption func(*buildOptions)

type buildOptions struct {
	fullCoverage bool
}

// RequireFullCoverage makes Build reject programs that leave any classical
// bit unassigned.
func RequireFullCoverage() BuildOption {
	return func(o *buildOptions) { o.fullCoverage = true }
}

// Build freezes the builder and returns the program. Any later Add call
// fails.
func (b *Builder) Build(opts ...BuildOption) (*Program, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.frozen {
		return nil, b.fail(validationErrorf("program already built"))
	}
	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}
	if b.numQubits == 0 {
		return nil, b.fail(validationErrorf("program declares no qubits"))
	}
	if b.numQubits > MaxQubits {
		return nil, b.fail(validationErrorf("program declares %d qubits, limit is %d", b.numQubits, MaxQubits))
	}
	if o.fullCoverage {
		for c := range b.numClbits {
			if !b.assignedC[c] {
				return nil, b.fail(validationErrorf("classical bit %d is never assigned", c))
			}
		}
	}
	b.frozen = true
	return &Program{
		numQubits:    b.numQubits,
		numClbits:    b.numClbits,
		qregs:        slices.Clone(b.qregs),
		cregs:        slices.Clone(b.cregs),
		instructions: slices.Clone(b.instructions),
	}, nil
}
