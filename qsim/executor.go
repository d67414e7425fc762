package qsim

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

// Outcome is the classical register after one shot; Outcome[k] is bit k.
type Outcome []uint8

// String renders the outcome with the highest classical bit first, so bit 0
// is the rightmost character.
func (o Outcome) String() string {
	var sb strings.Builder
	sb.Grow(len(o))
	for k := len(o) - 1; k >= 0; k-- {
		sb.WriteByte('0' + o[k])
	}
	return sb.String()
}

// ParseOutcome is the inverse of Outcome.String.
func ParseOutcome(s string) (Outcome, error) {
	o := make(Outcome, len(s))
	for i := range len(s) {
		switch s[i] {
		case '0', '1':
			o[len(s)-1-i] = s[i] - '0'
		default:
			return nil, validationErrorf("outcome %q: invalid bit %q", s, s[i])
		}
	}
	return o, nil
}

// Executor replays a program on a fresh backend.
type Executor struct {
	newBackend BackendFactory
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithBackend selects the state representation. The default is the dense
// StateVector.
func WithBackend(f BackendFactory) ExecutorOption {
	return func(e *Executor) { e.newBackend = f }
}

// NewExecutor returns an executor using the dense backend unless
// overridden.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{newBackend: DenseBackend}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunOnce executes one shot of p and returns its classical register.
func (e *Executor) RunOnce(p *Program, rng *rand.Rand) (Outcome, error) {
	out, _, err := e.run(p, rng)
	return out, err
}

// Evolve executes p and also returns the final backend state. Measurements
// in p still collapse the state, so for the pre-measurement amplitudes pass
// a program without them.
func (e *Executor) Evolve(p *Program, rng *rand.Rand) (Outcome, Backend, error) {
	return e.run(p, rng)
}

func (e *Executor) run(p *Program, rng *rand.Rand) (Outcome, Backend, error) {
	state, err := e.newBackend(p.numQubits)
	if err != nil {
		return nil, nil, err
	}
	out := make(Outcome, p.numClbits)
	for step, inst := range p.instructions {
		switch v := inst.(type) {
		case Gate:
			m, err := Matrix(v.Kind)
			if err != nil {
				return nil, nil, fmt.Errorf("step %d: %w", step, err)
			}
			if err := state.ApplyGate(m, v.Target, v.Controls); err != nil {
				return nil, nil, fmt.Errorf("step %d %s: %w", step, v.Kind, err)
			}
		case Measurement:
			for i, q := range v.Qubits {
				bit, err := state.MeasureQubit(q, rng)
				if err != nil {
					return nil, nil, fmt.Errorf("step %d measure: %w", step, err)
				}
				out[v.Clbits[i]] = uint8(bit)
			}
		case Barrier:
			// Ordering marker only.
		default:
			return nil, nil, domainErrorf("step %d: unknown instruction %T", step, inst)
		}
	}
	return out, state, nil
}
