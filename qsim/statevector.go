package qsim

import (
	"math"
	"math/bits"
	"math/cmplx"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/mat"
)

// NormTolerance is the drift from unit norm tolerated after unitary gates.
const NormTolerance = 1e-9

// minRetainedMass is the smallest probability mass a measurement may keep
// before the collapse is treated as numerically impossible.
const minRetainedMass = 1e-12

// MaxQubits is the widest register any backend can index: basis-state
// indices are ints and the top bit is kept clear.
const MaxQubits = bits.UintSize - 2

// MaxDenseQubits is the widest register the dense backend allocates. Each
// shot holds 2^n amplitudes of 16 bytes, one state per worker.
const MaxDenseQubits = 24

// Backend is the contract the executor drives. Qubit k corresponds to bit k
// of a basis-state index.
type Backend interface {
	NumQubits() int
	// ApplyGate applies the 2x2 unitary m to target on the subspace where
	// every control qubit is 1.
	ApplyGate(m mat.CMatrix, target int, controls []int) error
	// MeasureQubit draws a bit for qubit q from rng and collapses the state.
	MeasureQubit(q int, rng *rand.Rand) (int, error)
	// Probabilities returns the probability of every basis state, indexed
	// by basis-state index.
	Probabilities() []float64
}

// probabilityWalker is implemented by backends that can list their
// non-zero probabilities without materializing all 2^n of them.
type probabilityWalker interface {
	eachProbability(fn func(i int, p float64))
}

// BackendFactory creates a backend in the all-zero basis state. It fails
// with ErrConfig when the backend cannot hold numQubits qubits.
type BackendFactory func(numQubits int) (Backend, error)

// StateVector is the dense backend: one amplitude per basis state.
type StateVector struct {
	Amplitudes []complex128
	numQubits  int
}

// NewStateVector returns |0...0> over numQubits qubits. numQubits must not
// exceed MaxDenseQubits; DenseBackend checks it.
func NewStateVector(numQubits int) *StateVector {
	amps := make([]complex128, 1<<numQubits)
	amps[0] = 1
	return &StateVector{Amplitudes: amps, numQubits: numQubits}
}

// DenseBackend is a BackendFactory for StateVector.
func DenseBackend(numQubits int) (Backend, error) {
	if numQubits < 0 || numQubits > MaxDenseQubits {
		return nil, configErrorf("dense backend holds at most %d qubits, program has %d; use the sparse backend", MaxDenseQubits, numQubits)
	}
	return NewStateVector(numQubits), nil
}

func (s *StateVector) NumQubits() int { return s.numQubits }

// Clone returns an independent copy of the state.
func (s *StateVector) Clone() *StateVector {
	amps := make([]complex128, len(s.Amplitudes))
	copy(amps, s.Amplitudes)
	return &StateVector{Amplitudes: amps, numQubits: s.numQubits}
}

func (s *StateVector) checkQubits(target int, controls []int) error {
	if target < 0 || target >= s.numQubits {
		return domainErrorf("target qubit %d outside %d-qubit state", target, s.numQubits)
	}
	for _, c := range controls {
		if c < 0 || c >= s.numQubits {
			return domainErrorf("control qubit %d outside %d-qubit state", c, s.numQubits)
		}
		if c == target {
			return domainErrorf("qubit %d is both control and target", c)
		}
	}
	return nil
}

// ApplyGate updates every amplitude pair that differs only in the target
// bit and has all control bits set. Pairs with any control bit clear are
// left untouched.
func (s *StateVector) ApplyGate(m mat.CMatrix, target int, controls []int) error {
	if err := s.checkQubits(target, controls); err != nil {
		return err
	}
	u00, u01, u10, u11, err := unitary2(m)
	if err != nil {
		return err
	}
	tBit := 1 << target
	cMask := controlMask(controls)
	for i := range s.Amplitudes {
		if i&tBit != 0 || i&cMask != cMask {
			continue
		}
		j := i | tBit
		a0, a1 := s.Amplitudes[i], s.Amplitudes[j]
		s.Amplitudes[i] = u00*a0 + u01*a1
		s.Amplitudes[j] = u10*a0 + u11*a1
	}
	return nil
}

// MeasureQubit samples qubit q: the outcome is 1 when a uniform draw falls
// below the probability of q being 1. Amplitudes inconsistent with the
// outcome are zeroed and the survivors rescaled to unit norm.
func (s *StateVector) MeasureQubit(q int, rng *rand.Rand) (int, error) {
	if q < 0 || q >= s.numQubits {
		return 0, domainErrorf("measured qubit %d outside %d-qubit state", q, s.numQubits)
	}
	bit := 1 << q
	var prob0, prob1 float64
	for i, amp := range s.Amplitudes {
		p := real(amp * cmplx.Conj(amp))
		if i&bit != 0 {
			prob1 += p
		} else {
			prob0 += p
		}
	}

	outcome, kept := 0, prob0
	if rng.Float64() < prob1 {
		outcome, kept = 1, prob1
	}
	if kept < minRetainedMass {
		return 0, domainErrorf("qubit %d collapsed to %d with retained probability %g", q, outcome, kept)
	}

	scale := complex(1/math.Sqrt(kept), 0)
	for i := range s.Amplitudes {
		if (i&bit != 0) == (outcome == 1) {
			s.Amplitudes[i] *= scale
		} else {
			s.Amplitudes[i] = 0
		}
	}
	return outcome, nil
}

func (s *StateVector) Probabilities() []float64 {
	probs := make([]float64, len(s.Amplitudes))
	for i, amp := range s.Amplitudes {
		probs[i] = real(amp * cmplx.Conj(amp))
	}
	return probs
}

// QubitProbability is the marginal distribution of a single qubit.
type QubitProbability struct {
	Prob0 float64
	Prob1 float64
}

// QubitProbabilities returns the marginal distribution of every qubit of b.
func QubitProbabilities(b Backend) []QubitProbability {
	probs := make([]QubitProbability, b.NumQubits())
	eachProbability(b, func(i int, p float64) {
		for q := range probs {
			if i&(1<<q) != 0 {
				probs[q].Prob1 += p
			} else {
				probs[q].Prob0 += p
			}
		}
	})
	return probs
}

// Norm returns the total probability mass held by b.
func Norm(b Backend) float64 {
	total := 0.0
	eachProbability(b, func(_ int, p float64) { total += p })
	return total
}

func eachProbability(b Backend, fn func(i int, p float64)) {
	if w, ok := b.(probabilityWalker); ok {
		w.eachProbability(fn)
		return
	}
	for i, p := range b.Probabilities() {
		fn(i, p)
	}
}

// IsNormalized reports whether b's total mass is 1 within NormTolerance.
func IsNormalized(b Backend) bool {
	return scalar.EqualWithinAbsOrRel(Norm(b), 1, NormTolerance, NormTolerance)
}
