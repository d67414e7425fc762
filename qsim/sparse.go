package qsim

import (
	"maps"
	"math"
	"math/cmplx"
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/mat"
)

// pruneBelow drops amplitudes whose magnitude squared falls under this
// threshold so cancelled branches do not linger in the map.
const pruneBelow = 1e-30

// SparseState stores only the non-zero amplitudes. Circuits built from
// permutation gates with few Hadamards stay small here for any width up to
// MaxQubits.
type SparseState struct {
	amps      map[int]complex128
	numQubits int
}

// NewSparseState returns |0...0> over numQubits qubits. numQubits must not
// exceed MaxQubits; SparseBackend checks it.
func NewSparseState(numQubits int) *SparseState {
	return &SparseState{amps: map[int]complex128{0: 1}, numQubits: numQubits}
}

// SparseBackend is a BackendFactory for SparseState.
func SparseBackend(numQubits int) (Backend, error) {
	if numQubits < 0 || numQubits > MaxQubits {
		return nil, configErrorf("sparse backend holds at most %d qubits, program has %d", MaxQubits, numQubits)
	}
	return NewSparseState(numQubits), nil
}

func (s *SparseState) NumQubits() int { return s.numQubits }

// Len returns the number of stored amplitudes.
func (s *SparseState) Len() int { return len(s.amps) }

func (s *SparseState) ApplyGate(m mat.CMatrix, target int, controls []int) error {
	if target < 0 || target >= s.numQubits {
		return domainErrorf("target qubit %d outside %d-qubit state", target, s.numQubits)
	}
	for _, c := range controls {
		if c < 0 || c >= s.numQubits || c == target {
			return domainErrorf("invalid control qubit %d for target %d", c, target)
		}
	}
	u00, u01, u10, u11, err := unitary2(m)
	if err != nil {
		return err
	}
	tBit := 1 << target
	cMask := controlMask(controls)

	// Collect each affected pair once, keyed by its target-bit-clear index.
	var pairs []int
	for i := range s.amps {
		if i&cMask != cMask {
			continue
		}
		lo := i &^ tBit
		if i&tBit != 0 {
			if _, seen := s.amps[lo]; seen {
				continue
			}
		}
		pairs = append(pairs, lo)
	}

	for _, i := range pairs {
		j := i | tBit
		a0, a1 := s.amps[i], s.amps[j]
		s.set(i, u00*a0+u01*a1)
		s.set(j, u10*a0+u11*a1)
	}
	return nil
}

func (s *SparseState) set(i int, amp complex128) {
	if real(amp*cmplx.Conj(amp)) < pruneBelow {
		delete(s.amps, i)
		return
	}
	s.amps[i] = amp
}

func (s *SparseState) MeasureQubit(q int, rng *rand.Rand) (int, error) {
	if q < 0 || q >= s.numQubits {
		return 0, domainErrorf("measured qubit %d outside %d-qubit state", q, s.numQubits)
	}
	bit := 1 << q
	// Sum in index order so the result does not depend on map iteration.
	keys := slices.Sorted(maps.Keys(s.amps))
	var prob0, prob1 float64
	for _, i := range keys {
		amp := s.amps[i]
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
	for _, i := range keys {
		if (i&bit != 0) == (outcome == 1) {
			s.amps[i] *= scale
		} else {
			delete(s.amps, i)
		}
	}
	return outcome, nil
}

// Probabilities materializes the full distribution. It returns nil for
// states wider than MaxDenseQubits; use QubitProbabilities or Norm there.
func (s *SparseState) Probabilities() []float64 {
	if s.numQubits > MaxDenseQubits {
		return nil
	}
	probs := make([]float64, 1<<s.numQubits)
	s.eachProbability(func(i int, p float64) { probs[i] = p })
	return probs
}

func (s *SparseState) eachProbability(fn func(i int, p float64)) {
	for _, i := range slices.Sorted(maps.Keys(s.amps)) {
		amp := s.amps[i]
		fn(i, real(amp*cmplx.Conj(amp)))
	}
}
