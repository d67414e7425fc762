package qsim

import (
	"maps"
	"slices"
)

// Counts maps an outcome bitstring to the number of shots that produced it.
type Counts map[string]int

// Total returns the number of shots recorded.
func (c Counts) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// Keys returns the recorded outcomes in lexical order.
func (c Counts) Keys() []string {
	return slices.Sorted(maps.Keys(c))
}

// Probabilities returns each outcome's share of the total.
func (c Counts) Probabilities() map[string]float64 {
	total := c.Total()
	probs := make(map[string]float64, len(c))
	if total == 0 {
		return probs
	}
	for k, n := range c {
		probs[k] = float64(n) / float64(total)
	}
	return probs
}

// MostFrequent returns the outcome with the highest count, breaking ties by
// lexical order. ok is false for an empty table.
func (c Counts) MostFrequent() (outcome string, count int, ok bool) {
	for _, k := range c.Keys() {
		if n := c[k]; !ok || n > count {
			outcome, count, ok = k, n, true
		}
	}
	return outcome, count, ok
}

// Merge adds every count in other to c, allocating c if it is nil.
func (c *Counts) Merge(other Counts) {
	if *c == nil {
		*c = make(Counts, len(other))
	}
	for k, n := range other {
		(*c)[k] += n
	}
}

// Clone returns an independent copy.
func (c Counts) Clone() Counts {
	return maps.Clone(c)
}
