// Package ordering produces the deterministic per-attempt question and
// option permutations. The order is a pure function of the attempt id, so
// it never needs to be persisted: any reload recomputes the identical
// sequence.
package ordering

// LCG parameters (Numerical Recipes). Fixed forever — changing them would
// reorder every in-flight attempt on the next reload.
const (
	lcgMultiplier uint64 = 1664525
	lcgIncrement  uint64 = 1013904223
	lcgMask       uint64 = 1<<32 - 1

	// optionSeedStep spreads per-question option seeds away from the
	// attempt seed. Odd, so consecutive question ids never collide mod 2^32.
	optionSeedStep int64 = 7919
)

// Shuffle returns a new slice holding a deterministic permutation of items
// for the given seed. The input is never mutated. Sequences of length <= 1
// come back unchanged without consuming any generator state.
func Shuffle[T any](items []T, seed int64) []T {
	out := make([]T, len(items))
	copy(out, items)
	if len(out) <= 1 {
		return out
	}

	state := uint64(seed) & lcgMask
	for i := len(out) - 1; i >= 1; i-- {
		state = (state*lcgMultiplier + lcgIncrement) & lcgMask
		draw := float64(state) / float64(1<<32)
		j := int(draw * float64(i+1))
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// QuestionOrder computes the display order of question ids for an attempt.
// A zero attempt id means no attempt exists yet; the natural order is
// returned untouched.
func QuestionOrder(attemptID int64, questionIDs []int64) []int64 {
	if attemptID == 0 {
		out := make([]int64, len(questionIDs))
		copy(out, questionIDs)
		return out
	}
	return Shuffle(questionIDs, attemptID)
}

// OptionOrder computes the per-question option order for an attempt. Each
// question gets an independent-looking but fully deterministic shuffle.
// A zero attempt id returns the options untouched.
func OptionOrder(attemptID, questionID int64, options []string) []string {
	if attemptID == 0 {
		out := make([]string, len(options))
		copy(out, options)
		return out
	}
	return Shuffle(options, OptionSeed(attemptID, questionID))
}

// OptionSeed derives the option-order seed from the attempt and question
// identifiers.
func OptionSeed(attemptID, questionID int64) int64 {
	return attemptID + questionID*optionSeedStep
}
