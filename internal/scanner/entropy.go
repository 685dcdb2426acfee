package scanner

import (
	"math"
	"sort"
)

// Score is a Shannon entropy measurement. Bits alone is meaningless without
// the alphabet size it was computed over, so both travel together.
type Score struct {
	Bits     float64
	Alphabet int
}

// Max returns the upper bound for this score's alphabet, log2(n).
func (s Score) Max() float64 {
	if s.Alphabet <= 1 {
		return 0
	}
	return math.Log2(float64(s.Alphabet))
}

// Shannon computes the Shannon entropy of s over the distribution of runes
// actually observed in it. Empty and single-symbol strings score 0. The
// result depends only on symbol frequencies, not on their order.
func Shannon(s string) Score {
	if s == "" {
		return Score{}
	}

	counts := make(map[rune]int)
	total := 0
	for _, r := range s {
		counts[r]++
		total++
	}

	if len(counts) == 1 {
		return Score{Bits: 0, Alphabet: 1}
	}

	// Sum in sorted symbol order: map iteration order is randomized and
	// float addition is not associative, so an unordered sum would make
	// identical input score bit-for-bit differently across calls.
	symbols := make([]rune, 0, len(counts))
	for r := range counts {
		symbols = append(symbols, r)
	}
	sort.Slice(symbols, func(i, j int) bool { return symbols[i] < symbols[j] })

	entropy := 0.0
	for _, r := range symbols {
		p := float64(counts[r]) / float64(total)
		entropy -= p * math.Log2(p)
	}

	return Score{Bits: entropy, Alphabet: len(counts)}
}
