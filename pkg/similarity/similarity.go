// Package similarity scores the lexical overlap of two texts as the cosine of
// their bag-of-words frequency vectors over a shared vocabulary.
package similarity

import (
	"errors"
	"math"
	"strings"
)

// errInvalidInput is returned by cosine when the vectors are not aligned.
var errInvalidInput = errors.New("similarity: invalid input: vector lengths differ")

// Score returns the cosine similarity of text1 and text2 in [0, 1].
// Empty or whitespace-only input on either side scores 0.
// Safe for concurrent use.
func Score(text1, text2 string) float64 {
	if strings.TrimSpace(text1) == "" || strings.TrimSpace(text2) == "" {
		return 0
	}

	v := NewVectors(text1, text2)
	s, err := cosine(v.A, v.B)
	if err != nil || math.IsNaN(s) || math.IsInf(s, 0) {
		return 0
	}

	// Rounding can push identical vectors a hair past 1.
	switch {
	case s < 0:
		return 0
	case s > 1:
		return 1
	}
	return s
}

// cosine computes dot(a, b) / (|a| * |b|). A zero-norm vector yields 0.
func cosine(a, b []int) (float64, error) {
	if len(a) != len(b) {
		return 0, errInvalidInput
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0, nil
	}
	return dot / denom, nil
}
