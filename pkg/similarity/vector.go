package similarity

// Vectors holds two frequency vectors indexed by the same vocabulary.
// A[i] and B[i] are the counts of Vocabulary[i] in the first and second text.
type Vectors struct {
	Vocabulary []string
	A          []int
	B          []int
}

// NewVectors tokenizes both texts and builds index-aligned frequency vectors.
// The vocabulary is ordered by first appearance, text1 before text2, so the
// result is deterministic for identical inputs.
func NewVectors(text1, text2 string) Vectors {
	tokens1 := Tokenize(text1)
	tokens2 := Tokenize(text2)

	freq1 := frequencies(tokens1)
	freq2 := frequencies(tokens2)

	vocab := make([]string, 0, len(freq1)+len(freq2))
	seen := make(map[string]struct{}, len(freq1)+len(freq2))
	for _, tokens := range [][]string{tokens1, tokens2} {
		for _, t := range tokens {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			vocab = append(vocab, t)
		}
	}

	v := Vectors{
		Vocabulary: vocab,
		A:          make([]int, len(vocab)),
		B:          make([]int, len(vocab)),
	}
	for i, term := range vocab {
		v.A[i] = freq1[term]
		v.B[i] = freq2[term]
	}
	return v
}

func frequencies(tokens []string) map[string]int {
	m := make(map[string]int, len(tokens))
	for _, t := range tokens {
		m[t]++
	}
	return m
}
