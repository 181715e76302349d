package huffman

// Model holds the symbol occurrence counts for one compression run. A model
// is built once per run and owned by the caller; nothing here is shared
// between runs.
type Model struct {
	counts []uint64 // indexed by Symbol; length 256 + dict.Len()
}

// BuildModel counts symbol occurrences over sample after greedy phrase
// substitution through dict (nil means plain byte symbols). The sum of the
// counts equals the number of symbols in the transformed sample.
//
// When sampled is true the sample is only a prefix of the real input, so
// every symbol receives one extra smoothing count: bytes and phrases that
// first appear after the sample still need a code. When sampled is false
// the counts are exact and the encoder can never meet an uncoded symbol,
// because encoding replays the same substitution over the same bytes.
func BuildModel(sample []byte, dict *Dictionary, sampled bool) *Model {
	m := &Model{counts: make([]uint64, PhraseBase+dict.Len())}
	if len(sample) > 0 {
		dict.scan(sample, true, func(s Symbol) error {
			m.counts[s]++
			return nil
		})
	}
	if sampled {
		for s := range m.counts {
			m.counts[s]++
		}
	}
	return m
}

// AlphabetSize returns the number of symbols with a nonzero count.
func (m *Model) AlphabetSize() int {
	n := 0
	for _, c := range m.counts {
		if c > 0 {
			n++
		}
	}
	return n
}
