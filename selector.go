package sim

import "unicode/utf8"

const (
	// selectorSampleSize is how many leading bytes the auto selector
	// inspects. Matches the model sampling path, so selection never needs
	// a second read.
	selectorSampleSize = 4096

	// largeFileCutoff is the size above which auto trades speed for ratio
	// on binary data.
	largeFileCutoff = 10 << 20

	// huffmanSizeCutoff caps the auto huffman pick. Past this the prefix
	// sample models too small a fraction of the file for the codec to
	// stay competitive.
	huffmanSizeCutoff = 64 << 20

	// printableThreshold is the minimum printable-ASCII fraction for a
	// sample that is not valid UTF-8 to still count as text. Uniformly
	// random bytes land near 0.37.
	printableThreshold = 0.85
)

// chooseAlgorithm resolves cfg.Algorithm for a file of the given size whose
// leading bytes are sample. Explicit choices pass through untouched; only
// AlgorithmAuto inspects the data.
func chooseAlgorithm(cfg *Config, sample []byte, size int64) Algorithm {
	if cfg.Algorithm != AlgorithmAuto {
		return cfg.Algorithm
	}
	if cfg.PreferSpeed {
		return AlgorithmGzip
	}
	if isTextLike(sample) && size <= huffmanSizeCutoff {
		return AlgorithmHuffman
	}
	if size > largeFileCutoff {
		return AlgorithmLZMA
	}
	return AlgorithmZlib
}

// isTextLike reports whether sample looks like text: valid UTF-8 once a
// trailing partial rune is trimmed, or overwhelmingly printable ASCII.
// An empty sample counts as text, so empty files take the huffman path.
func isTextLike(sample []byte) bool {
	if len(sample) == 0 {
		return true
	}
	if utf8.Valid(trimPartialRune(sample)) {
		return true
	}
	printable := 0
	for _, b := range sample {
		if b == '\n' || b == '\r' || b == '\t' || (b >= 0x20 && b < 0x7f) {
			printable++
		}
	}
	return float64(printable)/float64(len(sample)) >= printableThreshold
}

// trimPartialRune drops an incomplete multi-byte sequence from the end of a
// sample cut at an arbitrary byte offset, so the cut itself cannot disqualify
// otherwise valid UTF-8.
func trimPartialRune(sample []byte) []byte {
	end := len(sample)
	for i := 0; i < utf8.UTFMax && end > 0; i++ {
		b := sample[end-1]
		if b < utf8.RuneSelf {
			break
		}
		end--
		if b&0xc0 == 0xc0 {
			// Leading byte of the partial sequence; if the sequence were
			// complete utf8.Valid would have accepted it in place.
			if !utf8.Valid(sample[end:]) {
				return sample[:end]
			}
			return sample
		}
	}
	return sample
}
