// Package huffman implements the phrase-aware Huffman codec used by the .sim
// container format.
//
// The coding alphabet starts with the 256 literal byte values. In phrase mode
// a Dictionary promotes frequently repeated byte sequences to additional
// symbols, so common phrases cost a single code instead of one code per byte.
// Literal bytes always remain first-class symbols, which keeps arbitrary
// binary content representable even when a dictionary is active.
//
// Codes are canonical: only the per-symbol code lengths are serialized (see
// MarshalSideTable) and both sides derive identical codes from them, with
// ties broken by symbol value. Tree construction breaks frequency ties by
// insertion order, so the same input always produces the same bitstream.
package huffman

import "errors"

// Symbol is one unit of the coding alphabet. Values below PhraseBase are
// literal bytes; values at or above it index a Dictionary entry.
type Symbol uint32

// PhraseBase is the first symbol value reserved for dictionary phrases.
const PhraseBase = 256

// MaxPhrases caps the number of dictionary entries so that the alphabet
// (256 literals + phrases) stays well inside the serialized uint16 range.
const MaxPhrases = 1 << 12

var (
	// ErrInsufficientData reports that model or dictionary building was
	// attempted on an empty sample.
	ErrInsufficientData = errors.New("huffman: insufficient data to build model")

	// ErrCorruptStream reports a bitstream or side table that cannot be
	// decoded: a code path leaving the tree, a phrase index out of range,
	// or a stream that ends mid-symbol.
	ErrCorruptStream = errors.New("huffman: corrupt compressed stream")
)
