package huffman

import (
	"bytes"
	"sort"
)

// phraseCost estimates the encoded size of one phrase occurrence in bytes.
// Ranking subtracts it from the phrase length, so only phrases that are
// expected to shrink the output survive.
const phraseCost = 2

// maxPhraseTokens bounds how many consecutive words a single phrase may span.
const maxPhraseTokens = 4

// Dictionary is a frozen, ordered set of phrases promoted to coding symbols.
// Index i corresponds to Symbol(PhraseBase + i). A nil Dictionary behaves
// like an empty one.
type Dictionary struct {
	phrases [][]byte
	root    *trieNode
	maxLen  int
}

type trieNode struct {
	next   map[byte]*trieNode
	phrase int // 1-based phrase index terminating here; 0 means none
}

// BuildDictionary mines sample for repeated byte sequences worth promoting to
// symbols. Candidates are runs of up to four consecutive words (split on
// whitespace and punctuation, optionally including the single separator byte
// that follows) whose length lies in [minLen, maxLen]. Candidates are ranked
// by estimated savings, occurrences*(length-cost), and the best maxPhrases
// survive. Ties rank byte-lexicographically, so the build is deterministic.
//
// An empty sample returns ErrInsufficientData. A sample with no profitable
// repeats returns an empty dictionary, which degrades the codec to plain
// byte-level Huffman.
func BuildDictionary(sample []byte, maxPhrases, minLen, maxLen int) (*Dictionary, error) {
	if len(sample) == 0 {
		return nil, ErrInsufficientData
	}
	if maxPhrases > MaxPhrases {
		maxPhrases = MaxPhrases
	}
	if maxPhrases <= 0 || minLen > len(sample) {
		return &Dictionary{}, nil
	}
	if minLen < 1 {
		minLen = 1
	}
	if maxLen < minLen {
		maxLen = minLen
	}

	counts := countCandidates(sample, minLen, maxLen)

	type candidate struct {
		phrase  string
		savings int
	}
	ranked := make([]candidate, 0, len(counts))
	for phrase, n := range counts {
		if n < 2 {
			continue
		}
		savings := n * (len(phrase) - phraseCost)
		if savings <= 0 {
			continue
		}
		ranked = append(ranked, candidate{phrase: phrase, savings: savings})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].savings != ranked[j].savings {
			return ranked[i].savings > ranked[j].savings
		}
		return ranked[i].phrase < ranked[j].phrase
	})
	if len(ranked) > maxPhrases {
		ranked = ranked[:maxPhrases]
	}

	phrases := make([][]byte, len(ranked))
	for i, c := range ranked {
		phrases[i] = []byte(c.phrase)
	}
	return newDictionary(phrases)
}

// countCandidates counts exact occurrences of every word-run candidate.
// Overlapping and nested occurrences all count; mining is a greedy estimate,
// not an optimal parse.
func countCandidates(sample []byte, minLen, maxLen int) map[string]int {
	type span struct{ start, end int }
	var words []span
	inWord := false
	start := 0
	for i, b := range sample {
		if isWordBoundary(b) {
			if inWord {
				words = append(words, span{start, i})
				inWord = false
			}
			continue
		}
		if !inWord {
			start = i
			inWord = true
		}
	}
	if inWord {
		words = append(words, span{start, len(sample)})
	}

	counts := make(map[string]int)
	add := func(lo, hi int) {
		if n := hi - lo; n >= minLen && n <= maxLen {
			counts[string(sample[lo:hi])]++
		}
	}
	for i, w := range words {
		for n := 1; n <= maxPhraseTokens && i+n <= len(words); n++ {
			end := words[i+n-1].end
			add(w.start, end)
			// Include the single separator byte after the run; phrases
			// like "the " compress running text better than "the".
			if end < len(sample) && isWordBoundary(sample[end]) {
				add(w.start, end+1)
			}
		}
	}
	return counts
}

func isWordBoundary(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\v', '\f',
		'.', ',', ';', ':', '!', '?', '"', '\'', '(', ')', '[', ']', '{', '}', '<', '>', '/', '\\':
		return true
	}
	return false
}

// newDictionary freezes phrases (in the given order) and builds the lookup
// trie. Duplicate or empty phrases are rejected by construction upstream;
// here they would only waste a slot, never corrupt matching.
func newDictionary(phrases [][]byte) (*Dictionary, error) {
	d := &Dictionary{phrases: phrases, root: &trieNode{}}
	for i, p := range phrases {
		if len(p) > d.maxLen {
			d.maxLen = len(p)
		}
		node := d.root
		for _, b := range p {
			if node.next == nil {
				node.next = make(map[byte]*trieNode)
			}
			child := node.next[b]
			if child == nil {
				child = &trieNode{}
				node.next[b] = child
			}
			node = child
		}
		node.phrase = i + 1
	}
	return d, nil
}

// Len returns the number of phrases. Safe on a nil dictionary.
func (d *Dictionary) Len() int {
	if d == nil {
		return 0
	}
	return len(d.phrases)
}

// Phrase returns the bytes of entry i. The returned slice is owned by the
// dictionary and must not be modified.
func (d *Dictionary) Phrase(i int) []byte {
	return d.phrases[i]
}

// MaxPhraseLen returns the length of the longest phrase, 0 when empty.
func (d *Dictionary) MaxPhraseLen() int {
	if d == nil {
		return 0
	}
	return d.maxLen
}

// matchLongest returns the index and length of the longest phrase prefixing
// data, or (-1, 0) when no phrase matches.
func (d *Dictionary) matchLongest(data []byte) (int, int) {
	best, bestLen := -1, 0
	node := d.root
	for i := 0; i < len(data); i++ {
		if node.next == nil {
			break
		}
		node = node.next[data[i]]
		if node == nil {
			break
		}
		if node.phrase > 0 {
			best, bestLen = node.phrase-1, i+1
		}
	}
	return best, bestLen
}

// scan walks data with greedy longest-match substitution, invoking fn for
// every produced symbol. When final is false the scan stops early enough
// that no potential match is truncated by the end of data, and returns the
// number of bytes consumed. The transformation depends only on the byte
// sequence, never on how it was chunked.
func (d *Dictionary) scan(data []byte, final bool, fn func(Symbol) error) (int, error) {
	if d == nil || len(d.phrases) == 0 {
		for _, b := range data {
			if err := fn(Symbol(b)); err != nil {
				return 0, err
			}
		}
		return len(data), nil
	}

	limit := len(data)
	if !final {
		limit -= d.maxLen - 1
		if limit < 0 {
			limit = 0
		}
	}
	i := 0
	for i < limit {
		idx, n := d.matchLongest(data[i:])
		if idx >= 0 {
			if err := fn(Symbol(PhraseBase + idx)); err != nil {
				return i, err
			}
			i += n
			continue
		}
		if err := fn(Symbol(data[i])); err != nil {
			return i, err
		}
		i++
	}
	return i, nil
}

// equal reports whether two dictionaries hold the same phrases in the same
// order. Used by tests.
func (d *Dictionary) equal(o *Dictionary) bool {
	if d.Len() != o.Len() {
		return false
	}
	for i := 0; i < d.Len(); i++ {
		if !bytes.Equal(d.Phrase(i), o.Phrase(i)) {
			return false
		}
	}
	return true
}
