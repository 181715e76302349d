package huffman

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func buildTable(t *testing.T, data []byte, dict *Dictionary) *CodeTable {
	t.Helper()
	table, err := BuildCodeTable(BuildModel(data, dict, false))
	if err != nil {
		t.Fatalf("BuildCodeTable failed: %v", err)
	}
	return table
}

func encodeAll(t *testing.T, data []byte, table *CodeTable, dict *Dictionary, chunk int) []byte {
	t.Helper()
	var buf bytes.Buffer
	enc := NewEncoder(&buf, table, dict)
	for off := 0; off < len(data); off += chunk {
		end := off + chunk
		if end > len(data) {
			end = len(data)
		}
		if _, err := enc.Write(data[off:end]); err != nil {
			t.Fatalf("Encoder.Write failed: %v", err)
		}
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Encoder.Close failed: %v", err)
	}
	return buf.Bytes()
}

func decodeAll(t *testing.T, comp []byte, table *CodeTable, dict *Dictionary, origLen int) []byte {
	t.Helper()
	dec, err := NewDecoder(bytes.NewReader(comp), table, dict, uint64(origLen))
	if err != nil {
		t.Fatalf("NewDecoder failed: %v", err)
	}
	out, err := io.ReadAll(dec)
	if err != nil {
		t.Fatalf("Decoder read failed: %v", err)
	}
	return out
}

func allByteValues() []byte {
	out := make([]byte, 256)
	for i := range out {
		out[i] = byte(i)
	}
	return out
}

func TestRoundTripPlainBytes(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"text", []byte("hello, huffman world")},
		{"single byte", []byte{'x'}},
		{"two distinct", []byte{0x00, 0xff}},
		{"repeated", bytes.Repeat([]byte{'a'}, 1000)},
		{"every byte value", allByteValues()},
		{"binary", []byte{0, 1, 2, 0, 1, 2, 255, 254, 0, 0, 128}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := buildTable(t, tt.data, nil)
			comp := encodeAll(t, tt.data, table, nil, 7)
			got := decodeAll(t, comp, table, nil, len(tt.data))
			if !bytes.Equal(got, tt.data) {
				t.Fatalf("Round trip mismatch: got %d bytes, want %d", len(got), len(tt.data))
			}
		})
	}
}

func TestRoundTripEmptyInput(t *testing.T) {
	table := buildTable(t, nil, nil)
	comp := encodeAll(t, nil, table, nil, 1)
	if len(comp) != 0 {
		t.Fatalf("Empty input should produce an empty stream, got %d bytes", len(comp))
	}
	got := decodeAll(t, comp, table, nil, 0)
	if len(got) != 0 {
		t.Fatalf("Expected no decoded bytes, got %d", len(got))
	}
}

func TestRoundTripPhraseMode(t *testing.T) {
	data := []byte("the cat sat on the mat")
	dict, err := BuildDictionary(data, 16, 3, 16)
	if err != nil {
		t.Fatalf("BuildDictionary failed: %v", err)
	}
	if dict.Len() == 0 {
		t.Fatal("Expected a non-empty dictionary")
	}

	table := buildTable(t, data, dict)
	comp := encodeAll(t, data, table, dict, 5)
	got := decodeAll(t, comp, table, dict, len(data))
	if !bytes.Equal(got, data) {
		t.Fatalf("Phrase round trip mismatch: %q != %q", got, data)
	}

	// Phrase substitution should beat plain byte coding on this input.
	plainTable := buildTable(t, data, nil)
	plain := encodeAll(t, data, plainTable, nil, 5)
	if len(comp) >= len(plain) {
		t.Fatalf("Phrase stream (%d bytes) not smaller than plain stream (%d bytes)", len(comp), len(plain))
	}
}

func TestRoundTripPhraseModeBinaryContent(t *testing.T) {
	// A dictionary mined from text must not break arbitrary binary bytes:
	// literals stay first-class symbols.
	data := append([]byte("status status status "), allByteValues()...)
	dict, err := BuildDictionary(data, 16, 3, 16)
	if err != nil {
		t.Fatalf("BuildDictionary failed: %v", err)
	}
	table := buildTable(t, data, dict)
	comp := encodeAll(t, data, table, dict, 3)
	got := decodeAll(t, comp, table, dict, len(data))
	if !bytes.Equal(got, data) {
		t.Fatal("Binary content did not survive phrase mode")
	}
}

func TestEncoderChunkingProducesIdenticalStream(t *testing.T) {
	data := []byte(strings.Repeat("it was the best of times, it was the worst of times ", 4))
	dict, err := BuildDictionary(data, 32, 3, 24)
	if err != nil {
		t.Fatalf("BuildDictionary failed: %v", err)
	}
	table := buildTable(t, data, dict)

	whole := encodeAll(t, data, table, dict, len(data))
	for _, chunk := range []int{1, 2, 3, 9, 16, 61} {
		split := encodeAll(t, data, table, dict, chunk)
		if !bytes.Equal(whole, split) {
			t.Fatalf("Chunk size %d changed the bitstream", chunk)
		}
	}
}

func TestEncoderWriteAfterClose(t *testing.T) {
	table := buildTable(t, []byte("ab"), nil)
	enc := NewEncoder(io.Discard, table, nil)
	if err := enc.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := enc.Write([]byte("a")); err == nil {
		t.Fatal("Expected an error writing after Close")
	}
}

func TestDecoderTruncatedStream(t *testing.T) {
	data := []byte("truncation is never silent, truncation always errors")
	table := buildTable(t, data, nil)
	comp := encodeAll(t, data, table, nil, 8)

	for _, cut := range []int{0, 1, len(comp) / 2, len(comp) - 1} {
		dec, err := NewDecoder(bytes.NewReader(comp[:cut]), table, nil, uint64(len(data)))
		if err != nil {
			t.Fatalf("NewDecoder failed: %v", err)
		}
		if _, err := io.ReadAll(dec); !errors.Is(err, ErrCorruptStream) {
			t.Fatalf("Cut at %d: expected ErrCorruptStream, got %v", cut, err)
		}
	}
}

func TestDecoderRejectsNonzeroPadding(t *testing.T) {
	// Nine one-bit codes fill one byte and one bit: the second byte carries
	// the last symbol and seven padding bits.
	data := bytes.Repeat([]byte{'z'}, 9)
	table := buildTable(t, data, nil)
	comp := encodeAll(t, data, table, nil, 4)
	if len(comp) != 2 {
		t.Fatalf("Expected a 2-byte stream, got %d bytes", len(comp))
	}
	if got := decodeAll(t, comp, table, nil, len(data)); !bytes.Equal(got, data) {
		t.Fatalf("Round trip mismatch: %q != %q", got, data)
	}

	// Set a padding bit. Every symbol still decodes to the same bytes, so
	// only the padding check can reject the stream.
	comp[1] |= 0x01
	dec, err := NewDecoder(bytes.NewReader(comp), table, nil, uint64(len(data)))
	if err != nil {
		t.Fatalf("NewDecoder failed: %v", err)
	}
	if _, err := io.ReadAll(dec); !errors.Is(err, ErrCorruptStream) {
		t.Fatalf("Expected ErrCorruptStream for nonzero padding, got %v", err)
	}
}

func TestDecoderRejectsPhraseIndexOutOfRange(t *testing.T) {
	// Two phrase symbols in the table, one entry in the dictionary. The
	// second code must be rejected, not read out of bounds.
	lengths := make([]uint8, PhraseBase+2)
	lengths[PhraseBase] = 1
	lengths[PhraseBase+1] = 1
	table, err := NewCodeTableFromLengths(lengths)
	if err != nil {
		t.Fatalf("NewCodeTableFromLengths failed: %v", err)
	}
	dict, err := newDictionary([][]byte{[]byte("ab")})
	if err != nil {
		t.Fatalf("newDictionary failed: %v", err)
	}

	// First bit 0 decodes the valid phrase, second bit 1 the invalid one.
	dec, err := NewDecoder(bytes.NewReader([]byte{0x40}), table, dict, 4)
	if err != nil {
		t.Fatalf("NewDecoder failed: %v", err)
	}
	if _, err := io.ReadAll(dec); !errors.Is(err, ErrCorruptStream) {
		t.Fatalf("Expected ErrCorruptStream, got %v", err)
	}
}

func TestDecoderRejectsEmptyTableWithLength(t *testing.T) {
	if _, err := NewDecoder(bytes.NewReader(nil), &CodeTable{}, nil, 10); !errors.Is(err, ErrCorruptStream) {
		t.Fatalf("Expected ErrCorruptStream, got %v", err)
	}
}

func TestSideTableRoundTrip(t *testing.T) {
	phraseData := []byte("over and over and over again")
	dict, err := BuildDictionary(phraseData, 8, 3, 16)
	if err != nil {
		t.Fatalf("BuildDictionary failed: %v", err)
	}

	tests := []struct {
		name       string
		data       []byte
		dict       *Dictionary
		phraseMode bool
	}{
		{"plain bytes", []byte("plain byte coding"), nil, false},
		{"phrase mode", phraseData, dict, true},
		{"phrase mode empty dictionary", []byte("x y z"), &Dictionary{}, true},
		{"empty alphabet", nil, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := buildTable(t, tt.data, tt.dict)
			side, err := MarshalSideTable(table, tt.dict, tt.phraseMode)
			if err != nil {
				t.Fatalf("MarshalSideTable failed: %v", err)
			}
			gotTable, gotDict, err := UnmarshalSideTable(side)
			if err != nil {
				t.Fatalf("UnmarshalSideTable failed: %v", err)
			}

			if gotTable.SymbolCount() != table.SymbolCount() {
				t.Fatalf("Symbol count %d, want %d", gotTable.SymbolCount(), table.SymbolCount())
			}
			// The empty marker carries no lengths array at all, so only
			// compare lengths when something was coded.
			if table.SymbolCount() > 0 {
				want := table.Lengths()
				got := gotTable.Lengths()
				if len(want) != len(got) {
					t.Fatalf("Length table size %d, want %d", len(got), len(want))
				}
				for s := range want {
					if want[s] != got[s] {
						t.Fatalf("Length for symbol %d changed: %d != %d", s, got[s], want[s])
					}
				}
			}
			if tt.dict == nil {
				if gotDict.Len() != 0 {
					t.Fatalf("Expected no dictionary, got %d entries", gotDict.Len())
				}
			} else if !gotDict.equal(tt.dict) {
				t.Fatal("Dictionary did not survive the side table")
			}
		})
	}
}

func TestSideTableDecodeAfterRebuild(t *testing.T) {
	// Full encoder/decoder cycle through the serialized side table, the way
	// the container uses it.
	data := []byte("the quick brown fox jumps over the lazy dog, the end")
	dict, err := BuildDictionary(data, 16, 3, 16)
	if err != nil {
		t.Fatalf("BuildDictionary failed: %v", err)
	}
	table := buildTable(t, data, dict)
	comp := encodeAll(t, data, table, dict, 10)

	side, err := MarshalSideTable(table, dict, true)
	if err != nil {
		t.Fatalf("MarshalSideTable failed: %v", err)
	}
	rebuiltTable, rebuiltDict, err := UnmarshalSideTable(side)
	if err != nil {
		t.Fatalf("UnmarshalSideTable failed: %v", err)
	}
	got := decodeAll(t, comp, rebuiltTable, rebuiltDict, len(data))
	if !bytes.Equal(got, data) {
		t.Fatal("Decode through a rebuilt side table lost data")
	}
}

func TestUnmarshalSideTableRejectsCorruption(t *testing.T) {
	data := []byte("same old same old same old")
	dict, err := BuildDictionary(data, 8, 3, 16)
	if err != nil {
		t.Fatalf("BuildDictionary failed: %v", err)
	}
	table := buildTable(t, data, dict)
	valid, err := MarshalSideTable(table, dict, true)
	if err != nil {
		t.Fatalf("MarshalSideTable failed: %v", err)
	}

	t.Run("empty", func(t *testing.T) {
		if _, _, err := UnmarshalSideTable(nil); !errors.Is(err, ErrCorruptStream) {
			t.Fatalf("Expected ErrCorruptStream, got %v", err)
		}
	})
	t.Run("unknown flags", func(t *testing.T) {
		if _, _, err := UnmarshalSideTable([]byte{0xfc}); !errors.Is(err, ErrCorruptStream) {
			t.Fatalf("Expected ErrCorruptStream, got %v", err)
		}
	})
	t.Run("every truncation", func(t *testing.T) {
		for cut := 0; cut < len(valid); cut++ {
			if _, _, err := UnmarshalSideTable(valid[:cut]); !errors.Is(err, ErrCorruptStream) {
				t.Fatalf("Prefix of %d bytes: expected ErrCorruptStream, got %v", cut, err)
			}
		}
	})
	t.Run("trailing bytes", func(t *testing.T) {
		grown := append(append([]byte(nil), valid...), 0x00)
		if _, _, err := UnmarshalSideTable(grown); !errors.Is(err, ErrCorruptStream) {
			t.Fatalf("Expected ErrCorruptStream, got %v", err)
		}
	})
}
