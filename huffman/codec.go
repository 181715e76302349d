package huffman

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/icza/bitio"
)

// Encoder writes the canonical-code bitstream for a byte stream. It
// implements io.WriteCloser: Write accepts arbitrary chunking, Close flushes
// the final symbols and pads the last byte with zero bits.
//
// Phrase substitution is greedy longest-match and happens inside the
// encoder, so chunk boundaries can never split a phrase: the encoder holds
// back up to one maximum phrase length of pending bytes until more input or
// Close decides their parse.
type Encoder struct {
	bw      *bitio.Writer
	table   *CodeTable
	dict    *Dictionary
	pending []byte
	closed  bool
}

// NewEncoder returns an encoder emitting codes from table, substituting
// phrases from dict (nil for plain byte symbols), into w.
func NewEncoder(w io.Writer, table *CodeTable, dict *Dictionary) *Encoder {
	return &Encoder{
		bw:    bitio.NewWriter(w),
		table: table,
		dict:  dict,
	}
}

func (e *Encoder) emit(s Symbol) error {
	code, n := e.table.Code(s)
	if n == 0 {
		return fmt.Errorf("%w: symbol %d has no code", ErrCorruptStream, s)
	}
	return e.bw.WriteBits(code, n)
}

// Write buffers p and encodes every byte whose longest-match parse can no
// longer be changed by future input. It never returns a short count without
// an error.
func (e *Encoder) Write(p []byte) (int, error) {
	if e.closed {
		return 0, fmt.Errorf("huffman: write after close")
	}
	e.pending = append(e.pending, p...)
	done, err := e.dict.scan(e.pending, false, e.emit)
	if err != nil {
		return 0, err
	}
	if done > 0 {
		rest := copy(e.pending, e.pending[done:])
		e.pending = e.pending[:rest]
	}
	return len(p), nil
}

// Close encodes the held-back tail and flushes the bit writer, padding the
// final byte with zero bits. The underlying writer is not closed.
func (e *Encoder) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	if _, err := e.dict.scan(e.pending, true, e.emit); err != nil {
		return err
	}
	e.pending = nil
	return e.bw.Close()
}

// Decoder reads a canonical-code bitstream back into bytes. It implements
// io.Reader and reports io.EOF after exactly originalLen decoded bytes,
// once the padding bits rounding out the final byte have been checked to
// be zero the way Close wrote them.
type Decoder struct {
	br         *bitio.Reader
	root       *decodeNode
	dict       *Dictionary
	remaining  uint64
	bits       uint64 // bits consumed decoding symbols
	padChecked bool
	leftover   []byte // tail of a phrase that did not fit the caller's buffer
}

// NewDecoder returns a decoder for a stream of originalLen decoded bytes.
// The table and dict must be the ones reconstructed from the side table
// that accompanied the stream.
func NewDecoder(r io.Reader, table *CodeTable, dict *Dictionary, originalLen uint64) (*Decoder, error) {
	root, err := table.decodeTree()
	if err != nil {
		return nil, err
	}
	if root == nil && originalLen > 0 {
		return nil, fmt.Errorf("%w: empty code table for %d bytes", ErrCorruptStream, originalLen)
	}
	return &Decoder{
		br:        bitio.NewReader(r),
		root:      root,
		dict:      dict,
		remaining: originalLen,
	}, nil
}

// next walks the tree one bit at a time until a leaf.
func (d *Decoder) next() (Symbol, error) {
	node := d.root
	for !node.leaf {
		bit, err := d.br.ReadBool()
		if err != nil {
			return 0, fmt.Errorf("%w: stream ended mid-symbol", ErrCorruptStream)
		}
		d.bits++
		if bit {
			node = node.child[1]
		} else {
			node = node.child[0]
		}
		if node == nil {
			return 0, fmt.Errorf("%w: bit path leaves the code tree", ErrCorruptStream)
		}
	}
	return node.sym, nil
}

// checkPadding runs once the last symbol is decoded and rejects set bits in
// the remainder of the final byte. Digests cover the decoded bytes, so
// padding damage is invisible to them.
func (d *Decoder) checkPadding() error {
	pad := uint8((8 - d.bits%8) % 8)
	if pad == 0 {
		return nil
	}
	got, err := d.br.ReadBits(pad)
	if err != nil {
		return fmt.Errorf("%w: stream ended inside final-byte padding", ErrCorruptStream)
	}
	if got != 0 {
		return fmt.Errorf("%w: nonzero padding after final symbol", ErrCorruptStream)
	}
	return nil
}

func (d *Decoder) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if len(d.leftover) > 0 {
			c := copy(p[n:], d.leftover)
			d.leftover = d.leftover[c:]
			n += c
			continue
		}
		if d.remaining == 0 {
			if !d.padChecked {
				d.padChecked = true
				if err := d.checkPadding(); err != nil {
					return n, err
				}
			}
			if n > 0 {
				return n, nil
			}
			return 0, io.EOF
		}
		sym, err := d.next()
		if err != nil {
			return n, err
		}
		if sym < PhraseBase {
			p[n] = byte(sym)
			n++
			d.remaining--
			continue
		}
		idx := int(sym - PhraseBase)
		if idx >= d.dict.Len() {
			return n, fmt.Errorf("%w: phrase index %d out of range", ErrCorruptStream, idx)
		}
		phrase := d.dict.Phrase(idx)
		if uint64(len(phrase)) > d.remaining {
			return n, fmt.Errorf("%w: phrase overruns declared length", ErrCorruptStream)
		}
		d.remaining -= uint64(len(phrase))
		c := copy(p[n:], phrase)
		n += c
		if c < len(phrase) {
			d.leftover = append(d.leftover[:0], phrase[c:]...)
		}
	}
	return n, nil
}

// Side table layout (little-endian), consumed by UnmarshalSideTable:
//
//	flags     uint8   bit0 phrase mode, bit1 empty alphabet
//	dictCount uint16  (phrase mode only)
//	entries   dictCount × { length uint16, bytes }
//	alphabet  uint32  (absent when empty) = 256 + dictCount
//	lengths   alphabet × uint8 canonical code lengths, 0 = unused
const (
	sideFlagPhrase = 1 << 0
	sideFlagEmpty  = 1 << 1
)

// MarshalSideTable serializes everything a decoder needs to rebuild table
// and dict without rescanning the input: the phrase entries and the
// canonical code lengths. phraseMode is recorded even when mining produced
// no entries.
func MarshalSideTable(table *CodeTable, dict *Dictionary, phraseMode bool) ([]byte, error) {
	if dict.Len() > MaxPhrases {
		return nil, fmt.Errorf("huffman: dictionary too large: %d entries", dict.Len())
	}

	var buf []byte
	flags := uint8(0)
	if phraseMode {
		flags |= sideFlagPhrase
	}
	empty := table.SymbolCount() == 0
	if empty {
		flags |= sideFlagEmpty
	}
	buf = append(buf, flags)

	if phraseMode {
		buf = binary.LittleEndian.AppendUint16(buf, uint16(dict.Len()))
		for i := 0; i < dict.Len(); i++ {
			p := dict.Phrase(i)
			if len(p) == 0 || len(p) > 1<<16-1 {
				return nil, fmt.Errorf("huffman: phrase %d has invalid length %d", i, len(p))
			}
			buf = binary.LittleEndian.AppendUint16(buf, uint16(len(p)))
			buf = append(buf, p...)
		}
	}
	if empty {
		return buf, nil
	}

	lengths := table.Lengths()
	want := PhraseBase + dict.Len()
	if len(lengths) != want {
		return nil, fmt.Errorf("huffman: table covers %d symbols, alphabet is %d", len(lengths), want)
	}
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(lengths)))
	buf = append(buf, lengths...)
	return buf, nil
}

// UnmarshalSideTable reverses MarshalSideTable, validating every field. The
// empty marker yields a zero-symbol table that can only accompany a
// zero-length stream.
func UnmarshalSideTable(b []byte) (*CodeTable, *Dictionary, error) {
	if len(b) < 1 {
		return nil, nil, fmt.Errorf("%w: side table too short", ErrCorruptStream)
	}
	flags := b[0]
	b = b[1:]
	if flags&^(sideFlagPhrase|sideFlagEmpty) != 0 {
		return nil, nil, fmt.Errorf("%w: unknown side table flags %#x", ErrCorruptStream, flags)
	}

	var dict *Dictionary
	if flags&sideFlagPhrase != 0 {
		if len(b) < 2 {
			return nil, nil, fmt.Errorf("%w: side table truncated in dictionary count", ErrCorruptStream)
		}
		count := int(binary.LittleEndian.Uint16(b))
		b = b[2:]
		if count > MaxPhrases {
			return nil, nil, fmt.Errorf("%w: dictionary count %d out of range", ErrCorruptStream, count)
		}
		phrases := make([][]byte, count)
		for i := 0; i < count; i++ {
			if len(b) < 2 {
				return nil, nil, fmt.Errorf("%w: side table truncated in phrase %d", ErrCorruptStream, i)
			}
			n := int(binary.LittleEndian.Uint16(b))
			b = b[2:]
			if n == 0 || len(b) < n {
				return nil, nil, fmt.Errorf("%w: side table truncated in phrase %d", ErrCorruptStream, i)
			}
			phrases[i] = append([]byte(nil), b[:n]...)
			b = b[n:]
		}
		var err error
		dict, err = newDictionary(phrases)
		if err != nil {
			return nil, nil, err
		}
	}

	if flags&sideFlagEmpty != 0 {
		if len(b) != 0 {
			return nil, nil, fmt.Errorf("%w: %d trailing side table bytes", ErrCorruptStream, len(b))
		}
		return &CodeTable{}, dict, nil
	}

	if len(b) < 4 {
		return nil, nil, fmt.Errorf("%w: side table truncated in alphabet size", ErrCorruptStream)
	}
	alphabet := int(binary.LittleEndian.Uint32(b))
	b = b[4:]
	if alphabet != PhraseBase+dict.Len() {
		return nil, nil, fmt.Errorf("%w: alphabet %d does not match dictionary of %d", ErrCorruptStream, alphabet, dict.Len())
	}
	if len(b) != alphabet {
		return nil, nil, fmt.Errorf("%w: side table has %d length bytes, want %d", ErrCorruptStream, len(b), alphabet)
	}
	lengths := append([]uint8(nil), b...)
	table, err := NewCodeTableFromLengths(lengths)
	if err != nil {
		return nil, nil, err
	}
	return table, dict, nil
}
