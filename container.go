package sim

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Container wire format (little-endian):
//
//	magic      [4]byte  "SIMF"
//	version    uint8
//	algorithm  uint8
//	level      uint8
//	integrity  uint8
//	digest     [0|4|32]byte     width by integrity kind
//	origLen    uint64           original byte count
//	compLen    uint64           compressed payload byte count
//	sideLen    uint32
//	sideTable  [sideLen]byte    codec side data (huffman: dictionary + code
//	                            lengths); empty for external backends
//	payload    [compLen]byte
//
// The header alone determines how to decode the payload; neither the
// original file nor the selection heuristic is ever consulted again.
const (
	containerMagic   = "SIMF"
	containerVersion = 1

	// maxSideTable bounds side table reads so a hostile header cannot ask
	// for an arbitrary allocation.
	maxSideTable = 16 << 20
)

// Header describes one .sim container. It is created once at compression
// time and is immutable after being written.
type Header struct {
	Algorithm        Algorithm
	Level            int
	Integrity        IntegrityKind
	Digest           []byte
	OriginalLength   uint64
	CompressedLength uint64
	SideTable        []byte
}

// Size returns the encoded header length in bytes. The payload starts at
// this offset.
func (h *Header) Size() int64 {
	return int64(4+1+1+1+1) + int64(digestSize(h.Integrity)) + 8 + 8 + 4 + int64(len(h.SideTable))
}

// WriteTo serializes the header. The pipeline calls it twice per file: once
// up front with a zeroed digest and zeroed lengths, and once more over the
// same bytes after streaming, when the real values are known. Both passes
// produce the same size, so the rewrite is in place.
func (h *Header) WriteTo(w io.Writer) (int64, error) {
	algoID, ok := algorithmIDs[h.Algorithm]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, h.Algorithm)
	}
	kindID, ok := integrityIDs[h.Integrity]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedIntegrity, h.Integrity)
	}
	if len(h.Digest) != digestSize(h.Integrity) {
		return 0, fmt.Errorf("%w: digest is %d bytes, %s needs %d",
			ErrFormat, len(h.Digest), h.Integrity, digestSize(h.Integrity))
	}
	if len(h.SideTable) > maxSideTable {
		return 0, fmt.Errorf("%w: side table of %d bytes exceeds limit", ErrFormat, len(h.SideTable))
	}

	buf := make([]byte, 0, h.Size())
	buf = append(buf, containerMagic...)
	buf = append(buf, containerVersion, algoID, uint8(h.Level), kindID)
	buf = append(buf, h.Digest...)
	buf = binary.LittleEndian.AppendUint64(buf, h.OriginalLength)
	buf = binary.LittleEndian.AppendUint64(buf, h.CompressedLength)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(h.SideTable)))
	buf = append(buf, h.SideTable...)

	n, err := w.Write(buf)
	if err != nil {
		return int64(n), fmt.Errorf("sim: write container header: %w", err)
	}
	if n != len(buf) {
		return int64(n), fmt.Errorf("sim: write container header: %w", io.ErrShortWrite)
	}
	return int64(n), nil
}

// ReadFrom parses and validates a header, leaving r positioned at the first
// payload byte. Truncation and malformed fields surface as ErrFormat; the
// reader's own failures pass through wrapped.
func (h *Header) ReadFrom(r io.Reader) (int64, error) {
	var total int64
	readFull := func(p []byte, what string) error {
		n, err := io.ReadFull(r, p)
		total += int64(n)
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return fmt.Errorf("%w: container truncated in %s at offset %d", ErrFormat, what, total)
		}
		if err != nil {
			return fmt.Errorf("sim: read container %s: %w", what, err)
		}
		return nil
	}

	fixed := make([]byte, 8)
	if err := readFull(fixed, "header"); err != nil {
		return total, err
	}
	if string(fixed[:4]) != containerMagic {
		return total, fmt.Errorf("%w: bad magic %q", ErrFormat, fixed[:4])
	}
	if fixed[4] != containerVersion {
		return total, fmt.Errorf("%w: unsupported version %d", ErrFormat, fixed[4])
	}
	algo, ok := algorithmsByID[fixed[5]]
	if !ok {
		return total, fmt.Errorf("%w: unknown algorithm id %d", ErrFormat, fixed[5])
	}
	kind, ok := integrityByID[fixed[7]]
	if !ok {
		return total, fmt.Errorf("%w: unknown integrity id %d", ErrFormat, fixed[7])
	}

	tmp := Header{
		Algorithm: algo,
		Level:     int(fixed[6]),
		Integrity: kind,
	}
	tmp.Digest = make([]byte, digestSize(kind))
	if err := readFull(tmp.Digest, "digest"); err != nil {
		return total, err
	}

	lengths := make([]byte, 8+8+4)
	if err := readFull(lengths, "lengths"); err != nil {
		return total, err
	}
	tmp.OriginalLength = binary.LittleEndian.Uint64(lengths[0:8])
	tmp.CompressedLength = binary.LittleEndian.Uint64(lengths[8:16])
	sideLen := binary.LittleEndian.Uint32(lengths[16:20])
	if sideLen > maxSideTable {
		return total, fmt.Errorf("%w: side table of %d bytes exceeds limit", ErrFormat, sideLen)
	}
	tmp.SideTable = make([]byte, sideLen)
	if err := readFull(tmp.SideTable, "side table"); err != nil {
		return total, err
	}

	*h = tmp
	return total, nil
}
