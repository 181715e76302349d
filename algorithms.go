package sim

import (
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
)

// Algorithm identifies a compression backend.
type Algorithm string

const (
	AlgorithmAuto    Algorithm = "auto"
	AlgorithmHuffman Algorithm = "huffman"
	AlgorithmZlib    Algorithm = "zlib"
	AlgorithmGzip    Algorithm = "gzip"
	AlgorithmLZMA    Algorithm = "lzma"
	AlgorithmZstd    Algorithm = "zstd"
	AlgorithmBrotli  Algorithm = "brotli"
	AlgorithmSnappy  Algorithm = "snappy"
	AlgorithmLZ4     Algorithm = "lz4"
)

// Container ids. These are wire format, never reorder or reuse them.
var algorithmIDs = map[Algorithm]uint8{
	AlgorithmHuffman: 1,
	AlgorithmZlib:    2,
	AlgorithmGzip:    3,
	AlgorithmLZMA:    4,
	AlgorithmZstd:    5,
	AlgorithmBrotli:  6,
	AlgorithmSnappy:  7,
	AlgorithmLZ4:     8,
}

var algorithmsByID = map[uint8]Algorithm{}

func init() {
	for algo, id := range algorithmIDs {
		algorithmsByID[id] = algo
	}
}

// ParseAlgorithm converts a user-supplied name to an Algorithm.
func ParseAlgorithm(name string) (Algorithm, error) {
	algo := Algorithm(name)
	if algo == AlgorithmAuto {
		return algo, nil
	}
	if _, ok := algorithmIDs[algo]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, name)
	}
	return algo, nil
}

// createCompressor creates a streaming compressor for the specified backend.
// The huffman backend is not served here: it needs the model and side table
// that only the pipeline can provide.
func createCompressor(algo Algorithm, w io.Writer, level int) (io.WriteCloser, error) {
	if level <= 0 {
		level = defaultLevel
	}
	switch algo {
	case AlgorithmZlib:
		return zlib.NewWriterLevel(w, level)
	case AlgorithmGzip:
		return gzip.NewWriterLevel(w, level)
	case AlgorithmLZMA:
		return createLZMACompressor(w, level)
	case AlgorithmZstd:
		return zstd.NewWriter(w,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)),
			zstd.WithEncoderConcurrency(1))
	case AlgorithmBrotli:
		return brotli.NewWriterLevel(w, level), nil
	case AlgorithmSnappy:
		return snappy.NewBufferedWriter(w), nil
	case AlgorithmLZ4:
		return createLZ4Compressor(w, level)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, algo)
	}
}

// createDecompressor creates a streaming decompressor for the specified
// backend. Closing the result never closes the underlying reader.
func createDecompressor(algo Algorithm, r io.Reader) (io.ReadCloser, error) {
	switch algo {
	case AlgorithmZlib:
		return zlib.NewReader(r)
	case AlgorithmGzip:
		return gzip.NewReader(r)
	case AlgorithmLZMA:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(xr), nil
	case AlgorithmZstd:
		dec, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, err
		}
		return dec.IOReadCloser(), nil
	case AlgorithmBrotli:
		return io.NopCloser(brotli.NewReader(r)), nil
	case AlgorithmSnappy:
		return io.NopCloser(snappy.NewReader(r)), nil
	case AlgorithmLZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, algo)
	}
}

// createLZMACompressor maps the 1..9 level to an xz dictionary capacity,
// 64KiB at level 1 up to 16MiB at level 9.
func createLZMACompressor(w io.Writer, level int) (io.WriteCloser, error) {
	if level > 9 {
		level = 9
	}
	cfg := xz.WriterConfig{DictCap: 1 << (15 + uint(level))}
	return cfg.NewWriter(w)
}

var lz4Levels = [...]lz4.CompressionLevel{
	1: lz4.Fast,
	2: lz4.Level1,
	3: lz4.Level2,
	4: lz4.Level3,
	5: lz4.Level4,
	6: lz4.Level5,
	7: lz4.Level6,
	8: lz4.Level7,
	9: lz4.Level9,
}

func createLZ4Compressor(w io.Writer, level int) (io.WriteCloser, error) {
	lw := lz4.NewWriter(w)
	if level < 1 {
		level = 1
	}
	if level > 9 {
		level = 9
	}
	if err := lw.Apply(lz4.CompressionLevelOption(lz4Levels[level])); err != nil {
		return nil, err
	}
	return lw, nil
}
