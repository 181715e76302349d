package sim

import (
	"bytes"
	"io"
)

// CompressBytes compresses a byte slice in one shot with an explicit
// backend. The huffman backend is not served here: it needs the model pass
// and container side table that only Save provides.
func CompressBytes(data []byte, algo Algorithm, level int) ([]byte, error) {
	var buf bytes.Buffer
	compressor, err := createCompressor(algo, &buf, level)
	if err != nil {
		return nil, err
	}
	if _, err := compressor.Write(data); err != nil {
		compressor.Close()
		return nil, err
	}
	if err := compressor.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecompressBytes reverses CompressBytes for the same backend.
func DecompressBytes(data []byte, algo Algorithm) ([]byte, error) {
	decompressor, err := createDecompressor(algo, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer decompressor.Close()
	return io.ReadAll(decompressor)
}

// CompressionPercentage returns the space saved as a percentage of the
// original size: (1 - compressed/original) * 100. Negative when the
// compressed form grew; 0 for an empty original.
func CompressionPercentage(originalSize, compressedSize int64) float64 {
	if originalSize == 0 {
		return 0
	}
	return (1 - float64(compressedSize)/float64(originalSize)) * 100
}
