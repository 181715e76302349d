// Package sim is a general-purpose lossless file compressor built around a
// self-describing container format and a phrase-aware Huffman codec.
//
// Files are compressed into .sim containers that record the algorithm,
// compression level, an integrity digest over the original bytes, and any
// codec side tables, so a container decodes with no knowledge of how it was
// produced. Large files stream through the pipeline in fixed-size chunks;
// peak memory stays flat regardless of file size.
//
// # Features
//
//   - 8 backends: huffman, zlib, gzip, lzma, zstd, brotli, snappy, lz4
//   - Auto selection: text-like input takes the built-in huffman codec,
//     binary input falls to lzma or zlib by size
//   - Phrase mode: frequent multi-byte sequences become Huffman symbols
//   - sha256 or crc32 integrity verification on decompression
//   - Deterministic output: same input and config, byte-identical container
//   - Cooperative cancellation between chunks via context
//
// # Quick Start
//
//	import (
//	    "context"
//
//	    "github.com/simfile/sim"
//	)
//
//	// Compress with defaults: auto algorithm, sha256 integrity.
//	err := sim.Save(context.Background(), "notes.txt", "notes.txt.sim", nil)
//
//	// Restore the exact original bytes.
//	data, err := sim.Load(context.Background(), "notes.txt.sim")
//
//	// Or restore straight to a file.
//	err = sim.Extract(context.Background(), "notes.txt.sim", "notes.txt")
//
// # Algorithm Selection Guide
//
// Choose based on your requirements:
//
//   - General Purpose: auto - classifies the input and picks for it
//   - Text / Source Code: huffman with PhraseMode - exploits recurring words
//   - Maximum Compression: lzma (level 9) - best ratio on binary data
//   - Maximum Speed: snappy or lz4 - fast, moderate compression
//   - Maximum Compatibility: gzip - universally supported payload format
//
// The chosen backend is recorded in the container header, so decompression
// never re-runs the heuristic.
//
// # Custom Filesystems
//
// Pipelines run against any absfs.Filer. The default is the host
// filesystem; NewMemFS provides an in-memory one for tests:
//
//	p, _ := sim.New(sim.NewMemFS(), sim.TextConfig())
//	err := p.Save(ctx, "in.txt", "in.txt.sim")
package sim
