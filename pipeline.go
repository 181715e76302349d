package sim

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/absfs/absfs"

	"github.com/simfile/sim/huffman"
)

// streamBufSize is the bufio size between the codec and the container file.
const streamBufSize = 64 * 1024

// maxPrealloc caps how much Load preallocates on the header's say-so. A
// lying header costs buffer growth, never an instant huge allocation.
const maxPrealloc = 1 << 30

// Pipeline compresses files into containers and restores them. A Pipeline
// is safe for concurrent use: every operation owns its model, buffers and
// file handles, and statistics are atomic.
type Pipeline struct {
	fs    absfs.Filer
	cfg   *Config
	stats Stats
}

// New creates a Pipeline over fsys. A nil fsys means the host filesystem; a
// nil cfg means DefaultConfig.
func New(fsys absfs.Filer, cfg *Config) (*Pipeline, error) {
	norm, err := cfg.normalize()
	if err != nil {
		return nil, err
	}
	if fsys == nil {
		fsys = OSFS()
	}
	return &Pipeline{fs: fsys, cfg: norm}, nil
}

// Save compresses pathIn into a container at pathOut. The backend comes
// from the config, with AlgorithmAuto resolved against the input's leading
// bytes. Cancellation is honored between chunks; on any failure the partial
// output file is removed.
func (p *Pipeline) Save(ctx context.Context, pathIn, pathOut string) error {
	in, err := p.fs.OpenFile(pathIn, os.O_RDONLY, 0)
	if err != nil {
		return fmt.Errorf("sim: open %s: %w", pathIn, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("sim: stat %s: %w", pathIn, err)
	}
	size := info.Size()

	sample, err := readPrefix(in, selectorSampleSize)
	if err != nil {
		return fmt.Errorf("sim: read %s: %w", pathIn, err)
	}
	algo := chooseAlgorithm(p.cfg, sample, size)

	var (
		table *huffman.CodeTable
		dict  *huffman.Dictionary
		side  []byte
	)
	if algo == AlgorithmHuffman {
		table, dict, side, err = p.buildModel(in, pathIn, size)
		if err != nil {
			return err
		}
	}
	if _, err := in.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("sim: rewind %s: %w", pathIn, err)
	}

	out, err := p.fs.OpenFile(pathOut, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("sim: create %s: %w", pathOut, err)
	}

	hdr := &Header{
		Algorithm: algo,
		Level:     p.cfg.Level,
		Integrity: p.cfg.Integrity,
		Digest:    make([]byte, digestSize(p.cfg.Integrity)),
		SideTable: side,
	}
	err = p.compressStream(ctx, in, out, hdr, table, dict)
	if cerr := out.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("sim: close %s: %w", pathOut, cerr)
	}
	if err != nil {
		p.fs.Remove(pathOut) // never leave a partial container behind
		return err
	}

	atomic.AddInt64(&p.stats.FilesCompressed, 1)
	atomic.AddInt64(&p.stats.BytesOriginal, int64(hdr.OriginalLength))
	atomic.AddInt64(&p.stats.BytesCompressed, int64(hdr.CompressedLength))
	p.stats.IncrementAlgorithmCount(algo)
	return nil
}

// Load reads the container at path and returns the restored bytes. On a
// digest mismatch the bytes are still returned alongside
// ErrIntegrityMismatch so the caller can decide their fate.
func (p *Pipeline) Load(ctx context.Context, path string) ([]byte, error) {
	in, err := p.fs.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("sim: open %s: %w", path, err)
	}
	defer in.Close()

	hdr, err := p.readHeader(in, path)
	if err != nil {
		return nil, err
	}

	buf := bytes.NewBuffer(nil)
	buf.Grow(int(min(hdr.OriginalLength, maxPrealloc)))
	err = p.decompressStream(ctx, in, buf, hdr)
	if err != nil {
		if errors.Is(err, ErrIntegrityMismatch) {
			return buf.Bytes(), err
		}
		return nil, err
	}

	atomic.AddInt64(&p.stats.FilesDecompressed, 1)
	atomic.AddInt64(&p.stats.BytesRestored, int64(hdr.OriginalLength))
	return buf.Bytes(), nil
}

// Extract restores the container at pathIn into a file at pathOut. Unlike
// Load it never keeps suspect data: any failure, integrity mismatch
// included, removes the output file.
func (p *Pipeline) Extract(ctx context.Context, pathIn, pathOut string) error {
	in, err := p.fs.OpenFile(pathIn, os.O_RDONLY, 0)
	if err != nil {
		return fmt.Errorf("sim: open %s: %w", pathIn, err)
	}
	defer in.Close()

	hdr, err := p.readHeader(in, pathIn)
	if err != nil {
		return err
	}

	out, err := p.fs.OpenFile(pathOut, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("sim: create %s: %w", pathOut, err)
	}
	err = p.decompressStream(ctx, in, out, hdr)
	if cerr := out.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("sim: close %s: %w", pathOut, cerr)
	}
	if err != nil {
		p.fs.Remove(pathOut)
		return err
	}

	atomic.AddInt64(&p.stats.FilesDecompressed, 1)
	atomic.AddInt64(&p.stats.BytesRestored, int64(hdr.OriginalLength))
	return nil
}

// CompressionRatio reports the space saved by a container as a percentage
// of its source: (1 - compressed/original) * 100.
func (p *Pipeline) CompressionRatio(originalPath, compressedPath string) (float64, error) {
	orig, err := p.fs.Stat(originalPath)
	if err != nil {
		return 0, fmt.Errorf("sim: stat %s: %w", originalPath, err)
	}
	comp, err := p.fs.Stat(compressedPath)
	if err != nil {
		return 0, fmt.Errorf("sim: stat %s: %w", compressedPath, err)
	}
	return CompressionPercentage(orig.Size(), comp.Size()), nil
}

// buildModel derives the huffman code table, phrase dictionary and
// serialized side table from a bounded prefix of in. Files no larger than
// the sample window are modeled exactly; larger files get every symbol's
// count bumped by one so bytes first seen past the window still have codes.
func (p *Pipeline) buildModel(in absfs.File, path string, size int64) (*huffman.CodeTable, *huffman.Dictionary, []byte, error) {
	if _, err := in.Seek(0, io.SeekStart); err != nil {
		return nil, nil, nil, fmt.Errorf("sim: rewind %s: %w", path, err)
	}
	window := p.cfg.ModelSampleSize
	sampled := size > int64(window)
	if !sampled {
		window = int(size)
	}
	sample, err := readPrefix(in, window)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("sim: read %s: %w", path, err)
	}

	var dict *huffman.Dictionary
	if p.cfg.PhraseMode {
		dict, err = huffman.BuildDictionary(sample, p.cfg.MaxPhrases, p.cfg.MinPhraseLength, p.cfg.MaxPhraseLength)
		if err != nil && !errors.Is(err, huffman.ErrInsufficientData) {
			return nil, nil, nil, err
		}
		// An empty sample cannot be mined; carry on with byte symbols.
	}

	model := huffman.BuildModel(sample, dict, sampled)
	table, err := huffman.BuildCodeTable(model)
	if err != nil {
		return nil, nil, nil, err
	}
	side, err := huffman.MarshalSideTable(table, dict, p.cfg.PhraseMode)
	if err != nil {
		return nil, nil, nil, err
	}
	return table, dict, side, nil
}

// compressStream writes the container: a header with zeroed digest and
// lengths, then the payload, then the same header again with the real
// values patched in at offset zero. Writing the placeholder first keeps
// memory bounded; the payload never has to be staged to learn its size.
func (p *Pipeline) compressStream(ctx context.Context, in io.Reader, out absfs.File, hdr *Header, table *huffman.CodeTable, dict *huffman.Dictionary) error {
	bw := bufio.NewWriterSize(out, streamBufSize)
	if _, err := hdr.WriteTo(bw); err != nil {
		return err
	}
	payload := &countingWriter{w: bw}

	var codec io.WriteCloser
	if hdr.Algorithm == AlgorithmHuffman {
		codec = huffman.NewEncoder(payload, table, dict)
	} else {
		var err error
		codec, err = createCompressor(hdr.Algorithm, payload, hdr.Level)
		if err != nil {
			return err
		}
	}

	digest := newDigest(hdr.Integrity)
	chunk := make([]byte, p.cfg.ChunkSize)
	var original uint64
	for {
		if err := ctx.Err(); err != nil {
			// The zstd writer keeps worker goroutines alive until Close.
			codec.Close()
			return fmt.Errorf("%w: %w", ErrCancelled, err)
		}
		n, rerr := in.Read(chunk)
		if n > 0 {
			original += uint64(n)
			if digest != nil {
				digest.Write(chunk[:n])
			}
			if _, werr := codec.Write(chunk[:n]); werr != nil {
				codec.Close()
				return fmt.Errorf("sim: compress: %w", werr)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			codec.Close()
			return fmt.Errorf("sim: read input: %w", rerr)
		}
	}
	if err := codec.Close(); err != nil {
		return fmt.Errorf("sim: compress: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("sim: write output: %w", err)
	}

	hdr.OriginalLength = original
	hdr.CompressedLength = uint64(payload.n)
	if digest != nil {
		hdr.Digest = digest.Sum(nil)
	}
	if _, err := out.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("sim: patch header: %w", err)
	}
	if _, err := hdr.WriteTo(out); err != nil {
		return err
	}
	return nil
}

// readHeader parses the container header and cross-checks the declared
// payload length against the file's actual size, so truncated or padded
// containers fail before any decoding starts.
func (p *Pipeline) readHeader(in absfs.File, path string) (*Header, error) {
	hdr := &Header{}
	if _, err := hdr.ReadFrom(in); err != nil {
		return nil, err
	}
	info, err := in.Stat()
	if err != nil {
		return nil, fmt.Errorf("sim: stat %s: %w", path, err)
	}
	if want := hdr.Size() + int64(hdr.CompressedLength); info.Size() != want {
		return nil, fmt.Errorf("%w: file is %d bytes, header declares %d", ErrFormat, info.Size(), want)
	}
	return hdr, nil
}

// decompressStream decodes the payload following the header into out and
// verifies the integrity digest over the decoded bytes. The header alone
// dictates the backend; nothing is re-detected.
func (p *Pipeline) decompressStream(ctx context.Context, in io.Reader, out io.Writer, hdr *Header) error {
	br := bufio.NewReaderSize(io.LimitReader(in, int64(hdr.CompressedLength)), streamBufSize)

	var codec io.ReadCloser
	if hdr.Algorithm == AlgorithmHuffman {
		table, dict, err := huffman.UnmarshalSideTable(hdr.SideTable)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrFormat, err)
		}
		dec, err := huffman.NewDecoder(br, table, dict, hdr.OriginalLength)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrFormat, err)
		}
		codec = io.NopCloser(dec)
	} else {
		var err error
		codec, err = createDecompressor(hdr.Algorithm, br)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrCorruptStream, err)
		}
	}
	defer codec.Close()

	digest := newDigest(hdr.Integrity)
	chunk := make([]byte, p.cfg.ChunkSize)
	var produced uint64
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrCancelled, err)
		}
		n, rerr := codec.Read(chunk)
		if n > 0 {
			produced += uint64(n)
			if produced > hdr.OriginalLength {
				return fmt.Errorf("%w: payload decodes past the declared %d bytes", ErrCorruptStream, hdr.OriginalLength)
			}
			if digest != nil {
				digest.Write(chunk[:n])
			}
			if _, werr := out.Write(chunk[:n]); werr != nil {
				return fmt.Errorf("sim: write output: %w", werr)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return fmt.Errorf("%w: %w", ErrCorruptStream, rerr)
		}
	}
	if produced != hdr.OriginalLength {
		return fmt.Errorf("%w: payload decodes to %d bytes, header declares %d", ErrCorruptStream, produced, hdr.OriginalLength)
	}
	if digest != nil && !verifyDigest(hdr.Integrity, digest.Sum(nil), hdr.Digest) {
		return fmt.Errorf("%w: %s digest does not match", ErrIntegrityMismatch, hdr.Integrity)
	}
	return nil
}

// readPrefix returns up to n leading bytes of f without assuming f is that
// large.
func readPrefix(f absfs.File, n int) ([]byte, error) {
	buf := make([]byte, n)
	read, err := io.ReadFull(f, buf)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		err = nil
	}
	if err != nil {
		return nil, err
	}
	return buf[:read], nil
}

// countingWriter tracks payload bytes so the header can be patched with the
// real compressed length after streaming.
type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

// Save compresses pathIn into pathOut on the host filesystem.
func Save(ctx context.Context, pathIn, pathOut string, cfg *Config) error {
	p, err := New(nil, cfg)
	if err != nil {
		return err
	}
	return p.Save(ctx, pathIn, pathOut)
}

// Load restores the contents of a container on the host filesystem.
func Load(ctx context.Context, path string) ([]byte, error) {
	p, err := New(nil, nil)
	if err != nil {
		return nil, err
	}
	return p.Load(ctx, path)
}

// Extract restores a container on the host filesystem into pathOut.
func Extract(ctx context.Context, pathIn, pathOut string) error {
	p, err := New(nil, nil)
	if err != nil {
		return err
	}
	return p.Extract(ctx, pathIn, pathOut)
}

// CompressionRatio is Pipeline.CompressionRatio on the host filesystem.
func CompressionRatio(originalPath, compressedPath string) (float64, error) {
	p, err := New(nil, nil)
	if err != nil {
		return 0, err
	}
	return p.CompressionRatio(originalPath, compressedPath)
}
