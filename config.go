package sim

import (
	"fmt"

	"github.com/simfile/sim/huffman"
)

const (
	defaultLevel       = 6
	defaultChunkSize   = 1 << 20  // 1MiB windows keep peak memory flat
	defaultModelSample = 4 << 20  // prefix bytes the huffman model is built from
	maxModelSample     = 64 << 20 // hard cap even when configured higher
	defaultMaxPhrases  = 256
	defaultMinPhrase   = 3
	defaultMaxPhrase   = 32
)

// Config holds compression pipeline configuration
type Config struct {
	// Algorithm to use for compression (default: auto)
	Algorithm Algorithm

	// Compression level 1-9 across all backends (default: 6)
	// huffman ignores it, snappy has no levels
	Level int

	// PhraseMode promotes frequent multi-byte sequences to huffman
	// symbols. Only meaningful for the huffman backend.
	PhraseMode bool

	// Integrity digest recorded in the container (default: sha256)
	Integrity IntegrityKind

	// ChunkSize bounds how much input is held in memory per pipeline
	// step (default: 1MB)
	ChunkSize int

	// ModelSampleSize is how many leading bytes feed the huffman
	// frequency model and phrase mining (default: 4MB, capped at 64MB).
	// Files at most this size are modeled exactly.
	ModelSampleSize int

	// MaxPhrases caps the phrase dictionary (default: 256, max 4096)
	MaxPhrases int

	// MinPhraseLength / MaxPhraseLength bound mined phrase lengths in
	// bytes (defaults: 3 and 32)
	MinPhraseLength int
	MaxPhraseLength int

	// PreferSpeed makes auto selection favor fast backends over ratio
	PreferSpeed bool
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Algorithm:       AlgorithmAuto,
		Level:           defaultLevel,
		PhraseMode:      false,
		Integrity:       IntegritySHA256,
		ChunkSize:       defaultChunkSize,
		ModelSampleSize: defaultModelSample,
		MaxPhrases:      defaultMaxPhrases,
		MinPhraseLength: defaultMinPhrase,
		MaxPhraseLength: defaultMaxPhrase,
	}
}

// FastestConfig trades ratio for throughput: snappy with a cheap crc32.
func FastestConfig() *Config {
	cfg := DefaultConfig()
	cfg.Algorithm = AlgorithmSnappy
	cfg.Level = 1
	cfg.Integrity = IntegrityCRC32
	cfg.PreferSpeed = true
	return cfg
}

// BestCompressionConfig squeezes hardest: lzma at the top level.
func BestCompressionConfig() *Config {
	cfg := DefaultConfig()
	cfg.Algorithm = AlgorithmLZMA
	cfg.Level = 9
	return cfg
}

// TextConfig targets natural-language or source-code input: phrase-aware
// huffman.
func TextConfig() *Config {
	cfg := DefaultConfig()
	cfg.Algorithm = AlgorithmHuffman
	cfg.PhraseMode = true
	return cfg
}

// normalize validates cfg and fills zero values with defaults, returning a
// private copy so later mutation by the caller cannot race a running
// operation. A nil cfg means DefaultConfig.
func (c *Config) normalize() (*Config, error) {
	cfg := Config{}
	if c != nil {
		cfg = *c
	}
	if cfg.Algorithm == "" {
		cfg.Algorithm = AlgorithmAuto
	}
	if _, ok := algorithmIDs[cfg.Algorithm]; !ok && cfg.Algorithm != AlgorithmAuto {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, cfg.Algorithm)
	}
	if cfg.Level == 0 {
		cfg.Level = defaultLevel
	}
	if cfg.Level < 1 || cfg.Level > 9 {
		return nil, fmt.Errorf("%w: %d (want 1..9)", ErrInvalidLevel, cfg.Level)
	}
	if cfg.Integrity == "" {
		cfg.Integrity = IntegritySHA256
	}
	if _, ok := integrityIDs[cfg.Integrity]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedIntegrity, cfg.Integrity)
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = defaultChunkSize
	}
	if cfg.ModelSampleSize <= 0 {
		cfg.ModelSampleSize = defaultModelSample
	}
	if cfg.ModelSampleSize > maxModelSample {
		cfg.ModelSampleSize = maxModelSample
	}
	if cfg.MaxPhrases <= 0 {
		cfg.MaxPhrases = defaultMaxPhrases
	}
	if cfg.MaxPhrases > huffman.MaxPhrases {
		cfg.MaxPhrases = huffman.MaxPhrases
	}
	if cfg.MinPhraseLength <= 0 {
		cfg.MinPhraseLength = defaultMinPhrase
	}
	if cfg.MaxPhraseLength <= 0 {
		cfg.MaxPhraseLength = defaultMaxPhrase
	}
	if cfg.MaxPhraseLength < cfg.MinPhraseLength {
		cfg.MaxPhraseLength = cfg.MinPhraseLength
	}
	return &cfg, nil
}
