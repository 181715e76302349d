// Command sim compresses files into .sim containers and restores them.
//
// Compressing is the default; -d restores a container. The algorithm only
// matters when compressing: a container records its own.
//
//	sim notes.txt                copy to notes.txt.sim, auto algorithm
//	sim -a huffman -phrase f.md  phrase-aware huffman
//	sim -d notes.txt.sim         restore notes.txt
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/simfile/sim"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "sim:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		decompress = flag.Bool("d", false, "decompress a container instead of compressing")
		algo       = flag.String("a", string(sim.AlgorithmAuto), "algorithm: auto, huffman, zlib, gzip, lzma, zstd, brotli, snappy, lz4")
		level      = flag.Int("l", 6, "compression level 1..9")
		phrase     = flag.Bool("phrase", false, "promote repeated sequences to huffman symbols")
		integrity  = flag.String("integrity", string(sim.IntegritySHA256), "integrity digest: none, crc32, sha256")
		output     = flag.String("o", "", "output path (default: input + .sim, stripped extension on -d)")
		chunk      = flag.Int("chunk", 0, "chunk size in bytes (default 1MB)")
		fast       = flag.Bool("fast", false, "prefer speed over ratio in auto selection")
	)
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		return fmt.Errorf("expected one input file, got %d", flag.NArg())
	}
	input := flag.Arg(0)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *decompress {
		out := *output
		if out == "" {
			guess, ok := sim.SourcePath(input)
			if !ok {
				fmt.Fprintf(os.Stderr, "sim: %s has no %s extension, writing %s\n", input, sim.ContainerExt, guess)
			}
			out = guess
		}
		if err := sim.Extract(ctx, input, out); err != nil {
			return err
		}
		fmt.Printf("%s -> %s\n", input, out)
		return nil
	}

	algorithm, err := sim.ParseAlgorithm(*algo)
	if err != nil {
		return err
	}
	kind, err := sim.ParseIntegrity(*integrity)
	if err != nil {
		return err
	}
	cfg := sim.DefaultConfig()
	cfg.Algorithm = algorithm
	cfg.Level = *level
	cfg.PhraseMode = *phrase
	cfg.Integrity = kind
	cfg.ChunkSize = *chunk
	cfg.PreferSpeed = *fast

	out := *output
	if out == "" {
		out = sim.OutputPath(input)
	}
	if err := sim.Save(ctx, input, out, cfg); err != nil {
		return err
	}
	ratio, err := sim.CompressionRatio(input, out)
	if err != nil {
		return err
	}
	fmt.Printf("%s -> %s (%.1f%% saved)\n", input, out, ratio)
	return nil
}
