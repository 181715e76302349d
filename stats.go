package sim

import (
	"sync"
	"sync/atomic"
)

// Stats holds pipeline statistics
type Stats struct {
	FilesCompressed   int64
	FilesDecompressed int64

	BytesOriginal   int64
	BytesCompressed int64
	BytesRestored   int64

	AlgorithmCounts sync.Map // map[Algorithm]int64
}

// GetAlgorithmCount returns how many files were compressed with algo
func (s *Stats) GetAlgorithmCount(algo Algorithm) int64 {
	if val, ok := s.AlgorithmCounts.Load(algo); ok {
		return val.(int64)
	}
	return 0
}

// IncrementAlgorithmCount increments the count for a specific algorithm
func (s *Stats) IncrementAlgorithmCount(algo Algorithm) {
	val, _ := s.AlgorithmCounts.LoadOrStore(algo, int64(0))
	s.AlgorithmCounts.Store(algo, val.(int64)+1)
}

// TotalCompressionRatio returns the overall saving across compressed files
// as a percentage of the original bytes.
func (s *Stats) TotalCompressionRatio() float64 {
	orig := atomic.LoadInt64(&s.BytesOriginal)
	if orig == 0 {
		return 0
	}
	return CompressionPercentage(orig, atomic.LoadInt64(&s.BytesCompressed))
}

// GetStats returns current statistics
func (p *Pipeline) GetStats() *Stats {
	stats := &Stats{
		FilesCompressed:   atomic.LoadInt64(&p.stats.FilesCompressed),
		FilesDecompressed: atomic.LoadInt64(&p.stats.FilesDecompressed),
		BytesOriginal:     atomic.LoadInt64(&p.stats.BytesOriginal),
		BytesCompressed:   atomic.LoadInt64(&p.stats.BytesCompressed),
		BytesRestored:     atomic.LoadInt64(&p.stats.BytesRestored),
	}
	p.stats.AlgorithmCounts.Range(func(key, value interface{}) bool {
		stats.AlgorithmCounts.Store(key, value)
		return true
	})
	return stats
}

// ResetStats resets statistics to zero
func (p *Pipeline) ResetStats() {
	atomic.StoreInt64(&p.stats.FilesCompressed, 0)
	atomic.StoreInt64(&p.stats.FilesDecompressed, 0)
	atomic.StoreInt64(&p.stats.BytesOriginal, 0)
	atomic.StoreInt64(&p.stats.BytesCompressed, 0)
	atomic.StoreInt64(&p.stats.BytesRestored, 0)
	p.stats.AlgorithmCounts = sync.Map{}
}
