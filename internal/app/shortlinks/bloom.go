package shortlinks

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// Bloom answers "definitely not a code we issued" without a database round trip.
type Bloom struct {
	mu     sync.RWMutex
	filter *bloom.BloomFilter
}

func NewBloom(expectedItems uint, falsePositiveRate float64) *Bloom {
	return &Bloom{filter: bloom.NewWithEstimates(expectedItems, falsePositiveRate)}
}

func (b *Bloom) Add(code string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.filter.AddString(code)
}

// MightExist returns false only when code was never added.
func (b *Bloom) MightExist(code string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.filter.TestString(code)
}

func (b *Bloom) Count() uint32 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.filter.ApproximatedSize()
}
