package route

import (
	"math/rand"
	"sync"
	"time"

	"riskroute/internal/model"
)

// Sampler draws up to k distinct node ids from ids. Implementations must
// not modify ids.
type Sampler interface {
	Sample(ids []model.NodeID, k int) []model.NodeID
}

// RandSampler samples uniformly without replacement. Safe for concurrent use.
type RandSampler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandSampler seeds the sampler; seed 0 uses the clock.
func NewRandSampler(seed int64) *RandSampler {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandSampler{rng: rand.New(rand.NewSource(seed))}
}

// Sample runs a partial Fisher-Yates shuffle over a copy of ids.
func (s *RandSampler) Sample(ids []model.NodeID, k int) []model.NodeID {
	n := len(ids)
	if k > n {
		k = n
	}
	if k <= 0 {
		return nil
	}
	pool := append([]model.NodeID(nil), ids...)
	s.mu.Lock()
	for i := 0; i < k; i++ {
		j := i + s.rng.Intn(n-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	s.mu.Unlock()
	return pool[:k]
}
