package compose

import (
	"math/rand"
	"time"
)

const (
	// Per-chunk delay clamp.
	minChunkDelay = 800 * time.Millisecond
	maxChunkDelay = 6 * time.Second

	// Mobile typing speed, characters per second.
	typingSpeedMin = 5.0
	typingSpeedMax = 7.0
)

// Pacer computes the simulated typing delay for each chunk: a random
// "thinking" pause plus length divided by a random typing speed. The first
// chunk gets a longer thinking range, since that's when the reply is read.
type Pacer struct {
	rng *rand.Rand
}

// NewPacer creates a pacer seeded from the wall clock.
func NewPacer() *Pacer {
	return &Pacer{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// NewPacerWith creates a pacer with a fixed source.
func NewPacerWith(rng *rand.Rand) *Pacer {
	return &Pacer{rng: rng}
}

func (p *Pacer) uniform(lo, hi float64) float64 {
	return lo + p.rng.Float64()*(hi-lo)
}

// ChunkDelay returns the pause to take before sending chunk.
func (p *Pacer) ChunkDelay(chunk string, first bool) time.Duration {
	var thinking float64
	if first {
		thinking = p.uniform(1.0, 2.5)
	} else {
		thinking = p.uniform(0.3, 1.0)
	}
	typing := float64(len(chunk)) / p.uniform(typingSpeedMin, typingSpeedMax)

	total := time.Duration((thinking + typing) * float64(time.Second))
	if total < minChunkDelay {
		return minChunkDelay
	}
	if total > maxChunkDelay {
		return maxChunkDelay
	}
	return total
}
