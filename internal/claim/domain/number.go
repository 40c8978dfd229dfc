package domain

import (
	"fmt"
	"sync"
	"time"

	"github.com/fra-atlas/platform/internal/shared/types"
)

// NumberGenerator produces human-readable claim numbers from the claim's
// state, district and submission time. The clock is injected so tests can
// control timestamp granularity. The generator never issues the same
// number twice within a process: when two claims for the same state and
// district land in the same millisecond, the timestamp component is bumped
// past the last issued value. Cross-process uniqueness is still the
// persistence layer's job; its unique index on claim_number surfaces
// collisions as a Conflict.
type NumberGenerator struct {
	clock func() time.Time

	mu   sync.Mutex
	last map[string]int64
}

// NewNumberGenerator creates a generator using the given clock.
// A nil clock defaults to time.Now.
func NewNumberGenerator(clock func() time.Time) *NumberGenerator {
	if clock == nil {
		clock = time.Now
	}
	return &NumberGenerator{clock: clock, last: make(map[string]int64)}
}

// Generate builds a claim number of the form FRA-{ST}{DST}-{millis},
// e.g. FRA-ODMAY-1756600000000 for Odisha/Mayurbhanj.
func (g *NumberGenerator) Generate(state, district string) string {
	stateCode := types.LocationCode(state, 2)
	districtCode := types.LocationCode(district, 3)
	prefix := stateCode + districtCode

	ms := g.clock().UTC().UnixMilli()

	g.mu.Lock()
	if last, ok := g.last[prefix]; ok && ms <= last {
		ms = last + 1
	}
	g.last[prefix] = ms
	g.mu.Unlock()

	return fmt.Sprintf("FRA-%s-%d", prefix, ms)
}
