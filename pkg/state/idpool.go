package state

// IDPool hands out recyclable uint16 identifiers starting at 1. Released
// identifiers are reused before the high-water mark advances, so identifier
// space stays dense under churn. A limit of 0 means unbounded (up to the
// uint16 range).
type IDPool struct {
	free  []uint16
	next  uint16
	limit int
}

// NewIDPool returns a pool whose first acquired identifier is 1.
func NewIDPool(limit int) *IDPool {
	return &IDPool{next: 1, limit: limit}
}

// Acquire returns an unused identifier, preferring the most recently
// released one. It reports false when the pool is exhausted.
func (p *IDPool) Acquire() (uint16, bool) {
	if n := len(p.free); n > 0 {
		id := p.free[n-1]
		p.free = p.free[:n-1]
		return id, true
	}
	if p.limit > 0 && int(p.next) > p.limit {
		return 0, false
	}
	if p.next == 0 { // wrapped past 65535
		return 0, false
	}
	id := p.next
	p.next++
	return id, true
}

// Release returns an identifier to the pool for reuse.
func (p *IDPool) Release(id uint16) {
	if id == 0 {
		return
	}
	p.free = append(p.free, id)
}

// Remaining reports how many identifiers can still be acquired. For an
// unbounded pool it counts against the uint16 range.
func (p *IDPool) Remaining() int {
	limit := p.limit
	if limit <= 0 {
		limit = 65535
	}
	headroom := limit - (int(p.next) - 1)
	if headroom < 0 {
		headroom = 0
	}
	return headroom + len(p.free)
}

// SetLimit changes the pool's capacity. With add set the limit grows by n,
// otherwise it is replaced. Identifiers already acquired stay valid; a
// shrunken pool simply refuses new acquisitions until enough are released.
func (p *IDPool) SetLimit(n int, add bool) {
	if add {
		p.limit += n
	} else {
		p.limit = n
	}
}
