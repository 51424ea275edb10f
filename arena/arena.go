// Package arena implements per-tick bump-allocated scratch arenas. The
// tick loop owns one Pool (an Arena per worker) and resets it once per
// tick; no other package allocates from it. An Arena hands out byte slices
// from a single growing backing buffer and is reset in bulk once per tick,
// after the dispatch phase that is the only consumer of what it handed
// out — never freed slice-by-slice.
package arena

// Arena is a bump allocator: Alloc never individually frees, Reset rewinds
// the whole thing to empty in O(1). Not safe for concurrent use — the
// runtime gives each tick worker its own Arena (see Pool).
type Arena struct {
	buf []byte
	len int
}

// New returns an Arena with an initial backing capacity hint.
func New(capHint int) *Arena {
	if capHint < 64 {
		capHint = 64
	}
	return &Arena{buf: make([]byte, capHint)}
}

// Alloc returns an n-byte slice backed by the arena, growing the backing
// buffer (and thus invalidating the memory address, but not the logical
// content, of nothing previously allocated — prior Alloc results keep
// pointing at their own already-returned slice headers) if needed.
func (a *Arena) Alloc(n int) []byte {
	if a.len+n > len(a.buf) {
		a.grow(n)
	}
	s := a.buf[a.len : a.len+n : a.len+n]
	a.len += n
	return s
}

func (a *Arena) grow(n int) {
	needed := a.len + n
	newCap := len(a.buf) * 2
	if newCap < needed {
		newCap = needed
	}
	next := make([]byte, newCap)
	copy(next, a.buf[:a.len])
	a.buf = next
}

// Put copies src into a freshly bump-allocated slice and returns it.
func (a *Arena) Put(src []byte) []byte {
	dst := a.Alloc(len(src))
	copy(dst, src)
	return dst
}

// Len reports bytes currently allocated out of this arena since the last
// Reset.
func (a *Arena) Len() int { return a.len }

// Cap reports the arena's current backing capacity.
func (a *Arena) Cap() int { return len(a.buf) }

// Reset rewinds the arena to empty. Every slice previously returned by
// Alloc/Put becomes invalid to read or write the instant Reset returns;
// callers must guarantee (by scoping, per the tick's single coordinated
// reset phase) that nothing still holds a reference.
func (a *Arena) Reset() { a.len = 0 }

// Pool owns one Arena per tick worker, so each goroutine in the tick
// loop's work-stealing pool bump-allocates into memory no other goroutine
// touches.
type Pool struct {
	arenas []*Arena
}

// NewPool returns a Pool with n per-worker arenas, each pre-sized with
// capHint bytes.
func NewPool(n, capHint int) *Pool {
	arenas := make([]*Arena, n)
	for i := range arenas {
		arenas[i] = New(capHint)
	}
	return &Pool{arenas: arenas}
}

// Arena returns the arena owned by worker index i.
func (p *Pool) Arena(i int) *Arena { return p.arenas[i] }

// Len returns the number of per-worker arenas in the pool.
func (p *Pool) Len() int { return len(p.arenas) }

// ResetAll rewinds every arena in the pool. Called exactly once per tick,
// in the dedicated arena-reset phase after event dispatch has drained
// everything that pointed into them.
func (p *Pool) ResetAll() {
	for _, a := range p.arenas {
		a.Reset()
	}
}
