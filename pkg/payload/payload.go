// Package payload implements the Payload Pool (spec.md §4.1): a
// thread-safe, reference-counted owner of message bodies shared across
// tracks without copying. Grounded on pkg/bridge/stream.go's
// mutex-guarded tracking-map idiom, restructured around sync.Pool and
// atomic refcounts since the spec's contended path (get_payload(src))
// must be O(1) and allocation-free.
package payload

import (
	"sync"
	"sync/atomic"

	"github.com/ddspipe/ddspipe-go/pkg/ddpipeerr"
)

// Payload is a refcounted, immutable-once-populated buffer (spec.md §3).
// Bytes() must never be mutated by a holder; a Payload may be shared by
// many concurrent writers.
type Payload struct {
	pool   *Pool
	buf    []byte
	length int
	refs   int32
}

// Bytes returns the populated portion of the buffer. Callers must not
// write to the returned slice.
func (p *Payload) Bytes() []byte {
	return p.buf[:p.length]
}

// Len returns the populated length.
func (p *Payload) Len() int {
	return p.length
}

// Pool is the PayloadPool (spec.md §4.1): it hands out buffers sized to
// the caller's request, reusing freed ones via an underlying sync.Pool,
// and tracks additional references without copying bytes.
type Pool struct {
	inner sync.Pool

	mu          sync.Mutex
	allocations int64
	releases    int64
}

// NewPool creates an empty Payload Pool.
func NewPool() *Pool {
	p := &Pool{}
	p.inner.New = func() any {
		return &Payload{}
	}
	return p
}

// Get checks out a buffer of at least size bytes with refcount 1. Returns
// ddpipeerr.ErrOutOfMemory if size is negative (the only failure mode a
// pure-Go pool can produce; a real allocator could also fail here).
func (p *Pool) Get(size int) (*Payload, error) {
	if size < 0 {
		return nil, ddpipeerr.ErrOutOfMemory
	}

	pl := p.inner.Get().(*Payload)
	if cap(pl.buf) < size {
		pl.buf = make([]byte, size)
	}
	pl.buf = pl.buf[:size]
	pl.length = size
	pl.pool = p
	atomic.StoreInt32(&pl.refs, 1)

	p.mu.Lock()
	p.allocations++
	p.mu.Unlock()

	return pl, nil
}

// GetFrom copies src's bytes into a freshly checked-out buffer. Use Ref
// instead when an additional reference to the SAME bytes (no copy) is
// wanted.
func (p *Pool) GetFrom(src []byte) (*Payload, error) {
	pl, err := p.Get(len(src))
	if err != nil {
		return nil, err
	}
	copy(pl.buf, src)
	return pl, nil
}

// Ref produces an additional reference to src's bytes without copying
// (spec.md §4.1: "get_payload(src) must be O(1)"). The returned Payload
// and src share the same underlying buffer and must both be released
// independently.
func (p *Pool) Ref(src *Payload) *Payload {
	atomic.AddInt32(&src.refs, 1)
	p.mu.Lock()
	p.allocations++
	p.mu.Unlock()
	return src
}

// Release decrements the refcount; when it reaches zero the buffer is
// returned to the free list for reuse. Double-release is a programmer
// error and is ignored past zero rather than panicking, since a
// misbehaving writer must not be able to crash the pipe.
func (p *Pool) Release(pl *Payload) {
	if pl == nil {
		return
	}
	for {
		refs := atomic.LoadInt32(&pl.refs)
		if refs <= 0 {
			return
		}
		if atomic.CompareAndSwapInt32(&pl.refs, refs, refs-1) {
			p.mu.Lock()
			p.releases++
			p.mu.Unlock()
			if refs == 1 {
				pl.length = 0
				p.inner.Put(pl)
			}
			return
		}
	}
}

// Stats reports the pool's lifetime allocation/release counts, used to
// check the refcount law (spec.md §9: allocations − releases = live
// count, always ≥ 0) and exported as metrics.
type Stats struct {
	Allocations int64
	Releases    int64
}

// Stats returns a snapshot of the pool's lifetime counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{Allocations: p.allocations, Releases: p.releases}
}

// Live returns the number of currently outstanding (unreleased)
// references.
func (p *Pool) Live() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.allocations - p.releases
}
