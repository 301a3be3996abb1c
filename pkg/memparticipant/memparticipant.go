// Package memparticipant provides the one trivial, in-memory
// participant.Participant implementation used by tests: channel-backed
// readers and recording writers with no wire protocol at all (spec.md §1
// excludes concrete wire-protocol participants from this module's
// scope). Each reader holds one buffered channel that Publish fills and
// Take drains without blocking; there is no goroutine, context or
// receive loop.
package memparticipant

import (
	"sync"

	"github.com/ddspipe/ddspipe-go/pkg/participant"
	"github.com/ddspipe/ddspipe-go/pkg/topic"
)

// Participant is an in-memory stand-in for a real wire-protocol
// participant: Publish feeds every Reader created for the matching
// topic, and every Writer created on it exposes what was written via
// Received.
type Participant struct {
	id         participant.ID
	repeater   bool
	bufferSize int

	mu      sync.Mutex
	readers map[string]*reader // keyed by topic.DistributedTopic.Key()
	writers []*writer
}

// New creates a Participant identified by id. bufferSize bounds each
// reader's internal channel; repeater controls whether this
// participant's own writers may loop back to its own readers (spec.md
// invariant 3).
func New(id participant.ID, repeater bool, bufferSize int) *Participant {
	if bufferSize <= 0 {
		bufferSize = 16
	}
	return &Participant{
		id:         id,
		repeater:   repeater,
		bufferSize: bufferSize,
		readers:    make(map[string]*reader),
	}
}

func (p *Participant) ID() participant.ID { return p.id }
func (p *Participant) IsRepeater() bool   { return p.repeater }
func (p *Participant) IsRTPSKind() bool   { return false }

// CreateReader returns the reader for t, creating it on first use so
// Publish calls made before the track is built are never lost.
func (p *Participant) CreateReader(t topic.DistributedTopic) (participant.Reader, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if r, ok := p.readers[t.Key()]; ok {
		return r, nil
	}
	r := newReader(t, p.bufferSize)
	p.readers[t.Key()] = r
	return r, nil
}

// CreateWriter returns a fresh writer for t; every call returns an
// independent writer so RemoveWriter on the bridge side can't affect
// sibling writers from the same participant.
func (p *Participant) CreateWriter(t topic.DistributedTopic) (participant.Writer, error) {
	w := newWriter(t)
	p.mu.Lock()
	p.writers = append(p.writers, w)
	p.mu.Unlock()
	return w, nil
}

// Publish pushes data into every reader this participant owns for t. It
// is the test/demo-side equivalent of "a sample arrived on the wire".
// ok reports whether the reader's buffer had room; a full buffer drops
// the sample rather than blocking, since this is a non-blocking stand-in
// with no backpressure model of its own.
func (p *Participant) Publish(t topic.DistributedTopic, data []byte) bool {
	p.mu.Lock()
	r, ok := p.readers[t.Key()]
	p.mu.Unlock()
	if !ok {
		return false
	}
	return r.push(data)
}

// Writers returns every writer this participant has created for t, for
// tests that want to inspect what was forwarded.
func (p *Participant) Writers(t topic.DistributedTopic) []*WriterHandle {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*WriterHandle, 0)
	for _, w := range p.writers {
		if w.topic.Key() == t.Key() {
			out = append(out, &WriterHandle{w: w})
		}
	}
	return out
}

// WriterHandle exposes a writer's received samples without leaking the
// unexported writer type to callers outside this package.
type WriterHandle struct{ w *writer }

// Received returns every payload this writer has accepted, in arrival
// order.
func (h *WriterHandle) Received() [][]byte { return h.w.received() }

type samplePayload struct{ data []byte }

func (s samplePayload) Bytes() []byte { return s.data }

type reader struct {
	t    topic.DistributedTopic
	ch   chan samplePayload
	size int

	mu      sync.Mutex
	onAvail func()
	enabled bool
}

func newReader(t topic.DistributedTopic, bufferSize int) *reader {
	return &reader{t: t, ch: make(chan samplePayload, bufferSize), size: bufferSize, enabled: true}
}

func (r *reader) GUID() string                  { return r.t.Key() }
func (r *reader) Topic() topic.DistributedTopic { return r.t }

func (r *reader) Enable() error {
	r.mu.Lock()
	r.enabled = true
	r.mu.Unlock()
	return nil
}

func (r *reader) Disable() error {
	r.mu.Lock()
	r.enabled = false
	r.mu.Unlock()
	return nil
}

func (r *reader) SetDataAvailable(cb func()) {
	r.mu.Lock()
	r.onAvail = cb
	r.mu.Unlock()
}

func (r *reader) Take() (participant.Payload, bool, error) {
	r.mu.Lock()
	enabled := r.enabled
	r.mu.Unlock()
	if !enabled {
		return nil, false, nil
	}
	select {
	case s := <-r.ch:
		return s, true, nil
	default:
		return nil, false, nil
	}
}

func (r *reader) push(data []byte) bool {
	cp := make([]byte, len(data))
	copy(cp, data)

	select {
	case r.ch <- samplePayload{data: cp}:
	default:
		return false
	}

	r.mu.Lock()
	cb := r.onAvail
	r.mu.Unlock()
	if cb != nil {
		cb()
	}
	return true
}

type writer struct {
	topic topic.DistributedTopic

	mu  sync.Mutex
	out [][]byte
}

func newWriter(t topic.DistributedTopic) *writer {
	return &writer{topic: t}
}

func (w *writer) GUID() string                  { return w.topic.Key() + "-writer" }
func (w *writer) Topic() topic.DistributedTopic { return w.topic }

func (w *writer) Write(data participant.Payload) participant.WriteResult {
	cp := make([]byte, len(data.Bytes()))
	copy(cp, data.Bytes())

	w.mu.Lock()
	w.out = append(w.out, cp)
	w.mu.Unlock()
	return participant.WriteOK
}

func (w *writer) received() [][]byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([][]byte, len(w.out))
	copy(out, w.out)
	return out
}
