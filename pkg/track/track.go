// Package track implements the Track state machine (spec.md §4.6): one
// reader fanning out to many writers, with downsampling, rate limiting,
// and per-track FIFO, single-threaded forwarding. Grounded on
// pkg/bridge/stream.go's StreamTracker (a per-key mutex-guarded state
// map), repurposed from cross-track stream-dedup bookkeeping — a Non-goal
// per spec.md §1 — into per-track downsampling and rate-limit state, dispatched
// through a shared sourcegraph/conc worker pool per spec.md §5's bounded
// thread pool model.
package track

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ddspipe/ddspipe-go/pkg/ddpipeerr"
	"github.com/ddspipe/ddspipe-go/pkg/logger"
	"github.com/ddspipe/ddspipe-go/pkg/participant"
	"github.com/ddspipe/ddspipe-go/pkg/payload"
	"github.com/ddspipe/ddspipe-go/pkg/topic"
)

// State is a Track's lifecycle position (spec.md §4.6: Created →
// Enabled ⇄ Disabled → Destroyed).
type State int

const (
	Created State = iota
	Enabled
	Disabled
	Destroyed
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Enabled:
		return "enabled"
	case Disabled:
		return "disabled"
	case Destroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// FatalWriterFunc is notified when a writer must be removed from the
// track after returning participant.WriteFatal, so the owning Bridge can
// surface the condition upward (spec.md §4.6).
type FatalWriterFunc func(writerID participant.ID)

// Track owns one reader and fans its samples out to a set of writers.
type Track struct {
	readerParticipantID participant.ID
	reader              participant.Reader
	pool                *payload.Pool
	dispatcher          Dispatcher
	log                 *logger.Logger
	onFatalWriter       FatalWriterFunc

	downsampling         int
	minIntersamplePeriod time.Duration

	mu             sync.Mutex
	state          State
	writers        map[participant.ID]participant.Writer
	downsampleIdx  uint64
	lastReceivedTs time.Time

	dispatched   int32
	pendingAgain int32
}

// New creates a Track in the Created state for readerID's reader. qos
// supplies the downsampling factor and maximum reception rate that
// govern this track's forwarding (spec.md §4.6).
func New(readerID participant.ID, reader participant.Reader, pool *payload.Pool, qos topic.QoS, dispatcher Dispatcher, log *logger.Logger, onFatalWriter FatalWriterFunc) *Track {
	downsampling := qos.Downsampling
	if downsampling < 1 {
		downsampling = 1
	}
	var minPeriod time.Duration
	if qos.MaxReceptionRate > 0 {
		minPeriod = time.Duration(float64(time.Second) / qos.MaxReceptionRate)
	}

	t := &Track{
		readerParticipantID:  readerID,
		reader:               reader,
		pool:                 pool,
		dispatcher:           dispatcher,
		log:                  log,
		onFatalWriter:        onFatalWriter,
		downsampling:         downsampling,
		minIntersamplePeriod: minPeriod,
		writers:              make(map[participant.ID]participant.Writer),
	}
	reader.SetDataAvailable(t.tryDispatch)
	return t
}

// ReaderParticipantID returns the participant ID the track's reader
// belongs to (the map key the owning Bridge uses for this track).
func (t *Track) ReaderParticipantID() participant.ID {
	return t.readerParticipantID
}

// State returns the track's current lifecycle state.
func (t *Track) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// AddWriter inserts w under id, replacing any existing writer there.
func (t *Track) AddWriter(id participant.ID, w participant.Writer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writers[id] = w
}

// RemoveWriter deletes the writer under id. Returns true if it was
// present.
func (t *Track) RemoveWriter(id participant.ID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.writers[id]; !ok {
		return false
	}
	delete(t.writers, id)
	return true
}

// HasWriter reports whether id is currently attached.
func (t *Track) HasWriter(id participant.ID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.writers[id]
	return ok
}

// HasWriters reports whether any writer is attached.
func (t *Track) HasWriters() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.writers) > 0
}

// WriterCount returns the number of attached writers.
func (t *Track) WriterCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.writers)
}

// Enable transitions Created or Disabled to Enabled and re-arms the
// reader. Idempotent; a no-op if already Enabled. Returns
// ddpipeerr.ErrInvalidConfiguration if the track is Destroyed.
func (t *Track) Enable() error {
	t.mu.Lock()
	if t.state == Destroyed {
		t.mu.Unlock()
		return fmt.Errorf("%w: track for reader %q is destroyed", ddpipeerr.ErrInvalidConfiguration, t.readerParticipantID)
	}
	if t.state == Enabled {
		t.mu.Unlock()
		return nil
	}
	t.state = Enabled
	t.mu.Unlock()

	if err := t.reader.Enable(); err != nil {
		return err
	}
	t.tryDispatch()
	return nil
}

// Disable cooperatively stops forwarding: it flips the state at the next
// suspension point and lets any in-flight writes complete (spec.md §5).
// ctx bounds how long Disable waits for the current dispatch slot (if
// any) to drain, mirroring `wait_all_acked_timeout`.
func (t *Track) Disable(ctx context.Context) error {
	t.mu.Lock()
	if t.state != Enabled {
		t.mu.Unlock()
		return nil
	}
	t.state = Disabled
	t.mu.Unlock()

	if err := t.reader.Disable(); err != nil {
		t.log.Warn("reader disable failed", logger.Error(err))
	}
	return t.waitDrained(ctx)
}

// Destroy permanently retires the track; it can never be re-enabled.
func (t *Track) Destroy(ctx context.Context) error {
	t.mu.Lock()
	wasEnabled := t.state == Enabled
	t.state = Destroyed
	t.mu.Unlock()

	if wasEnabled {
		if err := t.reader.Disable(); err != nil {
			t.log.Warn("reader disable failed during destroy", logger.Error(err))
		}
	}
	return t.waitDrained(ctx)
}

func (t *Track) waitDrained(ctx context.Context) error {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for atomic.LoadInt32(&t.dispatched) == 1 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// tryDispatch claims the track's single dispatch slot and submits a
// drain to the shared pool; if a slot is already running it marks that
// another pass is needed once the current one finishes, so no wakeup is
// lost (spec.md §5: "only one slot per track may run at a time").
func (t *Track) tryDispatch() {
	t.mu.Lock()
	enabled := t.state == Enabled
	t.mu.Unlock()
	if !enabled {
		return
	}

	if atomic.CompareAndSwapInt32(&t.dispatched, 0, 1) {
		t.dispatcher.Submit(t.drain)
	} else {
		atomic.StoreInt32(&t.pendingAgain, 1)
	}
}

func (t *Track) drain() {
	defer func() {
		atomic.StoreInt32(&t.dispatched, 0)
		if atomic.CompareAndSwapInt32(&t.pendingAgain, 1, 0) {
			t.tryDispatch()
		}
	}()

	for {
		t.mu.Lock()
		enabled := t.state == Enabled
		t.mu.Unlock()
		if !enabled {
			return
		}

		raw, ok, err := t.reader.Take()
		if err != nil {
			t.log.Error("reader take failed", logger.Error(err))
			return
		}
		if !ok {
			return
		}
		t.process(raw)
	}
}

// process applies downsampling then rate limiting (in that order, per
// spec.md §4.6) and, if the sample survives both, forwards a pool
// reference to every attached writer.
func (t *Track) process(raw participant.Payload) {
	t.mu.Lock()
	keep := t.downsampleIdx%uint64(t.downsampling) == 0
	t.downsampleIdx++
	if !keep {
		t.mu.Unlock()
		return
	}

	now := time.Now()
	if t.minIntersamplePeriod > 0 && !t.lastReceivedTs.IsZero() && now.Sub(t.lastReceivedTs) < t.minIntersamplePeriod {
		t.mu.Unlock()
		return
	}
	t.lastReceivedTs = now

	writers := make(map[participant.ID]participant.Writer, len(t.writers))
	for id, w := range t.writers {
		writers[id] = w
	}
	t.mu.Unlock()

	if len(writers) == 0 {
		return
	}

	buf, err := t.pool.GetFrom(raw.Bytes())
	if err != nil {
		t.log.Error("payload pool exhausted", logger.Error(err))
		return
	}
	defer t.pool.Release(buf)

	for id, w := range writers {
		ref := t.pool.Ref(buf)
		result := w.Write(ref)
		t.pool.Release(ref)

		switch result {
		case participant.WriteRecoverable:
			t.log.Warn("writer returned recoverable error", logger.String("writer", id.String()))
		case participant.WriteFatal:
			t.log.Error("writer returned fatal error, removing from track", logger.String("writer", id.String()))
			t.RemoveWriter(id)
			if t.onFatalWriter != nil {
				t.onFatalWriter(id)
			}
		}
	}
}
