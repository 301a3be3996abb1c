package track

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ddspipe/ddspipe-go/pkg/logger"
	"github.com/ddspipe/ddspipe-go/pkg/participant"
	"github.com/ddspipe/ddspipe-go/pkg/payload"
	"github.com/ddspipe/ddspipe-go/pkg/topic"
)

type fakePayload struct{ b []byte }

func (f fakePayload) Bytes() []byte { return f.b }

type fakeReader struct {
	mu        sync.Mutex
	queue     [][]byte
	available func()
	enabled   bool
}

func (r *fakeReader) GUID() string                 { return "reader-guid" }
func (r *fakeReader) Topic() topic.DistributedTopic { return topic.DistributedTopic{Name: "t", TypeName: "T"} }
func (r *fakeReader) Enable() error                 { r.mu.Lock(); r.enabled = true; r.mu.Unlock(); return nil }
func (r *fakeReader) Disable() error                { r.mu.Lock(); r.enabled = false; r.mu.Unlock(); return nil }
func (r *fakeReader) SetDataAvailable(cb func())    { r.mu.Lock(); r.available = cb; r.mu.Unlock() }

func (r *fakeReader) Take() (participant.Payload, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.queue) == 0 {
		return nil, false, nil
	}
	b := r.queue[0]
	r.queue = r.queue[1:]
	return fakePayload{b: b}, true, nil
}

func (r *fakeReader) push(data []byte) {
	r.mu.Lock()
	r.queue = append(r.queue, data)
	cb := r.available
	r.mu.Unlock()
	if cb != nil {
		cb()
	}
}

type fakeWriter struct {
	id participant.ID

	mu      sync.Mutex
	got     [][]byte
	result  participant.WriteResult
}

func (w *fakeWriter) GUID() string                 { return string(w.id) }
func (w *fakeWriter) Topic() topic.DistributedTopic { return topic.DistributedTopic{Name: "t", TypeName: "T"} }
func (w *fakeWriter) Write(p participant.Payload) participant.WriteResult {
	w.mu.Lock()
	defer w.mu.Unlock()
	b := append([]byte(nil), p.Bytes()...)
	w.got = append(w.got, b)
	return w.result
}

func (w *fakeWriter) received() [][]byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([][]byte(nil), w.got...)
}

func newTestTrack(t *testing.T, reader *fakeReader, qos topic.QoS) (*Track, *payload.Pool) {
	t.Helper()
	pool := payload.NewPool()
	disp := NewWorkerPool(4)
	log := logger.New(logger.Config{Level: "error"})
	tr := New("reader-1", reader, pool, qos, disp, log, nil)
	return tr, pool
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestTrack_ForwardsToAllWriters(t *testing.T) {
	reader := &fakeReader{}
	tr, _ := newTestTrack(t, reader, topic.DefaultQoS())

	w1 := &fakeWriter{id: "w1"}
	w2 := &fakeWriter{id: "w2"}
	tr.AddWriter("w1", w1)
	tr.AddWriter("w2", w2)

	if err := tr.Enable(); err != nil {
		t.Fatalf("Enable() error = %v", err)
	}
	reader.push([]byte("hello"))

	waitFor(t, func() bool { return len(w1.received()) == 1 && len(w2.received()) == 1 })

	if string(w1.received()[0]) != "hello" {
		t.Errorf("w1 got %q, want %q", w1.received()[0], "hello")
	}
}

func TestTrack_Downsampling(t *testing.T) {
	// spec.md §4.6/§8 scenario 3: N=3 over samples s1..s7 forwards
	// s1, s4, s7 (check-then-advance on a 0-based counter), not s3/s6.
	reader := &fakeReader{}
	qos := topic.DefaultQoS()
	qos.Downsampling = 3
	tr, _ := newTestTrack(t, reader, qos)

	w := &fakeWriter{id: "w1"}
	tr.AddWriter("w1", w)
	if err := tr.Enable(); err != nil {
		t.Fatalf("Enable() error = %v", err)
	}

	for i := 1; i <= 7; i++ {
		reader.push([]byte{byte(i)})
	}

	waitFor(t, func() bool { return len(w.received()) == 3 })
	got := w.received()
	want := [][]byte{{1}, {4}, {7}}
	if len(got) != len(want) {
		t.Fatalf("len(received) = %d, want %d", len(got), len(want))
	}
	for i, b := range want {
		if string(got[i]) != string(b) {
			t.Errorf("received[%d] = %v, want %v", i, got[i], b)
		}
	}
}

func TestTrack_FatalWriterRemoved(t *testing.T) {
	reader := &fakeReader{}
	tr, _ := newTestTrack(t, reader, topic.DefaultQoS())

	var removedID participant.ID
	var mu sync.Mutex
	tr2pool := payload.NewPool()
	disp := NewWorkerPool(4)
	log := logger.New(logger.Config{Level: "error"})
	tr = New("reader-1", reader, tr2pool, topic.DefaultQoS(), disp, log, func(id participant.ID) {
		mu.Lock()
		removedID = id
		mu.Unlock()
	})

	w := &fakeWriter{id: "bad-writer", result: participant.WriteFatal}
	tr.AddWriter("bad-writer", w)
	if err := tr.Enable(); err != nil {
		t.Fatalf("Enable() error = %v", err)
	}

	reader.push([]byte("x"))
	waitFor(t, func() bool { return !tr.HasWriter("bad-writer") })

	mu.Lock()
	defer mu.Unlock()
	if removedID != "bad-writer" {
		t.Errorf("onFatalWriter called with %q, want %q", removedID, "bad-writer")
	}
}

func TestTrack_DisableStopsForwarding(t *testing.T) {
	reader := &fakeReader{}
	tr, _ := newTestTrack(t, reader, topic.DefaultQoS())

	w := &fakeWriter{id: "w1"}
	tr.AddWriter("w1", w)
	if err := tr.Enable(); err != nil {
		t.Fatalf("Enable() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := tr.Disable(ctx); err != nil {
		t.Fatalf("Disable() error = %v", err)
	}
	if tr.State() != Disabled {
		t.Fatalf("State() = %v, want Disabled", tr.State())
	}

	reader.push([]byte("should not forward"))
	time.Sleep(20 * time.Millisecond)
	if len(w.received()) != 0 {
		t.Error("writer should not receive samples while disabled")
	}
}

func TestTrack_AddRemoveHasWriter(t *testing.T) {
	reader := &fakeReader{}
	tr, _ := newTestTrack(t, reader, topic.DefaultQoS())

	if tr.HasWriters() {
		t.Fatal("new track should have no writers")
	}
	tr.AddWriter("w1", &fakeWriter{id: "w1"})
	if !tr.HasWriter("w1") {
		t.Fatal("expected w1 to be present")
	}
	if !tr.RemoveWriter("w1") {
		t.Fatal("RemoveWriter should report true for a present writer")
	}
	if tr.RemoveWriter("w1") {
		t.Fatal("RemoveWriter should report false for an absent writer")
	}
}
