package participant

import (
	"sync"
	"testing"

	"github.com/ddspipe/ddspipe-go/pkg/topic"
)

type fakeParticipant struct {
	id       ID
	repeater bool
}

func (f *fakeParticipant) ID() ID           { return f.id }
func (f *fakeParticipant) IsRepeater() bool { return f.repeater }
func (f *fakeParticipant) IsRTPSKind() bool { return false }
func (f *fakeParticipant) CreateReader(topic.DistributedTopic) (Reader, error) { return nil, nil }
func (f *fakeParticipant) CreateWriter(topic.DistributedTopic) (Writer, error) { return nil, nil }

func TestDatabase_AddGetRemove(t *testing.T) {
	db := NewDatabase()
	p := &fakeParticipant{id: "A"}

	db.Add(p)
	if !db.Has("A") {
		t.Fatal("expected A to be present")
	}

	got, ok := db.Get("A")
	if !ok || got.ID() != "A" {
		t.Fatalf("Get returned %v, %v", got, ok)
	}

	db.Remove("A")
	if db.Has("A") {
		t.Error("expected A to be removed")
	}
}

func TestDatabase_IDsAndAll(t *testing.T) {
	db := NewDatabase()
	db.Add(&fakeParticipant{id: "A"})
	db.Add(&fakeParticipant{id: "B"})

	if db.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", db.Count())
	}
	if len(db.IDs()) != 2 {
		t.Fatalf("len(IDs()) = %d, want 2", len(db.IDs()))
	}
	if len(db.All()) != 2 {
		t.Fatalf("len(All()) = %d, want 2", len(db.All()))
	}
}

func TestDatabase_ConcurrentAccess(t *testing.T) {
	db := NewDatabase()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			db.Add(&fakeParticipant{id: ID(rune('A' + n%26))})
		}(i)
		go func() {
			defer wg.Done()
			db.IDs()
		}()
	}
	wg.Wait()
}

func TestDefault_IsReservedSentinel(t *testing.T) {
	if !Default.IsDefault() {
		t.Error("Default should report IsDefault()")
	}
	if ID("anything").IsDefault() {
		t.Error("a non-empty ID should not report IsDefault()")
	}
}
