package discovery

import (
	"errors"
	"sync"
	"testing"

	"github.com/ddspipe/ddspipe-go/pkg/ddpipeerr"
	"github.com/ddspipe/ddspipe-go/pkg/participant"
	"github.com/ddspipe/ddspipe-go/pkg/topic"
)

func sampleEndpoint(guid string) Endpoint {
	return Endpoint{
		GUID:          guid,
		Kind:          KindReader,
		Topic:         topic.DistributedTopic{Name: "t", TypeName: "T"},
		ParticipantID: "p1",
		Active:        true,
	}
}

func TestDatabase_AddOrModify_EmitsDiscoveredThenUpdated(t *testing.T) {
	d := NewDatabase()
	var events []Event
	d.Subscribe(func(e Event) { events = append(events, e) })

	ep := sampleEndpoint("g1")
	d.AddOrModify(ep)

	ep.Active = false
	d.AddOrModify(ep)

	if len(events) != 2 {
		t.Fatalf("len(events) = %d, want 2", len(events))
	}
	if events[0].Type != Discovered {
		t.Errorf("events[0].Type = %v, want Discovered", events[0].Type)
	}
	if events[1].Type != Updated {
		t.Errorf("events[1].Type = %v, want Updated", events[1].Type)
	}
}

func TestDatabase_AddOrModify_NoOpEmitsNothing(t *testing.T) {
	d := NewDatabase()
	var count int
	d.Subscribe(func(e Event) { count++ })

	ep := sampleEndpoint("g1")
	d.AddOrModify(ep)
	d.AddOrModify(ep) // identical, should not emit Updated

	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
}

func TestDatabase_Erase_EmitsRemoved(t *testing.T) {
	d := NewDatabase()
	var events []Event
	d.Subscribe(func(e Event) { events = append(events, e) })

	d.AddOrModify(sampleEndpoint("g1"))
	if err := d.Erase("g1"); err != nil {
		t.Fatalf("Erase() error = %v", err)
	}

	if len(events) != 2 || events[1].Type != Removed {
		t.Fatalf("events = %+v, want [Discovered, Removed]", events)
	}
	if d.Count() != 0 {
		t.Errorf("Count() = %d, want 0", d.Count())
	}
}

func TestDatabase_Erase_UnknownGUIDIsNonFatal(t *testing.T) {
	d := NewDatabase()
	err := d.Erase("ghost")
	if err == nil {
		t.Fatal("expected an error for erasing an unknown guid")
	}
	if !errors.Is(err, ddpipeerr.ErrUnknownEndpoint) {
		t.Errorf("expected ErrUnknownEndpoint, got %v", err)
	}
}

func TestDatabase_Snapshot(t *testing.T) {
	d := NewDatabase()
	d.AddOrModify(sampleEndpoint("g1"))
	d.AddOrModify(sampleEndpoint("g2"))

	snap := d.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("len(Snapshot()) = %d, want 2", len(snap))
	}
}

func TestDatabase_PerGUIDOrderingUnderConcurrency(t *testing.T) {
	d := NewDatabase()
	var mu sync.Mutex
	seen := make(map[string][]EventType)
	d.Subscribe(func(e Event) {
		mu.Lock()
		seen[e.Endpoint.GUID] = append(seen[e.Endpoint.GUID], e.Type)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			ep := sampleEndpoint("shared-guid")
			ep.ParticipantID = participant.ID(topic.DistributedTopic{}.Name) // vary nothing meaningful
			_ = n
			d.AddOrModify(ep)
		}(i)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	events := seen["shared-guid"]
	if len(events) == 0 {
		t.Fatal("expected at least one event for shared-guid")
	}
	if events[0] != Discovered {
		t.Errorf("first event for a GUID must be Discovered, got %v", events[0])
	}
}
