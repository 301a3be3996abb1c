// Package discovery implements the Discovery Database (spec.md §4.5): an
// append-mostly store of endpoint records keyed by GUID, with a
// subscription API that preserves per-GUID event ordering. Grounded on
// pkg/peer/manager.go's RW-locked registry shape, generalized from peers
// to endpoints, and on pkg/mqtt/publisher.go's typed-event/listener
// style for the Discovered/Updated/Removed subscription API.
package discovery

import (
	"fmt"
	"sync"

	"github.com/ddspipe/ddspipe-go/pkg/ddpipeerr"
	"github.com/ddspipe/ddspipe-go/pkg/participant"
	"github.com/ddspipe/ddspipe-go/pkg/topic"
)

// Kind distinguishes a reader endpoint from a writer endpoint.
type Kind int

const (
	KindReader Kind = iota
	KindWriter
)

func (k Kind) String() string {
	if k == KindWriter {
		return "writer"
	}
	return "reader"
}

// Endpoint is the discovery record (spec.md §3): a GUID-identified
// reader or writer, attached to a topic and a participant.
type Endpoint struct {
	GUID          string
	Kind          Kind
	Topic         topic.DistributedTopic
	ParticipantID participant.ID
	Active        bool
}

// EventType classifies a change delivered to subscribers.
type EventType int

const (
	Discovered EventType = iota
	Updated
	Removed
)

func (e EventType) String() string {
	switch e {
	case Discovered:
		return "discovered"
	case Updated:
		return "updated"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

// Event is posted to every subscriber for a single endpoint change.
type Event struct {
	Type     EventType
	Endpoint Endpoint
}

// Listener receives discovery events. Invoked serially per GUID, in the
// order they occur; no ordering is promised across distinct GUIDs
// (spec.md §4.5).
type Listener func(Event)

// Database is the Discovery Database.
type Database struct {
	mu        sync.Mutex
	endpoints map[string]Endpoint
	listeners []Listener
}

// NewDatabase creates an empty Discovery Database.
func NewDatabase() *Database {
	return &Database{
		endpoints: make(map[string]Endpoint),
	}
}

// Subscribe registers l to receive every future event. Existing
// endpoints are not replayed; callers that need the current state
// should call Snapshot first.
func (d *Database) Subscribe(l Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, l)
}

// AddOrModify inserts or updates ep, emitting Discovered for a new GUID
// or Updated when an existing record's fields actually changed. A
// no-op write (identical fields) emits nothing.
//
// The database's lock is held for the full duration of event dispatch,
// not just the map update: this is what makes the per-GUID ordering
// guarantee (spec.md §4.5) hold even under concurrent writers for
// different GUIDs, at the cost of serializing all dispatch globally.
// Listeners must not call back into the Database or they will deadlock.
func (d *Database) AddOrModify(ep Endpoint) {
	d.mu.Lock()
	defer d.mu.Unlock()

	existing, had := d.endpoints[ep.GUID]
	d.endpoints[ep.GUID] = ep

	var evt Event
	switch {
	case !had:
		evt = Event{Type: Discovered, Endpoint: ep}
	case existing != ep:
		evt = Event{Type: Updated, Endpoint: ep}
	default:
		return
	}
	for _, l := range d.listeners {
		l(evt)
	}
}

// Erase removes guid, emitting Removed. Erasing an absent GUID returns
// ddpipeerr.ErrUnknownEndpoint, a non-fatal warning-level condition
// (spec.md §4.5, §7) — it emits no event.
func (d *Database) Erase(guid string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	ep, had := d.endpoints[guid]
	if !had {
		return fmt.Errorf("%w: guid %q", ddpipeerr.ErrUnknownEndpoint, guid)
	}
	delete(d.endpoints, guid)

	evt := Event{Type: Removed, Endpoint: ep}
	for _, l := range d.listeners {
		l(evt)
	}
	return nil
}

// Get returns the endpoint for guid, or ok=false if absent.
func (d *Database) Get(guid string) (Endpoint, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ep, ok := d.endpoints[guid]
	return ep, ok
}

// Snapshot returns every currently known endpoint.
func (d *Database) Snapshot() []Endpoint {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Endpoint, 0, len(d.endpoints))
	for _, ep := range d.endpoints {
		out = append(out, ep)
	}
	return out
}

// Count returns the number of known endpoints.
func (d *Database) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.endpoints)
}
