// Package bridge implements the Bridge (spec.md §4.7): for a single
// topic, a collection of Tracks keyed by reader participant ID, with the
// writer-assignment algorithm that decides which tracks a newly
// discovered writer joins. Grounded on pkg/bridge/router.go's Router (a
// mutex-guarded, keyed registry with cascading enable/disable) — "Router
// owns many named BridgeRuleSets" becomes "Bridge owns many per-reader
// Tracks".
package bridge

import (
	"context"
	"fmt"
	"sync"

	"github.com/ddspipe/ddspipe-go/pkg/ddpipeerr"
	"github.com/ddspipe/ddspipe-go/pkg/logger"
	"github.com/ddspipe/ddspipe-go/pkg/participant"
	"github.com/ddspipe/ddspipe-go/pkg/payload"
	"github.com/ddspipe/ddspipe-go/pkg/routes"
	"github.com/ddspipe/ddspipe-go/pkg/topic"
	"github.com/ddspipe/ddspipe-go/pkg/track"
)

// Bridge owns every Track for one topic, keyed by the reader's
// participant ID (spec.md §4.7).
type Bridge struct {
	topic        topic.DistributedTopic
	participants *participant.Database
	pool         *payload.Pool
	dispatcher   track.Dispatcher
	log          *logger.Logger
	removeUnused bool

	mu      sync.Mutex
	routes  routes.Configuration
	tracks  map[participant.ID]*track.Track
	readers map[participant.ID]struct{}
	enabled bool
}

// New creates an empty Bridge for t. If removeUnusedEntities is false,
// CreateAllTracks should be called once to materialize tracks for every
// reader named in rt eagerly; otherwise tracks are created lazily as
// writers are announced (spec.md §4.7).
func New(t topic.DistributedTopic, participants *participant.Database, pool *payload.Pool, dispatcher track.Dispatcher, log *logger.Logger, rt routes.Configuration, removeUnusedEntities bool) *Bridge {
	return &Bridge{
		topic:        t,
		participants: participants,
		pool:         pool,
		dispatcher:   dispatcher,
		log:          log,
		removeUnused: removeUnusedEntities,
		routes:       rt,
		tracks:       make(map[participant.ID]*track.Track),
		readers:      make(map[participant.ID]struct{}),
	}
}

// Topic returns the topic this bridge serves.
func (b *Bridge) Topic() topic.DistributedTopic {
	return b.topic
}

// TrackCount returns the number of tracks currently owned by the bridge.
func (b *Bridge) TrackCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.tracks)
}

// IsEmpty reports whether the bridge owns no tracks, used by the Pipe
// Controller to decide whether to destroy it when remove_unused_entities
// is set (spec.md §4.8).
func (b *Bridge) IsEmpty() bool {
	return b.TrackCount() == 0
}

// Tracks returns a snapshot of every track currently owned by the
// bridge, for status reporting (the web dashboard, metrics export).
func (b *Bridge) Tracks() []*track.Track {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*track.Track, 0, len(b.tracks))
	for _, tr := range b.tracks {
		out = append(out, tr)
	}
	return out
}

// CreateAllTracks eagerly materializes a track for every reader named as
// a source in the bridge's routes configuration (spec.md §4.7,
// `create_all_tracks`). Used when remove_unused_entities is false. The
// tracks it creates hold no writers until CreateWriter attaches them.
func (b *Bridge) CreateAllTracks() error {
	b.mu.Lock()
	readerIDs := make([]participant.ID, 0)
	for id := range b.routes.Generic {
		readerIDs = append(readerIDs, id)
	}
	for _, r := range b.routes.TopicRoutes {
		for id := range r {
			readerIDs = append(readerIDs, id)
		}
	}
	b.mu.Unlock()

	for _, id := range readerIDs {
		if _, err := b.EnsureReaderTrack(id); err != nil {
			return err
		}
	}
	return nil
}

// RegisterReader records that readerID has been discovered for this
// bridge's topic, without materializing a Track; CreateWriter creates the
// reader's track once a writer belongs to it. This is the Pipe
// Controller's reader-discovery entry point.
func (b *Bridge) RegisterReader(readerID participant.ID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.readers[readerID] = struct{}{}
}

// UnregisterReader forgets readerID and destroys its track, if any: a
// track cannot outlive the reader it forwards from. This is the Pipe
// Controller's reader-removal entry point.
func (b *Bridge) UnregisterReader(ctx context.Context, readerID participant.ID) error {
	b.mu.Lock()
	delete(b.readers, readerID)
	tr, ok := b.tracks[readerID]
	if ok {
		delete(b.tracks, readerID)
	}
	b.mu.Unlock()

	if !ok {
		return nil
	}
	return tr.Destroy(ctx)
}

// EnsureReaderTrack returns the track for readerID, creating it (and the
// underlying reader, via the owning participant) if absent. It attaches
// no writer: CreateWriter calls it just before adding one, while
// CreateAllTracks calls it for every route source, leaving those tracks
// without writers. It is not a discovery entry point itself.
func (b *Bridge) EnsureReaderTrack(readerID participant.ID) (*track.Track, error) {
	b.mu.Lock()
	if tr, ok := b.tracks[readerID]; ok {
		b.mu.Unlock()
		return tr, nil
	}
	b.mu.Unlock()

	p, ok := b.participants.Get(readerID)
	if !ok {
		return nil, fmt.Errorf("%w: reader participant %q is not registered", ddpipeerr.ErrInvalidRoute, readerID)
	}
	reader, err := p.CreateReader(b.topic)
	if err != nil {
		return nil, fmt.Errorf("create reader for %q: %w", readerID, err)
	}

	qos := b.topic.QoS
	tr := track.New(readerID, reader, b.pool, qos, b.dispatcher, b.log, func(writerID participant.ID) {
		b.log.Warn("track removed fatal writer", logger.String("topic", b.topic.Name), logger.String("writer", writerID.String()))
	})

	b.mu.Lock()
	b.tracks[readerID] = tr
	b.readers[readerID] = struct{}{}
	enabled := b.enabled
	b.mu.Unlock()

	if enabled {
		if err := tr.Enable(); err != nil {
			return nil, err
		}
	}
	return tr, nil
}

// availableWriters returns every participant ID currently registered in
// the participants database.
func (b *Bridge) availableWriters() map[participant.ID]struct{} {
	ids := b.participants.IDs()
	out := make(map[participant.ID]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

// CreateWriter resolves a writer from pid's participant and inserts it
// into every track whose route selects pid, creating a track for a named
// reader with no track yet (spec.md §4.7). pid must not be
// participant.Default.
func (b *Bridge) CreateWriter(pid participant.ID) error {
	if pid.IsDefault() {
		return fmt.Errorf("%w: writer participant id must not be DEFAULT", ddpipeerr.ErrInvalidConfiguration)
	}

	p, ok := b.participants.Get(pid)
	if !ok {
		return fmt.Errorf("%w: writer participant %q is not registered", ddpipeerr.ErrInvalidRoute, pid)
	}
	writer, err := p.CreateWriter(b.topic)
	if err != nil {
		return fmt.Errorf("create writer for %q: %w", pid, err)
	}

	b.mu.Lock()
	rt, _ := b.routes.Resolve(b.topic)
	candidates := make(map[participant.ID]struct{}, len(b.readers)+len(b.tracks)+len(rt))
	for readerID := range b.readers {
		candidates[readerID] = struct{}{}
	}
	for readerID := range b.tracks {
		candidates[readerID] = struct{}{}
	}
	for readerID := range rt {
		candidates[readerID] = struct{}{}
	}
	available := b.availableWriters()
	b.mu.Unlock()

	// For every known reader (discovered, already tracked, or named by a
	// route) whose writer set would include pid, materialize its track on
	// demand and attach the writer — never the reverse, so a track is
	// never created before it is known to have a writer (spec.md §4.7, §8
	// scenario 2).
	for readerID := range candidates {
		if !b.writerBelongsToTrack(readerID, pid, rt, available) {
			continue
		}
		readerParticipant, ok := b.participants.Get(readerID)
		isRepeater := ok && readerParticipant.IsRepeater()
		if readerID == pid && !isRepeater {
			continue
		}
		tr, err := b.EnsureReaderTrack(readerID)
		if err != nil {
			return err
		}
		tr.AddWriter(pid, writer)
	}
	return nil
}

// writerBelongsToTrack implements the writer-assignment algorithm
// (spec.md §4.7): a reader with a route entry forwards only to
// route[reader] ∩ available_writers; a reader with no route entry
// forwards to all available writers except itself (unless its
// participant is a repeater, handled by the caller).
func (b *Bridge) writerBelongsToTrack(readerID, writerID participant.ID, rt routes.Route, available map[participant.ID]struct{}) bool {
	if dsts, hasRoute := rt.Writers(readerID); hasRoute {
		_, wants := dsts[writerID]
		return wants
	}
	_, isAvailable := available[writerID]
	return isAvailable
}

// RemoveWriter removes pid from every track; any track left with zero
// writers is destroyed when remove_unused_entities is set (spec.md
// §4.7). pid must not be participant.Default.
func (b *Bridge) RemoveWriter(ctx context.Context, pid participant.ID) error {
	if pid.IsDefault() {
		return fmt.Errorf("%w: writer participant id must not be DEFAULT", ddpipeerr.ErrInvalidConfiguration)
	}

	b.mu.Lock()
	tracks := make(map[participant.ID]*track.Track, len(b.tracks))
	for id, tr := range b.tracks {
		tracks[id] = tr
	}
	b.mu.Unlock()

	for readerID, tr := range tracks {
		tr.RemoveWriter(pid)
		if b.removeUnused && !tr.HasWriters() {
			if err := tr.Destroy(ctx); err != nil {
				return err
			}
			b.mu.Lock()
			delete(b.tracks, readerID)
			b.mu.Unlock()
		}
	}
	return nil
}

// Enable idempotently enables every track owned by the bridge. Holds the
// bridge mutex for the duration of the cascade (spec.md §4.7).
func (b *Bridge) Enable() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.enabled {
		return nil
	}
	b.enabled = true
	for _, tr := range b.tracks {
		if err := tr.Enable(); err != nil {
			return err
		}
	}
	return nil
}

// Disable idempotently disables every track owned by the bridge.
func (b *Bridge) Disable(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.enabled {
		return nil
	}
	b.enabled = false
	for _, tr := range b.tracks {
		if err := tr.Disable(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Reconfigure atomically replaces the bridge's routes configuration.
// Existing tracks and their writer assignments are left untouched; the
// new configuration governs only future CreateWriter/CreateAllTracks
// calls. The Pipe Controller's Reload does not re-derive writer
// membership for already-discovered endpoints either, so existing tracks
// keep the writer sets computed under the previous routes.
func (b *Bridge) Reconfigure(rt routes.Configuration) {
	b.mu.Lock()
	b.routes = rt
	b.mu.Unlock()
}
