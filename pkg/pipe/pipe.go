// Package pipe implements the Pipe Controller (spec.md §4.8): the
// top-level coordinator that subscribes to discovery, applies the
// Allowed-Topics Filter, creates/destroys Bridges, and handles
// enable/disable/reload. Grounded on cmd/dmr-nexus/main.go's top-level
// wiring order (construct components, wire callbacks, run until
// signaled) and pkg/bridge/router.go's cascade enable/disable idiom,
// generalized from "Router cascades to BridgeRuleSets" to "Pipe
// Controller cascades to Bridges".
package pipe

import (
	"context"
	"fmt"
	"sync"

	"github.com/ddspipe/ddspipe-go/pkg/bridge"
	"github.com/ddspipe/ddspipe-go/pkg/config"
	"github.com/ddspipe/ddspipe-go/pkg/ddpipeerr"
	"github.com/ddspipe/ddspipe-go/pkg/discovery"
	"github.com/ddspipe/ddspipe-go/pkg/filter"
	"github.com/ddspipe/ddspipe-go/pkg/logger"
	"github.com/ddspipe/ddspipe-go/pkg/participant"
	"github.com/ddspipe/ddspipe-go/pkg/payload"
	"github.com/ddspipe/ddspipe-go/pkg/routes"
	"github.com/ddspipe/ddspipe-go/pkg/topic"
	"github.com/ddspipe/ddspipe-go/pkg/track"
)

// Controller is the Pipe Controller: the single coordinator owning every
// Bridge in the pipe.
type Controller struct {
	participants *participant.Database
	discoveryDB  *discovery.Database
	pool         *payload.Pool
	dispatcher   track.Dispatcher
	log          *logger.Logger

	mu                    sync.Mutex
	filterCfg             *filter.AllowedTopics
	routesCfg             routes.Configuration
	removeUnusedEntities  bool
	entityCreationTrigger config.EntityCreationTrigger
	enabled               bool
	bridges               map[string]*bridge.Bridge // keyed by topic.DistributedTopic.Key()
}

// New builds a Controller from a resolved configuration. It subscribes
// to discoveryDB immediately; discovery events observed before the
// controller is enabled still create/populate bridges, but tracks stay
// disabled until Enable is called (spec.md §4.8, §3: "Pipe is created
// disabled unless init_enabled").
func New(resolved *config.Resolved, participants *participant.Database, discoveryDB *discovery.Database, pool *payload.Pool, dispatcher track.Dispatcher, log *logger.Logger) *Controller {
	c := &Controller{
		participants:          participants,
		discoveryDB:           discoveryDB,
		pool:                  pool,
		dispatcher:            dispatcher,
		log:                   log,
		filterCfg:             resolved.Filter,
		routesCfg:             resolved.Routes,
		removeUnusedEntities:  resolved.RemoveUnusedEntities,
		entityCreationTrigger: resolved.EntityCreationTrigger,
		bridges:               make(map[string]*bridge.Bridge),
	}

	for _, bt := range resolved.BuiltinTopics {
		c.ensureBridge(bt)
	}

	discoveryDB.Subscribe(c.onDiscoveryEvent)

	if resolved.InitEnabled {
		if err := c.Enable(); err != nil {
			log.Error("failed to enable pipe at construction", logger.Error(err))
		}
	}
	return c
}

// BridgeCount returns the number of live bridges, for metrics/tests.
func (c *Controller) BridgeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.bridges)
}

// Bridge returns the bridge for t, if one exists.
func (c *Controller) Bridge(t topic.DistributedTopic) (*bridge.Bridge, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.bridges[t.Key()]
	return b, ok
}

// Bridges returns a snapshot of every live bridge, for status reporting
// (the web dashboard, metrics export).
func (c *Controller) Bridges() []*bridge.Bridge {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotBridges()
}

func (c *Controller) onDiscoveryEvent(evt discovery.Event) {
	if evt.Type == discovery.Removed {
		c.handleRemoval(evt.Endpoint)
		return
	}
	c.handleDiscoveryOrUpdate(evt.Endpoint)
}

func (c *Controller) handleDiscoveryOrUpdate(ep discovery.Endpoint) {
	c.mu.Lock()
	filterCfg := c.filterCfg
	c.mu.Unlock()
	t, accepted := filterCfg.Accept(ep.Topic)
	if !accepted {
		return
	}

	c.mu.Lock()
	trigger := c.entityCreationTrigger
	_, exists := c.bridges[t.Key()]
	c.mu.Unlock()

	if !exists {
		if !triggerAllows(trigger, ep.Kind) {
			return
		}
		c.ensureBridge(t)
	}

	b, ok := c.Bridge(t)
	if !ok {
		return
	}

	var err error
	switch ep.Kind {
	case discovery.KindWriter:
		err = b.CreateWriter(ep.ParticipantID)
	case discovery.KindReader:
		// Registering does not materialize a Track: a Track is only
		// created once a writer is known to belong to it (spec.md §4.7,
		// §8 scenario 2).
		b.RegisterReader(ep.ParticipantID)
	}
	if err != nil {
		c.log.Error("failed to admit discovered endpoint", logger.String("topic", t.Name), logger.Error(err))
	}
}

func (c *Controller) handleRemoval(ep discovery.Endpoint) {
	c.mu.Lock()
	filterCfg := c.filterCfg
	c.mu.Unlock()
	t, accepted := filterCfg.Accept(ep.Topic)
	if !accepted {
		return
	}
	b, ok := c.Bridge(t)
	if !ok {
		return
	}

	ctx := context.Background()
	switch ep.Kind {
	case discovery.KindWriter:
		if err := b.RemoveWriter(ctx, ep.ParticipantID); err != nil {
			c.log.Warn("failed to remove writer on discovery removal", logger.Error(err))
		}
	case discovery.KindReader:
		if err := b.UnregisterReader(ctx, ep.ParticipantID); err != nil {
			c.log.Warn("failed to remove reader on discovery removal", logger.Error(err))
		}
	}

	c.mu.Lock()
	if c.removeUnusedEntities && b.IsEmpty() {
		delete(c.bridges, t.Key())
	}
	c.mu.Unlock()
}

// triggerAllows reports whether a discovery of kind should create a new
// Bridge under trigger (spec.md §4.8 step 2).
func triggerAllows(trigger config.EntityCreationTrigger, kind discovery.Kind) bool {
	switch trigger {
	case config.TriggerReader:
		return kind == discovery.KindReader
	case config.TriggerWriter:
		return kind == discovery.KindWriter
	default:
		return true
	}
}

func (c *Controller) ensureBridge(t topic.DistributedTopic) *bridge.Bridge {
	c.mu.Lock()
	if b, ok := c.bridges[t.Key()]; ok {
		c.mu.Unlock()
		return b
	}
	rt, _ := c.routesCfg.Resolve(t)
	removeUnused := c.removeUnusedEntities
	enabled := c.enabled
	c.mu.Unlock()

	full := routes.NewConfiguration(rt, nil)
	b := bridge.New(t, c.participants, c.pool, c.dispatcher, c.log, full, removeUnused)

	c.mu.Lock()
	c.bridges[t.Key()] = b
	c.mu.Unlock()

	if !removeUnused {
		if err := b.CreateAllTracks(); err != nil {
			c.log.Error("failed to eagerly create tracks", logger.String("topic", t.Name), logger.Error(err))
		}
	}
	if enabled {
		if err := b.Enable(); err != nil {
			c.log.Error("failed to enable newly created bridge", logger.String("topic", t.Name), logger.Error(err))
		}
	}
	return b
}

// Enable flips the pipe-wide enable flag and enables every bridge.
// Idempotent (spec.md §4.8).
func (c *Controller) Enable() error {
	c.mu.Lock()
	if c.enabled {
		c.mu.Unlock()
		return nil
	}
	c.enabled = true
	bridges := c.snapshotBridges()
	c.mu.Unlock()

	for _, b := range bridges {
		if err := b.Enable(); err != nil {
			return fmt.Errorf("%w: %v", ddpipeerr.ErrInitialization, err)
		}
	}
	return nil
}

// Disable flips the pipe-wide enable flag off and disables every bridge.
// Idempotent.
func (c *Controller) Disable(ctx context.Context) error {
	c.mu.Lock()
	if !c.enabled {
		c.mu.Unlock()
		return nil
	}
	c.enabled = false
	bridges := c.snapshotBridges()
	c.mu.Unlock()

	for _, b := range bridges {
		if err := b.Disable(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) snapshotBridges() []*bridge.Bridge {
	out := make([]*bridge.Bridge, 0, len(c.bridges))
	for _, b := range c.bridges {
		out = append(out, b)
	}
	return out
}

// Reload replaces the filter, routes, remove-unused-entities flag and
// entity-creation trigger under the controller lock, then pushes the new
// routes into every existing bridge (spec.md §4.8). Discovery handling
// reads each of these settings under the same lock, but an event already
// being handled is not held back until Reload returns, so it can act on
// a mix of old and new settings. InitEnabled, BuiltinTopics, Threads and
// MaxDepth are not applied, the enabled/disabled state is untouched, and
// existing tracks keep their writers (see bridge.Reconfigure).
func (c *Controller) Reload(resolved *config.Resolved) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.filterCfg = resolved.Filter
	c.routesCfg = resolved.Routes
	c.removeUnusedEntities = resolved.RemoveUnusedEntities
	c.entityCreationTrigger = resolved.EntityCreationTrigger

	for _, b := range c.bridges {
		rt, _ := c.routesCfg.Resolve(b.Topic())
		b.Reconfigure(routes.NewConfiguration(rt, nil))
	}
	return nil
}
