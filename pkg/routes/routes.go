// Package routes implements the Routes Configuration (spec.md §4.3):
// generic and per-topic reader→{writer} maps, validated against a
// participant index. Grounded on pkg/bridge/rules.go's BridgeRuleSet
// (a named, mutex-guarded rule collection) and pkg/config/validation.go's
// pattern of validating rules against a known-participants map.
package routes

import (
	"fmt"

	"github.com/ddspipe/ddspipe-go/pkg/ddpipeerr"
	"github.com/ddspipe/ddspipe-go/pkg/participant"
	"github.com/ddspipe/ddspipe-go/pkg/topic"
)

// Route maps a reader's participant ID to the set of writer participant
// IDs it forwards to.
type Route map[participant.ID]map[participant.ID]struct{}

// Writers returns the writer set configured for reader src, or ok=false
// if src has no entry in this route at all (as opposed to an entry with
// an empty writer set).
func (r Route) Writers(src participant.ID) (map[participant.ID]struct{}, bool) {
	w, ok := r[src]
	return w, ok
}

// HasReader reports whether src has a route entry.
func (r Route) HasReader(src participant.ID) bool {
	_, ok := r[src]
	return ok
}

// Add inserts dst into src's writer set, creating the entry if needed.
func (r Route) Add(src, dst participant.ID) {
	if r[src] == nil {
		r[src] = make(map[participant.ID]struct{})
	}
	r[src][dst] = struct{}{}
}

// Configuration holds the generic route plus per-topic overrides
// (spec.md §4.3, invariant 5: a topic-specific route fully shadows the
// generic one for that topic).
type Configuration struct {
	Generic     Route
	TopicRoutes map[string]Route // keyed by topic.DistributedTopic.Key()
}

// NewConfiguration builds a Configuration from a generic route and a set
// of per-topic overrides.
func NewConfiguration(generic Route, topicRoutes map[string]Route) Configuration {
	if generic == nil {
		generic = Route{}
	}
	if topicRoutes == nil {
		topicRoutes = map[string]Route{}
	}
	return Configuration{Generic: generic, TopicRoutes: topicRoutes}
}

// Resolve returns the effective route for t: the topic-specific route if
// one exists, else the generic route. A single map lookup, deliberately
// avoiding the teacher spec's double-lookup get_routes_config pattern
// (spec.md §9, Open Question 2) since Configuration is swapped wholesale
// on reload and never mutated in place.
func (c Configuration) Resolve(t topic.DistributedTopic) (Route, bool) {
	if r, ok := c.TopicRoutes[t.Key()]; ok {
		return r, true
	}
	return c.Generic, false
}

// Validate checks that every participant ID named anywhere in the
// configuration (as either a reader or a writer) exists in knownIDs. It
// is a pure function over an externally supplied participant index
// (spec.md §4.3).
func Validate(c Configuration, knownIDs map[participant.ID]struct{}) error {
	if err := validateRoute(c.Generic, knownIDs); err != nil {
		return err
	}
	for key, r := range c.TopicRoutes {
		if err := validateRoute(r, knownIDs); err != nil {
			return fmt.Errorf("topic route %q: %w", key, err)
		}
	}
	return nil
}

func validateRoute(r Route, knownIDs map[participant.ID]struct{}) error {
	for src, dsts := range r {
		if _, ok := knownIDs[src]; !ok {
			return fmt.Errorf("%w: reader participant %q is not known", ddpipeerr.ErrInvalidRoute, src)
		}
		for dst := range dsts {
			if _, ok := knownIDs[dst]; !ok {
				return fmt.Errorf("%w: writer participant %q is not known", ddpipeerr.ErrInvalidRoute, dst)
			}
		}
	}
	return nil
}
