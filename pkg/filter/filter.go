// Package filter implements the Allowed-Topics Filter (spec.md §4.2): an
// allow/block decision over discovered topics plus a manual QoS override
// list, grounded on pkg/peer's ACL PERMIT/DENY matcher (generalized from
// integer-range rules to wildcard topic rules).
package filter

import (
	"sync"

	"github.com/ddspipe/ddspipe-go/pkg/topic"
)

// Decision is the filter's allow/block verdict for a topic.
type Decision int

const (
	Block Decision = iota
	Allow
)

func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "block"
}

// AllowedTopics decides whether a discovered topic participates in
// routing, and resolves any manual QoS override for it. Safe for
// concurrent use: the configuration is swapped wholesale under a mutex,
// never mutated in place, so decisions never observe a half-updated list
// (spec.md invariant 6).
type AllowedTopics struct {
	mu sync.RWMutex
	cfg config
}

type config struct {
	allowlist []topic.WildcardFilterTopic
	blocklist []topic.WildcardFilterTopic
	manual    []topic.WildcardFilterTopic // declaration order matters
}

// New builds an AllowedTopics filter from its three inputs. An empty
// allowlist means "allow all" (spec.md §4.2, step 2).
func New(allowlist, blocklist, manualTopics []topic.WildcardFilterTopic) *AllowedTopics {
	a := &AllowedTopics{}
	a.Reconfigure(allowlist, blocklist, manualTopics)
	return a
}

// Reconfigure atomically replaces the allow/block/manual lists. Existing
// in-flight Decide/Resolve calls observe either the old or the new
// configuration in full, never a mix (spec.md invariant 6).
func (a *AllowedTopics) Reconfigure(allowlist, blocklist, manualTopics []topic.WildcardFilterTopic) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cfg = config{
		allowlist: append([]topic.WildcardFilterTopic(nil), allowlist...),
		blocklist: append([]topic.WildcardFilterTopic(nil), blocklist...),
		manual:    append([]topic.WildcardFilterTopic(nil), manualTopics...),
	}
}

// Decide applies spec.md §4.2's three-step decision: blocklist wins,
// then an empty or matching allowlist allows, else block.
func (a *AllowedTopics) Decide(t topic.DistributedTopic) Decision {
	a.mu.RLock()
	defer a.mu.RUnlock()

	for _, b := range a.cfg.blocklist {
		if b.Matches(t) {
			return Block
		}
	}

	if len(a.cfg.allowlist) == 0 {
		return Allow
	}
	for _, w := range a.cfg.allowlist {
		if w.Matches(t) {
			return Allow
		}
	}
	return Block
}

// ResolveQoS returns t's QoS with the first matching manual-topics
// override (in declaration order) applied. Unspecified override fields
// keep t's discovered QoS (spec.md §4.2).
func (a *AllowedTopics) ResolveQoS(t topic.DistributedTopic) topic.QoS {
	a.mu.RLock()
	defer a.mu.RUnlock()

	for _, m := range a.cfg.manual {
		if m.Matches(t) {
			return m.QoS.Apply(t.QoS)
		}
	}
	return t.QoS
}

// Accept is a convenience combining Decide and ResolveQoS: it returns the
// effective topic (with override QoS applied) and whether it should be
// routed at all.
func (a *AllowedTopics) Accept(t topic.DistributedTopic) (topic.DistributedTopic, bool) {
	if a.Decide(t) == Block {
		return topic.DistributedTopic{}, false
	}
	t.QoS = a.ResolveQoS(t)
	return t, true
}
