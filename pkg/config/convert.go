package config

import (
	"fmt"
	"strings"

	"github.com/ddspipe/ddspipe-go/pkg/filter"
	"github.com/ddspipe/ddspipe-go/pkg/participant"
	"github.com/ddspipe/ddspipe-go/pkg/routes"
	"github.com/ddspipe/ddspipe-go/pkg/topic"
)

// Resolved is the domain-typed form of a Configuration: what
// pkg/filter, pkg/routes, and the Pipe Controller actually consume. Load
// produces the raw mapstructure-tagged Configuration; Resolve converts
// it once.
type Resolved struct {
	Filter                *filter.AllowedTopics
	Routes                routes.Configuration
	BuiltinTopics         []topic.DistributedTopic
	RemoveUnusedEntities  bool
	InitEnabled           bool
	EntityCreationTrigger EntityCreationTrigger
	Threads               int
	MaxDepth              int
}

// Resolve converts the YAML-shaped Configuration into the types the
// core operates on.
func (c *Configuration) Resolve() (*Resolved, error) {
	allow := make([]topic.WildcardFilterTopic, 0, len(c.Allowlist))
	for _, tf := range c.Allowlist {
		allow = append(allow, tf.toWildcard())
	}
	block := make([]topic.WildcardFilterTopic, 0, len(c.Blocklist))
	for _, tf := range c.Blocklist {
		block = append(block, tf.toWildcard())
	}
	manual := make([]topic.WildcardFilterTopic, 0, len(c.ManualTopics))
	for _, tf := range c.ManualTopics {
		manual = append(manual, tf.toWildcard())
	}

	generic := routes.Route{}
	for _, re := range c.Routes {
		for _, w := range re.Writers {
			generic.Add(participant.ID(re.Reader), participant.ID(w))
		}
	}

	topicRoutes := make(map[string]routes.Route, len(c.TopicRoutes))
	for _, tr := range c.TopicRoutes {
		r := routes.Route{}
		for _, re := range tr.Routes {
			for _, w := range re.Writers {
				r.Add(participant.ID(re.Reader), participant.ID(w))
			}
		}
		key := topic.DistributedTopic{Name: tr.Name, TypeName: tr.Type}.Key()
		topicRoutes[key] = r
	}

	builtins := make([]topic.DistributedTopic, 0, len(c.BuiltinTopics))
	for _, bt := range c.BuiltinTopics {
		builtins = append(builtins, topic.DistributedTopic{Name: bt.Name, TypeName: bt.Type, QoS: topic.DefaultQoS()})
	}

	return &Resolved{
		Filter:                filter.New(allow, block, manual),
		Routes:                routes.NewConfiguration(generic, topicRoutes),
		BuiltinTopics:         builtins,
		RemoveUnusedEntities:  c.RemoveUnusedEntities,
		InitEnabled:           c.InitEnabled,
		EntityCreationTrigger: c.EntityCreationTrigger,
		Threads:               c.Specs.Threads,
		MaxDepth:              c.Specs.MaxDepth,
	}, nil
}

func (tf TopicFilter) toWildcard() topic.WildcardFilterTopic {
	return topic.WildcardFilterTopic{
		NamePattern: tf.Name,
		TypePattern: tf.Type,
		QoS:         tf.QoS.toOverride(),
	}
}

func (o QoSOverride) toOverride() topic.Override {
	var out topic.Override
	if o.Reliability != "" {
		r := parseReliability(o.Reliability)
		out.Reliability = &r
	}
	if o.Durability != "" {
		d := parseDurability(o.Durability)
		out.Durability = &d
	}
	if o.Depth != 0 {
		d := o.Depth
		out.Depth = &d
	}
	if o.Partitions != nil {
		p := *o.Partitions
		out.Partitions = &p
	}
	if o.Ownership != nil {
		own := *o.Ownership
		out.Ownership = &own
	}
	if o.Keyed != nil {
		k := *o.Keyed
		out.Keyed = &k
	}
	if o.Downsampling != 0 {
		ds := o.Downsampling
		out.Downsampling = &ds
	}
	if o.MaxReceptionRate != 0 {
		r := o.MaxReceptionRate
		out.MaxReceptionRate = &r
	}
	return out
}

func parseReliability(s string) topic.Reliability {
	if strings.EqualFold(s, "reliable") {
		return topic.Reliable
	}
	return topic.BestEffort
}

func parseDurability(s string) topic.Durability {
	if strings.EqualFold(s, "transient-local") {
		return topic.TransientLocal
	}
	return topic.Volatile
}

// validateQoSOverrideStrings rejects unrecognized reliability/durability strings
// outright rather than silently defaulting, since Resolve's parse*
// helpers are lenient by design (unknown ⇒ default) and validate is the
// one place that surfaces a typo to the operator.
func validateQoSOverrideStrings(tf TopicFilter) error {
	if tf.QoS.Reliability != "" && !strings.EqualFold(tf.QoS.Reliability, "reliable") && !strings.EqualFold(tf.QoS.Reliability, "best-effort") {
		return fmt.Errorf("unrecognized reliability %q (want reliable or best-effort)", tf.QoS.Reliability)
	}
	if tf.QoS.Durability != "" && !strings.EqualFold(tf.QoS.Durability, "transient-local") && !strings.EqualFold(tf.QoS.Durability, "volatile") {
		return fmt.Errorf("unrecognized durability %q (want transient-local or volatile)", tf.QoS.Durability)
	}
	return nil
}
