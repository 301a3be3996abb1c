// Package topic defines the Topic/QoS data model (spec.md §3) and the
// wildcard filter-topic matching it is read against.
package topic

import "fmt"

// DistributedTopic is a concrete, fully-qualified topic instance with a
// type and its resolved QoS.
type DistributedTopic struct {
	Name     string
	TypeName string
	QoS      QoS
}

// Key returns a stable identity for the topic, ignoring QoS, suitable for
// use as a map key (two DistributedTopics with the same name/type are the
// same topic even if their QoS has since diverged).
func (t DistributedTopic) Key() string {
	return t.Name + "\x00" + t.TypeName
}

func (t DistributedTopic) String() string {
	return fmt.Sprintf("%s [%s]", t.Name, t.TypeName)
}

// FilterTopic matches zero or more DistributedTopics by pattern.
type FilterTopic interface {
	// Matches reports whether t is selected by this filter.
	Matches(t DistributedTopic) bool
}

// WildcardFilterTopic is a glob-style pattern over name and type, with an
// optional QoS override applied to topics it matches (spec.md §3, §4.2).
// An empty NamePattern or TypePattern matches any value for that field.
type WildcardFilterTopic struct {
	NamePattern string
	TypePattern string
	QoS         Override
}

var _ FilterTopic = WildcardFilterTopic{}

// Matches implements FilterTopic.
func (w WildcardFilterTopic) Matches(t DistributedTopic) bool {
	return matchGlob(w.NamePattern, t.Name) && matchGlob(w.TypePattern, t.TypeName)
}

func (w WildcardFilterTopic) String() string {
	return fmt.Sprintf("%s [%s]", w.NamePattern, w.TypePattern)
}
