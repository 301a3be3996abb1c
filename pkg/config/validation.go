package config

import (
	"fmt"

	"github.com/ddspipe/ddspipe-go/pkg/ddpipeerr"
)

// validate checks a Configuration for internal consistency (spec.md §6,
// §7 InvalidConfiguration). It does not check routes against a
// participant index; pkg/routes.Validate does that given such an index,
// and neither Load nor Resolve calls it.
func validate(cfg *Configuration) error {
	if !SupportedVersions[cfg.Version] {
		return fmt.Errorf("unsupported configuration version %q: %w", cfg.Version, ddpipeerr.ErrInvalidConfiguration)
	}

	if cfg.Specs.Threads <= 0 {
		return fmt.Errorf("specs.threads must be positive: %w", ddpipeerr.ErrInvalidConfiguration)
	}
	if cfg.Specs.MaxDepth <= 0 {
		return fmt.Errorf("specs.max-depth must be positive: %w", ddpipeerr.ErrInvalidConfiguration)
	}

	switch cfg.EntityCreationTrigger {
	case TriggerAny, TriggerReader, TriggerWriter, "":
	default:
		return fmt.Errorf("entity-creation-trigger must be ANY, READER, or WRITER, got %q: %w", cfg.EntityCreationTrigger, ddpipeerr.ErrInvalidConfiguration)
	}

	for _, group := range [][]TopicFilter{cfg.Allowlist, cfg.Blocklist, cfg.ManualTopics} {
		for _, tf := range group {
			if err := validateQoSOverrideStrings(tf); err != nil {
				return fmt.Errorf("%w: %w", ddpipeerr.ErrInvalidConfiguration, err)
			}
		}
	}

	for _, re := range cfg.Routes {
		if re.Reader == "" {
			return fmt.Errorf("a generic route entry is missing its reader: %w", ddpipeerr.ErrInvalidConfiguration)
		}
	}
	for _, tr := range cfg.TopicRoutes {
		if tr.Name == "" {
			return fmt.Errorf("a topic-route entry is missing its topic name: %w", ddpipeerr.ErrInvalidConfiguration)
		}
		for _, re := range tr.Routes {
			if re.Reader == "" {
				return fmt.Errorf("topic-route %q/%q: a route entry is missing its reader: %w", tr.Name, tr.Type, ddpipeerr.ErrInvalidConfiguration)
			}
		}
	}

	return nil
}
