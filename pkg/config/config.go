// Package config loads the pipe's configuration surface (spec.md §6):
// allow/block lists, builtin topics, manual QoS overrides, routes, and
// the entity-creation policy. Grounded on pkg/config/config.go's
// viper-based Load/setDefaults idiom, re-themed from DMR systems/bridges
// to the pipe's topic/routes vocabulary, with field tags drawn from
// original_source/yaml_configuration_tags.hpp.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// EntityCreationTrigger governs which discovery kind creates a Bridge
// (spec.md §4.8).
type EntityCreationTrigger string

const (
	TriggerAny    EntityCreationTrigger = "ANY"
	TriggerReader EntityCreationTrigger = "READER"
	TriggerWriter EntityCreationTrigger = "WRITER"
)

// SupportedVersions enumerates the configuration surface versions this
// loader accepts (spec.md §6).
var SupportedVersions = map[string]bool{
	"v1.0": true,
	"v2.0": true,
	"v3.0": true,
	"v3.1": true,
}

// QoSOverride is the YAML shape of a per-topic QoS override
// (topic.Override once converted).
type QoSOverride struct {
	Reliability      string  `mapstructure:"reliability"`
	Durability       string  `mapstructure:"durability"`
	Depth            int     `mapstructure:"depth"`
	Partitions       *bool   `mapstructure:"partitions"`
	Ownership        *bool   `mapstructure:"ownership"`
	Keyed            *bool   `mapstructure:"keyed"`
	Downsampling     int     `mapstructure:"downsampling"`
	MaxReceptionRate float64 `mapstructure:"max-reception-rate"`
}

// TopicFilter is the YAML shape shared by allowlist, blocklist, and
// manual-topics entries: a name/type glob pattern plus an optional QoS
// override block.
type TopicFilter struct {
	Name string      `mapstructure:"name"`
	Type string      `mapstructure:"type"`
	QoS  QoSOverride `mapstructure:"qos"`
}

// BuiltinTopic names a topic that must exist from pipe construction,
// regardless of whether it has been discovered yet (spec.md §6).
type BuiltinTopic struct {
	Name string `mapstructure:"name"`
	Type string `mapstructure:"type"`
}

// RouteEntry is the YAML shape of one reader's fan-out list.
type RouteEntry struct {
	Reader  string   `mapstructure:"reader"`
	Writers []string `mapstructure:"writers"`
}

// TopicRouteEntry names the topic a set of route entries overrides.
type TopicRouteEntry struct {
	Name   string       `mapstructure:"name"`
	Type   string       `mapstructure:"type"`
	Routes []RouteEntry `mapstructure:"routes"`
}

// Specs holds the thread pool and payload sizing knobs (spec.md §5,
// `specs.threads`/`specs.max-depth`).
type Specs struct {
	Threads  int `mapstructure:"threads"`
	MaxDepth int `mapstructure:"max-depth"`
}

// Configuration is the full configuration surface consumed at pipe
// construction and on reload (spec.md §6).
type Configuration struct {
	Version               string                `mapstructure:"version"`
	Allowlist             []TopicFilter         `mapstructure:"allowlist"`
	Blocklist             []TopicFilter         `mapstructure:"blocklist"`
	BuiltinTopics         []BuiltinTopic        `mapstructure:"builtin-topics"`
	ManualTopics          []TopicFilter         `mapstructure:"manual-topics"`
	Routes                []RouteEntry          `mapstructure:"routes"`
	TopicRoutes           []TopicRouteEntry     `mapstructure:"topic-routes"`
	RemoveUnusedEntities  bool                  `mapstructure:"remove-unused-entities"`
	InitEnabled           bool                  `mapstructure:"init-enabled"`
	EntityCreationTrigger EntityCreationTrigger `mapstructure:"entity-creation-trigger"`
	Specs                 Specs                 `mapstructure:"specs"`
}

// Load reads configFile (or the default search path, if empty) via
// viper, applies defaults, overlays DDSPIPE_-prefixed environment
// variables, and validates the result.
func Load(configFile string) (*Configuration, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("ddspipe")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/ddspipe")
	}

	v.SetEnvPrefix("DDSPIPE")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// No config file: defaults + env vars only.
		} else if os.IsNotExist(err) {
			// Explicitly named file missing: same as not found.
		} else {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("version", "v3.1")
	v.SetDefault("remove-unused-entities", false)
	v.SetDefault("init-enabled", false)
	v.SetDefault("entity-creation-trigger", string(TriggerAny))
	v.SetDefault("specs.threads", 4)
	v.SetDefault("specs.max-depth", 5)
}
