package config

import (
	"errors"
	"testing"

	"github.com/ddspipe/ddspipe-go/pkg/ddpipeerr"
)

func TestLoad_UsesDefaults_WhenNoFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Version != "v3.1" {
		t.Errorf("Version = %q, want v3.1 default", cfg.Version)
	}
	if cfg.Specs.Threads != 4 {
		t.Errorf("Specs.Threads = %d, want default 4", cfg.Specs.Threads)
	}
	if cfg.Specs.MaxDepth != 5 {
		t.Errorf("Specs.MaxDepth = %d, want default 5", cfg.Specs.MaxDepth)
	}
	if cfg.EntityCreationTrigger != TriggerAny {
		t.Errorf("EntityCreationTrigger = %q, want ANY default", cfg.EntityCreationTrigger)
	}
	if cfg.RemoveUnusedEntities {
		t.Error("RemoveUnusedEntities should default to false")
	}
}

func TestValidate_UnsupportedVersion(t *testing.T) {
	cfg := &Configuration{Version: "v9.9", Specs: Specs{Threads: 1, MaxDepth: 1}}
	err := validate(cfg)
	if err == nil {
		t.Fatal("expected error for unsupported version")
	}
	if !errors.Is(err, ddpipeerr.ErrInvalidConfiguration) {
		t.Errorf("validate() error = %v, want errors.Is(err, ddpipeerr.ErrInvalidConfiguration)", err)
	}
}

func TestValidate_NonPositiveThreads(t *testing.T) {
	cfg := &Configuration{Version: "v3.1", Specs: Specs{Threads: 0, MaxDepth: 1}}
	if err := validate(cfg); err == nil {
		t.Fatal("expected error for non-positive specs.threads")
	}
}

func TestValidate_InvalidEntityCreationTrigger(t *testing.T) {
	cfg := &Configuration{
		Version:               "v3.1",
		Specs:                 Specs{Threads: 1, MaxDepth: 1},
		EntityCreationTrigger: "SOMETHING_ELSE",
	}
	if err := validate(cfg); err == nil {
		t.Fatal("expected error for invalid entity-creation-trigger")
	}
}

func TestValidate_InvalidReliabilityString(t *testing.T) {
	cfg := &Configuration{
		Version: "v3.1",
		Specs:   Specs{Threads: 1, MaxDepth: 1},
		Allowlist: []TopicFilter{
			{Name: "*", QoS: QoSOverride{Reliability: "maybe"}},
		},
	}
	err := validate(cfg)
	if err == nil {
		t.Fatal("expected error for an unrecognized reliability string")
	}
	if !errors.Is(err, ddpipeerr.ErrInvalidConfiguration) {
		t.Errorf("validate() error = %v, want errors.Is(err, ddpipeerr.ErrInvalidConfiguration)", err)
	}
}

func TestValidate_RouteMissingReader(t *testing.T) {
	cfg := &Configuration{
		Version: "v3.1",
		Specs:   Specs{Threads: 1, MaxDepth: 1},
		Routes:  []RouteEntry{{Writers: []string{"w1"}}},
	}
	if err := validate(cfg); err == nil {
		t.Fatal("expected error for a route entry missing its reader")
	}
}

func TestQoSOverride_ToOverrideWiresPartitionsOwnershipKeyed(t *testing.T) {
	yes := true
	no := false
	o := QoSOverride{Partitions: &yes, Ownership: &no, Keyed: &yes}

	out := o.toOverride()
	if out.Partitions == nil || *out.Partitions != true {
		t.Errorf("Partitions = %v, want *true", out.Partitions)
	}
	if out.Ownership == nil || *out.Ownership != false {
		t.Errorf("Ownership = %v, want *false", out.Ownership)
	}
	if out.Keyed == nil || *out.Keyed != true {
		t.Errorf("Keyed = %v, want *true", out.Keyed)
	}
}

func TestQoSOverride_ToOverrideLeavesUnsetFieldsNil(t *testing.T) {
	out := QoSOverride{}.toOverride()
	if out.Partitions != nil || out.Ownership != nil || out.Keyed != nil {
		t.Errorf("toOverride() = %+v, want Partitions/Ownership/Keyed all nil when unset", out)
	}
}

func TestConfiguration_ResolveBuildsRoutesAndFilter(t *testing.T) {
	cfg := &Configuration{
		Version: "v3.1",
		Specs:   Specs{Threads: 1, MaxDepth: 1},
		Allowlist: []TopicFilter{
			{Name: "*", Type: "*"},
		},
		Routes: []RouteEntry{
			{Reader: "r1", Writers: []string{"w1", "w2"}},
		},
	}

	resolved, err := cfg.Resolve()
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if resolved.Filter == nil {
		t.Fatal("expected a non-nil Filter")
	}
	writers, ok := resolved.Routes.Generic.Writers("r1")
	if !ok || len(writers) != 2 {
		t.Fatalf("expected 2 writers for r1, got %v (ok=%v)", writers, ok)
	}
}
