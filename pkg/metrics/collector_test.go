package metrics

import (
	"testing"
)

func TestNewCollector(t *testing.T) {
	collector := NewCollector()
	if collector == nil {
		t.Fatal("Expected non-nil collector")
	}
}

func TestCollector_DiscoveryMetrics(t *testing.T) {
	collector := NewCollector()

	collector.EndpointDiscovered("guid-1")
	if got := collector.GetEndpointsDiscovered(); got < 1 {
		t.Error("Expected at least 1 discovered endpoint")
	}
	if got := collector.GetActiveEndpoints(); got < 1 {
		t.Error("Expected at least 1 active endpoint")
	}

	collector.EndpointRemoved("guid-1")
	if got := collector.GetActiveEndpoints(); got != 0 {
		t.Errorf("Expected 0 active endpoints after removal, got %d", got)
	}
	if got := collector.GetEndpointsRemoved(); got < 1 {
		t.Error("Expected at least 1 removed endpoint")
	}
}

func TestCollector_BridgeAndTrackMetrics(t *testing.T) {
	collector := NewCollector()

	collector.BridgeCreated("topic-a")
	collector.TrackCreated("topic-a\x00reader-1")
	if got := collector.GetActiveBridges(); got != 1 {
		t.Errorf("GetActiveBridges() = %d, want 1", got)
	}
	if got := collector.GetActiveTracks(); got != 1 {
		t.Errorf("GetActiveTracks() = %d, want 1", got)
	}

	collector.TrackDestroyed("topic-a\x00reader-1")
	collector.BridgeDestroyed("topic-a")
	if got := collector.GetActiveTracks(); got != 0 {
		t.Errorf("GetActiveTracks() = %d, want 0 after destroy", got)
	}
	if got := collector.GetActiveBridges(); got != 0 {
		t.Errorf("GetActiveBridges() = %d, want 0 after destroy", got)
	}
}

func TestCollector_SampleMetrics(t *testing.T) {
	collector := NewCollector()

	collector.SampleRouted()
	collector.SampleRouted()
	collector.SampleDropped()
	collector.WriterRemoved()

	if got := collector.GetSamplesRouted(); got != 2 {
		t.Errorf("GetSamplesRouted() = %d, want 2", got)
	}
	if got := collector.GetSamplesDropped(); got != 1 {
		t.Errorf("GetSamplesDropped() = %d, want 1", got)
	}
	if got := collector.GetWritersRemoved(); got != 1 {
		t.Errorf("GetWritersRemoved() = %d, want 1", got)
	}
}

func TestCollector_PayloadPoolStats(t *testing.T) {
	collector := NewCollector()
	collector.PayloadPoolStats(42, 40)

	if got := collector.GetPayloadAllocations(); got != 42 {
		t.Errorf("GetPayloadAllocations() = %d, want 42", got)
	}
	if got := collector.GetPayloadReleases(); got != 40 {
		t.Errorf("GetPayloadReleases() = %d, want 40", got)
	}
}

func TestCollector_Reset(t *testing.T) {
	collector := NewCollector()
	collector.EndpointDiscovered("guid-1")
	collector.BridgeCreated("topic-a")

	collector.Reset()

	if collector.GetActiveEndpoints() != 0 {
		t.Error("Expected active endpoints to be 0 after reset")
	}
	if collector.GetActiveBridges() != 0 {
		t.Error("Expected active bridges to be 0 after reset")
	}
	if collector.GetEndpointsDiscovered() == 0 {
		t.Error("Reset should not clear cumulative counters")
	}
}

func TestCollector_Concurrent(t *testing.T) {
	collector := NewCollector()

	done := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		go func(id int) {
			collector.EndpointDiscovered("guid")
			collector.SampleRouted()
			done <- true
		}(i)
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	if collector.GetSamplesRouted() < 10 {
		t.Error("Expected at least 10 routed samples")
	}
}
