package metrics

import (
	"sync"
)

// Collector collects pipe-wide metrics: discovery activity, bridge/
// track lifecycle, routed/dropped samples, and payload-pool usage.
type Collector struct {
	mu sync.RWMutex

	// Discovery metrics
	endpointsDiscovered uint64
	endpointsRemoved    uint64
	activeEndpoints     map[string]bool // keyed by GUID

	// Bridge/track metrics
	activeBridges  map[string]bool // keyed by topic key
	activeTracks   map[string]bool // keyed by "topic\x00reader"
	samplesRouted  uint64
	samplesDropped uint64
	writersRemoved uint64

	// Payload pool metrics
	payloadAllocations uint64
	payloadReleases    uint64
}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	return &Collector{
		activeEndpoints: make(map[string]bool),
		activeBridges:   make(map[string]bool),
		activeTracks:    make(map[string]bool),
	}
}

// EndpointDiscovered records a discovered reader or writer endpoint
func (c *Collector) EndpointDiscovered(guid string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.endpointsDiscovered++
	c.activeEndpoints[guid] = true
}

// EndpointRemoved records an endpoint leaving the discovery database
func (c *Collector) EndpointRemoved(guid string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.endpointsRemoved++
	delete(c.activeEndpoints, guid)
}

// BridgeCreated records a bridge coming into existence for a topic
func (c *Collector) BridgeCreated(topicKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.activeBridges[topicKey] = true
}

// BridgeDestroyed records a bridge being torn down
func (c *Collector) BridgeDestroyed(topicKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.activeBridges, topicKey)
}

// TrackCreated records a track coming into existence within a bridge
func (c *Collector) TrackCreated(trackKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.activeTracks[trackKey] = true
}

// TrackDestroyed records a track being torn down
func (c *Collector) TrackDestroyed(trackKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.activeTracks, trackKey)
}

// SampleRouted records one sample successfully forwarded to a writer
func (c *Collector) SampleRouted() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.samplesRouted++
}

// SampleDropped records one sample dropped by downsampling or rate
// limiting
func (c *Collector) SampleDropped() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.samplesDropped++
}

// WriterRemoved records a writer removed from a track after a fatal
// write error
func (c *Collector) WriterRemoved() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.writersRemoved++
}

// PayloadPoolStats feeds the pool's cumulative allocation/release
// counters into the collector. It records whatever values the caller
// passes; the pool itself never calls it, so these counters change only
// when a caller does.
func (c *Collector) PayloadPoolStats(allocations, releases int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.payloadAllocations = uint64(allocations)
	c.payloadReleases = uint64(releases)
}

// Reset resets the active-set gauges (useful for testing); cumulative
// counters are left untouched, same as the teacher's convention.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.activeEndpoints = make(map[string]bool)
	c.activeBridges = make(map[string]bool)
	c.activeTracks = make(map[string]bool)
}

// Getters for metrics

// GetEndpointsDiscovered returns the cumulative count of discovered
// endpoints
func (c *Collector) GetEndpointsDiscovered() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.endpointsDiscovered
}

// GetEndpointsRemoved returns the cumulative count of removed endpoints
func (c *Collector) GetEndpointsRemoved() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.endpointsRemoved
}

// GetActiveEndpoints returns the number of currently known endpoints
func (c *Collector) GetActiveEndpoints() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.activeEndpoints)
}

// GetActiveBridges returns the number of currently live bridges
func (c *Collector) GetActiveBridges() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.activeBridges)
}

// GetActiveTracks returns the number of currently live tracks
func (c *Collector) GetActiveTracks() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.activeTracks)
}

// GetSamplesRouted returns the cumulative count of forwarded samples
func (c *Collector) GetSamplesRouted() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.samplesRouted
}

// GetSamplesDropped returns the cumulative count of dropped samples
func (c *Collector) GetSamplesDropped() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.samplesDropped
}

// GetWritersRemoved returns the cumulative count of writers removed
// after a fatal write
func (c *Collector) GetWritersRemoved() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.writersRemoved
}

// GetPayloadAllocations returns the last-reported cumulative payload
// pool allocation count
func (c *Collector) GetPayloadAllocations() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.payloadAllocations
}

// GetPayloadReleases returns the last-reported cumulative payload pool
// release count
func (c *Collector) GetPayloadReleases() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.payloadReleases
}
