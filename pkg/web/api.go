package web

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ddspipe/ddspipe-go/pkg/discovery"
	"github.com/ddspipe/ddspipe-go/pkg/logger"
	"github.com/ddspipe/ddspipe-go/pkg/participant"
	"github.com/ddspipe/ddspipe-go/pkg/pipe"
)

const recentEventsCapacity = 200

// API handles REST API endpoints for the pipe status dashboard.
type API struct {
	logger       *logger.Logger
	participants *participant.Database
	controller   *pipe.Controller

	mu           sync.Mutex
	recentEvents []DiscoveryEventDTO
}

// NewAPI creates a new API instance.
func NewAPI(log *logger.Logger) *API {
	return &API{
		logger:       log,
		recentEvents: make([]DiscoveryEventDTO, 0, recentEventsCapacity),
	}
}

// SetDeps provides runtime dependencies to the API after construction.
func (a *API) SetDeps(participants *participant.Database, controller *pipe.Controller) {
	a.participants = participants
	a.controller = controller
}

// RecordDiscoveryEvent appends evt to the recent-activity ring, trimming
// the oldest entry once the capacity is exceeded. Intended to be wired
// as a discovery.Listener.
func (a *API) RecordDiscoveryEvent(evt discovery.Event) {
	dto := DiscoveryEventDTO{
		Type:          evt.Type.String(),
		GUID:          evt.Endpoint.GUID,
		Kind:          evt.Endpoint.Kind.String(),
		Topic:         evt.Endpoint.Topic.Name,
		ParticipantID: evt.Endpoint.ParticipantID.String(),
		Timestamp:     time.Now().Unix(),
	}

	a.mu.Lock()
	a.recentEvents = append(a.recentEvents, dto)
	if len(a.recentEvents) > recentEventsCapacity {
		a.recentEvents = a.recentEvents[len(a.recentEvents)-recentEventsCapacity:]
	}
	a.mu.Unlock()
}

// ParticipantDTO is a lightweight response for a registered participant.
type ParticipantDTO struct {
	ID         string `json:"id"`
	IsRepeater bool   `json:"is_repeater"`
	IsRTPSKind bool   `json:"is_rtps_kind"`
}

// TrackDTO is a lightweight response for a bridge's track.
type TrackDTO struct {
	ReaderParticipantID string `json:"reader_participant_id"`
	State               string `json:"state"`
	WriterCount         int    `json:"writer_count"`
}

// BridgeDTO is a lightweight response for a live bridge.
type BridgeDTO struct {
	TopicName string     `json:"topic_name"`
	TopicType string     `json:"topic_type"`
	Tracks    []TrackDTO `json:"tracks"`
}

// DiscoveryEventDTO is a lightweight response for a recent discovery
// event.
type DiscoveryEventDTO struct {
	Type          string `json:"type"`
	GUID          string `json:"guid"`
	Kind          string `json:"kind"`
	Topic         string `json:"topic"`
	ParticipantID string `json:"participant_id"`
	Timestamp     int64  `json:"timestamp"`
}

// HandleStatus handles the /api/status endpoint.
func (a *API) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	bridgeCount := 0
	if a.controller != nil {
		bridgeCount = a.controller.BridgeCount()
	}
	participantCount := 0
	if a.participants != nil {
		participantCount = a.participants.Count()
	}

	version, _, _ := GetVersionInfo()
	response := map[string]interface{}{
		"status":       "running",
		"service":      "ddspipe",
		"version":      version,
		"bridges":      bridgeCount,
		"participants": participantCount,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		a.logger.Error("Failed to encode status response", logger.Error(err))
	}
}

// HandleParticipants handles the /api/participants endpoint.
func (a *API) HandleParticipants(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if a.participants == nil {
		if err := json.NewEncoder(w).Encode([]ParticipantDTO{}); err != nil {
			a.logger.Error("Failed to encode participants response", logger.Error(err))
		}
		return
	}

	list := make([]ParticipantDTO, 0)
	for _, p := range a.participants.All() {
		list = append(list, ParticipantDTO{
			ID:         p.ID().String(),
			IsRepeater: p.IsRepeater(),
			IsRTPSKind: p.IsRTPSKind(),
		})
	}
	if err := json.NewEncoder(w).Encode(list); err != nil {
		a.logger.Error("Failed to encode participants response", logger.Error(err))
	}
}

// HandleBridges handles the /api/bridges endpoint.
func (a *API) HandleBridges(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if a.controller == nil {
		if err := json.NewEncoder(w).Encode([]BridgeDTO{}); err != nil {
			a.logger.Error("Failed to encode bridges response", logger.Error(err))
		}
		return
	}

	list := make([]BridgeDTO, 0)
	for _, b := range a.controller.Bridges() {
		t := b.Topic()
		dto := BridgeDTO{TopicName: t.Name, TopicType: t.TypeName, Tracks: make([]TrackDTO, 0, b.TrackCount())}
		for _, tr := range b.Tracks() {
			dto.Tracks = append(dto.Tracks, TrackDTO{
				ReaderParticipantID: tr.ReaderParticipantID().String(),
				State:               tr.State().String(),
				WriterCount:         tr.WriterCount(),
			})
		}
		list = append(list, dto)
	}
	if err := json.NewEncoder(w).Encode(list); err != nil {
		a.logger.Error("Failed to encode bridges response", logger.Error(err))
	}
}

// HandleActivity handles the /api/activity endpoint: the most recent
// discovery events, newest last.
func (a *API) HandleActivity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	a.mu.Lock()
	events := make([]DiscoveryEventDTO, len(a.recentEvents))
	copy(events, a.recentEvents)
	a.mu.Unlock()

	if err := json.NewEncoder(w).Encode(events); err != nil {
		a.logger.Error("Failed to encode activity response", logger.Error(err))
	}
}

// HandleParticipantLookup handles /api/participants/{id}.
func (a *API) HandleParticipantLookup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/participants/")
	if id == "" || a.participants == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	p, ok := a.participants.Get(participant.ID(id))
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	dto := ParticipantDTO{ID: p.ID().String(), IsRepeater: p.IsRepeater(), IsRTPSKind: p.IsRTPSKind()}
	if err := json.NewEncoder(w).Encode(dto); err != nil {
		a.logger.Error("Failed to encode participant response", logger.Error(err))
	}
}
