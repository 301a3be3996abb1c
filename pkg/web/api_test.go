package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ddspipe/ddspipe-go/pkg/discovery"
	"github.com/ddspipe/ddspipe-go/pkg/logger"
	"github.com/ddspipe/ddspipe-go/pkg/participant"
	"github.com/ddspipe/ddspipe-go/pkg/topic"
)

type fakeParticipant struct {
	id       participant.ID
	repeater bool
}

func (p *fakeParticipant) ID() participant.ID { return p.id }
func (p *fakeParticipant) IsRepeater() bool   { return p.repeater }
func (p *fakeParticipant) IsRTPSKind() bool   { return false }
func (p *fakeParticipant) CreateReader(topic.DistributedTopic) (participant.Reader, error) {
	return nil, nil
}
func (p *fakeParticipant) CreateWriter(topic.DistributedTopic) (participant.Writer, error) {
	return nil, nil
}

func TestHandleStatus_NoDeps(t *testing.T) {
	log := logger.New(logger.Config{Level: "error"})
	api := NewAPI(log)

	req := httptest.NewRequest("GET", "/api/status", nil)
	w := httptest.NewRecorder()
	api.HandleStatus(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var response map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if response["status"] != "running" {
		t.Errorf("status field = %v, want running", response["status"])
	}
}

func TestHandleStatus_MethodNotAllowed(t *testing.T) {
	log := logger.New(logger.Config{Level: "error"})
	api := NewAPI(log)

	req := httptest.NewRequest("POST", "/api/status", nil)
	w := httptest.NewRecorder()
	api.HandleStatus(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", w.Code)
	}
}

func TestHandleParticipants_ListsRegistered(t *testing.T) {
	log := logger.New(logger.Config{Level: "error"})
	api := NewAPI(log)

	db := participant.NewDatabase()
	db.Add(&fakeParticipant{id: "p1", repeater: true})
	api.SetDeps(db, nil)

	req := httptest.NewRequest("GET", "/api/participants", nil)
	w := httptest.NewRecorder()
	api.HandleParticipants(w, req)

	var list []ParticipantDTO
	if err := json.NewDecoder(w.Body).Decode(&list); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if len(list) != 1 || list[0].ID != "p1" || !list[0].IsRepeater {
		t.Errorf("unexpected participants list: %+v", list)
	}
}

func TestHandleParticipants_NoDeps(t *testing.T) {
	log := logger.New(logger.Config{Level: "error"})
	api := NewAPI(log)

	req := httptest.NewRequest("GET", "/api/participants", nil)
	w := httptest.NewRecorder()
	api.HandleParticipants(w, req)

	var list []ParticipantDTO
	if err := json.NewDecoder(w.Body).Decode(&list); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("expected empty list, got %+v", list)
	}
}

func TestHandleParticipantLookup_Found(t *testing.T) {
	log := logger.New(logger.Config{Level: "error"})
	api := NewAPI(log)

	db := participant.NewDatabase()
	db.Add(&fakeParticipant{id: "p1"})
	api.SetDeps(db, nil)

	req := httptest.NewRequest("GET", "/api/participants/p1", nil)
	w := httptest.NewRecorder()
	api.HandleParticipantLookup(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestHandleParticipantLookup_NotFound(t *testing.T) {
	log := logger.New(logger.Config{Level: "error"})
	api := NewAPI(log)
	api.SetDeps(participant.NewDatabase(), nil)

	req := httptest.NewRequest("GET", "/api/participants/missing", nil)
	w := httptest.NewRecorder()
	api.HandleParticipantLookup(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestHandleBridges_NoDeps(t *testing.T) {
	log := logger.New(logger.Config{Level: "error"})
	api := NewAPI(log)

	req := httptest.NewRequest("GET", "/api/bridges", nil)
	w := httptest.NewRecorder()
	api.HandleBridges(w, req)

	var list []BridgeDTO
	if err := json.NewDecoder(w.Body).Decode(&list); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("expected empty list, got %+v", list)
	}
}

func TestHandleActivity_RecordsDiscoveryEvents(t *testing.T) {
	log := logger.New(logger.Config{Level: "error"})
	api := NewAPI(log)

	api.RecordDiscoveryEvent(discovery.Event{
		Type: discovery.Discovered,
		Endpoint: discovery.Endpoint{
			GUID: "g1", Kind: discovery.KindWriter,
			Topic:         topic.DistributedTopic{Name: "t", TypeName: "T"},
			ParticipantID: "p1",
		},
	})

	req := httptest.NewRequest("GET", "/api/activity", nil)
	w := httptest.NewRecorder()
	api.HandleActivity(w, req)

	var events []DiscoveryEventDTO
	if err := json.NewDecoder(w.Body).Decode(&events); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if len(events) != 1 || events[0].GUID != "g1" {
		t.Errorf("unexpected activity feed: %+v", events)
	}
}

func TestHandleActivity_CapsAtCapacity(t *testing.T) {
	log := logger.New(logger.Config{Level: "error"})
	api := NewAPI(log)

	for i := 0; i < recentEventsCapacity+10; i++ {
		api.RecordDiscoveryEvent(discovery.Event{
			Type:     discovery.Discovered,
			Endpoint: discovery.Endpoint{GUID: "g", Kind: discovery.KindReader},
		})
	}

	req := httptest.NewRequest("GET", "/api/activity", nil)
	w := httptest.NewRecorder()
	api.HandleActivity(w, req)

	var events []DiscoveryEventDTO
	if err := json.NewDecoder(w.Body).Decode(&events); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if len(events) != recentEventsCapacity {
		t.Errorf("len(events) = %d, want %d", len(events), recentEventsCapacity)
	}
}
