package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/foxseedlab/gijirokun/internal/meeting"
)

func doRequest(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeMeeting(t *testing.T, rec *httptest.ResponseRecorder) meetingResponse {
	t.Helper()
	var out meetingResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to decode meeting response: %v (%s)", err, rec.Body.String())
	}
	return out
}

func TestHealthz(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := doRequest(t, s, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestCreateAndGetMeeting(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/meetings", createMeetingRequest{
		Title:  "Roadmap Sync",
		Agenda: []string{"Budget", "", "Hiring"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	created := decodeMeeting(t, rec)
	if created.ID == "" || created.Title != "Roadmap Sync" {
		t.Errorf("unexpected created meeting: %+v", created)
	}
	if len(created.Agenda) != 2 {
		t.Errorf("blank agenda entries should be dropped, got %d", len(created.Agenda))
	}

	rec = doRequest(t, s, http.MethodGet, "/api/meetings/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	got := decodeMeeting(t, rec)
	if got.ID != created.ID || got.Title != "Roadmap Sync" {
		t.Errorf("unexpected meeting: %+v", got)
	}
}

func TestCreateMeetingDefaultTitle(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := doRequest(t, s, http.MethodPost, "/api/meetings", createMeetingRequest{})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if got := decodeMeeting(t, rec); got.Title != "Untitled Meeting" {
		t.Errorf("expected default title, got %q", got.Title)
	}
}

func TestGetMeetingNotFound(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := doRequest(t, s, http.MethodGet, "/api/meetings/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestListMeetingsPagination(t *testing.T) {
	s, _, _ := newTestServer(t)
	for _, title := range []string{"One", "Two", "Three"} {
		doRequest(t, s, http.MethodPost, "/api/meetings", createMeetingRequest{Title: title})
	}

	rec := doRequest(t, s, http.MethodGet, "/api/meetings?limit=2&offset=1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var out []meetingResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to decode list: %v", err)
	}
	if len(out) != 2 {
		t.Errorf("expected 2 meetings, got %d", len(out))
	}
}

func TestUpdateMeetingTitle(t *testing.T) {
	s, _, _ := newTestServer(t)
	created := decodeMeeting(t, doRequest(t, s, http.MethodPost, "/api/meetings", createMeetingRequest{Title: "Before"}))

	rec := doRequest(t, s, http.MethodPut, "/api/meetings/"+created.ID, updateMeetingRequest{Title: "After"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := decodeMeeting(t, rec); got.Title != "After" {
		t.Errorf("expected renamed meeting, got %q", got.Title)
	}

	rec = doRequest(t, s, http.MethodPut, "/api/meetings/"+created.ID, updateMeetingRequest{Title: "  "})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("blank title should be rejected, got %d", rec.Code)
	}
}

func TestUpdateMeetingTitleLiveSessionBroadcasts(t *testing.T) {
	s, _, registry := newTestServer(t)
	created := decodeMeeting(t, doRequest(t, s, http.MethodPost, "/api/meetings", createMeetingRequest{Title: "Before"}))

	sess, err := registry.GetOrCreate(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("failed to open session: %v", err)
	}
	sub := &collectingSubscriber{}
	sess.Subscribe(sub)
	sess.StartStreaming(context.Background())

	rec := doRequest(t, s, http.MethodPut, "/api/meetings/"+created.ID, updateMeetingRequest{Title: "After"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !sub.sawText(`"state_update"`) || !sub.sawText(`"After"`) {
		t.Error("live rename should broadcast a state update with the new title")
	}
	if got := decodeMeeting(t, rec); !got.IsActive {
		t.Error("rename during recording should report the meeting as active")
	}
}

func TestDeleteMeeting(t *testing.T) {
	s, _, _ := newTestServer(t)
	created := decodeMeeting(t, doRequest(t, s, http.MethodPost, "/api/meetings", createMeetingRequest{Title: "Doomed"}))

	rec := doRequest(t, s, http.MethodDelete, "/api/meetings/"+created.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	rec = doRequest(t, s, http.MethodDelete, "/api/meetings/"+created.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete should 404, got %d", rec.Code)
	}
}

func TestAgendaEndpoints(t *testing.T) {
	s, _, _ := newTestServer(t)
	created := decodeMeeting(t, doRequest(t, s, http.MethodPost, "/api/meetings", createMeetingRequest{Title: "Agenda"}))

	rec := doRequest(t, s, http.MethodPost, "/api/meetings/"+created.ID+"/agenda", addAgendaItemRequest{Text: "Review numbers"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var item meeting.AgendaItem
	if err := json.Unmarshal(rec.Body.Bytes(), &item); err != nil {
		t.Fatalf("failed to decode agenda item: %v", err)
	}
	if item.ID == "" || item.Text != "Review numbers" || item.Completed {
		t.Errorf("unexpected agenda item: %+v", item)
	}

	rec = doRequest(t, s, http.MethodPost, "/api/meetings/"+created.ID+"/agenda/"+item.ID+"/status", agendaStatusRequest{Completed: true})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &item); err != nil {
		t.Fatalf("failed to decode agenda item: %v", err)
	}
	if !item.Completed {
		t.Error("agenda item should be completed")
	}

	rec = doRequest(t, s, http.MethodPost, "/api/meetings/"+created.ID+"/agenda/missing/status", agendaStatusRequest{Completed: true})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown agenda item should 404, got %d", rec.Code)
	}

	rec = doRequest(t, s, http.MethodPost, "/api/meetings/"+created.ID+"/agenda", addAgendaItemRequest{Text: "  "})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("blank agenda text should be rejected, got %d", rec.Code)
	}
}

type collectingSubscriber struct {
	mu     sync.Mutex
	events []string
}

func (s *collectingSubscriber) Send(_ context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, string(data))
	return nil
}

func (s *collectingSubscriber) sawText(substr string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.events {
		if strings.Contains(e, substr) {
			return true
		}
	}
	return false
}
