package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/foxseedlab/gijirokun/internal/meeting"
	"github.com/foxseedlab/gijirokun/internal/repository"
	"github.com/foxseedlab/gijirokun/internal/session"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type meetingResponse struct {
	*meeting.State
	IsActive bool `json:"is_active"`
}

type createMeetingRequest struct {
	Title  string   `json:"title"`
	Agenda []string `json:"agenda,omitempty"`
}

type updateMeetingRequest struct {
	Title string `json:"title"`
}

type addAgendaItemRequest struct {
	Text string `json:"text"`
}

type agendaStatusRequest struct {
	Completed bool `json:"completed"`
}

func (s *Server) handleListMeetings(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultListLimit)
	if limit < 1 || limit > maxListLimit {
		limit = defaultListLimit
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	records, err := s.repo.ListMeetings(r.Context(), limit, offset)
	if err != nil {
		slog.Error("failed to list meetings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list meetings")
		return
	}
	out := make([]meetingResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, meetingResponse{State: rec.State(), IsActive: rec.IsActive})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateMeeting(w http.ResponseWriter, r *http.Request) {
	var req createMeetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	agenda := make([]meeting.AgendaItem, 0, len(req.Agenda))
	for _, text := range req.Agenda {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		agenda = append(agenda, meeting.AgendaItem{ID: uuid.NewString(), Text: text})
	}

	record, err := s.repo.CreateMeeting(r.Context(), repository.CreateMeetingInput{
		ID:     uuid.NewString(),
		Title:  strings.TrimSpace(req.Title),
		Agenda: agenda,
	})
	if err != nil {
		slog.Error("failed to create meeting", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create meeting")
		return
	}
	slog.Info("meeting created", "meeting_id", record.ID, "title", record.Title)
	writeJSON(w, http.StatusCreated, meetingResponse{State: record.State(), IsActive: record.IsActive})
}

func (s *Server) handleGetMeeting(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	// A live session is fresher than the store.
	if sess := s.registry.Get(id); sess != nil {
		snapshot := sess.StateSnapshot()
		writeJSON(w, http.StatusOK, meetingResponse{State: &snapshot, IsActive: sessionActive(sess)})
		return
	}

	record, err := s.repo.GetMeeting(r.Context(), id)
	if err != nil {
		slog.Error("failed to load meeting", "error", err, "meeting_id", id)
		writeError(w, http.StatusInternalServerError, "failed to load meeting")
		return
	}
	if record == nil {
		writeError(w, http.StatusNotFound, "meeting not found")
		return
	}
	writeJSON(w, http.StatusOK, meetingResponse{State: record.State(), IsActive: record.IsActive})
}

func (s *Server) handleUpdateMeeting(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req updateMeetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		writeError(w, http.StatusBadRequest, "title must not be empty")
		return
	}

	// A live session owns its state: route the rename through it so every
	// subscriber sees the change.
	if sess := s.registry.Get(id); sess != nil {
		sess.UpdateTitle(title)
		snapshot := sess.StateSnapshot()
		writeJSON(w, http.StatusOK, meetingResponse{State: &snapshot, IsActive: sessionActive(sess)})
		return
	}

	record, err := s.repo.GetMeeting(r.Context(), id)
	if err != nil {
		slog.Error("failed to load meeting", "error", err, "meeting_id", id)
		writeError(w, http.StatusInternalServerError, "failed to load meeting")
		return
	}
	if record == nil {
		writeError(w, http.StatusNotFound, "meeting not found")
		return
	}
	record.Title = title
	updated, err := s.repo.UpdateMeeting(r.Context(), record)
	if err != nil {
		slog.Error("failed to update meeting", "error", err, "meeting_id", id)
		writeError(w, http.StatusInternalServerError, "failed to update meeting")
		return
	}
	writeJSON(w, http.StatusOK, meetingResponse{State: updated.State(), IsActive: updated.IsActive})
}

func (s *Server) handleDeleteMeeting(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.registry.Drop(r.Context(), id)

	deleted, err := s.repo.DeleteMeeting(r.Context(), id)
	if err != nil {
		slog.Error("failed to delete meeting", "error", err, "meeting_id", id)
		writeError(w, http.StatusInternalServerError, "failed to delete meeting")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "meeting not found")
		return
	}
	slog.Info("meeting deleted", "meeting_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddAgendaItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req addAgendaItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		writeError(w, http.StatusBadRequest, "text must not be empty")
		return
	}

	if sess := s.registry.Get(id); sess != nil {
		itemID := sess.AddAgendaItem(text)
		snapshot := sess.StateSnapshot()
		writeJSON(w, http.StatusCreated, agendaItemByID(snapshot.Agenda, itemID))
		return
	}

	record, err := s.repo.GetMeeting(r.Context(), id)
	if err != nil {
		slog.Error("failed to load meeting", "error", err, "meeting_id", id)
		writeError(w, http.StatusInternalServerError, "failed to load meeting")
		return
	}
	if record == nil {
		writeError(w, http.StatusNotFound, "meeting not found")
		return
	}
	item := meeting.AgendaItem{ID: uuid.NewString(), Text: text}
	record.Agenda = append(record.Agenda, item)
	if _, err := s.repo.UpdateMeeting(r.Context(), record); err != nil {
		slog.Error("failed to update meeting", "error", err, "meeting_id", id)
		writeError(w, http.StatusInternalServerError, "failed to update meeting")
		return
	}
	writeJSON(w, http.StatusCreated, &item)
}

func (s *Server) handleSetAgendaStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	itemID := chi.URLParam(r, "itemID")
	var req agendaStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if sess := s.registry.Get(id); sess != nil {
		if !sess.SetAgendaItemCompleted(itemID, req.Completed) {
			writeError(w, http.StatusNotFound, "agenda item not found")
			return
		}
		snapshot := sess.StateSnapshot()
		writeJSON(w, http.StatusOK, agendaItemByID(snapshot.Agenda, itemID))
		return
	}

	record, err := s.repo.GetMeeting(r.Context(), id)
	if err != nil {
		slog.Error("failed to load meeting", "error", err, "meeting_id", id)
		writeError(w, http.StatusInternalServerError, "failed to load meeting")
		return
	}
	if record == nil {
		writeError(w, http.StatusNotFound, "meeting not found")
		return
	}
	updated := false
	for i := range record.Agenda {
		if record.Agenda[i].ID == itemID {
			record.Agenda[i].Completed = req.Completed
			updated = true
			break
		}
	}
	if !updated {
		writeError(w, http.StatusNotFound, "agenda item not found")
		return
	}
	if _, err := s.repo.UpdateMeeting(r.Context(), record); err != nil {
		slog.Error("failed to update meeting", "error", err, "meeting_id", id)
		writeError(w, http.StatusInternalServerError, "failed to update meeting")
		return
	}
	writeJSON(w, http.StatusOK, agendaItemByID(record.Agenda, itemID))
}

func sessionActive(sess *session.Session) bool {
	return sess.Phase() == session.PhaseStreaming || sess.Phase() == session.PhaseStopping
}

func agendaItemByID(agenda []meeting.AgendaItem, id string) *meeting.AgendaItem {
	for i := range agenda {
		if agenda[i].ID == id {
			return &agenda[i]
		}
	}
	return nil
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
