package session

import (
	"encoding/json"
	"log/slog"

	"github.com/foxseedlab/gijirokun/internal/meeting"
)

// Outbound event kinds on the subscriber channel.
const (
	EventStateSync        = "state_sync"
	EventStateUpdate      = "state_update"
	EventInterim          = "interim_transcript"
	EventRecordingStarted = "recording_started"
	EventRecordingStopped = "recording_stopped"
	EventError            = "error"
)

// Inbound command kinds on the subscriber channel.
const (
	CommandStartRecording = "start_recording"
	CommandStopRecording  = "stop_recording"
	CommandUpdateTitle    = "update_title"
)

// Command is a JSON text message received from a subscriber.
type Command struct {
	Type  string `json:"type"`
	Title string `json:"title,omitempty"`
}

type stateEvent struct {
	Type    string         `json:"type"`
	Meeting *meeting.State `json:"meeting"`
}

// interimEvent always carries the speaker key, empty when diarization has
// not attached words yet.
type interimEvent struct {
	Type    string `json:"type"`
	Text    string `json:"text"`
	Speaker string `json:"speaker"`
}

type signalEvent struct {
	Type string `json:"type"`
}

type errorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// SignalEventJSON builds a bare lifecycle event carrying only its type.
func SignalEventJSON(eventType string) []byte {
	return marshalEvent(signalEvent{Type: eventType})
}

// ErrorEventJSON builds an error event for one subscriber.
func ErrorEventJSON(message string) []byte {
	return marshalEvent(errorEvent{Type: EventError, Message: message})
}

func marshalEvent(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		// All event types marshal cleanly; this only fires on a programming error.
		slog.Error("failed to marshal subscriber event", "error", err)
		return []byte(`{"type":"error","message":"internal encoding error"}`)
	}
	return b
}
