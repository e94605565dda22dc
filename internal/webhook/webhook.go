package webhook

import (
	"context"

	"github.com/foxseedlab/gijirokun/internal/meeting"
)

// NotesPayload is posted to the configured webhook when a recording session
// stops. The continuity field is deliberately not part of the payload.
type NotesPayload struct {
	MeetingID     string               `json:"meeting_id"`
	Title         string               `json:"title"`
	Summary       string               `json:"summary"`
	KeyPoints     []string             `json:"key_points"`
	ActionItems   []meeting.ActionItem `json:"action_items"`
	Decisions     []meeting.Decision   `json:"decisions"`
	OpenQuestions []string             `json:"open_questions"`
	Participants  []string             `json:"participants"`
	UtteranceNum  int                  `json:"utterance_count"`
}

type Sender interface {
	SendNotes(ctx context.Context, payload NotesPayload) error
}

func PayloadFromState(s *meeting.State) NotesPayload {
	return NotesPayload{
		MeetingID:     s.ID,
		Title:         s.Title,
		Summary:       s.Summary,
		KeyPoints:     s.KeyPoints,
		ActionItems:   s.ActionItems,
		Decisions:     s.Decisions,
		OpenQuestions: s.OpenQuestions,
		Participants:  s.Participants,
		UtteranceNum:  len(s.Transcript),
	}
}
