package repository

import (
	"time"

	"github.com/foxseedlab/gijirokun/internal/meeting"
)

// Meeting is the persisted record for one meeting, keyed by meeting ID.
type Meeting struct {
	ID              string
	Title           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Transcript      []meeting.Utterance
	Summary         string
	KeyPoints       []string
	ActionItems     []meeting.ActionItem
	Decisions       []meeting.Decision
	OpenQuestions   []string
	Participants    []string
	Agenda          []meeting.AgendaItem
	PreviousSummary string
	IsActive        bool
}

// State reconstructs the in-memory meeting state from a persisted record.
func (m *Meeting) State() *meeting.State {
	return &meeting.State{
		ID:              m.ID,
		Title:           m.Title,
		CreatedAt:       m.CreatedAt,
		Transcript:      m.Transcript,
		Summary:         m.Summary,
		KeyPoints:       m.KeyPoints,
		ActionItems:     m.ActionItems,
		Decisions:       m.Decisions,
		OpenQuestions:   m.OpenQuestions,
		Participants:    m.Participants,
		Agenda:          m.Agenda,
		PreviousSummary: m.PreviousSummary,
	}
}

// MeetingFromState maps an in-memory state to its persisted form. CreatedAt
// and IsActive are managed by the store, not by callers.
func MeetingFromState(s *meeting.State) *Meeting {
	return &Meeting{
		ID:              s.ID,
		Title:           s.Title,
		CreatedAt:       s.CreatedAt,
		Transcript:      s.Transcript,
		Summary:         s.Summary,
		KeyPoints:       s.KeyPoints,
		ActionItems:     s.ActionItems,
		Decisions:       s.Decisions,
		OpenQuestions:   s.OpenQuestions,
		Participants:    s.Participants,
		Agenda:          s.Agenda,
		PreviousSummary: s.PreviousSummary,
	}
}
