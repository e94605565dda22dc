package meeting

import (
	"slices"
	"time"
)

// Utterance is one finalized speech segment. Immutable once appended.
type Utterance struct {
	Speaker   string    `json:"speaker,omitempty"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

type ActionItem struct {
	Task     string `json:"task"`
	Assignee string `json:"assignee,omitempty"`
	Context  string `json:"context,omitempty"`
}

type Decision struct {
	Decision     string   `json:"decision"`
	Rationale    string   `json:"rationale,omitempty"`
	Participants []string `json:"participants_involved,omitempty"`
}

type AgendaItem struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// State is the authoritative record for one meeting. It is owned by a single
// session run loop and must only be mutated there.
type State struct {
	ID            string       `json:"id"`
	Title         string       `json:"title"`
	CreatedAt     time.Time    `json:"created_at"`
	Transcript    []Utterance  `json:"transcript"`
	Summary       string       `json:"summary"`
	KeyPoints     []string     `json:"key_points"`
	ActionItems   []ActionItem `json:"action_items"`
	Decisions     []Decision   `json:"decisions"`
	OpenQuestions []string     `json:"open_questions"`
	Participants  []string     `json:"participants"`
	Agenda        []AgendaItem `json:"agenda"`

	// PreviousSummary is the summary text of the most recent successful
	// oracle call, used only as context for the next call. Never sent to
	// subscribers.
	PreviousSummary string `json:"-"`
}

func NewState(id, title string) *State {
	if title == "" {
		title = "Untitled Meeting"
	}
	return &State{
		ID:        id,
		Title:     title,
		CreatedAt: time.Now(),
	}
}

// AppendUtterance adds a finalized utterance to the full transcript and
// records its speaker in first-seen order.
func (s *State) AppendUtterance(u Utterance) {
	s.Transcript = append(s.Transcript, u)
	if u.Speaker != "" && !slices.Contains(s.Participants, u.Speaker) {
		s.Participants = append(s.Participants, u.Speaker)
	}
}

// StructuredNotes is the parsed output of one summarization oracle call.
// Array fields are always non-nil after a successful parse.
type StructuredNotes struct {
	Summary       string       `json:"summary"`
	KeyPoints     []string     `json:"key_points"`
	ActionItems   []ActionItem `json:"action_items"`
	Decisions     []Decision   `json:"decisions"`
	OpenQuestions []string     `json:"open_questions"`
}
