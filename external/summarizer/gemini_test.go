package summarizer

import (
	"strings"
	"testing"
	"time"

	"github.com/foxseedlab/gijirokun/internal/meeting"
)

func TestBuildPrompt_SpeakerTaggedChronological(t *testing.T) {
	batch := []meeting.Utterance{
		{Speaker: "Alice", Text: "We should ship Friday", Timestamp: time.Now()},
		{Text: "agreed", Timestamp: time.Now()},
	}
	prompt := buildPrompt(batch, "")

	if !strings.Contains(prompt, "[Alice]: We should ship Friday") {
		t.Fatalf("prompt missing speaker-tagged utterance:\n%s", prompt)
	}
	if !strings.Contains(prompt, "[Unknown]: agreed") {
		t.Fatalf("prompt missing unknown-speaker fallback:\n%s", prompt)
	}
	if strings.Index(prompt, "[Alice]") > strings.Index(prompt, "[Unknown]") {
		t.Fatal("utterances out of chronological order")
	}
	if !strings.Contains(prompt, "This is the start of the meeting.") {
		t.Fatal("expected start-of-meeting placeholder for empty context")
	}
}

func TestBuildPrompt_EmbedsPreviousContext(t *testing.T) {
	prompt := buildPrompt(nil, "Team agreed to ship Friday.")
	if !strings.Contains(prompt, "Team agreed to ship Friday.") {
		t.Fatal("previous context not embedded")
	}
}

func TestParseNotes_DefaultsMissingArrays(t *testing.T) {
	notes, err := parseNotes(`{"summary":"s"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if notes.Summary != "s" {
		t.Fatalf("unexpected summary: %q", notes.Summary)
	}
	if notes.KeyPoints == nil || notes.ActionItems == nil || notes.Decisions == nil || notes.OpenQuestions == nil {
		t.Fatalf("array fields must default to empty, got %+v", notes)
	}
}

func TestParseNotes_StripsCodeFence(t *testing.T) {
	raw := "```json\n{\"summary\":\"fenced\",\"key_points\":[\"k\"]}\n```"
	notes, err := parseNotes(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if notes.Summary != "fenced" || len(notes.KeyPoints) != 1 {
		t.Fatalf("unexpected notes: %+v", notes)
	}
}

func TestParseNotes_FullPayload(t *testing.T) {
	raw := `{
		"summary": "Team agreed to ship Friday.",
		"key_points": ["Ship date: Friday"],
		"action_items": [{"task": "Cut release branch", "assignee": "Alice", "context": "Ship Friday"}],
		"decisions": [{"decision": "Ship Friday", "rationale": "Demo on Monday", "participants_involved": ["Alice", "Bob"]}],
		"open_questions": ["Who runs the launch checklist?"]
	}`
	notes, err := parseNotes(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if notes.ActionItems[0].Assignee != "Alice" {
		t.Fatalf("unexpected action item: %+v", notes.ActionItems[0])
	}
	if len(notes.Decisions[0].Participants) != 2 {
		t.Fatalf("unexpected decision participants: %+v", notes.Decisions[0])
	}
}

func TestParseNotes_RejectsNonJSON(t *testing.T) {
	if _, err := parseNotes("I could not produce notes, sorry."); err == nil {
		t.Fatal("expected parse error for prose response")
	}
}

func TestStripCodeFence(t *testing.T) {
	cases := map[string]string{
		"```json\n{}\n```": "{}",
		"```\n{}\n```":     "{}",
		"  {}  ":           "{}",
		"{}":               "{}",
	}
	for in, want := range cases {
		if got := stripCodeFence(in); got != want {
			t.Fatalf("stripCodeFence(%q) = %q, want %q", in, got, want)
		}
	}
}
