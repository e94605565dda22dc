package summarizer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/foxseedlab/gijirokun/internal/meeting"
	"github.com/foxseedlab/gijirokun/internal/summarizer"
	"google.golang.org/genai"
)

const promptTemplate = `You are a meeting note assistant. Analyze the following conversation transcript and generate structured meeting notes.

IMPORTANT CONTEXT:
- This is a CONTINUATION of an ongoing meeting
- Previous summary (use this to understand incomplete sentences or references):
%s

NEW TRANSCRIPT TO PROCESS:
%s

Generate meeting notes in the following JSON format. Be concise but capture all important information:

{
    "summary": "A 2-3 sentence summary of what was discussed in this segment, connecting to previous context if relevant",
    "key_points": ["Important point 1", "Important point 2"],
    "action_items": [{"task": "Description of action", "assignee": "Person name or null", "context": "Why this was decided"}],
    "decisions": [{"decision": "What was decided", "rationale": "Why", "participants_involved": ["names"]}],
    "open_questions": ["Unresolved question or topic that needs follow-up"]
}

Rules:
1. Only include sections that have actual content (empty arrays are fine)
2. If a sentence seems incomplete, use the previous summary context to infer meaning
3. Be specific about WHO said WHAT
4. Return ONLY valid JSON, no markdown or explanation

JSON:`

type GeminiConfig struct {
	APIKey string
	Model  string
}

type GeminiSummarizer struct {
	client *genai.Client
	model  string
}

func NewGeminiSummarizer(ctx context.Context, cfg GeminiConfig) (summarizer.Summarizer, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiSummarizer{client: client, model: cfg.Model}, nil
}

func (g *GeminiSummarizer) Summarize(ctx context.Context, batch []meeting.Utterance, previousContext string) (meeting.StructuredNotes, bool) {
	prompt := buildPrompt(batch, previousContext)

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.2),
	})
	if err != nil {
		slog.Error("gemini call failed", "error", err, "batch_size", len(batch))
		return meeting.StructuredNotes{}, true
	}

	notes, err := parseNotes(resp.Text())
	if err != nil {
		slog.Error("gemini response unparsable", "error", err, "batch_size", len(batch))
		return meeting.StructuredNotes{}, true
	}
	return notes, false
}

func buildPrompt(batch []meeting.Utterance, previousContext string) string {
	if previousContext == "" {
		previousContext = "This is the start of the meeting."
	}
	lines := make([]string, 0, len(batch))
	for _, u := range batch {
		speaker := u.Speaker
		if speaker == "" {
			speaker = "Unknown"
		}
		lines = append(lines, fmt.Sprintf("[%s]: %s", speaker, u.Text))
	}
	return fmt.Sprintf(promptTemplate, previousContext, strings.Join(lines, "\n"))
}

// parseNotes unmarshals the model output into StructuredNotes. Unrecognized
// fields are ignored and missing array fields become empty, not absent.
func parseNotes(raw string) (meeting.StructuredNotes, error) {
	cleaned := stripCodeFence(raw)

	var notes meeting.StructuredNotes
	if err := json.Unmarshal([]byte(cleaned), &notes); err != nil {
		return meeting.StructuredNotes{}, fmt.Errorf("parse notes: %w", err)
	}
	if notes.KeyPoints == nil {
		notes.KeyPoints = []string{}
	}
	if notes.ActionItems == nil {
		notes.ActionItems = []meeting.ActionItem{}
	}
	if notes.Decisions == nil {
		notes.Decisions = []meeting.Decision{}
	}
	if notes.OpenQuestions == nil {
		notes.OpenQuestions = []string{}
	}
	return notes, nil
}

// stripCodeFence removes optional markdown code fences (```json ... ```)
// that some models wrap around JSON output.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"```json", "```"} {
		if after, ok := strings.CutPrefix(s, prefix); ok {
			s = after
			break
		}
	}
	if before, ok := strings.CutSuffix(s, "```"); ok {
		s = before
	}
	return strings.TrimSpace(s)
}
