package meeting

import "slices"

// Merge applies one successful oracle result to a meeting state and returns
// the updated state. It is a pure function: the input state is not mutated,
// and the same (state, notes) pair always produces the same result.
//
// Per-field policy:
//   - Summary: appended as a new paragraph when non-empty.
//   - Key points: appended unless an exact duplicate already exists,
//     preserving order of first appearance.
//   - Action items and decisions: appended unconditionally; each batch's
//     items are new facts, not corrections.
//   - Open questions: replaced wholesale when the oracle returned a non-empty
//     list; an empty list leaves the previous questions untouched. Absence is
//     not evidence of resolution.
//   - PreviousSummary: always set to this call's summary, even when empty.
//
// Callers must not invoke Merge for a degraded oracle result; the batch is
// still considered drained in that case.
func Merge(s State, notes StructuredNotes) State {
	if notes.Summary != "" {
		if s.Summary != "" {
			s.Summary = s.Summary + "\n\n" + notes.Summary
		} else {
			s.Summary = notes.Summary
		}
	}

	for _, point := range notes.KeyPoints {
		if point != "" && !slices.Contains(s.KeyPoints, point) {
			s.KeyPoints = append(slices.Clip(s.KeyPoints), point)
		}
	}

	for _, item := range notes.ActionItems {
		if item.Task != "" {
			s.ActionItems = append(slices.Clip(s.ActionItems), item)
		}
	}

	for _, d := range notes.Decisions {
		if d.Decision != "" {
			s.Decisions = append(slices.Clip(s.Decisions), d)
		}
	}

	if len(notes.OpenQuestions) > 0 {
		s.OpenQuestions = slices.Clone(notes.OpenQuestions)
	}

	s.PreviousSummary = notes.Summary
	return s
}
