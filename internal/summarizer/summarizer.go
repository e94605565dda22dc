package summarizer

import (
	"context"

	"github.com/foxseedlab/gijirokun/internal/meeting"
)

// Summarizer turns a batch of new utterances into structured meeting notes.
//
// Summarize never returns an error: transport failures and unparsable model
// output yield degraded=true and zero-value notes, and the caller decides
// what to do with the consumed batch. previousContext is the summary text of
// the last successful call and carries meaning across batch boundaries
// (incomplete sentences, pronoun references).
type Summarizer interface {
	Summarize(ctx context.Context, batch []meeting.Utterance, previousContext string) (notes meeting.StructuredNotes, degraded bool)
}
