package transcriber

import "context"

type StreamWriter interface {
	Write(pcm []byte) error
	Close() error
}

// ResultReceiver receives recognition results for one stream. OnResult is
// called for both interim and final results; speaker is a best-guess label
// ("Speaker 1") or empty when diarization has not attached words yet.
type ResultReceiver interface {
	OnResult(text, speaker string, isFinal bool)
	OnError(err error)
}

type Transcriber interface {
	StartStreaming(ctx context.Context, meetingID string, receiver ResultReceiver) (StreamWriter, error)
}
