package session

import (
	"time"

	"github.com/samber/do/v2"

	"github.com/foxseedlab/gijirokun/internal/config"
	"github.com/foxseedlab/gijirokun/internal/repository"
	"github.com/foxseedlab/gijirokun/internal/summarizer"
	"github.com/foxseedlab/gijirokun/internal/transcriber"
	"github.com/foxseedlab/gijirokun/internal/webhook"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Registry, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return NewRegistry(Deps{
			Repo:              do.MustInvoke[repository.Repository](i),
			Transcriber:       do.MustInvoke[transcriber.Transcriber](i),
			Summarizer:        do.MustInvoke[summarizer.Summarizer](i),
			Webhook:           do.MustInvoke[webhook.Sender](i),
			SummarizeInterval: time.Duration(cfg.SummarizeIntervalSec) * time.Second,
		}), nil
	})
}
