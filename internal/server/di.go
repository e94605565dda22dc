package server

import (
	"github.com/samber/do/v2"

	"github.com/foxseedlab/gijirokun/internal/repository"
	"github.com/foxseedlab/gijirokun/internal/session"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Server, error) {
		return NewServer(
			do.MustInvoke[*session.Registry](i),
			do.MustInvoke[repository.Repository](i),
		), nil
	})
}
