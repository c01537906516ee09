package event

import (
	"github.com/unihub/unihub/internal/event/repository"
	eventservice "github.com/unihub/unihub/internal/event/service"
	"go.uber.org/fx"
)

var Module = fx.Module("event",
	fx.Provide(repository.Provide),
	fx.Provide(eventservice.NewService),
)
