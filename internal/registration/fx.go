package registration

import (
	"github.com/unihub/unihub/internal/registration/repository"
	registrationservice "github.com/unihub/unihub/internal/registration/service"
	"go.uber.org/fx"
)

var Module = fx.Module("registration",
	fx.Provide(repository.Provide),
	fx.Provide(registrationservice.NewService),
)
