package paymentintent

import (
	"github.com/unihub/unihub/internal/paymentintent/repository"
	intentservice "github.com/unihub/unihub/internal/paymentintent/service"
	"go.uber.org/fx"
)

var Module = fx.Module("paymentintent",
	fx.Provide(repository.Provide),
	fx.Provide(intentservice.NewService),
)
