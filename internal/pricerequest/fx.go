package pricerequest

import (
	"github.com/smallbiznis/procura/internal/pricerequest/repository"
	"github.com/smallbiznis/procura/internal/pricerequest/service"
	"go.uber.org/fx"
)

var Module = fx.Module("pricerequest.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(service.NewResponder),
)
