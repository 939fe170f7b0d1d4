package organization

import (
	"github.com/smallbiznis/procura/internal/organization/domain"
	"github.com/smallbiznis/procura/internal/organization/service"
	"github.com/smallbiznis/procura/pkg/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("organization.service",
	fx.Provide(repository.ProvideStore[domain.Organization]),
	fx.Provide(service.NewService),
)
