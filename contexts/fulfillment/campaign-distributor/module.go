package campaigndistributor

import (
	"log/slog"

	"boostpanel/contexts/fulfillment/campaign-distributor/adapters/memory"
	"boostpanel/contexts/fulfillment/campaign-distributor/application"
	"boostpanel/contexts/fulfillment/campaign-distributor/domain/entities"
	"boostpanel/contexts/fulfillment/campaign-distributor/ports"
)

type Module struct {
	Service application.Service
	Store   *memory.Store
}

type Dependencies struct {
	Fixed        ports.FixedCampaignRepository
	Assignments  ports.AssignmentRepository
	Coefficients ports.CoefficientRepository
	Platform     ports.TrafficPlatform
	Clock        ports.Clock
	IDGenerator  ports.IDGenerator
	Logger       *slog.Logger
}

func NewModule(deps Dependencies) Module {
	return Module{
		Service: application.Service{
			Fixed:       deps.Fixed,
			Assignments: deps.Assignments,
			Platform:    deps.Platform,
			Resolver: application.CoefficientResolver{
				Coefficients: deps.Coefficients,
				Logger:       deps.Logger,
			},
			Clock:  deps.Clock,
			IDGen:  deps.IDGenerator,
			Logger: deps.Logger,
		},
	}
}

func NewInMemoryModule(fixed []entities.FixedCampaign, logger *slog.Logger) Module {
	store := memory.NewStore(fixed)
	module := NewModule(Dependencies{
		Fixed:        store,
		Assignments:  store,
		Coefficients: store,
		Platform:     store,
		Clock:        store,
		IDGenerator:  store,
		Logger:       logger,
	})
	module.Store = store
	return module
}
