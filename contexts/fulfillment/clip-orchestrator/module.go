package cliporchestrator

import (
	"log/slog"
	"time"

	"boostpanel/contexts/fulfillment/clip-orchestrator/adapters/memory"
	"boostpanel/contexts/fulfillment/clip-orchestrator/application"
	"boostpanel/contexts/fulfillment/clip-orchestrator/domain/entities"
	"boostpanel/contexts/fulfillment/clip-orchestrator/ports"
)

type Module struct {
	Service application.Service
	Store   *memory.Store
}

type Dependencies struct {
	Driver         ports.AutomationDriver
	Accounts       ports.AccountRepository
	Processings    ports.ProcessingRepository
	Clock          ports.Clock
	IDGenerator    ports.IDGenerator
	MaxAttempts    int
	RetryBackoff   time.Duration
	AttemptTimeout time.Duration
	Logger         *slog.Logger
}

func NewModule(deps Dependencies) Module {
	return Module{
		Service: application.Service{
			Driver:         deps.Driver,
			Accounts:       deps.Accounts,
			Processings:    deps.Processings,
			Clock:          deps.Clock,
			IDGen:          deps.IDGenerator,
			MaxAttempts:    deps.MaxAttempts,
			RetryBackoff:   deps.RetryBackoff,
			AttemptTimeout: deps.AttemptTimeout,
			Logger:         deps.Logger,
		},
	}
}

func NewInMemoryModule(accounts []entities.Account, logger *slog.Logger) Module {
	store := memory.NewStore(accounts)
	module := NewModule(Dependencies{
		Driver:       store,
		Accounts:     store,
		Processings:  store,
		Clock:        store,
		IDGenerator:  store,
		MaxAttempts:  2,
		RetryBackoff: time.Millisecond,
		Logger:       logger,
	})
	module.Store = store
	return module
}
