package orderpipeline

import (
	"log/slog"

	"boostpanel/contexts/fulfillment/order-pipeline/adapters/memory"
	"boostpanel/contexts/fulfillment/order-pipeline/application/commands"
	"boostpanel/contexts/fulfillment/order-pipeline/application/queries"
	"boostpanel/contexts/fulfillment/order-pipeline/application/workers"
	"boostpanel/contexts/fulfillment/order-pipeline/domain/entities"
	"boostpanel/contexts/fulfillment/order-pipeline/ports"
)

type Module struct {
	CreateOrder     commands.CreateOrderUseCase
	Process         commands.ProcessOrderUseCase
	CancelOrder     commands.CancelOrderUseCase
	ResumeOrder     commands.ResumeOrderUseCase
	DeliveryControl commands.DeliveryControlUseCase
	GetOrder        queries.GetOrderQuery
	ListOrders      queries.ListOrdersQuery
	OutboxRelay     workers.OutboxRelay
	ProgressMonitor workers.ProgressMonitor
	Store           *memory.Store
}

type Dependencies struct {
	Orders              ports.OrderRepository
	Services            ports.ServiceRepository
	Ledger              ports.Ledger
	Metadata            ports.VideoMetadata
	Clips               ports.ClipOrchestrator
	Distributor         ports.CampaignDistributor
	Outbox              ports.OutboxRepository
	Publisher           ports.Publisher
	Clock               ports.Clock
	IDGenerator         ports.IDGenerator
	ClipCreationEnabled bool
	BatchSize           int
	Logger              *slog.Logger
}

func NewModule(deps Dependencies) Module {
	return Module{
		CreateOrder: commands.CreateOrderUseCase{
			Orders:      deps.Orders,
			Services:    deps.Services,
			Ledger:      deps.Ledger,
			Outbox:      deps.Outbox,
			Clock:       deps.Clock,
			IDGenerator: deps.IDGenerator,
			Logger:      deps.Logger,
		},
		Process: commands.ProcessOrderUseCase{
			Orders:              deps.Orders,
			Services:            deps.Services,
			Metadata:            deps.Metadata,
			Clips:               deps.Clips,
			Distributor:         deps.Distributor,
			Outbox:              deps.Outbox,
			Clock:               deps.Clock,
			IDGenerator:         deps.IDGenerator,
			ClipCreationEnabled: deps.ClipCreationEnabled,
			Logger:              deps.Logger,
		},
		CancelOrder: commands.CancelOrderUseCase{
			Orders:      deps.Orders,
			Ledger:      deps.Ledger,
			Distributor: deps.Distributor,
			Clock:       deps.Clock,
			Logger:      deps.Logger,
		},
		ResumeOrder: commands.ResumeOrderUseCase{
			Orders:      deps.Orders,
			Outbox:      deps.Outbox,
			Clock:       deps.Clock,
			IDGenerator: deps.IDGenerator,
			Logger:      deps.Logger,
		},
		DeliveryControl: commands.DeliveryControlUseCase{
			Orders:      deps.Orders,
			Distributor: deps.Distributor,
			Logger:      deps.Logger,
		},
		GetOrder:   queries.GetOrderQuery{Orders: deps.Orders},
		ListOrders: queries.ListOrdersQuery{Orders: deps.Orders},
		OutboxRelay: workers.OutboxRelay{
			Outbox:    deps.Outbox,
			Publisher: deps.Publisher,
			Clock:     deps.Clock,
			BatchSize: deps.BatchSize,
			Logger:    deps.Logger,
		},
		ProgressMonitor: workers.ProgressMonitor{
			Orders:      deps.Orders,
			Distributor: deps.Distributor,
			Clock:       deps.Clock,
			BatchSize:   deps.BatchSize,
			Logger:      deps.Logger,
		},
	}
}

func NewInMemoryModule(services []entities.Service, logger *slog.Logger) Module {
	store := memory.NewStore(services)
	module := NewModule(Dependencies{
		Orders:              store,
		Services:            store,
		Ledger:              store,
		Metadata:            store,
		Clips:               store,
		Distributor:         store,
		Outbox:              store,
		Publisher:           store,
		Clock:               store,
		IDGenerator:         store,
		ClipCreationEnabled: true,
		Logger:              logger,
	})
	module.Store = store
	return module
}
