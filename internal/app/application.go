package app

import (
	"context"
	"fmt"

	"github.com/R3E-Network/valuation_engine/internal/app/domain/valuation"
	consensussvc "github.com/R3E-Network/valuation_engine/internal/app/services/consensus"
	registrysvc "github.com/R3E-Network/valuation_engine/internal/app/services/registry"
	"github.com/R3E-Network/valuation_engine/internal/app/storage"
	"github.com/R3E-Network/valuation_engine/internal/app/storage/memory"
	"github.com/R3E-Network/valuation_engine/internal/app/system"
	"github.com/R3E-Network/valuation_engine/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Oracles     storage.OracleStore
	Submissions storage.SubmissionStore
	Valuations  storage.ValuationStore
	Params      storage.ParamsStore
}

// Application ties the registry and consensus services together and manages
// their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Registry  *registrysvc.Service
	Consensus *consensussvc.Service
}

// New builds a fully initialised application with the provided stores and
// seeds the engine parameters if no durable row exists yet.
func New(ctx context.Context, stores Stores, defaults valuation.Params, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}

	mem := memory.New()
	if stores.Oracles == nil {
		stores.Oracles = mem
	}
	if stores.Submissions == nil {
		stores.Submissions = mem
	}
	if stores.Valuations == nil {
		stores.Valuations = mem
	}
	if stores.Params == nil {
		stores.Params = mem
	}

	manager := system.NewManager()

	registryService := registrysvc.New(stores.Oracles, stores.Params, log)
	consensusService := consensussvc.New(stores.Oracles, stores.Submissions, stores.Valuations, stores.Params, log)

	if _, err := registryService.EnsureParams(ctx, defaults); err != nil {
		return nil, fmt.Errorf("ensure engine params: %w", err)
	}

	for _, name := range []string{"registry", "consensus"} {
		if err := manager.Register(system.NoopService{ServiceName: name}); err != nil {
			return nil, fmt.Errorf("register %s service: %w", name, err)
		}
	}

	return &Application{
		manager:   manager,
		log:       log,
		Registry:  registryService,
		Consensus: consensusService,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
