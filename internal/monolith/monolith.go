// Package monolith provides the application container and module interface.
package monolith

import (
	"context"

	"github.com/go-chi/chi/v5"

	"github.com/fd1az/omniroute/internal/asset"
	"github.com/fd1az/omniroute/internal/config"
	"github.com/fd1az/omniroute/internal/di"
	"github.com/fd1az/omniroute/internal/health"
	"github.com/fd1az/omniroute/internal/logger"
)

// Monolith is the main application container providing access to shared infrastructure.
type Monolith interface {
	Config() *config.Config
	Logger() logger.LoggerInterface
	AssetRegistry() *asset.Registry
	Services() di.ServiceRegistry
	Mux() *chi.Mux
	Health() *health.Server
}

// Module represents a bounded context module that can register services and start up.
type Module interface {
	RegisterServices(di.Container) error
	Startup(context.Context, Monolith) error
}

// Stopper is implemented by modules holding connections or goroutines.
type Stopper interface {
	Shutdown(Monolith)
}

// App implements the Monolith interface.
type App struct {
	config        *config.Config
	logger        logger.LoggerInterface
	assetRegistry *asset.Registry
	container     di.Container
	mux           *chi.Mux
	health        *health.Server
	modules       []Module
}

// New creates the container. The registry starts with the well-known
// assets; the routing module extends it from the topology file.
func New(cfg *config.Config, log logger.LoggerInterface, version string) *App {
	assetRegistry := asset.DefaultRegistry()
	container := di.NewContainer()

	// Register global services
	container.Register("config", cfg)
	container.Register("logger", log)
	container.Register("assetRegistry", assetRegistry)

	return &App{
		config:        cfg,
		logger:        log,
		assetRegistry: assetRegistry,
		container:     container,
		mux:           chi.NewRouter(),
		health:        health.NewServer(cfg.Health.Port, version, log),
	}
}

func (a *App) Config() *config.Config {
	return a.config
}

func (a *App) Logger() logger.LoggerInterface {
	return a.logger
}

func (a *App) AssetRegistry() *asset.Registry {
	return a.assetRegistry
}

func (a *App) Services() di.ServiceRegistry {
	return a.container
}

func (a *App) Mux() *chi.Mux {
	return a.mux
}

func (a *App) Health() *health.Server {
	return a.health
}

// Container returns the DI container for module registration.
func (a *App) Container() di.Container {
	return a.container
}

// RegisterModules registers all provided modules.
func (a *App) RegisterModules(modules ...Module) error {
	for _, m := range modules {
		if err := m.RegisterServices(a.container); err != nil {
			return err
		}
	}
	return nil
}

// StartModules starts modules in order and remembers them for Close.
func (a *App) StartModules(ctx context.Context, modules ...Module) error {
	for _, m := range modules {
		if err := m.Startup(ctx, a); err != nil {
			return err
		}
		a.modules = append(a.modules, m)
	}
	return nil
}

// Close shuts started modules down in reverse order.
func (a *App) Close() error {
	for i := len(a.modules) - 1; i >= 0; i-- {
		if s, ok := a.modules[i].(Stopper); ok {
			s.Shutdown(a)
		}
	}
	a.modules = nil
	return nil
}
