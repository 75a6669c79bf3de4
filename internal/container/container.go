package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/garyjia/resident-payroll/internal/config"
	"github.com/garyjia/resident-payroll/internal/metrics"
	"github.com/garyjia/resident-payroll/internal/storage"
	"github.com/garyjia/resident-payroll/internal/transferorder"
	"github.com/garyjia/resident-payroll/pkg/database"
	"go.uber.org/zap"
)

// Container manages all application dependencies and lifecycle.
// Components are initialized in dependency order and torn down in reverse.
type Container struct {
	config *config.Config
	logger *zap.Logger

	// Data
	db           *database.DB
	repositories *RepositoryBundle

	// Output
	storage *StorageBundle

	// Application
	exporter *transferorder.Exporter

	// Lifecycle
	mu     sync.RWMutex
	ready  atomic.Bool
	closed atomic.Bool
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components:
// 1. Database, migrations and repositories
// 2. Output storage
// 3. Exporter
// 4. Metrics
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}

	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.logger.Info("Starting container initialization")

	if err := c.initDatabase(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.logger.Info("Database initialized", zap.String("driver", c.db.Driver()))

	if err := c.initStorage(ctx); err != nil {
		c.closeDatabase()
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.logger.Info("Storage initialized", zap.String("backend", c.config.Output.Backend))

	if err := c.initExporter(); err != nil {
		c.closeStorage()
		c.closeDatabase()
		return fmt.Errorf("failed to initialize exporter: %w", err)
	}
	c.logger.Info("Exporter initialized")

	metrics.Init(c.db.DB)

	c.ready.Store(true)
	c.logger.Info("Container started successfully")

	return nil
}

// Close gracefully shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")

	var errs []error
	if err := c.closeStorage(); err != nil {
		errs = append(errs, fmt.Errorf("close storage: %w", err))
	}
	if err := c.closeDatabase(); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return fmt.Errorf("container closed with %d errors", len(errs))
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health(ctx context.Context) *HealthStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}
	notReady := func(name string) {
		status.Components[name] = ComponentHealth{Healthy: false, Message: "not initialized"}
		status.Overall = false
	}

	if c.db != nil {
		if err := c.db.PingContext(ctx); err != nil {
			status.Components["database"] = ComponentHealth{
				Healthy: false,
				Message: fmt.Sprintf("ping failed: %v", err),
			}
			status.Overall = false
		} else {
			status.Components["database"] = ComponentHealth{Healthy: true}
		}
	} else {
		notReady("database")
	}

	if c.storage != nil {
		status.Components["storage"] = ComponentHealth{Healthy: true, Message: c.config.Output.Backend}
	} else {
		notReady("storage")
	}

	if c.exporter != nil {
		status.Components["exporter"] = ComponentHealth{Healthy: true}
	} else {
		notReady("exporter")
	}

	return status
}

func (c *Container) initDatabase() error {
	db, err := ProvideDatabase(&c.config.Database, c.logger)
	if err != nil {
		return err
	}
	c.db = db

	repos, err := ProvideRepositories(c.db, c.logger)
	if err != nil {
		c.closeDatabase()
		return err
	}
	c.repositories = repos
	return nil
}

func (c *Container) initStorage(ctx context.Context) error {
	bundle, err := ProvideStorage(ctx, &c.config.Output, c.logger)
	if err != nil {
		return err
	}
	c.storage = bundle
	return nil
}

func (c *Container) initExporter() error {
	exporter, err := ProvideExporter(&ExporterDeps{
		Repos:   c.repositories,
		Storage: c.storage.FileStorage,
		Config:  &c.config.Export,
		Logger:  c.logger,
	})
	if err != nil {
		return err
	}
	c.exporter = exporter
	return nil
}

func (c *Container) closeStorage() error {
	if c.storage == nil || c.storage.Closer == nil {
		c.storage = nil
		return nil
	}
	err := c.storage.Closer.Close()
	if err != nil {
		c.logger.Error("Failed to close storage", zap.Error(err))
	} else {
		c.logger.Info("Storage closed")
	}
	c.storage = nil
	return err
}

func (c *Container) closeDatabase() error {
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	if err != nil {
		c.logger.Error("Failed to close database", zap.Error(err))
	} else {
		c.logger.Info("Database closed")
	}
	c.db = nil
	c.repositories = nil
	return err
}

// Getters for accessing container components

// DB returns the database connection.
func (c *Container) DB() *database.DB {
	return c.db
}

// Repositories returns all repositories.
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// FileStorage returns the output storage.
func (c *Container) FileStorage() storage.FileStorage {
	if c.storage == nil {
		return nil
	}
	return c.storage.FileStorage
}

// Exporter returns the transfer order exporter.
func (c *Container) Exporter() *transferorder.Exporter {
	return c.exporter
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *config.Config {
	return c.config
}
