package container

import (
	"context"
	"fmt"
	"log/slog"

	"powersim/adapters/rng"
	"powersim/adapters/sqlstore"
	"powersim/adapters/stats/ttest"
	"powersim/app"
	"powersim/internal/api"
	"powersim/internal/config"
	"powersim/ports"

	"github.com/jmoiron/sqlx"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	// Infrastructure
	DB *sqlx.DB

	// Repositories
	RunRepo ports.RunRepository

	// Adapters
	RNG   ports.RNGPort
	Tests ports.TestSelector
}

// New creates a new dependency injection container
func New(cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Container{
		Config: cfg,
		Logger: logger,
		RNG:    rng.NewSeededAdapter(),
		Tests:  ttest.New,
	}, nil
}

// InitWithDatabase opens and migrates the configured database and wires the
// run repository. Calling it again is a no-op.
func (c *Container) InitWithDatabase(ctx context.Context) error {
	if c.DB != nil {
		return nil
	}
	db, err := sqlstore.Open(ctx, c.Config.Storage.DatabaseURL, c.Logger)
	if err != nil {
		return err
	}
	c.DB = db
	c.RunRepo = sqlstore.NewRunRepository(db)
	c.Logger.Debug("database ready", "driver", sqlstore.DriverFor(c.Config.Storage.DatabaseURL))
	return nil
}

// PowerService builds the power service. Runs are persisted only after
// InitWithDatabase.
func (c *Container) PowerService() *app.PowerService {
	opts := []app.Option{
		app.WithWorkers(c.Config.Simulation.Workers),
		app.WithLogger(c.Logger),
	}
	if c.RunRepo != nil {
		opts = append(opts, app.WithRunRepository(c.RunRepo))
	}
	return app.NewPowerService(c.RNG, c.Tests, opts...)
}

// APIServer builds the HTTP API with request defaults taken from config.
func (c *Container) APIServer() *api.Server {
	return api.NewServer(c.PowerService(), api.Defaults{
		Params: c.Config.BaseParams(),
		Range:  c.Config.Range(),
		Target: c.Config.Simulation.Target,
		Seed:   c.Config.Simulation.Seed,
	}, c.Logger)
}

// Shutdown releases the database connection
func (c *Container) Shutdown(ctx context.Context) error {
	if c.DB != nil {
		err := c.DB.Close()
		c.DB = nil
		c.RunRepo = nil
		return err
	}
	return nil
}
