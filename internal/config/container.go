package config

import (
	"fmt"
	"io"

	"go.uber.org/multierr"

	"reader-sync/internal/domain"
	"reader-sync/internal/infra/supabase"
	"reader-sync/internal/repository"
	"reader-sync/internal/service"
	"reader-sync/pkg/logger"
)

// Container holds all application dependencies
type Container struct {
	Config          domain.Config
	Logger          domain.Logger
	SupabaseClient  domain.SupabaseClient
	PositionStore   domain.PositionStore
	ProgressRemote  domain.ProgressRemote
	HighlightRemote domain.HighlightRemote
	ProgressSync    *service.ProgressSync
	SessionManager  *service.SessionManager

	closers []io.Closer
}

// NewContainer creates a new dependency injection container
func NewContainer() (*Container, error) {
	cfg := NewConfig()
	return NewContainerWithConfig(cfg, logger.NewLogger(cfg.GetLogLevel()))
}

// NewContainerWithConfig wires the application around an explicit configuration.
func NewContainerWithConfig(cfg domain.Config, appLogger domain.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: appLogger}

	if err := c.initPositionStore(); err != nil {
		return nil, multierr.Append(err, c.Close())
	}
	if err := c.initRemotes(); err != nil {
		return nil, multierr.Append(err, c.Close())
	}

	c.ProgressSync = service.NewProgressSync(
		c.PositionStore,
		c.ProgressRemote,
		service.NewReconciliationEngine(),
		cfg.GetRemoteTimeout(),
		appLogger,
	)
	c.SessionManager = service.NewSessionManager(
		c.ProgressSync,
		c.HighlightRemote,
		service.SessionOptions{
			ScrollDebounce: cfg.GetScrollDebounce(),
			MaxNoteLength:  cfg.GetMaxNoteLength(),
		},
		appLogger,
	)
	return c, nil
}

func (c *Container) initPositionStore() error {
	switch c.Config.GetPositionStore() {
	case PositionStoreRedis:
		store, err := repository.NewRedisPositionStore(c.Config.GetRedisURL())
		if err != nil {
			return err
		}
		c.PositionStore = store
		c.closers = append(c.closers, store)
		c.Logger.Info("Using redis position store")
	case PositionStoreSQLite, "":
		db, err := repository.NewDatabase(c.Config.GetDatabasePath(), c.Logger)
		if err != nil {
			return err
		}
		c.PositionStore = repository.NewSQLitePositionStore(db.DB)
		c.closers = append(c.closers, db)
	default:
		return fmt.Errorf("unknown position store %q", c.Config.GetPositionStore())
	}
	return nil
}

func (c *Container) initRemotes() error {
	switch c.Config.GetRemoteBackend() {
	case RemoteBackendSupabase:
		client := supabase.NewSupabaseClient(c.Config, c.Logger)
		if err := client.Initialize(); err != nil {
			return err
		}
		c.SupabaseClient = client
		c.ProgressRemote = repository.NewSupabaseProgressRepository(client, c.Logger)
		c.HighlightRemote = repository.NewSupabaseHighlightRepository(client, c.Logger)
	case RemoteBackendREST, "":
		if c.Config.GetRemoteBaseURL() == "" {
			return fmt.Errorf("REMOTE_BASE_URL must be set for the rest backend")
		}
		rest := repository.NewRESTClient(c.Config.GetRemoteBaseURL(), c.Config.GetRemoteTimeout())
		c.ProgressRemote = repository.NewRESTProgressClient(rest)
		c.HighlightRemote = repository.NewRESTHighlightClient(rest)
	default:
		return fmt.Errorf("unknown remote backend %q", c.Config.GetRemoteBackend())
	}
	c.Logger.Info("Remote backend configured", "backend", c.Config.GetRemoteBackend())
	return nil
}

// Close tears down open sessions and releases stores.
func (c *Container) Close() error {
	if c.SessionManager != nil {
		c.SessionManager.CloseAll()
	}
	if c.ProgressSync != nil {
		wait := c.Config.GetRemoteTimeout()
		if wait <= 0 {
			wait = service.DefaultRemoteTimeout
		}
		if !c.ProgressSync.WaitTimeout(wait) {
			c.Logger.Warn("Gave up waiting for position pushes", "timeout", wait.String())
		}
	}
	var err error
	for i := len(c.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, c.closers[i].Close())
	}
	c.closers = nil
	if s, ok := c.Logger.(interface{ Sync() error }); ok {
		// stdout cannot be synced on most platforms; ignore that
		_ = s.Sync()
	}
	return err
}
