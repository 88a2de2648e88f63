package cli

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/tendril"
	"github.com/aretw0/tendril/pkg/adapters/badger"
	"github.com/aretw0/tendril/pkg/adapters/file"
	"github.com/aretw0/tendril/pkg/adapters/memory"
	"github.com/aretw0/tendril/pkg/adapters/redis"
	"github.com/aretw0/tendril/pkg/observability"
	"github.com/aretw0/tendril/pkg/persistence/middleware"
	"github.com/aretw0/tendril/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

// Session is an engine built for one CLI invocation together with the
// resources it opened.
type Session struct {
	Engine *tendril.Engine
	Loader *file.Loader

	closers []func() error
}

// Close releases the store and repository connections.
func (s *Session) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}

// OpenSession loads a flow file and builds an engine with standard CLI conventions.
func OpenSession(flowPath string, cfg Config, logger *slog.Logger, extra ...tendril.Option) (*Session, error) {
	loader, err := file.Load(flowPath)
	if err != nil {
		return nil, err
	}

	s := &Session{Loader: loader}
	opts := []tendril.Option{
		tendril.WithLogger(logger),
		tendril.WithConcurrentForks(cfg.ConcurrentForks),
	}
	if cfg.MaxCallDepth > 0 {
		opts = append(opts, tendril.WithMaxCallDepth(cfg.MaxCallDepth))
	}
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		opts = append(opts, tendril.WithLifecycleHooks(observability.LoggingHooks(logger)))
	}

	var client *backend.Client
	redisClient := func() *backend.Client {
		if client == nil {
			client = backend.NewClient(&backend.Options{
				Addr:     cfg.Store.Redis.Addr,
				Password: cfg.Store.Redis.Password,
				DB:       cfg.Store.Redis.DB,
			})
			s.closers = append(s.closers, client.Close)
		}
		return client
	}

	store, err := openStore(cfg.Store, redisClient)
	if err != nil {
		return nil, err
	}
	if store != nil {
		opts = append(opts, tendril.WithStore(store))
	}

	repo, err := openRepository(cfg.Repository, logger)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	if repo != nil {
		opts = append(opts, tendril.WithRepository(repo))
		if c, ok := repo.(interface{ Close() error }); ok {
			s.closers = append(s.closers, c.Close)
		}
	}

	if cfg.Lock.Enabled {
		opts = append(opts, tendril.WithLocker(redis.NewLocker(redisClient(), lockPrefix(cfg.Store.Redis)), cfg.Lock.TTL))
	}

	eng, err := tendril.New(loader, append(opts, extra...)...)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	s.Engine = eng
	return s, nil
}

// openStore builds the shared store of a persistent backend. The memory
// backend returns nil: every evaluation then gets a store of its own.
func openStore(cfg StoreConfig, client func() *backend.Client) (ports.KeyValueStore, error) {
	store, err := openBackend(cfg, client)
	if err != nil || store == nil {
		return nil, err
	}

	var mws []middleware.Middleware
	if len(cfg.Mask) > 0 {
		pii, err := middleware.NewPIIMiddleware(cfg.Mask)
		if err != nil {
			return nil, err
		}
		mws = append(mws, pii)
	}
	if cfg.EncryptionKey != "" {
		key, err := base64.StdEncoding.DecodeString(cfg.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("invalid encryption key: %w", err)
		}
		enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
		if err != nil {
			return nil, err
		}
		mws = append(mws, enc)
	}
	return middleware.Chain(store, mws...), nil
}

func openBackend(cfg StoreConfig, client func() *backend.Client) (ports.KeyValueStore, error) {
	switch cfg.Backend {
	case "file":
		return file.NewStore(cfg.Path), nil
	case "redis":
		opts := []redis.Option{redis.WithTTL(cfg.Redis.TTL)}
		if cfg.Redis.Prefix != "" {
			opts = append(opts, redis.WithPrefix(cfg.Redis.Prefix))
		}
		return redis.NewFromClient(client(), opts...), nil
	case "", "memory":
		return nil, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
}

func openRepository(cfg RepositoryConfig, logger *slog.Logger) (ports.Repository, error) {
	switch cfg.Backend {
	case "", "none":
		return nil, nil
	case "memory":
		return memory.NewRepository(), nil
	case "badger":
		repo, err := badger.Open(badger.Config{Path: cfg.Path, Logger: logger})
		if err != nil {
			return nil, err
		}
		return repo, nil
	}
	return nil, fmt.Errorf("unknown repository backend %q", cfg.Backend)
}

func lockPrefix(cfg RedisConfig) string {
	if cfg.Prefix != "" {
		return cfg.Prefix
	}
	return "tendril:"
}
