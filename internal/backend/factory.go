package backend

import (
	"context"
	"fmt"

	"gastos/internal/amqp"
	applog "gastos/internal/log"
	"gastos/internal/persistence/memory"
	"gastos/internal/services"
	"gastos/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
	dial   func(url, exchange, queue string, logger *applog.Logger) (services.Publisher, error)
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentBackend),
		dial:   dialAMQP,
	}
}

func dialAMQP(url, exchange, queue string, logger *applog.Logger) (services.Publisher, error) {
	c, err := amqp.NewClient(url, exchange, queue, logger)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// CreateBackend implements Factory.CreateBackend. When AMQP is configured the
// repository is wrapped so committed changes are published; a broker that
// cannot be reached is logged and the backend runs without publishing.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		repo    Backend
		cleanup CleanupFunc
	)
	switch config.Type {
	case SQLiteBackend:
		sqliteRepo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		repo, cleanup = sqliteRepo, sqliteRepo.Close
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case MemoryBackend:
		repo = memory.New()
		f.logger.InfoContext(ctx, "Initialized memory backend")
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	if config.AMQPURL == "" {
		return &BackendResult{Backend: repo, Cleanup: cleanup}, nil
	}

	publisher, err := f.dial(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
	if err != nil {
		f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without sync", applog.FieldError, err)
		return &BackendResult{Backend: repo, Cleanup: cleanup}, nil
	}
	f.logger.InfoContext(ctx, "Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)

	syncing := services.NewSyncingRepository(repo, publisher, f.logger)
	return &BackendResult{
		Backend: syncing,
		Cleanup: syncing.Close,
		Syncing: true,
	}, nil
}
