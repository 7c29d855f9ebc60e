// Package adapters selects and opens the storage backend named by the
// configuration.
package adapters

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robertarktes/busops/internal/adapters/crdb"
	"github.com/robertarktes/busops/internal/adapters/memory"
	mongoadapter "github.com/robertarktes/busops/internal/adapters/mongo"
	"github.com/robertarktes/busops/internal/config"
	"github.com/robertarktes/busops/internal/observability"
	"github.com/robertarktes/busops/internal/outbox"
	"github.com/robertarktes/busops/internal/store"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Backend bundles the document store with the outbox living next to it.
// Source is nil for the memory backend, which has nowhere to keep events.
type Backend struct {
	Store  store.Store
	Sink   outbox.Sink
	Source outbox.Source
	// Mongo is set for the mongo backend only.
	Mongo *mongo.Database

	ping    func(context.Context) error
	closers []func()
}

func (b *Backend) Ping(ctx context.Context) error {
	return b.ping(ctx)
}

func (b *Backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func Open(ctx context.Context, cfg *config.Config, logger observability.Logger) (*Backend, error) {
	switch cfg.StoreBackend {
	case config.BackendCRDB:
		return openCRDB(ctx, cfg)
	case config.BackendMongo:
		return openMongo(ctx, cfg, logger)
	case config.BackendMemory:
		logger.Warn("using the in-memory store, data is lost on restart")
		return &Backend{
			Store: memory.NewStore(),
			Sink:  outbox.LogSink{Logger: logger},
			ping:  func(context.Context) error { return nil },
		}, nil
	}
	return nil, errors.Newf("unknown store backend %q", cfg.StoreBackend)
}

func openCRDB(ctx context.Context, cfg *config.Config) (*Backend, error) {
	pool, err := pgxpool.New(ctx, cfg.CRDBDSN)
	if err != nil {
		return nil, errors.Wrap(err, "connect to crdb")
	}
	repo := crdb.NewRepository(pool)
	if err := repo.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Backend{
		Store:   repo,
		Sink:    repo,
		Source:  repo,
		ping:    repo.Ping,
		closers: []func(){pool.Close},
	}, nil
}

func openMongo(ctx context.Context, cfg *config.Config, logger observability.Logger) (*Backend, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, errors.Wrap(err, "connect to mongo")
	}
	db := client.Database(cfg.MongoDB)
	docs := mongoadapter.NewDocumentStore(db, logger)
	ob := mongoadapter.NewOutbox(db)
	if err := ob.EnsureIndexes(ctx); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}
	return &Backend{
		Store:   docs,
		Sink:    ob,
		Source:  ob,
		Mongo:   db,
		ping:    docs.Ping,
		closers: []func(){func() { client.Disconnect(context.Background()) }},
	}, nil
}
