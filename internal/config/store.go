package config

import (
	"context"
	"fmt"
	"log"

	"alfredoptarigan/resume-registry/internal/repositories"
	"alfredoptarigan/resume-registry/internal/services"
)

// OpenDocumentStore builds the repository and change feed selected by cfg
// and returns a document store that is not started yet. closeFn releases
// the change feed and the database.
func OpenDocumentStore(ctx context.Context, cfg *Config) (services.DocumentStore, func(), error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	var (
		repo    repositories.ResumeRepository
		closers []func()
	)

	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	switch cfg.Store.Driver {
	case StoreDriverMemory:
		repo = repositories.NewMemoryResumeRepository()
		log.Println("⚠️  Using in-memory resume store, data is lost on exit")
	default:
		db, err := InitDatabase(cfg)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() {
			if sqlDB, err := db.DB(); err == nil {
				sqlDB.Close()
			}
		})
		repo = repositories.NewResumeRepository(db)
	}

	var (
		feed services.ChangeFeed
		err  error
	)
	switch cfg.ChangeFeed.Driver {
	case ChangeFeedLocal:
		feed = services.NewLocalChangeFeed()
	case ChangeFeedAMQP:
		feed, err = services.NewAMQPChangeFeed(cfg.ChangeFeed.AMQPURL, cfg.ChangeFeed.AMQPExchange)
	default:
		feed, err = services.NewPostgresChangeFeed(ctx, cfg.GetDatabaseDSN(), cfg.ChangeFeed.Channel)
	}
	if err != nil {
		closeAll()
		return nil, nil, fmt.Errorf("failed to open change feed: %w", err)
	}
	closers = append(closers, func() {
		if err := feed.Close(); err != nil {
			log.Printf("⚠️  Failed to close change feed: %v\n", err)
		}
	})

	log.Printf("✅ Document store ready (store=%s, change feed=%s)\n", cfg.Store.Driver, cfg.ChangeFeed.Driver)
	return services.NewDocumentStore(repo, feed), closeAll, nil
}
