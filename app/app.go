// Package app wires the deskgraph services together: database, cache, feed,
// knowledge graph, scanners, and the triage pipeline.
package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"deskgraph/cache"
	"deskgraph/config"
	"deskgraph/database"
	"deskgraph/feed"
	"deskgraph/graph"
	"deskgraph/ingest"
	"deskgraph/notifications"
	"deskgraph/scanner"
)

// App represents the main application
type App struct {
	config         *config.Config
	db             *database.Database
	rawDB          *database.DB
	redis          *cache.RedisClient
	repo           *database.KnowledgeRepository
	store          *graph.Store
	ingester       *ingest.Ingester
	webhookManager *notifications.WebhookManager
	feedManager    *feed.ConnectionManager
	batches        *BatchCache
	pipeline       *Pipeline
	schedulers     []*ScanScheduler
	auditRefresher *AuditRefresher
}

// New creates a new application instance
func New(cfg *config.Config) *App {
	return &App{
		config:  cfg,
		batches: &BatchCache{},
	}
}

// Start starts the application
func (a *App) Start() error {
	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. Database connections
	fmt.Println("🗄️  Connecting to database...")

	dbPort, err := strconv.Atoi(a.config.DatabasePort)
	if err != nil {
		return fmt.Errorf("invalid database port: %w", err)
	}

	db, err := database.Connect(
		a.config.DatabaseHost,
		dbPort,
		a.config.DatabaseName,
		a.config.DatabaseUser,
		a.config.DatabasePassword,
	)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	a.db = db

	rawDB, err := database.NewConnection(database.Config{
		Host:     a.config.DatabaseHost,
		Port:     a.config.DatabasePort,
		User:     a.config.DatabaseUser,
		Password: a.config.DatabasePassword,
		DBName:   a.config.DatabaseName,
	})
	if err != nil {
		log.Printf("⚠️  Raw connection for audit queries failed: %v", err)
	} else {
		a.rawDB = rawDB
	}

	// 2. Redis connection
	fmt.Println("🧠 Connecting to Redis...")
	redisClient := cache.NewRedisClient(
		a.config.RedisHost,
		a.config.RedisPort,
		a.config.RedisPassword,
	)

	if redisClient == nil {
		fmt.Println("⚠️  Redis connection failed. Caching disabled.")
	} else {
		a.redis = redisClient
	}

	// 3. Initialize schema (AutoMigrate + TimescaleDB setup)
	a.repo = database.NewKnowledgeRepository(a.db)
	if err := a.repo.InitSchema(); err != nil {
		return fmt.Errorf("schema initialization failed: %w", err)
	}

	// 4. Knowledge graph: restore persisted state, then enable write-through
	fmt.Println("🧠 Initializing knowledge graph...")
	a.store = graph.NewStore()
	a.store.SetQueryBounds(
		a.config.Graph.SearchLimit,
		a.config.Graph.MaxTraverseDepth,
		a.config.Graph.MaxTraverseNodes,
	)
	if err := a.repo.RestoreGraph(a.store); err != nil {
		return fmt.Errorf("graph restore failed: %w", err)
	}
	a.store.SetPersister(a.repo)
	a.ingester = ingest.NewIngester(a.store)

	// 5. Scanner configurations
	configs, err := scanner.LoadDir(a.config.ScannerConfigDir)
	if err != nil {
		return fmt.Errorf("failed to load scanner configs: %w", err)
	}
	if len(configs) == 0 {
		log.Printf("⚠️  No scanner configs found in %s", a.config.ScannerConfigDir)
	}

	// 6. Webhook manager and pipeline
	a.webhookManager = notifications.NewWebhookManager(a.repo, a.redis, a.store)
	if err := a.webhookManager.SyncDefaultWebhook(a.config.Webhook.URL, a.config.Webhook.Secret, a.config.Webhook.MinScore); err != nil {
		log.Printf("⚠️  Failed to sync default webhook: %v", err)
	}
	a.pipeline = NewPipeline(a.repo, a.ingester, a.webhookManager, a.batches, a.redis)

	// 7. Candidate feed
	var wg sync.WaitGroup
	if a.config.Feed.Enabled {
		a.feedManager = feed.NewConnectionManager(
			a.config.Feed.URL,
			a.config.Feed.APIToken,
			a.config.Feed.Channels,
		)
		if err := a.feedManager.Connect(); err != nil {
			return fmt.Errorf("candidate feed connection failed: %w", err)
		}
		a.feedManager.StartPing(25 * time.Second)

		wg.Add(1)
		go func() {
			defer wg.Done()
			a.feedManager.RunHealthMonitor(ctx)
		}()

		wg.Add(1)
		go func() {
			defer wg.Done()
			a.readAndCacheBatches(ctx)
		}()
	} else {
		log.Println("ℹ️  Candidate feed DISABLED")
	}

	// 8. Scan schedulers, one per scanner config
	log.Printf("🚀 Starting %d scanners...", len(configs))
	for _, cfg := range configs {
		evaluator, err := scanner.NewEvaluator(cfg)
		if err != nil {
			return fmt.Errorf("scanner %s: %w", cfg.Name, err)
		}
		sched := NewScanScheduler(a.pipeline, evaluator)
		a.schedulers = append(a.schedulers, sched)
		go sched.Start()
	}

	// 9. Provenance audit refresher
	a.auditRefresher = NewAuditRefresher(a.store, a.repo, a.rawDB)
	go a.auditRefresher.Start()

	// 10. Wait for interrupt and perform graceful shutdown
	err = a.gracefulShutdown(cancel)
	wg.Wait()
	return err
}

// readAndCacheBatches reads candidate batches from the feed into the cache
// the schedulers evaluate from.
func (a *App) readAndCacheBatches(ctx context.Context) {
	reconnectDelay := 5 * time.Second
	maxReconnectDelay := 60 * time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
			batch, err := a.feedManager.ReadBatch()
			if err != nil {
				select {
				case <-ctx.Done():
					return
				default:
					log.Printf("⚠️  Feed error: %v", err)
					log.Printf("🔄 Attempting to reconnect in %v...", reconnectDelay)

					select {
					case <-ctx.Done():
						return
					case <-time.After(reconnectDelay):
					}

					if err := a.feedManager.Reconnect(); err != nil {
						log.Printf("❌ Reconnection failed: %v", err)
						reconnectDelay = reconnectDelay * 2
						if reconnectDelay > maxReconnectDelay {
							reconnectDelay = maxReconnectDelay
						}
						continue
					}

					reconnectDelay = 5 * time.Second
					continue
				}
			}

			a.batches.Put(batch)
		}
	}
}

// gracefulShutdown handles graceful shutdown with timeout
func (a *App) gracefulShutdown(cancel context.CancelFunc) error {
	// Setup signal handling
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	// Wait for interrupt signal
	<-interrupt
	fmt.Println("\n🛑 Shutdown signal received, initiating graceful shutdown...")

	// Cancel context to stop all goroutines
	cancel()

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	shutdownComplete := make(chan struct{})
	go func() {
		for _, sched := range a.schedulers {
			sched.Stop()
		}
		fmt.Println("📊 Scanners stopped")

		if a.auditRefresher != nil {
			a.auditRefresher.Stop()
		}

		if a.feedManager != nil {
			fmt.Println("📡 Closing candidate feed connection...")
			if err := a.feedManager.Close(); err != nil {
				log.Printf("Error closing feed: %v", err)
			} else {
				fmt.Println("✅ Candidate feed closed")
			}
		}

		if a.db != nil {
			if err := a.db.Close(); err != nil {
				log.Printf("Error closing database: %v", err)
			} else {
				fmt.Println("✅ Database connection closed")
			}
		}

		if a.rawDB != nil {
			if err := a.rawDB.Close(); err != nil {
				log.Printf("Error closing raw connection: %v", err)
			}
		}

		if a.redis != nil {
			if err := a.redis.Close(); err != nil {
				log.Printf("Error closing redis: %v", err)
			} else {
				fmt.Println("✅ Redis connection closed")
			}
		}

		close(shutdownComplete)
	}()

	// Wait for shutdown to complete or timeout
	select {
	case <-shutdownComplete:
		fmt.Println("✅ Graceful shutdown completed")
		return nil
	case <-shutdownCtx.Done():
		fmt.Println("⚠️  Shutdown timeout exceeded, forcing exit")
		return fmt.Errorf("shutdown timeout")
	}
}
