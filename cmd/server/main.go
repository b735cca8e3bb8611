package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mailassist/config"
	contractsmq "mailassist/contracts/mq"
	"mailassist/internal/handler"
	"mailassist/internal/httpserver"
	"mailassist/internal/mqhandler"
	"mailassist/internal/repository"
	"mailassist/internal/service/agent"
	"mailassist/internal/service/chat"
	"mailassist/internal/service/ingest"
	"mailassist/internal/service/processor"
	"mailassist/internal/store"
	"mailassist/pkg/db"
	"mailassist/pkg/logger"
	"mailassist/pkg/mq"
	redisclient "mailassist/pkg/redis"
	"mailassist/pkg/util"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	emailReceivedQueue = "mailassist.email.received.q"
	batchLockTTL       = 30 * time.Minute
	dedupTTL           = time.Hour
	retryCounterTTL    = 24 * time.Hour
	maxRetries         = 3
)

func main() {
	issueFor := flag.String("issue-token", "", "print a bearer token for this subject and exit")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "lifetime of the token printed by -issue-token")
	flag.Parse()

	// 1. Load config
	cfg := config.Load()

	// 只签发 token，不启动服务
	if *issueFor != "" {
		if err := issueToken(os.Stdout, cfg.JWT.Secret, *issueFor, *tokenTTL); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	log := logger.NewLogger(cfg.Log.Level)
	defer log.Sync()

	log.Info("Starting mailassist...",
		zap.String("env", os.Getenv("CONFIG_ENV")),
		zap.String("store_driver", cfg.Store.Driver),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Redis（可选）：redis 存储、批处理锁、MQ 去重
	var rdb *redis.Client
	if cfg.Redis.Addr != "" || cfg.Store.Driver == "redis" {
		client := redisclient.NewRedisClient(cfg.Redis)
		if err := redisclient.Ping(ctx, client); err != nil {
			if cfg.Store.Driver == "redis" {
				log.Fatal("Redis required by store driver is unavailable", zap.Error(err))
			}
			log.Warn("Redis unavailable, continuing without distributed locks", zap.Error(err))
			client.Close()
		} else {
			log.Info("Redis connection established", zap.String("addr", cfg.Redis.Addr))
			rdb = client
			defer rdb.Close()
		}
	}

	// 3. Postgres（仅 postgres 存储使用）
	var dbConn *pgxpool.Pool
	if cfg.Store.Driver == "postgres" {
		var err error
		dbConn, err = db.NewConnection(cfg.DB, log)
		if err != nil {
			log.Fatal("DB initialization failed", zap.Error(err))
		}
		defer dbConn.Close()
	}

	// 4. Store
	persister, err := newPersister(ctx, cfg, dbConn, rdb)
	if err != nil {
		log.Fatal("Failed to init store persister", zap.Error(err))
	}
	st := store.NewMemoryStore(ctx, persister, log)

	// 5. MQ publisher（可选）
	var publisher *mq.Publisher
	var events processor.EventPublisher
	if cfg.MQ.URL != "" {
		publisher, err = mq.NewPublisher(cfg.MQ.URL)
		if err != nil {
			log.Warn("MQ publisher unavailable, email.processed events disabled", zap.Error(err))
		} else {
			defer publisher.Close()
			events = publisher
			log.Info("MQ publisher initialized")
		}
	}

	// 6. Services
	gateway := agent.NewGeminiClient(cfg.LLM, log)
	pipeline := processor.NewPipeline(st, gateway, events, log)

	var batchLock *util.Deduper
	if rdb != nil {
		batchLock = util.NewDeduperWithLogger(rdb, batchLockTTL, log)
	}
	runner := processor.NewRunner(ctx, pipeline, batchLock, log)
	chatService := chat.NewService(st, gateway, log)

	// 7. Seed data + watcher
	loader := ingest.NewLoader(cfg.Ingest.SeedPath, st, log)
	if _, err := loader.SeedIfEmpty(ctx); err != nil {
		log.Warn("Failed to load seed data", zap.String("path", cfg.Ingest.SeedPath), zap.Error(err))
	}
	go loader.Watch(ctx, cfg.Ingest.PollInterval)

	// 8. MQ consumer for email.received（可选）
	var consumer *mq.Consumer
	if publisher != nil {
		consumer, err = mq.NewConsumer(cfg.MQ.URL, emailReceivedQueue, contractsmq.RoutingKeyEmailReceived, log)
		if err != nil {
			log.Warn("MQ consumer unavailable", zap.Error(err))
		} else {
			defer consumer.Close()

			var deduper *util.Deduper
			var retries mqhandler.RetryCounter
			if rdb != nil {
				deduper = util.NewDeduperWithLogger(rdb, dedupTTL, log)
				retries = util.NewRetryCounter(rdb, retryCounterTTL)
			}
			receivedHandler := mqhandler.NewEmailReceivedHandler(st, pipeline, deduper, retries, maxRetries, log)
			consumer.SetHandler(receivedHandler.HandleEmailReceived)
			consumer.SetDLQ(publisher)

			go func() {
				if err := consumer.StartConsuming(); err != nil {
					log.Error("email.received consumer stopped", zap.Error(err))
				}
			}()
		}
	}

	// 9. HTTP server
	var ready func(ctx context.Context) error
	if p, ok := persister.(store.Pinger); ok {
		ready = p.Ping
	}
	router := httpserver.NewRouter(httpserver.Handlers{
		Email:   handler.NewEmailHandler(st, log),
		Prompt:  handler.NewPromptHandler(st, log),
		Draft:   handler.NewDraftHandler(st, log),
		Chat:    handler.NewChatHandler(chatService, log),
		Process: handler.NewProcessHandler(runner, pipeline, log),
		Ingest:  handler.NewIngestHandler(loader, log),
	}, httpserver.Options{
		JWTSecret: cfg.JWT.Secret,
		Ready:     ready,
		LLMState:  gateway.CircuitState,
		Logger:    log,
	})

	srv := &http.Server{
		Addr:    cfg.Server.Port,
		Handler: router.Engine,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// 优雅退出处理
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down mailassist gracefully...")

	if consumer != nil {
		consumer.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	// 停止种子文件轮询和后台批处理（当前邮件处理完后退出）
	cancel()
	runner.Wait()

	log.Info("mailassist shutdown complete")
}

// newPersister 根据 store.driver 选择快照持久化方式
func newPersister(ctx context.Context, cfg *config.Config, dbConn *pgxpool.Pool, rdb *redis.Client) (store.Persister, error) {
	switch cfg.Store.Driver {
	case "", "file":
		return store.NewFilePersister(cfg.Store.Path), nil
	case "memory":
		return store.NopPersister{}, nil
	case "postgres":
		repo := repository.NewSnapshotRepository(dbConn)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure snapshot schema: %w", err)
		}
		return repo, nil
	case "redis":
		return repository.NewSnapshotCache(rdb, cfg.Store.RedisKey), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
