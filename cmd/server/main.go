package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"minibank/internal/config"
	"minibank/internal/handler"
	"minibank/internal/infrastructure/cache"
	"minibank/internal/infrastructure/database"
	"minibank/internal/infrastructure/lock"
	"minibank/internal/infrastructure/mq"
	"minibank/internal/job"
	"minibank/internal/repository"
	"minibank/internal/service"
	"minibank/pkg/idgen"
	"minibank/pkg/metrics"
	"minibank/pkg/token"
)

func main() {
	cfg := config.LoadConfig("config/config.yaml")

	idgen.Init(1)

	db := database.InitMySQL(&cfg.MySQL)
	redisClient := cache.InitRedis(&cfg.Redis)

	mq.InitKafka(&cfg.Kafka)
	defer mq.CloseKafka()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	userRepo := repository.NewUserRepository(db)
	accountRepo := repository.NewAccountRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	outboxRepo := repository.NewOutboxRepository(db)

	collector := metrics.NewCollector()
	locker := lock.NewRedisLocker(redisClient)
	denylist := cache.NewTokenDenylist(redisClient)
	tokens := token.NewManager(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLMins)*time.Minute)

	authService := service.NewAuthService(userRepo, accountRepo, tokens, denylist)
	transactionService := service.NewTransactionService(
		accountRepo,
		transactionRepo,
		outboxRepo,
		locker,
		collector,
		cfg.Kafka.Topic.TransactionEvents,
	)

	outboxSender := job.NewOutboxSender(outboxRepo, cfg.Kafka.MaxRetryCount)
	go outboxSender.Start(ctx)

	h := handler.NewHandler(authService, transactionService)
	authRequired := handler.AuthRequired(tokens, denylist, accountRepo)
	router := handler.SetupRouter(h, authRequired, collector.Handler())

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("server listening on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	log.Println("server stopped")
}
