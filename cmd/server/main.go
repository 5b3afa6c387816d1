package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/honeynil/auth-service/internal/api"
	"github.com/honeynil/auth-service/internal/auth"
	"github.com/honeynil/auth-service/internal/config"
	"github.com/honeynil/auth-service/internal/handler"
	"github.com/honeynil/auth-service/internal/infrastructure/kafka"
	"github.com/honeynil/auth-service/internal/infrastructure/mail"
	"github.com/honeynil/auth-service/internal/infrastructure/redis"
	"github.com/honeynil/auth-service/internal/observability"
	core "github.com/honeynil/auth-service/internal/repository/postgres"
	service "github.com/honeynil/auth-service/internal/services"
	_ "github.com/lib/pq"
)

func main() {
	// Инициализируем логи, метрики, трейсы
	shutdown, _ := observability.Setup("auth-service")
	defer shutdown(context.Background())

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Подключаемся к Postgres
	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer db.Close()

	// Инициализируем зависимости
	accountRepo := core.NewPostgresAccountRepository(db)
	redisClient := redis.NewClient(cfg.RedisAddr)
	defer redisClient.Close()

	mailProducer := kafka.NewProducer(cfg.KafkaBrokers)
	defer mailProducer.Close()

	tokens, err := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTExpire)
	if err != nil {
		log.Fatalf("Failed to init token manager: %v", err)
	}
	revocations := auth.NewRevocationManager(redisClient)

	svc := service.NewAccountService(accountRepo, redisClient, mailProducer, tokens, revocations)

	// Настраиваем консьюмер почтовой очереди
	sender := mail.NewSMTPSender(cfg.SMTPAddr, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom)
	mailConsumer := kafka.NewMailConsumer(cfg.KafkaBrokers, "mail", "auth-service-mail", sender)
	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	go mailConsumer.Consume(consumerCtx)
	defer mailConsumer.Close()
	defer stopConsumer()

	// Настраиваем роутер
	h := handler.NewHandler(svc)
	router := api.SetupRouter(h, redisClient, tokens, revocations)

	// Запускаем сервер
	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}
	go func() {
		log.Printf("Starting server on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}
	log.Println("Server stopped")
}
