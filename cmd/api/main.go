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

	"github.com/joho/godotenv"

	"github.com/DosAbicos/2tick-sub000/internal/config"
	"github.com/DosAbicos/2tick-sub000/internal/infrastructure/dynamo"
	jwtinfra "github.com/DosAbicos/2tick-sub000/internal/infrastructure/jwt"
	s3infra "github.com/DosAbicos/2tick-sub000/internal/infrastructure/s3"
	"github.com/DosAbicos/2tick-sub000/internal/infrastructure/smtp"
	"github.com/DosAbicos/2tick-sub000/internal/infrastructure/sns"
	"github.com/DosAbicos/2tick-sub000/internal/infrastructure/telegram"
	"github.com/DosAbicos/2tick-sub000/internal/infrastructure/voice"
	transporthttp "github.com/DosAbicos/2tick-sub000/internal/transport/http"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	// JWT provider (optional — graceful fallback if keys are missing).
	var jwtProvider *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		jwtProvider = p
	} else {
		log.Printf("WARN: JWT provider not available: %v", err)
	}

	// S3 snapshot store.
	s3Client := s3infra.NewClient(cfg)
	s3Store := s3infra.NewStore(s3Client, cfg.S3BucketName)

	// SMTP mailer.
	mailer := smtp.NewMailer(cfg)

	// SNS SMS sender (optional — graceful fallback).
	var smsSender sns.SMSSender
	if sender, err := sns.NewSender(cfg); err == nil {
		smsSender = sender
	} else {
		log.Printf("WARN: SNS sender not available: %v", err)
	}

	// Flash-call gateway (optional).
	var caller voice.Caller
	if c, err := voice.NewCaller(cfg); err == nil {
		caller = c
	} else {
		log.Printf("WARN: voice caller not available: %v", err)
	}

	// Telegram bot sender (optional).
	var botSender telegram.Sender
	if s, err := telegram.NewSender(cfg); err == nil {
		botSender = s
	} else {
		log.Printf("WARN: telegram sender not available: %v", err)
	}

	deps := &transporthttp.Deps{
		TemplateRepo:     dynamo.NewTemplateRepo(dynamoClient, cfg.DynamoTables.Templates),
		ContractRepo:     dynamo.NewContractRepo(dynamoClient, cfg.DynamoTables.Contracts),
		VerificationRepo: dynamo.NewVerificationRepo(dynamoClient, cfg.DynamoTables.Verifications),
		ChatLinkRepo:     dynamo.NewChatLinkRepo(dynamoClient, cfg.DynamoTables.ChatLinks),
		S3Store:          s3Store,
		Mailer:           mailer,
		SMSSender:        smsSender,
		Caller:           caller,
		BotSender:        botSender,
		JWTProvider:      jwtProvider,
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
