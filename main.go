package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dineflow/internal/api"
	"dineflow/internal/cache"
	"dineflow/internal/config"
	"dineflow/internal/database"
	"dineflow/internal/kafka"
	"dineflow/internal/logger"
	"dineflow/internal/otp"
	"dineflow/internal/payment"
	"dineflow/internal/store"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func main() {
	envErr := godotenv.Load()
	cfg := config.Load()

	log := logger.NewLogger(logger.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	defer log.Close()

	log.Info("APP", "Starting DineFlow API")
	if envErr != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bunDB, err := database.Connect(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
	}
	defer bunDB.Close()

	deps := api.Deps{
		Config: cfg,
		DB:     store.New(bunDB),
		Logger: log,
	}

	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn("REDIS", fmt.Sprintf("Redis unreachable at %s, continuing without cache: %v", cfg.Redis.Addr, err))
		} else {
			log.Info("REDIS", fmt.Sprintf("Connected to Redis at %s (DB %d)", cfg.Redis.Addr, cfg.Redis.DB))
			deps.Redis = cache.NewRedis(client, log)
		}
	}

	if cfg.Email.Enabled {
		deps.Email = otp.NewEmailNotifier(cfg.Email, log)
		log.Info("EMAIL", fmt.Sprintf("Sending mail through %s:%d", cfg.Email.SMTPHost, cfg.Email.SMTPPort))
	} else {
		log.Warn("EMAIL", "SMTP disabled, verification codes are written to the log")
	}

	if cfg.Stripe.SecretKey != "" {
		gateway, err := payment.NewStripeGateway(cfg.Stripe.SecretKey, log)
		if err != nil {
			log.Fatal("PAYMENT", fmt.Sprintf("Failed to set up Stripe: %v", err))
		}
		deps.Gateway = gateway
	} else {
		log.Warn("PAYMENT", "STRIPE_SECRET_KEY not set, card payments are disabled")
	}

	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, []string{cfg.Kafka.Topic}, log); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		}
		producer = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		defer producer.Close()
		deps.Events = producer
		log.Info("KAFKA", fmt.Sprintf("Publishing kitchen events to %s", cfg.Kafka.Topic))
	}

	h := api.New(deps)

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      h.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("HTTP", fmt.Sprintf("DineFlow API listening on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if producer != nil {
		// Every instance reads the shared topic so each one's kitchen screens
		// see orders placed through any other instance.
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID+"-"+hostname(), log)
		g.Go(func() error {
			defer consumer.Close()
			return consumer.Start(gctx, h.Kitchen.Emit)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("APP", "Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("APP", err.Error())
		return
	}
	log.Info("APP", "Server exited")
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil || name == "" {
		return "local"
	}
	return name
}
