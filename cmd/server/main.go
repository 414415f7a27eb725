package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/careerpilot/careerpilot/internal/chat"
	"github.com/careerpilot/careerpilot/internal/config"
	"github.com/careerpilot/careerpilot/internal/db"
	"github.com/careerpilot/careerpilot/internal/docs"
	"github.com/careerpilot/careerpilot/internal/httpapi"
	"github.com/careerpilot/careerpilot/internal/httpapi/handlers"
	"github.com/careerpilot/careerpilot/internal/letters"
	"github.com/careerpilot/careerpilot/internal/models"
	"github.com/careerpilot/careerpilot/internal/resume"
	"github.com/careerpilot/careerpilot/internal/store/rabbitmq"
	"github.com/careerpilot/careerpilot/internal/store/redisstore"
)

func main() {
	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	gdb := db.Connect(cfg.DBDSN)
	if err := gdb.AutoMigrate(
		&models.User{},
		&resume.Resume{},
		&chat.Page{},
		&chat.Message{},
		&docs.Document{},
		&docs.Chunk{},
		&letters.GeneratedCoverLetter{},
		&letters.GenerationJob{},
	); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}

	rds, err := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer rds.Close()

	publisher, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
	if err != nil {
		log.Fatalf("rabbit: %v", err)
	}
	defer publisher.Close()

	objects, err := docs.NewMinioStore(cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey, cfg.MinIOUseSSL, cfg.MinIOBucket)
	if err != nil {
		log.Fatalf("minio: %v", err)
	}
	if err := objects.EnsureBucket(context.Background()); err != nil {
		log.Fatalf("minio bucket: %v", err)
	}

	r := httpapi.NewRouter(gdb, cfg, handlers.Collaborators{
		Objects:  objects,
		Queue:    publisher,
		Notifier: redisstore.NewNotifier(rds),
		Subs:     redisstore.NewSubscriptionStore(rds),
		Logger:   logger,
	})

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	logger.Info("server listening", "addr", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
