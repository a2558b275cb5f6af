package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/odling/odling-api/src/config"
	"github.com/odling/odling-api/src/events"
	"github.com/odling/odling-api/src/lib"
	"github.com/odling/odling-api/src/server"
	"github.com/odling/odling-api/src/storage"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file loaded")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := lib.OpenDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	if err := lib.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	images, err := newImageStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize image store: %v", err)
	}

	publisher, err := newPublisher(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize event publisher: %v", err)
	}

	app := server.New(server.Deps{
		Config:    cfg,
		DB:        db,
		Images:    images,
		Publisher: publisher,
	})

	// Graceful shutdown handling
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down gracefully...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	log.Printf("Server is running on port %s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Printf("Server stopped: %v", err)
	}

	publisher.Close()
	if err := lib.CloseDatabase(db); err != nil {
		log.Printf("Failed to close database: %v", err)
	}
	log.Println("Server stopped")
}

func newImageStore(cfg *config.Config) (storage.ImageStore, error) {
	if cfg.ImageHost == "cloudinary" {
		return storage.NewCloudinaryStore(cfg.CloudinaryURL)
	}
	return storage.NewLocalStore(cfg.UploadDir)
}

func newPublisher(cfg *config.Config) (events.Publisher, error) {
	if cfg.NATSURL == "" {
		log.Println("NATS_URL not set, events are not published")
		return events.NopPublisher{}, nil
	}

	publisher, err := events.NewNATSPublisher(events.NATSConfig{
		URL:           cfg.NATSURL,
		Name:          "odling-api",
		MaxReconnects: 10,
		ReconnectWait: 2 * time.Second,
	})
	if err != nil {
		return nil, err
	}
	log.Println("NATS publisher initialized successfully")
	return publisher, nil
}
