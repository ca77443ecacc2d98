package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/sekolahku/siswa-api/internal/config"
	"github.com/sekolahku/siswa-api/internal/database"
	"github.com/sekolahku/siswa-api/internal/handler"
	"github.com/sekolahku/siswa-api/internal/middleware"
	"github.com/sekolahku/siswa-api/internal/models"
	"github.com/sekolahku/siswa-api/internal/repository"
	"github.com/sekolahku/siswa-api/internal/router"
	"github.com/sekolahku/siswa-api/internal/service"
	"github.com/sekolahku/siswa-api/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.Student{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	gateway, err := buildStorage(cfg, logger)
	if err != nil {
		log.Fatalf("failed to create storage gateway: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	studentRepo := repository.NewStudentRepository(db)
	studentService := service.NewStudentService(studentRepo, gateway, validate, cfg.PageSize, logger)
	studentHandler := handler.NewStudentHandler(studentService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{
		Logger:           &logger,
		CORSAllowOrigins: cfg.CORSAllowOrigins,
	})
	router.Register(app, cfg, router.Dependencies{
		StudentHandler: studentHandler,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func buildStorage(cfg config.Config, logger zerolog.Logger) (storage.Gateway, error) {
	if cfg.StorageDriver == "cloudinary" {
		return storage.NewCloudinary(storage.CloudinaryConfig{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.StorageFolder,
		}, logger)
	}

	return storage.NewLocal(storage.LocalConfig{
		Root:    cfg.StorageRoot,
		BaseURL: cfg.StorageBaseURL,
		Folder:  cfg.StorageFolder,
	}, logger)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
