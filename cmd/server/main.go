package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/writervault/backend/internal/config"
	"github.com/writervault/backend/internal/db"
	httpHandlers "github.com/writervault/backend/internal/http/handlers"
	httpRouter "github.com/writervault/backend/internal/http/router"
	"github.com/writervault/backend/internal/logger"
	"github.com/writervault/backend/internal/repository"
	"github.com/writervault/backend/internal/service"
	"github.com/writervault/backend/internal/storage"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	// Инициализация логгера
	logLevel := "info"
	if cfg.Env == "development" {
		logLevel = "debug"
		logger.Init(logLevel)
		logger.SetTextFormatter()
	} else {
		logger.Init(logLevel)
	}

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		log.Fatalf("main: ошибка миграций: %v", err)
	}

	// Вспомогательные сервисы.
	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	coverStorage, err := storage.NewCoverStorage(cfg.MediaStoragePath, cfg.MaxUploadSizeMB)
	if err != nil {
		log.Fatalf("main: не удалось подготовить файловое хранилище: %v", err)
	}

	// Репозитории.
	userRepo := repository.NewUserRepository(dbConn)
	categoryRepo := repository.NewCategoryRepository(dbConn)
	articleRepo := repository.NewArticleRepository(dbConn)
	collectionRepo := repository.NewCollectionRepository(dbConn)
	statsRepo := repository.NewStatsRepository(dbConn)

	// Сервисы.
	emailService := service.NewEmailService(cfg.SMTP())
	authService := service.NewAuthService(userRepo, tokenManager)
	resetService := service.NewPasswordResetService(userRepo, emailService, cfg.ResetTokenTTL, cfg.FrontendBaseURL)
	userService := service.NewUserService(userRepo, statsRepo)
	categoryService := service.NewCategoryService(categoryRepo)
	articleService := service.NewArticleService(articleRepo, categoryRepo)
	collectionService := service.NewCollectionService(collectionRepo, articleRepo)

	// Роутер.
	engine := httpRouter.New(cfg, tokenManager, httpRouter.Handlers{
		Auth:       httpHandlers.NewAuthHandler(authService, resetService),
		Profile:    httpHandlers.NewProfileHandler(userService),
		Category:   httpHandlers.NewCategoryHandler(categoryService),
		Article:    httpHandlers.NewArticleHandler(articleService),
		Collection: httpHandlers.NewCollectionHandler(collectionService),
		Media:      httpHandlers.NewMediaHandler(coverStorage),
		Admin:      httpHandlers.NewAdminHandler(userService),
		Health:     httpHandlers.NewHealthHandler(dbConn),
	})

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: engine,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("main: ошибка остановки http сервера: %v", err)
		}
	}()

	log.Printf("main: HTTP сервер запущен на порту %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}
