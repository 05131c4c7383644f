package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/airmencoders/tron-common-api-sub001/internal/config"
	"github.com/airmencoders/tron-common-api-sub001/internal/database"
	"github.com/airmencoders/tron-common-api-sub001/internal/handlers"
	"github.com/airmencoders/tron-common-api-sub001/internal/middleware"
	"github.com/airmencoders/tron-common-api-sub001/internal/services"
	"github.com/airmencoders/tron-common-api-sub001/internal/storage"
	"github.com/airmencoders/tron-common-api-sub001/pkg/logger"
	"github.com/airmencoders/tron-common-api-sub001/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	logger.Init()

	cfg := config.Load()
	utils.ConfigureJWT(cfg.JWT.Secret, cfg.JWT.ExpirationHours)

	db, err := database.Connect(cfg.DB)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	objectClient, err := storage.NewObjectClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("object storage initialization failed: %v", err)
	}
	if err := objectClient.EnsureBucket(context.Background()); err != nil {
		log.Fatalf("failed ensuring storage bucket: %v", err)
	}

	accessService := services.NewAccessService(db)
	collectionService := services.NewCollectionService(db)
	resolver := services.NewPathResolver(db)
	treeService := services.NewTreeService(db, objectClient, resolver, collectionService)
	auditService := services.NewAuditService(db, cfg.Audit.QueueSize)

	authHandler := handlers.NewAuthHandler(db, auditService)
	spacesHandler := handlers.NewDocumentSpacesHandler(db, accessService, treeService, auditService)
	foldersHandler := handlers.NewFoldersHandler(treeService, accessService, collectionService, auditService)
	filesHandler := handlers.NewFilesHandler(treeService, accessService, collectionService, auditService)
	favoritesHandler := handlers.NewFavoritesHandler(collectionService, accessService, auditService)

	authMiddleware := middleware.NewAuthMiddleware(db)

	app := fiber.New(fiber.Config{BodyLimit: cfg.Server.BodyLimit})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS())
	app.Use(middleware.RequestLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", authHandler.Register)
	authRoutes.Post("/login", authHandler.Login)
	authRoutes.Get("/me", authMiddleware.RequireAuth, authHandler.Me)

	spaceRoutes := api.Group("/document-space", authMiddleware.RequireAuth)
	spaceRoutes.Post("/", spacesHandler.Create)
	spaceRoutes.Get("/", spacesHandler.List)
	spaceRoutes.Delete("/:spaceId", spacesHandler.Delete)
	spaceRoutes.Post("/:spaceId/users", spacesHandler.GrantMember)
	spaceRoutes.Delete("/:spaceId/users/:userId", spacesHandler.RevokeMember)

	spaceRoutes.Post("/:spaceId/folders", foldersHandler.Create)
	spaceRoutes.Get("/:spaceId/contents", foldersHandler.Contents)
	spaceRoutes.Delete("/:spaceId/folders", foldersHandler.Delete)
	spaceRoutes.Patch("/:spaceId/folders/rename", foldersHandler.Rename)
	spaceRoutes.Get("/:spaceId/tree", foldersHandler.DumpTree)

	spaceRoutes.Post("/:spaceId/files/upload", filesHandler.Upload)
	spaceRoutes.Get("/:spaceId/files/download/single", filesHandler.DownloadSingle)
	spaceRoutes.Get("/:spaceId/files/download/all", filesHandler.DownloadAll)
	spaceRoutes.Get("/:spaceId/files/download", filesHandler.DownloadZip)
	spaceRoutes.Delete("/:spaceId/files/delete", filesHandler.Delete)
	spaceRoutes.Patch("/:spaceId/files/rename", filesHandler.Rename)

	spaceRoutes.Post("/:spaceId/collection/favorite/:entryId", favoritesHandler.Add)
	spaceRoutes.Delete("/:spaceId/collection/favorite/:entryId", favoritesHandler.Remove)
	spaceRoutes.Get("/:spaceId/collection/favorite", favoritesHandler.List)

	listenAddr := fmt.Sprintf(":%s", cfg.Server.Port)

	logger.Info("server_starting", map[string]interface{}{
		"port":    cfg.Server.Port,
		"address": listenAddr,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(listenAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Printf("shutting down server due to signal: %s", sig)
		shutdownDone := make(chan struct{})
		go func() {
			_ = app.Shutdown()
			close(shutdownDone)
		}()
		select {
		case <-shutdownDone:
		case <-time.After(10 * time.Second):
			log.Print("forced shutdown timeout reached")
		}
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server error: %v", err)
		}
	}
}
