package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/camden-git/labelsysbackend/config"
	"github.com/camden-git/labelsysbackend/database"
	"github.com/camden-git/labelsysbackend/handlers"
	"github.com/camden-git/labelsysbackend/importer"
	"github.com/camden-git/labelsysbackend/realtime"
	"github.com/camden-git/labelsysbackend/repository"
	"github.com/camden-git/labelsysbackend/workers"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Printf("Info: No .env file found or error loading: %v", err)
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	storagePaths := []string{cfg.PreviewsPath, filepath.Dir(cfg.DatabasePath)}
	for _, p := range storagePaths {
		log.Printf("Ensuring storage directory exists: %s", p)
		if err := os.MkdirAll(p, 0755); err != nil {
			log.Fatalf("FATAL: Failed to create storage directory %s: %v", p, err)
		}
	}

	db, err := database.InitGormDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize database: %v", err)
	}
	if err := database.AutoMigrateModels(db); err != nil {
		log.Fatalf("FATAL: Failed to migrate database schema: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("FATAL: Failed to access underlying database handle: %v", err)
	}
	defer sqlDB.Close()

	userRepo := repository.NewUserRepository(db)
	datasetRepo := repository.NewDatasetRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	imageRepo := repository.NewImageRepository(db)
	annotationRepo := repository.NewAnnotationRepository(db)

	adminUsername := os.Getenv("ADMIN_USERNAME")
	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminUsername != "" && adminPassword != "" {
		if err := userRepo.EnsureAdminUser(adminUsername, adminPassword); err != nil {
			log.Fatalf("FATAL: Failed to ensure admin user: %v", err)
		}
	}

	imp := importer.NewImporter(cfg, datasetRepo, imageRepo)

	log.Printf("Initializing preview worker pool (Workers: %d, Queue Size: %d)...", cfg.NumPreviewWorkers, cfg.PreviewQueueSize)
	previewGen := workers.NewPreviewGenerator(cfg, imageRepo, cfg.PreviewQueueSize, cfg.NumPreviewWorkers)
	previewGen.QueuePendingPreviews()

	hub := realtime.NewHub()
	go hub.Run()

	log.Printf("Using database: %s", cfg.DatabasePath)
	log.Printf("Storing previews in: %s", cfg.PreviewsPath)
	log.Printf("Preview max size (longest side): %dpx", cfg.PreviewMaxSize)

	authHandler := handlers.NewAuthHandler(userRepo, cfg)
	datasetHandler := handlers.NewDatasetHandler(datasetRepo, imp, previewGen)
	categoryHandler := handlers.NewCategoryHandler(categoryRepo)
	imageHandler := handlers.NewImageHandler(imageRepo, annotationRepo, hub)
	importHandler := handlers.NewImportHandler(imp, previewGen, hub)
	statsHandler := handlers.NewStatsHandler(sqlDB)

	requireAuth := handlers.AuthMiddleware(userRepo, []byte(cfg.JWTSecret))

	r := chi.NewRouter()

	corsOptions := cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173"}, //TODO: configurable
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	corsHandler := cors.New(corsOptions)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(corsHandler.Handler)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", authHandler.Login)
			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Get("/me", authHandler.Me)
				r.Group(func(r chi.Router) {
					r.Use(handlers.RequireAdmin)
					r.Post("/users", authHandler.CreateUser)
					r.Get("/users", authHandler.ListUsers)
				})
			})
		})

		r.Route("/images", func(r chi.Router) {
			// image bytes are served without auth so plain <img> tags work on the LAN
			r.Get("/{image_id}/file", imageHandler.ServeImageFile)
			r.Get("/{image_id}/preview", imageHandler.ServeImagePreview)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Get("/next/{dataset_id}", imageHandler.NextImage)
				r.Delete("/annotations/{annotation_id}", imageHandler.DeleteAnnotation)
				r.Get("/{image_id}", imageHandler.GetImage)
				r.Post("/{image_id}/save", imageHandler.SaveAnnotations)
				r.Get("/{image_id}/history", imageHandler.AnnotationHistory)
				r.Get("/{image_id}/annotations", imageHandler.ListAnnotations)
				r.Post("/{image_id}/annotations", imageHandler.CreateAnnotation)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Route("/datasets", func(r chi.Router) {
				r.Get("/", datasetHandler.ListDatasets)
				r.Get("/{dataset_id}", datasetHandler.GetDataset)
				r.Get("/{dataset_id}/progress", datasetHandler.GetProgress)

				r.Group(func(r chi.Router) {
					r.Use(handlers.RequireAdmin)
					r.Post("/", datasetHandler.CreateDataset)
					r.Post("/batch-import", importHandler.BatchImport)
					r.Put("/{dataset_id}", datasetHandler.UpdateDataset)
					r.Delete("/{dataset_id}", datasetHandler.DeleteDataset)
					r.Post("/{dataset_id}/scan", datasetHandler.ScanDataset)
				})
			})

			r.Route("/categories", func(r chi.Router) {
				r.Get("/dataset/{dataset_id}", categoryHandler.ListByDataset)

				r.Group(func(r chi.Router) {
					r.Use(handlers.RequireAdmin)
					r.Post("/", categoryHandler.CreateCategory)
					r.Post("/batch", categoryHandler.BatchCreateCategories)
					r.Post("/import-from-dataset/{dataset_id}", categoryHandler.ImportCategories)
					r.Put("/{category_id}", categoryHandler.UpdateCategory)
					r.Delete("/{category_id}", categoryHandler.DeleteCategory)
				})
			})

			r.Get("/stats/me", statsHandler.MyWorkStatistics)
		})
	})

	r.Get("/ws", hub.ServeWS)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	serverAddr := ":" + port
	fmt.Printf("Server starting on http://localhost:%s\n", port)
	log.Printf("Server listening on %s", serverAddr)
	server := &http.Server{
		Addr:        serverAddr,
		Handler:     r,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 120 * time.Second,
	}
	defer previewGen.Stop()
	log.Fatal(server.ListenAndServe())
}
