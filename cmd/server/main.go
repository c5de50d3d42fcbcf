package main

import (
	"log"
	"net/http"

	"codecourier/backend/internal/config"
	"codecourier/backend/internal/database"
	"codecourier/backend/internal/dispatch"
	"codecourier/backend/internal/githubapp"
	"codecourier/backend/internal/handlers"
	"codecourier/backend/internal/middleware"
	"codecourier/backend/internal/runner"
	"codecourier/backend/internal/store"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (ignore errors)
	_ = godotenv.Load()
	_ = godotenv.Load("../.env")

	cfg := config.Load()

	st, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer st.Close()

	githubClient := githubapp.New(cfg.AppID, cfg.PrivateKeyPEM,
		githubapp.WithBaseURL(cfg.GitHubAPIURL))

	runnerClient := runner.NewClient(cfg.RunnerURL, cfg.RunnerAPIKey)
	pool := runner.NewPool(runnerClient, st, cfg.RunnerWorkers)
	pool.Start()
	defer pool.Stop()

	dispatcher := dispatch.New(st, githubClient, pool)

	router := mux.NewRouter()
	router.Use(middleware.CORSMiddleware)

	// Dispatch
	dispatchHandler := handlers.NewDispatchHandler(dispatcher)
	router.HandleFunc("/api/dispatch", dispatchHandler.Dispatch).Methods("POST", "OPTIONS")
	router.HandleFunc("/api/installation-status/{owner}/{repo}", dispatchHandler.InstallationStatus).Methods("GET", "OPTIONS")

	// Executions (tracking records)
	executionsHandler := handlers.NewExecutionsHandler(st)
	router.HandleFunc("/api/executions", executionsHandler.ListExecutions).Methods("GET", "OPTIONS")
	router.HandleFunc("/api/executions/{id}", executionsHandler.GetExecution).Methods("GET", "OPTIONS")
	router.HandleFunc("/api/executions/{id}/watch", executionsHandler.WatchExecution).Methods("GET")

	// Repository directory
	repositoriesHandler := handlers.NewRepositoriesHandler(st)
	router.HandleFunc("/api/repositories", repositoriesHandler.ListRepositories).Methods("GET", "OPTIONS")
	router.HandleFunc("/api/repositories", repositoriesHandler.UpsertRepository).Methods("POST", "OPTIONS")
	router.HandleFunc("/api/repositories/{id}", repositoriesHandler.GetRepository).Methods("GET", "OPTIONS")

	// Health
	healthHandler := handlers.NewHealthHandler(st)
	router.HandleFunc("/api/healthz", healthHandler.Healthz).Methods("GET", "OPTIONS")

	log.Printf("Server starting on port %s (storage: %s, runner: %s)",
		cfg.Port, cfg.StorageBackend, cfg.RunnerURL)
	if err := http.ListenAndServe(":"+cfg.Port, router); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// openStore picks the storage backend configured for this deployment.
func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.StorageBackend {
	case "memory":
		log.Println("Using in-memory storage (records do not survive restarts)")
		return store.NewMemory(), nil
	default:
		db, err := database.New(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := db.RunMigrations(); err != nil {
			log.Printf("Warning: failed to run migrations: %v", err)
		}
		return store.NewPostgres(db), nil
	}
}
