package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	cataloghttp "github.com/aimankhan01/grocery-backend/internal/catalog/http"
	"github.com/aimankhan01/grocery-backend/internal/catalog/repository"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	httpPort := getEnv("HTTP_PORT", "8082")
	dbPath := getEnv("SQLITE_PATH", "./catalog.db")
	migrationsPath := getEnv("MIGRATIONS_PATH", "./internal/catalog/repository/migrations")

	repo, err := repository.NewRepository(dbPath)
	if err != nil {
		log.Fatalf("Failed to open catalog database: %v", err)
	}
	defer repo.Close()

	if err := repo.RunMigrations(migrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Catalog migrations completed")

	catalogHandler := cataloghttp.NewCatalogHandler(repo)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/products", catalogHandler.ListProducts)
	r.Get("/products/search/shop", catalogHandler.SearchByShop)
	r.Get("/products/{product_id}", catalogHandler.GetProduct)
	r.Post("/products/add", catalogHandler.AddProduct)
	r.Delete("/products/remove", catalogHandler.RemoveProduct)
	r.Get("/shops", catalogHandler.ListShops)
	r.Post("/shops/add", catalogHandler.AddShop)
	r.Delete("/shops/remove", catalogHandler.RemoveShop)

	srv := &http.Server{
		Addr:         ":" + httpPort,
		Handler:      otelhttp.NewHandler(r, "product-service"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("product service listening on :%s", httpPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down product service...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("product service stopped")
}
