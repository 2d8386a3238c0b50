package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"google.golang.org/api/option"

	"github.com/ykawasaki/routine-to-do/internal/catalog"
	"github.com/ykawasaki/routine-to-do/internal/config"
	"github.com/ykawasaki/routine-to-do/internal/handlers"
	"github.com/ykawasaki/routine-to-do/internal/schedule"
	"github.com/ykawasaki/routine-to-do/internal/store"
	"github.com/ykawasaki/routine-to-do/internal/todolist"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	var st store.Store
	switch cfg.StoreDriver {
	case config.DriverMemory:
		log.Println("Using in-memory store")
		st = store.NewMemStore()
	default:
		var opts []option.ClientOption
		if cfg.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
		}
		client, err := store.NewClient(ctx, cfg.ProjectID, opts...)
		if err != nil {
			log.Fatalf("Failed to create Firestore store: %v", err)
		}
		defer client.Close()
		st = client
	}

	cat := catalog.New(st)
	todos := todolist.NewService(st)
	mat := schedule.NewMaterializer(st)

	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	handlers.NewCatalogHandler(cat).Register(e)
	handlers.NewTodoHandler(todos, mat, cat).Register(e)
	handlers.NewUserHandler(st).Register(e)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}
