package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	httpapi "apteka/internal/http"
	"apteka/internal/repository"
	"apteka/internal/service"

	_ "apteka/docs"
)

const (
	defaultAddr     = ":3001"
	defaultDBDriver = "sqlite"
	defaultDBDSN    = "pharmacy.db"
	dateLayout      = "2006-01-02"
)

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	addr := getenv("ADDR", defaultAddr)
	driver := getenv("DB_DRIVER", defaultDBDriver)
	dsn := getenv("DB_DSN", defaultDBDSN)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := sql.Open(driver, dsn)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	if driver == "sqlite" {
		// один писатель, иначе конкурирующие транзакции ловят SQLITE_BUSY
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping database: %v", err)
	}
	log.Printf("connected to %s database", driver)

	store := repository.NewSQLStore(db)
	if err := store.Migrate(ctx); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	if err := store.Seed(ctx, time.Now().UTC().Format(dateLayout)); err != nil {
		log.Fatalf("seed: %v", err)
	}

	ordersRepo := repository.NewSQLOrders(store)
	itemsRepo := repository.NewSQLItems(store)

	inventorySvc := service.NewInventoryService(store)
	ordersSvc := service.NewOrderService(store, ordersRepo, itemsRepo, store, store)
	simSvc := service.NewSimulationService(store, ordersRepo, itemsRepo, store, store, nil)

	srv := httpapi.NewServer(inventorySvc, ordersSvc, simSvc)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: srv.Engine(),
	}

	go func() {
		log.Printf("HTTP server listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
