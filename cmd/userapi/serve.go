package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/soypete/userapi/pkg/config"
	"github.com/soypete/userapi/pkg/database"
	"github.com/soypete/userapi/pkg/httpapi"
	"github.com/soypete/userapi/pkg/notify"
	"github.com/soypete/userapi/pkg/storage"
)

const shutdownTimeout = 10 * time.Second

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	httpLn, err := net.Listen("tcp", cfg.Server.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Server.Addr(), err)
	}
	notifyLn, err := net.Listen("tcp", cfg.Notify.Addr())
	if err != nil {
		httpLn.Close()
		return fmt.Errorf("failed to listen on %s: %w", cfg.Notify.Addr(), err)
	}

	return serve(ctx, cfg, storage.NewSQLUserStore(db.DB), httpLn, notifyLn)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := openDatabase(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Fprintf(cmd.OutOrStdout(), "✓ users table ready (%s)\n", db.Driver())
	return nil
}

// openDatabase opens the configured database and creates the schema if absent.
func openDatabase(ctx context.Context, cfg *config.Config) (*database.DB, error) {
	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// serve runs the HTTP API and the notification channel on their listeners
// until ctx is cancelled or either listener fails, then shuts both down.
func serve(ctx context.Context, cfg *config.Config, store storage.UserStore, httpLn, notifyLn net.Listener) error {
	api := httpapi.NewServer(cfg, store)
	notifier := notify.NewServer(cfg.Notify.Addr())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return api.Serve(httpLn) })
	g.Go(func() error { return notifier.Serve(notifyLn) })

	log.Printf("🚀 Server running on http://localhost:%d at timestamp %s",
		httpLn.Addr().(*net.TCPAddr).Port, time.Now().Format("1/2/2006, 3:04:05 PM"))
	log.Printf("📡 Notification channel on ws://localhost:%d", notifyLn.Addr().(*net.TCPAddr).Port)

	g.Go(func() error {
		<-gctx.Done()
		log.Println("🛑 Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		apiErr := api.Shutdown(shutdownCtx)
		notifyErr := notifier.Shutdown(shutdownCtx)
		if apiErr != nil {
			return apiErr
		}
		return notifyErr
	})

	return g.Wait()
}
