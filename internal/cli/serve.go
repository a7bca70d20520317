package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/revisitapp/revisit/internal/bookmarks"
	"github.com/revisitapp/revisit/internal/config"
	"github.com/revisitapp/revisit/internal/engine"
	"github.com/revisitapp/revisit/internal/logging"
	"github.com/revisitapp/revisit/internal/server"
	"github.com/revisitapp/revisit/internal/store"
)

var serveConfigPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to config file (default ~/.revisit/config.toml)")
}

// bookmarkSource builds the configured source. The REVISIT_BOOKMARKS env
// var overrides the configured path.
func bookmarkSource(cfg config.BookmarksConfig) (bookmarks.Source, error) {
	path := cfg.Path
	if env := os.Getenv("REVISIT_BOOKMARKS"); env != "" {
		path = env
	}
	if path == "" {
		return nil, fmt.Errorf("no bookmarks path configured; set bookmarks.path or REVISIT_BOOKMARKS")
	}

	switch cfg.Format {
	case "", "chrome":
		return &bookmarks.ChromeSource{Path: path}, nil
	case "netscape":
		return &bookmarks.NetscapeSource{Path: path}, nil
	default:
		return nil, fmt.Errorf("unknown bookmarks format %q", cfg.Format)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	godotenv.Load()

	cfg, err := config.Load(serveConfigPath)
	if err != nil {
		return err
	}

	if err := logging.Init(VersionString()); err != nil {
		fmt.Fprintf(os.Stderr, "warning: file logging disabled: %v\n", err)
	}
	defer logging.Close()

	dbPath := cfg.Database.Path
	if dbPath == "" {
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return fmt.Errorf("resolve db path: %w", err)
		}
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	source, err := bookmarkSource(cfg.Bookmarks)
	if err != nil {
		return err
	}

	eng := engine.NewWithOptions(db, source, engine.Options{
		SessionSize:  cfg.Cards.SessionSize,
		IconCapacity: cfg.Favicons.CacheCapacity,
		IconTTL:      time.Duration(cfg.Favicons.TTLDays) * 24 * time.Hour,
	})
	eng.Start()
	defer eng.Stop()

	srv := server.New(db, eng, VersionString())
	addr := cfg.ListenAddr()

	httpServer := &http.Server{
		Addr:    addr,
		Handler: srv,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		fmt.Fprintf(os.Stderr, "revisit serving on %s\n", addr)
		fmt.Fprintf(os.Stderr, "  db: %s\n", dbPath)
		logging.Info("serving", "addr", addr, "db", dbPath)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "server error: %v\n", err)
			os.Exit(1)
		}
	}()

	<-done
	fmt.Fprintln(os.Stderr, "\nshutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return httpServer.Shutdown(ctx)
}
