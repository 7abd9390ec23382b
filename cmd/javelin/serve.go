package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/javelinrt/javelin/pkg/archive"
	"github.com/javelinrt/javelin/pkg/config"
	"github.com/javelinrt/javelin/pkg/server"
	"github.com/javelinrt/javelin/pkg/telemetry"
)

var (
	servePort int
	serveHost string

	// Finished runs older than this leave the in-memory table; the
	// archive keeps the durable copy.
	runRetention = 24 * time.Hour
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start a local HTTP server exposing the runtime API.

The server provides:
  - POST /api/run          submit a program, get a run id
  - GET  /api/events/{id}  SSE stream of run phases, GC, and violations
  - GET  /api/heap         heap and arena occupancy
  - POST /api/gc           force a collection cycle
  - POST /api/timetravel/* step the snapshot cursor
  - GET  /api/metrics      measured run aggregates
  - GET  /api/runs         archived run reports

Examples:
  javelin serve                    # Start on the configured port (8090)
  javelin serve --port 3000        # Start on a custom port
  javelin serve --host 0.0.0.0     # Listen on all interfaces`,
	RunE: runServe,
}

func init() {
	cfg := config.Global().Get()

	serveCmd.Flags().IntVarP(&servePort, "port", "p", cfg.Server.Port, "Port to listen on")
	serveCmd.Flags().StringVar(&serveHost, "host", cfg.Server.Host, "Host to bind to")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Global().Get()

	eng, err := buildEngine(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend, err := archive.NewBackend(ctx, cfg.Archive)
	if err != nil {
		return fmt.Errorf("archive backend: %w", err)
	}

	var exp *telemetry.Exporter
	if cfg.Telemetry.Enabled {
		exp = telemetry.NewExporter(telemetry.OTLPConfig{
			Endpoint:       cfg.Telemetry.Endpoint,
			ServiceVersion: version,
		})
		if err := exp.Init(ctx); err != nil {
			return fmt.Errorf("init telemetry: %w", err)
		}
		defer exp.Shutdown(context.Background())
	}

	srv, err := server.New(server.Options{
		Engine:      eng,
		Archive:     backend,
		Collector:   telemetry.NewCollector(),
		Exporter:    exp,
		CORSOrigins: cfg.Server.CORSOrigins,
	})
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", serveHost, servePort)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // Disable for SSE
		IdleTimeout:  120 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	url := fmt.Sprintf("http://%s:%d", serveHost, servePort)
	if serveHost == "0.0.0.0" || serveHost == "" {
		url = fmt.Sprintf("http://localhost:%d", servePort)
	}

	fmt.Println()
	fmt.Println("  ╭─────────────────────────────────────╮")
	fmt.Println("  │         JAVELIN SERVER              │")
	fmt.Println("  ├─────────────────────────────────────┤")
	fmt.Printf("  │  Local:   %-25s │\n", url)
	fmt.Printf("  │  Archive: %-25s │\n", backend.Name())
	fmt.Println("  │                                     │")
	fmt.Println("  │  Press Ctrl+C to stop               │")
	fmt.Println("  ╰─────────────────────────────────────╯")
	fmt.Println()

	// Expire finished runs from the in-memory table periodically.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := srv.Runs().Cleanup(runRetention); n > 0 && verbose {
					fmt.Fprintf(os.Stderr, "expired %d finished runs\n", n)
				}
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		cancel()
		httpServer.Shutdown(context.Background())
	}()

	errChan := make(chan error, 1)
	go func() {
		if err := httpServer.Serve(listener); err != http.ErrServerClosed {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		return nil
	}
}
