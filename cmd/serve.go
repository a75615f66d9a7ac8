package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/verid/facegate/internal/config"
	"github.com/verid/facegate/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the check-in API server",
	Long: `Start the Facegate HTTP server.
The server exposes enrollment, detection, check-in and audit endpoints
backed by the configured stores and the face inference server.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	d, err := buildDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer d.close()

	if err := d.inference.Health(ctx); err != nil {
		fmt.Printf("Warning: inference server not reachable at %s: %v\n", cfg.Inference.URL, err)
		fmt.Printf("Enrollment and check-in will fail until it comes up\n")
	}

	server := web.NewServer(cfg, web.Deps{
		Pipeline:  d.engine,
		Detector:  d.inference,
		Scorer:    d.inference,
		Gate:      d.gate,
		Inference: d.inference,
		Templates: d.templates,
		Ledger:    d.ledger,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Facegate API on http://0.0.0.0:%d\n", cfg.Server.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
