package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ca-recon-service/cmd/reconciler/config"
	"ca-recon-service/internal/reconciler"
	"ca-recon-service/internal/server"
)

// Flags for the serve command
var (
	servePort      int
	allowedOrigins []string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the reconciliation HTTP API",
	Long: `Serve starts an HTTP server exposing reconciliation as an API.

POST /api/v1/reconcile accepts a JSON body with an optional ledger path,
an optional payments file path, and an optional inline payments list; the
inline list takes precedence over the file. Every request runs an
independent reconciliation.

Examples:
  reconciler serve
  reconciler serve --port 9090
  reconciler serve --allowed-origins https://app.example.com`,

	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVar(&servePort, "port", 8080, "HTTP listen port")
	serveCmd.Flags().StringSliceVar(&allowedOrigins, "allowed-origins", nil, "comma-separated CORS origins (default: localhost dev origins)")

	viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("allowed-origins", serveCmd.Flags().Lookup("allowed-origins"))
}

func runServe(cmd *cobra.Command, args []string) error {
	matchConfig, err := config.CreateMatchConfig("default", config.MatchOverrides{
		AutoAcceptThreshold:  -1,
		SubstringThreshold:   -1,
		CombinationThreshold: -1,
	})
	if err != nil {
		return err
	}

	service, err := reconciler.NewReconciliationService(
		config.CreateLedgerParserConfig(),
		config.CreatePaymentParserConfig(),
		matchConfig,
		config.CreateReconcilerConfig(),
	)
	if err != nil {
		return fmt.Errorf("failed to create reconciliation service: %w", err)
	}

	serverConfig := server.DefaultConfig()
	serverConfig.Port = viper.GetInt("port")
	if origins := viper.GetStringSlice("allowed-origins"); len(origins) > 0 {
		serverConfig.AllowedOrigins = origins
	}

	srv, err := server.NewServer(serverConfig, service)
	if err != nil {
		return err
	}

	// Stop on SIGINT/SIGTERM, draining in-flight requests first.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
