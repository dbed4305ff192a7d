// Package cli provides the peritoai command line interface.
package cli

import (
	"context"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/criskgl/peritoai/internal/core/ports/driving"
	"github.com/criskgl/peritoai/internal/logger"
)

// version is set at build time with -ldflags "-X .../cli.version=...".
var version = "dev"

// Services used by the commands. Nil services make their commands fail
// with a "not configured" error.
var (
	retrievalService driving.RetrievalService
	indexService     driving.IndexService
	settingsService  driving.SettingsService
	metricsHandler   http.Handler

	// setupErr explains why services are missing.
	setupErr error
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "peritoai",
	Short: "Ground claim decisions in insurance policies and coverage protocols",
	Long: `PeritoAI indexes insurance policies and internal coverage protocols and
retrieves the sections most relevant to a claim, grouped by document, ready
to be handed to a language model.

Start with 'peritoai index', then build context with
'peritoai context --doc POLIZA_HOGAR_GLOBAL --query "daños por agua"'.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print pipeline steps to stderr")
}

// Services groups the driving ports and handlers the commands depend on.
type Services struct {
	Retrieval driving.RetrievalService
	Index     driving.IndexService
	Settings  driving.SettingsService

	// Metrics is served at /metrics by 'mcp serve --port'.
	Metrics http.Handler

	// SetupErr is reported by commands whose service is nil.
	SetupErr error
}

// SetServices configures the services used by the commands.
func SetServices(s Services) {
	retrievalService = s.Retrieval
	indexService = s.Index
	settingsService = s.Settings
	metricsHandler = s.Metrics
	setupErr = s.SetupErr
}

func notConfigured(name string) error {
	if setupErr != nil {
		return fmt.Errorf("%s service not configured: %w", name, setupErr)
	}
	return fmt.Errorf("%s service not configured", name)
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
