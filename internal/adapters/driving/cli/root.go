// Package cli provides the docsync command-line interface.
//
// Commands drive the core services through the driving ports. The services
// are wired by main through a Builder, which runs once the global flags have
// been parsed.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docsync/internal/adapters/driving/webhook"
	"github.com/custodia-labs/docsync/internal/core/ports/driving"
	"github.com/custodia-labs/docsync/internal/logger"
)

// version is set at build time.
var version = "dev"

// Global flags.
var (
	verbose   bool
	dataDir   string
	configDir string
)

// JobRunner is a dispatcher whose worker pool the CLI starts and drains.
type JobRunner interface {
	driving.Dispatcher

	// Start launches the worker pool.
	Start(ctx context.Context)

	// Stop closes the queue and waits for queued jobs to finish.
	Stop()
}

// Services is the wired application the commands drive.
type Services struct {
	Indexer    driving.Indexer
	Dispatcher JobRunner
	Search     driving.ContextSearch
	Repairer   driving.Repairer

	// Loader and Refresher are nil when no Notion token is configured.
	Loader    driving.WorkspaceLoader
	Refresher webhook.Refresher

	// Scheduler is nil when scheduled tasks are disabled.
	Scheduler driving.Scheduler

	WebhookAddr string
	SpoolDir    string

	// Close releases stores. May be nil.
	Close func() error
}

// Options carries the global flag values to the Builder.
type Options struct {
	DataDir   string
	ConfigDir string
	Verbose   bool
}

// Builder wires Services.
type Builder func(ctx context.Context, opts Options) (*Services, error)

var (
	builder Builder
	app     *Services
)

// SetBuilder sets the function that wires services on first use.
func SetBuilder(b Builder) {
	builder = b
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "docsync",
	Short: "Keep a vector index in sync with a Notion workspace",
	Long: `docsync normalises Notion pages and databases into text, splits it into
overlapping chunks and keeps a local vector index consistent with the
workspace. Unchanged content is skipped by hash; shrunk or moved documents
have their stale chunks evicted.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (default ~/.docsync/data)")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "config directory (default ~/.docsync)")
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// Shutdown releases the services built during Execute.
func Shutdown() error {
	if app == nil || app.Close == nil {
		return nil
	}
	err := app.Close()
	app = nil
	return err
}

// services returns the wired application, building it on first use.
func services(cmd *cobra.Command) (*Services, error) {
	if app != nil {
		return app, nil
	}
	if builder == nil {
		return nil, errors.New("services not configured")
	}
	built, err := builder(cmd.Context(), Options{
		DataDir:   dataDir,
		ConfigDir: configDir,
		Verbose:   verbose,
	})
	if err != nil {
		return nil, err
	}
	app = built
	return app, nil
}
