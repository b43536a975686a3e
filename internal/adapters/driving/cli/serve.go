package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/docsync/internal/adapters/driving/spool"
	"github.com/custodia-labs/docsync/internal/adapters/driving/webhook"
	"github.com/custodia-labs/docsync/internal/logger"
)

var (
	serveAddr        string
	serveSpoolDir    string
	serveNoScheduler bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the background indexing service",
	Long: `Starts the job dispatcher and every configured trigger:

  - the webhook endpoint (POST ` + webhook.EventsPath + `)
  - the spool directory watcher (<team>/<source_type>/<resource>.json|yaml)
  - scheduled tasks (index repair, workspace reload)

Runs until interrupted, then drains queued jobs before exiting.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "webhook listen address (default from config)")
	serveCmd.Flags().StringVar(&serveSpoolDir, "spool-dir", "", "spool directory to watch (default from config)")
	serveCmd.Flags().BoolVar(&serveNoScheduler, "no-scheduler", false, "do not run scheduled tasks")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	svc, err := services(cmd)
	if err != nil {
		return err
	}
	if svc.Dispatcher == nil {
		return errors.New("dispatcher not configured")
	}

	addr := svc.WebhookAddr
	if serveAddr != "" {
		addr = serveAddr
	}
	spoolDir := svc.SpoolDir
	if serveSpoolDir != "" {
		spoolDir = serveSpoolDir
	}

	var opts []webhook.HandlerOption
	if svc.Refresher != nil {
		opts = append(opts, webhook.WithRefresher(svc.Refresher))
	}
	handler, err := webhook.NewHandler(svc.Dispatcher, opts...)
	if err != nil {
		return err
	}

	var watcher *spool.Watcher
	if spoolDir != "" {
		watcher, err = spool.NewWatcher(spoolDir, svc.Dispatcher)
		if err != nil {
			return err
		}
	}

	svc.Dispatcher.Start(cmd.Context())
	defer svc.Dispatcher.Stop()

	g, ctx := errgroup.WithContext(cmd.Context())

	server := webhook.NewServer(addr, handler)
	g.Go(func() error {
		return server.Run(ctx)
	})
	cmd.Printf("Webhook listening on http://%s%s\n", addr, webhook.EventsPath)

	if watcher != nil {
		g.Go(func() error {
			return watcher.Run(ctx)
		})
		cmd.Printf("Watching spool directory %s\n", watcher.Root())
	}

	if svc.Scheduler != nil && !serveNoScheduler {
		g.Go(func() error {
			err := svc.Scheduler.Start(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
		g.Go(func() error {
			<-ctx.Done()
			return svc.Scheduler.Stop()
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	logger.Info("serve stopped, draining queue")
	return nil
}
