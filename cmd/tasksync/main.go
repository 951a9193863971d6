// Package main implements the tasksync command line: task mutations that are
// persisted to the document store and announced on the task_events exchange,
// and the notify consumer that turns those events into notifications.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/phrazzld/tasksync/internal/config"
	"github.com/phrazzld/tasksync/internal/platform/logger"
	"github.com/phrazzld/tasksync/internal/redact"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()

	if err != nil {
		os.Exit(1)
	}
}

// run executes the command line in args with the production application.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	c := &cli{newApp: newApplication}
	return c.execute(ctx, args, stdout, stderr)
}

// cli carries state shared by every command: the config file flag and the
// application built once configuration is loaded.
type cli struct {
	configFile string
	newApp     func(cfg *config.Config, logger *slog.Logger) *application
	app        *application
	clock      func() time.Time
}

func (c *cli) now() time.Time {
	if c.clock != nil {
		return c.clock()
	}
	return time.Now()
}

// execute runs the root command and releases the application afterwards,
// whether or not the command succeeded.
func (c *cli) execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := c.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)

	if c.app != nil {
		c.app.cleanup()
	}
	if err != nil {
		fmt.Fprintln(stderr, "Error:", redact.String(err.Error()))
	}
	return err
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tasksync",
		Short: "Task store with lifecycle events on RabbitMQ",
		Long: `tasksync persists short text tasks to a document store and publishes a
task.<type> event to the task_events exchange after every mutation.

Configuration is read from an optional YAML file and TASKSYNC_* environment
variables, e.g. TASKSYNC_STORE_CONNECTION_STRING for store.connection_string.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}

	root.PersistentFlags().StringVarP(&c.configFile, "config", "c", "", "config file (YAML)")

	root.AddCommand(
		c.taskCmd(),
		c.notifyCmd(),
		c.notificationsCmd(),
	)
	return root
}

// setup loads configuration and logging before any subcommand runs. Logs go
// to stderr so that command output on stdout stays machine readable.
func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(c.configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.SetupWithWriter(cfg.Server, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	log.Debug("configuration loaded",
		"store_driver", cfg.Store.Driver,
		"broker_host", cfg.Broker.Host,
		"exchange", cfg.Broker.Exchange)

	c.app = c.newApp(cfg, log)
	return nil
}
