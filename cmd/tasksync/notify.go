package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/phrazzld/tasksync/internal/events"
	"github.com/phrazzld/tasksync/internal/notification"
	"github.com/phrazzld/tasksync/internal/platform/rabbitmq"
)

var errConsumerDisconnected = errors.New("consumer is not connected to the broker")

func (c *cli) notifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "notify",
		Short: "Consume task events and store notifications",
		Long: `Notify binds a durable queue to the task_events exchange and stores a
notification for every task event it receives. It serves /health, /readiness
and /metrics on the configured server port until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app := c.app
			ctx := cmd.Context()

			notifications, err := app.openNotificationStore(ctx)
			if err != nil {
				return err
			}

			handler, err := notification.NewHandler(notifications, app.logger)
			if err != nil {
				return fmt.Errorf("failed to create notification handler: %w", err)
			}

			dispatcher := events.NewDispatcher(app.logger)
			dispatcher.RegisterHandler(handler)

			consumer, err := rabbitmq.NewConsumer(
				app.config.Broker,
				app.config.Notifier,
				dispatcher,
				app.logger,
				app.brokerOptions...,
			)
			if err != nil {
				return fmt.Errorf("failed to create event consumer: %w", err)
			}

			router := newRouter(app.logger, app.registry,
				readinessCheck{Name: "store", Check: app.pingStore},
				readinessCheck{Name: "broker", Check: connectedCheck(consumer.Connected, errConsumerDisconnected)},
			)

			app.logger.Info("starting notification consumer",
				"queue", app.config.Notifier.Queue,
				"binding_keys", app.config.Notifier.BindingKeys,
				"workers", app.config.Notifier.Workers)

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return consumer.Run(ctx)
			})
			g.Go(func() error {
				return serveHTTP(ctx, app.config.Server.Port, router, app.logger)
			})
			return g.Wait()
		},
	}
}

func (c *cli) notificationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "Inspect stored notifications",
	}

	var (
		limit  int
		taskID string
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List the newest notifications",
		Long: `List prints the newest notifications. With --task it prints every
notification about that task instead, ignoring --limit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			notifications, err := c.app.openNotificationStore(cmd.Context())
			if err != nil {
				return err
			}

			var items []*notification.Notification
			if taskID != "" {
				items, err = notifications.ListByTask(cmd.Context(), taskID)
			} else {
				items, err = notifications.List(cmd.Context(), limit)
			}
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), items)
		},
	}
	list.Flags().IntVar(&limit, "limit", 20, "maximum number of notifications")
	list.Flags().StringVar(&taskID, "task", "", "only notifications about this task ID")

	read := &cobra.Command{
		Use:   "read <id>",
		Short: "Mark a notification as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			notifications, err := c.app.openNotificationStore(cmd.Context())
			if err != nil {
				return err
			}

			if err := notifications.MarkRead(cmd.Context(), args[0]); err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
				"id":   args[0],
				"read": true,
			})
		},
	}

	unread := &cobra.Command{
		Use:   "unread",
		Short: "Count unread notifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			notifications, err := c.app.openNotificationStore(cmd.Context())
			if err != nil {
				return err
			}

			n, err := notifications.CountUnread(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]int64{"unread": n})
		},
	}

	readAll := &cobra.Command{
		Use:   "read-all",
		Short: "Mark every unread notification as read",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			notifications, err := c.app.openNotificationStore(cmd.Context())
			if err != nil {
				return err
			}

			n, err := notifications.MarkAllRead(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]int64{"marked_read": n})
		},
	}

	remove := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a notification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			notifications, err := c.app.openNotificationStore(cmd.Context())
			if err != nil {
				return err
			}

			if err := notifications.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
				"id":      args[0],
				"deleted": true,
			})
		},
	}

	var olderThan time.Duration
	clearOld := &cobra.Command{
		Use:   "clear",
		Short: "Delete notifications older than --older-than",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if olderThan <= 0 {
				return errors.New("--older-than must be positive")
			}

			notifications, err := c.app.openNotificationStore(cmd.Context())
			if err != nil {
				return err
			}

			n, err := notifications.ClearOlderThan(cmd.Context(), c.now().Add(-olderThan))
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]int64{"deleted": n})
		},
	}
	clearOld.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "age after which notifications are deleted")

	cmd.AddCommand(list, read, readAll, unread, remove, clearOld)
	return cmd
}
