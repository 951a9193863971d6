package main

import (
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phrazzld/tasksync/internal/service"
)

// writeJSON prints v as indented JSON followed by a newline.
func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) taskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Create, read, update and delete tasks",
		Long: `Task commands write to the document store and, once the write succeeds,
publish one event per mutation. Publishing failures are logged but never fail
the command.`,
	}

	cmd.AddCommand(
		c.taskCreateCmd(),
		c.taskListCmd(),
		c.taskGetCmd(),
		c.taskUpdateCmd(),
		c.taskCompleteCmd(),
		c.taskDeleteCmd(),
	)
	return cmd
}

func (c *cli) taskCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <description>",
		Short: "Create a task and publish task.created",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.app.openTaskService(cmd.Context())
			if err != nil {
				return err
			}

			task, err := svc.CreateTask(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), task)
		},
	}
}

func (c *cli) taskListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := c.app.openTaskService(cmd.Context())
			if err != nil {
				return err
			}

			tasks, err := svc.ListTasks(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), tasks)
		},
	}
}

func (c *cli) taskGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.app.openTaskService(cmd.Context())
			if err != nil {
				return err
			}

			task, err := svc.GetTask(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), task)
		},
	}
}

func (c *cli) taskUpdateCmd() *cobra.Command {
	var (
		description string
		completed   bool
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a task and publish task.updated or task.completed",
		Long: `Update replaces the stored task with the given fields changed. The event
is task.completed when the saved task is completed, task.updated otherwise.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var params service.UpdateTaskParams
			if cmd.Flags().Changed("description") {
				params.Description = &description
			}
			if cmd.Flags().Changed("completed") {
				params.IsCompleted = &completed
			}
			if params.Description == nil && params.IsCompleted == nil {
				return errors.New("nothing to update: set --description or --completed")
			}

			svc, err := c.app.openTaskService(cmd.Context())
			if err != nil {
				return err
			}

			task, err := svc.UpdateTask(cmd.Context(), args[0], params)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), task)
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "new description")
	cmd.Flags().BoolVar(&completed, "completed", false, "completion state")
	return cmd
}

func (c *cli) taskCompleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "complete <id>",
		Short: "Mark a task completed and publish task.completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.app.openTaskService(cmd.Context())
			if err != nil {
				return err
			}

			completed := true
			task, err := svc.UpdateTask(cmd.Context(), args[0], service.UpdateTaskParams{IsCompleted: &completed})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), task)
		},
	}
}

func (c *cli) taskDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task and publish task.deleted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.app.openTaskService(cmd.Context())
			if err != nil {
				return err
			}

			if err := svc.DeleteTask(cmd.Context(), args[0]); err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
				"id":      args[0],
				"deleted": true,
			})
		},
	}
}
