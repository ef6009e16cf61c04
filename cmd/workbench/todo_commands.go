package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"workbench/internal/todo"
)

func newTodoCommand(ctx *commandContext) *cobra.Command {
	todoCmd := &cobra.Command{
		Use:   "todo",
		Short: "Edit the todo document",
		Long:  "Edit the todo document through the same file lock the server uses, so edits are safe while it runs.",
	}

	var jsonOutput bool
	workspacesCmd := &cobra.Command{
		Use:   "workspaces",
		Short: "List todo workspaces",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ctx.todoStore()
			if err != nil {
				return err
			}
			names, err := s.Workspaces()
			if err != nil {
				return err
			}
			if jsonOutput {
				if names == nil {
					names = []string{}
				}
				return writeJSON(cmd, names)
			}
			out := cmd.OutOrStdout()
			if len(names) == 0 {
				fmt.Fprintln(out, "No workspaces")
				return nil
			}
			for _, name := range names {
				fmt.Fprintln(out, name)
			}
			return nil
		},
	}
	workspacesCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	var tasksJSON bool
	tasksCmd := &cobra.Command{
		Use:   "tasks <workspace>",
		Short: "List tasks in a workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ctx.todoStore()
			if err != nil {
				return err
			}
			tasks, err := s.Tasks(args[0])
			if err != nil {
				return err
			}
			if tasksJSON {
				if tasks == nil {
					tasks = []todo.Task{}
				}
				return writeJSON(cmd, tasks)
			}
			out := cmd.OutOrStdout()
			if len(tasks) == 0 {
				fmt.Fprintf(out, "No tasks in %s\n", args[0])
				return nil
			}
			rows := make([][]string, 0, len(tasks))
			for i, task := range tasks {
				rows = append(rows, []string{strconv.Itoa(i), task.Title, task.Description})
			}
			fmt.Fprintln(out, renderTable([]column{{"#", alignRight}, {"Title", alignLeft}, {"Description", alignLeft}}, rows))
			return nil
		},
	}
	tasksCmd.Flags().BoolVar(&tasksJSON, "json", false, "Output as JSON")

	addWorkspaceCmd := &cobra.Command{
		Use:   "add-workspace <name>",
		Short: "Create a todo workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ctx.todoStore()
			if err != nil {
				return err
			}
			if err := s.AddWorkspace(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added workspace %s\n", args[0])
			return nil
		},
	}

	removeWorkspaceCmd := &cobra.Command{
		Use:   "remove-workspace <name>",
		Short: "Delete a todo workspace and its tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ctx.todoStore()
			if err != nil {
				return err
			}
			if err := s.RemoveWorkspace(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed workspace %s\n", args[0])
			return nil
		},
	}

	var description string
	addTaskCmd := &cobra.Command{
		Use:   "add-task <workspace> <title>",
		Short: "Append a task to a workspace",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ctx.todoStore()
			if err != nil {
				return err
			}
			if err := s.AddTask(cmd.Context(), args[0], args[1], description); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added task to %s\n", args[0])
			return nil
		},
	}
	addTaskCmd.Flags().StringVarP(&description, "description", "d", "", "Task description")

	removeTaskCmd := &cobra.Command{
		Use:   "remove-task <workspace> <index>",
		Short: "Delete the task at index",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid task index %q", args[1])
			}
			s, err := ctx.todoStore()
			if err != nil {
				return err
			}
			if err := s.RemoveTask(cmd.Context(), args[0], index); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed task %d from %s\n", index, args[0])
			return nil
		},
	}

	todoCmd.AddCommand(workspacesCmd, tasksCmd, addWorkspaceCmd, removeWorkspaceCmd, addTaskCmd, removeTaskCmd)
	return todoCmd
}
