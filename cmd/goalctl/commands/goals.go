package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/benvon/goalquest/internal/database"
	"github.com/benvon/goalquest/internal/ledger"
	"github.com/benvon/goalquest/internal/models"
)

func newGoalsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goals",
		Short: "Manage goals",
		Long:  "List, create, update and delete the goals kept on this device",
	}
	cmd.AddCommand(newGoalsListCmd(app))
	cmd.AddCommand(newGoalsAddCmd(app))
	cmd.AddCommand(newGoalsShowCmd(app))
	cmd.AddCommand(newGoalsProgressCmd(app))
	cmd.AddCommand(newGoalsToggleCmd(app))
	cmd.AddCommand(newGoalsDeleteCmd(app))
	cmd.AddCommand(newGoalsStatsCmd(app))
	cmd.AddCommand(newGoalsResetCmd(app))
	return cmd
}

func newGoalsListCmd(app *App) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List goals, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			goals, err := app.ledger.LoadGoals(cmd.Context(), LocalUserID)
			if err != nil {
				return ledgerError(err)
			}
			views := app.ledger.Views(goals)
			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, views)
			}
			if len(views) == 0 {
				fmt.Fprintln(out, "No goals yet. Use 'goalctl goals add' to create one.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tCATEGORY\tPROGRESS\tSTATUS\tSUB-TASKS")
			for _, v := range views {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d/%d\n",
					v.ID, v.Title, v.Category, formatProgress(v), v.Status, v.CompletedSubtasks, len(v.Subtasks))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print goals as JSON")
	return cmd
}

func newGoalsAddCmd(app *App) *cobra.Command {
	var (
		title, description, category, unit string
		start, end                         string
		target, current                    float64
		plan                               bool
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a goal",
		Long:  "Create a goal. With --plan the assistant drafts sub-tasks before the goal is saved.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			draft := models.GoalDraft{
				Title:        strings.TrimSpace(title),
				Description:  description,
				Category:     models.Category(strings.ToLower(strings.TrimSpace(category))),
				CurrentValue: current,
				Unit:         unit,
			}
			if draft.Category != "" && !draft.Category.Valid() {
				return fmt.Errorf("unknown category %q (see 'goalctl categories')", category)
			}
			if cmd.Flags().Changed("target") {
				draft.TargetValue = &target
			}
			var err error
			if draft.StartDate, err = parseDateFlag("start", start); err != nil {
				return err
			}
			if draft.EndDate, err = parseDateFlag("end", end); err != nil {
				return err
			}
			if err := ledger.ValidateDraft(&draft); err != nil {
				return err
			}

			if plan {
				subtasks, err := app.assistant.GenerateSubtasks(cmd.Context(), LocalUserID, draft)
				if err != nil {
					return assistantError(err)
				}
				draft.Subtasks = subtasks
			}

			goal, err := app.ledger.CreateGoal(cmd.Context(), LocalUserID, draft)
			if err != nil {
				return ledgerError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created goal %s\n", goal.ID)
			printGoal(cmd.OutOrStdout(), models.NewGoalView(*goal, app.ledger.Now()))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&title, "title", "", "goal title (required)")
	f.Float64Var(&target, "target", 0, "target value, greater than zero (required)")
	f.Float64Var(&current, "current", 0, "starting value")
	f.StringVar(&unit, "unit", "", "unit of measure, e.g. km")
	f.StringVar(&category, "category", "", "category (default personal)")
	f.StringVar(&description, "description", "", "why the goal matters")
	f.StringVar(&start, "start", "", "start date YYYY-MM-DD (default today)")
	f.StringVar(&end, "end", "", "deadline YYYY-MM-DD")
	f.BoolVar(&plan, "plan", false, "ask the assistant for sub-tasks")
	return cmd
}

func newGoalsShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <goal-id>",
		Short: "Show a goal with its sub-tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			goal, err := app.ledger.GetGoal(cmd.Context(), LocalUserID, args[0])
			if err != nil {
				return ledgerError(err)
			}
			printGoal(cmd.OutOrStdout(), models.NewGoalView(*goal, app.ledger.Now()))
			return nil
		},
	}
}

func newGoalsProgressCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "progress <goal-id> <value>",
		Short: "Set the current value of a goal",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid progress value %q", args[1])
			}
			goal, err := app.ledger.UpdateProgress(cmd.Context(), LocalUserID, args[0], value)
			if err != nil {
				return ledgerError(err)
			}
			view := models.NewGoalView(*goal, app.ledger.Now())
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%s)\n", view.Title, formatProgress(view), view.Status)
			return nil
		},
	}
}

func newGoalsToggleCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <goal-id> <number>",
		Short: "Mark a sub-task done or not done",
		Long:  "Flip completion of a sub-task. Sub-tasks are numbered from 1 as shown by 'goals show'.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[1])
			if err != nil || n < 1 {
				return fmt.Errorf("invalid sub-task number %q", args[1])
			}
			goal, err := app.ledger.ToggleSubtask(cmd.Context(), LocalUserID, args[0], n-1)
			if err != nil {
				return ledgerError(err)
			}
			s := goal.Subtasks[n-1]
			state := "open"
			if s.Completed {
				state = "done"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d. %s: %s\n", n, s.Title, state)
			return nil
		},
	}
}

func newGoalsDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <goal-id>",
		Short: "Delete a goal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.ledger.DeleteGoal(cmd.Context(), LocalUserID, args[0]); err != nil {
				return ledgerError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted goal %s\n", args[0])
			return nil
		},
	}
}

func newGoalsStatsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize goals by status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := app.ledger.Stats(cmd.Context(), LocalUserID)
			if err != nil {
				return ledgerError(err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Total:     %d\n", stats.Total)
			fmt.Fprintf(out, "Active:    %d\n", stats.Active)
			fmt.Fprintf(out, "Completed: %d\n", stats.Completed)
			fmt.Fprintf(out, "Overdue:   %d\n", stats.Overdue)
			fmt.Fprintf(out, "Sub-tasks: %d/%d done\n", stats.SubtasksCompleted, stats.SubtasksTotal)
			return nil
		},
	}
}

func newGoalsResetCmd(app *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every goal, including unreadable data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("reset deletes all goals; pass --yes to confirm")
			}
			if err := app.ledger.ResetGoals(cmd.Context(), LocalUserID); err != nil {
				return ledgerError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "All goals deleted")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	return cmd
}

// ledgerError turns ledger failures into messages a terminal user can act on
func ledgerError(err error) error {
	var loadErr *database.LoadError
	switch {
	case errors.Is(err, ledger.ErrGoalNotFound):
		return errors.New("goal not found (see 'goalctl goals list')")
	case errors.Is(err, ledger.ErrSubtaskNotFound):
		return errors.New("sub-task not found (see 'goalctl goals show')")
	case errors.As(err, &loadErr):
		return fmt.Errorf("stored goals cannot be read; run 'goalctl goals reset --yes' to start over: %w", err)
	default:
		return err
	}
}

func parseDateFlag(name, value string) (*models.Date, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	d, err := models.ParseDate(value)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s date %q: use YYYY-MM-DD", name, value)
	}
	return &d, nil
}

func formatProgress(v models.GoalView) string {
	return fmt.Sprintf("%s/%s %s (%.0f%%)",
		formatValue(v.CurrentValue), formatValue(v.TargetValue), v.Unit, v.Progress)
}

func formatValue(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func printGoal(w io.Writer, v models.GoalView) {
	fmt.Fprintf(w, "%s [%s]\n", v.Title, v.Category)
	if v.Description != "" {
		fmt.Fprintf(w, "  %s\n", v.Description)
	}
	fmt.Fprintf(w, "  Progress: %s\n", formatProgress(v))
	fmt.Fprintf(w, "  Status:   %s\n", v.Status)
	fmt.Fprintf(w, "  Started:  %s\n", v.StartDate)
	if v.EndDate != nil {
		fmt.Fprintf(w, "  Deadline: %s\n", v.EndDate)
	}
	if len(v.Subtasks) == 0 {
		return
	}
	fmt.Fprintf(w, "  Sub-tasks (%d/%d):\n", v.CompletedSubtasks, len(v.Subtasks))
	for _, s := range v.Subtasks {
		mark := " "
		if s.Completed {
			mark = "x"
		}
		fmt.Fprintf(w, "    %d. [%s] %s (due %s)\n", s.Index+1, mark, s.Title, s.TargetDate)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
