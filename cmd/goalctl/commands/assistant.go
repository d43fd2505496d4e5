package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/benvon/goalquest/internal/models"
	"github.com/benvon/goalquest/internal/services/ai"
)

// setupHint explains how to configure the assistant without exposing where the key goes
const setupHint = "the AI assistant needs an OpenAI API key: run 'goalctl key set' or export OPENAI_API_KEY"

func newChatCmd(app *App) *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   "chat <message>",
		Short: "Ask the assistant about your goals",
		Long:  "Send one message to the assistant with your goals as context. With --save a goal proposed in the reply is created.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if !app.assistant.Configured() {
				fmt.Fprintln(out, ai.WelcomeMessage(app.name, false))
				return errors.New(setupHint)
			}

			goals := app.ledger.ListGoals(cmd.Context(), LocalUserID)
			reply, err := app.assistant.SendChatMessage(cmd.Context(), app.user(), goals, strings.Join(args, " "))
			if err != nil {
				return assistantError(err)
			}
			fmt.Fprintln(out, reply.Message)
			if reply.Fallback {
				return nil
			}

			draft, err := ai.ExtractGoalDraft(reply.Message)
			if err != nil {
				return nil
			}
			if !save {
				fmt.Fprintf(out, "\nThe reply proposes the goal %q. Re-run with --save to create it.\n", draft.Title)
				return nil
			}
			goal, err := app.ledger.CreateGoal(cmd.Context(), LocalUserID, *draft)
			if err != nil {
				return ledgerError(err)
			}
			fmt.Fprintf(out, "\nCreated goal %s\n", goal.ID)
			return nil
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "create the goal proposed in the reply")
	return cmd
}

func newSubtasksCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "subtasks <goal-id>",
		Short: "Generate sub-tasks for a goal that has none",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			goal, err := app.ledger.GetGoal(ctx, LocalUserID, args[0])
			if err != nil {
				return ledgerError(err)
			}
			if len(goal.Subtasks) > 0 {
				return fmt.Errorf("goal %s already has %d sub-tasks", goal.ID, len(goal.Subtasks))
			}

			subtasks, err := app.assistant.GenerateSubtasks(ctx, LocalUserID, models.DraftFromGoal(goal))
			if err != nil {
				return assistantError(err)
			}
			goal, err = app.ledger.AttachSubtasks(ctx, LocalUserID, goal.ID, subtasks)
			if err != nil {
				return ledgerError(err)
			}
			printGoal(cmd.OutOrStdout(), models.NewGoalView(*goal, app.ledger.Now()))
			return nil
		},
	}
}

func assistantError(err error) error {
	switch {
	case errors.Is(err, ai.ErrSetupRequired):
		return errors.New(setupHint)
	case errors.Is(err, ai.ErrQuotaExceeded):
		return errors.New("the AI provider quota is exhausted; check the account billing before retrying")
	case errors.Is(err, ai.ErrRateLimited):
		return errors.New("the AI provider is rate limiting requests; try again in a minute")
	case errors.Is(err, ai.ErrGenerationFailed):
		return errors.New("the assistant could not generate sub-tasks; try again in a moment")
	default:
		return err
	}
}
