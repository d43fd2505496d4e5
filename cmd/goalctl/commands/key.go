package commands

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/benvon/goalquest/internal/credentials"
	"github.com/benvon/goalquest/internal/services/ai"
)

func newKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "key",
		Short:       "Manage the AI provider key in the OS keyring",
		Long:        "Store, inspect or remove the OpenAI API key. The key stays on this device and is never printed in full.",
		Annotations: map[string]string{skipOpenAnnotation: "true"},
	}
	cmd.AddCommand(newKeySetCmd())
	cmd.AddCommand(newKeyDeleteCmd())
	cmd.AddCommand(newKeyStatusCmd())
	return cmd
}

func newKeySetCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "set",
		Short:       "Store the API key read from standard input",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipOpenAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprint(cmd.ErrOrStderr(), "OpenAI API key: ")
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("failed to read api key: %w", err)
			}
			if err := credentials.SetAPIKey(strings.TrimSpace(line)); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "API key stored in the OS keyring")
			return nil
		},
	}
}

func newKeyDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "delete",
		Short:       "Remove the API key from the OS keyring",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipOpenAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			err := credentials.DeleteAPIKey()
			if errors.Is(err, credentials.ErrNotFound) {
				fmt.Fprintln(cmd.OutOrStdout(), "No API key stored")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "API key removed")
			return nil
		},
	}
}

func newKeyStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "status",
		Short:       "Report where the API key comes from",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipOpenAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			key, source := credentials.Resolve(os.Getenv("OPENAI_API_KEY"))
			if source == credentials.SourceNone {
				fmt.Fprintln(out, "Not configured")
				if !credentials.IsAvailable() {
					fmt.Fprintln(out, "The OS keyring is unavailable; export OPENAI_API_KEY instead")
				}
				return nil
			}
			fmt.Fprintf(out, "Configured from %s (%s)\n", source, ai.SanitizeAPIKey(key))
			return nil
		},
	}
}
