package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/benvon/goalquest/internal/models"
)

func newCategoriesCmd() *cobra.Command {
	var title string
	cmd := &cobra.Command{
		Use:         "categories",
		Short:       "Show goal categories with examples and unit suggestions",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipOpenAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if title != "" {
				units := models.SuggestUnits(title)
				if units == nil {
					fmt.Fprintf(out, "No unit suggestions for %q\n", title)
					return nil
				}
				fmt.Fprintf(out, "Suggested units: %s\n", strings.Join(units, ", "))
				return nil
			}
			for _, tmpl := range models.CategoryTemplates() {
				fmt.Fprintf(out, "%s (%s)\n", tmpl.Category, tmpl.Color)
				fmt.Fprintf(out, "  %s\n", tmpl.Tips)
				fmt.Fprintf(out, "  Examples: %s\n", strings.Join(tmpl.Examples, "; "))
				fmt.Fprintf(out, "  Units:    %s\n", strings.Join(tmpl.Units, ", "))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "units-for", "", "suggest units for a goal title")
	return cmd
}
