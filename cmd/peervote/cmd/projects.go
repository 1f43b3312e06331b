package cmd

import (
	"github.com/spf13/cobra"
)

var projectsSearch string

var projectsCmd = &cobra.Command{
	Use:     "projects",
	Aliases: []string{"ls"},
	Short:   "List published projects",
	Long: `List every published project with its vote count and whether you
have voted on it.

--search filters locally on name and description (case-insensitive);
the full list is always fetched.

Examples:
  peervote projects
  peervote projects --search movie
  peervote projects -o json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newAppContext(cmd.Context(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer app.Close()

		projects, err := app.Controller().LoadProjects(cmd.Context(), projectsSearch)
		if err != nil {
			return err
		}

		if GetOutput() == "json" {
			return printJSON(cmd.OutOrStdout(), projects)
		}
		printProjects(cmd.OutOrStdout(), projects)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(projectsCmd)

	projectsCmd.Flags().StringVarP(&projectsSearch, "search", "s", "", "filter by name or description")
}
