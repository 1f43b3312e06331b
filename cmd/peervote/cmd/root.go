// Package cmd contains the CLI commands for peervote.
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/peervote/internal/client"
)

var (
	// Used for flags
	cfgFile string
	apiURL  string
	verbose bool
	output  string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "peervote",
	Short: "peervote - vote on student projects",
	Long: `peervote is a command-line client for the student project voting API.

Sign in once, browse published projects, cast one vote per project,
and follow the leaderboard.

Examples:
  # Sign in (the password is prompted)
  peervote login --email alice@example.com

  # Search projects and vote
  peervote projects --search movie
  peervote vote 2

  # Watch the leaderboard
  peervote leaderboard --watch 10s

  # Run a local backend with demo data
  peervote devserver`,
	SilenceErrors: true,
	SilenceUsage:  true,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		PrintError(rootCmd.ErrOrStderr(), err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: "+defaultConfigPath()+")")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "API base URL (overrides config and $PEERVOTE_API_URL)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "output format (table, json)")
}

// IsVerbose returns whether verbose mode is enabled.
func IsVerbose() bool {
	return verbose
}

// GetOutput returns the output format.
func GetOutput() string {
	return output
}

// PrintError writes the user-facing form of err.
func PrintError(w io.Writer, err error) {
	fmt.Fprintln(w, "Error:", client.Message(err))
}

// stdin is swapped out in tests.
var stdin io.Reader = os.Stdin
