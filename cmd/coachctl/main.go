package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/maxicoach/backend/internal/knowledge"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "coachctl",
		Short:        "Maxi-Coach operator tool",
		Long:         "Inspect and exercise the Maxi-Coach knowledge bases and backing stores.",
		SilenceUsage: true,
	}

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newChatCmd())
	cmd.AddCommand(newFAQsCmd())
	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newCacheCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "coachctl %s (commit: %s)\n", Version, Commit)
		},
	}
}

// loadLibrary reads the knowledge bases from dir, or the embedded ones.
func loadLibrary(dir string) (*knowledge.Library, error) {
	if dir == "" {
		return knowledge.LoadDefault()
	}
	return knowledge.LoadDir(dir)
}

func parsePersona(s string) (knowledge.Persona, error) {
	p := knowledge.Persona(s)
	if !p.Valid() {
		return "", fmt.Errorf("unknown persona %q (want agent or lead)", s)
	}
	return p, nil
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
