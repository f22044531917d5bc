package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maxicoach/backend/internal/knowledge"
)

func newValidateCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load and validate the knowledge base files",
		Long:  "Parses agent.yaml and lead.yaml and checks every survey links to existing sub-answers.",
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := loadLibrary(dir)
			if err != nil {
				return fmt.Errorf("invalid knowledge base: %w", err)
			}

			out := cmd.OutOrStdout()
			source := dir
			if source == "" {
				source = "embedded"
			}
			fmt.Fprintf(out, "Knowledge base OK (%s)\n", source)
			for _, kb := range []*knowledge.KnowledgeBase{lib.Agent, lib.Lead} {
				fmt.Fprintf(out, "  %-5s %d questions, %d entries\n", kb.Persona, len(kb.Questions()), kb.Len())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "knowledge base directory (default: embedded)")
	return cmd
}
