package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maxicoach/backend/internal/knowledge"
)

func newFAQsCmd() *cobra.Command {
	var persona, dir string

	cmd := &cobra.Command{
		Use:   "faqs",
		Short: "List the top-level questions of a persona",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parsePersona(persona)
			if err != nil {
				return err
			}
			lib, err := loadLibrary(dir)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, q := range lib.For(p).Questions() {
				fmt.Fprintln(out, q)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&persona, "persona", string(knowledge.PersonaAgent), "coach persona: agent or lead")
	cmd.Flags().StringVar(&dir, "dir", "", "knowledge base directory (default: embedded)")
	return cmd
}
