package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/maxicoach/backend/internal/coach"
	"github.com/maxicoach/backend/internal/knowledge"
)

const quitCommand = "/salir"

func newChatCmd() *cobra.Command {
	var (
		persona  string
		dictamen string
		gestion  string
		mora     string
		dir      string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to a coach persona from the terminal",
		Long:  "Runs the response selector locally against the knowledge base and prints what the coach would say. Type " + quitCommand + " to exit.",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parsePersona(persona)
			if err != nil {
				return err
			}
			lib, err := loadLibrary(dir)
			if err != nil {
				return err
			}
			state, err := coach.NewState(p).WithContext(dictamen, gestion, mora)
			if err != nil {
				return err
			}
			return runChat(cmd.InOrStdin(), cmd.OutOrStdout(), lib.For(p), state)
		},
	}

	cmd.Flags().StringVar(&persona, "persona", string(knowledge.PersonaAgent), "coach persona: agent or lead")
	cmd.Flags().StringVar(&dictamen, "dictamen", coach.DefaultDictamen, "case status filter")
	cmd.Flags().StringVar(&gestion, "gestion", coach.DefaultGestion, "contact channel")
	cmd.Flags().StringVar(&mora, "mora", coach.MoraLow, "days-overdue bucket")
	cmd.Flags().StringVar(&dir, "dir", "", "knowledge base directory (default: embedded)")
	return cmd
}

func runChat(in io.Reader, out io.Writer, kb *knowledge.KnowledgeBase, state coach.State) error {
	fmt.Fprintf(out, "coach: %s\n", coach.SpeechText(coach.DirectPayload{Text: kb.Initial}))

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == quitCommand {
			return nil
		}

		var reply coach.Reply
		reply, state = coach.Respond(line, state, kb)
		for _, p := range reply.Payloads {
			printPayload(out, p)
		}
	}
}

func printPayload(out io.Writer, p coach.Payload) {
	fmt.Fprintf(out, "coach: %s\n", coach.SpeechText(p))
	if s, ok := p.(coach.SurveyPayload); ok {
		for i, o := range s.Options {
			fmt.Fprintf(out, "  %d) %s\n", i+1, o.Text)
		}
	}
}
