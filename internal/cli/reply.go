package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "reply [text]",
		Short: "Answer an utterance",
		Long:  "Answer an utterance. Text can be a positional arg or piped via stdin.",
		Run:   runReply,
	}

	RootCmd.AddCommand(cmd)
}

func runReply(cmd *cobra.Command, args []string) {
	text, err := readInput(cmd, args)
	if err != nil {
		exitErr("reply", err)
	}

	s, err := openSession(cmd)
	if err != nil {
		exitErr("open", err)
	}
	defer s.Close()

	d := s.engine.Decide(strings.TrimSpace(text))
	if textOutput() {
		fmt.Fprintln(cmd.OutOrStdout(), d.Reply)
		return
	}
	printJSON(cmd, d)
}
