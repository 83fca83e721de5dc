package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "explain [text]",
		Short: "Show how an utterance would be answered",
		Long:  "Show the analysis of [text], the policy branch that answers it and the best scored exchanges.",
		Run:   runExplain,
	}

	cmd.Flags().IntP("top", "n", 5, "Candidates to show (0 for all)")

	RootCmd.AddCommand(cmd)
}

func runExplain(cmd *cobra.Command, args []string) {
	top, _ := cmd.Flags().GetInt("top")
	text, err := readInput(cmd, args)
	if err != nil {
		exitErr("explain", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		exitErr("explain", errors.New("text is required (positional arg or stdin)"))
	}

	s, err := openSession(cmd)
	if err != nil {
		exitErr("open", err)
	}
	defer s.Close()

	printJSON(cmd, s.engine.Explain(text, top))
}
