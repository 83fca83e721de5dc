package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "correct [id] [bot]",
		Short: "Replace the reply of a taught exchange",
		Args:  cobra.MinimumNArgs(2),
		Run:   runCorrect,
	}

	RootCmd.AddCommand(cmd)
}

func runCorrect(cmd *cobra.Command, args []string) {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		exitErr("parse id", err)
	}
	bot := strings.Join(args[1:], " ")

	s, err := openSession(cmd)
	if err != nil {
		exitErr("open", err)
	}
	defer s.Close()

	ok := s.engine.LearnCorrection(id, bot)
	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":%t,"id":%d}`+"\n", ok, id)
}
