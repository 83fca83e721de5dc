package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "learn [user] [bot]",
		Short: "Teach one exchange",
		Long:  "Teach the model that [user] should be answered with [bot]. Flags may be used instead of positional args.",
		Args:  cobra.MaximumNArgs(2),
		Run:   runLearn,
	}

	cmd.Flags().StringP("user", "u", "", "User utterance")
	cmd.Flags().StringP("bot", "b", "", "Reply to learn")

	RootCmd.AddCommand(cmd)
}

func runLearn(cmd *cobra.Command, args []string) {
	user, _ := cmd.Flags().GetString("user")
	bot, _ := cmd.Flags().GetString("bot")
	if len(args) > 0 {
		user = args[0]
	}
	if len(args) > 1 {
		bot = args[1]
	}
	if strings.TrimSpace(user) == "" {
		exitErr("learn", errors.New("user text is required"))
	}

	s, err := openSession(cmd)
	if err != nil {
		exitErr("open", err)
	}
	defer s.Close()

	id := s.engine.Learn(user, bot)
	if textOutput() {
		fmt.Fprintln(cmd.OutOrStdout(), id)
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"id":%d,"memory":%d}`+"\n", id, s.engine.Len())
}
