package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rcliao/teachbot/internal/engine"
)

func init() {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the model on stdin",
		Long: `Read one utterance per line and print the reply.

  /teach <reply>   teach <reply> for the previous utterance
  /fix <reply>     correct the exchange behind the previous reply
  /quit            stop`,
		Run: runChat,
	}

	RootCmd.AddCommand(cmd)
}

func runChat(cmd *cobra.Command, args []string) {
	s, err := openSession(cmd)
	if err != nil {
		exitErr("open", err)
	}
	defer s.Close()

	if err := chatLoop(s, cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
		exitErr("chat", err)
	}
}

// chatLoop runs the REPL until EOF or /quit.
func chatLoop(s *session, in io.Reader, out io.Writer) error {
	sc := bufio.NewScanner(in)
	var last string
	var lastDecision engine.Decision

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
			continue
		case line == "/quit":
			return nil
		case strings.HasPrefix(line, "/teach "):
			if last == "" {
				fmt.Fprintln(out, "(nothing to teach: say something first)")
				continue
			}
			id := s.engine.Learn(last, strings.TrimSpace(strings.TrimPrefix(line, "/teach ")))
			fmt.Fprintf(out, "(learned #%d)\n", id)
		case strings.HasPrefix(line, "/fix "):
			if lastDecision.Match == nil {
				fmt.Fprintln(out, "(nothing to fix: the previous reply was not retrieved)")
				continue
			}
			id := lastDecision.Match.ID
			if s.engine.LearnCorrection(id, strings.TrimSpace(strings.TrimPrefix(line, "/fix "))) {
				fmt.Fprintf(out, "(corrected #%d)\n", id)
			}
		default:
			last = line
			lastDecision = s.engine.Decide(line)
			s.logger.Debug("chat", zap.String("branch", string(lastDecision.Branch)))
			fmt.Fprintln(out, lastDecision.Reply)
		}
	}
	return sc.Err()
}
