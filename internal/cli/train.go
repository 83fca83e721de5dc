package cli

import (
	"errors"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/teachbot/internal/trainer"
)

func init() {
	cmd := &cobra.Command{
		Use:   "train [file]",
		Short: "Teach many exchanges from text",
		Long: `Teach from [file] or stdin.

  lines      every non-blank line is taught as its own reply
  sentences  text is cut at 。．！？?! and every sentence is taught as its own reply
  pairs      "user<TAB>bot" per line; lines without a tab get --template as reply`,
		Args: cobra.MaximumNArgs(1),
		Run:  runTrain,
	}

	cmd.Flags().String("mode", string(trainer.ModeLines), "Split mode: lines, sentences, pairs")
	cmd.Flags().String("template", trainer.DefaultTemplate, "Reply template for pairs mode; {user} is replaced by the line")
	cmd.Flags().Bool("compress", false, "Compress memory after teaching")

	RootCmd.AddCommand(cmd)
}

func runTrain(cmd *cobra.Command, args []string) {
	modeStr, _ := cmd.Flags().GetString("mode")
	tmpl, _ := cmd.Flags().GetString("template")
	compress, _ := cmd.Flags().GetBool("compress")

	mode, err := trainer.ParseMode(modeStr)
	if err != nil {
		exitErr("train", err)
	}

	var raw string
	if len(args) == 1 {
		b, err := os.ReadFile(args[0])
		if err != nil {
			exitErr("read file", err)
		}
		raw = string(b)
	} else {
		raw, err = readInput(cmd, nil)
		if err != nil {
			exitErr("train", err)
		}
	}
	if strings.TrimSpace(raw) == "" {
		exitErr("train", errors.New("no text to learn (file arg or stdin)"))
	}

	pairs := trainer.Build(raw, mode, tmpl)
	if len(pairs) == 0 {
		exitErr("train", errors.New("no usable lines or sentences found"))
	}

	s, err := openSession(cmd)
	if err != nil {
		exitErr("open", err)
	}
	defer s.Close()

	ids := trainer.Teach(s.engine, pairs)
	if compress {
		s.engine.Compress(-1)
	}
	printJSON(cmd, map[string]any{
		"ok":      true,
		"mode":    mode,
		"learned": len(ids),
		"memory":  s.engine.Len(),
	})
}
