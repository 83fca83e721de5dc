package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/teachbot/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Replace the model state from JSON",
		Long:  "Replace the model's state with a snapshot from [file] or stdin. Expects the format produced by export.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runImport,
	}

	cmd.Flags().Bool("lenient", false, "Accept snapshots missing top-level fields")

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	lenient, _ := cmd.Flags().GetBool("lenient")

	var data []byte
	var err error
	if len(args) == 1 {
		data, err = os.ReadFile(args[0])
	} else {
		data, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		exitErr("read snapshot", err)
	}

	if !lenient {
		if err := model.Validate(data); err != nil {
			exitErr("validate", err)
		}
	}

	s, err := openSession(cmd)
	if err != nil {
		exitErr("open", err)
	}
	defer s.Close()

	issues := s.engine.FromJSON(data)
	msgs := make([]string, 0, len(issues))
	for _, is := range issues {
		msgs = append(msgs, is.Error())
	}
	printJSON(cmd, map[string]any{
		"ok":       true,
		"imported": s.engine.Len(),
		"next_id":  s.engine.ToData().NextID,
		"issues":   msgs,
	})
	if len(issues) > 0 {
		fmt.Fprintf(os.Stderr, "warning: %d field(s) defaulted\n", len(issues))
	}
}
