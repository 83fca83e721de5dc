package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "compress",
		Short: "Fold old exchanges into the archive",
		Long:  "Keep only the newest exchanges and count the tokens of the evicted ones in the archive.",
		Run:   runCompress,
	}

	cmd.Flags().Int("keep", -1, "Exchanges to keep (default: model.max_keep or the model's limit)")

	RootCmd.AddCommand(cmd)
}

func runCompress(cmd *cobra.Command, args []string) {
	keep, _ := cmd.Flags().GetInt("keep")

	s, err := openSession(cmd)
	if err != nil {
		exitErr("open", err)
	}
	defer s.Close()

	before := s.engine.Len()
	s.engine.Compress(keep)
	st := s.engine.Stats(0)

	printJSON(cmd, map[string]any{
		"ok":              true,
		"evicted":         before - st.Memory,
		"memory":          st.Memory,
		"total_forgotten": st.TotalForgotten,
	})
}
