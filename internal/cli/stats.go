package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/teachbot/internal/engine"
	"github.com/rcliao/teachbot/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show model and database statistics",
		Run:   runStats,
	}

	cmd.Flags().IntP("top", "n", 10, "Archived tokens to show")

	RootCmd.AddCommand(cmd)
}

type statsOutput struct {
	Model engine.Stats `json:"model"`
	Store *store.Stats `json:"store,omitempty"`
}

func runStats(cmd *cobra.Command, args []string) {
	top, _ := cmd.Flags().GetInt("top")

	s, err := openSession(cmd)
	if err != nil {
		exitErr("open", err)
	}
	defer s.Close()

	out := statsOutput{Model: s.engine.Stats(top)}
	if db, ok := s.store.(*store.SQLiteStore); ok {
		out.Store, err = db.Stats(cmd.Context())
		if err != nil {
			exitErr("stats", err)
		}
	}
	printJSON(cmd, out)
}
