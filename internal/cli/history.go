package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/rcliao/teachbot/internal/engine"
	"github.com/rcliao/teachbot/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List saved versions of a snapshot (sqlite only)",
		Run:   runHistory,
	}

	RootCmd.AddCommand(cmd)
}

func runHistory(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		exitErr("config", err)
	}
	key := cfg.Model.StorageKey
	if key == "" {
		key = engine.DefaultStorageKey(cfg.Model.ID)
	}

	st, _, err := openStore(cmd)
	if err != nil {
		exitErr("open", err)
	}
	defer st.Close()

	db, ok := st.(*store.SQLiteStore)
	if !ok {
		exitErr("history", errors.New("version history needs the sqlite backend"))
	}
	recs, err := db.History(cmd.Context(), key)
	if err != nil {
		exitErr("history", err)
	}
	printJSON(cmd, recs)
}
