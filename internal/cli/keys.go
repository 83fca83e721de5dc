package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rcliao/teachbot/internal/logging"
	"github.com/rcliao/teachbot/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "List stored snapshots",
		Run:   runKeys,
	}

	cmd.Flags().StringP("prefix", "p", "", "Only keys with this prefix")
	cmd.Flags().Bool("keys-only", false, "Only output key names")

	RootCmd.AddCommand(cmd)
}

// openStore opens the configured backend without loading a model.
func openStore(cmd *cobra.Command) (store.Store, *zap.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	st, err := store.Open(cfg.Store, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	return st, logger, nil
}

func runKeys(cmd *cobra.Command, args []string) {
	prefix, _ := cmd.Flags().GetString("prefix")
	keysOnly, _ := cmd.Flags().GetBool("keys-only")

	st, _, err := openStore(cmd)
	if err != nil {
		exitErr("open", err)
	}
	defer st.Close()

	recs, err := st.List(cmd.Context(), prefix)
	if err != nil {
		exitErr("keys", err)
	}

	if keysOnly || textOutput() {
		for _, r := range recs {
			fmt.Fprintln(cmd.OutOrStdout(), r.Key)
		}
		return
	}
	printJSON(cmd, recs)
}
