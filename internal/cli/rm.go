package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/teachbot/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "rm [key]",
		Short: "Delete a stored snapshot",
		Long:  "Delete a stored snapshot by storage key (see 'teachbot keys'). Irreversible.",
		Args:  cobra.ExactArgs(1),
		Run:   runRm,
	}

	RootCmd.AddCommand(cmd)
}

func runRm(cmd *cobra.Command, args []string) {
	key := args[0]

	st, _, err := openStore(cmd)
	if err != nil {
		exitErr("open", err)
	}
	defer st.Close()

	err = st.Delete(cmd.Context(), key)
	if errors.Is(err, store.ErrNotFound) {
		exitErr("rm", fmt.Errorf("no snapshot under %q", key))
	}
	if err != nil {
		exitErr("rm", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"key":%q}`+"\n", key)
}
