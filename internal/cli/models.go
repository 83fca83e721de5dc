package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List available models",
		Run:   runModels,
	}

	RootCmd.AddCommand(cmd)
}

func runModels(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		exitErr("config", err)
	}
	reg, err := newRegistry(cfg)
	if err != nil {
		exitErr("models", err)
	}

	ds := reg.Descriptors()
	if textOutput() {
		for _, d := range ds {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", d.ID, d.Name)
		}
		return
	}
	printJSON(cmd, ds)
}
