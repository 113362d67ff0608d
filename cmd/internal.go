package cmd

import (
	"os"

	"github.com/josephlewis42/jobsh/core"
	"github.com/spf13/cobra"
)

// internalExecCmd sets up and runs a single member of a pipeline. The shell
// starts it, it isn't meant to be run by hand.
var internalExecCmd = &cobra.Command{
	Use:                core.ChildCommand + " [flags] -- command [args...]",
	Hidden:             true,
	DisableFlagParsing: true,
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(core.RunChild(args))
	},
}

func init() {
	rootCmd.AddCommand(internalExecCmd)
}
