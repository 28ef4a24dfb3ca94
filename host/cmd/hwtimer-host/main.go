package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "hwtimer-host",
	Short:         "Host tools for the hardware timer firmware",
	SilenceUsage:  true,
}

func main() {
	rootCmd.AddCommand(monitorCmd, simCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
