package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"hwtimer/host/simulate"
)

var (
	simFormat string

	simCmd = &cobra.Command{
		Use:   "sim <scenario.toml>",
		Short: "Run a timer scenario on the simulated peripheral",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scenario, err := simulate.LoadScenario(args[0])
			if err != nil {
				return err
			}
			report, err := simulate.Run(scenario)
			if err != nil {
				return err
			}

			switch simFormat {
			case "text":
				return report.WriteText(os.Stdout)
			case "yaml":
				return report.WriteYAML(os.Stdout)
			}
			return fmt.Errorf("unknown format %q, expected text or yaml", simFormat)
		},
	}
)

func init() {
	simCmd.Flags().StringVarP(&simFormat, "format", "f", "text", "Report format: text or yaml")
}
