package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mattn/go-tty"
	"github.com/spf13/cobra"

	"hwtimer/host/mcu"
	"hwtimer/host/serial"
)

var (
	monitorOpts = struct {
		config  string
		device  string
		console string
		timeout time.Duration
	}{}

	monitorCmd = &cobra.Command{
		Use:   "monitor",
		Short: "Interactive console for a connected timer firmware",
		Long: "Connect to the firmware over its serial link, send timer commands typed at the\n" +
			"console and print the trace events it streams back.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := monitorConfig(cmd)
			if err != nil {
				return err
			}

			m := mcu.NewMCU()
			if err := m.ConnectWithConfig(cfg); err != nil {
				return err
			}
			defer m.Close()

			console, err := openConsole(monitorOpts.console)
			if err != nil {
				return fmt.Errorf("failed to open console: %w", err)
			}
			defer console.Close()

			out := console.Output()
			fmt.Fprintf(out, "Connected to %s, type 'help' for commands\n", cfg.Device)
			go printEvents(out, m)
			return runConsole(console, out, m)
		},
	}
)

func init() {
	monitorCmd.Flags().StringVarP(&monitorOpts.config, "config", "c", "", "TOML serial port configuration")
	monitorCmd.Flags().StringVarP(&monitorOpts.device, "device", "d", "/dev/ttyACM0", "Serial device path, overrides the config file")
	monitorCmd.Flags().StringVar(&monitorOpts.console, "tty", "", "Console terminal device (default: controlling terminal)")
	monitorCmd.Flags().DurationVar(&monitorOpts.timeout, "timeout", time.Second, "Time to wait for each reply")
}

// monitorConfig merges the config file with command line flags
func monitorConfig(cmd *cobra.Command) (*serial.Config, error) {
	if monitorOpts.config == "" {
		return serial.DefaultConfig(monitorOpts.device), nil
	}
	cfg, err := serial.LoadConfig(monitorOpts.config)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("device") {
		cfg.Device = monitorOpts.device
	}
	return cfg, nil
}

func openConsole(device string) (*tty.TTY, error) {
	if device == "" {
		return tty.Open()
	}
	return tty.OpenDevice(device)
}

// printEvents echoes streamed trace events until the connection closes
func printEvents(out io.Writer, m *mcu.MCU) {
	for evt := range m.Events() {
		fmt.Fprintln(out, mcu.FormatEvent(evt))
	}
}

func runConsole(console *tty.TTY, out io.Writer, m *mcu.MCU) error {
	for {
		fmt.Fprint(out, "> ")
		line, err := console.ReadString()
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)

		switch line {
		case "":
			continue
		case "quit", "exit", "q":
			return nil
		case "help", "?":
			printHelp(out)
			continue
		}

		cmd, err := mcu.ParseLine(line)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		reply, err := m.Request(cmd, monitorOpts.timeout)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			if !m.IsConnected() {
				return err
			}
			continue
		}
		fmt.Fprintln(out, mcu.FormatReply(cmd, reply))
	}
}

func printHelp(out io.Writer) {
	fmt.Fprintln(out, "Available commands:")
	fmt.Fprintln(out, "  init <id> <1ms|32k>        - Configure a timer")
	fmt.Fprintln(out, "  schedule <id> <tick>       - Fire when the counter reaches tick")
	fmt.Fprintln(out, "  schedule_delay <id> <n>    - Fire n ticks from now")
	fmt.Fprintln(out, "  cancel <id>                - Disarm a timer")
	fmt.Fprintln(out, "  reset <id>                 - Zero the counter and disarm")
	fmt.Fprintln(out, "  query <id>                 - Show counter and state flags")
	fmt.Fprintln(out, "  dump                       - Dump the trace ring to the device display")
	fmt.Fprintln(out, "  quit/exit/q                - Exit")
}
