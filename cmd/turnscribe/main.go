package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/turnscribe/turnscribe/internal/bus"
	"github.com/turnscribe/turnscribe/internal/config"
	"github.com/turnscribe/turnscribe/internal/daemon"
	"github.com/turnscribe/turnscribe/internal/logging"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "turnscribe",
	Short: "Record speech and turn it into a speaker-attributed transcript",
}

func init() {
	rootCmd.AddCommand(
		serveCmd(),
		startCmd(),
		stopCmd(),
		cancelCmd(),
		statusCmd(),
		versionCmd(),
		quitCmd(),
		configureCmd(),
		transcribeCmd(),
	)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the recording daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := config.NewManager(nil)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			lc := manager.GetConfig().Logging
			log := logging.New(logging.Config{Level: lc.Level, JSON: lc.JSON})

			d, err := daemon.New(manager, log)
			if err != nil {
				return fmt.Errorf("create daemon: %w", err)
			}
			return d.Run()
		},
	}
}

func startCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start a recording session",
		RunE:  sendCmd(bus.CmdStart, "start recording"),
	}
}

func stopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop recording and transcribe",
		RunE:  sendCmd(bus.CmdFinish, "stop recording"),
	}
}

func cancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel",
		Short: "Abort the current session",
		RunE:  sendCmd(bus.CmdCancel, "cancel session"),
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current session state",
		RunE:  sendCmd(bus.CmdStatus, "get status"),
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the control protocol version",
		RunE:  sendCmd(bus.CmdVersion, "get version"),
	}
}

func quitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quit",
		Short: "Stop the daemon",
		RunE:  sendCmd(bus.CmdQuit, "stop daemon"),
	}
}

func sendCmd(b byte, action string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		resp, err := bus.SendCommand(b)
		if err != nil {
			return fmt.Errorf("failed to %s (is the daemon running?): %w", action, err)
		}
		fmt.Print(resp)
		return nil
	}
}
