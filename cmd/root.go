package cmd

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/musaddique333/Gatherly/internal/ui"
	"github.com/musaddique333/Gatherly/internal/version"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "gatherly",
	Short:   "Multi-party video rooms from your terminal, powered by WebRTC",
	Long:    `Gatherly is a command-line client for multi-party video rooms. It connects every participant directly over WebRTC in a full mesh, with text chat, mute and camera controls, and screen sharing, all coordinated through a lightweight signaling server.`,
	Version: version.Version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		os.Exit(0)
	}()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}
