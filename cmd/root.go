package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/wecombot/internal/config"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "wecombot",
	Short: "Encrypted WeCom bot callback server",
	Long: `wecombot terminates WeCom bot callbacks: it answers the callback URL
handshake, verifies and decrypts message callbacks, runs each text message
through a reply workflow and pushes the answer back to the chat.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultConfigFile, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
