package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/wecombot/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Add a bot channel with an interactive wizard",
	Long:  `Runs an interactive wizard that generates a token and AES key for a new bot channel and writes it to the config file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
