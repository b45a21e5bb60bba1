package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/wecombot/internal/wxcrypt"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a callback token and EncodingAESKey",
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := wxcrypt.GenerateToken()
		if err != nil {
			return err
		}
		aesKey, err := wxcrypt.GenerateAESKey()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "token:   %s\naes_key: %s\n", token, aesKey)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(keygenCmd)
}
