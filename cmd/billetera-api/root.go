package main

import (
	"github.com/spf13/cobra"

	"github.com/billetera/billetera-api/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:          "billetera-api",
	Short:        "Backend for the billetera mobile app",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath,
		"dotenv file to load; the process environment is used when it does not exist")
}
