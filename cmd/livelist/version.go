package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/livelist"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of livelist",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("livelist version %s\n", livelist.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
