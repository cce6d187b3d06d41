package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the kiln version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("kiln", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
