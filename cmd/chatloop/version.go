package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chatloop/chatloop"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of chatloop",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("chatloop version %s\n", chatloop.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
