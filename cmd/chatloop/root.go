package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "chatloop",
	Short: "Chatloop is a conversational state-machine dispatcher",
	Long:  `Chatloop routes chat messages through step handlers loaded from a JSON document and persists each conversation's state between messages.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	// Backend credentials (Redis, Mongo, Twilio) may live in a local .env.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
