package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "slotcal",
	Short: "Slotcal — calendar slot booking service",
	Long:  "Slotcal is a booking service for calendar slots with capacity limits, per-user comments, attachable events, and JWT-based sessions.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: built-in defaults plus env)")
}

func main() {
	// Secrets come from the environment; a local .env is optional.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
