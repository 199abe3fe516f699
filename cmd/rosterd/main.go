package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "rosterd",
	Short: "Rosterd — Team Scheduling Backend",
	Long:  "Rosterd is the backend for team scheduling: invite-based onboarding, role-scoped team rosters, session planning with automatic RSVP lock-out, and attendance tracking.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: configs/rosterd.yaml)")
}

func main() {
	// Optional .env for local development; absence is not an error.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
