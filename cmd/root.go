package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "facegate",
	Short: "Face verification and check-in service",
	Long: `Facegate verifies identities from face images and records attendance
check-ins. An image is accepted only when it passes liveness checks, matches
an enrolled identity above the similarity threshold, and originates inside
the configured geofence, subject to a per-identity cooldown.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
