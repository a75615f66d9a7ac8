package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/verid/facegate/internal/config"
)

var attemptsCmd = &cobra.Command{
	Use:   "attempts",
	Short: "List recent check-in attempts from the ledger",
	RunE:  runAttempts,
}

func init() {
	rootCmd.AddCommand(attemptsCmd)

	attemptsCmd.Flags().Int("limit", 50, "Maximum number of attempts to show")
	attemptsCmd.Flags().String("user", "", "Only show attempts for this user id")
}

func runAttempts(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	d, err := buildDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer d.close()

	limit, _ := cmd.Flags().GetInt("limit")
	userID, _ := cmd.Flags().GetString("user")

	attempts, err := listAttempts(ctx, d, userID, limit)
	if err != nil {
		return fmt.Errorf("listing attempts: %w", err)
	}

	if len(attempts) == 0 {
		fmt.Println("No attempts recorded.")
		return nil
	}

	for _, a := range attempts {
		identity := a.IdentityID
		if identity == "" {
			identity = "-"
		}
		fmt.Printf("%s  %-20s %-18s sim=%.2f live=%.2f dist=%.0fm",
			a.Timestamp.Format("2006-01-02 15:04:05"), identity, a.Outcome, a.Similarity, a.LivenessScore, a.DistanceMeters)
		if a.Reason != "" {
			fmt.Printf("  (%s)", a.Reason)
		}
		fmt.Println()
	}
	return nil
}
