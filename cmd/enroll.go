package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/verid/facegate/internal/config"
	"github.com/verid/facegate/internal/engine"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <directory>",
	Short: "Bulk-enroll identities from a directory of face images",
	Long: `Enroll every image in a directory as an identity template.
The file name without extension becomes the user id (alice.jpg enrolls
"alice"). Each image goes through the full enrollment pipeline, so images
failing detection or liveness are reported and skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)
}

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

func runEnroll(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	d, err := buildDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer d.close()

	entries, err := os.ReadDir(args[0])
	if err != nil {
		return fmt.Errorf("reading directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if imageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			files = append(files, e.Name())
		}
	}
	if len(files) == 0 {
		fmt.Println("No images found.")
		return nil
	}

	fmt.Printf("Found %d images to enroll\n\n", len(files))

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetDescription("Enrolling"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("faces"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	var enrolled, skipped, failed int
	var failures []string
	for _, name := range files {
		userID := strings.TrimSuffix(name, filepath.Ext(name))

		image, err := os.ReadFile(filepath.Join(args[0], name))
		if err != nil {
			failed++
			failures = append(failures, fmt.Sprintf("%s: %v", name, err))
			bar.Add(1)
			continue
		}

		result, err := d.engine.Enroll(ctx, userID, userID, image)
		switch {
		case err != nil:
			failed++
			failures = append(failures, fmt.Sprintf("%s: %v", name, err))
		case result.Status != engine.EnrollOK:
			skipped++
			failures = append(failures, fmt.Sprintf("%s: %s", name, result.Reason))
		default:
			enrolled++
		}
		bar.Add(1)
	}
	fmt.Println()

	fmt.Printf("\nEnrolled: %d, skipped: %d, failed: %d\n", enrolled, skipped, failed)
	for _, f := range failures {
		fmt.Printf("  %s\n", f)
	}
	return nil
}
