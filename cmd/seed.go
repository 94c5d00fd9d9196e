package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tracelens/trace-console/internal/artifact"
	"github.com/tracelens/trace-console/internal/ingest"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Write a sample artifact dump into the artifact directory",
	Long: `Write sample SMS, call log, contact, and device dump files into the
configured artifact directory. Useful for local testing when no extraction
is available.`,
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	config := GetConfig()
	logger := log.New(cmd.OutOrStdout(), "[seed] ", log.LstdFlags)

	dir := config.Source.ArtifactDir
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create artifact dir: %w", err)
	}
	logger.Printf("Seeding sample dump into %s", dir)

	messages := []artifact.RawMessage{
		{Address: "+1 (555) 123-4567", Date: "2024-03-01T09:15:00Z", Type: "received", Body: "Your package is held at customs, pay the fee at http://pay-fee.example", IsSuspicious: true, Category: "fraud", SentimentEmoji: "😠"},
		{Address: "5551234567", Date: "2024-03-01T09:20:00Z", Type: "sent", Body: "Who is this?", Category: "normal"},
		{Address: "+1 (555) 987-6543", Date: "2024-03-02T14:05:00Z", Type: "received", Body: "Lunch tomorrow?", ContactName: "Alex Chen", Category: "normal", SentimentEmoji: "🙂"},
		{Address: "555-222-3333", Date: "2024-03-02T19:45:00Z", Type: "received", Body: "We know where you live", IsSuspicious: true, Category: "threat"},
		{Address: "", Date: "2024-03-03T08:00:00Z", Type: "received", Body: "Anonymous tip", Category: "normal"},
	}
	calls := []artifact.RawCall{
		{Number: "5551234567", Type: "incoming", Date: "2024-03-01T09:30:00Z", Duration: 42},
		{Number: "+1 (555) 987-6543", Type: "outgoing", Date: "2024-03-02T14:10:00Z", Duration: 180},
		{Number: "555-222-3333", Type: "missed", Date: "2024-03-02T20:00:00Z"},
		{Number: "5559876543", Type: "incoming", Date: "1709474400000", Duration: 65},
	}
	contacts := []artifact.RawContact{
		{Name: "Alex Chen", PhoneNumber: "+1 (555) 987-6543"},
		{Name: "Sam Rivera", PhoneNumber: "5551112222"},
	}

	files := map[string]interface{}{
		ingest.MessagesFile: messages,
		ingest.CallsFile:    calls,
		ingest.ContactsFile: contacts,
		ingest.DeviceFile:   map[string]string{"deviceName": "Pixel 7 (sample)"},
	}
	for name, payload := range files {
		data, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", name, err)
		}
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		logger.Printf("Wrote %s", path)
	}

	logger.Printf("Seeded %d messages, %d calls, %d contacts", len(messages), len(calls), len(contacts))
	return nil
}
