package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	confirmReset bool
	resetRedis   bool
	resetDB      bool
)

// resetCmd represents the reset command
var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset Redis data and/or the report database",
	Long: `Reset command clears Redis stream data and/or the SQLite report database.

By default, both Redis and the database are reset. You can selectively reset
only Redis or only the database using the --redis-only or --db-only flags.

WARNING: This operation is irreversible and will permanently delete all saved
reports and the audit trail.

Examples:
  # Reset both Redis and database (requires confirmation)
  trace-console reset

  # Reset with automatic confirmation
  trace-console reset --yes

  # Reset only Redis data
  trace-console reset --redis-only

  # Reset only database
  trace-console reset --db-only`,
	RunE: runReset,
}

func init() {
	rootCmd.AddCommand(resetCmd)

	resetCmd.Flags().BoolVarP(&confirmReset, "yes", "y", false, "Automatically confirm reset operation")
	resetCmd.Flags().BoolVar(&resetRedis, "redis-only", false, "Reset only Redis data")
	resetCmd.Flags().BoolVar(&resetDB, "db-only", false, "Reset only database")
}

func runReset(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	resetBoth := !resetRedis && !resetDB
	if resetBoth {
		resetRedis = true
		resetDB = true
	}

	var targets []string
	if resetRedis {
		targets = append(targets, "Redis data")
	}
	if resetDB {
		targets = append(targets, "report database")
	}
	fmt.Printf("This will permanently delete: %s\n", strings.Join(targets, " and "))

	if !confirmReset {
		fmt.Print("Are you sure you want to continue? (y/N): ")
		var response string
		fmt.Scanln(&response)
		if strings.ToLower(response) != "y" && strings.ToLower(response) != "yes" {
			fmt.Println("Reset operation cancelled.")
			return nil
		}
	}

	if resetRedis {
		if err := resetRedisData(ctx); err != nil {
			if !resetDB {
				return fmt.Errorf("failed to reset Redis data: %w", err)
			}
			fmt.Printf("Warning: Failed to reset Redis data: %v\n", err)
		} else {
			fmt.Println("Redis data cleared")
		}
	}

	if resetDB {
		if err := resetDatabase(); err != nil {
			return fmt.Errorf("failed to reset database: %w", err)
		}
		fmt.Println("Report database cleared")
	}

	return nil
}

func resetRedisData(ctx context.Context) error {
	redisURL := viper.GetString("redis.url")
	if redisURL == "" {
		redisURL = "redis://localhost:6379"
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	defer client.Close()

	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	keys, err := client.Keys(ctx, "*").Result()
	if err != nil {
		return fmt.Errorf("failed to get Redis keys: %w", err)
	}
	if len(keys) == 0 {
		fmt.Println("No Redis data found to clear")
		return nil
	}

	fmt.Printf("Clearing %d Redis keys/streams...\n", len(keys))
	if err := client.FlushDB(ctx).Err(); err != nil {
		return fmt.Errorf("failed to flush Redis database: %w", err)
	}
	return nil
}

func resetDatabase() error {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "./data/trace-console.db"
	}

	// Remove the database plus WAL sidecar files.
	dbFiles := []string{
		dbPath,
		dbPath + "-shm",
		dbPath + "-wal",
	}

	var removedFiles []string
	for _, file := range dbFiles {
		if _, err := os.Stat(file); err == nil {
			if err := os.Remove(file); err != nil {
				return fmt.Errorf("failed to remove database file %s: %w", file, err)
			}
			removedFiles = append(removedFiles, filepath.Base(file))
		}
	}

	if len(removedFiles) == 0 {
		fmt.Println("No database files found to remove")
		return nil
	}
	fmt.Printf("Removed database files: %s\n", strings.Join(removedFiles, ", "))
	return nil
}
