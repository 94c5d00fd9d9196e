package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile     string
	dbPath      string
	redisURL    string
	logLevel    string
	backendURL  string
	artifactDir string
	granularity string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "trace-console",
	Short: "Terminal-first mobile forensic correlation and timeline console",
	Long: `Trace-Console ingests mobile extraction artifacts (SMS messages, call
logs, contacts), correlates them across sources by normalized phone number,
aggregates them into a chronological activity timeline, and synthesizes
case report snapshots for investigators.

Features:
- Artifact ingestion from an extraction backend or a dump folder
- Cross-source correlation keyed by normalized phone number
- Timeline aggregation with per-bucket tallies
- Case report snapshots with unique case numbers (SQLite storage)
- Deterministic plain-text exports and a terminal dashboard`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.trace-console.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "./data/trace-console.db", "SQLite database path")
	rootCmd.PersistentFlags().StringVar(&redisURL, "redis", "redis://localhost:6379", "Redis connection URL")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&backendURL, "backend-url", "", "Extraction backend base URL (empty disables HTTP fetch)")
	rootCmd.PersistentFlags().StringVar(&artifactDir, "artifact-dir", "./data/artifacts", "Directory containing artifact dump files")
	rootCmd.PersistentFlags().StringVar(&granularity, "granularity", "day", "Timeline bucket granularity (day, hour)")

	// Bind flags to viper
	viper.BindPFlag("database.path", rootCmd.PersistentFlags().Lookup("db"))
	viper.BindPFlag("redis.url", rootCmd.PersistentFlags().Lookup("redis"))
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("source.backend_url", rootCmd.PersistentFlags().Lookup("backend-url"))
	viper.BindPFlag("source.artifact_dir", rootCmd.PersistentFlags().Lookup("artifact-dir"))
	viper.BindPFlag("timeline.granularity", rootCmd.PersistentFlags().Lookup("granularity"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".trace-console" (without extension).
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".trace-console")
	}

	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	// Set defaults
	viper.SetDefault("database.path", "./data/trace-console.db")
	viper.SetDefault("redis.url", "redis://localhost:6379")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("source.backend_url", "")
	viper.SetDefault("source.artifact_dir", "./data/artifacts")
	viper.SetDefault("timeline.granularity", "day")
	viper.SetDefault("export.dir", ".")
}

// GetConfig returns the current configuration values
func GetConfig() Config {
	return Config{
		Database: DatabaseConfig{
			Path: viper.GetString("database.path"),
		},
		Redis: RedisConfig{
			URL: viper.GetString("redis.url"),
		},
		Log: LogConfig{
			Level: viper.GetString("log.level"),
		},
		Source: SourceConfig{
			BackendURL:  viper.GetString("source.backend_url"),
			ArtifactDir: viper.GetString("source.artifact_dir"),
		},
		Timeline: TimelineConfig{
			Granularity: viper.GetString("timeline.granularity"),
		},
		Export: ExportConfig{
			Dir: viper.GetString("export.dir"),
		},
	}
}

// Config represents the application configuration
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Log      LogConfig      `mapstructure:"log"`
	Source   SourceConfig   `mapstructure:"source"`
	Timeline TimelineConfig `mapstructure:"timeline"`
	Export   ExportConfig   `mapstructure:"export"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type SourceConfig struct {
	BackendURL  string `mapstructure:"backend_url"`
	ArtifactDir string `mapstructure:"artifact_dir"`
}

type TimelineConfig struct {
	Granularity string `mapstructure:"granularity"`
}

type ExportConfig struct {
	Dir string `mapstructure:"dir"`
}
