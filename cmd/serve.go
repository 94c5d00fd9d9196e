package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"github.com/tracelens/trace-console/internal/api"
	"github.com/tracelens/trace-console/internal/bus"
	"github.com/tracelens/trace-console/internal/fetch"
	"github.com/tracelens/trace-console/internal/ingest"
	"github.com/tracelens/trace-console/internal/report"
	"github.com/tracelens/trace-console/internal/session"
	"github.com/tracelens/trace-console/internal/store"
	"github.com/tracelens/trace-console/internal/timeline"
	"github.com/tracelens/trace-console/internal/ui"
)

var (
	noTUI    bool
	forceTUI bool
	watchDir bool

	apiBind  string
	apiToken string
	apiRPS   int
	apiBurst int

	serveExportDir string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the analysis API server and terminal dashboard",
	Long: `Start the Trace-Console server which includes:

1. Artifact session (loaded from the extraction backend or a dump folder)
2. HTTP API exposing correlation, timeline, report and record endpoints
3. Terminal dashboard for interactive investigation
4. Optional dump-folder watching with automatic reload

The serve command runs until interrupted (Ctrl+C).

Examples:
  # Start with the dashboard, loading artifacts from a dump folder
  trace-console serve --artifact-dir ./data/artifacts

  # Start headless against an extraction backend
  trace-console serve --no-tui --backend-url http://localhost:5000

  # Serve the API on a different address with a bearer token
  trace-console serve --api-bind 0.0.0.0:8080 --api-token secret`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&noTUI, "no-tui", false, "Run in headless mode without the dashboard")
	serveCmd.Flags().BoolVar(&forceTUI, "force-tui", false, "Force dashboard mode even in unsupported terminals")
	serveCmd.Flags().BoolVar(&watchDir, "watch", false, "Reload the session when dump files change")

	serveCmd.Flags().StringVar(&apiBind, "api-bind", "127.0.0.1:8080", "Bind address for the HTTP API")
	serveCmd.Flags().StringVar(&apiToken, "api-token", "", "Bearer token required for API requests (optional)")
	serveCmd.Flags().IntVar(&apiRPS, "api-rps", 10, "Max API requests per second")
	serveCmd.Flags().IntVar(&apiBurst, "api-burst", 20, "Burst size for the API rate limiter")

	serveCmd.Flags().StringVar(&serveExportDir, "export-dir", ".", "Directory for dashboard exports")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	config := GetConfig()

	willUseTUI := !noTUI && (forceTUI || canInitializeTUI())

	// File logging in dashboard mode keeps the terminal clean.
	var logger *log.Logger
	if willUseTUI {
		logFile := setupFileLogger()
		if logFile != nil {
			logger = log.New(logFile, "[serve] ", log.LstdFlags)
			defer logFile.Close()
		} else {
			logger = log.New(io.Discard, "", 0)
		}
	} else {
		logger = log.New(os.Stderr, "[serve] ", log.LstdFlags)
	}

	logger.Println("Starting Trace-Console server")

	g := timeline.ParseGranularity(config.Timeline.Granularity)

	st, err := store.NewStore(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer st.Close()
	st.SetLogger(logger)

	busLogger := logger
	if willUseTUI {
		busLogger = log.New(io.Discard, "", 0)
	}
	eventBus := bus.NewBus(config.Redis.URL, busLogger)
	defer eventBus.Close()

	source, folder, err := newSource(config, logger)
	if err != nil {
		return err
	}

	sess := session.New(source, eventBus, g, logger)
	synth := report.NewSynthesizer(st, eventBus, logger)

	// Every successful load leaves an audit trace.
	auditSessionLoaded := func(ctx context.Context) {
		err := st.RecordAudit(ctx, store.AuditEntry{
			Action:  store.ActionSessionLoaded,
			Details: map[string]string{"session_id": sess.ID()},
		})
		if err != nil {
			logger.Printf("Failed to record session load: %v", err)
		}
	}

	srv, err := api.NewServer(sess, synth, api.Options{
		Bind:   apiBind,
		Token:  apiToken,
		RPS:    apiRPS,
		Burst:  apiBurst,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize API server: %w", err)
	}
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("failed to start API server: %w", err)
	}
	logger.Printf("API server listening on %s", apiBind)

	// Reload the session when the dump folder changes.
	if watchDir && folder != nil {
		go func() {
			err := folder.Watch(ctx, func() {
				logger.Println("Dump folder changed, reloading session")
				if err := sess.Load(ctx); err != nil {
					logger.Printf("Session reload failed: %v", err)
					return
				}
				auditSessionLoaded(ctx)
			})
			if err != nil && ctx.Err() == nil {
				logger.Printf("Folder watch error: %v", err)
			}
		}()
	}

	if willUseTUI {
		dash := ui.NewDashboard(sess, synth, serveExportDir, logger)
		dash.AfterLoad = auditSessionLoaded
		if err := dash.Run(ctx); err != nil {
			return fmt.Errorf("dashboard error: %w", err)
		}
		logger.Println("Dashboard exited")
		return nil
	}

	logger.Println("Running in headless mode...")
	if err := sess.Load(ctx); err != nil {
		logger.Printf("Initial session load failed: %v", err)
	} else {
		auditSessionLoaded(ctx)
	}
	<-ctx.Done()
	logger.Println("Received shutdown signal")
	logger.Println("Trace-Console server stopped")
	return nil
}

// newSource picks the artifact source: the extraction backend when a URL is
// configured, otherwise the dump folder. The folder source is returned
// separately so callers can attach a watcher.
func newSource(config Config, logger *log.Logger) (session.Source, *ingest.FolderSource, error) {
	if config.Source.BackendURL != "" {
		client, err := fetch.NewClient(fetch.Options{
			BaseURL: config.Source.BackendURL,
			Logger:  logger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize backend client: %w", err)
		}
		return client, nil, nil
	}

	folder, err := ingest.NewFolderSource(ingest.FolderOptions{
		Dir:    config.Source.ArtifactDir,
		Logger: logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open artifact dir: %w", err)
	}
	return folder, folder, nil
}

// canInitializeTUI tests if tcell can actually be initialized
func canInitializeTUI() bool {
	screen, err := tcell.NewScreen()
	if err != nil {
		return false
	}
	if err := screen.Init(); err != nil {
		return false
	}
	screen.Fini()
	return true
}

// setupFileLogger creates a log file for dashboard mode
func setupFileLogger() *os.File {
	logDir := "logs"
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil
	}
	logPath := filepath.Join(logDir, "trace-console-serve.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil
	}
	return logFile
}
