// glassdash-tui shows the GlassDash start page in a terminal. It talks to a
// running glassdash server and stays in sync with every other open
// dashboard.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"glassdash/internal/config"
	"glassdash/internal/feed"
	"glassdash/internal/logging"
	"glassdash/internal/syncclient"
	"glassdash/internal/tui"
)

var (
	// Version will be set during build
	Version = "dev"

	serverURL    = flag.String("server", "", "GlassDash server URL (default: http://localhost:80 or GLASSDASH_SERVER)")
	pollInterval = flag.Duration("poll", 0, "Settings poll interval (default: 5s or GLASSDASH_POLL_INTERVAL)")
	logFile      = flag.String("log-file", "", "Write logs to this file, rotated (default: GLASSDASH_LOG_FILE, otherwise discarded)")
	prodMode     = flag.Bool("prod", false, "Only log failures")
	version      = flag.Bool("version", false, "Print version information")
)

const feedCacheTTL = 5 * time.Minute

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("GlassDash TUI version %s\n", Version)
		return
	}
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.GetConfig()
	if *serverURL != "" {
		cfg.ServerURL = *serverURL
	}
	if *pollInterval > 0 {
		cfg.PollInterval = *pollInterval
	}
	if *logFile != "" {
		cfg.LogFile = *logFile
	}
	if *prodMode {
		cfg.ProductionMode = true
	}

	// stdout belongs to the UI, so logs only go to the file
	logger, logCloser := logging.New("glassdash-tui: ", cfg.LogFile, nil)
	defer logCloser.Close()

	client := syncclient.New(syncclient.NewHTTPRemote(cfg.ServerURL), syncclient.Options{
		PollInterval: cfg.PollInterval,
		Logger:       logger,
		Verbose:      !cfg.ProductionMode,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// A failed load is shown by the UI, which offers a reload.
	startCtx, startCancel := context.WithTimeout(ctx, 10*time.Second)
	client.Start(startCtx)
	startCancel()

	runErr := make(chan error, 1)
	go func() { runErr <- client.Run(ctx) }()

	fetcher := feed.NewFetcher(logger, feedCacheTTL, feed.ClientStrategies(feed.NewHTTPClient(15*time.Second))...)
	model := tui.NewModel(client, tui.Options{Fetcher: fetcher})
	defer model.Close()

	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err := program.Run()

	// stop polling and flush queued writes before exiting
	cancel()
	if rerr := <-runErr; rerr != nil && err == nil {
		err = rerr
	}
	return err
}
