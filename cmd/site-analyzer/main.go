package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"site-analyzer/pkg/api"
	"site-analyzer/pkg/config"
	"site-analyzer/pkg/crawl"
	"site-analyzer/pkg/fetch"
	"site-analyzer/pkg/jobs"
	"site-analyzer/pkg/models"
	"site-analyzer/pkg/storage"
)

const version = "0.3.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "crawl":
		runCrawlCmd(os.Args[2:])
	case "batch":
		runBatchCmd(os.Args[2:])
	case "serve":
		runServeCmd(os.Args[2:])
	case "version":
		fmt.Printf("site-analyzer %s\n", version)
	case "-h", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`site-analyzer - Website crawl and content extraction engine

Usage:
  site-analyzer <command> [options]

Commands:
  crawl    Crawl a single seed URL and print the result as JSON
  batch    Crawl multiple seed URLs and print the batch result as JSON
  serve    Start the HTTP API server
  version  Show version info

Run 'site-analyzer <command> -h' for command-specific help.`)
}

// setupLogger creates a configured logrus.Logger with the given log level.
func setupLogger(logLevelStr string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05.000"})
	log.SetLevel(logrus.InfoLevel)

	level, err := logrus.ParseLevel(logLevelStr)
	if err != nil {
		log.Warnf("Invalid log level '%s', using default 'info'. Error: %v", logLevelStr, err)
	} else {
		log.SetLevel(level)
	}

	return log
}

// loadAndValidateConfig loads the config file (or the built-in defaults when
// path is empty), validates it, and logs warnings.
func loadAndValidateConfig(configFile string, log *logrus.Logger) *config.AppConfig {
	if configFile == "" {
		return config.Default()
	}

	log.Infof("Loading configuration from %s", configFile)
	appCfg, err := config.Load(configFile)
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	warnings, err := appCfg.Validate()
	if err != nil {
		log.Fatalf("Config validation error: %v", err)
	}
	for _, w := range warnings {
		log.Warn(w)
	}

	return appCfg
}

// buildOrchestrator wires the fetch stack under one orchestrator.
func buildOrchestrator(appCfg *config.AppConfig, log *logrus.Logger) *crawl.Orchestrator {
	logEntry := log.WithField("component", "crawl")
	httpClient := fetch.NewClient(appCfg.HTTPClientSettings, log)
	fetcher := fetch.NewHTTPFetcher(httpClient, appCfg.FetchTimeout, appCfg.MaxPageSizeBytes, logEntry)
	return crawl.NewOrchestrator(appCfg, fetcher, logEntry)
}

// signalContext returns a context cancelled on SIGINT/SIGTERM. A second
// signal forces exit.
func signalContext(log *logrus.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Warnf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		sig = <-sigChan
		log.Warnf("Received second signal %v, forcing exit.", sig)
		os.Exit(1)
	}()

	return ctx, cancel
}

// crawlFlags registers the per-request flags shared by crawl and batch.
type crawlFlags struct {
	maxPages        *int
	depth           *int
	followLinks     *bool
	saveHTML        *bool
	saveLinks       *bool
	extractMetadata *bool
	crawlDelay      *time.Duration
	userAgent       *string
}

func registerCrawlFlags(fs *flag.FlagSet) crawlFlags {
	return crawlFlags{
		maxPages:        fs.Int("max-pages", 1, "Maximum number of pages to fetch"),
		depth:           fs.Int("depth", 0, "Maximum link depth from the seed (0 = seed only)"),
		followLinks:     fs.Bool("follow-links", false, "Follow links discovered on fetched pages"),
		saveHTML:        fs.Bool("save-html", false, "Include raw HTML in page results"),
		saveLinks:       fs.Bool("save-links", true, "Include discovered links in page results"),
		extractMetadata: fs.Bool("extract-metadata", true, "Include page metadata in page results"),
		crawlDelay:      fs.Duration("crawl-delay", 0, "Minimum spacing between fetches (0 = config default)"),
		userAgent:       fs.String("user-agent", "", "User-Agent header (empty = config default)"),
	}
}

func (f crawlFlags) toRequest(seedURL string) models.CrawlRequest {
	return models.CrawlRequest{
		URL:             seedURL,
		MaxPages:        *f.maxPages,
		Depth:           *f.depth,
		FollowLinks:     *f.followLinks,
		SaveHTML:        *f.saveHTML,
		SaveLinks:       *f.saveLinks,
		ExtractMetadata: *f.extractMetadata,
		CrawlDelay:      *f.crawlDelay,
		UserAgent:       *f.userAgent,
	}
}

// runCrawlCmd handles the crawl subcommand
func runCrawlCmd(args []string) {
	fs := flag.NewFlagSet("crawl", flag.ExitOnError)
	configFile := fs.String("config", "", "Path to config file (optional)")
	logLevel := fs.String("loglevel", "info", "Log level (debug, info, warn, error, fatal)")
	seedURL := fs.String("url", "", "Seed URL to crawl (required)")
	cf := registerCrawlFlags(fs)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: site-analyzer crawl [options]\n\nOptions:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  site-analyzer crawl -url https://example.com\n")
		fmt.Fprintf(os.Stderr, "  site-analyzer crawl -url https://example.com -max-pages 10 -depth 2 -follow-links\n")
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if *seedURL == "" {
		fmt.Fprintln(os.Stderr, "Error: -url is required")
		fs.Usage()
		os.Exit(1)
	}

	log := setupLogger(*logLevel)
	appCfg := loadAndValidateConfig(*configFile, log)
	orch := buildOrchestrator(appCfg, log)

	ctx, cancel := signalContext(log)
	defer cancel()

	result, err := orch.RunCrawl(ctx, cf.toRequest(*seedURL))
	if err != nil {
		log.Fatalf("Crawl request rejected: %v", err)
	}

	printJSON(os.Stdout, result, log)
	if result.Status == models.RunStatusFailed {
		os.Exit(1)
	}
}

// runBatchCmd handles the batch subcommand
func runBatchCmd(args []string) {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	configFile := fs.String("config", "", "Path to config file (optional)")
	logLevel := fs.String("loglevel", "info", "Log level (debug, info, warn, error, fatal)")
	urls := fs.String("urls", "", "Comma-separated seed URLs (required)")
	cf := registerCrawlFlags(fs)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: site-analyzer batch [options]\n\nOptions:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  site-analyzer batch -urls https://a.example,https://b.example -max-pages 5\n")
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	var reqs []models.CrawlRequest
	for _, u := range strings.Split(*urls, ",") {
		u = strings.TrimSpace(u)
		if u != "" {
			reqs = append(reqs, cf.toRequest(u))
		}
	}
	if len(reqs) == 0 {
		fmt.Fprintln(os.Stderr, "Error: -urls is required")
		fs.Usage()
		os.Exit(1)
	}

	log := setupLogger(*logLevel)
	appCfg := loadAndValidateConfig(*configFile, log)
	orch := buildOrchestrator(appCfg, log)
	coordinator := crawl.NewCoordinator(appCfg, orch, log.WithField("component", "batch"))

	ctx, cancel := signalContext(log)
	defer cancel()

	result := coordinator.RunBatch(ctx, reqs)

	printJSON(os.Stdout, result, log)
	if result.Failed > 0 && result.Succeeded == 0 {
		os.Exit(1)
	}
}

// runServeCmd handles the serve subcommand
func runServeCmd(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configFile := fs.String("config", "", "Path to config file (optional)")
	logLevel := fs.String("loglevel", "info", "Log level (debug, info, warn, error, fatal)")
	addr := fs.String("addr", ":8080", "Listen address")
	noPersist := fs.Bool("no-persist", false, "Disable the on-disk results database")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: site-analyzer serve [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	log := setupLogger(*logLevel)
	appCfg := loadAndValidateConfig(*configFile, log)
	orch := buildOrchestrator(appCfg, log)
	coordinator := crawl.NewCoordinator(appCfg, orch, log.WithField("component", "batch"))
	jobsMgr := jobs.NewManager(orch, coordinator, log.WithField("component", "jobs"))

	var store storage.ResultStore
	if !*noPersist {
		badgerStore, err := storage.NewBadgerResultStore(appCfg.StateDir, log.WithField("component", "storage"))
		if err != nil {
			log.Fatalf("Failed to open results database: %v", err)
		}
		defer badgerStore.Close()
		store = badgerStore
	}

	server := api.NewServer(appCfg, orch, coordinator, jobsMgr, store, log.WithField("component", "api"))
	httpServer := &http.Server{
		Addr:    *addr,
		Handler: server.Handler(),
	}

	ctx, cancel := signalContext(log)
	defer cancel()

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Errorf("HTTP server shutdown error: %v", err)
		}
	}()

	log.Infof("Listening on %s", *addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("HTTP server error: %v", err)
	}
	log.Info("Server stopped")
}

// printJSON writes v to w as indented JSON.
func printJSON(w io.Writer, v any, log *logrus.Logger) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Errorf("Failed to encode result: %v", err)
	}
}
