package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/caretrack/rehabd/internal/sync"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "", "CareTrack server URL (e.g. https://rehabd.tail1234.ts.net)")
	dir := flag.String("path", "", "path to the export directory of payload JSON files")
	apiKey := flag.String("api-key", os.Getenv("REHABD_AUTH_API_KEY"), "ingest API key (or set REHABD_AUTH_API_KEY)")
	dryRun := flag.Bool("dry-run", false, "parse and count but don't send to server")
	batchSize := flag.Int("batch-size", 500, "measurements per ingest request")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("rehabd-sync", Version)
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *dir == "" {
		fmt.Fprintf(os.Stderr, "Usage: rehabd-sync -server <URL> -path <export dir> [-api-key KEY] [-dry-run] [-batch-size N]\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if !*dryRun {
		if *serverURL == "" {
			fmt.Fprintf(os.Stderr, "Error: -server is required (or use -dry-run)\n")
			os.Exit(1)
		}
		if *apiKey == "" {
			fmt.Fprintf(os.Stderr, "Error: -api-key is required (or use -dry-run)\n")
			os.Exit(1)
		}
	}

	// Strip trailing slash from server URL
	*serverURL = strings.TrimRight(*serverURL, "/")

	info, err := os.Stat(*dir)
	if err != nil || !info.IsDir() {
		log.Error("export directory not found", "path", *dir)
		os.Exit(1)
	}
	log.Info("using export directory", "path", *dir)

	// Open state database
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Error("failed to get home directory", "error", err)
		os.Exit(1)
	}
	stateDir := filepath.Join(homeDir, ".rehabd-sync")

	state, err := sync.OpenStateDB(stateDir)
	if err != nil {
		log.Error("failed to open state database", "error", err)
		os.Exit(1)
	}
	defer state.Close()

	if *dryRun {
		log.Info("DRY RUN mode — files will be parsed and counted but not sent")
	}

	client := sync.NewClient(*serverURL, *apiKey)
	syncer := sync.New(client, state, *dir, *dryRun, *batchSize, log)
	stats, err := syncer.Run()
	if err != nil {
		log.Error("sync failed", "error", err)
		printStats(stats)
		os.Exit(1)
	}

	printStats(stats)
	log.Info("sync complete")
}

func printStats(stats *sync.Stats) {
	fmt.Println()
	fmt.Println("=== Sync Summary ===")
	fmt.Printf("  Files total:    %d\n", stats.FilesTotal)
	fmt.Printf("  Files sent:     %d\n", stats.FilesSent)
	fmt.Printf("  Files skipped:  %d (already sent or empty)\n", stats.FilesSkipped)
	fmt.Printf("  Files errored:  %d\n", stats.FilesErrored)
	fmt.Println()
	fmt.Printf("  Measurements sent:     %d\n", stats.MeasurementsSent)
	fmt.Printf("  Measurements filtered: %d\n", stats.MeasurementsFiltered)

	if len(stats.FilteredTypes) > 0 {
		fmt.Printf("\n  Filtered metric types (not enabled server-side):\n")
		for _, t := range stats.FilteredTypes {
			fmt.Printf("    - %s\n", t)
		}
	}
	fmt.Println()
}
