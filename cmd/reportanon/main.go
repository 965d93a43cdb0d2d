// Command reportanon redacts infrastructure identifiers (IPs, URLs, emails,
// MAC addresses, port references, hostnames) in DOCX assessment reports while
// leaving CVE identifiers and all formatting intact.
//
// Usage:
//
//	reportanon <folder>          anonymise every .docx report in folder
//	reportanon scan <path>       preview findings for a file or folder
//	reportanon serve             run the HTTP API
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/rgoodwin/reportanon/internal/api"
	"github.com/rgoodwin/reportanon/internal/batch"
	"github.com/rgoodwin/reportanon/internal/config"
	"github.com/rgoodwin/reportanon/internal/mask"
	"github.com/rgoodwin/reportanon/internal/scan"
)

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: reportanon <folder_path>")
	fmt.Fprintln(os.Stderr, "       reportanon scan <file_or_folder>")
	fmt.Fprintln(os.Stderr, "       reportanon serve")
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	switch args[0] {
	case "serve":
		if len(args) != 1 {
			usage()
			os.Exit(1)
		}
		runServe()
	case "scan":
		if len(args) != 2 {
			usage()
			os.Exit(1)
		}
		runScan(args[1])
	default:
		if len(args) != 1 {
			usage()
			os.Exit(1)
		}
		runBatch(args[0])
	}
}

func runBatch(dir string) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		fmt.Println("Invalid folder path provided.")
		return
	}

	files, err := batch.Discover(dir)
	if err != nil {
		color.Red("Error reading folder: %v", err)
		return
	}
	if len(files) == 0 {
		fmt.Println("No DOCX reports found.")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	progress := func(i, n int, file string) {
		color.New(color.FgCyan).Printf("[%d/%d] %s\n", i, n, file)
	}

	runner := batch.NewRunner(mask.New())
	results, err := runner.RunFiles(ctx, dir, files, progress)

	var done int
	for _, res := range results {
		switch res.Status {
		case batch.StatusDone:
			done++
		case batch.StatusSkipped:
			color.New(color.FgYellow).Printf("Error processing %s: %v\n", res.File, res.Err)
		}
	}

	if err != nil {
		fmt.Println("\nProcess interrupted by user.")
	}
	color.New(color.FgGreen).Printf("\nAnonymisation complete: %d of %d files written.\n", done, len(files))
}

func runScan(path string) {
	scanner := scan.NewScanner(mask.New())

	info, err := os.Stat(path)
	if err != nil {
		color.Red("Cannot read %s: %v", path, err)
		os.Exit(1)
	}

	var reports []*scan.FileReport
	if info.IsDir() {
		reports, err = scanner.ScanDir(path)
		if err != nil {
			color.Red("Error scanning folder: %v", err)
			os.Exit(1)
		}
	} else {
		rep, err := scanner.ScanFile(path)
		if err != nil {
			color.Red("Error scanning %s: %v", path, err)
			os.Exit(1)
		}
		reports = []*scan.FileReport{rep}
	}

	printReports(reports)
}

func printReports(reports []*scan.FileReport) {
	bold := color.New(color.Bold)
	heading := color.New(color.FgCyan)
	warn := color.New(color.FgYellow)

	for _, rep := range reports {
		bold.Println(rep.File)
		if rep.Error != "" {
			warn.Printf("  error: %s\n", rep.Error)
			continue
		}
		if len(rep.Sections) == 0 {
			fmt.Println("  no findings")
			continue
		}
		for _, sec := range rep.Sections {
			where := strings.Join(sec.Breadcrumb, " > ")
			if where == "" {
				where = "(body)"
			}
			heading.Printf("  %s\n", where)
			for _, f := range sec.Findings {
				fmt.Printf("    %-8s %d match(es): %s\n",
					f.Pattern, len(f.Matches), strings.Join(f.Matches, ", "))
			}
		}
		fmt.Printf("  total: %d match(es)\n", rep.Matches)
	}
}

func runServe() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	srv := api.NewServer(mask.New(), log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info("starting reportanon", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
