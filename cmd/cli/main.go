// Command cli is the wvscan entry point. It runs in two modes: a one-shot
// scan of a single target printed to the terminal (-u), or a long-running
// HTTP server exposing the scan API (-listen).
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/wvscan/wvscan/pkg/config"
	"github.com/wvscan/wvscan/pkg/report"
	"github.com/wvscan/wvscan/pkg/server"
	"github.com/wvscan/wvscan/pkg/session"
	"github.com/wvscan/wvscan/pkg/ui"
)

func main() {
	cfg, err := config.ParseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "wvscan: %v\n", err)
		os.Exit(2)
	}

	if cfg.NoColor {
		ui.SetNoColor()
	}

	deps, err := buildDeps(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "wvscan: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var exitCode int
	if cfg.Listen != "" {
		exitCode = runServe(ctx, cfg, deps)
	} else {
		exitCode = runScan(ctx, cfg, deps)
	}
	deps.close()
	os.Exit(exitCode)
}

// runServe runs the HTTP API until interrupted.
func runServe(ctx context.Context, cfg *config.Config, deps *deps) int {
	registry := session.NewRegistry(deps.factory)
	defer registry.Close()

	var writer *report.Writer
	if cfg.ReportDir != "" {
		w, err := report.NewWriter(cfg.ReportDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "wvscan: %v\n", err)
			return 2
		}
		writer = w
	}

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           server.New(registry, writer).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	fmt.Println(ui.Banner())
	fmt.Printf("listening on %s\n", cfg.Listen)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "wvscan: %v\n", err)
			return 1
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
	return 0
}

// runScan performs one scan and prints the result.
func runScan(ctx context.Context, cfg *config.Config, deps *deps) int {
	if !cfg.JSON {
		fmt.Println(ui.Banner())
		fmt.Printf("scanning %s\n\n", cfg.TargetURL)
	}

	sess := session.New(uuid.NewString(), cfg.TargetURL, deps.factory(cfg.TargetURL))

	events := sess.Subscribe()
	sess.Start(ctx)

	go func() {
		<-ctx.Done()
		sess.Cancel("interrupted")
	}()

	if events != nil {
		for ev := range events {
			if !cfg.JSON && cfg.Verbose && ev.Kind == session.EventLog {
				fmt.Println(ev.Line)
			}
		}
	}
	<-sess.Done()

	snap := sess.Snapshot()
	rep := report.Build(snap)

	if cfg.JSON {
		raw, err := rep.JSON()
		if err != nil {
			fmt.Fprintf(os.Stderr, "wvscan: %v\n", err)
			return 1
		}
		os.Stdout.Write(raw)
		fmt.Println()
	} else {
		printSummary(snap, rep)
	}

	if cfg.ReportDir != "" {
		if w, err := report.NewWriter(cfg.ReportDir); err == nil {
			if dir, err := w.Write(rep); err == nil && !cfg.JSON {
				fmt.Printf("\nreports written to %s\n", dir)
			}
		}
	}

	if snap.State == session.StateError {
		fmt.Fprintf(os.Stderr, "wvscan: scan failed: %s\n", snap.LastError)
		return 1
	}
	return 0
}

func printSummary(snap session.Snapshot, rep report.Report) {
	fmt.Printf("pages visited: %d   forms: %d   findings: %d\n\n",
		snap.Counters.Pages, snap.Counters.Forms, rep.Summary.Total)

	if rep.Summary.Total == 0 {
		fmt.Println("no findings")
		return
	}
	for _, f := range rep.Findings {
		fmt.Printf("%s %s\n", ui.SeverityBadge(string(f.Severity)), f.Name)
		fmt.Printf("    %s %s", f.Method, f.URL)
		if f.Parameter != "" {
			fmt.Printf("  param=%s", f.Parameter)
		}
		fmt.Println()
		if f.Evidence != "" {
			fmt.Printf("    %s\n", f.Evidence)
		}
	}
}
