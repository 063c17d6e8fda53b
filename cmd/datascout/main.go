// cmd/datascout/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jungyu/DataScout-sub003/internal/config"
	"github.com/jungyu/DataScout-sub003/internal/dom"
	"github.com/jungyu/DataScout-sub003/internal/extract"
	"github.com/jungyu/DataScout-sub003/internal/monitoring"
	"github.com/jungyu/DataScout-sub003/internal/output"
	"github.com/jungyu/DataScout-sub003/internal/paginate"
	"github.com/jungyu/DataScout-sub003/internal/utils"
)

// Version information (set by build flags)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		if len(os.Args) < 3 {
			fmt.Fprintf(os.Stderr, "Usage: datascout run <job.yaml>\n")
			os.Exit(1)
		}
		if err := runJob(os.Args[2]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

	case "validate":
		if len(os.Args) < 3 {
			fmt.Fprintf(os.Stderr, "Usage: datascout validate <job.yaml>\n")
			os.Exit(1)
		}
		cfg, err := config.LoadFromFile(os.Args[2])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Configuration %q is valid\n", cfg.Name)

	case "version", "--version":
		fmt.Printf("datascout %s (built %s, commit %s)\n", version, buildTime, gitCommit)

	case "help", "--help", "-h":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runJob(configFile string) error {
	cfg, err := config.LoadFromFile(configFile)
	if err != nil {
		return err
	}

	log := utils.NewLoggerWithLevel(utils.ParseLogLevel(cfg.LogLevel)).
		WithFields(map[string]interface{}{"component": "datascout", "job": cfg.Name})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var metrics *monitoring.Metrics
	var monServer *monitoring.Server
	if cfg.Monitoring.Enabled {
		metrics = monitoring.NewMetrics(cfg.Monitoring.Metrics)
		monServer = monitoring.NewServer(cfg.Monitoring.Server, log)
		monServer.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			monServer.Stop(shutdownCtx)
		}()
	}

	browser, err := dom.NewChrome(cfg.Browser)
	if err != nil {
		return fmt.Errorf("start browser: %w", err)
	}
	defer browser.Close()

	strategy, err := paginate.NewStrategy(cfg.Navigation)
	if err != nil {
		return err
	}

	items := extract.NewItemExtractor(log)
	list := extract.NewListExtractor(items, log)
	opts := paginate.Options{
		MaxPages:          cfg.Engine.MaxPages,
		MaxRetries:        cfg.Engine.MaxRetries,
		RetryBackoff:      cfg.Engine.RetryBackoff,
		PageDelay:         cfg.Engine.PageDelay,
		AjaxSettleTimeout: cfg.Engine.AjaxSettleTimeout,
		RateLimit:         cfg.Engine.RateLimit,
		IdentityField:     cfg.Engine.IdentityField,
	}
	if metrics != nil {
		opts.PageObserver = func(d time.Duration) {
			metrics.ObservePageExtraction(cfg.Name, d)
		}
	}
	controller := paginate.NewController(strategy, list, cfg.Items, opts, log)

	if metrics != nil {
		metrics.RunStarted()
		defer metrics.RunFinished()
	}

	log.Infof("starting run against %s", cfg.StartURL)
	records, stats, err := controller.Run(ctx, browser, cfg.StartURL)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}
	log.Debugf("browser session: %d pages loaded, %d errors", browser.PagesLoaded(), browser.Errors())

	if metrics != nil {
		metrics.RecordPages(cfg.Name, stats.StrategyName, stats.PagesVisited, stats.FailedPages)
		metrics.RecordItems(cfg.Name, stats.ItemsExtracted, stats.ItemsDropped, stats.DuplicatesDropped)
		metrics.RecordRun(cfg.Name, runOutcome(stats), stats.Duration)
		metrics.UpdateSystemMetrics()
	}
	if monServer != nil {
		monServer.UpdateStatus(monitoring.Status{
			Job:            cfg.Name,
			Strategy:       stats.StrategyName,
			Running:        false,
			PagesVisited:   stats.PagesVisited,
			ItemsExtracted: stats.ItemsExtracted,
			FailedPages:    stats.FailedPages,
			StartedAt:      stats.StartedAt,
		})
	}

	for _, outCfg := range cfg.Outputs {
		manager, err := output.NewManager(outCfg, log)
		if err != nil {
			return err
		}
		if err := manager.Write(ctx, records); err != nil {
			if metrics != nil {
				metrics.RecordOutput(cfg.Name, string(outCfg.Format), err)
			}
			return err
		}
		if metrics != nil {
			metrics.RecordOutput(cfg.Name, string(outCfg.Format), nil)
		}
	}

	printStats(stats)
	return nil
}

func runOutcome(stats paginate.RunStats) string {
	switch {
	case stats.Aborted:
		return "aborted"
	case stats.Cancelled:
		return "cancelled"
	default:
		return "completed"
	}
}

func printStats(stats paginate.RunStats) {
	fmt.Printf("\nRun summary (%s strategy):\n", stats.StrategyName)
	fmt.Printf("  Pages visited:      %d\n", stats.PagesVisited)
	fmt.Printf("  Records extracted:  %d\n", stats.ItemsExtracted)
	fmt.Printf("  Invalid dropped:    %d\n", stats.ItemsDropped)
	fmt.Printf("  Duplicates dropped: %d\n", stats.DuplicatesDropped)
	fmt.Printf("  Failed pages:       %d\n", stats.FailedPages)
	if stats.Cancelled {
		fmt.Printf("  Cancelled before completion\n")
	}
	if stats.Aborted {
		fmt.Printf("  Aborted: %s\n", stats.AbortReason)
	}
	fmt.Printf("  Duration:           %s\n", stats.Duration.Round(time.Millisecond))
}

func printUsage() {
	fmt.Println("DataScout - schema-driven web data extraction")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  datascout run <job.yaml>       Run an extraction job")
	fmt.Println("  datascout validate <job.yaml>  Validate a job configuration")
	fmt.Println("  datascout version              Show version information")
	fmt.Println("  datascout help                 Show this help")
}
