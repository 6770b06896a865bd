package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"finscrape/internal/aggregate"
	"finscrape/internal/browser"
	"finscrape/internal/config"
	"finscrape/internal/derive"
	"finscrape/internal/export"
	"finscrape/internal/page"
	"finscrape/internal/ratelimit"
	"finscrape/internal/recommend"
	"finscrape/internal/record"
	"finscrape/internal/scheduler"
	"finscrape/internal/scrape"
	"finscrape/internal/value"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	// Your inputs
	in := bufio.NewScanner(os.Stdin)
	tickers := strings.Fields(strings.ToUpper(prompt(in, "Input your tickers separated by spaces (e.g. AAPL AXP V): ")))
	if len(tickers) == 0 {
		log.Fatal("No tickers entered")
	}

	target := prompt(in, "Choose between 'fundamentals', 'holders', 'insider transactions', 'profile', or 'all': ")
	stages, err := scheduler.ParseStages(target)
	if err != nil {
		log.Fatalf("Invalid stage selection: %v", err)
	}

	exportPath := prompt(in, "Choose location for export (e.g. full_output.csv): ")
	if exportPath == "" {
		log.Fatal("No export path entered")
	}
	exportMode := strings.ToLower(prompt(in, "Export mode, 'write' or 'append': "))
	if exportMode != "write" && exportMode != "append" {
		log.Fatalf("Export mode must be 'write' or 'append', got %q", exportMode)
	}
	wantRecommendations := strings.ToLower(prompt(in, "yes or no recommendation? ")) == "yes"

	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	links := page.Links{Base: cfg.BaseURL}
	selectors := cfg.Selectors.Page()
	limiter := ratelimit.New(cfg.RenderedPerSec, cfg.StaticPerSec)
	client := scrape.NewHTTPClient(cfg.UserAgent, cfg.RequestTimeout)
	defer client.Close()

	start := time.Now()

	if wantRecommendations {
		expander := &recommend.Expander{
			Links:     links,
			Selectors: selectors,
			Client:    client,
			Limiter:   limiter,
			Count:     cfg.Recommendations,
			Logger:    logger,
		}
		tickers = expander.Expand(ctx, tickers)
		fmt.Println("Your recommended tickers: " + strings.Join(tickers, " "))
	}

	workers := &scrape.Stages{
		Links:     links,
		Selectors: selectors,
		Browser: func() (browser.Renderer, error) {
			return browser.NewSession(browser.Options{
				UserAgent:      cfg.UserAgent,
				Headless:       cfg.Headless,
				SettleDelay:    cfg.SettleDelay,
				RequestTimeout: cfg.RequestTimeout,
			})
		},
		Client:     client,
		Limiter:    limiter,
		Retries:    cfg.Retries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	}

	sched := scheduler.New(cfg.Capacity, cfg.Parallelism, logger)
	results := aggregate.New()

	fmt.Println("================================================")
	for _, stage := range stages {
		worker, err := workers.Worker(stage)
		if err != nil {
			log.Fatalf("Failed to build stage worker: %v", err)
		}
		fmt.Printf("Running %s for %d tickers with up to %d workers...\n",
			stage, len(tickers), sched.MaxWorkers())
		if err := sched.Run(ctx, stage, tickers, worker, results); err != nil {
			log.Fatalf("Stage %s failed: %v", stage, err)
		}
	}

	engine := derive.New(cfg.Mode, cfg.Precision, logger)
	records := make([]*record.Record, 0, len(tickers))
	for _, ticker := range tickers {
		rec := results.Get(ticker)
		if rec == nil {
			continue
		}
		for _, stage := range stages {
			switch stage {
			case scheduler.StageFundamentals:
				engine.Fundamentals(rec)
			case scheduler.StageProfile:
				engine.Profile(rec)
			case scheduler.StageInsider:
				engine.InsiderTransactions(rec)
			}
		}
		records = append(records, rec)
	}

	if exportMode == "append" {
		err = export.Append(exportPath, records)
	} else {
		err = export.Write(exportPath, records)
	}
	if err != nil {
		log.Fatalf("Export failed: %v", err)
	}

	fmt.Println("================================================")
	for _, rec := range records {
		fmt.Printf("%-6s %s  price=%s  summary=%s statistics=%s financials=%s\n",
			rec.Ticker, rec.Name.Or(value.Of("-")).String(), rec.Price.Or(value.Of("-")).String(),
			rec.SummaryAvail.Mark(), rec.StatisticsAvail.Mark(), rec.FinancialsAvail.Mark())
	}
	fmt.Printf("Exported %d tickers to %s\n", len(records), exportPath)
	fmt.Printf("This run took %.1f seconds\n", time.Since(start).Seconds())
}

func prompt(in *bufio.Scanner, msg string) string {
	fmt.Print(msg)
	if !in.Scan() {
		return ""
	}
	return strings.TrimSpace(in.Text())
}
