// newspulse — multi-provider news enrichment for the PUBGM revenue treemap
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/seenimoa/newspulse/internal/config"
	"github.com/seenimoa/newspulse/internal/feed"
	"github.com/seenimoa/newspulse/internal/filter"
	"github.com/seenimoa/newspulse/internal/llm"
	"github.com/seenimoa/newspulse/internal/logging"
	"github.com/seenimoa/newspulse/internal/notify"
	"github.com/seenimoa/newspulse/internal/pipeline"
	"github.com/seenimoa/newspulse/internal/quota"
	"github.com/seenimoa/newspulse/internal/report"
	"github.com/seenimoa/newspulse/internal/store"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config
var cfg *config.Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "newspulse",
	Short: "newspulse — PUBGM news enrichment pipeline",
	Long: `newspulse collects PUBG Mobile and traffic-impact news from Google
News and RSS feeds, enriches it through free-first LLM providers
(Groq, Gemini, optionally OpenAI and Claude), and writes the CSV
consumed by the revenue treemap site.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if level, _ := cmd.Flags().GetString("log-level"); level != "" {
			cfg.Logging.Level = level
		}
		return logging.Init(cfg.Logging)
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(statusCmd)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("newspulse %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Run Command ---

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one full batch: collect, filter, enrich, write CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		defer logging.Sync()
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		providers, err := llm.NewRegistry(cfg.LLM)
		if err != nil {
			return fmt.Errorf("build providers: %w", err)
		}
		tracker := quota.NewTracker(quota.LimitsFromConfig(cfg.Quota))

		// An empty store path runs the batch without cross-run dedupe.
		var itemStore pipeline.ItemStore
		if cfg.Store.Path != "" {
			db, err := store.Open(cfg.Store.Path)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer db.Close()
			itemStore = db
		}

		var notifier pipeline.Notifier
		if cfg.Slack.Enabled {
			notifier = notify.NewSlackNotifier(cfg.Slack.WebhookURL)
		}

		p := pipeline.New(
			feed.NewCollector(cfg.Feeds),
			filter.New(),
			pipeline.NewEnricher(providers, tracker, cfg),
			itemStore,
			report.NewCSVWriter(cfg.Output.CSVPath),
			notifier,
		)

		items, stats, err := p.Run(ctx)
		if err != nil {
			return err
		}

		fmt.Println(report.Summary(stats, items))
		fmt.Printf("csv: %s\n", cfg.Output.CSVPath)
		return nil
	},
}

// --- Fetch Command ---

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Collect and filter feeds without calling any LLM",
	RunE: func(cmd *cobra.Command, args []string) error {
		defer logging.Sync()
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		collector := feed.NewCollector(cfg.Feeds)
		items, err := collector.Collect(ctx)
		if err != nil {
			return err
		}
		filtered := filter.New().Apply(items)

		fmt.Printf("collected %d items, %d relevant\n", len(items), len(filtered))
		limit, _ := cmd.Flags().GetInt("limit")
		for i, item := range filtered {
			if i >= limit {
				break
			}
			fmt.Printf("  %.2f  %s\n", item.RelevanceScore, item.Title)
		}
		return nil
	},
}

func init() {
	fetchCmd.Flags().Int("limit", 20, "max items to print")
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration, API keys, and store contents",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  newspulse — Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:      %s (%s)\n", version, commit)
		fmt.Println()

		fmt.Println("  Configuration:")
		fmt.Printf("    Primary:       %s\n", cfg.LLM.Primary)
		fmt.Printf("    Paid APIs:     %v\n", cfg.LLM.UsePaid)
		fmt.Printf("    Cross-check:   %v\n", cfg.LLM.CrossValidate)
		fmt.Printf("    Batch size:    %d (deep top %d)\n", cfg.App.BatchSize, cfg.App.DeepCutoff)
		fmt.Printf("    Keywords:      %d\n", len(cfg.Feeds.Keywords))
		fmt.Printf("    CSV:           %s\n", cfg.Output.CSVPath)
		fmt.Println()

		fmt.Println("  API Keys:")
		for _, k := range config.CheckAPIKeys(cfg) {
			status := "❌ not set"
			if k.IsSet {
				status = fmt.Sprintf("✅ set (%s: %s)", k.Source, k.Masked)
			}
			fmt.Printf("    %-12s %s\n", k.Name+":", status)
		}
		fmt.Println()

		if cfg.Store.Path != "" {
			if db, err := store.Open(cfg.Store.Path); err == nil {
				defer db.Close()
				if n, err := db.Count(cmd.Context()); err == nil {
					fmt.Printf("  Store:        %d items (%s)\n", n, cfg.Store.Path)
				}
			}
		}

		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}
