package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"introscan/internal/browser"
	"introscan/internal/config"
	"introscan/internal/dom"
	"introscan/internal/formatter"
	"introscan/internal/live"
	"introscan/internal/mockapi"
	"introscan/internal/page"
	"introscan/internal/popup"
	"introscan/internal/relay"
	"introscan/internal/report"
)

var version = "dev"

var (
	outputFormat string
	outputFile   string
	timeout      time.Duration
	apiBase      string
	expandText   string
	targetID     string
	pollInterval time.Duration
	pollAttempts int
	waitTimeout  time.Duration
	showUI       bool
	proxyURL     string
	mockAddr     string
)

func main() {
	var rootCmd = &cobra.Command{
		Use:     "introscan [URL or HTML file]",
		Short:   "Scrape a product introduction region and describe it",
		Version: version,
		Long: `introscan locates the dynamically rendered product-introduction region
of a shopping page (shadow roots included), expands its lazy content,
extracts the text and image links, and asks a remote image-to-text
service to describe it. The result is overlaid on the page and kept as
a snapshot the query host can fetch at any time.`,
		Example: `  # Scan a live product page and print the result as markdown
  introscan -f markdown https://shopping.example.com/products/1234

  # Scan a saved page (declarative shadow trees supported)
  introscan -f json product.html

  # Point at a different description service
  introscan --api-base http://localhost:9090 product.html`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				cmd.Help()
				os.Exit(0)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE:         run,
		SilenceUsage: true,
	}

	rootCmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format (text, html, markdown, json, csv)")
	rootCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path (format inferred from extension if -f not specified)")
	rootCmd.Flags().DurationVarP(&timeout, "timeout", "t", 30*time.Second, "Page load timeout")
	rootCmd.Flags().StringVar(&apiBase, "api-base", "", "Remote description service base URL (overrides config)")
	rootCmd.Flags().StringVar(&expandText, "expand-text", "", "Exact text of the lazy expand control (overrides config)")
	rootCmd.Flags().StringVar(&targetID, "target-id", "", "Id of the introduction region (overrides config)")
	rootCmd.Flags().DurationVar(&pollInterval, "interval", 0, "Expand-control poll interval (overrides config)")
	rootCmd.Flags().IntVar(&pollAttempts, "attempts", 0, "Expand-control poll budget (overrides config)")
	rootCmd.Flags().DurationVar(&waitTimeout, "wait-timeout", 0, "Appearance wait budget (overrides config)")
	rootCmd.Flags().BoolVar(&showUI, "showui", false, "Show browser UI (disable headless mode)")
	rootCmd.Flags().StringVarP(&proxyURL, "proxy", "p", os.Getenv("INTROSCAN_PROXY"), "Proxy URL, defaults to INTROSCAN_PROXY env var")

	mockCmd := &cobra.Command{
		Use:   "mock",
		Short: "Serve a stub image-to-text service for local runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(os.Stderr, "mock description service listening on %s\n", mockAddr)
			return mockapi.Run(mockAddr)
		},
	}
	mockCmd.Flags().StringVar(&mockAddr, "addr", ":8080", "Listen address")
	rootCmd.AddCommand(mockCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	target := args[0]

	if outputFile != "" && outputFormat == "text" {
		if inferred := inferFormatFromExtension(outputFile); inferred != "" {
			outputFormat = inferred
		}
	}
	if err := validateFormat(outputFormat); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyOverrides(cfg)

	bus := relay.NewBus(cfg.API.Timeout)
	defer bus.Close()
	bg := relay.NewBackground(cfg.API.BaseURL, cfg.API.Timeout)
	if err := bus.Register(relay.EndpointBackground, bg.Handle); err != nil {
		return err
	}

	surface, cleanup, err := buildSurface(target, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	pipeline, err := page.NewPipeline(surface, bus, cfg.Pipeline())
	if err != nil {
		return err
	}

	start := time.Now()
	if err := pipeline.Start(); err != nil {
		return fmt.Errorf("failed to run pipeline: %w", err)
	}
	duration := time.Since(start)

	// The query host fetches the snapshot over the relay, the same path the
	// end user's popup takes.
	snapshot, err := popup.NewClient(bus).Fetch()
	if err != nil {
		return err
	}

	summary := pipeline.Summary()
	rep := report.New(surface.Location(), summary.Identity, snapshot, summary.Description, duration)

	outputContent, err := formatter.Format(rep, outputFormat)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(outputContent), 0644); err != nil {
			return fmt.Errorf("failed to write to file: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Output written to: %s\n", outputFile)
	} else {
		fmt.Println(outputContent)
	}
	return nil
}

// buildSurface picks the live browser surface for http(s) targets and the
// in-memory document surface for local HTML files.
func buildSurface(target string, cfg *config.Config) (page.Surface, func(), error) {
	lower := strings.ToLower(target)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		b, err := browser.New(browser.Config{Headless: !showUI, ProxyURL: proxyURL})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create browser: %w", err)
		}
		driver, err := live.NewDriver(b, cfg.Selectors())
		if err != nil {
			b.Close()
			return nil, nil, err
		}
		if err := driver.Navigate(target, timeout); err != nil {
			driver.Close()
			b.Close()
			return nil, nil, err
		}
		return driver, func() { driver.Close(); b.Close() }, nil
	}

	src, err := os.ReadFile(target)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read page file: %w", err)
	}
	doc, err := dom.NewDocument(string(src))
	if err != nil {
		return nil, nil, err
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		abs = target
	}
	surface := page.NewDocSurface(doc, "file://"+abs, cfg.Selectors())
	return surface, func() {}, nil
}

func applyOverrides(cfg *config.Config) {
	if apiBase != "" {
		cfg.API.BaseURL = apiBase
	}
	if expandText != "" {
		cfg.Scan.ExpandText = expandText
	}
	if targetID != "" {
		cfg.Scan.TargetID = targetID
	}
	if pollInterval > 0 {
		cfg.Scan.PollInterval = pollInterval
	}
	if pollAttempts > 0 {
		cfg.Scan.PollAttempts = pollAttempts
	}
	if waitTimeout > 0 {
		cfg.Scan.WaitTimeout = waitTimeout
	}
}

func validateFormat(format string) error {
	validFormats := map[string]bool{
		"html":     true,
		"text":     true,
		"markdown": true,
		"json":     true,
		"csv":      true,
	}
	if !validFormats[format] {
		return fmt.Errorf("invalid output format: %s", format)
	}
	return nil
}

// inferFormatFromExtension infers output format from file extension
func inferFormatFromExtension(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".md", ".markdown":
		return "markdown"
	case ".json":
		return "json"
	case ".html", ".htm":
		return "html"
	case ".txt":
		return "text"
	case ".csv":
		return "csv"
	default:
		return ""
	}
}
