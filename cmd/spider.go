package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"formprobe/internal/core"
	"formprobe/internal/discovery"
	"formprobe/internal/models"
	"formprobe/internal/reporter"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	targetURL string
	maxURLs   int
	outputDir string
	journal   string
)

var spiderCmd = &cobra.Command{
	Use:   "spider -u <target-url>",
	Short: "Crawl a website and scan its forms in the foreground",
	Long: `The spider command crawls the target, then probes every discovered form for
XSS and SQL injection, prints the findings and writes JSON and text reports.
Ctrl-C stops the active phase; partial results are still reported.`,
	RunE: runSpider,
}

func init() {
	rootCmd.AddCommand(spiderCmd)
	spiderCmd.Flags().StringVarP(&targetURL, "url", "u", "", "Target URL to crawl (overrides target.url)")
	spiderCmd.Flags().IntVar(&maxURLs, "max-urls", 0, "Maximum number of pages to visit (overrides target.max_urls)")
	spiderCmd.Flags().StringVarP(&outputDir, "output", "o", "", "Directory to save reports (overrides reporting.path)")
	spiderCmd.Flags().StringVar(&journal, "journal", "", "File name for the crawl journal inside the output directory (overrides reporting.discovered_urls_file)")
}

func runSpider(cmd *cobra.Command, args []string) error {
	cfg := settings
	if targetURL != "" {
		cfg.Target.URL = targetURL
	}
	if maxURLs > 0 {
		cfg.Target.MaxURLs = maxURLs
	}
	if outputDir != "" {
		cfg.Reporting.Path = outputDir
	}
	if journal != "" {
		cfg.Reporting.DiscoveredUrlsFile = journal
	}
	if cfg.Target.URL == "" {
		cmd.Help()
		return errors.New("a target URL must be provided with the -u or --url flag")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := buildPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	if cfg.Reporting.DiscoveredUrlsFile != "" {
		if err := os.MkdirAll(cfg.Reporting.Path, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		sw, err := discovery.NewSpiderWriter(filepath.Join(cfg.Reporting.Path, cfg.Reporting.DiscoveredUrlsFile))
		if err != nil {
			return err
		}
		defer sw.Close()
		p.crawler.SetObserver(sw)
	}

	coord := core.NewCoordinator(p.crawler, p.engine, cfg.Target.MaxURLs)
	go func() {
		<-ctx.Done()
		coord.Stop()
	}()

	start := time.Now()
	outcome := models.Completed

	log.Info().Msg("[Phase 1/2] Crawling...")
	if err := coord.StartCrawl(cfg.Target.URL); err != nil {
		return err
	}
	coord.Wait()

	switch {
	case ctx.Err() != nil:
		outcome = models.Canceled
	case coord.Status().EndpointsCount == 0:
		log.Info().Msg("No form endpoints found, nothing to scan.")
	default:
		log.Info().Msg("[Phase 2/2] Scanning...")
		if err := coord.StartScan(); err != nil {
			return err
		}
		coord.Wait()
		if ctx.Err() != nil {
			outcome = models.Canceled
		}
	}

	st := coord.Status()
	printFindings(st.Vulnerabilities)

	report := reporter.NewReport(st.RunID, cfg.Target.URL, start, time.Now(), outcome, &cfg,
		p.crawler.Visited(), st.Endpoints, st.Vulnerabilities)
	base := filepath.Join(cfg.Reporting.Path, cfg.Reporting.VulnReportFile)
	jsonExporter, err := reporter.NewJSONExporter(base + ".json")
	if err != nil {
		return err
	}
	txtExporter, err := reporter.NewTxtExporter(base + ".txt")
	if err != nil {
		return err
	}
	return reporter.ExportAll(report, jsonExporter, txtExporter)
}

func printFindings(findings []models.Finding) {
	if len(findings) == 0 {
		fmt.Println(color.GreenString("No vulnerabilities found."))
		return
	}
	for _, f := range findings {
		fmt.Printf("%s %s %s payload=%q\n", color.RedString("[%s]", f.Kind), f.Method, f.URL, f.Payload)
	}
	fmt.Println(color.RedString("%d potential vulnerabilities found.", len(findings)))
}
