// Package core sequences the crawl and scan phases and exposes their progress.
package core

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"formprobe/internal/crawler"
	"formprobe/internal/models"
	"formprobe/internal/vulnscan"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	// ErrBusy is returned when a phase is started while another one is running.
	ErrBusy = errors.New("a crawl or scan is already in progress")
	// ErrNoEndpoints is returned when a scan is started before a crawl found forms.
	ErrNoEndpoints = errors.New("no endpoints found, please run a crawl first")
	// ErrURLRequired is returned when a crawl is started without a target.
	ErrURLRequired = errors.New("url is required")
	// ErrInvalidURL is returned when the crawl target is not an absolute http(s) URL.
	ErrInvalidURL = errors.New("invalid url")
)

// Phase is the coordinator's single state; at most one phase runs at a time.
type Phase int

const (
	Idle Phase = iota
	Crawling
	Scanning
)

func (p Phase) String() string {
	switch p {
	case Crawling:
		return "crawling"
	case Scanning:
		return "scanning"
	default:
		return "idle"
	}
}

// CrawlRunner discovers form endpoints from a seed URL.
type CrawlRunner interface {
	Crawl(ctx context.Context, seed string, maxURLs int, logf crawler.LogFunc) ([]models.Endpoint, models.Outcome, error)
}

// ScanRunner probes endpoints for vulnerabilities.
type ScanRunner interface {
	Scan(ctx context.Context, endpoints []models.Endpoint, logf vulnscan.LogFunc) ([]models.Finding, models.Outcome)
}

// Status is a consistent snapshot of the coordinator's state.
type Status struct {
	RunID           string            `json:"run_id"`
	Phase           string            `json:"phase"`
	Target          string            `json:"target"`
	IsCrawling      bool              `json:"is_crawling"`
	IsScanning      bool              `json:"is_scanning"`
	Logs            []string          `json:"logs"`
	EndpointsCount  int               `json:"endpoints_count"`
	Endpoints       []models.Endpoint `json:"-"`
	Vulnerabilities []models.Finding  `json:"vulnerabilities"`
}

// Coordinator runs crawl and scan as background tasks, one at a time, and publishes
// their results. The phase only returns to Idle after the background task has
// published its output, so a new run never overlaps a finishing one.
type Coordinator struct {
	crawler CrawlRunner
	scanner ScanRunner
	maxURLs int
	log     *RunLog

	mu        sync.Mutex
	phase     Phase
	runID     string
	target    string
	endpoints []models.Endpoint
	findings  []models.Finding
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewCoordinator creates an idle Coordinator.
func NewCoordinator(c CrawlRunner, s ScanRunner, maxURLs int) *Coordinator {
	return &Coordinator{
		crawler: c,
		scanner: s,
		maxURLs: maxURLs,
		log:     NewRunLog(),
	}
}

// StartCrawl begins a crawl of target in the background. Previous logs, endpoints
// and findings are discarded.
func (c *Coordinator) StartCrawl(target string) error {
	target = strings.TrimSpace(target)
	if target == "" {
		return ErrURLRequired
	}
	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidURL, target)
	}

	c.mu.Lock()
	if c.phase != Idle {
		c.mu.Unlock()
		return ErrBusy
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.phase = Crawling
	c.runID = uuid.NewString()
	c.target = target
	c.endpoints = nil
	c.findings = nil
	c.cancel = cancel
	c.done = done
	c.log.Reset()
	runID := c.runID
	c.mu.Unlock()

	log.Info().Str("run", runID).Str("url", target).Msg("Crawl phase starting")
	c.log.Append("Starting crawl for " + target)

	go func() {
		defer close(done)
		defer cancel()

		endpoints, outcome, err := c.crawler.Crawl(ctx, target, c.maxURLs, c.log.Append)
		switch {
		case err != nil:
			log.Error().Err(err).Str("run", runID).Msg("Crawl failed")
			c.log.Append(fmt.Sprintf("Crawl failed: %v", err))
		case outcome == models.Canceled:
			c.log.Append(fmt.Sprintf("Crawl stopped by user. Found %d form endpoints.", len(endpoints)))
		default:
			c.log.Append(fmt.Sprintf("Crawl finished. Found %d form endpoints.", len(endpoints)))
		}

		c.mu.Lock()
		c.endpoints = endpoints
		c.phase = Idle
		c.cancel = nil
		c.mu.Unlock()
	}()

	return nil
}

// StartScan probes the endpoints of the last crawl in the background.
func (c *Coordinator) StartScan() error {
	c.mu.Lock()
	if c.phase != Idle {
		c.mu.Unlock()
		return ErrBusy
	}
	if len(c.endpoints) == 0 {
		c.mu.Unlock()
		return ErrNoEndpoints
	}
	endpoints := make([]models.Endpoint, len(c.endpoints))
	copy(endpoints, c.endpoints)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.phase = Scanning
	c.cancel = cancel
	c.done = done
	runID := c.runID
	c.mu.Unlock()

	log.Info().Str("run", runID).Int("endpoints", len(endpoints)).Msg("Scan phase starting")
	c.log.Append("Starting vulnerability scan on discovered endpoints...")

	go func() {
		defer close(done)
		defer cancel()

		findings, outcome := c.scanner.Scan(ctx, endpoints, c.log.Append)
		if outcome == models.Canceled {
			c.log.Append(fmt.Sprintf("Scan canceled. Found %d potential vulnerabilities.", len(findings)))
		} else {
			c.log.Append(fmt.Sprintf("Scan finished. Found %d potential vulnerabilities.", len(findings)))
		}

		c.mu.Lock()
		c.findings = findings
		c.phase = Idle
		c.cancel = nil
		c.mu.Unlock()
	}()

	return nil
}

// Stop asks the running phase to stop at its next checkpoint. It reports whether a
// phase was running.
func (c *Coordinator) Stop() bool {
	c.mu.Lock()
	cancel := c.cancel
	phase := c.phase
	c.mu.Unlock()

	if cancel == nil {
		return false
	}
	c.log.Append(fmt.Sprintf("Stop requested while %s.", phase))
	cancel()
	return true
}

// Wait blocks until the most recently started phase has exited.
func (c *Coordinator) Wait() {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()

	if done != nil {
		<-done
	}
}

// Shutdown stops any running phase and waits for it to exit or for ctx to end.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.Stop()

	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done == nil {
		return nil
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status returns a snapshot safe to hand to other goroutines.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	endpoints := make([]models.Endpoint, len(c.endpoints))
	copy(endpoints, c.endpoints)
	findings := make([]models.Finding, len(c.findings))
	copy(findings, c.findings)

	return Status{
		RunID:           c.runID,
		Phase:           c.phase.String(),
		Target:          c.target,
		IsCrawling:      c.phase == Crawling,
		IsScanning:      c.phase == Scanning,
		Logs:            c.log.Snapshot(),
		EndpointsCount:  len(endpoints),
		Endpoints:       endpoints,
		Vulnerabilities: findings,
	}
}
