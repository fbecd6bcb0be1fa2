// Package crawler walks a target site breadth-first and collects the forms it finds.
package crawler

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"formprobe/internal/discovery"
	"formprobe/internal/models"
	"formprobe/internal/util"

	"github.com/rs/zerolog/log"
)

// LogFunc receives human-readable progress lines.
type LogFunc func(msg string)

// PageObserver is notified of every page the crawler visits.
type PageObserver interface {
	ObservePage(page discovery.Page) error
}

// Crawler is responsible for fetching pages of a single domain and extracting
// the links and forms on them.
type Crawler struct {
	client    discovery.Fetcher
	collector *discovery.URLCollector
	delay     time.Duration
	observer  PageObserver
}

// NewCrawler creates a new Crawler. collector holds the visited set and is reset at
// the start of every crawl; delay is the pause after each page.
func NewCrawler(client discovery.Fetcher, collector *discovery.URLCollector, delay time.Duration) *Crawler {
	return &Crawler{
		client:    client,
		collector: collector,
		delay:     delay,
	}
}

// SetObserver registers an observer for visited pages.
func (c *Crawler) SetObserver(o PageObserver) {
	c.observer = o
}

// Crawl visits at most maxURLs distinct URLs reachable from seed on the seed's host,
// breadth-first, and returns every form found, ordered by the visit order of the
// page it was found on. Cancellation of ctx is checked before each page and once the
// loop ends; a fetch in progress is allowed to finish and the endpoints gathered so
// far are returned with a Canceled outcome.
func (c *Crawler) Crawl(ctx context.Context, seed string, maxURLs int, logf LogFunc) ([]models.Endpoint, models.Outcome, error) {
	if logf == nil {
		logf = func(string) {}
	}

	seedURL, err := url.Parse(seed)
	if err != nil {
		return nil, models.Completed, fmt.Errorf("invalid seed URL: %w", err)
	}
	if (seedURL.Scheme != "http" && seedURL.Scheme != "https") || seedURL.Host == "" {
		return nil, models.Completed, fmt.Errorf("invalid seed URL %q: need an absolute http(s) URL", seed)
	}
	seed = util.SanitizeURL(seedURL).String()

	extractor := discovery.NewExtractor(c.client, seedURL.Host)
	c.collector.Reset(ctx)

	frontier := []string{seed}
	queued := map[string]struct{}{seed: {}}
	endpoints := []models.Endpoint{}

	for len(frontier) > 0 && c.collector.Len() < maxURLs {
		if ctx.Err() != nil {
			log.Info().Int("visited", c.collector.Len()).Msg("Crawl canceled")
			return endpoints, models.Canceled, nil
		}

		current := frontier[0]
		frontier = frontier[1:]
		delete(queued, current)

		if !c.collector.Add(ctx, current) {
			continue
		}

		logf("Crawling: " + current)
		page := extractor.Fetch(context.WithoutCancel(ctx), current)
		if page.Err != nil {
			log.Warn().Err(page.Err).Str("url", current).Msg("Error crawling page, skipping.")
			logf(fmt.Sprintf("  -> Failed to fetch %s: %v", current, page.Err))
		}

		if c.observer != nil {
			if err := c.observer.ObservePage(page); err != nil {
				log.Warn().Err(err).Str("url", current).Msg("Page observer failed")
			}
		}

		for _, link := range page.Links {
			if _, ok := queued[link]; ok || c.collector.Has(link) {
				continue
			}
			queued[link] = struct{}{}
			frontier = append(frontier, link)
		}

		if len(page.Forms) > 0 {
			log.Debug().Str("url", current).Int("forms", len(page.Forms)).Msg("Found forms")
			endpoints = append(endpoints, page.Forms...)
		}

		pause(ctx, c.delay)
	}

	if ctx.Err() != nil {
		log.Info().Int("visited", c.collector.Len()).Msg("Crawl canceled")
		return endpoints, models.Canceled, nil
	}
	log.Info().Int("visited", c.collector.Len()).Int("endpoints", len(endpoints)).Msg("Crawl complete")
	return endpoints, models.Completed, nil
}

// Visited returns the URLs visited by the last crawl in visit order.
func (c *Crawler) Visited() []string {
	return c.collector.GetCrawledURLs()
}

// pause waits for d or until ctx is done.
func pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
