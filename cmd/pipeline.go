package cmd

import (
	"context"
	"fmt"
	"time"

	"formprobe/internal/config"
	"formprobe/internal/crawler"
	"formprobe/internal/discovery"
	"formprobe/internal/redis"
	"formprobe/internal/requester"
	"formprobe/internal/vulnscan"

	"github.com/rs/zerolog/log"
)

// pipeline holds the crawl and scan components shared by the serve and spider
// commands.
type pipeline struct {
	client  *requester.HTTPClient
	redis   *redis.Client
	crawler *crawler.Crawler
	engine  *vulnscan.Engine
}

func buildPipeline(ctx context.Context, cfg config.Settings) (*pipeline, error) {
	client := requester.NewHTTPClient(requester.Options{
		Timeout:    time.Duration(cfg.Scanner.Timeout) * time.Second,
		UserAgents: cfg.Scanner.UserAgents,
		Retries:    cfg.Scanner.Retries,
		RateLimit:  cfg.Scanner.RateLimit,
	})

	// Redis only mirrors the visited set; the run proceeds without it.
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rc, err := redis.FromConfig(pingCtx, cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to connect to Redis. Proceeding without Redis.")
		rc = nil
	} else if rc != nil {
		log.Info().Str("key", cfg.Redis.Key).Msg("Mirroring visited URLs to Redis.")
	}

	payloads, err := loadPayloads(cfg.Payloads)
	if err != nil {
		if rc != nil {
			rc.Close()
		}
		return nil, err
	}
	log.Debug().
		Int("xss", len(payloads.XSS)).
		Int("sqli", len(payloads.SQLi)).
		Int("error_patterns", len(payloads.ErrorPatterns)).
		Msg("Payloads loaded")

	delay := time.Duration(cfg.Scanner.DelayMS) * time.Millisecond
	collector := discovery.NewURLCollector(rc.Raw(), cfg.Redis.Key)

	return &pipeline{
		client:  client,
		redis:   rc,
		crawler: crawler.NewCrawler(client, collector, delay),
		engine:  vulnscan.NewEngine(client, payloads, delay),
	}, nil
}

// loadPayloads merges the payload file, the inline lists and the built-in defaults,
// in that order of precedence.
func loadPayloads(cfg config.PayloadConfig) (vulnscan.Payloads, error) {
	p := vulnscan.Payloads{XSS: cfg.XSS, SQLi: cfg.SQLi, ErrorPatterns: cfg.ErrorPatterns}
	if cfg.File != "" {
		fromFile, err := vulnscan.LoadPayloads(cfg.File)
		if err != nil {
			return p, fmt.Errorf("error loading payloads: %w", err)
		}
		if len(fromFile.XSS) > 0 {
			p.XSS = fromFile.XSS
		}
		if len(fromFile.SQLi) > 0 {
			p.SQLi = fromFile.SQLi
		}
		if len(fromFile.ErrorPatterns) > 0 {
			p.ErrorPatterns = fromFile.ErrorPatterns
		}
	}
	return p.WithDefaults(), nil
}

func (p *pipeline) Close() {
	if p.redis != nil {
		if err := p.redis.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close Redis client")
		}
	}
}
