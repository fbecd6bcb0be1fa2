package vulnscan

import (
	"context"
	"fmt"
	"time"

	"formprobe/internal/models"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
)

// Engine is the vulnerability scanning engine. Endpoints are scanned one at a time
// and checks run in registration order, so findings come out in a fixed order.
type Engine struct {
	checks []Check
	delay  time.Duration
}

// NewEngine creates an engine running the XSS check and then the SQLi check.
func NewEngine(client Sender, payloads Payloads, delay time.Duration) *Engine {
	payloads = payloads.WithDefaults()
	return NewEngineWithChecks(delay,
		NewXSSCheck(client, payloads.XSS),
		NewSQLiCheck(client, payloads.SQLi, payloads.ErrorPatterns),
	)
}

// NewEngineWithChecks creates an engine running the given checks in order.
func NewEngineWithChecks(delay time.Duration, checks ...Check) *Engine {
	return &Engine{checks: checks, delay: delay}
}

// Scan runs every check against every testable endpoint, in input order. When ctx is
// canceled the scan stops before the next endpoint and returns what it has found.
func (e *Engine) Scan(ctx context.Context, endpoints []models.Endpoint, logf LogFunc) ([]models.Finding, models.Outcome) {
	if logf == nil {
		logf = func(string) {}
	}
	findings := []models.Finding{}

	for i, ep := range endpoints {
		if ctx.Err() != nil {
			return canceled(findings, i, logf)
		}

		logf(fmt.Sprintf("Scanning endpoint %d/%d: %s %s", i+1, len(endpoints), ep.Method, ep.Action))
		if !ep.Testable() {
			continue
		}

		for _, check := range e.checks {
			if finding := check.Probe(ctx, ep, logf); finding != nil {
				findings = append(findings, *finding)
				logf(fmt.Sprintf("  -> Found potential %s at %s with payload: %s", finding.Kind, finding.URL, finding.Payload))
				log.Info().Str("type", string(finding.Kind)).Str("url", finding.URL).Str("method", finding.Method).Msg(color.RedString("Vulnerability Found!"))
			}
			// A check cut short by cancellation leaves the endpoint partly tested.
			if ctx.Err() != nil {
				return canceled(findings, i, logf)
			}
		}

		pause(ctx, e.delay)
	}

	if ctx.Err() != nil {
		return canceled(findings, len(endpoints), logf)
	}
	return findings, models.Completed
}

func canceled(findings []models.Finding, scanned int, logf LogFunc) ([]models.Finding, models.Outcome) {
	logf("Scan stopped by user.")
	log.Info().Int("scanned", scanned).Int("findings", len(findings)).Msg("Scan canceled")
	return findings, models.Canceled
}

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
