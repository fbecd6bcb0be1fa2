package vulnscan

import (
	"context"
	"fmt"
	"strings"

	"formprobe/internal/models"

	"github.com/rs/zerolog/log"
)

// SQLiCheck flags an endpoint when a payload provokes a database error message.
type SQLiCheck struct {
	client        Sender
	payloads      []string
	errorPatterns []string
}

// NewSQLiCheck creates a SQLiCheck. Patterns are matched case-insensitively.
func NewSQLiCheck(client Sender, payloads, errorPatterns []string) *SQLiCheck {
	patterns := make([]string, 0, len(errorPatterns))
	for _, p := range errorPatterns {
		if p = strings.ToLower(p); p != "" {
			patterns = append(patterns, p)
		}
	}
	return &SQLiCheck{client: client, payloads: payloads, errorPatterns: patterns}
}

// Kind returns models.SQLInjection.
func (c *SQLiCheck) Kind() models.FindingKind {
	return models.SQLInjection
}

// Probe returns a finding for the first payload whose response contains an error
// signature.
func (c *SQLiCheck) Probe(ctx context.Context, ep models.Endpoint, logf LogFunc) *models.Finding {
	for _, payload := range c.payloads {
		if ctx.Err() != nil {
			return nil
		}

		resp, err := inject(ctx, c.client, ep, payload)
		if err != nil {
			log.Warn().Err(err).Str("url", ep.Action).Str("payload", payload).Msg("Failed to send SQLi test request")
			logf(fmt.Sprintf("  -> SQL injection request to %s failed: %v", ep.Action, err))
			continue
		}

		if pattern, ok := c.matchError(resp.Body); ok {
			log.Debug().Str("url", ep.Action).Str("pattern", pattern).Msg("SQL error signature matched")
			return newFinding(c.Kind(), ep, payload)
		}
	}
	return nil
}

func (c *SQLiCheck) matchError(body string) (string, bool) {
	lower := strings.ToLower(body)
	for _, pattern := range c.errorPatterns {
		if strings.Contains(lower, pattern) {
			return pattern, true
		}
	}
	return "", false
}
