package vulnscan

import (
	"context"
	"fmt"
	"strings"

	"formprobe/internal/models"

	"github.com/rs/zerolog/log"
)

// XSSCheck flags an endpoint when a payload comes back unescaped in the response.
type XSSCheck struct {
	client   Sender
	payloads []string
}

// NewXSSCheck creates an XSSCheck trying payloads in order.
func NewXSSCheck(client Sender, payloads []string) *XSSCheck {
	return &XSSCheck{client: client, payloads: payloads}
}

// Kind returns models.XSS.
func (c *XSSCheck) Kind() models.FindingKind {
	return models.XSS
}

// Probe returns a finding for the first payload reflected verbatim.
func (c *XSSCheck) Probe(ctx context.Context, ep models.Endpoint, logf LogFunc) *models.Finding {
	for _, payload := range c.payloads {
		if ctx.Err() != nil {
			return nil
		}

		resp, err := inject(ctx, c.client, ep, payload)
		if err != nil {
			log.Warn().Err(err).Str("url", ep.Action).Str("payload", payload).Msg("Failed to send XSS test request")
			logf(fmt.Sprintf("  -> XSS request to %s failed: %v", ep.Action, err))
			continue
		}

		if strings.Contains(resp.Body, payload) {
			return newFinding(c.Kind(), ep, payload)
		}
	}
	return nil
}
