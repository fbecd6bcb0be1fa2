// Package vulnscan injects canned payloads into discovered forms and flags
// reflected XSS and error-based SQL injection.
package vulnscan

import (
	"context"
	"net/url"

	"formprobe/internal/models"
	"formprobe/internal/requester"
)

// LogFunc receives human-readable progress lines.
type LogFunc func(msg string)

// Sender is the HTTP capability the checks need.
type Sender interface {
	Send(ctx context.Context, method, target string, params url.Values) (requester.Response, error)
}

// Check probes one endpoint for one vulnerability class.
type Check interface {
	// Kind returns the class of finding the check produces.
	Kind() models.FindingKind
	// Probe tries the check's payloads in order and returns the first finding, or
	// nil. Cancellation of ctx stops the payload loop early.
	Probe(ctx context.Context, ep models.Endpoint, logf LogFunc) *models.Finding
}

// fillParams sets every named input of ep to the same payload.
func fillParams(ep models.Endpoint, payload string) url.Values {
	params := url.Values{}
	for _, name := range ep.Names() {
		params.Set(name, payload)
	}
	return params
}

// inject submits payload in every input of ep using the endpoint's method. The
// request is not interrupted by cancellation of ctx once sent.
func inject(ctx context.Context, client Sender, ep models.Endpoint, payload string) (requester.Response, error) {
	return client.Send(context.WithoutCancel(ctx), ep.Method, ep.Action, fillParams(ep, payload))
}

func newFinding(kind models.FindingKind, ep models.Endpoint, payload string) *models.Finding {
	return &models.Finding{
		Kind:    kind,
		URL:     ep.Action,
		Method:  ep.Method,
		Payload: payload,
	}
}
