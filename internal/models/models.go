// Package models contains the data structures shared by the crawl and scan phases.
package models

// Input is a single named form control discovered on a page.
type Input struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value string `json:"value,omitempty"`
}

// Endpoint is one form-based attack surface: where the form submits, how, and
// which named fields it carries.
type Endpoint struct {
	Action string  `json:"action"`
	Method string  `json:"method"`
	Inputs []Input `json:"inputs"`
}

// Names returns the input names in form order.
func (e Endpoint) Names() []string {
	names := make([]string, 0, len(e.Inputs))
	for _, in := range e.Inputs {
		if in.Name != "" {
			names = append(names, in.Name)
		}
	}
	return names
}

// Testable reports whether the endpoint has at least one named input to inject into.
func (e Endpoint) Testable() bool {
	return len(e.Names()) > 0
}

// FindingKind identifies the vulnerability class a Finding belongs to.
type FindingKind string

const (
	XSS          FindingKind = "XSS"
	SQLInjection FindingKind = "SQL Injection"
)

// Finding is a single positive detection. Findings are never merged: two payloads
// triggering on the same endpoint produce two findings.
type Finding struct {
	Kind    FindingKind `json:"type"`
	URL     string      `json:"url"`
	Method  string      `json:"method"`
	Payload string      `json:"payload"`
}

// Outcome is the terminal state of a crawl or scan phase.
type Outcome int

const (
	Completed Outcome = iota
	Canceled
)

func (o Outcome) String() string {
	if o == Canceled {
		return "canceled"
	}
	return "completed"
}
