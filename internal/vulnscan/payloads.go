package vulnscan

import (
	"fmt"

	"github.com/spf13/viper"
)

// Payloads holds the literal probes and database error signatures used by the
// checks. Order matters: payloads are tried first to last and the first hit wins.
type Payloads struct {
	XSS           []string `json:"xss" mapstructure:"xss"`
	SQLi          []string `json:"sqli" mapstructure:"sqli"`
	ErrorPatterns []string `json:"error_patterns" mapstructure:"error_patterns"`
}

// DefaultPayloads returns the built-in payload sets.
func DefaultPayloads() Payloads {
	return Payloads{
		XSS: []string{
			`<script>alert("XSS")</script>`,
			`<img src=x onerror=alert("XSS")>`,
		},
		SQLi: []string{
			"' OR '1'='1",
			"' OR 1=1--",
			"admin'--",
		},
		ErrorPatterns: []string{
			"sql",
			"syntax",
			"mysql",
			"unclosed quotation",
			"you have an error in your sql syntax",
		},
	}
}

// WithDefaults fills any empty list from DefaultPayloads.
func (p Payloads) WithDefaults() Payloads {
	d := DefaultPayloads()
	if len(p.XSS) == 0 {
		p.XSS = d.XSS
	}
	if len(p.SQLi) == 0 {
		p.SQLi = d.SQLi
	}
	if len(p.ErrorPatterns) == 0 {
		p.ErrorPatterns = d.ErrorPatterns
	}
	return p
}

// LoadPayloads reads a payload file of the form
// {"xss": [...], "sqli": [...], "error_patterns": [...]}. The format follows the
// file extension, so YAML works as well as JSON. Lists missing from the file are
// left empty.
func LoadPayloads(file string) (Payloads, error) {
	var p Payloads

	v := viper.New()
	v.SetConfigFile(file)
	if err := v.ReadInConfig(); err != nil {
		return p, fmt.Errorf("failed to read payload file %s: %w", file, err)
	}
	if err := v.Unmarshal(&p); err != nil {
		return p, fmt.Errorf("failed to decode payload file %s: %w", file, err)
	}
	return p, nil
}
