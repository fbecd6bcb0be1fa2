// Package reporter writes the results of a spider run to JSON and plain-text files.
package reporter

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"formprobe/internal/config"
	"formprobe/internal/models"

	"github.com/rs/zerolog/log"
)

// ScanSummary provides a high-level overview of the scan results.
type ScanSummary struct {
	RunID                string    `json:"run_id"`
	TargetURL            string    `json:"target_url"`
	ScanStartTime        time.Time `json:"scan_start_time"`
	ScanEndTime          time.Time `json:"scan_end_time"`
	TotalDuration        string    `json:"total_duration"`
	Outcome              string    `json:"outcome"`
	URLsVisited          int       `json:"urls_visited"`
	EndpointsFound       int       `json:"endpoints_found"`
	VulnerabilitiesFound int       `json:"vulnerabilities_found"`
}

// Report is the top-level structure for the final JSON report.
type Report struct {
	Summary         ScanSummary       `json:"summary"`
	Configuration   *config.Settings  `json:"configuration,omitempty"`
	Visited         []string          `json:"visited"`
	Endpoints       []models.Endpoint `json:"endpoints"`
	Vulnerabilities []models.Finding  `json:"vulnerabilities"`
}

// NewReport assembles a Report and fills in the derived summary fields.
func NewReport(runID, target string, start, end time.Time, outcome models.Outcome, cfg *config.Settings,
	visited []string, endpoints []models.Endpoint, findings []models.Finding) Report {
	if visited == nil {
		visited = []string{}
	}
	if endpoints == nil {
		endpoints = []models.Endpoint{}
	}
	if findings == nil {
		findings = []models.Finding{}
	}
	return Report{
		Summary: ScanSummary{
			RunID:                runID,
			TargetURL:            target,
			ScanStartTime:        start,
			ScanEndTime:          end,
			TotalDuration:        end.Sub(start).Round(time.Millisecond).String(),
			Outcome:              outcome.String(),
			URLsVisited:          len(visited),
			EndpointsFound:       len(endpoints),
			VulnerabilitiesFound: len(findings),
		},
		Configuration:   cfg,
		Visited:         visited,
		Endpoints:       endpoints,
		Vulnerabilities: findings,
	}
}

// Exporter writes a Report somewhere.
type Exporter interface {
	Export(report Report) error
}

// JSONExporter handles the creation of the JSON report file.
type JSONExporter struct {
	OutputPath string
}

// NewJSONExporter creates a new exporter that will write to the specified path.
func NewJSONExporter(outputPath string) (*JSONExporter, error) {
	if err := ensureDir(outputPath); err != nil {
		return nil, err
	}
	return &JSONExporter{OutputPath: outputPath}, nil
}

// Export generates and saves the JSON report.
func (e *JSONExporter) Export(report Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report to JSON: %w", err)
	}

	if err := os.WriteFile(e.OutputPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write JSON report to file: %w", err)
	}

	log.Info().Str("path", e.OutputPath).Msg("JSON report saved successfully.")
	return nil
}

// TxtExporter handles the creation of the TXT report file.
type TxtExporter struct {
	OutputPath string
}

// NewTxtExporter creates a new exporter that will write to the specified path.
func NewTxtExporter(outputPath string) (*TxtExporter, error) {
	if err := ensureDir(outputPath); err != nil {
		return nil, err
	}
	return &TxtExporter{OutputPath: outputPath}, nil
}

// Export generates and saves the TXT report.
func (e *TxtExporter) Export(report Report) error {
	file, err := os.Create(e.OutputPath)
	if err != nil {
		return fmt.Errorf("failed to create TXT report file: %w", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	rule := strings.Repeat("=", 35)
	thin := strings.Repeat("-", 35)

	// --- Summary ---
	s := report.Summary
	fmt.Fprintln(w, "Scan Report")
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "Summary")
	fmt.Fprintln(w, thin)
	fmt.Fprintf(w, "Run ID:                %s\n", s.RunID)
	fmt.Fprintf(w, "Target URL:            %s\n", s.TargetURL)
	fmt.Fprintf(w, "Scan Start Time:       %s\n", s.ScanStartTime.Format(time.RFC3339))
	fmt.Fprintf(w, "Scan End Time:         %s\n", s.ScanEndTime.Format(time.RFC3339))
	fmt.Fprintf(w, "Total Duration:        %s\n", s.TotalDuration)
	fmt.Fprintf(w, "Outcome:               %s\n", s.Outcome)
	fmt.Fprintf(w, "URLs Visited:          %d\n", s.URLsVisited)
	fmt.Fprintf(w, "Form Endpoints:        %d\n", s.EndpointsFound)
	fmt.Fprintf(w, "Vulnerabilities Found: %d\n", s.VulnerabilitiesFound)
	fmt.Fprintln(w, rule)

	// --- Configuration ---
	if cfg := report.Configuration; cfg != nil {
		fmt.Fprintln(w, "Configuration")
		fmt.Fprintln(w, thin)
		fmt.Fprintf(w, "Max URLs:              %d\n", cfg.Target.MaxURLs)
		fmt.Fprintf(w, "Request Timeout:       %ds\n", cfg.Scanner.Timeout)
		fmt.Fprintf(w, "Request Delay:         %dms\n", cfg.Scanner.DelayMS)
		fmt.Fprintf(w, "Request Rate Limit:    %d\n", cfg.Scanner.RateLimit)
		fmt.Fprintf(w, "User Agents:           %s\n", strings.Join(cfg.Scanner.UserAgents, ", "))
		fmt.Fprintln(w, rule)
	}

	// --- Endpoints ---
	fmt.Fprintln(w, "Form Endpoints")
	fmt.Fprintln(w, thin)
	for _, ep := range report.Endpoints {
		fmt.Fprintf(w, "%-4s %s [%s]\n", ep.Method, ep.Action, strings.Join(ep.Names(), ", "))
	}
	fmt.Fprintln(w, rule)

	// --- Vulnerabilities ---
	fmt.Fprintln(w, "Vulnerabilities")
	fmt.Fprintln(w, thin)
	if len(report.Vulnerabilities) == 0 {
		fmt.Fprintln(w, "\nNo vulnerabilities found.")
	} else {
		for _, vuln := range report.Vulnerabilities {
			fmt.Fprintln(w)
			fmt.Fprintf(w, "Vulnerability:  %s\n", vuln.Kind)
			fmt.Fprintf(w, "URL:            %s\n", vuln.URL)
			fmt.Fprintf(w, "Method:         %s\n", vuln.Method)
			fmt.Fprintf(w, "Payload:        %s\n", vuln.Payload)
			fmt.Fprintln(w, thin)
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write TXT report: %w", err)
	}

	log.Info().Str("path", e.OutputPath).Msg("TXT report saved successfully.")
	return nil
}

// ExportAll writes report through every exporter and returns the first error.
func ExportAll(report Report, exporters ...Exporter) error {
	for _, e := range exporters {
		if err := e.Export(report); err != nil {
			return err
		}
	}
	return nil
}

func ensureDir(outputPath string) error {
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}
