package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"formprobe/internal/config"

	"github.com/alicebob/miniredis/v2"
)

func TestLoadPayloadsPrecedence(t *testing.T) {
	file := filepath.Join(t.TempDir(), "payloads.json")
	if err := os.WriteFile(file, []byte(`{"sqli": ["1' AND SLEEP(0)--"]}`), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := loadPayloads(config.PayloadConfig{
		File: file,
		XSS:  []string{"<svg onload=1>"},
		SQLi: []string{"inline"},
	})
	if err != nil {
		t.Fatalf("loadPayloads() error: %v", err)
	}
	if len(p.XSS) != 1 || p.XSS[0] != "<svg onload=1>" {
		t.Errorf("inline xss list not kept: %v", p.XSS)
	}
	if len(p.SQLi) != 1 || p.SQLi[0] != "1' AND SLEEP(0)--" {
		t.Errorf("file sqli list must win over inline: %v", p.SQLi)
	}
	if len(p.ErrorPatterns) == 0 {
		t.Error("error patterns must fall back to defaults")
	}
}

func TestLoadPayloadsMissingFile(t *testing.T) {
	if _, err := loadPayloads(config.PayloadConfig{File: filepath.Join(t.TempDir(), "none.json")}); err == nil {
		t.Error("expected error for missing payload file")
	}
}

func TestBuildPipelineRedisFallback(t *testing.T) {
	cfg := config.Settings{
		Target:  config.TargetConfig{MaxURLs: 5},
		Scanner: config.ScannerConfig{Timeout: 1},
		Redis:   config.RedisConfig{Enabled: true, URL: "redis://127.0.0.1:1/0", Key: "k"},
	}
	p, err := buildPipeline(context.Background(), cfg)
	if err != nil {
		t.Fatalf("buildPipeline() error: %v", err)
	}
	defer p.Close()
	if p.redis != nil {
		t.Error("unreachable redis must be dropped, not fatal")
	}

	mr := miniredis.RunT(t)
	cfg.Redis.URL = "redis://" + mr.Addr() + "/0"
	p2, err := buildPipeline(context.Background(), cfg)
	if err != nil {
		t.Fatalf("buildPipeline() error: %v", err)
	}
	defer p2.Close()
	if p2.redis == nil {
		t.Error("expected a redis client when the server is reachable")
	}
}
