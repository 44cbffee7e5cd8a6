package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seqfetch.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_FullConfig(t *testing.T) {
	content := `id_list: /data/ids.txt
metadata: /data/metadata.tsv
out_dir: /data/out
threads: 8
parallel: 3
force: true
report: "-"
tools:
  amalgkit: /opt/amalgkit
  bin_dir: /opt/sra/bin
http:
  connect_timeout: 10s
  transfer_timeout: 2m
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.IDList != "/data/ids.txt" || cfg.Metadata != "/data/metadata.tsv" {
		t.Errorf("inputs: %+v", cfg)
	}
	if cfg.Threads != 8 || cfg.Parallel != 3 || !cfg.Force {
		t.Errorf("tuning: %+v", cfg)
	}
	if cfg.Tools.Amalgkit != "/opt/amalgkit" || cfg.Tools.BinDir != "/opt/sra/bin" {
		t.Errorf("tools: %+v", cfg.Tools)
	}
	if cfg.HTTP.ConnectTimeout.Duration != 10*time.Second {
		t.Errorf("connect timeout: %v", cfg.HTTP.ConnectTimeout)
	}
	if cfg.HTTP.TransferTimeout.Duration != 2*time.Minute {
		t.Errorf("transfer timeout: %v", cfg.HTTP.TransferTimeout)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("SEQFETCH_OUT", "/scratch/reads")
	content := "out_dir: ${SEQFETCH_OUT}\nmetadata: ${SEQFETCH_META:-/data/default.tsv}\n"
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.OutDir != "/scratch/reads" {
		t.Errorf("got out_dir %q", cfg.OutDir)
	}
	if cfg.Metadata != "/data/default.tsv" {
		t.Errorf("got metadata %q", cfg.Metadata)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("got nil error for missing config")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "threads: [not closed\n"))
	if err == nil {
		t.Fatal("got nil error for invalid YAML")
	}
}

func TestDuration_InvalidString(t *testing.T) {
	_, err := Load(writeConfig(t, "http:\n  connect_timeout: banana\n"))
	if err == nil {
		t.Fatal("got nil error for unparseable duration")
	}
}

func TestDuration_EmptyIsZero(t *testing.T) {
	cfg, err := Load(writeConfig(t, "http:\n  connect_timeout: \"\"\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HTTP.ConnectTimeout.Duration != 0 {
		t.Errorf("got %v, want zero", cfg.HTTP.ConnectTimeout)
	}
}
