package config

import (
	"fmt"
	"time"
)

// Config represents a seqfetch.yaml configuration file.
// All values are optional and act as defaults for seqfetch fetch flags.
// CLI flags always override config values.
type Config struct {
	IDList   string     `yaml:"id_list"`
	Metadata string     `yaml:"metadata"`
	OutDir   string     `yaml:"out_dir"`
	Threads  int        `yaml:"threads"`
	Parallel int        `yaml:"parallel"`
	Force    bool       `yaml:"force"`
	Report   string     `yaml:"report"`
	Tools    ToolConfig `yaml:"tools"`
	HTTP     HTTPConfig `yaml:"http"`
}

// ToolConfig holds external tool locations from the config file.
type ToolConfig struct {
	Amalgkit string `yaml:"amalgkit"`
	BinDir   string `yaml:"bin_dir"`
}

// HTTPConfig holds mirror transfer tuning from the config file.
type HTTPConfig struct {
	ConnectTimeout  Duration `yaml:"connect_timeout"`
	TransferTimeout Duration `yaml:"transfer_timeout"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}
