package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// JSONWriterConfig holds the settings for the JSON report writer.
type JSONWriterConfig struct {
	RootPath string `yaml:"root_path"`
}

// ClickHouseConfig holds the connection settings for the ClickHouse report
// writer.
type ClickHouseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// SQLiteWriterConfig holds the settings for the SQLite report writer.
type SQLiteWriterConfig struct {
	Path string `yaml:"path"`
}

// WriterDef defines a single report writer from the config file.
type WriterDef struct {
	Type       string             `yaml:"type"`
	Enabled    bool               `yaml:"enabled"`
	JSON       JSONWriterConfig   `yaml:"json"`
	ClickHouse ClickHouseConfig   `yaml:"clickhouse"`
	SQLite     SQLiteWriterConfig `yaml:"sqlite"`
}

// AnalyzerConfig holds the configuration for the analysis pass.
type AnalyzerConfig struct {
	InputPath   string      `yaml:"input_path"`
	TopNodes    int         `yaml:"top_nodes"`
	TopNetworks int         `yaml:"top_networks"`
	Writers     []WriterDef `yaml:"writers"`
}

// ProbeConfig holds the NATS transport settings shared by the probe and the
// stream engine.
type ProbeConfig struct {
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

// StreamConfig holds the settings of the long-running stream engine.
type StreamConfig struct {
	SnapshotInterval    string `yaml:"snapshot_interval"`
	SizeOfRecordChannel int    `yaml:"size_of_record_channel"`
}

// APIConfig holds the HTTP report API settings.
type APIConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// AlerterRule defines a single threshold rule evaluated against each report
// snapshot.
type AlerterRule struct {
	Name      string  `yaml:"name"`
	Metric    string  `yaml:"metric"`
	Operator  string  `yaml:"operator"`
	Threshold float64 `yaml:"threshold"`
}

// AlerterConfig holds the alerting settings.
type AlerterConfig struct {
	Enabled bool          `yaml:"enabled"`
	Rules   []AlerterRule `yaml:"rules"`
}

// SMTPConfig holds the email notification settings.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Analyzer AnalyzerConfig `yaml:"analyzer"`
	Probe    ProbeConfig    `yaml:"probe"`
	Stream   StreamConfig   `yaml:"stream"`
	API      APIConfig      `yaml:"api"`
	Alerter  AlerterConfig  `yaml:"alerter"`
	SMTP     SMTPConfig     `yaml:"smtp"`
}

// LoadConfig reads the configuration from a YAML file and returns a Config
// struct with defaults applied.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}
	cfg.applyDefaults()
	cfg.applyEnv()

	return &cfg, nil
}

// Default returns the configuration used when no config file is present: a
// console text report over the default input file.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.applyEnv()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Analyzer.InputPath == "" {
		c.Analyzer.InputPath = "traf.txt"
	}
	if c.Analyzer.TopNodes == 0 {
		c.Analyzer.TopNodes = 10
	}
	if c.Analyzer.TopNetworks == 0 {
		c.Analyzer.TopNetworks = 10
	}
	if len(c.Analyzer.Writers) == 0 {
		c.Analyzer.Writers = []WriterDef{{Type: "text", Enabled: true}}
	}
	if c.Probe.NATSURL == "" {
		c.Probe.NATSURL = "nats://127.0.0.1:4222"
	}
	if c.Probe.Subject == "" {
		c.Probe.Subject = "traf.records.raw"
	}
	if c.Stream.SnapshotInterval == "" {
		c.Stream.SnapshotInterval = "30s"
	}
	if c.Stream.SizeOfRecordChannel == 0 {
		c.Stream.SizeOfRecordChannel = 1024
	}
	if c.API.ListenAddr == "" {
		c.API.ListenAddr = ":8080"
	}
}

// applyEnv overrides credentials and endpoints from the environment, so they
// can live in a .env file instead of the checked-in config.
func (c *Config) applyEnv() {
	if v := os.Getenv("NATS_URL"); v != "" {
		c.Probe.NATSURL = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		for i := range c.Analyzer.Writers {
			if c.Analyzer.Writers[i].Type == "clickhouse" {
				c.Analyzer.Writers[i].ClickHouse.Password = v
			}
		}
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		c.SMTP.Password = v
	}
}
