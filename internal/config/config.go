package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the immutable settings object handed to the pipeline. It
// is constructed once at startup; no component reads ambient process
// state after that.
type Config struct {
	EVCCURL      string `yaml:"evcc_url"`
	EVCCPassword string `yaml:"evcc_password"`

	SMTPServer     string `yaml:"smtp_server"`
	SMTPPort       int    `yaml:"smtp_port"`
	SenderEmail    string `yaml:"sender_email"`
	SenderPassword string `yaml:"sender_password"`
	RecipientEmail string `yaml:"recipient_email"`

	SenderName   string `yaml:"sender_name"`
	SenderStreet string `yaml:"sender_street"`
	SenderCity   string `yaml:"sender_city"`

	Locale     string `yaml:"locale"`
	OutputDir  string `yaml:"output_dir"`
	CostPolicy string `yaml:"cost_policy"`
	ExportXLSX bool   `yaml:"export_xlsx"`

	MetricsPushURL string `yaml:"metrics_push_url"`
}

// Load builds the config from environment variables, overlaid by an
// optional yaml file named in REPORT_CONFIG. File keys win over env
// for the keys the file sets.
func Load() (Config, error) {
	cfg := Config{
		EVCCURL:        getenvDefault("EVCC_URL", "http://localhost:7070"),
		EVCCPassword:   os.Getenv("EVCC_PASSWORD"),
		SMTPServer:     os.Getenv("SMTP_SERVER"),
		SMTPPort:       getenvIntDefault("SMTP_PORT", 587),
		SenderEmail:    os.Getenv("SENDER_EMAIL"),
		SenderPassword: os.Getenv("SENDER_PASSWORD"),
		RecipientEmail: os.Getenv("RECIPIENT_EMAIL"),
		SenderName:     getenvDefault("SENDER_NAME", "John Doe"),
		SenderStreet:   getenvDefault("SENDER_STREET", "Sample Street 123"),
		SenderCity:     getenvDefault("SENDER_CITY", "12345 Sample City"),
		Locale:         getenvDefault("LOCALE", "en_US.UTF-8"),
		OutputDir:      getenvDefault("OUTPUT_DIR", "./output"),
		CostPolicy:     getenvDefault("COST_POLICY", "zero-fill"),
		ExportXLSX:     getenvBoolDefault("EXPORT_XLSX", false),
		MetricsPushURL: os.Getenv("METRICS_PUSH_URL"),
	}

	if path := os.Getenv("REPORT_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the settings the pipeline cannot run without. Mail
// settings are optional as a group; the dispatcher skips email when
// they are incomplete.
func (c Config) Validate() error {
	if c.EVCCURL == "" {
		return errors.New("config: evcc url required")
	}
	if c.OutputDir == "" {
		return errors.New("config: output dir required")
	}
	if c.SMTPPort < 1 || c.SMTPPort > 65535 {
		return fmt.Errorf("config: smtp port %d out of range", c.SMTPPort)
	}
	switch c.CostPolicy {
	case "zero-fill", "omit":
	default:
		return fmt.Errorf("config: unknown cost policy %q", c.CostPolicy)
	}
	return nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBoolDefault(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
