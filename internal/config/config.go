// Package config loads and validates the connector configuration: accounts,
// proxy settings, and the per-input ingestion jobs. Validation runs once at
// load time; a run never starts on an invalid configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/badrinath-dash/apigee-audit-connector/internal/credentials"
)

// Error is a fatal configuration error, surfaced to the operator before any
// run starts.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid configuration: %s", e.Reason)
	}
	return fmt.Sprintf("invalid configuration for %s: %s", e.Field, e.Reason)
}

// Input describes one configured ingestion job. Name is the stable identity
// used as the checkpoint key.
type Input struct {
	Name            string `yaml:"name" validate:"required"`
	Account         string `yaml:"account" validate:"required"`
	APIURL          string `yaml:"api_url" validate:"required,url"`
	Org             string `yaml:"org"`
	StartFrom       string `yaml:"start_from"`
	IntervalSeconds int    `yaml:"interval" validate:"required,min=10,max=3600"`
	LookbackDays    int    `yaml:"lookback_days"`
	TimestampFields string `yaml:"timestamp_fields"` // comma-separated, ordered
	APIParameters   string `yaml:"api_parameters"`   // JSON object of extra query params
	VerifySSL       *bool  `yaml:"verify_ssl"`
	Index           string `yaml:"index" validate:"required"`
	Sourcetype      string `yaml:"sourcetype"`
	Disabled        bool   `yaml:"disabled"`
}

// defaultTimestampFields are tried in order when an input configures none.
var defaultTimestampFields = []string{"timeStamp", "timestamp", "auditRecord.timeStamp", "created_at"}

// FieldPaths returns the ordered timestamp field paths for this input.
func (in *Input) FieldPaths() []string {
	if strings.TrimSpace(in.TimestampFields) == "" {
		return defaultTimestampFields
	}
	parts := strings.Split(in.TimestampFields, ",")
	paths := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// ExtraParams parses the configured JSON object of extra API query
// parameters. Values are stringified.
func (in *Input) ExtraParams() (map[string]string, error) {
	if strings.TrimSpace(in.APIParameters) == "" {
		return nil, nil
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(in.APIParameters), &raw); err != nil {
		return nil, &Error{Field: in.Name + ".api_parameters", Reason: fmt.Sprintf("not a JSON object: %v", err)}
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		out[k] = fmt.Sprintf("%v", v)
	}
	return out, nil
}

// VerifyTLS reports the SSL-verification toggle, defaulting to true.
func (in *Input) VerifyTLS() bool {
	return in.VerifySSL == nil || *in.VerifySSL
}

// SourcetypeOrDefault falls back to the connector's default sourcetype.
func (in *Input) SourcetypeOrDefault() string {
	if in.Sourcetype != "" {
		return in.Sourcetype
	}
	return "apigee:audit"
}

// Config is the root of the yaml configuration file.
type Config struct {
	CheckpointTable string                         `yaml:"checkpoint_table" validate:"required"`
	RunsTable       string                         `yaml:"runs_table"`
	QueueURL        string                         `yaml:"queue_url" validate:"required,url"`
	MetricNamespace string                         `yaml:"metric_namespace"`
	Accounts        map[string]credentials.Account `yaml:"accounts"`
	Proxy           *credentials.Proxy             `yaml:"proxy"`
	Inputs          []Input                        `yaml:"inputs" validate:"required,min=1,dive"`
}

// Load reads, parses, and validates the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &Error{Reason: fmt.Sprintf("parse yaml: %v", err)}
	}

	if err := cfg.Validate(time.Now()); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate runs structural validation plus the cross-field rules the tag
// language cannot express. It returns a *Error on the first problem found.
func (c *Config) Validate(now time.Time) error {
	v := New()
	if err := v.Struct(c); err != nil {
		return &Error{Reason: err.Error()}
	}

	seen := map[string]bool{}
	for i := range c.Inputs {
		in := &c.Inputs[i]
		if seen[in.Name] {
			return &Error{Field: in.Name, Reason: "duplicate input name"}
		}
		seen[in.Name] = true

		if _, ok := c.Accounts[in.Account]; !ok {
			return &Error{Field: in.Name + ".account", Reason: fmt.Sprintf("unknown account %q", in.Account)}
		}
		if err := validateStartDate(in, now); err != nil {
			return err
		}
		if _, err := in.ExtraParams(); err != nil {
			return err.(*Error)
		}
		if !strings.HasPrefix(in.APIURL, "https://") && !strings.HasPrefix(in.APIURL, "http://") {
			return &Error{Field: in.Name + ".api_url", Reason: "scheme must be http or https"}
		}
	}
	return nil
}
