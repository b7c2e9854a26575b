package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from a YAML string like "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = dur
	return nil
}

// Endpoint kinds.
const (
	KindCloud = "cloud"
	KindLocal = "local"
)

// Endpoint is a named instance of the service under test.
type Endpoint struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
	Kind string `yaml:"kind"`
}

// BuildRule is the build entry of the deployment configuration artifact.
type BuildRule struct {
	Src string `yaml:"src"`
	Use string `yaml:"use"`
}

// RouteRule is the route entry of the deployment configuration artifact.
type RouteRule struct {
	Src  string `yaml:"src"`
	Dest string `yaml:"dest"`
}

// DeployConfig holds the settings for the deployment orchestrator.
type DeployConfig struct {
	Tool       string    `yaml:"tool"`
	Install    []string  `yaml:"install"`
	Args       []string  `yaml:"args"`
	Dir        string    `yaml:"dir"`
	Domain     string    `yaml:"domain"`
	Platform   string    `yaml:"platform"`
	ConfigFile string    `yaml:"config_file"`
	RecordFile string    `yaml:"record_file"`
	Build      BuildRule `yaml:"build"`
	Route      RouteRule `yaml:"route"`
	Timeout    Duration  `yaml:"timeout"`
}

// VerifyConfig holds the settings for the endpoint verifier.
type VerifyConfig struct {
	Primary           string     `yaml:"primary"`
	Parallel          bool       `yaml:"parallel"`
	HealthTimeout     Duration   `yaml:"health_timeout"`
	FunctionalTimeout Duration   `yaml:"functional_timeout"`
	Message           string     `yaml:"message"`
	UserContext       string     `yaml:"user_context"`
	Endpoints         []Endpoint `yaml:"endpoints"`
}

// WebhookConfig holds alert webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url"`
	Always bool   `yaml:"always"`
}

// AlertsConfig holds all alert configuration.
type AlertsConfig struct {
	Webhook WebhookConfig `yaml:"webhook"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// Config is the root application configuration.
type Config struct {
	Deploy  DeployConfig  `yaml:"deploy"`
	Verify  VerifyConfig  `yaml:"verify"`
	Alerts  AlertsConfig  `yaml:"alerts"`
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
}

var validKinds = map[string]bool{
	KindCloud: true,
	KindLocal: true,
}

// DefaultEndpoints returns the built-in cloud and local endpoints.
func DefaultEndpoints() []Endpoint {
	return []Endpoint{
		{Name: "cloud", URL: "https://us-central1-final-9979b.cloudfunctions.net/chatbot", Kind: KindCloud},
		{Name: "local", URL: "http://192.168.236.183:3000", Kind: KindLocal},
	}
}

// Default returns the built-in configuration used when no config file exists.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads, parses, and validates the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	d := &cfg.Deploy
	if d.Tool == "" {
		d.Tool = "vercel"
	}
	if len(d.Install) == 0 {
		d.Install = []string{"npm", "install", "-g", d.Tool}
	}
	if len(d.Args) == 0 {
		d.Args = []string{"--prod", "--yes"}
	}
	if d.Dir == "" {
		d.Dir = "."
	}
	if d.Domain == "" {
		d.Domain = "vercel.app"
	}
	if d.Platform == "" {
		d.Platform = "Vercel"
	}
	if d.ConfigFile == "" {
		d.ConfigFile = "vercel.json"
	}
	if d.RecordFile == "" {
		d.RecordFile = "vercel_deployment_info.json"
	}
	if d.Build.Src == "" {
		d.Build.Src = "*.js"
	}
	if d.Build.Use == "" {
		d.Build.Use = "@vercel/node"
	}
	if d.Route.Src == "" {
		d.Route.Src = "/(.*)"
	}
	if d.Route.Dest == "" {
		d.Route.Dest = "/index.js"
	}

	v := &cfg.Verify
	// An absent endpoints key means the built-in endpoints; an explicit
	// empty list is left for Validate to reject.
	if v.Endpoints == nil {
		v.Endpoints = DefaultEndpoints()
	}
	if v.HealthTimeout.Duration == 0 {
		v.HealthTimeout = Duration{5 * time.Second}
	}
	if v.FunctionalTimeout.Duration == 0 {
		v.FunctionalTimeout = Duration{10 * time.Second}
	}
	if v.Message == "" {
		v.Message = "What is the importance of Salah in Islam?"
	}
	if v.UserContext == "" {
		v.UserContext = "general Islamic guidance"
	}
	if v.Primary == "" {
		v.Primary = KindCloud
	}

	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = "shipcheck.db"
	}
}

// Validate checks the configuration for errors an operator must fix.
func (c *Config) Validate() error {
	if len(c.Verify.Endpoints) == 0 {
		return fmt.Errorf("at least one endpoint must be configured")
	}
	if c.Verify.HealthTimeout.Duration < 0 {
		return fmt.Errorf("verify: health_timeout must not be negative")
	}
	if c.Verify.FunctionalTimeout.Duration < 0 {
		return fmt.Errorf("verify: functional_timeout must not be negative")
	}
	if c.Deploy.Timeout.Duration < 0 {
		return fmt.Errorf("deploy: timeout must not be negative")
	}

	names := make(map[string]bool, len(c.Verify.Endpoints))
	for i, ep := range c.Verify.Endpoints {
		if ep.Name == "" {
			return fmt.Errorf("endpoint[%d]: name is required", i)
		}
		if names[ep.Name] {
			return fmt.Errorf("duplicate endpoint name %q", ep.Name)
		}
		names[ep.Name] = true

		if ep.URL == "" {
			return fmt.Errorf("endpoint %q: url is required", ep.Name)
		}
		u, err := url.Parse(ep.URL)
		if err != nil {
			return fmt.Errorf("endpoint %q: invalid url %q: %w", ep.Name, ep.URL, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("endpoint %q: url scheme must be http or https, got %q", ep.Name, u.Scheme)
		}
		if u.Host == "" {
			return fmt.Errorf("endpoint %q: url %q has no host", ep.Name, ep.URL)
		}
		if !validKinds[ep.Kind] {
			return fmt.Errorf("endpoint %q: invalid kind %q (must be cloud or local)", ep.Name, ep.Kind)
		}
	}

	if !names[c.Verify.Primary] {
		return fmt.Errorf("verify: primary endpoint %q is not configured", c.Verify.Primary)
	}
	return nil
}
