package neo4j

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/asaidimu/go-anansi-neo4j/core/persistence"
	"github.com/asaidimu/go-anansi-neo4j/core/query"
	"github.com/asaidimu/go-anansi-neo4j/core/schema"
)

// DefaultURL is the transactional commit endpoint of a local Neo4j 3.x server.
const DefaultURL = "http://localhost:7474/db/data/transaction/commit"

// Environment variables that override values read from a config file.
const (
	EnvURL      = "NEO4J_URL"
	EnvUsername = "NEO4J_USERNAME"
	EnvPassword = "NEO4J_PASSWORD"
)

// Config holds connection and compilation settings.
type Config struct {
	// URL is the full transactional commit endpoint.
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	// Database selects a named database on 4.x servers. When set and URL is
	// empty the endpoint is derived from it.
	Database           string            `yaml:"database"`
	Headers            map[string]string `yaml:"headers"`
	InsecureSkipVerify bool              `yaml:"insecure_skip_verify"`
	Timeout            time.Duration     `yaml:"timeout"`

	PlaceholderStyle string `yaml:"placeholder_style"`
	UniqueEdgeClause string `yaml:"unique_edge_clause"`
	LooseDecoding    bool   `yaml:"loose_decoding"`
	ParseTimes       bool   `yaml:"parse_times"`
	MaxConcurrency   int    `yaml:"max_concurrency"`
}

// DefaultConfig returns the settings for a local, unauthenticated 3.x server.
func DefaultConfig() *Config {
	return &Config{
		URL:              DefaultURL,
		Timeout:          30 * time.Second,
		PlaceholderStyle: string(query.PlaceholderBraces),
		UniqueEdgeClause: string(query.UniqueEdgeCreateUnique),
		MaxConcurrency:   persistence.DefaultMaxConcurrency,
	}
}

// LoadConfig reads a YAML config file over the defaults and applies
// environment overrides. An empty path loads defaults and environment only.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvURL); v != "" {
		c.URL = v
	}
	if v := os.Getenv(EnvUsername); v != "" {
		c.Username = v
	}
	if v := os.Getenv(EnvPassword); v != "" {
		c.Password = v
	}
}

// Endpoint returns the URL statements are posted to.
func (c *Config) Endpoint() string {
	if c.Database != "" && (c.URL == "" || c.URL == DefaultURL) {
		return "http://localhost:7474/db/" + url.PathEscape(c.Database) + "/tx/commit"
	}
	if c.URL == "" {
		return DefaultURL
	}
	return c.URL
}

// Validate checks the enumerated settings.
func (c *Config) Validate() error {
	switch query.PlaceholderStyle(c.PlaceholderStyle) {
	case "", query.PlaceholderBraces, query.PlaceholderDollar:
	default:
		return fmt.Errorf("invalid placeholder_style %q: want %q or %q",
			c.PlaceholderStyle, query.PlaceholderBraces, query.PlaceholderDollar)
	}
	switch query.UniqueEdgeClause(c.UniqueEdgeClause) {
	case "", query.UniqueEdgeCreateUnique, query.UniqueEdgeMerge:
	default:
		return fmt.Errorf("invalid unique_edge_clause %q: want %q or %q",
			c.UniqueEdgeClause, query.UniqueEdgeCreateUnique, query.UniqueEdgeMerge)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("invalid timeout %s", c.Timeout)
	}
	if c.MaxConcurrency < 0 {
		return fmt.Errorf("invalid max_concurrency %d", c.MaxConcurrency)
	}
	return nil
}

// Codec returns the value codec described by the config.
func (c *Config) Codec() schema.ValueCodec {
	return schema.ValueCodec{LooseDecoding: c.LooseDecoding, ParseTimes: c.ParseTimes}
}

// Compiler builds a statement compiler from the config.
func (c *Config) Compiler(logger *zap.Logger) *query.StatementCompiler {
	return query.NewStatementCompiler(
		query.WithPlaceholderStyle(query.PlaceholderStyle(c.PlaceholderStyle)),
		query.WithUniqueEdgeClause(query.UniqueEdgeClause(c.UniqueEdgeClause)),
		query.WithCodec(c.Codec()),
		query.WithLogger(logger),
	)
}

// StoreOptions returns the persistence options described by the config.
func (c *Config) StoreOptions(logger *zap.Logger) persistence.Options {
	return persistence.Options{
		Codec:          c.Codec(),
		Logger:         logger,
		MaxConcurrency: c.MaxConcurrency,
	}
}

// NewStore connects a Store to the server described by cfg.
func NewStore(cfg *Config, logger *zap.Logger) (*persistence.Store, error) {
	interactor, err := NewInteractor(cfg, logger)
	if err != nil {
		return nil, err
	}
	return persistence.NewStore(interactor, cfg.Compiler(logger), cfg.StoreOptions(logger))
}
