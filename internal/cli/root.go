// Package cli implements the anansi-neo4j command line: compile filters into
// Cypher, run store operations against a server, and send native statements.
package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/asaidimu/go-anansi-neo4j/core/query"
	"github.com/asaidimu/go-anansi-neo4j/neo4j"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	ConfigPath string
	Style      string
	UniqueEdge string
}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "anansi-neo4j",
		Short:         "Compile entity filters into Cypher and run them against Neo4j",
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log compiled statements and requests to stderr")
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.Style, "placeholders", "", "placeholder style (braces|dollar), overrides the config")
	cmd.PersistentFlags().StringVar(&opts.UniqueEdge, "unique-edge", "", "unique edge clause (\"CREATE UNIQUE\"|MERGE), overrides the config")

	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewExecCommand(opts))
	cmd.AddCommand(NewNativeCommand(opts))

	return cmd
}

func (o *RootOptions) logger() *zap.Logger {
	if !o.Verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func (o *RootOptions) config() (*neo4j.Config, error) {
	cfg, err := neo4j.LoadConfig(o.ConfigPath)
	if err != nil {
		return nil, err
	}
	if o.Style != "" {
		cfg.PlaceholderStyle = o.Style
	}
	if o.UniqueEdge != "" {
		cfg.UniqueEdgeClause = o.UniqueEdge
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseObject decodes a JSON object flag. Whole numbers become int64 so they
// are sent to the server as integers.
func parseObject(flag, raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var v map[string]any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("invalid --%s: %w", flag, err)
	}
	return neo4j.NormalizeNumbers(v).(map[string]any), nil
}

func parseFilter(raw string) (query.Filter, error) {
	m, err := parseObject("filter", raw)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return query.Filter{}, nil
	}
	return query.Filter(m), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
