// Package neo4j provides a concrete implementation of the
// persistence.GraphInteractor interface that talks to a Neo4j server through
// its transactional HTTP endpoint. Every call is posted to the commit
// endpoint, so each request runs in its own transaction.
package neo4j

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/asaidimu/go-anansi-neo4j/core/persistence"
	"github.com/asaidimu/go-anansi-neo4j/core/query"
	"github.com/asaidimu/go-anansi-neo4j/core/schema"
)

// HTTPInteractor posts compiled statements to the transactional commit
// endpoint and maps the row-format results back into rows keyed by column.
type HTTPInteractor struct {
	endpoint string
	username string
	password string
	headers  map[string]string
	client   *http.Client
	logger   *zap.Logger
}

// Ensure HTTPInteractor implements the persistence.GraphInteractor interface.
var _ persistence.GraphInteractor = (*HTTPInteractor)(nil)

// NewInteractor creates an HTTPInteractor for cfg. A nil cfg uses
// DefaultConfig.
func NewInteractor(cfg *Config, logger *zap.Logger) (*HTTPInteractor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &HTTPInteractor{
		endpoint: cfg.Endpoint(),
		username: cfg.Username,
		password: cfg.Password,
		headers:  cfg.Headers,
		client:   &http.Client{Transport: transport, Timeout: cfg.Timeout},
		logger:   logger,
	}, nil
}

type requestStatement struct {
	query.Statement
	ResultDataContents []string `json:"resultDataContents"`
}

type transactionRequest struct {
	Statements []requestStatement `json:"statements"`
}

type serverError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type statementResult struct {
	Columns []string `json:"columns"`
	Data    []struct {
		Row []any `json:"row"`
	} `json:"data"`
}

type transactionResponse struct {
	Results []statementResult `json:"results"`
	Errors  []serverError     `json:"errors"`
}

// Execute runs a single statement.
func (i *HTTPInteractor) Execute(ctx context.Context, stmt query.Statement) ([]schema.Row, error) {
	results, err := i.ExecuteAll(ctx, []query.Statement{stmt})
	if err != nil {
		return nil, err
	}
	return results[0], nil
}

// ExecuteAll runs statements in order within one transaction. Either all of
// them are committed or, on the first failure, none are.
func (i *HTTPInteractor) ExecuteAll(ctx context.Context, stmts []query.Statement) ([][]schema.Row, error) {
	if len(stmts) == 0 {
		return nil, nil
	}

	req := transactionRequest{Statements: make([]requestStatement, len(stmts))}
	for n, stmt := range stmts {
		if stmt.Parameters == nil {
			stmt.Parameters = map[string]any{}
		}
		req.Statements[n] = requestStatement{Statement: stmt, ResultDataContents: []string{"row"}}
		i.logger.Debug("Executing statement",
			zap.String("statement", stmt.Text),
			zap.Any("params", stmt.Parameters),
		)
	}
	first := stmts[0]

	body, err := json.Marshal(req)
	if err != nil {
		return nil, i.fail(first, "", "failed to encode request", fmt.Errorf("%w: %w", ErrTransport, err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, i.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, i.fail(first, "", "failed to build request", fmt.Errorf("%w: %w", ErrTransport, err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json; charset=UTF-8")
	for k, v := range i.headers {
		httpReq.Header.Set(k, v)
	}
	if i.username != "" {
		httpReq.SetBasicAuth(i.username, i.password)
	}

	resp, err := i.client.Do(httpReq)
	if err != nil {
		return nil, i.fail(first, "", "request failed", fmt.Errorf("%w: %w", ErrTransport, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, i.fail(first, "", fmt.Sprintf("unexpected status %s: %s", resp.Status, bytes.TrimSpace(snippet)), ErrTransport)
	}

	var tr transactionResponse
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&tr); err != nil {
		return nil, i.fail(first, "", "failed to decode response", fmt.Errorf("%w: %w", ErrTransport, err))
	}

	if len(tr.Errors) > 0 {
		failed := stmts[min(len(tr.Results), len(stmts)-1)]
		return nil, i.fail(failed, tr.Errors[0].Code, tr.Errors[0].Message, ErrStatement)
	}
	if len(tr.Results) != len(stmts) {
		return nil, i.fail(first, "", fmt.Sprintf("expected %d results, got %d", len(stmts), len(tr.Results)), ErrTransport)
	}

	out := make([][]schema.Row, len(tr.Results))
	for n, result := range tr.Results {
		rows := make([]schema.Row, 0, len(result.Data))
		for _, d := range result.Data {
			row := make(schema.Row, len(result.Columns))
			for c, col := range result.Columns {
				if c < len(d.Row) {
					row[col] = NormalizeNumbers(d.Row[c])
				}
			}
			rows = append(rows, row)
		}
		i.logger.Debug("Statement returned rows", zap.Int("count", len(rows)), zap.Strings("columns", result.Columns))
		out[n] = rows
	}
	return out, nil
}

func (i *HTTPInteractor) fail(stmt query.Statement, code, message string, kind error) error {
	err := &ExecutionError{
		Statement:  stmt.Text,
		Parameters: stmt.Parameters,
		Code:       code,
		Message:    message,
		Err:        kind,
	}
	i.logger.Error("Statement execution failed",
		zap.String("statement", stmt.Text),
		zap.Any("params", stmt.Parameters),
		zap.Error(err),
	)
	return err
}

// NormalizeNumbers turns decoded JSON numbers into int64 when they are whole and
// float64 otherwise, descending into maps and lists.
func NormalizeNumbers(v any) any {
	switch val := v.(type) {
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return n
		}
		f, err := val.Float64()
		if err != nil {
			return val.String()
		}
		return f
	case map[string]any:
		for k, item := range val {
			val[k] = NormalizeNumbers(item)
		}
		return val
	case []any:
		for n, item := range val {
			val[n] = NormalizeNumbers(item)
		}
		return val
	}
	return v
}
