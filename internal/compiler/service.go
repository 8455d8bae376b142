// Package compiler exposes the query compiler as a service: it parses query
// text, substitutes placeholders, prints it for a dialect and reports the
// bound parameters together with a stable hash of the output.
package compiler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"tenantql/internal/ast"
	"tenantql/internal/config"
	"tenantql/internal/domain"
	"tenantql/internal/parser"
	"tenantql/internal/printer"
	"tenantql/internal/query"
	"tenantql/internal/schema"
	"tenantql/internal/transforms"
)

// defaultBatchLimit bounds the number of concurrent compilations in a batch.
const defaultBatchLimit = 8

// Request is one compilation. Either SQL or Query must be set; Query wins
// when both are.
type Request struct {
	SQL     string
	Query   ast.Expr
	TeamID  int64
	Dialect query.Dialect // execution when empty

	Placeholders      map[string]ast.Expr
	Settings          []query.Setting
	LegacyTranslation bool
}

// Param is one bound literal.
type Param struct {
	Name  string `json:"name" yaml:"name"`
	Value any    `json:"value" yaml:"value"`
}

// Result is a compiled query.
type Result struct {
	QueryID  string        `json:"query_id" yaml:"query_id"`
	Dialect  query.Dialect `json:"dialect" yaml:"dialect"`
	SQL      string        `json:"sql" yaml:"sql"`
	Params   []Param       `json:"params" yaml:"params"`
	Hash     string        `json:"hash" yaml:"hash"`
	Duration time.Duration `json:"-" yaml:"-"`
}

// Service compiles requests against a shared catalog. It is safe for
// concurrent use.
type Service struct {
	cfg          *config.Config
	database     *schema.Database
	materialized domain.MaterializedColumns
	definitions  domain.PropertyDefinitions
	batchLimit   int
	logger       *slog.Logger
}

// ServiceDeps holds dependencies for Service.
type ServiceDeps struct {
	Config *config.Config
	// Database defaults to the analytics catalog for the configured
	// timezone and person mode.
	Database            *schema.Database
	Materialized        domain.MaterializedColumns
	PropertyDefinitions domain.PropertyDefinitions
	BatchLimit          int
	Logger              *slog.Logger
}

// NewService creates a new Service.
func NewService(deps ServiceDeps) *Service {
	cfg := deps.Config
	if cfg == nil {
		cfg = &config.Config{
			MaxSelectRows:       query.DefaultMaxRows,
			DefaultTimezone:     schema.DefaultTimezone,
			EnableSelectQueries: true,
		}
	}
	database := deps.Database
	if database == nil {
		database = schema.New(schema.Options{
			Timezone:       cfg.DefaultTimezone,
			PersonOnEvents: cfg.PersonOnEvents,
		})
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	limit := deps.BatchLimit
	if limit <= 0 {
		limit = defaultBatchLimit
	}
	return &Service{
		cfg:          cfg,
		database:     database,
		materialized: deps.Materialized,
		definitions:  deps.PropertyDefinitions,
		batchLimit:   limit,
		logger:       logger,
	}
}

// Database returns the catalog requests are compiled against.
func (s *Service) Database() *schema.Database { return s.database }

// Compile compiles one request.
func (s *Service) Compile(ctx context.Context, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	id := domain.NewQueryID()

	dialect := req.Dialect
	if dialect == "" {
		dialect = query.DialectExecution
	}

	res, err := s.compile(req, dialect)
	if err != nil {
		s.logger.Warn("compile failed",
			"query_id", id, "dialect", dialect, "team_id", req.TeamID, "error", err)
		return nil, err
	}
	res.QueryID = id
	res.Duration = time.Since(start)

	s.logger.Debug("query compiled",
		"query_id", id, "dialect", dialect, "team_id", req.TeamID,
		"params", len(res.Params), "duration", res.Duration)
	return res, nil
}

func (s *Service) compile(req Request, dialect query.Dialect) (*Result, error) {
	node := req.Query
	if node == nil {
		parsed, err := parser.ParseSelect(req.SQL)
		if err != nil {
			return nil, err
		}
		node = parsed
	}

	node, err := transforms.ReplacePlaceholders(node, req.Placeholders)
	if err != nil {
		return nil, err
	}

	qctx := s.cfg.NewContext(req.TeamID)
	qctx.Database = s.database
	qctx.Materialized = s.materialized
	qctx.PropertyDefinitions = s.definitions
	qctx.Settings = req.Settings
	qctx.LegacyTranslation = req.LegacyTranslation

	out, err := printer.PrintAST(node, qctx, dialect)
	if err != nil {
		return nil, err
	}

	params := make([]Param, 0, len(qctx.Values))
	for _, name := range qctx.ParamNames() {
		params = append(params, Param{Name: name, Value: qctx.Values[name]})
	}
	return &Result{
		Dialect: dialect,
		SQL:     out,
		Params:  params,
		Hash:    Hash(out, params),
	}, nil
}

// BatchResult pairs a batch request with its outcome.
type BatchResult struct {
	Result *Result
	Err    error
}

// CompileBatch compiles independent requests concurrently. A failing
// request does not stop the others; results keep the order of reqs. The
// returned error is only set when ctx is cancelled.
func (s *Service) CompileBatch(ctx context.Context, reqs []Request) ([]BatchResult, error) {
	out := make([]BatchResult, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.batchLimit)
	for i := range reqs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := s.Compile(gctx, reqs[i])
			out[i] = BatchResult{Result: res, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("compile batch: %w", err)
	}
	return out, nil
}

// Hash fingerprints a compiled query: two results hash equal exactly when
// their SQL and ordered parameters are equal.
func Hash(sql string, params []Param) string {
	h := sha256.New()
	h.Write([]byte(sql))
	for _, p := range params {
		fmt.Fprintf(h, "\x00%s=%T:%v", p.Name, p.Value, p.Value)
	}
	return hex.EncodeToString(h.Sum(nil))
}
