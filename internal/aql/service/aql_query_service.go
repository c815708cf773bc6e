/*******************************************************************************
* Copyright (C) 2026 the Eclipse BaSyx Authors and Fraunhofer IESE
*
* Permission is hereby granted, free of charge, to any person obtaining
* a copy of this software and associated documentation files (the
* "Software"), to deal in the Software without restriction, including
* without limitation the rights to use, copy, modify, merge, publish,
* distribute, sublicense, and/or sell copies of the Software, and to
* permit persons to whom the Software is furnished to do so, subject to
* the following conditions:
*
* The above copyright notice and this permission notice shall be
* included in all copies or substantial portions of the Software.
*
* THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
* EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
* MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
* NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE
* LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION
* OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION
* WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
*
* SPDX-License-Identifier: MIT
******************************************************************************/

// Package service wires the AQL compilation pipeline: EHR path rewrite,
// normalization, feature check, ASL build and SQL rendering, and executes
// compiled queries.
package service

import (
	"context"
	"database/sql"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/ehrbase/ehrbase-go-components/internal/aql/asl"
	"github.com/ehrbase/ehrbase-go-components/internal/aql/aslsql"
	"github.com/ehrbase/ehrbase-go-components/internal/aql/ast"
	"github.com/ehrbase/ehrbase-go-components/internal/aql/extractedcolumn"
	"github.com/ehrbase/ehrbase-go-components/internal/aql/featurecheck"
	"github.com/ehrbase/ehrbase-go-components/internal/aql/postprocess"
	"github.com/ehrbase/ehrbase-go-components/internal/aql/rm"
	"github.com/ehrbase/ehrbase-go-components/internal/aql/wrapper"
	"github.com/ehrbase/ehrbase-go-components/internal/common"
	"github.com/ehrbase/ehrbase-go-components/internal/common/logger"
)

// CompiledQuery is the result of compiling one AQL query.
type CompiledQuery struct {
	AQL    string                `json:"aql"`
	Root   *asl.RootQuery        `json:"-"`
	Fields *asl.PathFieldMap     `json:"-"`
	SQL    string                `json:"sql"`
	Args   []any                 `json:"args,omitempty"`
	Layout []aslsql.ColumnLayout `json:"columns"`
}

// ResultSet holds the mapped rows of an executed query.
type ResultSet struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// AqlQueryService compiles and executes AQL queries. The metadata tables are
// shared read-only, so one service may compile concurrently.
type AqlQueryService struct {
	md            *rm.Metadata
	checker       *featurecheck.Checker
	builder       *asl.Builder
	renderer      *aslsql.Renderer
	postprocessor *postprocess.ExtractedColumnResultPostprocessor
	maxConcurrent int
}

// NewAqlQueryService creates the service.
//
// Parameters:
//   - cfg: compilation settings (system id, prepared rendering, concurrency)
//   - md: RM metadata
//   - knowledge: template id lookup, nil if template ids are never compared or selected
//
// Returns:
//   - *AqlQueryService: ready to use service
func NewAqlQueryService(cfg common.AQLConfig, md *rm.Metadata, knowledge rm.KnowledgeCache) *AqlQueryService {
	columns := extractedcolumn.NewRegistry(md)
	renderer := aslsql.NewRenderer(md, knowledge)
	renderer.Prepared = cfg.Prepared
	maxConcurrent := cfg.MaxConcurrentCompilations
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &AqlQueryService{
		md:            md,
		checker:       featurecheck.NewChecker(md, columns),
		builder:       asl.NewBuilder(md, columns, cfg.SystemID),
		renderer:      renderer,
		postprocessor: postprocess.NewExtractedColumnResultPostprocessor(cfg.SystemID, knowledge),
		maxConcurrent: maxConcurrent,
	}
}

// Check normalizes q and reports whether it is supported.
func (s *AqlQueryService) Check(q *ast.Query) error {
	_, err := s.check(q)
	return err
}

func (s *AqlQueryService) check(q *ast.Query) (*wrapper.QueryWrapper, error) {
	aql := q.String()
	w, err := wrapper.Normalize(q)
	if err != nil {
		logger.LogError("normalize "+aql, err)
		return nil, err
	}
	logger.LogStage("normalize", aql)
	if err := s.checker.EnsureSupported(w); err != nil {
		logger.LogError("check "+aql, err)
		return nil, err
	}
	logger.LogStage("check", aql)
	return w, nil
}

// Compile runs the pipeline for q.
//
// Returns:
//   - *CompiledQuery: the ASL tree, SQL and column layout
//   - error: IllegalAql or FeatureNotImplemented for rejected queries, Internal otherwise
func (s *AqlQueryService) Compile(q *ast.Query) (*CompiledQuery, error) {
	w, err := s.check(q)
	if err != nil {
		return nil, err
	}
	aql := q.String()
	root, fields, err := s.builder.Build(w)
	if err != nil {
		logger.LogError("build "+aql, err)
		return nil, err
	}
	logger.LogStage("build", aql)
	rendered, err := s.renderer.Render(root)
	if err != nil {
		logger.LogError("render "+aql, err)
		return nil, err
	}
	logger.LogStage("render", aql)
	return &CompiledQuery{
		AQL:    aql,
		Root:   root,
		Fields: fields,
		SQL:    rendered.SQL,
		Args:   rendered.Args,
		Layout: rendered.Layout,
	}, nil
}

// CompileAll compiles queries concurrently, bounded by the configured
// maximum. The result keeps the order of queries; the first error cancels the
// remaining compilations.
func (s *AqlQueryService) CompileAll(ctx context.Context, queries []*ast.Query) ([]*CompiledQuery, error) {
	out := make([]*CompiledQuery, len(queries))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrent)
	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			cq, err := s.Compile(q)
			if err != nil {
				return fmt.Errorf("query %d: %w", i, err)
			}
			out[i] = cq
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Execute runs a compiled query and maps its rows.
func (s *AqlQueryService) Execute(ctx context.Context, db *sql.DB, cq *CompiledQuery) (*ResultSet, error) {
	rows, err := db.QueryContext(ctx, cq.SQL, cq.Args...)
	if err != nil {
		logger.LogError("execute "+cq.AQL, err)
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	mapper := postprocess.NewRowMapper(cq.Layout, s.postprocessor, s.md)
	result := &ResultSet{Columns: mapper.Columns(), Rows: [][]any{}}
	raw := make([]any, mapper.Width())
	dest := make([]any, len(raw))
	for i := range raw {
		dest[i] = &raw[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row, err := mapper.Map(raw)
		if err != nil {
			return nil, err
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	logger.LogDebug(fmt.Sprintf("%d rows for %s", len(result.Rows), cq.AQL))
	return result, nil
}
