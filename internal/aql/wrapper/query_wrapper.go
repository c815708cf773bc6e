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

package wrapper

import (
	"github.com/ehrbase/ehrbase-go-components/internal/aql/ast"
	"github.com/ehrbase/ehrbase-go-components/internal/aql/cohesion"
	"github.com/ehrbase/ehrbase-go-components/internal/common"
)

// SelectType classifies a SELECT item.
type SelectType int

const (
	SelectPath SelectType = iota
	SelectAggregate
	SelectPrimitive
)

func (t SelectType) String() string {
	switch t {
	case SelectAggregate:
		return "AGGREGATE"
	case SelectPrimitive:
		return "PRIMITIVE"
	default:
		return "PATH"
	}
}

// SelectWrapper is one classified SELECT item.
type SelectWrapper struct {
	Type SelectType
	// Path is the selected path or the aggregate argument, nil for COUNT(*) and literals.
	Path      *ast.IdentifiedPath
	Root      *ContainsWrapper
	Aggregate ast.AggregateFunctionName
	Distinct  bool
	Primitive *ast.Primitive
	Alias     string
	Clause    ast.SelectExpression
}

// ComparisonOperator is the operator of a leaf where condition.
type ComparisonOperator int

const (
	OpEq ComparisonOperator = iota
	OpNeq
	OpLt
	OpLtEq
	OpGt
	OpGtEq
	OpLike
	OpMatches
	OpExists
)

func (o ComparisonOperator) String() string {
	switch o {
	case OpEq:
		return "EQ"
	case OpNeq:
		return "NEQ"
	case OpLt:
		return "LT"
	case OpLtEq:
		return "LT_EQ"
	case OpGt:
		return "GT"
	case OpGtEq:
		return "GT_EQ"
	case OpLike:
		return "LIKE"
	case OpMatches:
		return "MATCHES"
	default:
		return "EXISTS"
	}
}

// Mirror returns the operator with swapped operands (a < b is b > a).
func (o ComparisonOperator) Mirror() ComparisonOperator {
	switch o {
	case OpLt:
		return OpGt
	case OpLtEq:
		return OpGtEq
	case OpGt:
		return OpLt
	case OpGtEq:
		return OpLtEq
	default:
		return o
	}
}

func fromAstOperator(o ast.ComparisonOperator) ComparisonOperator {
	switch o {
	case ast.OpNeq:
		return OpNeq
	case ast.OpLt:
		return OpLt
	case ast.OpLtEq:
		return OpLtEq
	case ast.OpGt:
		return OpGt
	case ast.OpGtEq:
		return OpGtEq
	case ast.OpMatches:
		return OpMatches
	default:
		return OpEq
	}
}

// LogicalOperator combines condition wrappers.
type LogicalOperator int

const (
	LogicalAnd LogicalOperator = iota
	LogicalOr
	LogicalNot
)

// ConditionWrapper is a normalized WHERE node.
type ConditionWrapper interface {
	isConditionWrapper()
}

// LogicalConditionWrapper is AND, OR or NOT (single value).
type LogicalConditionWrapper struct {
	Operator LogicalOperator
	Values   []ConditionWrapper
}

// ComparisonConditionWrapper is a leaf condition oriented so that a path, if
// any, is on the left.
type ComparisonConditionWrapper struct {
	Operator ComparisonOperator
	Left     ast.Operand
	// Path and Root are set when Left is a path.
	Path   *ast.IdentifiedPath
	Root   *ContainsWrapper
	Values []ast.Operand
	Clause ast.WhereCondition
}

func (*LogicalConditionWrapper) isConditionWrapper()    {}
func (*ComparisonConditionWrapper) isConditionWrapper() {}

// OrderByWrapper is one ORDER BY item bound to its containment.
type OrderByWrapper struct {
	Path      *ast.IdentifiedPath
	Root      *ContainsWrapper
	Direction ast.OrderDirection
	Clause    ast.OrderByExpression
}

// QueryWrapper is the normalized query.
type QueryWrapper struct {
	// Query is the (rewritten) AST the wrapper was built from.
	Query        *ast.Query
	Containments []*ContainsWrapper
	From         *ContainsChain
	Selects      []*SelectWrapper
	Distinct     bool
	Where        ConditionWrapper
	OrderBy      []*OrderByWrapper
	Limit        *int64
	Offset       *int64

	byIdentifier map[string]*ContainsWrapper
	cohesion     map[ContainsID]*cohesion.Node
}

// Containment returns the containment with id.
func (q *QueryWrapper) Containment(id ContainsID) *ContainsWrapper {
	return q.Containments[id]
}

// ByIdentifier looks a containment up by its alias.
func (q *QueryWrapper) ByIdentifier(identifier string) (*ContainsWrapper, bool) {
	w, ok := q.byIdentifier[identifier]
	return w, ok
}

// Cohesion returns the path tree of a containment; it is empty if no path is
// rooted at it.
func (q *QueryWrapper) Cohesion(id ContainsID) *cohesion.Node {
	if n, ok := q.cohesion[id]; ok {
		return n
	}
	return cohesion.NewRoot()
}

// Children lists the containments directly nested in parent.
func (q *QueryWrapper) Children(parent *ContainsWrapper) []*ContainsWrapper {
	var out []*ContainsWrapper
	for _, c := range q.Containments {
		if c.Parent == parent {
			out = append(out, c)
		}
	}
	return out
}

// Normalize rewrites EHR relative paths and wraps the query.
//
// Parameters:
//   - query: the parsed query, left unmodified
//
// Returns:
//   - *QueryWrapper: containments with ids, bound SELECT/WHERE/ORDER BY items and cohesion trees
//   - error: IllegalAql for duplicate identifiers or paths with unknown roots
func Normalize(query *ast.Query) (*QueryWrapper, error) {
	rewritten, err := RewriteEhrPaths(query)
	if err != nil {
		return nil, err
	}
	return Wrap(rewritten)
}

// Wrap builds the QueryWrapper without rewriting.
func Wrap(query *ast.Query) (*QueryWrapper, error) {
	if query.From == nil {
		return nil, common.NewErrIllegalAql("query has no FROM clause")
	}
	b := &chainBuilder{byIdentifier: map[string]*ContainsWrapper{}}
	from, err := b.build(query.From, nil)
	if err != nil {
		return nil, err
	}
	q := &QueryWrapper{
		Query:        query,
		Containments: b.containments,
		From:         from,
		Distinct:     query.Select.Distinct,
		Limit:        query.Limit,
		Offset:       query.Offset,
		byIdentifier: b.byIdentifier,
		cohesion:     map[ContainsID]*cohesion.Node{},
	}

	for _, s := range query.Select.Statements {
		sw, err := q.wrapSelect(s)
		if err != nil {
			return nil, err
		}
		q.Selects = append(q.Selects, sw)
	}
	if query.Where != nil {
		if q.Where, err = q.wrapCondition(query.Where); err != nil {
			return nil, err
		}
	}
	for _, o := range query.OrderBy {
		root, err := q.bind(o.Statement, o.String())
		if err != nil {
			return nil, err
		}
		q.OrderBy = append(q.OrderBy, &OrderByWrapper{Path: o.Statement, Root: root, Direction: o.Direction, Clause: o})
	}
	return q, nil
}

// bind resolves the root of path and records the path in the cohesion tree.
func (q *QueryWrapper) bind(path *ast.IdentifiedPath, clause string) (*ContainsWrapper, error) {
	root, ok := q.byIdentifier[path.Root]
	if !ok {
		return nil, common.NewErrIllegalAql("%s: identifier %s is not defined in FROM", clause, path.Root)
	}
	tree, ok := q.cohesion[root.ID]
	if !ok {
		tree = cohesion.NewRoot()
		q.cohesion[root.ID] = tree
	}
	tree.Add(path)
	return root, nil
}

func (q *QueryWrapper) wrapSelect(s ast.SelectExpression) (*SelectWrapper, error) {
	sw := &SelectWrapper{Alias: s.Alias, Clause: s}
	switch t := s.ColumnExpression.(type) {
	case *ast.IdentifiedPath:
		root, err := q.bind(t, s.String())
		if err != nil {
			return nil, err
		}
		sw.Type, sw.Path, sw.Root = SelectPath, t, root
	case *ast.AggregateFunction:
		sw.Type, sw.Aggregate, sw.Distinct = SelectAggregate, t.Function, t.Distinct
		if t.Path != nil {
			root, err := q.bind(t.Path, s.String())
			if err != nil {
				return nil, err
			}
			sw.Path, sw.Root = t.Path, root
		}
	case *ast.Primitive:
		sw.Type, sw.Primitive = SelectPrimitive, t
	default:
		return nil, common.NewErrInternal(nil, "unexpected select expression %T", s.ColumnExpression)
	}
	return sw, nil
}

func (q *QueryWrapper) wrapCondition(c ast.WhereCondition) (ConditionWrapper, error) {
	switch t := c.(type) {
	case *ast.LogicalOperatorCondition:
		op := LogicalAnd
		if t.Symbol == ast.LogicalOr {
			op = LogicalOr
		}
		lw := &LogicalConditionWrapper{Operator: op}
		for _, v := range t.Values {
			w, err := q.wrapCondition(v)
			if err != nil {
				return nil, err
			}
			lw.Values = append(lw.Values, w)
		}
		return lw, nil
	case *ast.NotCondition:
		w, err := q.wrapCondition(t.Condition)
		if err != nil {
			return nil, err
		}
		return &LogicalConditionWrapper{Operator: LogicalNot, Values: []ConditionWrapper{w}}, nil
	case *ast.ComparisonOperatorCondition:
		left, right, op := t.Statement, t.Value, fromAstOperator(t.Symbol)
		if _, ok := left.(*ast.IdentifiedPath); !ok {
			if _, ok := right.(*ast.IdentifiedPath); ok {
				left, right, op = right, left, op.Mirror()
			}
		}
		return q.comparison(op, left, []ast.Operand{right}, t)
	case *ast.LikeCondition:
		return q.comparison(OpLike, t.Statement, []ast.Operand{t.Value}, t)
	case *ast.MatchesCondition:
		return q.comparison(OpMatches, t.Statement, t.Values, t)
	case *ast.ExistsCondition:
		return q.comparison(OpExists, t.Value, nil, t)
	default:
		return nil, common.NewErrInternal(nil, "unexpected where condition %T", c)
	}
}

func (q *QueryWrapper) comparison(op ComparisonOperator, left ast.Operand, values []ast.Operand, clause ast.WhereCondition) (*ComparisonConditionWrapper, error) {
	cw := &ComparisonConditionWrapper{Operator: op, Left: left, Values: values, Clause: clause}
	text := ast.RenderCondition(clause)
	if path, ok := left.(*ast.IdentifiedPath); ok {
		root, err := q.bind(path, text)
		if err != nil {
			return nil, err
		}
		cw.Path, cw.Root = path, root
	}
	// paths on the value side are rejected by the feature check, but their roots must exist
	for _, v := range values {
		if p, ok := v.(*ast.IdentifiedPath); ok {
			if _, defined := q.byIdentifier[p.Root]; !defined {
				return nil, common.NewErrIllegalAql("%s: identifier %s is not defined in FROM", text, p.Root)
			}
		}
	}
	return cw, nil
}
