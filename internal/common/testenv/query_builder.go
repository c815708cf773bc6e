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

// Package testenv provides query builders and fixture suites for AQL compiler tests.
package testenv

import (
	"github.com/ehrbase/ehrbase-go-components/internal/aql/ast"
)

// P parses an identified path and panics on malformed input.
func P(path string) *ast.IdentifiedPath {
	return ast.MustParseIdentifiedPath(path)
}

// Class builds `TYPE identifier[predicates] CONTAINS inner`. predicates may be empty.
func Class(rmType, identifier, predicates string, inner ...ast.Containment) *ast.ContainmentClassExpression {
	preds, err := ast.ParsePredicates(predicates)
	if err != nil {
		panic(err)
	}
	c := &ast.ContainmentClassExpression{Type: rmType, Identifier: identifier, Predicates: preds}
	if len(inner) > 0 {
		c.Contains = inner[0]
	}
	return c
}

// Version builds `VERSION identifier[predicate] CONTAINS inner`.
func Version(identifier string, predicate ast.VersionPredicateType, inner ...ast.Containment) *ast.ContainmentVersionExpression {
	v := &ast.ContainmentVersionExpression{Identifier: identifier, Predicate: predicate}
	if len(inner) > 0 {
		v.Contains = inner[0]
	}
	return v
}

// And builds `(a AND b ...)`.
func And(values ...ast.Containment) *ast.ContainmentSetOperator {
	return &ast.ContainmentSetOperator{Symbol: ast.SetOperatorAnd, Values: values}
}

// Or builds `(a OR b ...)`.
func Or(values ...ast.Containment) *ast.ContainmentSetOperator {
	return &ast.ContainmentSetOperator{Symbol: ast.SetOperatorOr, Values: values}
}

// NotContains builds `NOT CONTAINS inner`.
func NotContains(inner ast.Containment) *ast.ContainmentNot {
	return &ast.ContainmentNot{Contains: inner}
}

// Aggregate builds FN(path); an empty path means `*`.
func Aggregate(fn ast.AggregateFunctionName, distinct bool, path string) *ast.AggregateFunction {
	a := &ast.AggregateFunction{Function: fn, Distinct: distinct}
	if path != "" {
		a.Path = P(path)
	}
	return a
}

// Cmp builds `path op value`.
func Cmp(path string, op ast.ComparisonOperator, value ast.Operand) *ast.ComparisonOperatorCondition {
	return &ast.ComparisonOperatorCondition{Statement: P(path), Symbol: op, Value: value}
}

// Like builds `path LIKE 'pattern'`.
func Like(path, pattern string) *ast.LikeCondition {
	return &ast.LikeCondition{Statement: P(path), Value: ast.StringValue(pattern)}
}

// Matches builds `path matches {values}`.
func Matches(path string, values ...ast.Operand) *ast.MatchesCondition {
	return &ast.MatchesCondition{Statement: P(path), Values: values}
}

// Exists builds `EXISTS path`.
func Exists(path string) *ast.ExistsCondition {
	return &ast.ExistsCondition{Value: P(path)}
}

// AllOf joins conditions with AND.
func AllOf(values ...ast.WhereCondition) *ast.LogicalOperatorCondition {
	return &ast.LogicalOperatorCondition{Symbol: ast.LogicalAnd, Values: values}
}

// AnyOf joins conditions with OR.
func AnyOf(values ...ast.WhereCondition) *ast.LogicalOperatorCondition {
	return &ast.LogicalOperatorCondition{Symbol: ast.LogicalOr, Values: values}
}

// Not negates a condition.
func Not(c ast.WhereCondition) *ast.NotCondition {
	return &ast.NotCondition{Condition: c}
}

// QueryBuilder assembles an ast.Query fluently.
type QueryBuilder struct {
	q *ast.Query
}

// Select starts a query. Items are paths (string), column expressions or
// select expressions.
func Select(items ...any) *QueryBuilder {
	b := &QueryBuilder{q: &ast.Query{}}
	for _, item := range items {
		switch t := item.(type) {
		case string:
			b.q.Select.Statements = append(b.q.Select.Statements, ast.SelectExpression{ColumnExpression: P(t)})
		case ast.ColumnExpression:
			b.q.Select.Statements = append(b.q.Select.Statements, ast.SelectExpression{ColumnExpression: t})
		case ast.SelectExpression:
			b.q.Select.Statements = append(b.q.Select.Statements, t)
		default:
			panic("unsupported select item")
		}
	}
	return b
}

// As sets the alias of the last select item.
func (b *QueryBuilder) As(alias string) *QueryBuilder {
	b.q.Select.Statements[len(b.q.Select.Statements)-1].Alias = alias
	return b
}

// Distinct marks the query SELECT DISTINCT.
func (b *QueryBuilder) Distinct() *QueryBuilder {
	b.q.Select.Distinct = true
	return b
}

func (b *QueryBuilder) From(c ast.Containment) *QueryBuilder {
	b.q.From = c
	return b
}

func (b *QueryBuilder) Where(c ast.WhereCondition) *QueryBuilder {
	b.q.Where = c
	return b
}

// OrderBy appends an ORDER BY item.
func (b *QueryBuilder) OrderBy(path string, direction ast.OrderDirection) *QueryBuilder {
	b.q.OrderBy = append(b.q.OrderBy, ast.OrderByExpression{Statement: P(path), Direction: direction})
	return b
}

func (b *QueryBuilder) Limit(limit int64) *QueryBuilder {
	b.q.Limit = &limit
	return b
}

func (b *QueryBuilder) Offset(offset int64) *QueryBuilder {
	b.q.Offset = &offset
	return b
}

// Build returns the query.
func (b *QueryBuilder) Build() *ast.Query {
	return b.q
}
