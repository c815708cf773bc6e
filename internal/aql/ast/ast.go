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

// Package ast defines the parsed form of an AQL query as it is handed to the compiler.
//
// The node families (containments, column expressions, operands and where conditions)
// are closed: every implementation lives in this package and carries an unexported
// marker method, so consumers switch over them exhaustively.
package ast

// Query is a complete AQL query.
type Query struct {
	Select  Select
	From    Containment
	Where   WhereCondition // nil when the query has no WHERE clause
	OrderBy []OrderByExpression
	Limit   *int64
	Offset  *int64
}

// Select is the SELECT clause.
type Select struct {
	Distinct   bool
	Statements []SelectExpression
}

// SelectExpression is one SELECT item with its optional alias.
type SelectExpression struct {
	ColumnExpression ColumnExpression
	Alias            string
}

// OrderDirection is ASC or DESC.
type OrderDirection int

const (
	Ascending OrderDirection = iota
	Descending
)

// OrderByExpression is one ORDER BY item.
type OrderByExpression struct {
	Statement *IdentifiedPath
	Direction OrderDirection
}

// ---------------------------------------------------------------------------
// Containments

// Containment is a FROM clause element.
type Containment interface {
	isContainment()
}

// ContainmentClassExpression is `RM_TYPE alias[predicates] CONTAINS ...`.
type ContainmentClassExpression struct {
	Type       string
	Identifier string
	Predicates Predicates
	Contains   Containment
}

// VersionPredicateType selects which versions a VERSION containment ranges over.
type VersionPredicateType int

const (
	VersionPredicateNone VersionPredicateType = iota
	VersionPredicateLatest
	VersionPredicateAll
	VersionPredicateStandard
)

// ContainmentVersionExpression is `VERSION alias[predicate] CONTAINS ...`.
type ContainmentVersionExpression struct {
	Identifier string
	Predicate  VersionPredicateType
	// StandardPredicate holds the comparison for VersionPredicateStandard.
	StandardPredicate *ComparisonOperatorPredicate
	Contains          Containment
}

// SetOperatorSymbol joins containments inside parentheses.
type SetOperatorSymbol int

const (
	SetOperatorAnd SetOperatorSymbol = iota
	SetOperatorOr
)

// ContainmentSetOperator is `(a AND b ...)` or `(a OR b ...)`.
type ContainmentSetOperator struct {
	Symbol SetOperatorSymbol
	Values []Containment
}

// ContainmentNot is `NOT CONTAINS ...`.
type ContainmentNot struct {
	Contains Containment
}

func (*ContainmentClassExpression) isContainment()   {}
func (*ContainmentVersionExpression) isContainment() {}
func (*ContainmentSetOperator) isContainment()       {}
func (*ContainmentNot) isContainment()               {}

// ---------------------------------------------------------------------------
// Paths and predicates

// ComparisonOperator is used by path predicates and where comparisons.
type ComparisonOperator int

const (
	OpEq ComparisonOperator = iota
	OpNeq
	OpLt
	OpLtEq
	OpGt
	OpGtEq
	OpMatches
)

// ComparisonOperatorPredicate is `path op value` inside a predicate.
type ComparisonOperatorPredicate struct {
	Path     *ObjectPath
	Operator ComparisonOperator
	Value    Operand
}

// AndOperatorPredicate is a conjunction of comparisons.
type AndOperatorPredicate struct {
	Operands []ComparisonOperatorPredicate
}

// Predicates is a disjunction of AndOperatorPredicates. Nil means no predicate.
type Predicates []AndOperatorPredicate

// PathNode is one attribute step of an object path.
type PathNode struct {
	Attribute  string
	Predicates Predicates
}

// ObjectPath is a slash separated attribute path below a containment.
type ObjectPath struct {
	Nodes []PathNode
}

// IdentifiedPath is a path rooted at a containment identifier.
type IdentifiedPath struct {
	Root           string
	RootPredicates Predicates
	Path           *ObjectPath // nil for the bare identifier
}

// ---------------------------------------------------------------------------
// Select column expressions and operands

// ColumnExpression is a SELECT item.
type ColumnExpression interface {
	isColumnExpression()
}

// Operand is a value position in where conditions and predicates.
type Operand interface {
	isOperand()
}

// AggregateFunctionName names the supported aggregate functions.
type AggregateFunctionName int

const (
	AggregateCount AggregateFunctionName = iota
	AggregateMin
	AggregateMax
	AggregateSum
	AggregateAvg
)

// AggregateFunction is `FN([DISTINCT] path)`; Path is nil for COUNT(*).
type AggregateFunction struct {
	Function AggregateFunctionName
	Distinct bool
	Path     *IdentifiedPath
}

// PrimitiveKind discriminates literal values.
type PrimitiveKind int

const (
	PrimitiveString PrimitiveKind = iota
	PrimitiveInteger
	PrimitiveDouble
	PrimitiveBoolean
	PrimitiveTemporal
	PrimitiveNull
)

// Primitive is a literal. Value holds string, int64, float64, bool or nil
// according to Kind; temporal literals keep their ISO 8601 text.
type Primitive struct {
	Kind  PrimitiveKind
	Value any
}

// Parameter is an unresolved `$name` query parameter.
type Parameter struct {
	Name string
}

func (*IdentifiedPath) isColumnExpression()    {}
func (*AggregateFunction) isColumnExpression() {}
func (*Primitive) isColumnExpression()         {}

func (*IdentifiedPath) isOperand()    {}
func (*AggregateFunction) isOperand() {}
func (*Primitive) isOperand()         {}
func (*Parameter) isOperand()         {}

// StringValue builds a string literal.
func StringValue(s string) *Primitive { return &Primitive{Kind: PrimitiveString, Value: s} }

// IntegerValue builds an integer literal.
func IntegerValue(i int64) *Primitive { return &Primitive{Kind: PrimitiveInteger, Value: i} }

// DoubleValue builds a floating point literal.
func DoubleValue(f float64) *Primitive { return &Primitive{Kind: PrimitiveDouble, Value: f} }

// BooleanValue builds a boolean literal.
func BooleanValue(b bool) *Primitive { return &Primitive{Kind: PrimitiveBoolean, Value: b} }

// TemporalValue builds a date, time or date-time literal from its ISO 8601 text.
func TemporalValue(s string) *Primitive { return &Primitive{Kind: PrimitiveTemporal, Value: s} }

// NullValue builds the NULL literal.
func NullValue() *Primitive { return &Primitive{Kind: PrimitiveNull} }

// ---------------------------------------------------------------------------
// Where conditions

// WhereCondition is a node of the WHERE clause.
type WhereCondition interface {
	isWhereCondition()
}

// ComparisonOperatorCondition is `statement op value`.
type ComparisonOperatorCondition struct {
	Statement Operand
	Symbol    ComparisonOperator
	Value     Operand
}

// LikeCondition is `statement LIKE value`.
type LikeCondition struct {
	Statement Operand
	Value     Operand
}

// MatchesCondition is `statement MATCHES {v1, v2, ...}`.
type MatchesCondition struct {
	Statement Operand
	Values    []Operand
}

// ExistsCondition is `EXISTS path`.
type ExistsCondition struct {
	Value *IdentifiedPath
}

// LogicalOperatorSymbol is AND or OR.
type LogicalOperatorSymbol int

const (
	LogicalAnd LogicalOperatorSymbol = iota
	LogicalOr
)

// LogicalOperatorCondition combines conditions with AND or OR.
type LogicalOperatorCondition struct {
	Symbol LogicalOperatorSymbol
	Values []WhereCondition
}

// NotCondition negates a condition.
type NotCondition struct {
	Condition WhereCondition
}

func (*ComparisonOperatorCondition) isWhereCondition() {}
func (*LikeCondition) isWhereCondition()               {}
func (*MatchesCondition) isWhereCondition()            {}
func (*ExistsCondition) isWhereCondition()             {}
func (*LogicalOperatorCondition) isWhereCondition()    {}
func (*NotCondition) isWhereCondition()                {}
