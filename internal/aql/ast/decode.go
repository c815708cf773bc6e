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

package ast

import (
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// queryDocument is the JSON form of a parsed query. Paths are written in AQL
// path syntax and tokenized by ParseIdentifiedPath.
//
// Example:
//
//	{
//	  "select": {"statements": [{"columnExpression": {"@type": "IdentifiedPath", "path": "c/uid/value"}}]},
//	  "from": {"@type": "ContainmentClassExpression", "type": "COMPOSITION", "identifier": "c"},
//	  "limit": 10
//	}
type queryDocument struct {
	Select struct {
		Distinct   bool `json:"distinct"`
		Statements []struct {
			ColumnExpression jsoniter.RawMessage `json:"columnExpression"`
			Alias            string              `json:"alias"`
		} `json:"statements"`
	} `json:"select"`
	From    jsoniter.RawMessage `json:"from"`
	Where   jsoniter.RawMessage `json:"where"`
	OrderBy []struct {
		Statement string `json:"statement"`
		Direction string `json:"direction"`
	} `json:"orderBy"`
	Limit  *int64 `json:"limit"`
	Offset *int64 `json:"offset"`
}

// envelope carries the union of all node fields, discriminated by "@type".
type envelope struct {
	Type       string                `json:"@type"`
	RmType     string                `json:"type"`
	Identifier string                `json:"identifier"`
	Predicates string                `json:"predicates"`
	Predicate  string                `json:"predicate"`
	Contains   jsoniter.RawMessage   `json:"contains"`
	Symbol     string                `json:"symbol"`
	Values     []jsoniter.RawMessage `json:"values"`
	Statement  jsoniter.RawMessage   `json:"statement"`
	Value      jsoniter.RawMessage   `json:"value"`
	Condition  jsoniter.RawMessage   `json:"condition"`
	Path       string                `json:"path"`
	Function   string                `json:"function"`
	Distinct   bool                  `json:"distinct"`
	Kind       string                `json:"kind"`
	Name       string                `json:"name"`
}

// DecodeQuery reads a query document produced by the AQL parser front end.
func DecodeQuery(data []byte) (*Query, error) {
	var doc queryDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode query document: %w", err)
	}
	q := &Query{Limit: doc.Limit, Offset: doc.Offset}
	q.Select.Distinct = doc.Select.Distinct
	for i, s := range doc.Select.Statements {
		expr, err := decodeColumnExpression(s.ColumnExpression)
		if err != nil {
			return nil, fmt.Errorf("select item %d: %w", i, err)
		}
		q.Select.Statements = append(q.Select.Statements, SelectExpression{ColumnExpression: expr, Alias: s.Alias})
	}
	from, err := decodeContainment(doc.From)
	if err != nil {
		return nil, fmt.Errorf("from: %w", err)
	}
	if from == nil {
		return nil, fmt.Errorf("from: missing containment")
	}
	q.From = from
	where, err := decodeCondition(doc.Where)
	if err != nil {
		return nil, fmt.Errorf("where: %w", err)
	}
	q.Where = where
	for _, o := range doc.OrderBy {
		p, err := ParseIdentifiedPath(o.Statement)
		if err != nil {
			return nil, fmt.Errorf("order by: %w", err)
		}
		dir := Ascending
		if strings.EqualFold(o.Direction, "DESC") || strings.EqualFold(o.Direction, "DESCENDING") {
			dir = Descending
		}
		q.OrderBy = append(q.OrderBy, OrderByExpression{Statement: p, Direction: dir})
	}
	return q, nil
}

func isEmpty(raw jsoniter.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s == "" || s == "null"
}

func decodeEnvelope(raw jsoniter.RawMessage) (*envelope, error) {
	var e envelope
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func decodeContainment(raw jsoniter.RawMessage) (Containment, error) {
	if isEmpty(raw) {
		return nil, nil
	}
	e, err := decodeEnvelope(raw)
	if err != nil {
		return nil, err
	}
	contains, err := decodeContainment(e.Contains)
	if err != nil {
		return nil, err
	}
	switch e.Type {
	case "ContainmentClassExpression":
		predicates, err := ParsePredicates(e.Predicates)
		if err != nil {
			return nil, err
		}
		return &ContainmentClassExpression{Type: e.RmType, Identifier: e.Identifier, Predicates: predicates, Contains: contains}, nil
	case "ContainmentVersionExpression":
		v := &ContainmentVersionExpression{Identifier: e.Identifier, Contains: contains}
		switch strings.ToUpper(strings.TrimSpace(e.Predicate)) {
		case "":
			v.Predicate = VersionPredicateNone
		case "LATEST_VERSION":
			v.Predicate = VersionPredicateLatest
		case "ALL_VERSIONS":
			v.Predicate = VersionPredicateAll
		default:
			c, err := parseComparison(e.Predicate)
			if err != nil {
				return nil, err
			}
			v.Predicate = VersionPredicateStandard
			v.StandardPredicate = &c
		}
		return v, nil
	case "ContainmentSetOperator":
		symbol, err := decodeSetSymbol(e.Symbol)
		if err != nil {
			return nil, err
		}
		s := &ContainmentSetOperator{Symbol: symbol}
		for _, rv := range e.Values {
			c, err := decodeContainment(rv)
			if err != nil {
				return nil, err
			}
			s.Values = append(s.Values, c)
		}
		return s, nil
	case "ContainmentNot":
		return &ContainmentNot{Contains: contains}, nil
	default:
		return nil, fmt.Errorf("unknown containment type %q", e.Type)
	}
}

func decodeSetSymbol(s string) (SetOperatorSymbol, error) {
	switch strings.ToUpper(s) {
	case "AND":
		return SetOperatorAnd, nil
	case "OR":
		return SetOperatorOr, nil
	default:
		return 0, fmt.Errorf("unknown set operator %q", s)
	}
}

func decodeColumnExpression(raw jsoniter.RawMessage) (ColumnExpression, error) {
	o, err := decodeOperand(raw)
	if err != nil {
		return nil, err
	}
	switch t := o.(type) {
	case *IdentifiedPath:
		return t, nil
	case *AggregateFunction:
		return t, nil
	case *Primitive:
		return t, nil
	default:
		return nil, fmt.Errorf("unsupported select expression")
	}
}

func decodeOperand(raw jsoniter.RawMessage) (Operand, error) {
	if isEmpty(raw) {
		return nil, fmt.Errorf("missing operand")
	}
	e, err := decodeEnvelope(raw)
	if err != nil {
		return nil, err
	}
	switch e.Type {
	case "IdentifiedPath":
		return ParseIdentifiedPath(e.Path)
	case "AggregateFunction":
		fn, err := decodeAggregateName(e.Function)
		if err != nil {
			return nil, err
		}
		a := &AggregateFunction{Function: fn, Distinct: e.Distinct}
		if e.Path != "" && e.Path != "*" {
			p, err := ParseIdentifiedPath(e.Path)
			if err != nil {
				return nil, err
			}
			a.Path = p
		}
		return a, nil
	case "Primitive":
		return decodePrimitive(e)
	case "Parameter":
		return &Parameter{Name: e.Name}, nil
	default:
		return nil, fmt.Errorf("unknown operand type %q", e.Type)
	}
}

func decodeAggregateName(s string) (AggregateFunctionName, error) {
	switch strings.ToUpper(s) {
	case "COUNT":
		return AggregateCount, nil
	case "MIN":
		return AggregateMin, nil
	case "MAX":
		return AggregateMax, nil
	case "SUM":
		return AggregateSum, nil
	case "AVG":
		return AggregateAvg, nil
	default:
		return 0, fmt.Errorf("unknown aggregate function %q", s)
	}
}

func decodePrimitive(e *envelope) (*Primitive, error) {
	switch strings.ToUpper(e.Kind) {
	case "STRING":
		var s string
		if err := json.Unmarshal(e.Value, &s); err != nil {
			return nil, err
		}
		return StringValue(s), nil
	case "TEMPORAL":
		var s string
		if err := json.Unmarshal(e.Value, &s); err != nil {
			return nil, err
		}
		return TemporalValue(s), nil
	case "INTEGER":
		var i int64
		if err := json.Unmarshal(e.Value, &i); err != nil {
			return nil, err
		}
		return IntegerValue(i), nil
	case "DOUBLE":
		var f float64
		if err := json.Unmarshal(e.Value, &f); err != nil {
			return nil, err
		}
		return DoubleValue(f), nil
	case "BOOLEAN":
		var b bool
		if err := json.Unmarshal(e.Value, &b); err != nil {
			return nil, err
		}
		return BooleanValue(b), nil
	case "NULL":
		return NullValue(), nil
	default:
		return nil, fmt.Errorf("unknown primitive kind %q", e.Kind)
	}
}

func decodeComparisonSymbol(s string) (ComparisonOperator, error) {
	switch strings.ToUpper(s) {
	case "EQ", "=":
		return OpEq, nil
	case "NEQ", "!=":
		return OpNeq, nil
	case "LT", "<":
		return OpLt, nil
	case "LT_EQ", "<=":
		return OpLtEq, nil
	case "GT", ">":
		return OpGt, nil
	case "GT_EQ", ">=":
		return OpGtEq, nil
	default:
		return 0, fmt.Errorf("unknown comparison operator %q", s)
	}
}

func decodeCondition(raw jsoniter.RawMessage) (WhereCondition, error) {
	if isEmpty(raw) {
		return nil, nil
	}
	e, err := decodeEnvelope(raw)
	if err != nil {
		return nil, err
	}
	switch e.Type {
	case "ComparisonOperatorCondition":
		symbol, err := decodeComparisonSymbol(e.Symbol)
		if err != nil {
			return nil, err
		}
		statement, err := decodeOperand(e.Statement)
		if err != nil {
			return nil, err
		}
		value, err := decodeOperand(e.Value)
		if err != nil {
			return nil, err
		}
		return &ComparisonOperatorCondition{Statement: statement, Symbol: symbol, Value: value}, nil
	case "LikeCondition":
		statement, err := decodeOperand(e.Statement)
		if err != nil {
			return nil, err
		}
		value, err := decodeOperand(e.Value)
		if err != nil {
			return nil, err
		}
		return &LikeCondition{Statement: statement, Value: value}, nil
	case "MatchesCondition":
		statement, err := decodeOperand(e.Statement)
		if err != nil {
			return nil, err
		}
		m := &MatchesCondition{Statement: statement}
		for _, rv := range e.Values {
			v, err := decodeOperand(rv)
			if err != nil {
				return nil, err
			}
			m.Values = append(m.Values, v)
		}
		return m, nil
	case "ExistsCondition":
		p, err := ParseIdentifiedPath(e.Path)
		if err != nil {
			return nil, err
		}
		return &ExistsCondition{Value: p}, nil
	case "LogicalOperatorCondition":
		l := &LogicalOperatorCondition{}
		switch strings.ToUpper(e.Symbol) {
		case "AND":
			l.Symbol = LogicalAnd
		case "OR":
			l.Symbol = LogicalOr
		default:
			return nil, fmt.Errorf("unknown logical operator %q", e.Symbol)
		}
		for _, rv := range e.Values {
			c, err := decodeCondition(rv)
			if err != nil {
				return nil, err
			}
			l.Values = append(l.Values, c)
		}
		return l, nil
	case "NotCondition":
		c, err := decodeCondition(e.Condition)
		if err != nil {
			return nil, err
		}
		return &NotCondition{Condition: c}, nil
	default:
		return nil, fmt.Errorf("unknown condition type %q", e.Type)
	}
}
