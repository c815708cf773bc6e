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
	"strconv"
	"strings"
)

// String renders the query back into AQL text, used for error messages and logging.
func (q *Query) String() string {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	if q.Select.Distinct {
		sb.WriteString("DISTINCT ")
	}
	for i, s := range q.Select.Statements {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(s.String())
	}
	sb.WriteString(" FROM ")
	sb.WriteString(RenderContainment(q.From))
	if q.Where != nil {
		sb.WriteString(" WHERE ")
		sb.WriteString(RenderCondition(q.Where))
	}
	if len(q.OrderBy) > 0 {
		sb.WriteString(" ORDER BY ")
		for i, o := range q.OrderBy {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(o.String())
		}
	}
	if q.Limit != nil {
		sb.WriteString(" LIMIT ")
		sb.WriteString(strconv.FormatInt(*q.Limit, 10))
	}
	if q.Offset != nil {
		sb.WriteString(" OFFSET ")
		sb.WriteString(strconv.FormatInt(*q.Offset, 10))
	}
	return sb.String()
}

func (s SelectExpression) String() string {
	r := RenderColumnExpression(s.ColumnExpression)
	if s.Alias != "" {
		r += " AS " + s.Alias
	}
	return r
}

func (o OrderByExpression) String() string {
	if o.Direction == Descending {
		return o.Statement.String() + " DESC"
	}
	return o.Statement.String() + " ASC"
}

// RenderContainment renders a FROM clause element.
func RenderContainment(c Containment) string {
	switch t := c.(type) {
	case *ContainmentClassExpression:
		r := t.Type
		if t.Identifier != "" {
			r += " " + t.Identifier
		}
		return r + t.Predicates.String() + containsClause(t.Contains)
	case *ContainmentVersionExpression:
		r := "VERSION"
		if t.Identifier != "" {
			r += " " + t.Identifier
		}
		switch t.Predicate {
		case VersionPredicateLatest:
			r += "[LATEST_VERSION]"
		case VersionPredicateAll:
			r += "[ALL_VERSIONS]"
		case VersionPredicateStandard:
			if t.StandardPredicate != nil {
				r += "[" + t.StandardPredicate.String() + "]"
			}
		}
		return r + containsClause(t.Contains)
	case *ContainmentSetOperator:
		parts := make([]string, len(t.Values))
		for i, v := range t.Values {
			parts[i] = RenderContainment(v)
		}
		return "(" + strings.Join(parts, " "+t.Symbol.String()+" ") + ")"
	case *ContainmentNot:
		return "NOT CONTAINS " + RenderContainment(t.Contains)
	default:
		return ""
	}
}

func containsClause(c Containment) string {
	switch t := c.(type) {
	case nil:
		return ""
	case *ContainmentNot:
		return " NOT CONTAINS " + RenderContainment(t.Contains)
	default:
		return " CONTAINS " + RenderContainment(t)
	}
}

func (s SetOperatorSymbol) String() string {
	if s == SetOperatorOr {
		return "OR"
	}
	return "AND"
}

func (o ComparisonOperator) String() string {
	switch o {
	case OpEq:
		return "="
	case OpNeq:
		return "!="
	case OpLt:
		return "<"
	case OpLtEq:
		return "<="
	case OpGt:
		return ">"
	case OpGtEq:
		return ">="
	default:
		return "matches"
	}
}

func (a AggregateFunctionName) String() string {
	switch a {
	case AggregateCount:
		return "COUNT"
	case AggregateMin:
		return "MIN"
	case AggregateMax:
		return "MAX"
	case AggregateSum:
		return "SUM"
	default:
		return "AVG"
	}
}

func (s LogicalOperatorSymbol) String() string {
	if s == LogicalOr {
		return "OR"
	}
	return "AND"
}

// String renders the predicate list including the surrounding brackets, or
// the empty string when there is none. The `[archetype_node_id]` and
// `[archetype_node_id, 'name']` shorthands are used where they apply.
func (p Predicates) String() string {
	if len(p) == 0 {
		return ""
	}
	if short, ok := p.shorthand(); ok {
		return "[" + short + "]"
	}
	ors := make([]string, len(p))
	for i, and := range p {
		ands := make([]string, len(and.Operands))
		for j, c := range and.Operands {
			ands[j] = c.String()
		}
		ors[i] = strings.Join(ands, " and ")
	}
	return "[" + strings.Join(ors, " or ") + "]"
}

func (p Predicates) shorthand() (string, bool) {
	if len(p) != 1 || len(p[0].Operands) == 0 || len(p[0].Operands) > 2 {
		return "", false
	}
	ops := p[0].Operands
	node, ok := stringEquality(ops[0], ArchetypeNodeIDAttribute)
	if !ok {
		return "", false
	}
	if len(ops) == 1 {
		return node, true
	}
	name, ok := stringEquality(ops[1], NameValuePath)
	if !ok {
		return "", false
	}
	return node + ", " + StringValue(name).String(), true
}

func stringEquality(c ComparisonOperatorPredicate, path string) (string, bool) {
	if c.Operator != OpEq || c.Path == nil || c.Path.String() != path {
		return "", false
	}
	prim, ok := c.Value.(*Primitive)
	if !ok || prim.Kind != PrimitiveString {
		return "", false
	}
	return prim.Value.(string), true
}

func (c ComparisonOperatorPredicate) String() string {
	return c.Path.String() + c.Operator.String() + RenderOperand(c.Value)
}

func (n PathNode) String() string {
	return n.Attribute + n.Predicates.String()
}

func (p *ObjectPath) String() string {
	if p == nil {
		return ""
	}
	parts := make([]string, len(p.Nodes))
	for i, n := range p.Nodes {
		parts[i] = n.String()
	}
	return strings.Join(parts, "/")
}

func (p *IdentifiedPath) String() string {
	r := p.Root + p.RootPredicates.String()
	if p.Path != nil && len(p.Path.Nodes) > 0 {
		r += "/" + p.Path.String()
	}
	return r
}

func (a *AggregateFunction) String() string {
	arg := "*"
	if a.Path != nil {
		arg = a.Path.String()
	}
	if a.Distinct {
		arg = "DISTINCT " + arg
	}
	return a.Function.String() + "(" + arg + ")"
}

func (p *Primitive) String() string {
	switch p.Kind {
	case PrimitiveString, PrimitiveTemporal:
		s, _ := p.Value.(string)
		return "'" + strings.ReplaceAll(s, "'", "\\'") + "'"
	case PrimitiveInteger:
		i, _ := p.Value.(int64)
		return strconv.FormatInt(i, 10)
	case PrimitiveDouble:
		f, _ := p.Value.(float64)
		return strconv.FormatFloat(f, 'g', -1, 64)
	case PrimitiveBoolean:
		b, _ := p.Value.(bool)
		return strconv.FormatBool(b)
	default:
		return "NULL"
	}
}

func (p *Parameter) String() string {
	return "$" + p.Name
}

// RenderColumnExpression renders a SELECT item without its alias.
func RenderColumnExpression(c ColumnExpression) string {
	switch t := c.(type) {
	case *IdentifiedPath:
		return t.String()
	case *AggregateFunction:
		return t.String()
	case *Primitive:
		return t.String()
	default:
		return ""
	}
}

// RenderOperand renders a where or predicate operand.
func RenderOperand(o Operand) string {
	switch t := o.(type) {
	case *IdentifiedPath:
		return t.String()
	case *AggregateFunction:
		return t.String()
	case *Primitive:
		return t.String()
	case *Parameter:
		return t.String()
	default:
		return ""
	}
}

// RenderCondition renders a WHERE clause node.
func RenderCondition(c WhereCondition) string {
	switch t := c.(type) {
	case *ComparisonOperatorCondition:
		return RenderOperand(t.Statement) + " " + t.Symbol.String() + " " + RenderOperand(t.Value)
	case *LikeCondition:
		return RenderOperand(t.Statement) + " LIKE " + RenderOperand(t.Value)
	case *MatchesCondition:
		values := make([]string, len(t.Values))
		for i, v := range t.Values {
			values[i] = RenderOperand(v)
		}
		return RenderOperand(t.Statement) + " matches {" + strings.Join(values, ", ") + "}"
	case *ExistsCondition:
		return "EXISTS " + t.Value.String()
	case *LogicalOperatorCondition:
		parts := make([]string, len(t.Values))
		for i, v := range t.Values {
			parts[i] = nestedCondition(v)
		}
		return strings.Join(parts, " "+t.Symbol.String()+" ")
	case *NotCondition:
		return "NOT " + nestedCondition(t.Condition)
	default:
		return ""
	}
}

func nestedCondition(c WhereCondition) string {
	if _, ok := c.(*LogicalOperatorCondition); ok {
		return "(" + RenderCondition(c) + ")"
	}
	return RenderCondition(c)
}
