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

// Clone returns a deep copy of the query; rewrites operate on the copy.
func (q *Query) Clone() *Query {
	if q == nil {
		return nil
	}
	c := &Query{
		Select: Select{Distinct: q.Select.Distinct},
		From:   CloneContainment(q.From),
		Where:  CloneCondition(q.Where),
	}
	for _, s := range q.Select.Statements {
		c.Select.Statements = append(c.Select.Statements, SelectExpression{
			ColumnExpression: cloneColumnExpression(s.ColumnExpression),
			Alias:            s.Alias,
		})
	}
	for _, o := range q.OrderBy {
		c.OrderBy = append(c.OrderBy, OrderByExpression{Statement: o.Statement.Clone(), Direction: o.Direction})
	}
	if q.Limit != nil {
		l := *q.Limit
		c.Limit = &l
	}
	if q.Offset != nil {
		o := *q.Offset
		c.Offset = &o
	}
	return c
}

// CloneContainment deep copies a FROM clause element.
func CloneContainment(c Containment) Containment {
	switch t := c.(type) {
	case *ContainmentClassExpression:
		return &ContainmentClassExpression{
			Type:       t.Type,
			Identifier: t.Identifier,
			Predicates: t.Predicates.Clone(),
			Contains:   CloneContainment(t.Contains),
		}
	case *ContainmentVersionExpression:
		v := &ContainmentVersionExpression{
			Identifier: t.Identifier,
			Predicate:  t.Predicate,
			Contains:   CloneContainment(t.Contains),
		}
		if t.StandardPredicate != nil {
			sp := t.StandardPredicate.clone()
			v.StandardPredicate = &sp
		}
		return v
	case *ContainmentSetOperator:
		s := &ContainmentSetOperator{Symbol: t.Symbol}
		for _, v := range t.Values {
			s.Values = append(s.Values, CloneContainment(v))
		}
		return s
	case *ContainmentNot:
		return &ContainmentNot{Contains: CloneContainment(t.Contains)}
	default:
		return nil
	}
}

// Clone deep copies the predicate list.
func (p Predicates) Clone() Predicates {
	if p == nil {
		return nil
	}
	out := make(Predicates, len(p))
	for i, and := range p {
		ops := make([]ComparisonOperatorPredicate, len(and.Operands))
		for j, c := range and.Operands {
			ops[j] = c.clone()
		}
		out[i] = AndOperatorPredicate{Operands: ops}
	}
	return out
}

func (c ComparisonOperatorPredicate) clone() ComparisonOperatorPredicate {
	return ComparisonOperatorPredicate{Path: c.Path.Clone(), Operator: c.Operator, Value: CloneOperand(c.Value)}
}

// Clone deep copies the path.
func (p *ObjectPath) Clone() *ObjectPath {
	if p == nil {
		return nil
	}
	nodes := make([]PathNode, len(p.Nodes))
	for i, n := range p.Nodes {
		nodes[i] = PathNode{Attribute: n.Attribute, Predicates: n.Predicates.Clone()}
	}
	return &ObjectPath{Nodes: nodes}
}

// Clone deep copies the path.
func (p *IdentifiedPath) Clone() *IdentifiedPath {
	if p == nil {
		return nil
	}
	return &IdentifiedPath{Root: p.Root, RootPredicates: p.RootPredicates.Clone(), Path: p.Path.Clone()}
}

func cloneColumnExpression(c ColumnExpression) ColumnExpression {
	switch t := c.(type) {
	case *IdentifiedPath:
		return t.Clone()
	case *AggregateFunction:
		return &AggregateFunction{Function: t.Function, Distinct: t.Distinct, Path: t.Path.Clone()}
	case *Primitive:
		p := *t
		return &p
	default:
		return nil
	}
}

// CloneOperand deep copies an operand.
func CloneOperand(o Operand) Operand {
	switch t := o.(type) {
	case *IdentifiedPath:
		return t.Clone()
	case *AggregateFunction:
		return &AggregateFunction{Function: t.Function, Distinct: t.Distinct, Path: t.Path.Clone()}
	case *Primitive:
		p := *t
		return &p
	case *Parameter:
		p := *t
		return &p
	default:
		return nil
	}
}

// CloneCondition deep copies a WHERE clause node.
func CloneCondition(c WhereCondition) WhereCondition {
	switch t := c.(type) {
	case *ComparisonOperatorCondition:
		return &ComparisonOperatorCondition{Statement: CloneOperand(t.Statement), Symbol: t.Symbol, Value: CloneOperand(t.Value)}
	case *LikeCondition:
		return &LikeCondition{Statement: CloneOperand(t.Statement), Value: CloneOperand(t.Value)}
	case *MatchesCondition:
		m := &MatchesCondition{Statement: CloneOperand(t.Statement)}
		for _, v := range t.Values {
			m.Values = append(m.Values, CloneOperand(v))
		}
		return m
	case *ExistsCondition:
		return &ExistsCondition{Value: t.Value.Clone()}
	case *LogicalOperatorCondition:
		l := &LogicalOperatorCondition{Symbol: t.Symbol}
		for _, v := range t.Values {
			l.Values = append(l.Values, CloneCondition(v))
		}
		return l
	case *NotCondition:
		return &NotCondition{Condition: CloneCondition(t.Condition)}
	default:
		return nil
	}
}

// VisitPaths calls fn for every identified path of the query in SELECT, WHERE,
// ORDER BY order. Predicate operands are not visited.
func (q *Query) VisitPaths(fn func(*IdentifiedPath)) {
	for _, s := range q.Select.Statements {
		switch t := s.ColumnExpression.(type) {
		case *IdentifiedPath:
			fn(t)
		case *AggregateFunction:
			if t.Path != nil {
				fn(t.Path)
			}
		}
	}
	visitConditionPaths(q.Where, fn)
	for _, o := range q.OrderBy {
		fn(o.Statement)
	}
}

func visitConditionPaths(c WhereCondition, fn func(*IdentifiedPath)) {
	operand := func(o Operand) {
		switch t := o.(type) {
		case *IdentifiedPath:
			fn(t)
		case *AggregateFunction:
			if t.Path != nil {
				fn(t.Path)
			}
		}
	}
	switch t := c.(type) {
	case *ComparisonOperatorCondition:
		operand(t.Statement)
		operand(t.Value)
	case *LikeCondition:
		operand(t.Statement)
		operand(t.Value)
	case *MatchesCondition:
		operand(t.Statement)
		for _, v := range t.Values {
			operand(v)
		}
	case *ExistsCondition:
		fn(t.Value)
	case *LogicalOperatorCondition:
		for _, v := range t.Values {
			visitConditionPaths(v, fn)
		}
	case *NotCondition:
		visitConditionPaths(t.Condition, fn)
	}
}
