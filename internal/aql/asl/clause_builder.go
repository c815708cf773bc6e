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

package asl

import (
	"github.com/ehrbase/ehrbase-go-components/internal/aql/ast"
	"github.com/ehrbase/ehrbase-go-components/internal/aql/wrapper"
	"github.com/ehrbase/ehrbase-go-components/internal/common"
)

func (s *buildState) buildSelect() error {
	aggregated := false
	for _, sw := range s.query.Selects {
		var f Field
		var err error
		switch sw.Type {
		case wrapper.SelectPrimitive:
			f = &ConstantField{Value: sw.Primitive.Value}
		case wrapper.SelectAggregate:
			aggregated = true
			f, err = s.aggregate(sw)
		default:
			f, err = s.lowerPath(sw.Root, sw.Path, true)
		}
		if err != nil {
			return err
		}
		name := sw.Alias
		if name == "" {
			name = ast.RenderColumnExpression(sw.Clause.ColumnExpression)
		}
		s.root.Select = append(s.root.Select, SelectField{Name: name, Field: f})
	}
	if !aggregated {
		return nil
	}
	for _, sf := range s.root.Select {
		switch sf.Field.(type) {
		case *AggregatingField, *ConstantField:
		default:
			s.root.GroupBy = append(s.root.GroupBy, sf.Field)
		}
	}
	return nil
}

// aggregate lowers an aggregate function. COUNT of a containment counts its
// rows; the other functions aggregate the ordering key of data values.
func (s *buildState) aggregate(sw *wrapper.SelectWrapper) (Field, error) {
	af := &AggregatingField{Function: sw.Aggregate, Distinct: sw.Distinct}
	if sw.Path == nil {
		return af, nil
	}
	if sw.Path.Path == nil {
		sq, ok := s.sources[sw.Root.ID]
		if !ok {
			return nil, common.NewErrInternal(nil, "no query for containment %s", sw.Root)
		}
		if sw.Distinct && sq.Relation.HasDataTable() {
			// num is only unique within a versioned object
			af.Base = &SubqueryField{Kind: SubqueryStructureRows, Owner: sq}
			return af, nil
		}
		af.Base = keyField(sq)
		return af, nil
	}
	base, err := s.lowerPath(sw.Root, sw.Path, false)
	if err != nil {
		return nil, err
	}
	if sw.Aggregate != ast.AggregateCount {
		base = s.orderingField(base)
	}
	af.Base = base
	return af, nil
}

// orderingField extends a data value field by the attribute it is ordered by,
// e.g. DV_QUANTITY by magnitude.
func (s *buildState) orderingField(f Field) Field {
	df, ok := f.(*DataField)
	if !ok {
		return f
	}
	key, ok := s.md.CommonOrderingKey(df.ValueTypes)
	if !ok || len(key) == 0 {
		return f
	}
	out := df.WithPath(key...)
	out.ValueTypes = s.keyTypes(df.ValueTypes, key)
	return out
}

// keyTypes returns the types reached by key from any of types.
func (s *buildState) keyTypes(types []string, key []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, t := range types {
		current := []string{t}
		for _, attr := range key {
			var next []string
			for _, c := range current {
				if info, ok := s.md.AttributeInfo(attr, c); ok {
					next = append(next, info.Targets...)
				}
			}
			current = next
		}
		for _, c := range current {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	return out
}

func (s *buildState) condition(cw wrapper.ConditionWrapper) (Condition, error) {
	switch t := cw.(type) {
	case *wrapper.LogicalConditionWrapper:
		ops := make([]Condition, 0, len(t.Values))
		for _, v := range t.Values {
			c, err := s.condition(v)
			if err != nil {
				return nil, err
			}
			ops = append(ops, c)
		}
		switch t.Operator {
		case wrapper.LogicalAnd:
			return &And{Operands: ops}, nil
		case wrapper.LogicalOr:
			return &Or{Operands: ops}, nil
		default:
			if len(ops) != 1 {
				return nil, common.NewErrInternal(nil, "NOT with %d operands", len(ops))
			}
			return &Not{Condition: ops[0]}, nil
		}
	case *wrapper.ComparisonConditionWrapper:
		return s.comparison(t)
	default:
		return nil, common.NewErrInternal(nil, "unexpected condition wrapper %T", cw)
	}
}

func (s *buildState) comparison(cw *wrapper.ComparisonConditionWrapper) (Condition, error) {
	if cw.Path == nil {
		return nil, common.NewErrInternal(nil, "comparison without path: %s", ast.RenderCondition(cw.Clause))
	}
	f, err := s.lowerPath(cw.Root, cw.Path, false)
	if err != nil {
		return nil, err
	}
	var values []any
	null := false
	for _, v := range cw.Values {
		p, ok := v.(*ast.Primitive)
		if !ok {
			return nil, common.NewErrInternal(nil, "unexpected operand %s", ast.RenderOperand(v))
		}
		if p.Kind == ast.PrimitiveNull {
			null = true
			continue
		}
		values = append(values, p.Value)
	}
	if null && len(values) == 0 {
		switch cw.Operator {
		case wrapper.OpEq:
			return &FieldValue{Field: f, Operator: OpIsNull}, nil
		case wrapper.OpNeq:
			return &FieldValue{Field: f, Operator: OpIsNotNull}, nil
		}
	}
	var op Operator
	switch cw.Operator {
	case wrapper.OpEq:
		op = OpEq
	case wrapper.OpNeq:
		op = OpNeq
	case wrapper.OpLt:
		op = OpLt
	case wrapper.OpLtEq:
		op = OpLtEq
	case wrapper.OpGt:
		op = OpGt
	case wrapper.OpGtEq:
		op = OpGtEq
	case wrapper.OpLike:
		op = OpLike
	case wrapper.OpMatches:
		op = OpIn
	default:
		return nil, common.NewErrInternal(nil, "operator %s cannot be lowered", cw.Operator)
	}
	return &FieldValue{Field: f, Operator: op, Values: values}, nil
}

func (s *buildState) buildOrderBy() error {
	for _, o := range s.query.OrderBy {
		f, err := s.lowerPath(o.Root, o.Path, false)
		if err != nil {
			return err
		}
		s.root.OrderBy = append(s.root.OrderBy, OrderByField{Field: s.orderingField(f), Direction: o.Direction})
	}
	return nil
}
