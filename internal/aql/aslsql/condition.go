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

package aslsql

import (
	"strconv"
	"strings"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/ehrbase/ehrbase-go-components/internal/aql/asl"
	"github.com/ehrbase/ehrbase-go-components/internal/aql/extractedcolumn"
	"github.com/ehrbase/ehrbase-go-components/internal/aql/rm"
	"github.com/ehrbase/ehrbase-go-components/internal/common"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func trueExpr() exp.LiteralExpression  { return goqu.L("TRUE") }
func falseExpr() exp.LiteralExpression { return goqu.L("FALSE") }

func (c *renderContext) condition(cond asl.Condition, sc scope) (exp.Expression, error) {
	switch t := cond.(type) {
	case *asl.And, *asl.Or:
		var operands []asl.Condition
		and := false
		if a, ok := t.(*asl.And); ok {
			operands, and = a.Operands, true
		} else {
			operands = t.(*asl.Or).Operands
		}
		if len(operands) == 0 {
			if and {
				return trueExpr(), nil
			}
			return falseExpr(), nil
		}
		exprs := make([]exp.Expression, 0, len(operands))
		for _, o := range operands {
			e, err := c.condition(o, sc)
			if err != nil {
				return nil, err
			}
			exprs = append(exprs, e)
		}
		if and {
			return goqu.And(exprs...), nil
		}
		return goqu.Or(exprs...), nil
	case *asl.Not:
		e, err := c.condition(t.Condition, sc)
		if err != nil {
			return nil, err
		}
		return goqu.L("NOT (?)", e), nil
	case *asl.True:
		return trueExpr(), nil
	case *asl.False:
		return falseExpr(), nil
	case *asl.FieldValue:
		return c.fieldValue(t, sc)
	case *asl.NotNull:
		return c.notNull(t.Field, sc)
	case *asl.EntityIdxOffsetCondition:
		pv, cv, err := columnPair(t.Parent, t.Child, "vo_id", sc)
		if err != nil {
			return nil, err
		}
		num, err := column(t.Child, "num", sc)
		if err != nil {
			return nil, err
		}
		return goqu.And(cv.Eq(pv), num.Eq(t.Offset)), nil
	case *asl.DescendantCondition:
		return c.descendant(t, sc)
	case *asl.PathChildCondition:
		pv, cv, err := columnPair(t.Parent, t.Child, "vo_id", sc)
		if err != nil {
			return nil, err
		}
		num, err := column(t.Parent, "num", sc)
		if err != nil {
			return nil, err
		}
		parent, err := column(t.Child, "parent_num", sc)
		if err != nil {
			return nil, err
		}
		return goqu.And(cv.Eq(pv), parent.Eq(num)), nil
	case *asl.FieldEqualityCondition:
		l, err := c.field(t.Left, sc)
		if err != nil {
			return nil, err
		}
		r, err := c.field(t.Right, sc)
		if err != nil {
			return nil, err
		}
		return goqu.L("? = ?", l, r), nil
	default:
		return nil, common.NewErrInternal(nil, "unexpected condition %T", cond)
	}
}

func columnPair(parent, child *asl.StructureQuery, col string, sc scope) (exp.IdentifierExpression, exp.IdentifierExpression, error) {
	p, err := column(parent, col, sc)
	if err != nil {
		return nil, nil, err
	}
	ch, err := column(child, col, sc)
	if err != nil {
		return nil, nil, err
	}
	return p, ch, nil
}

// descendant relates a contained row to its container: by EHR, by folder
// item or by the row range of the container within the same versioned object.
func (c *renderContext) descendant(t *asl.DescendantCondition, sc scope) (exp.Expression, error) {
	switch {
	case t.Parent.Relation == asl.RelationEhr:
		id, err := column(t.Parent, "id", sc)
		if err != nil {
			return nil, err
		}
		ehrID, err := column(t.Child, "ehr_id", sc)
		if err != nil {
			return nil, err
		}
		return ehrID.Eq(id), nil
	case t.Parent.Relation == asl.RelationFolder && t.Child.Relation != asl.RelationFolder:
		items, err := column(t.Parent, "item_uuids", sc)
		if err != nil {
			return nil, err
		}
		vo, err := column(t.Child, "vo_id", sc)
		if err != nil {
			return nil, err
		}
		return goqu.L("? = ANY(?)", vo, items), nil
	default:
		pv, cv, err := columnPair(t.Parent, t.Child, "vo_id", sc)
		if err != nil {
			return nil, err
		}
		pn, cn, err := columnPair(t.Parent, t.Child, "num", sc)
		if err != nil {
			return nil, err
		}
		numCap, err := column(t.Parent, "num_cap", sc)
		if err != nil {
			return nil, err
		}
		return goqu.And(cv.Eq(pv), cn.Gt(pn), cn.Lte(numCap)), nil
	}
}

func (c *renderContext) notNull(f asl.Field, sc scope) (exp.Expression, error) {
	switch t := f.(type) {
	case *asl.ComplexExtractedColumnField:
		col, err := column(t.Owner, t.Columns[0], sc)
		if err != nil {
			return nil, err
		}
		return col.IsNotNull(), nil
	case *asl.DataField:
		e, err := c.field(t, sc)
		if err != nil {
			return nil, err
		}
		return goqu.L("(? #>> '{}')", e).IsNotNull(), nil
	default:
		e, err := c.field(f, sc)
		if err != nil {
			return nil, err
		}
		return goqu.L("?", e).IsNotNull(), nil
	}
}

func (c *renderContext) fieldValue(fv *asl.FieldValue, sc scope) (exp.Expression, error) {
	switch f := fv.Field.(type) {
	case *asl.ComplexExtractedColumnField:
		return c.complexCondition(f, fv.Operator, fv.Values, sc)
	case *asl.DataField:
		e, err := c.field(f, sc)
		if err != nil {
			return nil, err
		}
		text := goqu.L("(? #>> '{}')", e)
		switch fv.Operator {
		case asl.OpIsNull:
			return text.IsNull(), nil
		case asl.OpIsNotNull:
			return text.IsNotNull(), nil
		case asl.OpLike:
			return compare(text, fv.Operator, fv.Values)
		}
		values := make([]any, 0, len(fv.Values))
		for _, v := range fv.Values {
			encoded, err := json.MarshalToString(v)
			if err != nil {
				return nil, common.NewErrInternal(err, "encode %v as JSON", v)
			}
			values = append(values, goqu.L("?::jsonb", encoded))
		}
		return compare(e, fv.Operator, values)
	case *asl.ColumnField:
		col, err := column(f.Owner, f.Column, sc)
		if err != nil {
			return nil, err
		}
		values := fv.Values
		if f.Extracted != nil && isUUIDColumn(*f.Extracted) {
			values = uuidValues(values)
		}
		return compare(col, fv.Operator, values)
	default:
		e, err := c.field(fv.Field, sc)
		if err != nil {
			return nil, err
		}
		return compare(e, fv.Operator, fv.Values)
	}
}

func isUUIDColumn(col extractedcolumn.Column) bool {
	return col == extractedcolumn.EhrID || col == extractedcolumn.OvContributionID
}

// uuidValues keeps the values that are UUIDs in canonical form; other values
// cannot match a uuid column.
func uuidValues(values []any) []any {
	out := make([]any, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if id, err := uuid.Parse(s); err == nil {
			out = append(out, id.String())
		}
	}
	return out
}

// compare applies op. Without values EQ and IN never hold and the other
// operators always do.
func compare(e exp.Expression, op asl.Operator, values []any) (exp.Expression, error) {
	l := goqu.L("?", e)
	switch op {
	case asl.OpIsNull:
		return l.IsNull(), nil
	case asl.OpIsNotNull:
		return l.IsNotNull(), nil
	}
	if len(values) == 0 {
		if op == asl.OpEq || op == asl.OpIn {
			return falseExpr(), nil
		}
		return trueExpr(), nil
	}
	switch op {
	case asl.OpEq, asl.OpIn:
		if len(values) == 1 {
			return l.Eq(values[0]), nil
		}
		return l.In(values...), nil
	case asl.OpNeq:
		if len(values) == 1 {
			return l.Neq(values[0]), nil
		}
		return l.NotIn(values...), nil
	case asl.OpLt:
		return l.Lt(values[0]), nil
	case asl.OpLtEq:
		return l.Lte(values[0]), nil
	case asl.OpGt:
		return l.Gt(values[0]), nil
	case asl.OpGtEq:
		return l.Gte(values[0]), nil
	case asl.OpLike:
		return l.Like(values[0]), nil
	default:
		return nil, common.NewErrInternal(nil, "operator %s cannot be rendered", op)
	}
}

// complexCondition compares extracted columns that are stored in a different
// form than the AQL value: archetype ids split into type and concept, version
// ids into object id and version, template ids by uuid.
func (c *renderContext) complexCondition(f *asl.ComplexExtractedColumnField, op asl.Operator, values []any, sc scope) (exp.Expression, error) {
	if len(f.Columns) == 0 {
		return nil, common.NewErrInternal(nil, "%s has no columns", f.Column)
	}
	cols := make([]exp.IdentifierExpression, len(f.Columns))
	for i, name := range f.Columns {
		col, err := column(f.Owner, name, sc)
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}
	switch op {
	case asl.OpIsNull:
		return cols[0].IsNull(), nil
	case asl.OpIsNotNull:
		return cols[0].IsNotNull(), nil
	case asl.OpLike:
		if f.Column == extractedcolumn.ArchetypeNodeID && len(values) == 1 {
			return goqu.L("(CASE WHEN ? LIKE '.%' THEN 'openEHR-EHR-' || ? || ? ELSE ? END) LIKE ?",
				cols[1], cols[0], cols[1], cols[1], values[0]), nil
		}
	}

	var matches []exp.Expression
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if m, ok := c.complexMatch(f.Column, cols, s); ok {
			matches = append(matches, m)
		}
	}
	switch op {
	case asl.OpEq, asl.OpIn:
		if len(matches) == 0 {
			return falseExpr(), nil
		}
		return goqu.Or(matches...), nil
	case asl.OpNeq:
		if len(matches) == 0 {
			return trueExpr(), nil
		}
		return goqu.L("NOT (?)", goqu.Or(matches...)), nil
	default:
		return nil, common.NewErrInternal(nil, "operator %s is not supported on %s", op, f.Column)
	}
}

func (c *renderContext) complexMatch(col extractedcolumn.Column, cols []exp.IdentifierExpression, s string) (exp.Expression, bool) {
	switch col {
	case extractedcolumn.ArchetypeNodeID:
		rmType, ok := rm.ArchetypeRmType(s)
		if !ok {
			return cols[1].Eq(s), true
		}
		return goqu.And(cols[0].Eq(rmType), cols[1].Eq(s[strings.Index(s, "."):])), true
	case extractedcolumn.VoID:
		parts := strings.Split(s, "::")
		id, err := uuid.Parse(parts[0])
		if err != nil {
			return nil, false
		}
		if len(parts) < 3 || parts[2] == "" {
			return cols[0].Eq(id.String()), true
		}
		version, err := strconv.Atoi(parts[2])
		if err != nil {
			return nil, false
		}
		return goqu.And(cols[0].Eq(id.String()), cols[1].Eq(version)), true
	case extractedcolumn.TemplateID:
		if c.r.Knowledge == nil {
			return nil, false
		}
		id, ok := c.r.Knowledge.UUIDForTemplateID(s)
		if !ok {
			return nil, false
		}
		return cols[0].Eq(id.String()), true
	case extractedcolumn.RootConcept:
		rmType, ok := rm.ArchetypeRmType(s)
		if !ok || rmType != rm.Composition {
			return nil, false
		}
		return cols[0].Eq(s[strings.Index(s, "."):]), true
	case extractedcolumn.AdChangeTypeCodeString:
		name, ok := extractedcolumn.ChangeTypeName(s)
		if !ok {
			return nil, false
		}
		return cols[0].Eq(name), true
	default:
		return cols[0].Eq(s), true
	}
}
