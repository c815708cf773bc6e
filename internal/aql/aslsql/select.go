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
	"fmt"
	"strings"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/lib/pq"

	"github.com/ehrbase/ehrbase-go-components/internal/aql/asl"
	"github.com/ehrbase/ehrbase-go-components/internal/aql/ast"
	"github.com/ehrbase/ehrbase-go-components/internal/aql/extractedcolumn"
	"github.com/ehrbase/ehrbase-go-components/internal/common"
)

// ColumnKind tells the postprocessor how to read the SQL columns of one AQL
// column.
type ColumnKind int

const (
	// KindValue is a plain SQL value.
	KindValue ColumnKind = iota
	// KindJSON is a jsonb value.
	KindJSON
	// KindExtracted are the physical columns of an extracted column, in the
	// order of its Spec.
	KindExtracted
	// KindStructure is a jsonb array of structure rows.
	KindStructure
	// KindConstant has no SQL column; the value is Value.
	KindConstant
)

func (k ColumnKind) String() string {
	switch k {
	case KindJSON:
		return "json"
	case KindExtracted:
		return "extracted"
	case KindStructure:
		return "structure"
	case KindConstant:
		return "constant"
	default:
		return "value"
	}
}

// ColumnLayout describes one AQL result column.
type ColumnLayout struct {
	Name string
	Kind ColumnKind
	// Columns are the SQL column aliases, none for KindConstant.
	Columns []string
	// Extracted is set for extracted columns, including constant ones.
	Extracted *extractedcolumn.Column
	// Numeric values are returned as numeric text by the driver.
	Numeric bool
	// Hidden columns only exist for ORDER BY.
	Hidden bool
	// Multiple structure columns hold the objects of a multiple valued
	// attribute.
	Multiple bool
	Value  any
}

func colName(i int) string {
	return fmt.Sprintf("col_%d", i)
}

// selectField renders the expressions of one select item. Constants render
// none.
func (c *renderContext) selectField(f asl.Field, sc scope) ([]exp.Expression, ColumnLayout, error) {
	switch t := f.(type) {
	case *asl.ConstantField:
		return nil, ColumnLayout{Kind: KindConstant, Value: t.Value, Extracted: t.Extracted}, nil
	case *asl.ComplexExtractedColumnField:
		exprs := make([]exp.Expression, 0, len(t.Columns))
		for _, name := range t.Columns {
			col, err := column(t.Owner, name, sc)
			if err != nil {
				return nil, ColumnLayout{}, err
			}
			exprs = append(exprs, col)
		}
		extracted := t.Column
		return exprs, ColumnLayout{Kind: KindExtracted, Extracted: &extracted}, nil
	case *asl.ColumnField:
		col, err := column(t.Owner, t.Column, sc)
		if err != nil {
			return nil, ColumnLayout{}, err
		}
		if t.Extracted != nil {
			return []exp.Expression{col}, ColumnLayout{Kind: KindExtracted, Extracted: t.Extracted}, nil
		}
		return []exp.Expression{col}, ColumnLayout{Kind: KindValue}, nil
	case *asl.DataField:
		e, err := c.field(t, sc)
		if err != nil {
			return nil, ColumnLayout{}, err
		}
		return []exp.Expression{e}, ColumnLayout{Kind: KindJSON}, nil
	case *asl.SubqueryField:
		e, err := c.structureRows(t, sc)
		if err != nil {
			return nil, ColumnLayout{}, err
		}
		return []exp.Expression{e}, ColumnLayout{Kind: KindStructure, Multiple: t.Kind == asl.SubqueryChildRows}, nil
	case *asl.AggregatingField:
		e, err := c.aggregate(t, sc)
		if err != nil {
			return nil, ColumnLayout{}, err
		}
		return []exp.Expression{e}, ColumnLayout{Kind: KindValue, Numeric: c.numericAggregate(t)}, nil
	default:
		return nil, ColumnLayout{}, common.NewErrInternal(nil, "unexpected field %T", f)
	}
}

// field renders a single valued field.
func (c *renderContext) field(f asl.Field, sc scope) (exp.Expression, error) {
	switch t := f.(type) {
	case *asl.ColumnField:
		return column(t.Owner, t.Column, sc)
	case *asl.ComplexExtractedColumnField:
		return column(t.Owner, t.Columns[0], sc)
	case *asl.DataField:
		base, err := c.dataOf(t.Source, sc)
		if err != nil {
			return nil, err
		}
		return extract(base, t.Path), nil
	case *asl.ConstantField:
		return goqu.V(t.Value), nil
	case *asl.AggregatingField:
		return c.aggregate(t, sc)
	case *asl.SubqueryField:
		return c.structureRows(t, sc)
	default:
		return nil, common.NewErrInternal(nil, "unexpected field %T", f)
	}
}

// extract follows path inside a jsonb value.
func extract(base exp.Expression, path []string) exp.Expression {
	if len(path) == 0 {
		return base
	}
	return goqu.L("(? #> ?::text[])", base, pq.StringArray(path))
}

func (c *renderContext) numericTypes(types []string) bool {
	if len(types) == 0 || c.r.Metadata == nil {
		return false
	}
	for _, t := range types {
		if !c.r.Metadata.IsNumeric(t) {
			return false
		}
	}
	return true
}

// numericAggregate reports whether the aggregate yields a numeric value that
// the driver returns as text.
func (c *renderContext) numericAggregate(f *asl.AggregatingField) bool {
	switch f.Function {
	case ast.AggregateSum, ast.AggregateAvg:
		return true
	case ast.AggregateMin, ast.AggregateMax:
		df, ok := f.Base.(*asl.DataField)
		return ok && c.numericTypes(df.ValueTypes)
	default:
		return false
	}
}

func (c *renderContext) aggregate(f *asl.AggregatingField, sc scope) (exp.Expression, error) {
	if f.Base == nil {
		return goqu.COUNT(goqu.Star()), nil
	}
	arg, err := c.aggregateArgument(f, sc)
	if err != nil {
		return nil, err
	}
	if f.Distinct {
		arg = goqu.DISTINCT(arg)
	}
	switch f.Function {
	case ast.AggregateCount:
		return goqu.COUNT(arg), nil
	case ast.AggregateMin:
		return goqu.MIN(arg), nil
	case ast.AggregateMax:
		return goqu.MAX(arg), nil
	case ast.AggregateSum:
		return goqu.SUM(arg), nil
	case ast.AggregateAvg:
		return goqu.AVG(arg), nil
	default:
		return nil, common.NewErrInternal(nil, "unexpected aggregate function %v", f.Function)
	}
}

// aggregateArgument renders the aggregated value. JSON values are aggregated
// as text, cast to numeric where the function or the value type needs it.
func (c *renderContext) aggregateArgument(f *asl.AggregatingField, sc scope) (exp.Expression, error) {
	switch b := f.Base.(type) {
	case *asl.ComplexExtractedColumnField:
		cols := make([]any, 0, len(b.Columns))
		for _, name := range b.Columns {
			col, err := column(b.Owner, name, sc)
			if err != nil {
				return nil, err
			}
			cols = append(cols, col)
		}
		if len(cols) == 1 {
			return cols[0].(exp.Expression), nil
		}
		return goqu.L("ROW("+strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")+")", cols...), nil
	case *asl.SubqueryField:
		refs, err := c.structureRefs(b.Owner, sc)
		if err != nil {
			return nil, err
		}
		return goqu.L("(CASE WHEN ? IS NULL THEN NULL ELSE ROW(?, ?) END)", refs[1], refs[0], refs[1]), nil
	case *asl.DataField:
		e, err := c.field(b, sc)
		if err != nil {
			return nil, err
		}
		if f.Function == ast.AggregateCount {
			return e, nil
		}
		text := goqu.L("(? #>> '{}')", e)
		if f.Function == ast.AggregateSum || f.Function == ast.AggregateAvg || c.numericTypes(b.ValueTypes) {
			return goqu.Cast(text, "numeric"), nil
		}
		return text, nil
	default:
		return c.field(f.Base, sc)
	}
}

// structureRefs references the columns identifying the row of owner.
func (c *renderContext) structureRefs(owner *asl.StructureQuery, sc scope) ([]any, error) {
	names := []string{"vo_id", "num", "num_cap"}
	if !owner.Relation.HasDataTable() {
		names = []string{"id", "id"}
	} else if owner.VersionTableOnly {
		names = []string{"vo_id", "sys_version"}
	}
	refs := make([]any, 0, len(names))
	for _, name := range names {
		col, err := column(owner, name, sc)
		if err != nil {
			return nil, err
		}
		refs = append(refs, col)
	}
	return refs, nil
}

const rowObject = "jsonb_agg(jsonb_build_object('num', s.num, 'parent_num', s.parent_num, 'attribute', s.entity_attribute, " +
	"'idx', s.entity_idx, 'type', s.rm_entity, 'data', s.data) ORDER BY s.num)"

// structureRows renders the correlated subquery collecting the rows of a
// structure object.
func (c *renderContext) structureRows(f *asl.SubqueryField, sc scope) (exp.Expression, error) {
	_, dataTable := tables(f.Owner.Relation)
	if dataTable == "" {
		return nil, common.NewErrInternal(nil, "%s has no structure rows", f.Owner.Relation)
	}
	vo, err := column(f.Owner, "vo_id", sc)
	if err != nil {
		return nil, err
	}
	var ds *goqu.SelectDataset
	switch {
	case f.Kind == asl.SubqueryStructureRows && f.Owner.VersionTableOnly:
		ds = c.r.Dialect.From(c.table(dataTable, "s")).
			Select(goqu.L(rowObject)).
			Where(goqu.I("s.vo_id").Eq(vo))
	case f.Kind == asl.SubqueryStructureRows:
		num, err := column(f.Owner, "num", sc)
		if err != nil {
			return nil, err
		}
		numCap, err := column(f.Owner, "num_cap", sc)
		if err != nil {
			return nil, err
		}
		ds = c.r.Dialect.From(c.table(dataTable, "s")).
			Select(goqu.L(rowObject)).
			Where(goqu.I("s.vo_id").Eq(vo), goqu.I("s.num").Gte(num), goqu.I("s.num").Lte(numCap))
	default:
		num, err := column(f.Owner, "num", sc)
		if err != nil {
			return nil, err
		}
		ds = c.r.Dialect.From(c.table(dataTable, "ch")).
			Join(c.table(dataTable, "s"), goqu.On(
				goqu.I("s.vo_id").Eq(goqu.I("ch.vo_id")),
				goqu.I("s.num").Gte(goqu.I("ch.num")),
				goqu.I("s.num").Lte(goqu.I("ch.num_cap")),
			)).
			Select(goqu.L(rowObject)).
			Where(goqu.I("ch.vo_id").Eq(vo), goqu.I("ch.parent_num").Eq(num), goqu.I("ch.entity_attribute").Eq(f.Attribute))
	}
	return goqu.L("?", ds), nil
}
