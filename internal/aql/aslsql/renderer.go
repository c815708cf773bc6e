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

// Package aslsql renders ASL trees to PostgreSQL with goqu.
//
// Every structure query becomes a subselect over the ehr schema exposing its
// columns as <alias>_<column>; path data queries become lateral subselects and
// nested encapsulating queries SELECT * subselects. Select items are aliased
// col_<n> and described by a ColumnLayout so result rows can be mapped back to
// AQL columns.
package aslsql

import (
	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // register the postgres dialect
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/ehrbase/ehrbase-go-components/internal/aql/asl"
	"github.com/ehrbase/ehrbase-go-components/internal/aql/ast"
	"github.com/ehrbase/ehrbase-go-components/internal/aql/rm"
	"github.com/ehrbase/ehrbase-go-components/internal/common"
)

// DefaultSchema is the database schema of the EHR tables.
const DefaultSchema = "ehr"

// Renderer renders ASL trees. It is stateless apart from its configuration and
// safe for concurrent use.
type Renderer struct {
	Dialect goqu.DialectWrapper
	Schema  string
	// Prepared renders placeholders instead of interpolated literals.
	Prepared bool
	// Knowledge resolves template ids compared in WHERE, nil for none.
	Knowledge rm.KnowledgeCache
	Metadata  *rm.Metadata
}

// NewRenderer returns a prepared statement renderer for the postgres dialect.
func NewRenderer(md *rm.Metadata, knowledge rm.KnowledgeCache) *Renderer {
	return &Renderer{
		Dialect:   goqu.Dialect("postgres"),
		Schema:    DefaultSchema,
		Prepared:  true,
		Knowledge: knowledge,
		Metadata:  md,
	}
}

// Rendered is a rendered query.
type Rendered struct {
	SQL    string
	Args   []any
	Layout []ColumnLayout
}

// Render builds the SQL of root.
//
// Parameters:
//   - root: a query produced by asl.Builder
//
// Returns:
//   - *Rendered: SQL, arguments (empty unless Prepared) and the column layout
//   - error: Internal if the tree references queries outside their scope
func (r *Renderer) Render(root *asl.RootQuery) (*Rendered, error) {
	c := &renderContext{r: r}
	ds, err := c.fromClause(root.From)
	if err != nil {
		return nil, err
	}
	sc := scope{container: root.From}

	var columns []any
	var layout []ColumnLayout
	aliases := map[asl.Field][]string{}
	for _, sf := range root.Select {
		exprs, col, err := c.selectField(sf.Field, sc)
		if err != nil {
			return nil, err
		}
		col.Name = sf.Name
		columns = append(columns, c.alias(exprs, &col)...)
		layout = append(layout, col)
		aliases[sf.Field] = col.Columns
	}

	if root.Condition != nil {
		where, err := c.condition(root.Condition, sc)
		if err != nil {
			return nil, err
		}
		ds = ds.Where(where)
	}

	var groupBy []any
	for _, f := range root.GroupBy {
		if sub, ok := f.(*asl.SubqueryField); ok {
			refs, err := c.structureRefs(sub.Owner, sc)
			if err != nil {
				return nil, err
			}
			groupBy = append(groupBy, refs...)
			continue
		}
		for _, a := range aliases[f] {
			groupBy = append(groupBy, goqu.I(a))
		}
	}

	var order []exp.OrderedExpression
	for _, o := range root.OrderBy {
		exprs, col, err := c.selectField(o.Field, sc)
		if err != nil {
			return nil, err
		}
		col.Hidden = true
		columns = append(columns, c.alias(exprs, &col)...)
		layout = append(layout, col)
		for _, a := range col.Columns {
			if len(root.GroupBy) > 0 {
				groupBy = append(groupBy, goqu.I(a))
			}
			if o.Direction == ast.Descending {
				order = append(order, goqu.I(a).Desc())
			} else {
				order = append(order, goqu.I(a).Asc())
			}
		}
	}

	ds = ds.Select(columns...)
	if root.Distinct {
		ds = ds.Distinct()
	}
	if len(groupBy) > 0 {
		ds = ds.GroupBy(groupBy...)
	}
	if len(order) > 0 {
		ds = ds.Order(order...)
	}
	if root.Limit != nil {
		ds = ds.Limit(uint(*root.Limit))
	}
	if root.Offset != nil {
		ds = ds.Offset(uint(*root.Offset))
	}
	sql, args, err := ds.Prepared(r.Prepared).ToSQL()
	if err != nil {
		return nil, common.NewErrInternal(err, "render SQL")
	}
	return &Rendered{SQL: sql, Args: args, Layout: layout}, nil
}

type renderContext struct {
	r       *Renderer
	columns int
}

// scope determines how columns are referenced: through the visible child of
// container, or directly on the tables of inner while rendering the
// conditions of a structure query. self is the path data query whose filter is
// being rendered; its value is selfValue.
type scope struct {
	container *asl.EncapsulatingQuery
	inner     *asl.StructureQuery
	self      *asl.PathDataQuery
	selfValue exp.Expression
}

// alias names the SQL columns of one select item.
func (c *renderContext) alias(exprs []exp.Expression, col *ColumnLayout) []any {
	out := make([]any, 0, len(exprs))
	for _, e := range exprs {
		name := colName(c.columns)
		c.columns++
		col.Columns = append(col.Columns, name)
		out = append(out, goqu.L("?", e).As(name))
	}
	return out
}

func (c *renderContext) fromClause(e *asl.EncapsulatingQuery) (*goqu.SelectDataset, error) {
	if len(e.Children) == 0 {
		return nil, common.NewErrInternal(nil, "empty FROM in %s", e.Alias())
	}
	var ds *goqu.SelectDataset
	sc := scope{container: e}
	for i, child := range e.Children {
		var table exp.Expression
		switch t := child.(type) {
		case *asl.StructureQuery:
			src, err := c.structureSource(t)
			if err != nil {
				return nil, err
			}
			table = src
		case *asl.PathDataQuery:
			src, err := c.pathDataSource(t)
			if err != nil {
				return nil, err
			}
			table = goqu.Lateral(src)
		case *asl.EncapsulatingQuery:
			src, err := c.fromClause(t)
			if err != nil {
				return nil, err
			}
			if t.Condition != nil {
				cond, err := c.condition(t.Condition, scope{container: t})
				if err != nil {
					return nil, err
				}
				src = src.Where(cond)
			}
			table = src.As(t.Alias())
		default:
			return nil, common.NewErrInternal(nil, "unexpected query %T", child)
		}
		if i == 0 {
			ds = c.r.Dialect.From(table)
			continue
		}
		join := child.JoinInfo()
		on, err := c.conjunction(join.Conditions, sc)
		if err != nil {
			return nil, err
		}
		if join.Type == asl.JoinLeftOuter {
			ds = ds.LeftJoin(table, goqu.On(on))
		} else {
			ds = ds.Join(table, goqu.On(on))
		}
	}
	return ds, nil
}

func (c *renderContext) conjunction(conditions []asl.Condition, sc scope) (exp.Expression, error) {
	if len(conditions) == 0 {
		return trueExpr(), nil
	}
	exprs := make([]exp.Expression, 0, len(conditions))
	for _, cond := range conditions {
		e, err := c.condition(cond, sc)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
	}
	if len(exprs) == 1 {
		return exprs[0], nil
	}
	return goqu.And(exprs...), nil
}

// tables returns the version and data table of a relation.
func tables(r asl.Relation) (string, string) {
	switch r {
	case asl.RelationEhrStatus:
		return "ehr_status_version", "ehr_status_data"
	case asl.RelationFolder:
		return "ehr_folder_version", "ehr_folder_data"
	case asl.RelationEhr:
		return "ehr", ""
	case asl.RelationAuditDetails:
		return "audit_details", ""
	default:
		return "comp_version", "comp_data"
	}
}

var dataColumns = map[string]bool{
	"vo_id": true, "num": true, "num_cap": true, "parent_num": true, "entity_idx": true, "rm_entity": true,
	"entity_concept": true, "entity_name": true, "entity_attribute": true, "data": true, "item_uuids": true,
}

// tableAlias is the alias of the physical table holding col inside the
// subselect of q.
func tableAlias(q *asl.StructureQuery, col string) string {
	if q.VersionTableOnly || (q.Relation.HasDataTable() && !dataColumns[col]) {
		return "v"
	}
	return "d"
}

func (c *renderContext) table(name, alias string) exp.AliasedExpression {
	return goqu.S(c.r.Schema).Table(name).As(alias)
}

func (c *renderContext) structureSource(q *asl.StructureQuery) (*goqu.SelectDataset, error) {
	versionTable, dataTable := tables(q.Relation)
	var ds *goqu.SelectDataset
	switch {
	case !q.Relation.HasDataTable():
		ds = c.r.Dialect.From(c.table(versionTable, "d"))
	case q.VersionTableOnly:
		ds = c.r.Dialect.From(c.table(versionTable, "v"))
	default:
		ds = c.r.Dialect.From(c.table(dataTable, "d"))
		if q.RequiresVersionJoin {
			ds = ds.Join(c.table(versionTable, "v"), goqu.On(goqu.I("v.vo_id").Eq(goqu.I("d.vo_id"))))
		}
	}

	columns := make([]any, 0)
	for _, col := range q.Columns() {
		columns = append(columns, goqu.I(tableAlias(q, col)+"."+col).As(exposed(q, col)))
	}
	ds = ds.Select(columns...)

	var where []exp.Expression
	if q.Relation.HasDataTable() && !q.VersionTableOnly {
		if len(q.RmTypes) > 0 {
			where = append(where, goqu.I("d.rm_entity").In(q.RmTypes))
		}
		if q.RootRow {
			where = append(where, goqu.I("d.num").Eq(0))
		}
		if q.Attribute != "" {
			where = append(where, goqu.I("d.entity_attribute").Eq(q.Attribute))
		}
	}
	for _, cond := range q.Conditions {
		e, err := c.condition(cond, scope{inner: q})
		if err != nil {
			return nil, err
		}
		where = append(where, e)
	}
	if len(where) > 0 {
		ds = ds.Where(where...)
	}
	return ds.As(q.Alias()), nil
}

func (c *renderContext) pathDataSource(pd *asl.PathDataQuery) (*goqu.SelectDataset, error) {
	sc := scope{container: pd.Container()}
	base, err := c.dataOf(pd.Base, sc)
	if err != nil {
		return nil, err
	}
	value := extract(base, pd.Path)
	var ds *goqu.SelectDataset
	var self exp.Expression
	if pd.Kind == asl.PathDataArrayUnnest {
		ds = c.r.Dialect.
			From(goqu.L("jsonb_array_elements(CASE WHEN jsonb_typeof(?) = 'array' THEN ? ELSE '[]'::jsonb END) AS u(value)", value, value)).
			Select(goqu.I("u.value").As(pd.Alias() + "_data"))
		self = goqu.I("u.value")
	} else {
		ds = c.r.Dialect.Select(goqu.L("?", value).As(pd.Alias() + "_data"))
		self = value
	}
	if pd.Filter != nil {
		filter, err := c.condition(pd.Filter, scope{container: sc.container, self: pd, selfValue: self})
		if err != nil {
			return nil, err
		}
		ds = ds.Where(filter)
	}
	return ds.As(pd.Alias()), nil
}

// exposed is the name under which a structure query exposes col.
func exposed(q *asl.StructureQuery, col string) string {
	return q.Alias() + "_" + col
}

// column references col of q from sc.
func column(q *asl.StructureQuery, col string, sc scope) (exp.IdentifierExpression, error) {
	if sc.inner == q {
		return goqu.I(tableAlias(q, col) + "." + col), nil
	}
	if sc.container == nil {
		return nil, common.NewErrInternal(nil, "%s is referenced outside of its FROM clause", q.Alias())
	}
	visible := asl.VisibleIn(q, sc.container)
	if visible == nil {
		return nil, common.NewErrInternal(nil, "%s is not visible in %s", q.Alias(), sc.container.Alias())
	}
	return goqu.I(visible.Alias() + "." + exposed(q, col)), nil
}

// dataOf references the JSON data of a structure row or path data query.
func (c *renderContext) dataOf(q asl.Query, sc scope) (exp.Expression, error) {
	switch t := q.(type) {
	case *asl.StructureQuery:
		return column(t, "data", sc)
	case *asl.PathDataQuery:
		if sc.self == t {
			return sc.selfValue, nil
		}
		if sc.container == nil {
			return nil, common.NewErrInternal(nil, "%s is referenced outside of its FROM clause", t.Alias())
		}
		visible := asl.VisibleIn(t, sc.container)
		if visible == nil {
			return nil, common.NewErrInternal(nil, "%s is not visible in %s", t.Alias(), sc.container.Alias())
		}
		return goqu.I(visible.Alias() + "." + t.Alias() + "_data"), nil
	default:
		return nil, common.NewErrInternal(nil, "%T has no data", q)
	}
}
