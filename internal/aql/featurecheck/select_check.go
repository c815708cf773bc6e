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

package featurecheck

import (
	"github.com/ehrbase/ehrbase-go-components/internal/aql/ast"
	"github.com/ehrbase/ehrbase-go-components/internal/aql/extractedcolumn"
	"github.com/ehrbase/ehrbase-go-components/internal/aql/pathanalysis"
	"github.com/ehrbase/ehrbase-go-components/internal/aql/rm"
	"github.com/ehrbase/ehrbase-go-components/internal/aql/wrapper"
	"github.com/ehrbase/ehrbase-go-components/internal/common"
)

func (c *Checker) checkSelect(q *wrapper.QueryWrapper) error {
	if len(q.Selects) == 0 {
		return common.NewErrIllegalAql("SELECT clause is empty")
	}
	for _, s := range q.Selects {
		clause := s.Clause.String()
		switch s.Type {
		case wrapper.SelectPrimitive:
			continue
		case wrapper.SelectPath:
			if err := c.checkSelectPath(s.Root, s.Path, clause); err != nil {
				return err
			}
		case wrapper.SelectAggregate:
			if err := c.checkAggregate(s, clause); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Checker) checkSelectPath(root *wrapper.ContainsWrapper, path *ast.IdentifiedPath, clause string) error {
	if path.Path == nil {
		switch {
		case root.Type == rm.Ehr:
			return common.NewErrFeatureNotImplemented("%s: selecting the full EHR object is not supported", clause)
		case root.IsVersion:
			return common.NewErrFeatureNotImplemented("%s: selecting the full VERSION object is not supported", clause)
		}
	}
	res, err := c.checkPath(root, path, clause)
	if err != nil {
		return err
	}
	_, err = c.analyzer.Category(res.leaf)
	return err
}

func (c *Checker) checkAggregate(s *wrapper.SelectWrapper, clause string) error {
	if s.Path == nil {
		if s.Aggregate != ast.AggregateCount {
			return common.NewErrIllegalAql("%s: only COUNT can be used without a path", clause)
		}
		if s.Distinct {
			return common.NewErrIllegalAql("%s: COUNT(DISTINCT *) is not valid AQL", clause)
		}
		return nil
	}
	if s.Aggregate == ast.AggregateCount && s.Path.Path == nil {
		// COUNT of a containment counts its rows
		if len(s.Path.RootPredicates) > 0 {
			return common.NewErrFeatureNotImplemented("%s: predicates on the path root %s are not supported", clause, s.Path.Root)
		}
		return nil
	}
	if s.Path.Path == nil {
		return common.NewErrFeatureNotImplemented("%s: %s cannot aggregate whole objects", clause, s.Aggregate)
	}
	res, err := c.checkPath(s.Root, s.Path, clause)
	if err != nil {
		return err
	}
	if s.Aggregate == ast.AggregateCount {
		return nil
	}
	if res.extracted && res.column.IsTimeColumn() {
		return common.NewErrFeatureNotImplemented("%s: %s can only be used with COUNT", clause, res.column)
	}
	types := res.types()
	if res.leaf.IsUnconstrained() || len(types) == 0 {
		return common.NewErrFeatureNotImplemented("%s: the type of %s is unknown", clause, s.Path)
	}
	switch s.Aggregate {
	case ast.AggregateMin, ast.AggregateMax:
		for _, t := range types {
			if !c.md.IsPrimitive(t) && !c.md.IsOrdered(t) {
				return common.NewErrFeatureNotImplemented("%s: %s requires primitive or ordered values, %s is neither", clause, s.Aggregate, t)
			}
		}
	case ast.AggregateSum, ast.AggregateAvg:
		for _, t := range types {
			if !c.md.IsNumeric(t) && !(c.md.IsOrdered(t) && !c.md.IsTemporal(t)) {
				return common.NewErrFeatureNotImplemented("%s: %s requires numeric values, %s is not numeric", clause, s.Aggregate, t)
			}
		}
	}
	if _, ok := c.md.CommonOrderingKey(types); !ok {
		return common.NewErrFeatureNotImplemented("%s: %s cannot be applied to values of %v", clause, s.Aggregate, types)
	}
	return nil
}

// unsortableColumns are the extracted columns ORDER BY rejects.
var unsortableColumns = map[extractedcolumn.Column]bool{
	extractedcolumn.AdCommitter:   true,
	extractedcolumn.EhrSystemIDDV: true,
}

func (c *Checker) checkOrderBy(q *wrapper.QueryWrapper) error {
	grouped := q.Distinct
	selected := map[string]bool{}
	for _, s := range q.Selects {
		if s.Type == wrapper.SelectAggregate {
			grouped = true
		}
		if s.Type == wrapper.SelectPath {
			selected[s.Path.String()] = true
		}
	}
	for _, o := range q.OrderBy {
		clause := "ORDER BY " + o.Clause.String()
		if o.Path.Path == nil {
			return common.NewErrFeatureNotImplemented("%s: ordering by whole objects is not supported", clause)
		}
		res, err := c.checkPath(o.Root, o.Path, clause)
		if err != nil {
			return err
		}
		if grouped && !selected[o.Path.String()] {
			return common.NewErrFeatureNotImplemented("%s: with DISTINCT or aggregate functions only selected paths can be ordered by", clause)
		}
		if res.extracted {
			if unsortableColumns[res.column] {
				return common.NewErrFeatureNotImplemented("%s: %s cannot be ordered", clause, res.column)
			}
			continue
		}
		types := res.types()
		if cat, err := c.analyzer.Category(res.leaf); err != nil || cat == pathanalysis.Structure || cat == pathanalysis.StructureIntermediate {
			return common.NewErrFeatureNotImplemented("%s: structure objects cannot be ordered", clause)
		}
		if _, ok := c.md.CommonOrderingKey(types); !ok {
			return common.NewErrFeatureNotImplemented("%s: values of %v cannot be ordered", clause, types)
		}
	}
	return nil
}
