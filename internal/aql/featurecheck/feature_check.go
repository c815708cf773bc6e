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

// Package featurecheck rejects queries outside the supported AQL subset before any
// ASL is built.
//
// Violations are reported as FeatureNotImplemented when the AQL is valid but not
// supported, and as IllegalAql when it cannot match the reference model. The first
// violation stops the check.
package featurecheck

import (
	"github.com/ehrbase/ehrbase-go-components/internal/aql/ast"
	"github.com/ehrbase/ehrbase-go-components/internal/aql/extractedcolumn"
	"github.com/ehrbase/ehrbase-go-components/internal/aql/pathanalysis"
	"github.com/ehrbase/ehrbase-go-components/internal/aql/rm"
	"github.com/ehrbase/ehrbase-go-components/internal/aql/wrapper"
	"github.com/ehrbase/ehrbase-go-components/internal/common"
)

// Checker validates normalized queries. It holds only read-only tables and is
// safe for concurrent use.
type Checker struct {
	md       *rm.Metadata
	columns  *extractedcolumn.Registry
	analyzer *pathanalysis.Analyzer
}

// NewChecker creates a checker over the given metadata.
func NewChecker(md *rm.Metadata, columns *extractedcolumn.Registry) *Checker {
	return &Checker{md: md, columns: columns, analyzer: pathanalysis.NewAnalyzer(md)}
}

// EnsureSupported runs the FROM, SELECT, WHERE and ORDER BY checks in that order.
func (c *Checker) EnsureSupported(q *wrapper.QueryWrapper) error {
	if err := c.checkFrom(q); err != nil {
		return err
	}
	if err := c.checkSelect(q); err != nil {
		return err
	}
	if q.Where != nil {
		if err := c.checkWhere(q.Where); err != nil {
			return err
		}
	}
	if err := c.checkOrderBy(q); err != nil {
		return err
	}
	return checkLimit(q)
}

func checkLimit(q *wrapper.QueryWrapper) error {
	if q.Limit != nil && *q.Limit < 0 {
		return common.NewErrIllegalAql("LIMIT %d: must not be negative", *q.Limit)
	}
	if q.Offset != nil && *q.Offset < 0 {
		return common.NewErrIllegalAql("OFFSET %d: must not be negative", *q.Offset)
	}
	return nil
}

// resolvedPath is a path analyzed against its containment.
type resolvedPath struct {
	leaf *pathanalysis.ANode
	// column is set when the path ends in an extracted column of its containment
	// or of a structure row on the way.
	column    extractedcolumn.Column
	extracted bool
}

func (r resolvedPath) types() []string {
	return r.leaf.CandidateTypes.Sorted()
}

// resolve analyzes path below root. Extracted columns are looked up relative to
// every structure row the path passes, the first match wins. Below the
// containment itself only data table columns apply.
func (c *Checker) resolve(root *wrapper.ContainsWrapper, path *ast.IdentifiedPath, clause string) (resolvedPath, error) {
	tree, err := c.analyzer.Analyze(root.Type, root.Predicates, path.RootPredicates, path.Path)
	if err != nil {
		return resolvedPath{}, err
	}
	res := resolvedPath{leaf: pathanalysis.LeafOf(tree, path.Path)}
	if path.Path == nil {
		return res, nil
	}
	node := tree
	for i := 0; i < len(path.Path.Nodes); i++ {
		if i > 0 {
			node = node.Get(path.Path.Nodes[i-1].Attribute)
		}
		if node.IsContradiction() {
			break
		}
		if i > 0 {
			if cat, _ := c.analyzer.Category(node); cat != pathanalysis.Structure {
				break
			}
		}
		suffix := &ast.ObjectPath{Nodes: path.Path.Nodes[i:]}
		if col, ok := c.columns.Find(node.CandidateTypes.Sorted(), suffix); ok && (i == 0 || c.columns.Spec(col).Source == extractedcolumn.DataTable) {
			res.column, res.extracted = col, true
			break
		}
	}
	if res.leaf.IsContradiction() {
		return res, common.NewErrIllegalAql("%s: path %s cannot match any RM type", clause, path)
	}
	return res, nil
}

// checkPathPredicates restricts path predicates to archetype_node_id and
// name/value compared with = or != to string literals.
func checkPathPredicates(preds ast.Predicates, clause string) error {
	for _, and := range preds {
		for _, cmp := range and.Operands {
			p := cmp.Path.String()
			if p != ast.ArchetypeNodeIDAttribute && p != ast.NameValuePath {
				return common.NewErrFeatureNotImplemented("%s: predicates on %s are not supported", clause, p)
			}
			if cmp.Operator != ast.OpEq && cmp.Operator != ast.OpNeq {
				return common.NewErrFeatureNotImplemented("%s: predicate operator %s is not supported", clause, cmp.Operator)
			}
			switch v := cmp.Value.(type) {
			case *ast.Parameter:
				return common.NewErrIllegalAql("%s: unresolved parameter %s", clause, v)
			case *ast.Primitive:
				if v.Kind != ast.PrimitiveString {
					return common.NewErrFeatureNotImplemented("%s: predicate value %s must be a string", clause, v)
				}
			default:
				return common.NewErrFeatureNotImplemented("%s: predicate value %s must be a string", clause, ast.RenderOperand(v))
			}
		}
	}
	return nil
}

// checkPath applies the rules shared by every clause: no root predicates,
// supported path predicates and extracted columns only below EHR and VERSION.
func (c *Checker) checkPath(root *wrapper.ContainsWrapper, path *ast.IdentifiedPath, clause string) (resolvedPath, error) {
	if len(path.RootPredicates) > 0 {
		return resolvedPath{}, common.NewErrFeatureNotImplemented("%s: predicates on the path root %s are not supported", clause, path.Root)
	}
	if path.Path != nil {
		for _, n := range path.Path.Nodes {
			if err := checkPathPredicates(n.Predicates, clause); err != nil {
				return resolvedPath{}, err
			}
		}
	}
	res, err := c.resolve(root, path, clause)
	if err != nil {
		return res, err
	}
	if path.Path != nil && (root.Type == rm.Ehr || root.IsVersion) && !res.extracted {
		return res, common.NewErrFeatureNotImplemented("%s: path %s is not supported on %s", clause, path.Path, root.Type)
	}
	return res, nil
}
