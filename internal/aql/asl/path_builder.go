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
	"fmt"
	"strings"

	"github.com/ehrbase/ehrbase-go-components/internal/aql/ast"
	"github.com/ehrbase/ehrbase-go-components/internal/aql/cohesion"
	"github.com/ehrbase/ehrbase-go-components/internal/aql/extractedcolumn"
	"github.com/ehrbase/ehrbase-go-components/internal/aql/pathanalysis"
	"github.com/ehrbase/ehrbase-go-components/internal/aql/wrapper"
	"github.com/ehrbase/ehrbase-go-components/internal/common"
)

// openEHRTerminology is the terminology of the audit change type codes.
const openEHRTerminology = "openehr"

// lowerPath lowers path and records the result in the path field map.
// Structure objects are only aggregated for SELECT; other clauses compare or
// order by the leaf value.
func (s *buildState) lowerPath(root *wrapper.ContainsWrapper, path *ast.IdentifiedPath, forSelect bool) (Field, error) {
	f, err := s.pathField(root, path, forSelect)
	if err != nil {
		return nil, err
	}
	s.fields.put(path.String(), f)
	return f, nil
}

// pathField walks path from its containment row. At every structure row the
// remaining path is matched against the extracted columns; structure segments
// become attribute queries and the first segment stored as JSON starts the
// path data chain.
func (s *buildState) pathField(root *wrapper.ContainsWrapper, path *ast.IdentifiedPath, forSelect bool) (Field, error) {
	sq, ok := s.sources[root.ID]
	if !ok {
		return nil, common.NewErrInternal(nil, "no query for containment %s", root)
	}
	if path.Path == nil {
		return &SubqueryField{Kind: SubqueryStructureRows, Owner: sq}, nil
	}
	tree, err := s.analyzer.Analyze(root.Type, root.Predicates, path.RootPredicates, path.Path)
	if err != nil {
		return nil, err
	}
	nodes := path.Path.Nodes
	analyzed := make([]*pathanalysis.ANode, len(nodes))
	current := tree
	for i, n := range nodes {
		current = current.Get(n.Attribute)
		if current == nil {
			return nil, common.NewErrInternal(nil, "path %s was not analyzed", path)
		}
		analyzed[i] = current
	}
	positions := s.cohesionNodes(root, path)

	row := sq
	rowTypes := tree.CandidateTypes.Sorted()
	containment := root
	for i := 0; ; {
		suffix := &ast.ObjectPath{Nodes: nodes[i:]}
		if col, ok := s.columns.Find(rowTypes, suffix); ok && (containment != nil || s.columns.Spec(col).Source == extractedcolumn.DataTable) {
			return s.extractedField(row, containment, col)
		}
		if row.VersionTableOnly || row.Relation == RelationEhr {
			return nil, common.NewErrInternal(nil, "path %s cannot be lowered on %s", path, root.Type)
		}

		j := i
		var attributes []string
		for ; j < len(nodes); j++ {
			cat, err := s.analyzer.Category(analyzed[j])
			if err != nil {
				return nil, err
			}
			if cat != pathanalysis.StructureIntermediate {
				break
			}
			attributes = append(attributes, nodes[j].Attribute)
		}
		if j == len(nodes) {
			return s.jsonField(row, nodes, analyzed, positions, i)
		}
		if cat, _ := s.analyzer.Category(analyzed[j]); cat != pathanalysis.Structure {
			return s.jsonField(row, nodes, analyzed, positions, i)
		}

		attribute := strings.Join(append(attributes, nodes[j].Attribute), "/")
		terminal := j == len(nodes)-1
		if terminal && forSelect && analyzed[j].MultipleValued && len(nodes[j].Predicates) == 0 && len(positions[j].Children) == 0 {
			return &SubqueryField{Kind: SubqueryChildRows, Owner: row, Attribute: attribute}, nil
		}
		row, err = s.attributeQuery(positions[j], row, attribute, analyzed[j], nodes[j].Predicates)
		if err != nil {
			return nil, err
		}
		if terminal {
			return &SubqueryField{Kind: SubqueryStructureRows, Owner: row}, nil
		}
		rowTypes = analyzed[j].CandidateTypes.Sorted()
		containment = nil
		i = j + 1
	}
}

// cohesionNodes returns the cohesion tree node of every path position.
func (s *buildState) cohesionNodes(root *wrapper.ContainsWrapper, path *ast.IdentifiedPath) []*cohesion.Node {
	leaf := s.query.Cohesion(root.ID).Find(path.Path)
	if leaf == nil {
		// not part of the query tree, e.g. built by hand in tests
		leaf = cohesion.Build([]*ast.IdentifiedPath{path}).Find(path.Path)
	}
	positions := make([]*cohesion.Node, len(path.Path.Nodes))
	n := leaf
	for i := len(positions) - 1; i >= 0; i-- {
		positions[i] = n
		n = n.Parent
	}
	return positions
}

// attributeQuery joins the child rows stored under attribute of parent.
func (s *buildState) attributeQuery(position *cohesion.Node, parent *StructureQuery, attribute string, node *pathanalysis.ANode, preds ast.Predicates) (*StructureQuery, error) {
	if q, ok := s.attributes[position]; ok {
		return q, nil
	}
	types := node.CandidateTypes.Sorted()
	if len(types) == 0 {
		return nil, common.NewErrInternal(nil, "attribute %s has no candidate types", attribute)
	}
	q := &StructureQuery{Relation: parent.Relation, RmTypes: types, Attribute: attribute}
	q.alias = s.nextAlias(abbreviation(types[0]), "")
	if c := s.predicates(preds, func(path string) Field { return s.rowField(q, path) }); c != nil {
		q.Conditions = append(q.Conditions, c)
	}
	s.attach(parent.Container(), q, JoinLeftOuter)
	s.attributes[position] = q
	return q, placeJoinConditions(q, parent, &PathChildCondition{Parent: parent, Child: q})
}

// jsonField lowers nodes[from:] inside the data of row. Arrays that are
// continued or filtered are unnested, filtered single values get a scalar
// query of their own and the rest of the path is extracted by a terminal
// scalar query.
func (s *buildState) jsonField(row *StructureQuery, nodes []ast.PathNode, analyzed []*pathanalysis.ANode, positions []*cohesion.Node, from int) (Field, error) {
	var base Query = row
	var steps []string
	last := len(nodes) - 1
	for k := from; k <= last; k++ {
		n := nodes[k]
		steps = append(steps, n.Attribute)
		filtered := len(n.Predicates) > 0
		switch {
		case analyzed[k].MultipleValued && (k < last || filtered):
			base = s.pathDataQuery(positions[k], base, steps, PathDataArrayUnnest, n.Predicates)
			steps = nil
		case filtered:
			base = s.pathDataQuery(positions[k], base, steps, PathDataScalar, n.Predicates)
			steps = nil
		}
	}
	valueTypes := analyzed[last].CandidateTypes.Sorted()
	if len(steps) > 0 {
		base = s.scalarQuery(positions[last], base, steps)
	}
	return &DataField{Source: base, ValueTypes: valueTypes}, nil
}

func (s *buildState) newPathDataQuery(position *cohesion.Node, base Query, steps []string, kind PathDataKind) *PathDataQuery {
	q := &PathDataQuery{Kind: kind, Base: base, Path: append([]string{}, steps...), Node: position.Prefix()}
	q.alias = fmt.Sprintf("pd_%d", s.counter)
	s.counter++
	base.Container().Add(q, &Join{Type: JoinLeftOuter, Lateral: true})
	return q
}

// pathDataQuery returns the unnest or filter query of a path position. The
// predicates apply to the extracted value.
func (s *buildState) pathDataQuery(position *cohesion.Node, base Query, steps []string, kind PathDataKind, preds ast.Predicates) *PathDataQuery {
	if q, ok := s.pathData[position]; ok {
		return q
	}
	q := s.newPathDataQuery(position, base, steps, kind)
	q.Filter = s.predicates(preds, func(path string) Field {
		return &DataField{Source: q, Path: strings.Split(path, "/"), ValueTypes: []string{"String"}}
	})
	s.pathData[position] = q
	return q
}

// scalarQuery returns the terminal extraction of a path position.
func (s *buildState) scalarQuery(position *cohesion.Node, base Query, steps []string) *PathDataQuery {
	if q, ok := s.scalars[position]; ok {
		return q
	}
	q := s.newPathDataQuery(position, base, steps, PathDataScalar)
	s.scalars[position] = q
	return q
}

// extractedField reads col relative to row. containment is the containment
// of row, nil for attribute rows.
func (s *buildState) extractedField(row *StructureQuery, containment *wrapper.ContainsWrapper, col extractedcolumn.Column) (Field, error) {
	spec := s.columns.Spec(col)
	owner := row
	switch spec.Source {
	case extractedcolumn.VersionTable:
		owner = s.versionProvider(containment)
	case extractedcolumn.EhrTable:
		if row.Relation != RelationEhr {
			return nil, common.NewErrInternal(nil, "%s is only stored for EHRs", col)
		}
	case extractedcolumn.AuditDetailsTable:
		a, err := s.auditQuery(s.versionProvider(containment))
		if err != nil {
			return nil, err
		}
		owner = a
	case extractedcolumn.Constant:
		value := s.systemID
		if col == extractedcolumn.AdChangeTypeTerminologyIDValue {
			value = openEHRTerminology
		}
		return &ConstantField{Value: value, Extracted: &col}, nil
	}
	if spec.Complex {
		return &ComplexExtractedColumnField{Owner: owner, Column: col, Columns: spec.Columns}, nil
	}
	return &ColumnField{Owner: owner, Column: spec.Columns[0], Extracted: &col}, nil
}
