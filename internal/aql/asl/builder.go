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
	"github.com/ehrbase/ehrbase-go-components/internal/aql/rm"
	"github.com/ehrbase/ehrbase-go-components/internal/aql/wrapper"
	"github.com/ehrbase/ehrbase-go-components/internal/common"
)

// Builder lowers checked queries to ASL. It holds only read-only tables and is
// safe for concurrent use; every Build call works on its own state.
type Builder struct {
	md       *rm.Metadata
	columns  *extractedcolumn.Registry
	analyzer *pathanalysis.Analyzer
	systemID string
}

// NewBuilder creates a builder. systemID is the value of the constant system
// id columns.
func NewBuilder(md *rm.Metadata, columns *extractedcolumn.Registry, systemID string) *Builder {
	return &Builder{md: md, columns: columns, analyzer: pathanalysis.NewAnalyzer(md), systemID: systemID}
}

// buildState is the per query lowering state. Queries created for paths are
// memoized per cohesion node so paths sharing a prefix share the joins.
type buildState struct {
	*Builder
	query   *wrapper.QueryWrapper
	root    *RootQuery
	counter int

	sources    map[wrapper.ContainsID]*StructureQuery
	versions   map[wrapper.ContainsID]*StructureQuery
	roots      map[wrapper.ContainsID]string
	audits     map[*StructureQuery]*StructureQuery
	attributes map[*cohesion.Node]*StructureQuery
	pathData   map[*cohesion.Node]*PathDataQuery
	scalars    map[*cohesion.Node]*PathDataQuery
	fields     *PathFieldMap
}

// Build lowers q, which must have passed the feature check.
//
// Parameters:
//   - q: the normalized query
//
// Returns:
//   - *RootQuery: the ASL tree with SELECT, WHERE, GROUP BY and ORDER BY fields
//   - *PathFieldMap: the field every path of the query was lowered to
//   - error: Internal for constructs the feature check should have rejected
func (b *Builder) Build(q *wrapper.QueryWrapper) (*RootQuery, *PathFieldMap, error) {
	s := &buildState{
		Builder:    b,
		query:      q,
		root:       &RootQuery{From: &EncapsulatingQuery{}, Distinct: q.Distinct, Limit: q.Limit, Offset: q.Offset},
		sources:    map[wrapper.ContainsID]*StructureQuery{},
		versions:   map[wrapper.ContainsID]*StructureQuery{},
		roots:      map[wrapper.ContainsID]string{},
		audits:     map[*StructureQuery]*StructureQuery{},
		attributes: map[*cohesion.Node]*StructureQuery{},
		pathData:   map[*cohesion.Node]*PathDataQuery{},
		scalars:    map[*cohesion.Node]*PathDataQuery{},
		fields:     newPathFieldMap(),
	}
	s.root.From.alias = "root"
	if err := s.addChain(q.From, s.root.From, nil); err != nil {
		return nil, nil, err
	}
	if err := s.buildSelect(); err != nil {
		return nil, nil, err
	}
	if q.Where != nil {
		where, err := s.condition(q.Where)
		if err != nil {
			return nil, nil, err
		}
		s.root.Condition = AndOf(s.root.Condition, where)
	}
	if err := s.buildOrderBy(); err != nil {
		return nil, nil, err
	}
	s.root.Sources = map[wrapper.ContainsID]FieldSource{}
	for id, sq := range s.sources {
		s.root.Sources[id] = FieldSource{Owner: sq, Provider: VisibleIn(sq, s.root.From)}
	}
	return s.root, s.fields, nil
}

// abbreviation shortens an RM type for aliases: initials of multi word types,
// the first two letters otherwise.
func abbreviation(rmType string) string {
	if rmType == rm.Ehr {
		return rmType
	}
	words := strings.Split(rmType, "_")
	if len(words) > 1 {
		var sb strings.Builder
		for _, w := range words {
			if w != "" {
				sb.WriteByte(w[0])
			}
		}
		return sb.String()
	}
	if len(rmType) < 2 {
		return rmType
	}
	return rmType[:2]
}

func (s *buildState) nextAlias(prefix, identifier string) string {
	var alias string
	if identifier != "" {
		alias = fmt.Sprintf("s%s_%s_%d", prefix, identifier, s.counter)
	} else {
		alias = fmt.Sprintf("s%s_%d", prefix, s.counter)
	}
	s.counter++
	return alias
}

// addChain lowers a containment chain into target. parent is the structure
// query the first element of the chain is contained in.
func (s *buildState) addChain(chain *wrapper.ContainsChain, target *EncapsulatingQuery, parent *StructureQuery) error {
	for i, w := range chain.Chain {
		var inner *wrapper.ContainsWrapper
		if i+1 < len(chain.Chain) {
			inner = chain.Chain[i+1]
		}
		sq, err := s.addContainment(w, inner, target, parent, JoinInner)
		if err != nil {
			return err
		}
		parent = sq
	}
	if chain.Trailing == nil {
		return nil
	}
	switch chain.Trailing.Symbol {
	case wrapper.SetAnd:
		var first *StructureQuery
		for _, op := range chain.Trailing.Operands {
			if err := s.addChain(op, target, parent); err != nil {
				return err
			}
			if len(op.Chain) == 0 || parent == nil || IsWithin(parent, target) {
				continue
			}
			sq := s.sources[op.Chain[0].ID]
			if first == nil {
				first = sq
				continue
			}
			s.relateSiblings(first, sq, parent)
		}
		return nil
	case wrapper.SetOr:
		var present []Condition
		for _, op := range chain.Trailing.Operands {
			first, err := s.addOrBranch(op, target, parent)
			if err != nil {
				return err
			}
			present = append(present, &NotNull{Field: keyField(first)})
		}
		s.filter(target, &Or{Operands: present})
		return nil
	default:
		return common.NewErrInternal(nil, "cannot lower %s containment", chain.Trailing.Symbol)
	}
}

// addOrBranch left joins one operand of an OR. Single containments are joined
// directly, longer branches are wrapped into a nested encapsulating query so
// their inner joins cannot drop the rows of the other branches. It returns the
// query whose presence marks a match of the branch.
func (s *buildState) addOrBranch(op *wrapper.ContainsChain, target *EncapsulatingQuery, parent *StructureQuery) (*StructureQuery, error) {
	if len(op.Chain) == 1 && op.Trailing == nil {
		return s.addContainment(op.Chain[0], nil, target, parent, JoinLeftOuter)
	}
	nested := &EncapsulatingQuery{queryBase: queryBase{alias: s.nextAlias("EQ", "")}}
	s.attach(target, nested, JoinLeftOuter)
	if err := s.addChain(op, nested, parent); err != nil {
		return nil, err
	}
	var first *wrapper.ContainsWrapper
	op.Walk(func(w *wrapper.ContainsWrapper) {
		if first == nil {
			first = w
		}
	})
	if first == nil {
		return nil, common.NewErrInternal(nil, "empty containment branch")
	}
	return s.sources[first.ID], nil
}

// filter adds a row filter to target: the WHERE of the root query or the
// condition of a nested encapsulating query.
func (s *buildState) filter(target *EncapsulatingQuery, c Condition) {
	if target == s.root.From {
		s.root.Condition = AndOf(s.root.Condition, c)
		return
	}
	target.Condition = AndOf(target.Condition, c)
}

// relateSiblings joins sq to its sibling first by versioned object or EHR when
// their common parent lies outside of the encapsulating query.
func (s *buildState) relateSiblings(first, sq, parent *StructureQuery) {
	j := sq.JoinInfo()
	if j == nil {
		return
	}
	var col string
	switch {
	case parent.Relation == RelationEhr:
		col = "ehr_id"
	case parent.Relation.HasDataTable() && first.Relation == parent.Relation && sq.Relation == parent.Relation:
		col = "vo_id"
	default:
		return
	}
	j.Conditions = append(j.Conditions, &FieldEqualityCondition{
		Left:  &ColumnField{Owner: sq, Column: col},
		Right: &ColumnField{Owner: first, Column: col},
	})
}

// attach appends q to container; the first child is not joined.
func (s *buildState) attach(container *EncapsulatingQuery, q Query, joinType JoinType) {
	if len(container.Children) == 0 {
		container.Add(q, nil)
		return
	}
	container.Add(q, &Join{Type: joinType})
}

// placeJoinConditions adds conditions relating q to parent. They go to the join
// of q itself if parent is visible there, otherwise to the join of the nested
// encapsulating query that sees parent.
func placeJoinConditions(q Query, parent Query, conditions ...Condition) error {
	if len(conditions) == 0 {
		return nil
	}
	var x Query = q
	for parent != nil && !IsWithin(parent, x.Container()) {
		container := x.Container()
		if container == nil || container.Container() == nil {
			return common.NewErrInternal(nil, "%s is not visible from %s", parent.Alias(), q.Alias())
		}
		x = container
	}
	j := x.JoinInfo()
	if j == nil {
		return common.NewErrInternal(nil, "%s cannot carry join conditions", x.Alias())
	}
	j.Conditions = append(j.Conditions, conditions...)
	return nil
}

func relationOf(rootType string) (Relation, error) {
	switch rootType {
	case rm.Ehr:
		return RelationEhr, nil
	case rm.Composition:
		return RelationComposition, nil
	case rm.EhrStatus:
		return RelationEhrStatus, nil
	case rm.Folder:
		return RelationFolder, nil
	default:
		return 0, common.NewErrInternal(nil, "no relation stores %s", rootType)
	}
}

// structureRoot returns the root type the rows of w are stored under.
func (s *buildState) structureRoot(w, inner *wrapper.ContainsWrapper) (string, error) {
	switch {
	case w.Type == rm.Ehr:
		return rm.Ehr, nil
	case w.IsVersion:
		if inner == nil {
			return "", common.NewErrInternal(nil, "%s without content", w)
		}
		return inner.Type, nil
	case s.md.IsStructureRoot(w.Type):
		return w.Type, nil
	}
	parent := w.Parent
	if parent != nil && parent.IsVersion {
		parent = parent.Parent
	}
	if parent != nil && parent.Type != rm.Ehr {
		return s.roots[parent.ID], nil
	}
	roots := s.md.StructureRoots(w.Type)
	if len(roots) != 1 {
		return "", common.NewErrInternal(nil, "%s has no unique structure root", w)
	}
	return roots[0], nil
}

// addContainment creates the structure query of w and joins it to parent.
func (s *buildState) addContainment(w, inner *wrapper.ContainsWrapper, target *EncapsulatingQuery, parent *StructureQuery, joinType JoinType) (*StructureQuery, error) {
	rootType, err := s.structureRoot(w, inner)
	if err != nil {
		return nil, err
	}
	s.roots[w.ID] = rootType
	relation, err := relationOf(rootType)
	if err != nil {
		return nil, err
	}
	sq := &StructureQuery{Relation: relation, Containment: w}
	sq.alias = s.nextAlias(abbreviation(w.Type), w.Identifier)
	switch {
	case w.Type == rm.Ehr:
	case w.IsVersion:
		sq.VersionTableOnly = true
		sq.RmTypes = []string{rootType}
	default:
		sq.RmTypes = s.md.ConcreteTypes(w.Type)
		if c := s.predicates(w.Predicates, func(path string) Field { return s.rowField(sq, path) }); c != nil {
			sq.Conditions = append(sq.Conditions, c)
		}
	}
	s.sources[w.ID] = sq
	s.attach(target, sq, joinType)

	topLevel := parent == nil || parent.Relation == RelationEhr
	if !w.IsVersion && w.Type != rm.Ehr && s.md.IsStructureRoot(w.Type) {
		switch {
		case parent != nil && parent.VersionTableOnly:
		case topLevel:
			sq.RootRow = true
			sq.RequiresVersionJoin = true
		case parent.Relation == RelationFolder && relation == RelationComposition:
			sq.RootRow = true
			sq.RequiresVersionJoin = true
		}
	}

	if parent == nil {
		return sq, nil
	}
	if parent.Relation == RelationEhr && !sq.VersionTableOnly {
		sq.RequiresVersionJoin = true
	}
	var join Condition
	switch {
	case parent.VersionTableOnly:
		s.versions[w.ID] = parent
		sq.RootRow = true
		join = &EntityIdxOffsetCondition{Parent: parent, Child: sq, Offset: 0}
	default:
		join = &DescendantCondition{Parent: parent, Child: sq}
	}
	return sq, placeJoinConditions(sq, parent, join)
}

// predicates lowers archetype_node_id and name/value predicates; field supplies
// the field of a predicate path. It returns nil for no predicates.
func (s *buildState) predicates(preds ast.Predicates, field func(path string) Field) Condition {
	if len(preds) == 0 {
		return nil
	}
	var alternatives []Condition
	for _, and := range preds {
		var ops []Condition
		for _, cmp := range and.Operands {
			ops = append(ops, s.predicateComparison(cmp, field))
		}
		alternatives = append(alternatives, AndOf(ops...))
	}
	if len(alternatives) == 1 {
		return alternatives[0]
	}
	return &Or{Operands: alternatives}
}

// predicateComparison lowers one archetype_node_id or name/value comparison;
// field supplies the field of the predicate path.
func (s *buildState) predicateComparison(cmp ast.ComparisonOperatorPredicate, field func(path string) Field) Condition {
	op := OpEq
	if cmp.Operator == ast.OpNeq {
		op = OpNeq
	}
	var values []any
	if p, ok := cmp.Value.(*ast.Primitive); ok {
		values = []any{p.Value}
	}
	return &FieldValue{Field: field(cmp.Path.String()), Operator: op, Values: values}
}

// rowField returns the extracted data column of a structure row for the
// predicate paths archetype_node_id and name/value.
func (s *buildState) rowField(owner *StructureQuery, path string) Field {
	col := extractedcolumn.NameValue
	if path == ast.ArchetypeNodeIDAttribute {
		col = extractedcolumn.ArchetypeNodeID
	}
	spec := s.columns.Spec(col)
	if spec.Complex {
		return &ComplexExtractedColumnField{Owner: owner, Column: col, Columns: spec.Columns}
	}
	return &ColumnField{Owner: owner, Column: spec.Columns[0], Extracted: &col}
}

// keyColumn is a column that is never NULL for an existing row of q.
func keyColumn(q *StructureQuery) string {
	switch {
	case q.Relation == RelationEhr, q.Relation == RelationAuditDetails:
		return "id"
	case q.VersionTableOnly:
		return "vo_id"
	default:
		return "num"
	}
}

func keyField(q *StructureQuery) Field {
	return &ColumnField{Owner: q, Column: keyColumn(q)}
}

// versionProvider returns the query exposing the version columns of w.
func (s *buildState) versionProvider(w *wrapper.ContainsWrapper) *StructureQuery {
	if w.IsVersion {
		return s.sources[w.ID]
	}
	if v, ok := s.versions[w.ID]; ok {
		return v
	}
	sq := s.sources[w.ID]
	sq.RequiresVersionJoin = true
	return sq
}

// auditQuery joins the audit details of the version provided by version.
func (s *buildState) auditQuery(version *StructureQuery) (*StructureQuery, error) {
	if a, ok := s.audits[version]; ok {
		return a, nil
	}
	if !version.VersionTableOnly {
		version.RequiresVersionJoin = true
	}
	a := &StructureQuery{Relation: RelationAuditDetails}
	a.alias = s.nextAlias(abbreviation(rm.AuditDetails), "")
	s.attach(version.Container(), a, JoinLeftOuter)
	s.audits[version] = a
	return a, placeJoinConditions(a, version, &FieldEqualityCondition{
		Left:  &ColumnField{Owner: a, Column: "id"},
		Right: &ColumnField{Owner: version, Column: "audit_id"},
	})
}

// Columns lists the columns a structure query exposes.
func (q *StructureQuery) Columns() []string {
	switch {
	case q.Relation == RelationEhr:
		return []string{"id", "creation_date"}
	case q.Relation == RelationAuditDetails:
		return []string{"id", "committer", "description", "change_type"}
	case q.VersionTableOnly:
		return versionColumns(q.Relation)
	}
	cols := []string{"vo_id", "num", "num_cap", "parent_num", "entity_idx", "rm_entity", "entity_concept", "entity_name", "entity_attribute", "data"}
	if q.Relation == RelationFolder {
		cols = append(cols, "item_uuids")
	}
	if q.RequiresVersionJoin {
		cols = append(cols, versionColumns(q.Relation)[1:]...)
	}
	return cols
}

func versionColumns(r Relation) []string {
	cols := []string{"vo_id", "ehr_id", "sys_version", "audit_id", "contribution_id", "sys_period_lower"}
	if r == RelationComposition {
		cols = append(cols, "template_id", "root_concept")
	}
	return cols
}
