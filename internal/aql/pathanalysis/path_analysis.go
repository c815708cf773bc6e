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

// Package pathanalysis determines which RM types can occur at each position of an AQL path.
//
// Analysis starts at the RM type of the containment a path is rooted at and walks
// the path attribute by attribute. The candidate types of a node are the union of
// the attribute targets of every candidate of its parent, intersected with the
// types admitted by archetype node id predicates of the node. Candidates only ever
// shrink while walking: a node that ends up with no candidates is a contradiction
// and stays one for every descendant.
package pathanalysis

import (
	"sort"
	"strings"

	"github.com/ehrbase/ehrbase-go-components/internal/aql/ast"
	"github.com/ehrbase/ehrbase-go-components/internal/aql/rm"
	"github.com/ehrbase/ehrbase-go-components/internal/common"
)

// NodeCategory classifies an analyzed node for path lowering.
type NodeCategory int

const (
	// Unknown is reported for contradictions.
	Unknown NodeCategory = iota
	Structure
	StructureIntermediate
	RmType
	Foundation
	FoundationExtended
)

func (c NodeCategory) String() string {
	switch c {
	case Structure:
		return "STRUCTURE"
	case StructureIntermediate:
		return "STRUCTURE_INTERMEDIATE"
	case RmType:
		return "RM_TYPE"
	case Foundation:
		return "FOUNDATION"
	case FoundationExtended:
		return "FOUNDATION_EXTENDED"
	default:
		return "UNKNOWN"
	}
}

// TypeSet is a set of RM type names. A nil TypeSet means unconstrained.
type TypeSet map[string]struct{}

// NewTypeSet builds a non-nil set.
func NewTypeSet(types ...string) TypeSet {
	s := make(TypeSet, len(types))
	for _, t := range types {
		s[t] = struct{}{}
	}
	return s
}

// Contains reports membership; an unconstrained set contains everything.
func (s TypeSet) Contains(t string) bool {
	if s == nil {
		return true
	}
	_, ok := s[t]
	return ok
}

// Sorted returns the members in lexical order, nil when unconstrained.
func (s TypeSet) Sorted() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// SubsetOf reports whether every member of s is in other.
func (s TypeSet) SubsetOf(other TypeSet) bool {
	if other == nil {
		return true
	}
	if s == nil {
		return false
	}
	for t := range s {
		if _, ok := other[t]; !ok {
			return false
		}
	}
	return true
}

func intersect(a, b TypeSet) TypeSet {
	switch {
	case a == nil && b == nil:
		return nil
	case a == nil:
		return NewTypeSet(b.Sorted()...)
	case b == nil:
		return NewTypeSet(a.Sorted()...)
	}
	out := TypeSet{}
	for t := range a {
		if _, ok := b[t]; ok {
			out[t] = struct{}{}
		}
	}
	return out
}

func union(a, b TypeSet) TypeSet {
	if a == nil || b == nil {
		return nil
	}
	out := NewTypeSet(a.Sorted()...)
	for t := range b {
		out[t] = struct{}{}
	}
	return out
}

// ANode is one analyzed path position.
type ANode struct {
	CandidateTypes TypeSet
	Attributes     map[string]*ANode
	MultipleValued bool
}

func newNode(types TypeSet) *ANode {
	return &ANode{CandidateTypes: types, Attributes: map[string]*ANode{}}
}

// IsUnconstrained reports whether nothing is known about the node.
func (n *ANode) IsUnconstrained() bool {
	return n.CandidateTypes == nil
}

// IsContradiction reports whether no RM type can occur at the node.
func (n *ANode) IsContradiction() bool {
	return n.CandidateTypes != nil && len(n.CandidateTypes) == 0
}

// Get returns the child analyzed for attribute, or nil.
func (n *ANode) Get(attribute string) *ANode {
	return n.Attributes[attribute]
}

// ArchetypeIndex maps archetype node ids to RM types. The bool result is false when
// the id does not constrain the RM type (at-codes).
type ArchetypeIndex interface {
	RmTypes(archetypeNodeID string) ([]string, bool)
}

// Analyzer runs path analysis against a metadata table.
type Analyzer struct {
	md         *rm.Metadata
	archetypes ArchetypeIndex
}

// NewAnalyzer uses md as archetype index.
func NewAnalyzer(md *rm.Metadata) *Analyzer {
	return &Analyzer{md: md, archetypes: md}
}

// NewAnalyzerWithIndex uses a separate archetype index, e.g. one backed by
// the operational templates of the repository.
func NewAnalyzerWithIndex(md *rm.Metadata, archetypes ArchetypeIndex) *Analyzer {
	return &Analyzer{md: md, archetypes: archetypes}
}

// Metadata returns the metadata the analyzer checks against.
func (a *Analyzer) Metadata() *rm.Metadata {
	return a.md
}

// Root analyzes the containment node a path starts at.
func (a *Analyzer) Root(rootType string, predicates ...ast.Predicates) (*ANode, error) {
	if !a.md.IsKnownType(rootType) {
		return nil, common.NewErrIllegalAql("unknown RM type %s", rootType)
	}
	root := newNode(NewTypeSet(a.md.ConcreteTypes(rootType)...))
	for _, p := range predicates {
		root.CandidateTypes = intersect(root.CandidateTypes, a.PredicateConstraint(p))
	}
	return root, nil
}

// Step analyzes one attribute below parent without attaching the result.
func (a *Analyzer) Step(parent *ANode, node ast.PathNode) (*ANode, error) {
	if !a.md.IsKnownAttribute(node.Attribute) {
		return nil, common.NewErrIllegalAql("%s is not a valid RM path: unknown attribute %s", node.String(), node.Attribute)
	}
	if parent.IsContradiction() {
		return newNode(TypeSet{}), nil
	}
	parentTypes := parent.CandidateTypes.Sorted()
	if parent.IsUnconstrained() {
		parentTypes = a.md.TypesDeclaring(node.Attribute)
	}
	targets := TypeSet{}
	multiple := false
	for _, t := range parentTypes {
		info, ok := a.md.AttributeInfo(node.Attribute, t)
		if !ok {
			continue
		}
		multiple = multiple || info.MultipleValued
		for _, target := range info.Targets {
			targets[target] = struct{}{}
		}
	}
	child := newNode(intersect(targets, a.PredicateConstraint(node.Predicates)))
	child.MultipleValued = multiple
	return child, nil
}

// PredicateConstraint returns the types admitted by the archetype node id
// equalities of predicates, nil if they do not constrain the type. Inequalities,
// MATCHES and other attributes never narrow.
func (a *Analyzer) PredicateConstraint(predicates ast.Predicates) TypeSet {
	if len(predicates) == 0 {
		return nil
	}
	admitted := TypeSet{}
	for _, and := range predicates {
		var constraint TypeSet
		for _, c := range and.Operands {
			if c.Operator != ast.OpEq || c.Path.String() != ast.ArchetypeNodeIDAttribute {
				continue
			}
			prim, ok := c.Value.(*ast.Primitive)
			if !ok || prim.Kind != ast.PrimitiveString {
				continue
			}
			types, ok := a.archetypes.RmTypes(prim.Value.(string))
			if !ok {
				continue
			}
			constraint = intersect(constraint, NewTypeSet(types...))
		}
		if constraint == nil {
			return nil
		}
		for t := range constraint {
			admitted[t] = struct{}{}
		}
	}
	return admitted
}

// Analyze walks path from a containment of rootType and returns the root node with
// the analyzed chain attached.
//
// Parameters:
//   - rootType: RM type of the containment the path is rooted at
//   - containmentPredicates: predicates of the containment (FROM clause)
//   - rootPredicates: predicates written on the path root
//   - path: the attribute path, nil for the bare containment
func (a *Analyzer) Analyze(rootType string, containmentPredicates, rootPredicates ast.Predicates, path *ast.ObjectPath) (*ANode, error) {
	root, err := a.Root(rootType, containmentPredicates, rootPredicates)
	if err != nil {
		return nil, err
	}
	if path == nil {
		return root, nil
	}
	current := root
	for _, n := range path.Nodes {
		child, err := a.Step(current, n)
		if err != nil {
			return nil, err
		}
		current.Attributes[n.Attribute] = child
		current = child
	}
	return root, nil
}

// Leaf is Analyze returning the node of the last path attribute.
func (a *Analyzer) Leaf(rootType string, containmentPredicates, rootPredicates ast.Predicates, path *ast.ObjectPath) (*ANode, error) {
	root, err := a.Analyze(rootType, containmentPredicates, rootPredicates, path)
	if err != nil {
		return nil, err
	}
	return LeafOf(root, path), nil
}

// LeafWithValueTypes is Leaf additionally intersected with the types a compared
// value can have. A nil valueTypes does not constrain.
func (a *Analyzer) LeafWithValueTypes(rootType string, containmentPredicates, rootPredicates ast.Predicates, path *ast.ObjectPath, valueTypes []string) (*ANode, error) {
	leaf, err := a.Leaf(rootType, containmentPredicates, rootPredicates, path)
	if err != nil {
		return nil, err
	}
	if valueTypes != nil {
		leaf.CandidateTypes = intersect(leaf.CandidateTypes, NewTypeSet(valueTypes...))
	}
	return leaf, nil
}

// LeafOf follows path from root through already analyzed nodes.
func LeafOf(root *ANode, path *ast.ObjectPath) *ANode {
	current := root
	if path == nil {
		return current
	}
	for _, n := range path.Nodes {
		next := current.Attributes[n.Attribute]
		if next == nil {
			return nil
		}
		current = next
	}
	return current
}

// Merge unions analyzed trees of the same root attribute by attribute and
// verifies that every merged node still has a single category family.
func (a *Analyzer) Merge(nodes ...*ANode) (*ANode, error) {
	if len(nodes) == 0 {
		return nil, common.NewErrInternal(nil, "merge of zero analyzed paths")
	}
	merged := copyNode(nodes[0])
	for _, n := range nodes[1:] {
		mergeInto(merged, n)
	}
	if err := a.checkCategories(merged, nil); err != nil {
		return nil, err
	}
	return merged, nil
}

func copyNode(n *ANode) *ANode {
	c := newNode(nil)
	if n.CandidateTypes != nil {
		c.CandidateTypes = NewTypeSet(n.CandidateTypes.Sorted()...)
	}
	c.MultipleValued = n.MultipleValued
	for attr, child := range n.Attributes {
		c.Attributes[attr] = copyNode(child)
	}
	return c
}

func mergeInto(target, n *ANode) {
	target.CandidateTypes = union(target.CandidateTypes, n.CandidateTypes)
	target.MultipleValued = target.MultipleValued || n.MultipleValued
	for attr, child := range n.Attributes {
		if existing, ok := target.Attributes[attr]; ok {
			mergeInto(existing, child)
		} else {
			target.Attributes[attr] = copyNode(child)
		}
	}
}

func (a *Analyzer) checkCategories(n *ANode, path []string) error {
	if _, err := a.Category(n); err != nil {
		return common.NewErrIllegalAql("incompatible node categories at /%s", strings.Join(path, "/"))
	}
	for attr, child := range n.Attributes {
		if err := a.checkCategories(child, append(path[:len(path):len(path)], attr)); err != nil {
			return err
		}
	}
	return nil
}

// Category classifies n. Structure types mixed with value or primitive types
// cannot be lowered and yield an IllegalAql error.
func (a *Analyzer) Category(n *ANode) (NodeCategory, error) {
	if n.IsUnconstrained() {
		return RmType, nil
	}
	if n.IsContradiction() {
		return Unknown, nil
	}
	var structure, intermediate, primitive, other int
	for t := range n.CandidateTypes {
		switch a.md.Category(t) {
		case rm.CategoryStructure:
			structure++
		case rm.CategoryStructureIntermediate:
			intermediate++
		case rm.CategoryPrimitive:
			primitive++
		default:
			other++
		}
	}
	switch {
	case structure+intermediate > 0 && primitive+other > 0:
		return Unknown, common.NewErrIllegalAql("incompatible node categories: %s", strings.Join(n.CandidateTypes.Sorted(), ", "))
	case intermediate > 0:
		return StructureIntermediate, nil
	case structure > 0:
		return Structure, nil
	case primitive > 0 && other > 0:
		return FoundationExtended, nil
	case primitive > 0:
		return Foundation, nil
	default:
		return RmType, nil
	}
}

// ValueTypesFor returns the primitive RM types a literal can be compared with,
// nil for NULL (no constraint).
func ValueTypesFor(p *ast.Primitive) []string {
	switch p.Kind {
	case ast.PrimitiveString, ast.PrimitiveTemporal:
		return []string{"String"}
	case ast.PrimitiveInteger:
		return []string{"Integer", "Long", "Double", "Real"}
	case ast.PrimitiveDouble:
		return []string{"Double", "Real"}
	case ast.PrimitiveBoolean:
		return []string{"Boolean"}
	default:
		return nil
	}
}
