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

// Package asl defines the abstract SQL layer (ASL) an AQL query is compiled to and
// the builder producing it.
//
// The ASL is a tree of subqueries over the physical EHR tables. Every query
// carries a unique alias; fields and conditions reference queries, never SQL
// text, so the tree can be rendered by any SQL backend (see package aslsql).
package asl

import (
	"github.com/ehrbase/ehrbase-go-components/internal/aql/ast"
	"github.com/ehrbase/ehrbase-go-components/internal/aql/wrapper"
)

// Relation is the storage area a structure query reads.
type Relation int

const (
	RelationEhr Relation = iota
	RelationComposition
	RelationEhrStatus
	RelationFolder
	RelationAuditDetails
)

func (r Relation) String() string {
	switch r {
	case RelationEhr:
		return "EHR"
	case RelationComposition:
		return "COMPOSITION"
	case RelationEhrStatus:
		return "EHR_STATUS"
	case RelationFolder:
		return "FOLDER"
	default:
		return "AUDIT_DETAILS"
	}
}

// HasDataTable reports whether rows of r are split into a version and a data table.
func (r Relation) HasDataTable() bool {
	return r == RelationComposition || r == RelationEhrStatus || r == RelationFolder
}

// JoinType is the SQL join used to attach a query to its predecessors.
type JoinType int

const (
	JoinInner JoinType = iota
	JoinLeftOuter
)

func (t JoinType) String() string {
	if t == JoinLeftOuter {
		return "LEFT OUTER"
	}
	return "INNER"
}

// Join attaches a query to the queries before it in the same encapsulating query.
type Join struct {
	Type    JoinType
	Lateral bool
	// Conditions are and-ed; an empty list joins on TRUE.
	Conditions []Condition
}

// Query is a node of the ASL tree.
type Query interface {
	Alias() string
	// Container is the encapsulating query q is a child of, nil for the root.
	Container() *EncapsulatingQuery
	// JoinInfo is nil for the first child of a container.
	JoinInfo() *Join
	base() *queryBase
}

type queryBase struct {
	alias     string
	container *EncapsulatingQuery
	join      *Join
}

func (b *queryBase) Alias() string                  { return b.alias }
func (b *queryBase) Container() *EncapsulatingQuery { return b.container }
func (b *queryBase) JoinInfo() *Join                { return b.join }
func (b *queryBase) base() *queryBase               { return b }

// EncapsulatingQuery is a FROM list: its children are joined in order. The
// root of the tree is rendered inline, nested ones as subselects.
type EncapsulatingQuery struct {
	queryBase
	Children []Query
	// Condition filters the rows of a nested encapsulating query, nil for none.
	Condition Condition
}

// Add appends q with join (nil for the first child) and makes e its container.
func (e *EncapsulatingQuery) Add(q Query, join *Join) {
	b := q.base()
	b.container = e
	b.join = join
	e.Children = append(e.Children, q)
}

// StructureQuery reads rows of one relation: EHRs, versions, structure rows of a
// versioned object or audit details.
type StructureQuery struct {
	queryBase
	Relation Relation
	// RmTypes restricts rm_entity, empty for no restriction.
	RmTypes []string
	// Containment is the FROM clause element the query stands for, nil for
	// attribute and audit details queries.
	Containment *wrapper.ContainsWrapper
	// Attribute is the entity_attribute of attribute queries created for path
	// segments, e.g. "data" or "instruction_details/wf_details".
	Attribute string
	// Conditions restrict the rows of the relation itself (predicates, root row).
	Conditions []Condition

	VersionTableOnly    bool
	RequiresVersionJoin bool
	// RootRow selects the root object of a versioned object (num = 0).
	RootRow bool
}

// PathDataKind selects how a path data query extracts JSON.
type PathDataKind int

const (
	// PathDataScalar extracts one JSON value per parent row.
	PathDataScalar PathDataKind = iota
	// PathDataArrayUnnest produces one row per element of a JSON array.
	PathDataArrayUnnest
)

func (k PathDataKind) String() string {
	if k == PathDataArrayUnnest {
		return "ARRAY_UNNEST"
	}
	return "SCALAR"
}

// PathDataQuery extracts a JSON sub path of its base. It is joined laterally
// to the container of its base and exposes a single data column.
type PathDataQuery struct {
	queryBase
	Kind PathDataKind
	// Base is the structure row or path data query the JSON is taken from.
	Base Query
	// Path lists the JSON attribute names below the base data, may be empty.
	Path []string
	// Filter applies to the extracted value (unnest element), nil for none.
	Filter Condition
	// Node is the path position the query was built for.
	Node []ast.PathNode
}

// OrderByField is one ORDER BY expression.
type OrderByField struct {
	Field     Field
	Direction ast.OrderDirection
}

// SelectField is one SELECT item of the root query.
type SelectField struct {
	// Name is the column name of the AQL result set.
	Name  string
	Field Field
}

// FieldSource associates a containment with the structure query owning its
// columns and the query providing them at root level.
type FieldSource struct {
	Owner    *StructureQuery
	Provider Query
}

// RootQuery is the compiled query.
type RootQuery struct {
	From      *EncapsulatingQuery
	Sources   map[wrapper.ContainsID]FieldSource
	Select    []SelectField
	Condition Condition // nil for no WHERE
	GroupBy   []Field
	OrderBy   []OrderByField
	Distinct  bool
	Limit     *int64
	Offset    *int64
}

// Queries lists every query of the tree depth first in child order.
func (r *RootQuery) Queries() []Query {
	var out []Query
	var walk func(e *EncapsulatingQuery)
	walk = func(e *EncapsulatingQuery) {
		for _, c := range e.Children {
			out = append(out, c)
			if nested, ok := c.(*EncapsulatingQuery); ok {
				walk(nested)
			}
		}
	}
	walk(r.From)
	return out
}

// VisibleIn returns the query through which the columns of q can be referenced
// inside scope: q itself when it is a direct child, otherwise the nested
// encapsulating query of scope that contains q. It returns nil when q is not
// inside scope.
func VisibleIn(q Query, scope *EncapsulatingQuery) Query {
	current := q
	for current != nil {
		c := current.Container()
		if c == scope {
			return current
		}
		if c == nil {
			return nil
		}
		current = c
	}
	return nil
}

// IsWithin reports whether q is a direct or indirect child of scope.
func IsWithin(q Query, scope *EncapsulatingQuery) bool {
	return VisibleIn(q, scope) != nil
}
