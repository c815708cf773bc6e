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
	"github.com/ehrbase/ehrbase-go-components/internal/aql/extractedcolumn"
)

// Field is a value read from a query of the tree.
type Field interface {
	isField()
}

// ColumnField reads one physical column of a structure query.
type ColumnField struct {
	Owner  *StructureQuery
	Column string
	// Extracted is set when the field stands for an extracted column path.
	Extracted *extractedcolumn.Column
}

// ComplexExtractedColumnField is an extracted column that spans several physical
// columns or needs a conversion (archetype_node_id, uid/value, template_id, …).
// Columns are read from Owner in the order the postprocessor expects.
type ComplexExtractedColumnField struct {
	Owner   *StructureQuery
	Column  extractedcolumn.Column
	Columns []string
}

// AggregatingField applies an aggregate function; Base is nil for COUNT(*).
type AggregatingField struct {
	Function ast.AggregateFunctionName
	Distinct bool
	Base     Field
}

// ConstantField is a value known at compile time. Extracted is set for
// constant extracted columns such as the system id.
type ConstantField struct {
	Value     any
	Extracted *extractedcolumn.Column
}

// SubqueryKind selects the rows a SubqueryField aggregates.
type SubqueryKind int

const (
	// SubqueryStructureRows aggregates the subtree of Owner's row.
	SubqueryStructureRows SubqueryKind = iota
	// SubqueryChildRows aggregates the subtrees of all children of Owner's row
	// stored under Attribute.
	SubqueryChildRows
)

// SubqueryField reconstructs structure objects from their rows with a
// correlated subquery; the value is a JSON array of row objects.
type SubqueryField struct {
	Kind      SubqueryKind
	Owner     *StructureQuery
	Attribute string
}

// DataField reads JSON: the data column of Source, followed by Path.
type DataField struct {
	// Source is a *StructureQuery (row data) or *PathDataQuery.
	Source Query
	Path   []string
	// ValueTypes are the RM types the value can have.
	ValueTypes []string
}

func (*ColumnField) isField()                 {}
func (*ComplexExtractedColumnField) isField() {}
func (*AggregatingField) isField()            {}
func (*ConstantField) isField()               {}
func (*SubqueryField) isField()               {}
func (*DataField) isField()                   {}

// WithPath returns a copy of f reading the additional JSON attributes.
func (f *DataField) WithPath(attributes ...string) *DataField {
	path := append(append([]string{}, f.Path...), attributes...)
	return &DataField{Source: f.Source, Path: path, ValueTypes: f.ValueTypes}
}

// PathFieldMap records the field every SELECT, WHERE and ORDER BY path was
// lowered to, keyed by the rendered path.
type PathFieldMap struct {
	fields map[string]Field
	order  []string
}

func newPathFieldMap() *PathFieldMap {
	return &PathFieldMap{fields: map[string]Field{}}
}

func (m *PathFieldMap) put(path string, f Field) {
	if _, ok := m.fields[path]; !ok {
		m.order = append(m.order, path)
	}
	m.fields[path] = f
}

// Get returns the field of path.
func (m *PathFieldMap) Get(path string) (Field, bool) {
	f, ok := m.fields[path]
	return f, ok
}

// Paths lists the recorded paths in the order they were first lowered.
func (m *PathFieldMap) Paths() []string {
	return append([]string{}, m.order...)
}
