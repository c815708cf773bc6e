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

// Condition is a boolean expression of the ASL.
type Condition interface {
	isCondition()
}

// Operator is the operator of a FieldValue condition.
type Operator int

const (
	OpEq Operator = iota
	OpNeq
	OpLt
	OpLtEq
	OpGt
	OpGtEq
	OpLike
	OpIn
	OpIsNull
	OpIsNotNull
)

func (o Operator) String() string {
	switch o {
	case OpEq:
		return "EQ"
	case OpNeq:
		return "NEQ"
	case OpLt:
		return "LT"
	case OpLtEq:
		return "LE"
	case OpGt:
		return "GT"
	case OpGtEq:
		return "GE"
	case OpLike:
		return "LIKE"
	case OpIn:
		return "IN"
	case OpIsNull:
		return "IS_NULL"
	default:
		return "IS_NOT_NULL"
	}
}

type And struct {
	Operands []Condition
}

type Or struct {
	Operands []Condition
}

type Not struct {
	Condition Condition
}

type True struct{}

type False struct{}

// FieldValue compares a field with literal values (string, int64, float64,
// bool). IN takes any number of values, IS_NULL and IS_NOT_NULL none, the
// other operators exactly one.
type FieldValue struct {
	Field    Field
	Operator Operator
	Values   []any
}

// NotNull holds when the field has a value; it tests the presence of outer
// joined rows.
type NotNull struct {
	Field Field
}

// EntityIdxOffsetCondition places Child in the versioned object of Parent, at
// row offset Offset from the root (0 is the root row).
type EntityIdxOffsetCondition struct {
	Parent *StructureQuery
	Child  *StructureQuery
	Offset int
}

// DescendantCondition holds when the Child row is contained in the Parent
// row: same EHR, folder item or row range of the same versioned object
// depending on the relations.
type DescendantCondition struct {
	Parent *StructureQuery
	Child  *StructureQuery
}

// PathChildCondition holds when the Child row is a direct child of the Parent
// row in the same data table.
type PathChildCondition struct {
	Parent *StructureQuery
	Child  *StructureQuery
}

// FieldEqualityCondition compares two fields.
type FieldEqualityCondition struct {
	Left  Field
	Right Field
}

func (*And) isCondition()                      {}
func (*Or) isCondition()                       {}
func (*Not) isCondition()                      {}
func (*True) isCondition()                     {}
func (*False) isCondition()                    {}
func (*FieldValue) isCondition()               {}
func (*NotNull) isCondition()                  {}
func (*EntityIdxOffsetCondition) isCondition() {}
func (*DescendantCondition) isCondition()      {}
func (*PathChildCondition) isCondition()       {}
func (*FieldEqualityCondition) isCondition()   {}

// AndOf joins conditions, dropping nils. It returns nil for no condition and the
// single condition unwrapped.
func AndOf(conditions ...Condition) Condition {
	var ops []Condition
	for _, c := range conditions {
		if c != nil {
			ops = append(ops, c)
		}
	}
	switch len(ops) {
	case 0:
		return nil
	case 1:
		return ops[0]
	default:
		return &And{Operands: ops}
	}
}
