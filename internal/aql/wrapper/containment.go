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

// Package wrapper normalizes a parsed AQL query for validation and ASL construction.
//
// Every containment gets a stable ContainsID and every SELECT, WHERE and ORDER BY
// path is bound to the containment it is rooted at. Later stages key all their
// tables by ContainsID instead of by AST node identity.
package wrapper

import (
	"github.com/ehrbase/ehrbase-go-components/internal/aql/ast"
	"github.com/ehrbase/ehrbase-go-components/internal/aql/rm"
	"github.com/ehrbase/ehrbase-go-components/internal/common"
)

// ContainsID identifies a containment; ids are assigned in depth first order of the FROM clause.
type ContainsID int

// ContainsWrapper is one class or VERSION containment.
type ContainsWrapper struct {
	ID ContainsID
	// Type is the RM type, ORIGINAL_VERSION for VERSION containments.
	Type       string
	Identifier string
	Predicates ast.Predicates

	IsVersion                bool
	VersionPredicate         ast.VersionPredicateType
	VersionStandardPredicate *ast.ComparisonOperatorPredicate

	// Parent is the containment this one is nested in, nil for the FROM root.
	Parent *ContainsWrapper
	Clause ast.Containment
}

// String renders the containment without its CONTAINS clause.
func (w *ContainsWrapper) String() string {
	if w.IsVersion {
		return ast.RenderContainment(&ast.ContainmentVersionExpression{
			Identifier:        w.Identifier,
			Predicate:         w.VersionPredicate,
			StandardPredicate: w.VersionStandardPredicate,
		})
	}
	return ast.RenderContainment(&ast.ContainmentClassExpression{
		Type:       w.Type,
		Identifier: w.Identifier,
		Predicates: w.Predicates,
	})
}

// SetSymbol is the operator of a trailing set operation.
type SetSymbol int

const (
	SetAnd SetSymbol = iota
	SetOr
	// SetNot is a NOT CONTAINS; it has a single operand.
	SetNot
)

func (s SetSymbol) String() string {
	switch s {
	case SetOr:
		return "OR"
	case SetNot:
		return "NOT"
	default:
		return "AND"
	}
}

// ContainsSetOperation ends a chain with AND, OR or NOT over sub-chains.
type ContainsSetOperation struct {
	Symbol   SetSymbol
	Operands []*ContainsChain
	Clause   ast.Containment
}

// ContainsChain is a sequence of containments, outer to inner, optionally ending
// in a set operation.
type ContainsChain struct {
	Chain    []*ContainsWrapper
	Trailing *ContainsSetOperation
}

// Last returns the innermost containment of the chain itself, nil for chains
// that consist of a set operation only.
func (c *ContainsChain) Last() *ContainsWrapper {
	if len(c.Chain) == 0 {
		return nil
	}
	return c.Chain[len(c.Chain)-1]
}

// Walk visits every containment of the chain and its set operations in id order.
func (c *ContainsChain) Walk(fn func(*ContainsWrapper)) {
	for _, w := range c.Chain {
		fn(w)
	}
	if c.Trailing != nil {
		for _, op := range c.Trailing.Operands {
			op.Walk(fn)
		}
	}
}

type chainBuilder struct {
	containments []*ContainsWrapper
	byIdentifier map[string]*ContainsWrapper
}

func (b *chainBuilder) add(w *ContainsWrapper) error {
	if w.Identifier != "" {
		if _, dup := b.byIdentifier[w.Identifier]; dup {
			return common.NewErrIllegalAql("multiple containments use the identifier %s", w.Identifier)
		}
		b.byIdentifier[w.Identifier] = w
	}
	w.ID = ContainsID(len(b.containments))
	b.containments = append(b.containments, w)
	return nil
}

func (b *chainBuilder) build(c ast.Containment, parent *ContainsWrapper) (*ContainsChain, error) {
	chain := &ContainsChain{}
	for c != nil {
		switch t := c.(type) {
		case *ast.ContainmentClassExpression:
			w := &ContainsWrapper{Type: t.Type, Identifier: t.Identifier, Predicates: t.Predicates, Parent: parent, Clause: t}
			if err := b.add(w); err != nil {
				return nil, err
			}
			chain.Chain = append(chain.Chain, w)
			parent = w
			c = t.Contains
		case *ast.ContainmentVersionExpression:
			w := &ContainsWrapper{
				Type:                     rm.OriginalVersion,
				Identifier:               t.Identifier,
				IsVersion:                true,
				VersionPredicate:         t.Predicate,
				VersionStandardPredicate: t.StandardPredicate,
				Parent:                   parent,
				Clause:                   t,
			}
			if err := b.add(w); err != nil {
				return nil, err
			}
			chain.Chain = append(chain.Chain, w)
			parent = w
			c = t.Contains
		case *ast.ContainmentSetOperator:
			op := &ContainsSetOperation{Symbol: SetAnd, Clause: t}
			if t.Symbol == ast.SetOperatorOr {
				op.Symbol = SetOr
			}
			for _, v := range t.Values {
				sub, err := b.build(v, parent)
				if err != nil {
					return nil, err
				}
				op.Operands = append(op.Operands, sub)
			}
			chain.Trailing = op
			c = nil
		case *ast.ContainmentNot:
			sub, err := b.build(t.Contains, parent)
			if err != nil {
				return nil, err
			}
			chain.Trailing = &ContainsSetOperation{Symbol: SetNot, Operands: []*ContainsChain{sub}, Clause: t}
			c = nil
		default:
			return nil, common.NewErrInternal(nil, "unexpected containment %T", c)
		}
	}
	return chain, nil
}
