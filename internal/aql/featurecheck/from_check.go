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
	"github.com/ehrbase/ehrbase-go-components/internal/aql/rm"
	"github.com/ehrbase/ehrbase-go-components/internal/aql/wrapper"
	"github.com/ehrbase/ehrbase-go-components/internal/common"
)

func (c *Checker) checkFrom(q *wrapper.QueryWrapper) error {
	if len(q.From.Chain) == 0 {
		return common.NewErrFeatureNotImplemented("FROM %s: the root must be a single containment", ast.RenderContainment(q.Query.From))
	}
	if err := c.checkChain(q.From); err != nil {
		return err
	}
	roots := map[wrapper.ContainsID]string{}
	for _, w := range q.Containments {
		if err := c.checkContainment(w); err != nil {
			return err
		}
		root, err := c.structureRoot(w, roots)
		if err != nil {
			return err
		}
		roots[w.ID] = root
	}
	return nil
}

// checkChain enforces the nesting rules of VERSION and set operators.
func (c *Checker) checkChain(chain *wrapper.ContainsChain) error {
	for i, w := range chain.Chain {
		if !w.IsVersion {
			continue
		}
		if i+1 < len(chain.Chain) {
			inner := chain.Chain[i+1]
			if inner.IsVersion {
				return common.NewErrIllegalAql("%s: VERSION cannot contain VERSION", w)
			}
			if inner.Type != rm.Composition && inner.Type != rm.EhrStatus {
				return common.NewErrFeatureNotImplemented("%s: VERSION can only contain COMPOSITION or EHR_STATUS, not %s", w, inner.Type)
			}
			continue
		}
		if chain.Trailing != nil && chain.Trailing.Symbol != wrapper.SetNot {
			return common.NewErrFeatureNotImplemented("%s: VERSION cannot contain %s", w, ast.RenderContainment(chain.Trailing.Clause))
		}
		if chain.Trailing == nil {
			return common.NewErrFeatureNotImplemented("%s: VERSION must contain a COMPOSITION or EHR_STATUS", w)
		}
	}
	if chain.Trailing == nil {
		return nil
	}
	if chain.Trailing.Symbol == wrapper.SetNot {
		return common.NewErrFeatureNotImplemented("%s: NOT CONTAINS is not supported", ast.RenderContainment(chain.Trailing.Clause))
	}
	for _, op := range chain.Trailing.Operands {
		if err := c.checkChain(op); err != nil {
			return err
		}
	}
	return nil
}

func (c *Checker) checkContainment(w *wrapper.ContainsWrapper) error {
	if w.IsVersion {
		switch w.VersionPredicate {
		case ast.VersionPredicateNone, ast.VersionPredicateLatest:
			return nil
		default:
			return common.NewErrFeatureNotImplemented("%s: only LATEST_VERSION is supported as VERSION predicate", w)
		}
	}
	if !c.md.IsKnownType(w.Type) {
		return common.NewErrIllegalAql("%s: unknown RM type %s", w, w.Type)
	}
	if w.Type == rm.Ehr {
		if w.Parent != nil {
			return common.NewErrIllegalAql("%s: EHR can only be the root of FROM", w)
		}
		if len(w.Predicates) > 0 {
			return common.NewErrFeatureNotImplemented("%s: predicates on EHR are not supported", w)
		}
		return nil
	}
	if !c.md.IsStructure(w.Type) {
		return common.NewErrIllegalAql("%s: %s cannot be used in CONTAINS", w, w.Type)
	}
	if err := checkPathPredicates(w.Predicates, w.String()); err != nil {
		return err
	}
	root, err := c.analyzer.Root(w.Type, w.Predicates)
	if err != nil {
		return err
	}
	if root.IsContradiction() {
		return common.NewErrIllegalAql("%s: archetype does not match %s", w, w.Type)
	}
	return nil
}

// structureRoot determines the structure root (EHR, COMPOSITION, EHR_STATUS or
// FOLDER) the rows of w are stored under, given the roots of its ancestors.
func (c *Checker) structureRoot(w *wrapper.ContainsWrapper, roots map[wrapper.ContainsID]string) (string, error) {
	if w.Type == rm.Ehr {
		return rm.Ehr, nil
	}
	if w.IsVersion {
		// decided by the wrapped containment
		return "", nil
	}
	parent := w.Parent
	for parent != nil && parent.IsVersion {
		parent = parent.Parent
	}
	parentRoot := ""
	if parent != nil {
		parentRoot = roots[parent.ID]
	}

	if c.md.IsStructureRoot(w.Type) {
		switch {
		case parent == nil, parentRoot == rm.Ehr:
			return w.Type, nil
		case parentRoot == rm.Folder && parent.Type == rm.Folder && (w.Type == rm.Folder || w.Type == rm.Composition):
			return w.Type, nil
		case parentRoot == rm.Folder:
			return "", common.NewErrFeatureNotImplemented("%s: FOLDER can only contain FOLDER or COMPOSITION", w)
		default:
			return "", common.NewErrIllegalAql("%s: %s cannot contain %s", w, parent, w.Type)
		}
	}

	allowed := c.md.StructureRoots(w.Type)
	if parent == nil || parentRoot == rm.Ehr {
		if len(allowed) != 1 {
			return "", common.NewErrIllegalAql("%s: ambiguous structure target, %s can be part of %v", w, w.Type, allowed)
		}
		return allowed[0], nil
	}
	if parentRoot == rm.Folder {
		return "", common.NewErrFeatureNotImplemented("%s: FOLDER can only contain FOLDER or COMPOSITION", w)
	}
	for _, r := range allowed {
		if r == parentRoot {
			return r, nil
		}
	}
	return "", common.NewErrIllegalAql("%s: %s cannot contain %s", w, parent, w.Type)
}
