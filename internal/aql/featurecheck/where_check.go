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
	"strings"

	"github.com/ehrbase/ehrbase-go-components/internal/aql/ast"
	"github.com/ehrbase/ehrbase-go-components/internal/aql/extractedcolumn"
	"github.com/ehrbase/ehrbase-go-components/internal/aql/pathanalysis"
	"github.com/ehrbase/ehrbase-go-components/internal/aql/wrapper"
	"github.com/ehrbase/ehrbase-go-components/internal/common"
)

// archetypeIDPrefix is the only LIKE prefix accepted on archetype_node_id.
const archetypeIDPrefix = "openEHR-EHR-"

func (c *Checker) checkWhere(w wrapper.ConditionWrapper) error {
	switch t := w.(type) {
	case *wrapper.LogicalConditionWrapper:
		for _, v := range t.Values {
			if err := c.checkWhere(v); err != nil {
				return err
			}
		}
		return nil
	case *wrapper.ComparisonConditionWrapper:
		return c.checkComparison(t)
	default:
		return common.NewErrInternal(nil, "unexpected condition wrapper %T", w)
	}
}

func (c *Checker) checkComparison(cw *wrapper.ComparisonConditionWrapper) error {
	clause := "WHERE " + ast.RenderCondition(cw.Clause)
	if cw.Operator == wrapper.OpExists {
		return common.NewErrFeatureNotImplemented("%s: EXISTS is not supported", clause)
	}
	if cw.Path == nil {
		if _, ok := cw.Left.(*ast.AggregateFunction); ok {
			return common.NewErrIllegalAql("%s: aggregate functions are not allowed in WHERE", clause)
		}
		return common.NewErrFeatureNotImplemented("%s: conditions without a path are not supported", clause)
	}
	for _, v := range cw.Values {
		switch t := v.(type) {
		case *ast.IdentifiedPath:
			return common.NewErrFeatureNotImplemented("%s: comparing two paths is not supported", clause)
		case *ast.AggregateFunction:
			return common.NewErrIllegalAql("%s: aggregate functions are not allowed in WHERE", clause)
		case *ast.Parameter:
			return common.NewErrIllegalAql("%s: unresolved parameter %s", clause, t)
		}
	}
	if cw.Path.Path == nil {
		return common.NewErrFeatureNotImplemented("%s: whole objects cannot be compared", clause)
	}
	res, err := c.checkPath(cw.Root, cw.Path, clause)
	if err != nil {
		return err
	}
	if res.extracted {
		return checkExtractedOperator(res.column, cw, clause)
	}
	return c.checkValueComparison(res, cw, clause)
}

// checkExtractedOperator applies the per column operator rules.
func checkExtractedOperator(col extractedcolumn.Column, cw *wrapper.ComparisonConditionWrapper, clause string) error {
	op := cw.Operator
	switch {
	case col.IsTimeColumn():
		return common.NewErrFeatureNotImplemented("%s: %s cannot be compared", clause, col)
	case col == extractedcolumn.EhrSystemIDDV, col == extractedcolumn.AdDescriptionDV, col == extractedcolumn.AdChangeTypeDV,
		col == extractedcolumn.AdCommitter:
		return common.NewErrFeatureNotImplemented("%s: %s is an object and cannot be compared", clause, col)
	case col == extractedcolumn.ArchetypeNodeID:
		if op == wrapper.OpLike {
			if s, ok := stringLiteral(cw.Values); ok && strings.HasPrefix(s, archetypeIDPrefix) {
				return nil
			}
			return common.NewErrFeatureNotImplemented("%s: LIKE on archetype_node_id needs a string starting with %s", clause, archetypeIDPrefix)
		}
		return onlyEquality(col, op, clause)
	case col == extractedcolumn.TemplateID, col == extractedcolumn.VoID,
		col == extractedcolumn.EhrID, col.IsChangeType():
		return onlyEquality(col, op, clause)
	}
	if op == wrapper.OpLike {
		return common.NewErrFeatureNotImplemented("%s: LIKE is not supported on %s", clause, col)
	}
	return checkLiteralKinds(cw, clause)
}

func onlyEquality(col extractedcolumn.Column, op wrapper.ComparisonOperator, clause string) error {
	switch op {
	case wrapper.OpEq, wrapper.OpNeq, wrapper.OpMatches:
		return nil
	}
	return common.NewErrFeatureNotImplemented("%s: %s only supports =, != and MATCHES", clause, col)
}

func stringLiteral(values []ast.Operand) (string, bool) {
	if len(values) != 1 {
		return "", false
	}
	p, ok := values[0].(*ast.Primitive)
	if !ok || p.Kind != ast.PrimitiveString {
		return "", false
	}
	return p.Value.(string), true
}

// checkLiteralKinds rejects NULL outside of = and !=.
func checkLiteralKinds(cw *wrapper.ComparisonConditionWrapper, clause string) error {
	for _, v := range cw.Values {
		p, ok := v.(*ast.Primitive)
		if ok && p.Kind == ast.PrimitiveNull && cw.Operator != wrapper.OpEq && cw.Operator != wrapper.OpNeq {
			return common.NewErrIllegalAql("%s: NULL can only be compared with = or !=", clause)
		}
	}
	return nil
}

// checkValueComparison handles paths into the JSON data of a structure row.
// The leaf must be a primitive and every literal must fit its candidate types.
func (c *Checker) checkValueComparison(res resolvedPath, cw *wrapper.ComparisonConditionWrapper, clause string) error {
	cat, err := c.analyzer.Category(res.leaf)
	if err != nil {
		return err
	}
	switch cat {
	case pathanalysis.Structure, pathanalysis.StructureIntermediate:
		return common.NewErrFeatureNotImplemented("%s: structure objects cannot be compared", clause)
	case pathanalysis.RmType:
		if !res.leaf.IsUnconstrained() {
			return common.NewErrFeatureNotImplemented("%s: %s values cannot be compared, select a primitive attribute", clause, strings.Join(res.types(), ", "))
		}
	}
	if err := checkLiteralKinds(cw, clause); err != nil {
		return err
	}
	for _, v := range cw.Values {
		p := v.(*ast.Primitive)
		valueTypes := pathanalysis.ValueTypesFor(p)
		if valueTypes == nil || res.leaf.IsUnconstrained() {
			continue
		}
		fits := false
		for _, t := range valueTypes {
			if res.leaf.CandidateTypes.Contains(t) {
				fits = true
				break
			}
		}
		if !fits {
			return common.NewErrIllegalAql("%s: %s cannot be compared with values of %s", clause, ast.RenderOperand(p), strings.Join(res.types(), ", "))
		}
	}
	if cw.Operator != wrapper.OpLike {
		return nil
	}
	if _, ok := stringLiteral(cw.Values); !ok {
		return common.NewErrIllegalAql("%s: LIKE needs a string literal", clause)
	}
	if res.leaf.IsUnconstrained() || len(res.leaf.CandidateTypes) != 1 || !res.leaf.CandidateTypes.Contains("String") {
		return common.NewErrFeatureNotImplemented("%s: LIKE is only supported on String attributes", clause)
	}
	return nil
}
