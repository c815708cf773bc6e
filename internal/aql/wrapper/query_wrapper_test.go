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

package wrapper

import (
	"testing"

	"github.com/ehrbase/ehrbase-go-components/internal/aql/ast"
	"github.com/ehrbase/ehrbase-go-components/internal/common"
	. "github.com/ehrbase/ehrbase-go-components/internal/common/testenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContainmentIDsAndChain(t *testing.T) {
	q := Select("o/data", "c/uid/value").
		From(Class("EHR", "e", "",
			Class("COMPOSITION", "c", "[openEHR-EHR-COMPOSITION.report.v1]",
				And(
					Class("OBSERVATION", "o", "[openEHR-EHR-OBSERVATION.bp.v2]"),
					Class("SECTION", "s", "", Class("ADMIN_ENTRY", "a", "")),
				)))).
		Build()

	w, err := Normalize(q)
	require.NoError(t, err)

	require.Len(t, w.Containments, 5)
	for i, c := range w.Containments {
		assert.Equal(t, ContainsID(i), c.ID)
	}
	assert.Equal(t, []string{"e", "c", "o", "s", "a"}, identifiersOf(w.Containments))

	require.Len(t, w.From.Chain, 2)
	require.NotNil(t, w.From.Trailing)
	assert.Equal(t, SetAnd, w.From.Trailing.Symbol)
	require.Len(t, w.From.Trailing.Operands, 2)

	o, ok := w.ByIdentifier("o")
	require.True(t, ok)
	assert.Equal(t, "c", o.Parent.Identifier)
	a, _ := w.ByIdentifier("a")
	assert.Equal(t, "s", a.Parent.Identifier)
	assert.Equal(t, "COMPOSITION c[openEHR-EHR-COMPOSITION.report.v1]", w.Containments[1].String())

	c, _ := w.ByIdentifier("c")
	assert.Equal(t, []string{"o", "s"}, identifiersOf(w.Children(c)))

	require.Len(t, w.Selects, 2)
	assert.Equal(t, SelectPath, w.Selects[0].Type)
	assert.Same(t, o, w.Selects[0].Root)
	assert.NotNil(t, w.Cohesion(o.ID).Child("data"))
	assert.Empty(t, w.Cohesion(a.ID).Children)
}

func identifiersOf(ws []*ContainsWrapper) []string {
	out := make([]string, len(ws))
	for i, w := range ws {
		out[i] = w.Identifier
	}
	return out
}

func TestVersionContainment(t *testing.T) {
	q := Select("v/commit_audit/time_committed").
		From(Class("EHR", "e", "", Version("v", ast.VersionPredicateLatest, Class("COMPOSITION", "c", "")))).
		Build()
	w, err := Normalize(q)
	require.NoError(t, err)

	v, _ := w.ByIdentifier("v")
	assert.True(t, v.IsVersion)
	assert.Equal(t, "ORIGINAL_VERSION", v.Type)
	assert.Equal(t, "VERSION v[LATEST_VERSION]", v.String())
	c, _ := w.ByIdentifier("c")
	assert.Same(t, v, c.Parent)
}

func TestNotContainsIsKeptForRejection(t *testing.T) {
	q := Select("c").From(Class("COMPOSITION", "c", "", NotContains(Class("OBSERVATION", "o", "")))).Build()
	w, err := Normalize(q)
	require.NoError(t, err)
	require.NotNil(t, w.From.Trailing)
	assert.Equal(t, SetNot, w.From.Trailing.Symbol)
}

func TestDuplicateIdentifier(t *testing.T) {
	q := Select("c").From(Class("COMPOSITION", "c", "", Class("OBSERVATION", "c", ""))).Build()
	_, err := Normalize(q)
	require.Error(t, err)
	assert.True(t, common.IsErrIllegalAql(err))
}

func TestUnknownPathRoot(t *testing.T) {
	q := Select("x/name/value").From(Class("COMPOSITION", "c", "")).Build()
	_, err := Normalize(q)
	require.Error(t, err)
	assert.True(t, common.IsErrIllegalAql(err))
	assert.Contains(t, err.Error(), "identifier x")

	q = Select("c").From(Class("COMPOSITION", "c", "")).
		Where(&ast.ComparisonOperatorCondition{Statement: P("c/name/value"), Symbol: ast.OpEq, Value: P("y/name/value")}).
		Build()
	_, err = Normalize(q)
	require.Error(t, err)
	assert.True(t, common.IsErrIllegalAql(err))
}

func TestSelectClassification(t *testing.T) {
	q := Select(
		Aggregate(ast.AggregateCount, false, ""),
		Aggregate(ast.AggregateMax, false, "c/context/start_time/value"),
		ast.IntegerValue(1),
	).From(Class("COMPOSITION", "c", "")).Build()
	w, err := Normalize(q)
	require.NoError(t, err)

	require.Len(t, w.Selects, 3)
	assert.Equal(t, SelectAggregate, w.Selects[0].Type)
	assert.Nil(t, w.Selects[0].Path)
	assert.Nil(t, w.Selects[0].Root)
	assert.Equal(t, SelectAggregate, w.Selects[1].Type)
	assert.Equal(t, ast.AggregateMax, w.Selects[1].Aggregate)
	assert.Equal(t, "c", w.Selects[1].Root.Identifier)
	assert.Equal(t, SelectPrimitive, w.Selects[2].Type)
}

func TestWhereOrientation(t *testing.T) {
	q := Select("c").From(Class("COMPOSITION", "c", "")).
		Where(AllOf(
			&ast.ComparisonOperatorCondition{Statement: ast.IntegerValue(3), Symbol: ast.OpLt, Value: P("c/content/items/value/magnitude")},
			Not(Like("c/name/value", "x%")),
			Matches("c/archetype_node_id", ast.StringValue("openEHR-EHR-COMPOSITION.a.v1")),
		)).
		OrderBy("c/name/value", ast.Descending).
		Build()
	w, err := Normalize(q)
	require.NoError(t, err)

	and, ok := w.Where.(*LogicalConditionWrapper)
	require.True(t, ok)
	require.Len(t, and.Values, 3)

	cmp := and.Values[0].(*ComparisonConditionWrapper)
	assert.Equal(t, OpGt, cmp.Operator)
	assert.Equal(t, "c/content/items/value/magnitude", cmp.Path.String())
	assert.Equal(t, []ast.Operand{ast.IntegerValue(3)}, cmp.Values)

	not := and.Values[1].(*LogicalConditionWrapper)
	assert.Equal(t, LogicalNot, not.Operator)
	assert.Equal(t, OpLike, not.Values[0].(*ComparisonConditionWrapper).Operator)
	assert.Equal(t, OpMatches, and.Values[2].(*ComparisonConditionWrapper).Operator)

	require.Len(t, w.OrderBy, 1)
	assert.Equal(t, ast.Descending, w.OrderBy[0].Direction)
	c, _ := w.ByIdentifier("c")
	assert.Same(t, c, w.OrderBy[0].Root)
}

func TestRewriteEhrStatusPath(t *testing.T) {
	q := Select("e/ehr_status").As("s").From(Class("EHR", "e", "")).Build()

	rewritten, err := RewriteEhrPaths(q)
	require.NoError(t, err)
	assert.Equal(t, "SELECT s AS s FROM EHR e CONTAINS EHR_STATUS s", rewritten.String())
	assert.Equal(t, "SELECT e/ehr_status AS s FROM EHR e", q.String(), "input is left unmodified")
}

func TestRewriteAddsAndedContainment(t *testing.T) {
	q := Select("s/uid/value", "e/ehr_status/subject/external_ref/id").
		From(Class("EHR", "e", "", Class("COMPOSITION", "s", ""))).
		Where(Cmp("e/ehr_status/is_modifiable", ast.OpEq, ast.BooleanValue(true))).
		Build()

	rewritten, err := RewriteEhrPaths(q)
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT s/uid/value, s1/subject/external_ref/id FROM EHR e CONTAINS (EHR_STATUS s1 AND COMPOSITION s) WHERE s1/is_modifiable = true",
		rewritten.String())

	w, err := Normalize(q)
	require.NoError(t, err)
	s1, ok := w.ByIdentifier("s1")
	require.True(t, ok)
	assert.Equal(t, "EHR_STATUS", s1.Type)
	assert.Len(t, w.Cohesion(s1.ID).Children, 2)
}

func TestRewriteCompositionsWithPredicates(t *testing.T) {
	q := Select(
		"e/compositions[openEHR-EHR-COMPOSITION.report.v1]/uid/value",
		"e/compositions[openEHR-EHR-COMPOSITION.report.v1]/name/value",
		"e/compositions[openEHR-EHR-COMPOSITION.other.v1]/uid/value",
		"e/ehr_id/value",
	).From(Class("EHR", "e", "", And(Class("COMPOSITION", "c", ""), Class("EHR_STATUS", "x", "")))).Build()

	rewritten, err := RewriteEhrPaths(q)
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT c1/uid/value, c1/name/value, c2/uid/value, e/ehr_id/value FROM EHR e CONTAINS "+
			"(COMPOSITION c1[openEHR-EHR-COMPOSITION.report.v1] AND COMPOSITION c2[openEHR-EHR-COMPOSITION.other.v1] AND COMPOSITION c AND EHR_STATUS x)",
		rewritten.String())
}

func TestRewriteBothEhrAttributes(t *testing.T) {
	q := Select("e/ehr_status/is_queryable", "e/compositions/uid/value").From(Class("EHR", "e", "")).Build()

	rewritten, err := RewriteEhrPaths(q)
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT s/is_queryable, c/uid/value FROM EHR e CONTAINS (EHR_STATUS s AND COMPOSITION c)",
		rewritten.String())
}

func TestNoRewriteWithoutEhrPaths(t *testing.T) {
	q := Select("e/ehr_id/value").From(Class("EHR", "e", "", Class("COMPOSITION", "", ""))).Build()
	rewritten, err := RewriteEhrPaths(q)
	require.NoError(t, err)
	assert.Equal(t, q.String(), rewritten.String())

	q = Select("c/compositions").From(Class("COMPOSITION", "c", "")).Build()
	rewritten, err = RewriteEhrPaths(q)
	require.NoError(t, err)
	assert.Equal(t, q.String(), rewritten.String())
}
