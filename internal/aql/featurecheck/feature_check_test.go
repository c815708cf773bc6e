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
	"testing"

	"github.com/ehrbase/ehrbase-go-components/internal/aql/ast"
	"github.com/ehrbase/ehrbase-go-components/internal/aql/extractedcolumn"
	"github.com/ehrbase/ehrbase-go-components/internal/aql/rm"
	"github.com/ehrbase/ehrbase-go-components/internal/aql/wrapper"
	"github.com/ehrbase/ehrbase-go-components/internal/common"
	. "github.com/ehrbase/ehrbase-go-components/internal/common/testenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func check(t *testing.T, q *ast.Query) error {
	t.Helper()
	md := rm.MustDefaultMetadata()
	w, err := wrapper.Normalize(q)
	require.NoError(t, err)
	return NewChecker(md, extractedcolumn.NewRegistry(md)).EnsureSupported(w)
}

func assertIllegal(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, common.IsErrIllegalAql(err), "expected IllegalAql, got %v", err)
}

func assertNotImplemented(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, common.IsErrFeatureNotImplemented(err), "expected FeatureNotImplemented, got %v", err)
}

func TestScenarios(t *testing.T) {
	assert.NoError(t, check(t, Select("c/uid/value").From(Class("COMPOSITION", "c", "")).Build()))
	assert.NoError(t, check(t, Select("e/ehr_id/value").From(Class("EHR", "e", "", Class("COMPOSITION", "", ""))).Build()))

	err := check(t, Select("e").From(Class("EHR", "e", "")).Build())
	assertNotImplemented(t, err)
	assert.Contains(t, err.Error(), "selecting the full EHR object")

	err = check(t, Select("c").From(Class("COMPOSITION", "c", "")).Where(Like("c/name/value", "hello%")).Build())
	assertNotImplemented(t, err)

	assert.NoError(t, check(t, Select("e/ehr_status").As("s").From(Class("EHR", "e", "")).Build()))
	assert.NoError(t, check(t,
		Select("s/uid/value", "e/ehr_status/subject/external_ref/id").
			From(Class("EHR", "e", "", Class("COMPOSITION", "s", ""))).
			Where(Cmp("e/ehr_status/is_modifiable", ast.OpEq, ast.BooleanValue(true))).
			Build()))
}

func TestFolderContainment(t *testing.T) {
	err := check(t, Select("o/name/value").From(Class("FOLDER", "f", "", Class("OBSERVATION", "o", ""))).Build())
	require.Error(t, err)
	assert.True(t, common.IsErrFeatureNotImplemented(err) || common.IsErrIllegalAql(err))

	assert.NoError(t, check(t, Select("f2/name/value").From(Class("FOLDER", "f", "", Class("FOLDER", "f2", ""))).Build()))
	assert.NoError(t, check(t, Select("c/uid/value").From(Class("FOLDER", "f", "", Class("COMPOSITION", "c", ""))).Build()))
}

func TestVersionNesting(t *testing.T) {
	err := check(t, Select("c/uid/value").
		From(Version("v", ast.VersionPredicateLatest, Version("v2", ast.VersionPredicateNone, Class("COMPOSITION", "c", "")))).
		Build())
	assertIllegal(t, err)

	for _, set := range []ast.Containment{
		And(Class("COMPOSITION", "c", ""), Class("EHR_STATUS", "s", "")),
		Or(Class("COMPOSITION", "c", ""), Class("EHR_STATUS", "s", "")),
	} {
		err := check(t, Select("v/uid/value").From(Version("v", ast.VersionPredicateNone, set)).Build())
		assertNotImplemented(t, err)
	}

	err = check(t, Select("v/commit_audit/time_committed").From(Version("v", ast.VersionPredicateAll, Class("COMPOSITION", "c", ""))).Build())
	assertNotImplemented(t, err)

	err = check(t, Select("v/uid/value").From(Version("v", ast.VersionPredicateNone, Class("OBSERVATION", "o", ""))).Build())
	assertNotImplemented(t, err)

	assert.NoError(t, check(t, Select("v/commit_audit/time_committed", "c/uid/value").
		From(Class("EHR", "e", "", Version("v", ast.VersionPredicateLatest, Class("COMPOSITION", "c", "")))).
		Build()))
}

func TestFromRules(t *testing.T) {
	err := check(t, Select("c").From(Class("COMPOSITION", "c", "", NotContains(Class("OBSERVATION", "o", "")))).Build())
	assertNotImplemented(t, err)

	err = check(t, Select("c").From(Class("COMPOSITION", "c", "", Class("EHR", "e", ""))).Build())
	assertIllegal(t, err)

	err = check(t, Select("x").From(Class("NO_SUCH_TYPE", "x", "")).Build())
	assertIllegal(t, err)

	err = check(t, Select("d").From(Class("COMPOSITION", "c", "", Class("DV_TEXT", "d", ""))).Build())
	assertIllegal(t, err)

	err = check(t, Select("o").From(Class("OBSERVATION", "o", "[openEHR-EHR-EVALUATION.x.v1]")).Build())
	assertIllegal(t, err)

	err = check(t, Select("i").From(Class("EHR", "e", "", Class("CLUSTER", "i", ""))).Build())
	assertIllegal(t, err)
	assert.Contains(t, err.Error(), "ambiguous structure target")

	err = check(t, Select("o").From(Class("EHR_STATUS", "s", "", Class("OBSERVATION", "o", ""))).Build())
	assertIllegal(t, err)

	assert.NoError(t, check(t, Select("cl/name/value").
		From(Class("EHR", "e", "", Class("COMPOSITION", "c", "", And(
			Class("OBSERVATION", "o", "[openEHR-EHR-OBSERVATION.bp.v2]"),
			Class("CLUSTER", "cl", ""),
		)))).
		Build()))
}

func TestSelectRules(t *testing.T) {
	assertNotImplemented(t, check(t, Select("v").
		From(Version("v", ast.VersionPredicateNone, Class("COMPOSITION", "c", ""))).Build()))

	assertNotImplemented(t, check(t, Select("c[name/value='x']/uid/value").From(Class("COMPOSITION", "c", "")).Build()))

	assertNotImplemented(t, check(t, Select("e/time_created/value", "e/contributions").From(Class("EHR", "e", "")).Build()))

	assertNotImplemented(t, check(t, Select("c/content[archetype_node_id='openEHR-EHR-OBSERVATION.bp.v2' and uid/value='x']").
		From(Class("COMPOSITION", "c", "")).Build()))

	assertIllegal(t, check(t, Select("c/content[$id]").From(Class("COMPOSITION", "c", "")).Build()))

	assertIllegal(t, check(t, Select("c/no_such_attribute").From(Class("COMPOSITION", "c", "")).Build()))

	assertIllegal(t, check(t, Select("c/context/events").From(Class("COMPOSITION", "c", "")).Build()))

	assert.NoError(t, check(t, Select("o/data[at0001]/events[at0006]/data[at0003]/items[at0004]/value/magnitude", ast.StringValue("x")).
		From(Class("COMPOSITION", "c", "", Class("OBSERVATION", "o", ""))).Build()))
}

func TestAggregates(t *testing.T) {
	q := func(agg *ast.AggregateFunction) *ast.Query {
		return Select(agg).From(Class("EHR", "e", "", Version("v", ast.VersionPredicateLatest, Class("COMPOSITION", "c", "", Class("OBSERVATION", "o", ""))))).Build()
	}
	assert.NoError(t, check(t, q(Aggregate(ast.AggregateCount, false, ""))))
	assert.NoError(t, check(t, q(Aggregate(ast.AggregateCount, true, "c/uid/value"))))
	assert.NoError(t, check(t, q(Aggregate(ast.AggregateCount, false, "o"))))
	assert.NoError(t, check(t, q(Aggregate(ast.AggregateCount, false, "v/commit_audit/time_committed"))))
	assert.NoError(t, check(t, q(Aggregate(ast.AggregateMax, false, "o/data/events/data/items/value/magnitude"))))
	assert.NoError(t, check(t, q(Aggregate(ast.AggregateMin, false, "c/context/start_time"))))

	assertIllegal(t, check(t, q(Aggregate(ast.AggregateCount, true, ""))))
	assertIllegal(t, check(t, q(Aggregate(ast.AggregateMax, false, ""))))
	assertNotImplemented(t, check(t, q(Aggregate(ast.AggregateAvg, false, "v/commit_audit/time_committed"))))
	assertNotImplemented(t, check(t, q(Aggregate(ast.AggregateMax, false, "o"))))
	assertNotImplemented(t, check(t, q(Aggregate(ast.AggregateSum, false, "c/context/start_time"))))
	assertNotImplemented(t, check(t, q(Aggregate(ast.AggregateMax, false, "c/composer"))))
}

func TestWhereRules(t *testing.T) {
	q := func(cond ast.WhereCondition) *ast.Query {
		return Select("c/uid/value").From(Class("EHR", "e", "", Version("v", ast.VersionPredicateLatest, Class("COMPOSITION", "c", "", Class("OBSERVATION", "o", ""))))).Where(cond).Build()
	}
	ok := []ast.WhereCondition{
		Cmp("c/archetype_node_id", ast.OpEq, ast.StringValue("openEHR-EHR-COMPOSITION.report.v1")),
		Like("c/archetype_node_id", "openEHR-EHR-COMPOSITION.%"),
		Matches("c/archetype_details/template_id/value", ast.StringValue("a"), ast.StringValue("b")),
		Cmp("v/commit_audit/change_type/defining_code/code_string", ast.OpNeq, ast.StringValue("523")),
		Cmp("c/name/value", ast.OpGt, ast.StringValue("m")),
		Cmp("e/ehr_id/value", ast.OpEq, ast.StringValue("6f3a4a8d-1b3c-4e76-9d33-2a3b1a9c0c11")),
		AllOf(
			Cmp("o/data/events/data/items/value/magnitude", ast.OpGtEq, ast.IntegerValue(3)),
			Not(Cmp("o/data/events/data/items/value/units", ast.OpEq, ast.StringValue("mm[Hg]"))),
		),
		AnyOf(
			Cmp("c/context/start_time/value", ast.OpLt, ast.TemporalValue("2024-01-01T00:00:00Z")),
			Cmp("c/context/location", ast.OpEq, ast.NullValue()),
		),
		Like("c/context/location", "ward%"),
	}
	for _, cond := range ok {
		assert.NoError(t, check(t, q(cond)), ast.RenderCondition(cond))
	}

	notImplemented := []ast.WhereCondition{
		Exists("c/context"),
		Cmp("c/archetype_node_id", ast.OpGt, ast.StringValue("a")),
		Like("c/archetype_node_id", "%OBSERVATION%"),
		Cmp("c/archetype_details/template_id/value", ast.OpLt, ast.StringValue("a")),
		Like("c/uid/value", "abc%"),
		Cmp("v/commit_audit/time_committed/value", ast.OpGt, ast.TemporalValue("2024-01-01")),
		Like("v/commit_audit/change_type/value", "crea%"),
		Cmp("c/name/value", ast.OpEq, P("o/name/value")),
		Cmp("o", ast.OpEq, ast.StringValue("x")),
		Cmp("c/context", ast.OpEq, ast.StringValue("x")),
		Cmp("c/composer", ast.OpEq, ast.StringValue("x")),
		Like("o/data/events/data/items/value/value", "x%"),
		&ast.ComparisonOperatorCondition{Statement: ast.IntegerValue(1), Symbol: ast.OpEq, Value: ast.IntegerValue(1)},
	}
	for _, cond := range notImplemented {
		assertNotImplemented(t, check(t, q(cond)))
	}

	illegal := []ast.WhereCondition{
		Cmp("c/name/value", ast.OpEq, &ast.Parameter{Name: "name"}),
		Cmp("o/data/events/data/items/value/magnitude", ast.OpEq, ast.BooleanValue(true)),
		Cmp("c/context/location", ast.OpLt, ast.NullValue()),
		&ast.LikeCondition{Statement: P("c/context/location"), Value: ast.IntegerValue(1)},
		&ast.ComparisonOperatorCondition{Statement: Aggregate(ast.AggregateCount, false, ""), Symbol: ast.OpGt, Value: ast.IntegerValue(1)},
	}
	for _, cond := range illegal {
		assertIllegal(t, check(t, q(cond)))
	}
}

func TestOrderByRules(t *testing.T) {
	base := func() *QueryBuilder {
		return Select("c/name/value", "o/data/events/data/items/value/magnitude").
			From(Class("EHR", "e", "", Version("v", ast.VersionPredicateLatest, Class("COMPOSITION", "c", "", Class("OBSERVATION", "o", "")))))
	}
	assert.NoError(t, check(t, base().OrderBy("c/name/value", ast.Descending).OrderBy("v/commit_audit/time_committed", ast.Ascending).Build()))
	assert.NoError(t, check(t, base().OrderBy("o/data/events/data/items/value/magnitude", ast.Ascending).Build()))
	assert.NoError(t, check(t, base().Distinct().OrderBy("c/name/value", ast.Ascending).Build()))

	assertNotImplemented(t, check(t, base().OrderBy("c", ast.Ascending).Build()))
	assertNotImplemented(t, check(t, base().Distinct().OrderBy("c/uid/value", ast.Ascending).Build()))
	assertNotImplemented(t, check(t, base().OrderBy("v/commit_audit/committer", ast.Ascending).Build()))
	assertNotImplemented(t, check(t, base().OrderBy("o/data/events", ast.Ascending).Build()))
	assertNotImplemented(t, check(t, base().OrderBy("c/composer", ast.Ascending).Build()))
}

func TestLimitOffset(t *testing.T) {
	q := Select("c/uid/value").From(Class("COMPOSITION", "c", "")).Limit(10).Offset(5).Build()
	assert.NoError(t, check(t, q))

	q = Select("c/uid/value").From(Class("COMPOSITION", "c", "")).Limit(-1).Build()
	assertIllegal(t, check(t, q))
}
