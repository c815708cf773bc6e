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

package aslsql

import (
	"testing"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehrbase/ehrbase-go-components/internal/aql/asl"
	"github.com/ehrbase/ehrbase-go-components/internal/aql/ast"
	"github.com/ehrbase/ehrbase-go-components/internal/aql/extractedcolumn"
	"github.com/ehrbase/ehrbase-go-components/internal/aql/rm"
	"github.com/ehrbase/ehrbase-go-components/internal/aql/wrapper"
	. "github.com/ehrbase/ehrbase-go-components/internal/common/testenv"
)

var templateUUID = uuid.MustParse("5c9a1fd6-7b7e-4a8e-9d3f-2a1c6e0f8b11")

func render(t *testing.T, q *ast.Query, prepared bool) *Rendered {
	t.Helper()
	md := rm.MustDefaultMetadata()
	w, err := wrapper.Normalize(q)
	require.NoError(t, err)
	root, _, err := asl.NewBuilder(md, extractedcolumn.NewRegistry(md), "local.ehrbase.org").Build(w)
	require.NoError(t, err)

	r := NewRenderer(md, rm.NewStaticKnowledgeCache(map[string]uuid.UUID{"report.en.v1": templateUUID}))
	r.Prepared = prepared
	out, err := r.Render(root)
	require.NoError(t, err)
	return out
}

func TestRenderComposition(t *testing.T) {
	out := render(t, Select("c/uid/value").From(Class("COMPOSITION", "c", "")).Limit(10).Build(), true)

	assert.Contains(t, out.SQL, `"ehr"."comp_data" AS "d"`)
	assert.Contains(t, out.SQL, `INNER JOIN "ehr"."comp_version" AS "v"`)
	assert.Contains(t, out.SQL, `"d"."vo_id" AS "sCO_c_0_vo_id"`)
	assert.Contains(t, out.SQL, `"v"."sys_version" AS "sCO_c_0_sys_version"`)
	assert.Contains(t, out.SQL, `AS "sCO_c_0"`)
	assert.Contains(t, out.SQL, `"sCO_c_0"."sCO_c_0_vo_id" AS "col_0"`)
	assert.Contains(t, out.SQL, `"sCO_c_0"."sCO_c_0_sys_version" AS "col_1"`)
	assert.Contains(t, out.SQL, "LIMIT")
	assert.NotContains(t, out.SQL, "COMPOSITION")
	assert.Contains(t, out.Args, "COMPOSITION")

	require.Len(t, out.Layout, 1)
	col := out.Layout[0]
	assert.Equal(t, "c/uid/value", col.Name)
	assert.Equal(t, KindExtracted, col.Kind)
	assert.Equal(t, []string{"col_0", "col_1"}, col.Columns)
	require.NotNil(t, col.Extracted)
	assert.Equal(t, extractedcolumn.VoID, *col.Extracted)
}

func TestRenderEhrContainment(t *testing.T) {
	out := render(t, Select("e/ehr_id/value", "c/name/value").
		From(Class("EHR", "e", "", Class("COMPOSITION", "c", "[openEHR-EHR-COMPOSITION.report.v1]"))).
		Build(), false)

	assert.Contains(t, out.SQL, `"ehr"."ehr" AS "d"`)
	assert.Contains(t, out.SQL, `"sCO_c_1"."sCO_c_1_ehr_id" = "sEHR_e_0"."sEHR_e_0_id"`)
	assert.Contains(t, out.SQL, `"d"."rm_entity" = 'COMPOSITION'`)
	assert.Contains(t, out.SQL, `"d"."entity_concept" = '.report.v1'`)
	assert.Empty(t, out.Args)

	require.Len(t, out.Layout, 2)
	assert.Equal(t, KindExtracted, out.Layout[0].Kind)
	assert.Equal(t, extractedcolumn.EhrID, *out.Layout[0].Extracted)
	assert.Equal(t, []string{"col_1"}, out.Layout[1].Columns)
}

func TestRenderVersion(t *testing.T) {
	out := render(t, Select("v/commit_audit/change_type/value", "v/commit_audit/system_id").
		From(Version("v", ast.VersionPredicateLatest, Class("COMPOSITION", "c", ""))).
		Build(), false)

	assert.Contains(t, out.SQL, `"ehr"."comp_version" AS "v"`)
	assert.Contains(t, out.SQL, `"ehr"."audit_details" AS "d"`)
	assert.Contains(t, out.SQL, "LEFT JOIN")
	assert.Contains(t, out.SQL, `"d"."num" = 0`)

	require.Len(t, out.Layout, 2)
	system := out.Layout[1]
	assert.Equal(t, KindConstant, system.Kind)
	assert.Equal(t, "local.ehrbase.org", system.Value)
	assert.Empty(t, system.Columns)
}

func TestRenderPathData(t *testing.T) {
	out := render(t, Select("c/links/meaning/value").From(Class("COMPOSITION", "c", "")).Build(), false)

	assert.Contains(t, out.SQL, "LEFT JOIN LATERAL")
	assert.Contains(t, out.SQL, "jsonb_array_elements(CASE WHEN jsonb_typeof(")
	assert.Contains(t, out.SQL, `'{"links"}'::text[]`)
	assert.Contains(t, out.SQL, `'{"meaning","value"}'::text[]`)
	assert.Equal(t, KindJSON, out.Layout[0].Kind)
}

func TestRenderWhere(t *testing.T) {
	out := render(t, Select("c/name/value").
		From(Class("COMPOSITION", "c", "")).
		Where(AllOf(
			Matches("c/archetype_details/template_id/value", ast.StringValue("report.en.v1"), ast.StringValue("unknown")),
			Cmp("c/uid/value", ast.OpEq, ast.StringValue("not-a-uuid")),
			Cmp("c/context/start_time/value", ast.OpGt, ast.StringValue("2020-01-01")),
			Like("c/name/value", "blood%"),
		)).
		Build(), false)

	assert.Contains(t, out.SQL, `"sCO_c_0"."sCO_c_0_template_id" = '`+templateUUID.String()+`'`)
	assert.Contains(t, out.SQL, "FALSE")
	assert.Contains(t, out.SQL, `'"2020-01-01"'::jsonb`)
	assert.Contains(t, out.SQL, `LIKE 'blood%'`)
}

func TestRenderArchetypeLike(t *testing.T) {
	out := render(t, Select("o/name/value").
		From(Class("COMPOSITION", "c", "", Class("OBSERVATION", "o", ""))).
		Where(Like("o/archetype_node_id", "openEHR-EHR-OBSERVATION.%")).
		Build(), false)

	assert.Contains(t, out.SQL, `(CASE WHEN "sOB_o_1"."sOB_o_1_entity_concept" LIKE '.%' `+
		`THEN 'openEHR-EHR-' || "sOB_o_1"."sOB_o_1_rm_entity" || "sOB_o_1"."sOB_o_1_entity_concept" `+
		`ELSE "sOB_o_1"."sOB_o_1_entity_concept" END) LIKE 'openEHR-EHR-OBSERVATION.%'`)
	assert.Contains(t, out.SQL, `"sOB_o_1"."sOB_o_1_num" > "sCO_c_0"."sCO_c_0_num"`)
	assert.Contains(t, out.SQL, `"sOB_o_1"."sOB_o_1_num" <= "sCO_c_0"."sCO_c_0_num_cap"`)
}

func TestRenderArchetypeLikeSkipsNodeIDs(t *testing.T) {
	out := render(t, Select("cl/name/value").
		From(Class("COMPOSITION", "c", "", Class("CLUSTER", "cl", ""))).
		Where(Like("cl/archetype_node_id", "openEHR-EHR-%")).
		Build(), false)

	assert.Contains(t, out.SQL, `CASE WHEN "sCL_cl_1"."sCL_cl_1_entity_concept" LIKE '.%'`)
	assert.Contains(t, out.SQL, `ELSE "sCL_cl_1"."sCL_cl_1_entity_concept" END) LIKE 'openEHR-EHR-%'`)
	assert.NotContains(t, out.SQL, `('openEHR-EHR-' || "sCL_cl_1"."sCL_cl_1_rm_entity"`)
}

func TestRenderStructure(t *testing.T) {
	out := render(t, Select("c/content", "o").
		From(Class("COMPOSITION", "c", "", Class("OBSERVATION", "o", ""))).
		Build(), false)

	assert.Contains(t, out.SQL, "jsonb_agg(jsonb_build_object(")
	assert.Contains(t, out.SQL, `"ch"."entity_attribute" = 'content'`)
	assert.Contains(t, out.SQL, `"s"."num" >= "sOB_o_1"."sOB_o_1_num"`)
	assert.Equal(t, KindStructure, out.Layout[0].Kind)
	assert.Equal(t, KindStructure, out.Layout[1].Kind)
}

func TestRenderOrContainment(t *testing.T) {
	out := render(t, Select("o/name/value").
		From(Class("COMPOSITION", "c", "", Or(
			Class("SECTION", "s", "", Class("OBSERVATION", "o", "")),
			Class("EVALUATION", "ev", ""),
		))).
		Build(), false)

	assert.Contains(t, out.SQL, "(SELECT * FROM")
	assert.Contains(t, out.SQL, `"sEQ_`)
	assert.Contains(t, out.SQL, "IS NOT NULL")
	assert.Contains(t, out.SQL, `"sEV_ev_`)
}

func TestRenderAndInsideOrBranch(t *testing.T) {
	out := render(t, Select("o/name/value").
		From(Class("COMPOSITION", "c", "", Or(
			And(Class("OBSERVATION", "o", ""), Class("EVALUATION", "ev", "")),
			Class("INSTRUCTION", "i", ""),
		))).
		Build(), false)

	assert.Contains(t, out.SQL, `"sEV_ev_3"."sEV_ev_3_vo_id" = "sOB_o_2"."sOB_o_2_vo_id"`)
	assert.NotContains(t, out.SQL, `AS "sEV_ev_3" ON TRUE`)
}

func TestRenderAggregates(t *testing.T) {
	out := render(t, Select(
		Aggregate(ast.AggregateCount, false, ""),
		Aggregate(ast.AggregateCount, true, "o"),
		Aggregate(ast.AggregateMin, false, "c/context/start_time"),
		"c/name/value",
		ast.StringValue("x"),
	).From(Class("COMPOSITION", "c", "", Class("OBSERVATION", "o", ""))).Build(), false)

	assert.Contains(t, out.SQL, "COUNT(*)")
	assert.Contains(t, out.SQL, `COUNT(DISTINCT((CASE WHEN "sOB_o_1"."sOB_o_1_num" IS NULL THEN NULL ELSE ROW("sOB_o_1"."sOB_o_1_vo_id", "sOB_o_1"."sOB_o_1_num") END)))`)
	assert.NotContains(t, out.SQL, `COUNT(DISTINCT("sOB_o_1"."sOB_o_1_num"))`)
	assert.Contains(t, out.SQL, "MIN(")
	assert.Contains(t, out.SQL, `GROUP BY "col_3"`)

	require.Len(t, out.Layout, 5)
	assert.Equal(t, KindValue, out.Layout[0].Kind)
	assert.False(t, out.Layout[2].Numeric)
	assert.Equal(t, KindConstant, out.Layout[4].Kind)
	assert.Equal(t, "x", out.Layout[4].Value)
}

func TestRenderOrderBy(t *testing.T) {
	out := render(t, Select("c/name/value").
		From(Class("COMPOSITION", "c", "")).
		OrderBy("c/context/start_time", ast.Descending).
		OrderBy("c/name/value", ast.Ascending).
		Offset(5).
		Limit(10).
		Build(), false)

	assert.Contains(t, out.SQL, `ORDER BY "col_1" DESC, "col_2" ASC`)
	assert.Contains(t, out.SQL, "LIMIT 10 OFFSET 5")
	require.Len(t, out.Layout, 3)
	assert.False(t, out.Layout[0].Hidden)
	assert.True(t, out.Layout[1].Hidden)
	assert.True(t, out.Layout[2].Hidden)
}

func TestCompare(t *testing.T) {
	col := goqu.I("x")
	e, err := compare(col, asl.OpEq, nil)
	require.NoError(t, err)
	assert.Equal(t, falseExpr(), e)

	e, err = compare(col, asl.OpNeq, nil)
	require.NoError(t, err)
	assert.Equal(t, trueExpr(), e)

	_, err = compare(col, asl.OpLike, []any{"a%"})
	require.NoError(t, err)
}

func TestUUIDValues(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, []any{id.String()}, uuidValues([]any{"nope", id.String(), 1}))
	assert.Empty(t, uuidValues([]any{"nope"}))
}
