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

package postprocess

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehrbase/ehrbase-go-components/internal/aql/aslsql"
	"github.com/ehrbase/ehrbase-go-components/internal/aql/extractedcolumn"
	"github.com/ehrbase/ehrbase-go-components/internal/aql/rm"
	"github.com/ehrbase/ehrbase-go-components/internal/common"
)

var templateUUID = uuid.MustParse("0f4d7c5e-3a52-4a8b-bb0c-5f1a9c7e2d31")

func processor() *ExtractedColumnResultPostprocessor {
	return NewExtractedColumnResultPostprocessor("local.ehrbase.org",
		rm.NewStaticKnowledgeCache(map[string]uuid.UUID{"report.en.v1": templateUUID}))
}

func TestProcessExtractedColumns(t *testing.T) {
	p := processor()
	voID := uuid.New()
	committed := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name   string
		column extractedcolumn.Column
		raw    []any
		want   any
	}{
		{"archetype id", extractedcolumn.ArchetypeNodeID, []any{"OBSERVATION", ".blood_pressure.v2"}, "openEHR-EHR-OBSERVATION.blood_pressure.v2"},
		{"at code", extractedcolumn.ArchetypeNodeID, []any{"ELEMENT", "at0004"}, "at0004"},
		{"root concept", extractedcolumn.RootConcept, []any{".report.v1"}, "openEHR-EHR-COMPOSITION.report.v1"},
		{"template", extractedcolumn.TemplateID, []any{[]byte(templateUUID.String())}, "report.en.v1"},
		{"uid", extractedcolumn.VoID, []any{[]byte(voID.String()), int64(3)}, voID.String() + "::local.ehrbase.org::3"},
		{"time committed", extractedcolumn.OvTimeCommitted, []any{committed}, "2024-03-01T10:30:00.000Z"},
		{"change type code", extractedcolumn.AdChangeTypeCodeString, []any{"modification"}, "251"},
		{"description", extractedcolumn.AdDescriptionDV, []any{"note"}, map[string]any{"_type": "DV_TEXT", "value": "note"}},
		{"system id", extractedcolumn.EhrSystemIDDV, []any{"local.ehrbase.org"}, map[string]any{"_type": "HIER_OBJECT_ID", "value": "local.ehrbase.org"}},
		{"null", extractedcolumn.VoID, []any{nil, nil}, nil},
		{"committer", extractedcolumn.AdCommitter, []any{[]byte(`{"_type":"PARTY_IDENTIFIED","name":"Dr. X"}`)}, map[string]any{"_type": "PARTY_IDENTIFIED", "name": "Dr. X"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := p.Process(tc.column, tc.raw)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestProcessChangeTypeDV(t *testing.T) {
	got, err := processor().Process(extractedcolumn.AdChangeTypeDV, []any{"creation"})
	require.NoError(t, err)
	dv := got.(map[string]any)
	assert.Equal(t, "DV_CODED_TEXT", dv["_type"])
	assert.Equal(t, "creation", dv["value"])
	code := dv["defining_code"].(map[string]any)
	assert.Equal(t, "249", code["code_string"])
	assert.Equal(t, "openehr", code["terminology_id"].(map[string]any)["value"])
}

func TestProcessUnknownTemplate(t *testing.T) {
	_, err := processor().Process(extractedcolumn.TemplateID, []any{uuid.NewString()})
	require.Error(t, err)
	assert.True(t, common.IsErrInternal(err))
}

const compositionRows = `[
	{"num": 0, "parent_num": null, "attribute": null, "idx": null, "type": "COMPOSITION", "data": {"name": {"value": "report"}}},
	{"num": 1, "parent_num": 0, "attribute": "context", "idx": null, "type": "EVENT_CONTEXT", "data": {"start_time": {"value": "2024-01-01"}}},
	{"num": 2, "parent_num": 0, "attribute": "content", "idx": 1, "type": "OBSERVATION", "data": {"archetype_node_id": "b"}},
	{"num": 3, "parent_num": 0, "attribute": "content", "idx": 0, "type": "OBSERVATION", "data": {"archetype_node_id": "a"}},
	{"num": 4, "parent_num": 3, "attribute": "data", "idx": null, "type": "HISTORY", "data": {}},
	{"num": 5, "parent_num": 4, "attribute": "events", "idx": 0, "type": "POINT_EVENT", "data": {}}
]`

func TestAssembleStructure(t *testing.T) {
	objects, err := NewStructureAssembler(rm.MustDefaultMetadata()).Assemble([]byte(compositionRows))
	require.NoError(t, err)
	require.Len(t, objects, 1)

	c := objects[0]
	assert.Equal(t, "COMPOSITION", c["_type"])
	assert.Equal(t, "EVENT_CONTEXT", c["context"].(map[string]any)["_type"])

	content, ok := c["content"].([]any)
	require.True(t, ok)
	require.Len(t, content, 2)
	first := content[0].(map[string]any)
	assert.Equal(t, "a", first["archetype_node_id"])
	assert.Equal(t, "b", content[1].(map[string]any)["archetype_node_id"])

	history := first["data"].(map[string]any)
	events, ok := history["events"].([]any)
	require.True(t, ok)
	assert.Len(t, events, 1)
}

func TestAssembleFoldedAttribute(t *testing.T) {
	rows := `[
		{"num": 0, "parent_num": null, "type": "COMPOSITION", "data": {}},
		{"num": 1, "parent_num": 0, "attribute": "context/other_context", "type": "ITEM_TREE", "data": {}}
	]`
	objects, err := NewStructureAssembler(rm.MustDefaultMetadata()).Assemble(rows)
	require.NoError(t, err)
	require.Len(t, objects, 1)
	ctx := objects[0]["context"].(map[string]any)
	assert.Equal(t, "ITEM_TREE", ctx["other_context"].(map[string]any)["_type"])
}

func TestAssembleNull(t *testing.T) {
	objects, err := NewStructureAssembler(rm.MustDefaultMetadata()).Assemble(nil)
	require.NoError(t, err)
	assert.Nil(t, objects)
}

func TestRowMapper(t *testing.T) {
	voID := extractedcolumn.VoID
	system := extractedcolumn.EhrSystemID
	layout := []aslsql.ColumnLayout{
		{Name: "uid", Kind: aslsql.KindExtracted, Columns: []string{"col_0", "col_1"}, Extracted: &voID},
		{Name: "magnitude", Kind: aslsql.KindJSON, Columns: []string{"col_2"}},
		{Name: "avg", Kind: aslsql.KindValue, Columns: []string{"col_3"}, Numeric: true},
		{Name: "system", Kind: aslsql.KindConstant, Value: "local.ehrbase.org", Extracted: &system},
		{Name: "content", Kind: aslsql.KindStructure, Columns: []string{"col_4"}, Multiple: true},
		{Name: "order", Kind: aslsql.KindValue, Columns: []string{"col_5"}, Hidden: true},
	}
	m := NewRowMapper(layout, processor(), rm.MustDefaultMetadata())
	assert.Equal(t, 6, m.Width())
	assert.Equal(t, []string{"uid", "magnitude", "avg", "system", "content"}, m.Columns())

	id := uuid.New()
	row, err := m.Map([]any{[]byte(id.String()), int64(1), []byte("120.5"), []byte("12.25"), nil, "x"})
	require.NoError(t, err)
	require.Len(t, row, 5)
	assert.Equal(t, id.String()+"::local.ehrbase.org::1", row[0])
	assert.Equal(t, 120.5, row[1])
	assert.Equal(t, 12.25, row[2])
	assert.Equal(t, "local.ehrbase.org", row[3])
	assert.Equal(t, []any{}, row[4])

	_, err = m.Map([]any{1})
	assert.True(t, common.IsErrInternal(err))
}
