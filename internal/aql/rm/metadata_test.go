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

package rm

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultMetadata(t *testing.T) {
	md := MustDefaultMetadata()

	assert.True(t, md.IsKnownType(Composition))
	assert.True(t, md.IsSubtypeOf("OBSERVATION", "CARE_ENTRY"))
	assert.False(t, md.IsSubtypeOf(Composition, "CARE_ENTRY"))
	assert.Contains(t, md.ConcreteTypes("CARE_ENTRY"), "OBSERVATION")
	assert.NotContains(t, md.ConcreteTypes("CARE_ENTRY"), "CARE_ENTRY")

	content, ok := md.AttributeInfo("content", Composition)
	require.True(t, ok)
	assert.True(t, content.MultipleValued)
	assert.Contains(t, content.Targets, "OBSERVATION")

	name, ok := md.AttributeInfo("name", "OBSERVATION")
	require.True(t, ok, "inherited from LOCATABLE")
	assert.False(t, name.MultipleValued)

	assert.True(t, md.IsStructureRoot(Composition))
	assert.False(t, md.IsStructureRoot("OBSERVATION"))
	assert.Contains(t, md.TypesDeclaring("events"), "HISTORY")
}

func TestArchetypeRmType(t *testing.T) {
	tests := []struct {
		id     string
		rmType string
		ok     bool
	}{
		{"openEHR-EHR-OBSERVATION.blood_pressure.v2", "OBSERVATION", true},
		{"openEHR-EHR-COMPOSITION.report.v1", "COMPOSITION", true},
		{"at0001", "", false},
		{"openEHR-EHR-.x.v1", "", false},
	}
	for _, tc := range tests {
		rmType, ok := ArchetypeRmType(tc.id)
		assert.Equal(t, tc.ok, ok, tc.id)
		assert.Equal(t, tc.rmType, rmType, tc.id)
	}

	types, ok := MustDefaultMetadata().RmTypes("openEHR-EHR-CARE_ENTRY.x.v1")
	require.True(t, ok)
	assert.Contains(t, types, "OBSERVATION")
}

func TestOrderingKey(t *testing.T) {
	md := MustDefaultMetadata()
	key, ok := md.OrderingKey("DV_QUANTITY")
	require.True(t, ok)
	assert.Equal(t, []string{"magnitude"}, key)

	key, ok = md.OrderingKey("String")
	require.True(t, ok)
	assert.Empty(t, key)

	_, ok = md.CommonOrderingKey([]string{"DV_QUANTITY", "DV_TEXT"})
	assert.False(t, ok)
	key, ok = md.CommonOrderingKey([]string{"DV_TEXT", "DV_CODED_TEXT"})
	require.True(t, ok)
	assert.Equal(t, []string{"value"}, key)

	assert.True(t, md.IsNumeric("Double"))
	assert.False(t, md.IsNumeric("String"))
}

func TestLoadMetadataErrors(t *testing.T) {
	_, err := LoadMetadata(strings.NewReader("types: {}"))
	assert.Error(t, err)

	_, err = LoadMetadata(strings.NewReader("types:\n  A: {parents: [B]}\n"))
	assert.Error(t, err)

	_, err = LoadMetadata(strings.NewReader("types:\n  A: {category: nonsense}\n"))
	assert.Error(t, err)
}

func TestKnowledgeCache(t *testing.T) {
	id := uuid.New()
	static := NewStaticKnowledgeCache(map[string]uuid.UUID{"report.en.v1": id})

	cached, err := NewCachingKnowledgeCache(static, 8)
	require.NoError(t, err)

	got, ok := cached.UUIDForTemplateID("report.en.v1")
	require.True(t, ok)
	assert.Equal(t, id, got)

	templateID, ok := cached.TemplateIDForUUID(id)
	require.True(t, ok)
	assert.Equal(t, "report.en.v1", templateID)

	_, ok = cached.UUIDForTemplateID("missing")
	assert.False(t, ok)

	_, err = NewCachingKnowledgeCache(static, 0)
	assert.Error(t, err)
}

func TestLoadTemplates(t *testing.T) {
	id := uuid.New()
	cache, err := LoadTemplates(strings.NewReader("templates:\n  report.en.v1: " + id.String() + "\n"))
	require.NoError(t, err)
	got, ok := cache.UUIDForTemplateID("report.en.v1")
	require.True(t, ok)
	assert.Equal(t, id, got)

	_, err = LoadTemplates(strings.NewReader("templates:\n  report.en.v1: not-a-uuid\n"))
	assert.Error(t, err)
}
