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

package extractedcolumn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehrbase/ehrbase-go-components/internal/aql/ast"
	"github.com/ehrbase/ehrbase-go-components/internal/aql/rm"
)

func registry() *Registry {
	return NewRegistry(rm.MustDefaultMetadata())
}

func TestSpecsAreIndexedByColumn(t *testing.T) {
	for i, s := range registry().All() {
		assert.Equal(t, Column(i), s.Column, s.Name)
		if s.Source != Constant {
			assert.NotEmpty(t, s.Columns, s.Name)
		}
	}
}

func TestFind(t *testing.T) {
	r := registry()
	tests := []struct {
		name   string
		types  []string
		path   string
		column Column
		ok     bool
	}{
		{"uid on composition", []string{rm.Composition}, "uid/value", VoID, true},
		{"uid on observation", []string{"OBSERVATION"}, "uid/value", 0, false},
		{"name on any locatable", []string{"OBSERVATION", "EVALUATION"}, "name/value", NameValue, true},
		{"ehr id", []string{rm.Ehr}, "ehr_id/value", EhrID, true},
		{"template id", []string{rm.Composition}, "archetype_details/template_id/value", TemplateID, true},
		{"change type code", []string{rm.OriginalVersion}, "commit_audit/change_type/defining_code/code_string", AdChangeTypeCodeString, true},
		{"change type on composition", []string{rm.Composition}, "commit_audit/change_type", 0, false},
		{"no types", nil, "name/value", 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, err := ast.ParsePath(tc.path)
			require.NoError(t, err)
			col, ok := r.Find(tc.types, p)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.column, col)
			}
		})
	}
}

func TestFindIgnoresPredicatePaths(t *testing.T) {
	p, err := ast.ParsePath("name[value='x']/value")
	require.NoError(t, err)
	_, ok := registry().Find([]string{"OBSERVATION"}, p)
	assert.False(t, ok)
}

func TestColumnClassification(t *testing.T) {
	assert.True(t, OvTimeCommitted.IsTimeColumn())
	assert.False(t, VoID.IsTimeColumn())
	assert.True(t, AdChangeTypeDV.IsChangeType())
	assert.False(t, AdCommitter.IsChangeType())
	assert.Equal(t, "VO_ID", VoID.String())
	assert.Equal(t, "UNKNOWN", Column(-1).String())
}

func TestChangeTypes(t *testing.T) {
	code, ok := ChangeTypeCode("creation")
	require.True(t, ok)
	assert.Equal(t, "249", code)

	name, ok := ChangeTypeName("666")
	require.True(t, ok)
	assert.Equal(t, "attestation", name)

	_, ok = ChangeTypeCode("nope")
	assert.False(t, ok)
	_, ok = ChangeTypeName("1")
	assert.False(t, ok)
}
