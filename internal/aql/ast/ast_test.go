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

package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePathShorthand(t *testing.T) {
	p, err := ParsePath("content[openEHR-EHR-OBSERVATION.bp.v1]/data[at0001, 'History']/events")
	require.NoError(t, err)
	require.Len(t, p.Nodes, 3)

	content := p.Nodes[0]
	assert.Equal(t, "content", content.Attribute)
	require.Len(t, content.Predicates, 1)
	require.Len(t, content.Predicates[0].Operands, 1)
	node := content.Predicates[0].Operands[0]
	assert.Equal(t, ArchetypeNodeIDAttribute, node.Path.String())
	assert.Equal(t, StringValue("openEHR-EHR-OBSERVATION.bp.v1"), node.Value)

	data := p.Nodes[1]
	require.Len(t, data.Predicates[0].Operands, 2)
	assert.Equal(t, NameValuePath, data.Predicates[0].Operands[1].Path.String())
	assert.Equal(t, StringValue("History"), data.Predicates[0].Operands[1].Value)

	assert.Empty(t, p.Nodes[2].Predicates)
	assert.Equal(t, "content[openEHR-EHR-OBSERVATION.bp.v1]/data[at0001, 'History']/events", p.String())
}

func TestParsePathComparisons(t *testing.T) {
	p, err := ParsePath("items[name/value='x' and archetype_node_id!=$node or value>=3]")
	require.NoError(t, err)
	preds := p.Nodes[0].Predicates
	require.Len(t, preds, 2)
	require.Len(t, preds[0].Operands, 2)
	assert.Equal(t, OpEq, preds[0].Operands[0].Operator)
	assert.Equal(t, OpNeq, preds[0].Operands[1].Operator)
	assert.Equal(t, &Parameter{Name: "node"}, preds[0].Operands[1].Value)
	assert.Equal(t, OpGtEq, preds[1].Operands[0].Operator)
	assert.Equal(t, IntegerValue(3), preds[1].Operands[0].Value)
}

func TestParsePathErrors(t *testing.T) {
	for _, path := range []string{"", "a//b", "a[at0001", "a]b", "a[at0001]x", "a[]"} {
		_, err := ParsePath(path)
		assert.Error(t, err, path)
	}
}

func TestParseIdentifiedPath(t *testing.T) {
	p, err := ParseIdentifiedPath("o[openEHR-EHR-OBSERVATION.bp.v1]/data/events")
	require.NoError(t, err)
	assert.Equal(t, "o", p.Root)
	assert.Len(t, p.RootPredicates, 1)
	assert.Len(t, p.Path.Nodes, 2)

	bare := MustParseIdentifiedPath("c")
	assert.Nil(t, bare.Path)
	assert.Equal(t, "c", bare.String())
}

const bloodPressureQuery = `{
  "select": {
    "distinct": true,
    "statements": [
      {"columnExpression": {"@type": "IdentifiedPath", "path": "c/uid/value"}, "alias": "id"},
      {"columnExpression": {"@type": "AggregateFunction", "function": "COUNT", "path": "*"}}
    ]
  },
  "from": {
    "@type": "ContainmentVersionExpression", "identifier": "v", "predicate": "LATEST_VERSION",
    "contains": {
      "@type": "ContainmentClassExpression", "type": "COMPOSITION", "identifier": "c",
      "predicates": "[openEHR-EHR-COMPOSITION.report.v1]",
      "contains": {"@type": "ContainmentNot", "contains": {"@type": "ContainmentClassExpression", "type": "OBSERVATION", "identifier": "o"}}
    }
  },
  "where": {
    "@type": "LogicalOperatorCondition", "symbol": "OR",
    "values": [
      {"@type": "ComparisonOperatorCondition", "symbol": "GT_EQ",
       "statement": {"@type": "IdentifiedPath", "path": "c/context/start_time/value"},
       "value": {"@type": "Primitive", "kind": "TEMPORAL", "value": "2024-01-01"}},
      {"@type": "NotCondition", "condition": {"@type": "ExistsCondition", "path": "c/context"}}
    ]
  },
  "orderBy": [{"statement": "c/name/value", "direction": "DESC"}],
  "limit": 5,
  "offset": 10
}`

func TestDecodeQuery(t *testing.T) {
	q, err := DecodeQuery([]byte(bloodPressureQuery))
	require.NoError(t, err)

	assert.True(t, q.Select.Distinct)
	require.Len(t, q.Select.Statements, 2)
	assert.Equal(t, "id", q.Select.Statements[0].Alias)
	count, ok := q.Select.Statements[1].ColumnExpression.(*AggregateFunction)
	require.True(t, ok)
	assert.Nil(t, count.Path)

	v, ok := q.From.(*ContainmentVersionExpression)
	require.True(t, ok)
	assert.Equal(t, VersionPredicateLatest, v.Predicate)
	c, ok := v.Contains.(*ContainmentClassExpression)
	require.True(t, ok)
	assert.Equal(t, "COMPOSITION", c.Type)
	assert.IsType(t, &ContainmentNot{}, c.Contains)

	or, ok := q.Where.(*LogicalOperatorCondition)
	require.True(t, ok)
	assert.Equal(t, LogicalOr, or.Symbol)
	require.Len(t, q.OrderBy, 1)
	assert.Equal(t, Descending, q.OrderBy[0].Direction)
	require.NotNil(t, q.Limit)
	assert.Equal(t, int64(5), *q.Limit)
	assert.Equal(t, int64(10), *q.Offset)

	assert.Equal(t,
		"SELECT DISTINCT c/uid/value AS id, COUNT(*) FROM VERSION v[LATEST_VERSION] CONTAINS COMPOSITION c[openEHR-EHR-COMPOSITION.report.v1] NOT CONTAINS OBSERVATION o"+
			" WHERE c/context/start_time/value >= '2024-01-01' OR NOT EXISTS c/context ORDER BY c/name/value DESC LIMIT 5 OFFSET 10",
		q.String())
}

func TestDecodeQueryErrors(t *testing.T) {
	tests := map[string]string{
		"not json":         `{`,
		"missing from":     `{"select": {"statements": []}}`,
		"unknown type":     `{"from": {"@type": "Nope"}}`,
		"bad aggregate":    `{"select": {"statements": [{"columnExpression": {"@type": "AggregateFunction", "function": "MEDIAN"}}]}, "from": {"@type": "ContainmentClassExpression", "type": "EHR", "identifier": "e"}}`,
		"bad comparison":   `{"from": {"@type": "ContainmentClassExpression", "type": "EHR", "identifier": "e"}, "where": {"@type": "ComparisonOperatorCondition", "symbol": "~"}}`,
		"bad primitive":    `{"from": {"@type": "ContainmentClassExpression", "type": "EHR", "identifier": "e"}, "where": {"@type": "LikeCondition", "statement": {"@type": "IdentifiedPath", "path": "e/ehr_id/value"}, "value": {"@type": "Primitive", "kind": "BLOB"}}}`,
		"bad set operator": `{"from": {"@type": "ContainmentSetOperator", "symbol": "XOR", "values": []}}`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeQuery([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestCloneIsDeep(t *testing.T) {
	q, err := DecodeQuery([]byte(bloodPressureQuery))
	require.NoError(t, err)
	clone := q.Clone()
	require.Equal(t, q.String(), clone.String())

	clone.Select.Statements[0].ColumnExpression.(*IdentifiedPath).Root = "x"
	*clone.Limit = 1
	clone.From.(*ContainmentVersionExpression).Contains.(*ContainmentClassExpression).Type = "EHR_STATUS"

	assert.Contains(t, q.String(), "SELECT DISTINCT c/uid/value")
	assert.Contains(t, q.String(), "LIMIT 5")
	assert.Contains(t, q.String(), "CONTAINS COMPOSITION c")
}

func TestVisitPaths(t *testing.T) {
	q, err := DecodeQuery([]byte(bloodPressureQuery))
	require.NoError(t, err)
	var seen []string
	q.VisitPaths(func(p *IdentifiedPath) { seen = append(seen, p.String()) })
	assert.Contains(t, seen, "c/uid/value")
	assert.Contains(t, seen, "c/context/start_time/value")
	assert.Contains(t, seen, "c/context")
	assert.Contains(t, seen, "c/name/value")
}
