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

package cohesion

import (
	"testing"

	"github.com/ehrbase/ehrbase-go-components/internal/aql/ast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSharedPrefixes(t *testing.T) {
	systolic := ast.MustParseIdentifiedPath("o/data[at0001]/events[at0006]/data[at0003]/items[at0004]/value/magnitude")
	diastolic := ast.MustParseIdentifiedPath("o/data[at0001]/events[at0006]/data[at0003]/items[at0005]/value/magnitude")
	time := ast.MustParseIdentifiedPath("o/data[at0001]/events[at0006]/time/value")
	other := ast.MustParseIdentifiedPath("o/data[at0001]/events[at0007]/time/value")
	bare := ast.MustParseIdentifiedPath("o")

	root := Build([]*ast.IdentifiedPath{systolic, diastolic, time, other, bare, bare})

	require.Len(t, root.Children, 1)
	assert.Equal(t, []*ast.IdentifiedPath{bare}, root.Paths)

	data := root.Child("data[at0001]")
	require.NotNil(t, data)
	require.Len(t, data.Children, 2)
	assert.Equal(t, "events[at0006]", data.Children[0].Key())
	assert.Equal(t, "events[at0007]", data.Children[1].Key())

	events := data.Children[0]
	assert.Len(t, events.Children, 2, "data[at0003] and time")

	leaf := root.Find(systolic.Path)
	require.NotNil(t, leaf)
	assert.Equal(t, []*ast.IdentifiedPath{systolic}, leaf.Paths)
	assert.Equal(t, "data[at0001]/events[at0006]/data[at0003]/items[at0004]/value/magnitude", leaf.String())
	assert.Len(t, leaf.Prefix(), 6)
}

func TestFindMissingAndWalkOrder(t *testing.T) {
	root := Build([]*ast.IdentifiedPath{
		ast.MustParseIdentifiedPath("c/name/value"),
		ast.MustParseIdentifiedPath("c/uid/value"),
	})
	missing, err := ast.ParsePath("content/name")
	require.NoError(t, err)
	assert.Nil(t, root.Find(missing))

	var visited []string
	root.Walk(func(n *Node) { visited = append(visited, n.String()) })
	assert.Equal(t, []string{"", "name", "name/value", "uid", "uid/value"}, visited)
}
