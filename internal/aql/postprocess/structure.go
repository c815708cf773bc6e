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
	"sort"
	"strings"

	"github.com/ehrbase/ehrbase-go-components/internal/aql/rm"
	"github.com/ehrbase/ehrbase-go-components/internal/common"
)

// structureRow is one element of the JSON array produced for structure
// columns.
type structureRow struct {
	Num       int            `json:"num"`
	ParentNum *int           `json:"parent_num"`
	Attribute string         `json:"attribute"`
	Idx       *int           `json:"idx"`
	Type      string         `json:"type"`
	Data      map[string]any `json:"data"`
}

type structureNode struct {
	row      structureRow
	object   map[string]any
	children []*structureNode
}

// StructureAssembler rebuilds RM objects from their structure rows.
type StructureAssembler struct {
	md *rm.Metadata
}

// NewStructureAssembler creates an assembler reading attribute multiplicity
// from md.
func NewStructureAssembler(md *rm.Metadata) *StructureAssembler {
	return &StructureAssembler{md: md}
}

// Assemble decodes the rows of a structure cell and returns the top level
// objects, ordered by their index. Rows whose parent is part of the cell are
// attached to the parent under their attribute.
func (a *StructureAssembler) Assemble(cell any) ([]map[string]any, error) {
	var data []byte
	switch t := cell.(type) {
	case nil:
		return nil, nil
	case []byte:
		data = t
	case string:
		data = []byte(t)
	default:
		return nil, common.NewErrInternal(nil, "unexpected structure cell %T", cell)
	}
	var rows []structureRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, common.NewErrInternal(err, "decode structure rows")
	}

	nodes := make(map[int]*structureNode, len(rows))
	ordered := make([]*structureNode, 0, len(rows))
	for _, r := range rows {
		obj := make(map[string]any, len(r.Data)+1)
		for k, v := range r.Data {
			obj[k] = v
		}
		obj["_type"] = r.Type
		n := &structureNode{row: r, object: obj}
		nodes[r.Num] = n
		ordered = append(ordered, n)
	}

	var top []*structureNode
	for _, n := range ordered {
		if n.row.ParentNum != nil {
			if parent, ok := nodes[*n.row.ParentNum]; ok && parent != n {
				parent.children = append(parent.children, n)
				continue
			}
		}
		top = append(top, n)
	}
	for _, n := range ordered {
		a.attach(n)
	}
	sortByIdx(top)
	out := make([]map[string]any, len(top))
	for i, n := range top {
		out[i] = n.object
	}
	return out, nil
}

// attach places the children of n into its object. Folded attributes such as
// "data/events" create the intermediate objects.
func (a *StructureAssembler) attach(n *structureNode) {
	sortByIdx(n.children)
	for _, child := range n.children {
		attrs := strings.Split(child.row.Attribute, "/")
		target := n.object
		for _, attr := range attrs[:len(attrs)-1] {
			next, ok := target[attr].(map[string]any)
			if !ok {
				next = map[string]any{}
				target[attr] = next
			}
			target = next
		}
		last := attrs[len(attrs)-1]
		if a.multiple(n.row.Type, attrs) {
			list, _ := target[last].([]any)
			target[last] = append(list, child.object)
		} else {
			target[last] = child.object
		}
	}
}

// multiple reports whether the last of attrs, followed from rmType, is
// multiple valued.
func (a *StructureAssembler) multiple(rmType string, attrs []string) bool {
	types := []string{rmType}
	var multiple bool
	for _, attr := range attrs {
		var next []string
		found := false
		for _, t := range types {
			info, ok := a.md.AttributeInfo(attr, t)
			if !ok {
				continue
			}
			found = true
			multiple = info.MultipleValued
			next = append(next, info.Targets...)
		}
		if !found {
			multiple = false
			for _, t := range a.md.TypesDeclaring(attr) {
				if info, ok := a.md.AttributeInfo(attr, t); ok && info.MultipleValued {
					multiple = true
				}
			}
			return multiple
		}
		types = next
	}
	return multiple
}

func sortByIdx(nodes []*structureNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return idx(nodes[i]) < idx(nodes[j])
	})
}

func idx(n *structureNode) int {
	if n.row.Idx == nil {
		return -1
	}
	return *n.row.Idx
}
