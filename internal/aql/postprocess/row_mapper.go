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
	"strconv"

	"github.com/ehrbase/ehrbase-go-components/internal/aql/aslsql"
	"github.com/ehrbase/ehrbase-go-components/internal/aql/rm"
	"github.com/ehrbase/ehrbase-go-components/internal/common"
)

// RowMapper maps SQL rows of a rendered query to AQL result rows.
type RowMapper struct {
	layout    []aslsql.ColumnLayout
	extracted *ExtractedColumnResultPostprocessor
	assembler *StructureAssembler
	width     int
}

// NewRowMapper creates a mapper for the column layout of a rendered query.
func NewRowMapper(layout []aslsql.ColumnLayout, extracted *ExtractedColumnResultPostprocessor, md *rm.Metadata) *RowMapper {
	width := 0
	for _, col := range layout {
		width += len(col.Columns)
	}
	return &RowMapper{layout: layout, extracted: extracted, assembler: NewStructureAssembler(md), width: width}
}

// Width is the number of SQL columns of a row.
func (m *RowMapper) Width() int {
	return m.width
}

// Columns lists the names of the AQL result columns.
func (m *RowMapper) Columns() []string {
	var names []string
	for _, col := range m.layout {
		if !col.Hidden {
			names = append(names, col.Name)
		}
	}
	return names
}

// Map converts one SQL row. Hidden ORDER BY columns are dropped.
func (m *RowMapper) Map(raw []any) ([]any, error) {
	if len(raw) != m.width {
		return nil, common.NewErrInternal(nil, "row has %d columns, expected %d", len(raw), m.width)
	}
	out := make([]any, 0, len(m.layout))
	pos := 0
	for _, col := range m.layout {
		values := raw[pos : pos+len(col.Columns)]
		pos += len(col.Columns)
		if col.Hidden {
			continue
		}
		v, err := m.value(col, values)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (m *RowMapper) value(col aslsql.ColumnLayout, values []any) (any, error) {
	switch col.Kind {
	case aslsql.KindConstant:
		if col.Extracted != nil {
			return m.extracted.Process(*col.Extracted, []any{col.Value})
		}
		return col.Value, nil
	case aslsql.KindExtracted:
		return m.extracted.Process(*col.Extracted, values)
	case aslsql.KindJSON:
		return decodeJSON(values[0])
	case aslsql.KindStructure:
		objects, err := m.assembler.Assemble(values[0])
		if err != nil {
			return nil, err
		}
		if col.Multiple {
			list := make([]any, len(objects))
			for i, o := range objects {
				list[i] = o
			}
			return list, nil
		}
		if len(objects) == 0 {
			return nil, nil
		}
		return objects[0], nil
	default:
		v := values[0]
		if b, ok := v.([]byte); ok {
			if col.Numeric {
				f, err := strconv.ParseFloat(string(b), 64)
				if err != nil {
					return nil, common.NewErrInternal(err, "parse numeric %q", b)
				}
				return f, nil
			}
			return string(b), nil
		}
		return v, nil
	}
}
