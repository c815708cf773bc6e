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

// Package postprocess turns raw SQL result rows of compiled AQL queries back
// into AQL values: extracted columns are reassembled from their physical
// columns, JSON cells decoded and structure rows rebuilt into RM objects.
package postprocess

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/ehrbase/ehrbase-go-components/internal/aql/extractedcolumn"
	"github.com/ehrbase/ehrbase-go-components/internal/aql/rm"
	"github.com/ehrbase/ehrbase-go-components/internal/common"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	archetypePrefix    = "openEHR-EHR-"
	openEHRTerminology = "openehr"
)

// ExtractedColumnResultPostprocessor rebuilds the AQL value of extracted
// columns.
type ExtractedColumnResultPostprocessor struct {
	SystemID  string
	Knowledge rm.KnowledgeCache
}

// NewExtractedColumnResultPostprocessor creates a postprocessor. knowledge may
// be nil when no template ids are selected.
func NewExtractedColumnResultPostprocessor(systemID string, knowledge rm.KnowledgeCache) *ExtractedColumnResultPostprocessor {
	return &ExtractedColumnResultPostprocessor{SystemID: systemID, Knowledge: knowledge}
}

// Process rebuilds the value of col from its physical column values, given in
// the order of the column spec. Constant columns receive their constant.
//
// Returns nil when the stored value is NULL, e.g. for rows of an unmatched OR
// branch.
func (p *ExtractedColumnResultPostprocessor) Process(col extractedcolumn.Column, raw []any) (any, error) {
	if len(raw) == 0 || raw[0] == nil {
		return nil, nil
	}
	switch col {
	case extractedcolumn.ArchetypeNodeID:
		if len(raw) < 2 {
			return nil, common.NewErrInternal(nil, "%s needs 2 values, got %d", col, len(raw))
		}
		rmType, concept := text(raw[0]), text(raw[1])
		if !strings.HasPrefix(concept, ".") {
			return concept, nil
		}
		return archetypePrefix + rmType + concept, nil
	case extractedcolumn.RootConcept:
		return archetypePrefix + rm.Composition + text(raw[0]), nil
	case extractedcolumn.TemplateID:
		id, err := uuid.Parse(text(raw[0]))
		if err != nil {
			return nil, common.NewErrInternal(err, "invalid template uuid %v", raw[0])
		}
		if p.Knowledge == nil {
			return nil, common.NewErrInternal(nil, "no knowledge cache to resolve template %s", id)
		}
		templateID, ok := p.Knowledge.TemplateIDForUUID(id)
		if !ok {
			return nil, common.NewErrInternal(nil, "unknown template %s", id)
		}
		return templateID, nil
	case extractedcolumn.VoID:
		if len(raw) < 2 {
			return nil, common.NewErrInternal(nil, "%s needs 2 values, got %d", col, len(raw))
		}
		return fmt.Sprintf("%s::%s::%s", text(raw[0]), p.SystemID, text(raw[1])), nil
	case extractedcolumn.EhrTimeCreatedDV, extractedcolumn.OvTimeCommittedDV:
		return map[string]any{"_type": "DV_DATE_TIME", "value": timestamp(raw[0])}, nil
	case extractedcolumn.EhrTimeCreated, extractedcolumn.OvTimeCommitted:
		return timestamp(raw[0]), nil
	case extractedcolumn.EhrSystemIDDV:
		return map[string]any{"_type": "HIER_OBJECT_ID", "value": text(raw[0])}, nil
	case extractedcolumn.AdDescriptionDV:
		return map[string]any{"_type": "DV_TEXT", "value": text(raw[0])}, nil
	case extractedcolumn.AdChangeTypeDV:
		name := text(raw[0])
		code, _ := extractedcolumn.ChangeTypeCode(name)
		return map[string]any{
			"_type": "DV_CODED_TEXT",
			"value": name,
			"defining_code": map[string]any{
				"_type":          "CODE_PHRASE",
				"terminology_id": map[string]any{"_type": "TERMINOLOGY_ID", "value": openEHRTerminology},
				"code_string":    code,
			},
		}, nil
	case extractedcolumn.AdChangeTypeCodeString:
		code, ok := extractedcolumn.ChangeTypeCode(text(raw[0]))
		if !ok {
			return nil, common.NewErrInternal(nil, "unknown change type %v", raw[0])
		}
		return code, nil
	case extractedcolumn.AdCommitter:
		return decodeJSON(raw[0])
	default:
		return text(raw[0]), nil
	}
}

// text converts a driver value to its string form.
func text(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case time.Time:
		return timestamp(t)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}

func timestamp(v any) string {
	if t, ok := v.(time.Time); ok {
		return t.Format("2006-01-02T15:04:05.000Z07:00")
	}
	return text(v)
}

// decodeJSON decodes a jsonb cell.
func decodeJSON(v any) (any, error) {
	var data []byte
	switch t := v.(type) {
	case nil:
		return nil, nil
	case []byte:
		data = t
	case string:
		data = []byte(t)
	default:
		return v, nil
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, common.NewErrInternal(err, "decode JSON cell")
	}
	return out, nil
}
