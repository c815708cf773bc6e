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

import "strings"

// orderingKeys lists the attribute a data value is compared by in ORDER BY and
// aggregate functions. Types missing here cannot be ordered.
var orderingKeys = map[string][]string{
	"DV_QUANTITY":   {"magnitude"},
	"DV_COUNT":      {"magnitude"},
	"DV_ORDINAL":    {"value"},
	"DV_SCALE":      {"value"},
	"DV_DATE_TIME":  {"value"},
	"DV_DATE":       {"value"},
	"DV_TIME":       {"value"},
	"DV_DURATION":   {"value"},
	"DV_TEXT":       {"value"},
	"DV_CODED_TEXT": {"value"},
	"DV_BOOLEAN":    {"value"},
}

// numericTypes are the primitives SUM and AVG accept.
var numericTypes = map[string]bool{"Integer": true, "Long": true, "Double": true, "Real": true}

// OrderingKey returns the attribute path a value of rmType is ordered by. Primitives
// are ordered by themselves (empty path).
func (md *Metadata) OrderingKey(rmType string) ([]string, bool) {
	if md.IsPrimitive(rmType) {
		return nil, true
	}
	key, ok := orderingKeys[rmType]
	return key, ok
}

// CommonOrderingKey returns the ordering key shared by all types, false if one
// of them cannot be ordered or the keys differ.
func (md *Metadata) CommonOrderingKey(types []string) ([]string, bool) {
	if len(types) == 0 {
		return nil, false
	}
	var common []string
	for i, t := range types {
		key, ok := md.OrderingKey(t)
		if !ok {
			return nil, false
		}
		if i > 0 && strings.Join(key, "/") != strings.Join(common, "/") {
			return nil, false
		}
		common = key
	}
	return common, true
}

// IsNumeric reports whether t is a numeric primitive.
func (md *Metadata) IsNumeric(t string) bool {
	return numericTypes[t]
}
