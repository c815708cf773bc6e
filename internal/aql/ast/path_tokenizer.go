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
	"fmt"
	"strconv"
	"strings"
)

const (
	// ArchetypeNodeIDAttribute is the attribute matched by the predicate shorthand.
	ArchetypeNodeIDAttribute = "archetype_node_id"
	// NameValuePath is the path matched by the second shorthand position.
	NameValuePath = "name/value"
)

// ParsePath tokenizes an object path such as
// `content[openEHR-EHR-OBSERVATION.bp.v1]/data[at0001]/events[at0006]/time/value`.
//
// Supported predicate forms:
//   - `[at0001]` archetype node id
//   - `[at0001, 'Systolic']` archetype node id and name/value
//   - `[name/value='x' and archetype_node_id!=$node or ...]` general comparisons
func ParsePath(path string) (*ObjectPath, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("empty path")
	}
	segments, err := splitSegments(path)
	if err != nil {
		return nil, err
	}
	nodes := make([]PathNode, 0, len(segments))
	for _, seg := range segments {
		attribute, predicates, err := splitAttribute(seg)
		if err != nil {
			return nil, fmt.Errorf("path %q: %w", path, err)
		}
		nodes = append(nodes, PathNode{Attribute: attribute, Predicates: predicates})
	}
	return &ObjectPath{Nodes: nodes}, nil
}

// ParseIdentifiedPath tokenizes `alias[predicates]/path`; the path part is optional.
func ParseIdentifiedPath(s string) (*IdentifiedPath, error) {
	segments, err := splitSegments(strings.TrimSpace(s))
	if err != nil {
		return nil, err
	}
	root, predicates, err := splitAttribute(segments[0])
	if err != nil {
		return nil, fmt.Errorf("path %q: %w", s, err)
	}
	ip := &IdentifiedPath{Root: root, RootPredicates: predicates}
	if len(segments) > 1 {
		p, err := ParsePath(strings.Join(segments[1:], "/"))
		if err != nil {
			return nil, err
		}
		ip.Path = p
	}
	return ip, nil
}

// MustParseIdentifiedPath is ParseIdentifiedPath panicking on malformed input.
func MustParseIdentifiedPath(s string) *IdentifiedPath {
	p, err := ParseIdentifiedPath(s)
	if err != nil {
		panic(err)
	}
	return p
}

// ParsePredicates tokenizes a bracketed predicate such as `[openEHR-EHR-COMPOSITION.report.v1]`.
// Brackets are optional.
func ParsePredicates(s string) (Predicates, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		s = s[1 : len(s)-1]
	}
	return parsePredicateBody(s)
}

func splitSegments(path string) ([]string, error) {
	var segments []string
	depth := 0
	var quote rune
	start := 0
	for i, r := range path {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == '[':
			depth++
		case r == ']':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced ']' in %q", path)
			}
		case r == '/' && depth == 0:
			segments = append(segments, path[start:i])
			start = i + 1
		}
	}
	if depth != 0 || quote != 0 {
		return nil, fmt.Errorf("unterminated predicate in %q", path)
	}
	segments = append(segments, path[start:])
	for _, s := range segments {
		if strings.TrimSpace(s) == "" {
			return nil, fmt.Errorf("empty segment in %q", path)
		}
	}
	return segments, nil
}

func splitAttribute(segment string) (string, Predicates, error) {
	open := strings.Index(segment, "[")
	if open < 0 {
		return strings.TrimSpace(segment), nil, nil
	}
	if !strings.HasSuffix(segment, "]") {
		return "", nil, fmt.Errorf("text after predicate in %q", segment)
	}
	predicates, err := parsePredicateBody(segment[open+1 : len(segment)-1])
	if err != nil {
		return "", nil, err
	}
	return strings.TrimSpace(segment[:open]), predicates, nil
}

func parsePredicateBody(body string) (Predicates, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("empty predicate")
	}
	if findOperator(body) < 0 {
		return parseShorthand(body)
	}
	var result Predicates
	for _, alternative := range splitKeyword(body, "or") {
		var and AndOperatorPredicate
		for _, part := range splitKeyword(alternative, "and") {
			for _, comparison := range splitKeyword(part, ",") {
				c, err := parseComparison(comparison)
				if err != nil {
					return nil, err
				}
				and.Operands = append(and.Operands, c)
			}
		}
		result = append(result, and)
	}
	return result, nil
}

func parseShorthand(body string) (Predicates, error) {
	parts := splitKeyword(body, ",")
	if len(parts) > 2 {
		return nil, fmt.Errorf("unsupported predicate %q", body)
	}
	nodePath, _ := ParsePath(ArchetypeNodeIDAttribute)
	and := AndOperatorPredicate{Operands: []ComparisonOperatorPredicate{{
		Path:     nodePath,
		Operator: OpEq,
		Value:    parseLiteral(parts[0], true),
	}}}
	if len(parts) == 2 {
		namePath, _ := ParsePath(NameValuePath)
		and.Operands = append(and.Operands, ComparisonOperatorPredicate{
			Path:     namePath,
			Operator: OpEq,
			Value:    parseLiteral(parts[1], false),
		})
	}
	return Predicates{and}, nil
}

var predicateOperators = []struct {
	token string
	op    ComparisonOperator
}{
	{"!=", OpNeq},
	{"<=", OpLtEq},
	{">=", OpGtEq},
	{"=", OpEq},
	{"<", OpLt},
	{">", OpGt},
	{" matches ", OpMatches},
}

// findOperator returns the byte offset of the first comparison operator outside quotes.
func findOperator(s string) int {
	idx, _, _ := locateOperator(s)
	return idx
}

func locateOperator(s string) (int, string, ComparisonOperator) {
	lower := strings.ToLower(s)
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		if c == '\'' || c == '"' {
			quote = c
			continue
		}
		for _, o := range predicateOperators {
			if strings.HasPrefix(lower[i:], o.token) {
				return i, o.token, o.op
			}
		}
	}
	return -1, "", OpEq
}

func parseComparison(s string) (ComparisonOperatorPredicate, error) {
	idx, token, op := locateOperator(s)
	if idx < 0 {
		return ComparisonOperatorPredicate{}, fmt.Errorf("missing operator in predicate %q", s)
	}
	path, err := ParsePath(s[:idx])
	if err != nil {
		return ComparisonOperatorPredicate{}, err
	}
	value := strings.TrimSpace(s[idx+len(token):])
	if strings.HasPrefix(value, "{") {
		return ComparisonOperatorPredicate{}, fmt.Errorf("unsupported value list in predicate %q", s)
	}
	return ComparisonOperatorPredicate{Path: path, Operator: op, Value: parseLiteral(value, false)}, nil
}

// splitKeyword splits s on a keyword outside quotes and brackets. Word keywords
// must be surrounded by whitespace, matching is case insensitive.
func splitKeyword(s string, keyword string) []string {
	lower := strings.ToLower(s)
	word := keyword != ","
	var parts []string
	var quote byte
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
			continue
		case '[':
			depth++
			continue
		case ']':
			depth--
			continue
		}
		if depth != 0 || !strings.HasPrefix(lower[i:], keyword) {
			continue
		}
		if word {
			end := i + len(keyword)
			if i == 0 || !isSpace(s[i-1]) || end >= len(s) || !isSpace(s[end]) {
				continue
			}
		}
		parts = append(parts, strings.TrimSpace(s[start:i]))
		start = i + len(keyword)
		i = start - 1
	}
	return append(parts, strings.TrimSpace(s[start:]))
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n'
}

// parseLiteral reads a predicate value. Bare words are strings when
// bareStrings is set (archetype ids are written unquoted).
func parseLiteral(s string, bareStrings bool) Operand {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		return StringValue(s[1 : len(s)-1])
	}
	if strings.HasPrefix(s, "$") {
		return &Parameter{Name: s[1:]}
	}
	if bareStrings {
		return StringValue(s)
	}
	switch strings.ToLower(s) {
	case "true":
		return BooleanValue(true)
	case "false":
		return BooleanValue(false)
	case "null":
		return NullValue()
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return IntegerValue(i)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return DoubleValue(f)
	}
	return StringValue(s)
}
