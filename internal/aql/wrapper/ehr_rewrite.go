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

package wrapper

import (
	"strconv"

	"github.com/ehrbase/ehrbase-go-components/internal/aql/ast"
	"github.com/ehrbase/ehrbase-go-components/internal/aql/rm"
)

const (
	ehrStatusAttribute    = "ehr_status"
	compositionsAttribute = "compositions"
)

type ehrPathGroup struct {
	key   string
	node  ast.PathNode
	paths []*ast.IdentifiedPath
}

// RewriteEhrPaths replaces `e/ehr_status…` and `e/compositions…` paths of an EHR
// rooted query by paths into synthetic EHR_STATUS and COMPOSITION containments.
//
// Paths are grouped by their first node (attribute and predicates). Each group gets
// a new containment carrying the predicates of that node, named with the first free
// alias of s, s1, s2… (EHR_STATUS) or c, c1, c2… (COMPOSITION). The containments are
// AND-ed in front of whatever the EHR already contains.
//
//	SELECT e/ehr_status AS s FROM EHR e
//	-> SELECT s AS s FROM EHR e CONTAINS EHR_STATUS s
//
// The input is not modified; without EHR relative paths a plain copy is returned.
func RewriteEhrPaths(query *ast.Query) (*ast.Query, error) {
	q := query.Clone()
	ehr, ok := q.From.(*ast.ContainmentClassExpression)
	if !ok || ehr.Type != rm.Ehr || ehr.Identifier == "" {
		return q, nil
	}

	var groups []*ehrPathGroup
	byKey := map[string]*ehrPathGroup{}
	q.VisitPaths(func(p *ast.IdentifiedPath) {
		if p.Root != ehr.Identifier || p.Path == nil || len(p.Path.Nodes) == 0 {
			return
		}
		first := p.Path.Nodes[0]
		if first.Attribute != ehrStatusAttribute && first.Attribute != compositionsAttribute {
			return
		}
		key := first.String()
		g, ok := byKey[key]
		if !ok {
			g = &ehrPathGroup{key: key, node: first}
			byKey[key] = g
			groups = append(groups, g)
		}
		g.paths = append(g.paths, p)
	})
	if len(groups) == 0 {
		return q, nil
	}

	used := identifiers(q.From)
	var added []ast.Containment
	for _, g := range groups {
		rmType, prefix := g.kind()
		alias := freeAlias(prefix, used)
		used[alias] = struct{}{}
		added = append(added, &ast.ContainmentClassExpression{
			Type:       rmType,
			Identifier: alias,
			Predicates: g.node.Predicates.Clone(),
		})
		for _, p := range g.paths {
			p.Root = alias
			p.RootPredicates = nil
			if len(p.Path.Nodes) == 1 {
				p.Path = nil
			} else {
				p.Path = &ast.ObjectPath{Nodes: p.Path.Nodes[1:]}
			}
		}
	}

	switch existing := ehr.Contains.(type) {
	case nil:
		if len(added) == 1 {
			ehr.Contains = added[0]
		} else {
			ehr.Contains = &ast.ContainmentSetOperator{Symbol: ast.SetOperatorAnd, Values: added}
		}
	case *ast.ContainmentSetOperator:
		if existing.Symbol == ast.SetOperatorAnd {
			existing.Values = append(added, existing.Values...)
		} else {
			ehr.Contains = &ast.ContainmentSetOperator{Symbol: ast.SetOperatorAnd, Values: append(added, existing)}
		}
	default:
		ehr.Contains = &ast.ContainmentSetOperator{Symbol: ast.SetOperatorAnd, Values: append(added, existing)}
	}
	return q, nil
}

// kind returns the containment type and alias prefix of the group. The group
// key holds the attribute, so all paths of a group share it.
func (g *ehrPathGroup) kind() (string, string) {
	if g.node.Attribute == ehrStatusAttribute {
		return rm.EhrStatus, "s"
	}
	return rm.Composition, "c"
}

func freeAlias(prefix string, used map[string]struct{}) string {
	if _, taken := used[prefix]; !taken {
		return prefix
	}
	for i := 1; ; i++ {
		alias := prefix + strconv.Itoa(i)
		if _, taken := used[alias]; !taken {
			return alias
		}
	}
}

func identifiers(c ast.Containment) map[string]struct{} {
	ids := map[string]struct{}{}
	var visit func(ast.Containment)
	visit = func(c ast.Containment) {
		switch t := c.(type) {
		case *ast.ContainmentClassExpression:
			if t.Identifier != "" {
				ids[t.Identifier] = struct{}{}
			}
			visit(t.Contains)
		case *ast.ContainmentVersionExpression:
			if t.Identifier != "" {
				ids[t.Identifier] = struct{}{}
			}
			visit(t.Contains)
		case *ast.ContainmentSetOperator:
			for _, v := range t.Values {
				visit(v)
			}
		case *ast.ContainmentNot:
			visit(t.Contains)
		}
	}
	visit(c)
	return ids
}
