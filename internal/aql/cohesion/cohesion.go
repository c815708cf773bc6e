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

// Package cohesion groups the paths of one containment into a prefix tree.
//
// Two paths share a tree node as long as their attributes and predicates agree,
// so path lowering creates one join per shared prefix instead of one per path.
package cohesion

import (
	"strings"

	"github.com/ehrbase/ehrbase-go-components/internal/aql/ast"
)

// Node is a path position shared by one or more paths.
type Node struct {
	Attribute ast.PathNode // zero value for the root
	Parent    *Node
	Children  []*Node
	// Paths lists the paths ending at this node, in insertion order.
	Paths []*ast.IdentifiedPath
	index map[string]*Node
}

// NewRoot returns an empty tree.
func NewRoot() *Node {
	return &Node{index: map[string]*Node{}}
}

// Build adds every path to a new tree.
func Build(paths []*ast.IdentifiedPath) *Node {
	root := NewRoot()
	for _, p := range paths {
		root.Add(p)
	}
	return root
}

// IsRoot reports whether n is the containment itself.
func (n *Node) IsRoot() bool {
	return n.Parent == nil
}

// Key identifies a child below its parent: attribute plus rendered predicates.
func (n *Node) Key() string {
	return n.Attribute.String()
}

// Add inserts path, creating the missing prefix nodes. Paths are deduplicated
// by identity, not by text.
func (n *Node) Add(path *ast.IdentifiedPath) *Node {
	current := n
	if path.Path != nil {
		for _, pn := range path.Path.Nodes {
			key := pn.String()
			child, ok := current.index[key]
			if !ok {
				child = &Node{Attribute: pn, Parent: current, index: map[string]*Node{}}
				current.index[key] = child
				current.Children = append(current.Children, child)
			}
			current = child
		}
	}
	for _, existing := range current.Paths {
		if existing == path {
			return current
		}
	}
	current.Paths = append(current.Paths, path)
	return current
}

// Child returns the child for key, or nil.
func (n *Node) Child(key string) *Node {
	return n.index[key]
}

// Find returns the node path leads to, or nil if it was never added.
func (n *Node) Find(path *ast.ObjectPath) *Node {
	current := n
	if path == nil {
		return current
	}
	for _, pn := range path.Nodes {
		current = current.index[pn.String()]
		if current == nil {
			return nil
		}
	}
	return current
}

// Prefix returns the attributes from the root down to n.
func (n *Node) Prefix() []ast.PathNode {
	var nodes []ast.PathNode
	for c := n; c != nil && !c.IsRoot(); c = c.Parent {
		nodes = append(nodes, c.Attribute)
	}
	for i, j := 0, len(nodes)-1; i < j; i, j = i+1, j-1 {
		nodes[i], nodes[j] = nodes[j], nodes[i]
	}
	return nodes
}

// String renders the prefix as an AQL path, empty for the root.
func (n *Node) String() string {
	parts := make([]string, 0)
	for _, pn := range n.Prefix() {
		parts = append(parts, pn.String())
	}
	return strings.Join(parts, "/")
}

// Walk visits n and its descendants depth first, parents before children.
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}
