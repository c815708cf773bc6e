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

// Package rm holds the reference model metadata the AQL compiler type-checks paths against.
//
// Metadata is loaded once (from the embedded rm.yaml or a file given in the
// configuration) and is read-only afterwards, so a single *Metadata can be shared by
// concurrent compilations without locking.
package rm

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed rm.yaml
var embeddedMetadata []byte

// TypeCategory is the storage category of an RM type.
type TypeCategory int

const (
	// CategoryRm is a non-primitive type stored inside the JSON of its structure row.
	CategoryRm TypeCategory = iota
	// CategoryPrimitive is String, Boolean and the numeric types.
	CategoryPrimitive
	// CategoryStructure is a type stored as its own row in a data table.
	CategoryStructure
	// CategoryStructureIntermediate is a non-row type that holds row-stored types.
	CategoryStructureIntermediate
)

const (
	// OriginalVersion is the RM type a VERSION containment stands for.
	OriginalVersion = "ORIGINAL_VERSION"
	// AuditDetails is the RM type of ORIGINAL_VERSION.commit_audit.
	AuditDetails = "AUDIT_DETAILS"
	Ehr          = "EHR"
	EhrStatus    = "EHR_STATUS"
	Composition  = "COMPOSITION"
	Folder       = "FOLDER"
)

// AttInfo describes one attribute of a type.
type AttInfo struct {
	// Targets lists the concrete types the attribute may hold, sorted.
	Targets        []string
	MultipleValued bool
	Nullable       bool
}

// TypeInfo is a flattened type: inherited attributes and flags are merged in.
type TypeInfo struct {
	Name       string
	Parents    []string
	Abstract   bool
	Category   TypeCategory
	Roots      []string
	Ordered    bool
	Temporal   bool
	Attributes map[string]AttInfo
}

// Metadata is the immutable RM type table.
type Metadata struct {
	types     map[string]*TypeInfo
	concrete  map[string][]string
	ancestors map[string]map[string]struct{}
	declarers map[string][]string
}

type metadataDocument struct {
	Types map[string]typeDocument `yaml:"types"`
}

type typeDocument struct {
	Parents    []string                     `yaml:"parents"`
	Abstract   bool                         `yaml:"abstract"`
	Category   string                       `yaml:"category"`
	Roots      []string                     `yaml:"roots"`
	Ordered    bool                         `yaml:"ordered"`
	Temporal   bool                         `yaml:"temporal"`
	Attributes map[string]attributeDocument `yaml:"attributes"`
}

type attributeDocument struct {
	Targets  []string `yaml:"targets"`
	Multiple bool     `yaml:"multiple"`
	Nullable bool     `yaml:"nullable"`
}

var defaultMetadata = sync.OnceValues(func() (*Metadata, error) {
	return LoadMetadata(bytes.NewReader(embeddedMetadata))
})

// DefaultMetadata returns the shared metadata parsed from the embedded rm.yaml.
func DefaultMetadata() (*Metadata, error) {
	return defaultMetadata()
}

// MustDefaultMetadata is DefaultMetadata panicking on error.
func MustDefaultMetadata() *Metadata {
	md, err := DefaultMetadata()
	if err != nil {
		panic(err)
	}
	return md
}

// LoadMetadata parses an RM metadata document.
//
// Parameters:
//   - r: YAML document with a top level "types" map
//
// Returns:
//   - *Metadata: Flattened type table
//   - error: Error on malformed YAML, unknown parents or targets, or inheritance cycles
func LoadMetadata(r io.Reader) (*Metadata, error) {
	var doc metadataDocument
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode rm metadata: %w", err)
	}
	if len(doc.Types) == 0 {
		return nil, fmt.Errorf("rm metadata declares no types")
	}

	md := &Metadata{
		types:     make(map[string]*TypeInfo, len(doc.Types)),
		concrete:  make(map[string][]string),
		ancestors: make(map[string]map[string]struct{}),
		declarers: make(map[string][]string),
	}
	for name := range doc.Types {
		if _, err := md.flatten(name, doc.Types, map[string]bool{}); err != nil {
			return nil, err
		}
	}
	md.indexSubtypes()
	if err := md.resolveTargets(); err != nil {
		return nil, err
	}
	md.indexDeclarers()
	return md, nil
}

func parseCategory(s string) (TypeCategory, bool, error) {
	switch s {
	case "":
		return CategoryRm, false, nil
	case "rm":
		return CategoryRm, true, nil
	case "primitive":
		return CategoryPrimitive, true, nil
	case "structure":
		return CategoryStructure, true, nil
	case "structure_intermediate":
		return CategoryStructureIntermediate, true, nil
	default:
		return 0, false, fmt.Errorf("unknown category %q", s)
	}
}

func (md *Metadata) flatten(name string, docs map[string]typeDocument, visiting map[string]bool) (*TypeInfo, error) {
	if ti, ok := md.types[name]; ok {
		return ti, nil
	}
	if visiting[name] {
		return nil, fmt.Errorf("inheritance cycle at type %s", name)
	}
	doc, ok := docs[name]
	if !ok {
		return nil, fmt.Errorf("unknown type %s", name)
	}
	visiting[name] = true

	ti := &TypeInfo{
		Name:       name,
		Parents:    doc.Parents,
		Abstract:   doc.Abstract,
		Ordered:    doc.Ordered,
		Temporal:   doc.Temporal,
		Attributes: map[string]AttInfo{},
	}
	ancestors := map[string]struct{}{name: {}}
	category, explicit, err := parseCategory(doc.Category)
	if err != nil {
		return nil, fmt.Errorf("type %s: %w", name, err)
	}
	for _, p := range doc.Parents {
		parent, err := md.flatten(p, docs, visiting)
		if err != nil {
			return nil, fmt.Errorf("type %s: %w", name, err)
		}
		for a, info := range parent.Attributes {
			ti.Attributes[a] = info
		}
		for a := range md.ancestors[p] {
			ancestors[a] = struct{}{}
		}
		if !explicit {
			category = parent.Category
		}
		if len(doc.Roots) == 0 {
			ti.Roots = parent.Roots
		}
		ti.Ordered = ti.Ordered || parent.Ordered
		ti.Temporal = ti.Temporal || parent.Temporal
	}
	if len(doc.Roots) > 0 {
		ti.Roots = doc.Roots
	}
	ti.Category = category
	// own attributes; targets are resolved once all types are known
	for a, att := range doc.Attributes {
		ti.Attributes[a] = AttInfo{Targets: att.Targets, MultipleValued: att.Multiple, Nullable: att.Nullable}
	}

	delete(visiting, name)
	md.types[name] = ti
	md.ancestors[name] = ancestors
	return ti, nil
}

func (md *Metadata) indexSubtypes() {
	for name, ti := range md.types {
		if ti.Abstract {
			continue
		}
		for a := range md.ancestors[name] {
			md.concrete[a] = append(md.concrete[a], name)
		}
	}
	for a := range md.concrete {
		sort.Strings(md.concrete[a])
	}
}

func (md *Metadata) resolveTargets() error {
	for _, ti := range md.types {
		for a, info := range ti.Attributes {
			set := map[string]struct{}{}
			for _, t := range info.Targets {
				if _, ok := md.types[t]; !ok {
					return fmt.Errorf("type %s attribute %s: unknown target %s", ti.Name, a, t)
				}
				for _, c := range md.concrete[t] {
					set[c] = struct{}{}
				}
			}
			info.Targets = sortedKeys(set)
			ti.Attributes[a] = info
		}
	}
	return nil
}

func (md *Metadata) indexDeclarers() {
	for name, ti := range md.types {
		if ti.Abstract {
			continue
		}
		for a := range ti.Attributes {
			md.declarers[a] = append(md.declarers[a], name)
		}
	}
	for a := range md.declarers {
		sort.Strings(md.declarers[a])
	}
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Type returns the flattened type info.
func (md *Metadata) Type(name string) (*TypeInfo, bool) {
	ti, ok := md.types[name]
	return ti, ok
}

// IsKnownType reports whether name is declared.
func (md *Metadata) IsKnownType(name string) bool {
	_, ok := md.types[name]
	return ok
}

// AttributeInfo looks up attribute on declaringType, including inherited attributes.
func (md *Metadata) AttributeInfo(attribute, declaringType string) (AttInfo, bool) {
	ti, ok := md.types[declaringType]
	if !ok {
		return AttInfo{}, false
	}
	info, ok := ti.Attributes[attribute]
	return info, ok
}

// IsKnownAttribute reports whether any type declares attribute.
func (md *Metadata) IsKnownAttribute(attribute string) bool {
	return len(md.declarers[attribute]) > 0
}

// TypesDeclaring lists the concrete types declaring attribute, sorted.
func (md *Metadata) TypesDeclaring(attribute string) []string {
	return md.declarers[attribute]
}

// ConcreteTypes lists the non-abstract subtypes of name including itself, sorted.
func (md *Metadata) ConcreteTypes(name string) []string {
	return md.concrete[name]
}

// IsSubtypeOf reports whether t equals or inherits from ancestor.
func (md *Metadata) IsSubtypeOf(t, ancestor string) bool {
	_, ok := md.ancestors[t][ancestor]
	return ok
}

// Category returns the storage category, CategoryRm for unknown types.
func (md *Metadata) Category(t string) TypeCategory {
	if ti, ok := md.types[t]; ok {
		return ti.Category
	}
	return CategoryRm
}

func (md *Metadata) IsPrimitive(t string) bool {
	return md.Category(t) == CategoryPrimitive
}

func (md *Metadata) IsStructure(t string) bool {
	return md.Category(t) == CategoryStructure
}

func (md *Metadata) IsOrdered(t string) bool {
	ti, ok := md.types[t]
	return ok && ti.Ordered
}

func (md *Metadata) IsTemporal(t string) bool {
	ti, ok := md.types[t]
	return ok && ti.Temporal
}

// StructureRoots lists the structure roots t can be stored under.
func (md *Metadata) StructureRoots(t string) []string {
	if ti, ok := md.types[t]; ok {
		return ti.Roots
	}
	return nil
}

// IsStructureRoot reports whether t is EHR, COMPOSITION, EHR_STATUS or FOLDER.
func (md *Metadata) IsStructureRoot(t string) bool {
	roots := md.StructureRoots(t)
	return len(roots) == 1 && roots[0] == t
}

// RmTypes maps an archetype node id to the concrete RM types an archetype of that
// id can be applied to. It returns false for at-codes and other ids that do not
// name an RM type, and an empty set for archetypes of an unknown RM type.
//
// Example inputs / outputs:
//
//	openEHR-EHR-OBSERVATION.blood_pressure.v2 -> [OBSERVATION], true
//	openEHR-EHR-CARE_ENTRY.x.v1               -> [ACTION EVALUATION INSTRUCTION OBSERVATION], true
//	at0001                                    -> nil, false
func (md *Metadata) RmTypes(archetypeNodeID string) ([]string, bool) {
	rmType, ok := ArchetypeRmType(archetypeNodeID)
	if !ok {
		return nil, false
	}
	return append([]string{}, md.concrete[rmType]...), true
}

// ArchetypeRmType extracts the RM type part of an archetype id
// (`openEHR-EHR-OBSERVATION.bp.v1` -> `OBSERVATION`).
func ArchetypeRmType(archetypeID string) (string, bool) {
	dot := strings.Index(archetypeID, ".")
	if dot < 0 {
		return "", false
	}
	qualifiers := strings.Split(archetypeID[:dot], "-")
	if len(qualifiers) < 3 || qualifiers[len(qualifiers)-1] == "" {
		return "", false
	}
	return qualifiers[len(qualifiers)-1], true
}
